package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/dto"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/repository"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products *service.ProductService
	log      *zap.Logger
}

func NewProductHandler(products *service.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, log: log}
}

func toProductRead(p *models.Product) dto.ProductRead {
	return dto.ProductRead{
		ID:        p.ID.String(),
		Name:      p.Name,
		UnitPrice: p.UnitPrice.StringFixed(2),
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ProductHandler) respondProductError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("admin role required"))
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("product not found"))
	case errors.Is(err, service.ErrDuplicateName):
		c.JSON(http.StatusConflict, dto.NewConflictError("product name already exists"))
	case errors.Is(err, service.ErrProductInOrders):
		c.JSON(http.StatusConflict, dto.NewConflictError("product is referenced by orders"))
	default:
		h.log.Error("Product operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

// Create godoc
// @Summary Создание товара
// @Description Доступно только администратору
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body dto.ProductCreateRequest true "Товар"
// @Success 201 {object} dto.ProductRead
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Не администратор"
// @Failure 409 {object} dto.ConflictErrorResponse "Имя уже занято"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid product create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || price.IsNegative() {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{
			{Field: "unit_price", Message: "must be a non-negative decimal", Tag: "decimal"},
		}))
		return
	}

	prod, err := h.products.CreateProduct(c.Request.Context(), service.CreateProductInput{
		Name:      req.Name,
		UnitPrice: price,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.respondProductError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductRead(prod))
}

// Update godoc
// @Summary Изменение товара
// @Description Частичное обновление, доступно только администратору
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID товара"
// @Param product body dto.ProductUpdateRequest true "Изменяемые поля"
// @Success 200 {object} dto.ProductRead
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Не администратор"
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Имя уже занято"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/products/{id} [patch]
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id", nil))
		return
	}

	var req dto.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid product update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	in := service.UpdateProductInput{Name: req.Name, IsActive: req.IsActive}
	if req.UnitPrice != nil {
		price, err := decimal.NewFromString(*req.UnitPrice)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{
				{Field: "unit_price", Message: "must be a non-negative decimal", Tag: "decimal"},
			}))
			return
		}
		in.UnitPrice = &price
	}

	prod, err := h.products.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		h.respondProductError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductRead(prod))
}

// Delete godoc
// @Summary Удаление товара
// @Description Товар, на который ссылаются заказы, удалить нельзя
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID товара"
// @Success 204 "Товар удалён"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Не администратор"
// @Failure 404 {object} dto.NotFoundErrorResponse "Товар не найден"
// @Failure 409 {object} dto.ConflictErrorResponse "Есть заказы с этим товаром"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid product id", nil))
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondProductError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List godoc
// @Summary Список товаров
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param q query string false "Поиск по имени"
// @Param only_active query bool false "Только активные"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.ProductListResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Нет токена"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var q struct {
		Query      string `form:"q"`
		OnlyActive *bool  `form:"only_active"`
		Limit      int    `form:"limit"`
		Offset     int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid query parameters", []dto.FieldError{}))
		return
	}

	products, total, err := h.products.ListProducts(c.Request.Context(), repository.ProductListFilter{
		Query:      q.Query,
		OnlyActive: q.OnlyActive,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		h.respondProductError(c, err)
		return
	}

	out := make([]dto.ProductRead, 0, len(products))
	for i := range products {
		out = append(out, toProductRead(&products[i]))
	}
	c.JSON(http.StatusOK, dto.ProductListResponse{Products: out, Total: total})
}
