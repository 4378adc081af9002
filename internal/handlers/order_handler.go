package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/dto"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders   service.OrderService
	products *service.ProductService
	log      *zap.Logger
}

func NewOrderHandler(orders service.OrderService, products *service.ProductService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, products: products, log: log}
}

func toOrderRead(o *models.Order) dto.OrderRead {
	items := make([]dto.OrderItemRead, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemRead{
			ID:        it.ID.String(),
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}
	return dto.OrderRead{
		ID:         o.ID.String(),
		CustomerID: o.CustomerID.String(),
		TotalPrice: o.TotalPrice.StringFixed(2),
		CreatedAt:  o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  o.UpdatedAt.UTC().Format(time.RFC3339),
		Items:      items,
	}
}

// toItemInputs конвертирует строки запроса; повторы product схлопывает сервис.
func toItemInputs(c *gin.Context, items []dto.OrderItemWrite) ([]service.OrderItemInput, bool) {
	out := make([]service.OrderItemInput, 0, len(items))
	for _, it := range items {
		id, err := uuid.Parse(it.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{
				{Field: "items.product", Message: "must be a UUID", Tag: "uuid"},
			}))
			return nil, false
		}
		out = append(out, service.OrderItemInput{ProductID: id, Quantity: it.Quantity})
	}
	return out, true
}

// ensurePurchasable — fail-fast проверка каталога на границе API: движок
// внутри транзакции молча пропускает исчезнувшие позиции, но клиенту мы
// отвечаем ошибкой сразу.
func (h *OrderHandler) ensurePurchasable(c *gin.Context, items []service.OrderItemInput) bool {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return true
	}
	if err := h.products.EnsurePurchasable(c.Request.Context(), ids); err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrProductInactive):
			c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
		default:
			h.log.Error("Product check failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		}
		return false
	}
	return true
}

func (h *OrderHandler) respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("not allowed for this order"))
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("order not found"))
	case errors.Is(err, service.ErrEmptyItems):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("items must not be empty", nil))
	default:
		h.log.Error("Order operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

// Create godoc
// @Summary Создание заказа
// @Description Создаёт заказ из строк {product, quantity}; цена фиксируется на момент добавления
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body dto.OrderWriteRequest true "Строки заказа"
// @Success 201 {object} dto.OrderRead
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные или недоступный товар"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Нет токена"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.OrderWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid order create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	items, ok := toItemInputs(c, req.Items)
	if !ok {
		return
	}
	if !h.ensurePurchasable(c, items) {
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{Items: items})
	if err != nil {
		h.respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderRead(order))
}

// Update godoc
// @Summary Изменение заказа
// @Description Применяет желаемое состояние строк: quantity == 0 удаляет строку,
// отсутствующие в запросе строки не трогаются, зафиксированная цена не пересчитывается
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Param order body dto.OrderWriteRequest true "Желаемые строки"
// @Success 200 {object} dto.OrderRead
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные или недоступный товар"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Нет токена"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужой заказ"
// @Failure 404 {object} dto.NotFoundErrorResponse "Заказ не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders/{id} [put]
func (h *OrderHandler) Update(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid order id", nil))
		return
	}

	var req dto.OrderWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid order update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
		return
	}

	items, ok := toItemInputs(c, req.Items)
	if !ok {
		return
	}
	if !h.ensurePurchasable(c, items) {
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), orderID, service.UpdateOrderInput{Items: items})
	if err != nil {
		h.respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderRead(order))
}

// Delete godoc
// @Summary Удаление заказа
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 204 "Заказ удалён"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Нет токена"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужой заказ"
// @Failure 404 {object} dto.NotFoundErrorResponse "Заказ не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders/{id} [delete]
func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid order id", nil))
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		h.respondOrderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get godoc
// @Summary Просмотр заказа
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID заказа"
// @Success 200 {object} dto.OrderRead
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Нет токена"
// @Failure 404 {object} dto.NotFoundErrorResponse "Заказ не найден"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid order id", nil))
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.respondOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderRead(order))
}

// List godoc
// @Summary Список заказов
// @Description Клиент видит свои заказы, админ — все. Фильтры по датам и сумме,
// сортировка ?ordering=-created_at
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param created_from query string false "RFC3339"
// @Param created_to query string false "RFC3339"
// @Param edited_from query string false "RFC3339"
// @Param edited_to query string false "RFC3339"
// @Param min_total query string false "Минимальная сумма"
// @Param max_total query string false "Максимальная сумма"
// @Param ordering query string false "created_at | updated_at | total_price, префикс - для убывания"
// @Param limit query int false "Лимит (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.OrderListResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные параметры"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Нет токена"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/v1/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.OrderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid query parameters", []dto.FieldError{}))
		return
	}

	f, err := parseOrderListQuery(q)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
		return
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		h.respondOrderError(c, err)
		return
	}

	out := make([]dto.OrderRead, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderRead(&orders[i]))
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: out, Total: total})
}

func parseOrderListQuery(q dto.OrderListQuery) (service.ListOrdersFilter, error) {
	var f service.ListOrdersFilter

	parseTime := func(name, v string) (*time.Time, error) {
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New(name + " must be RFC3339")
		}
		return &t, nil
	}
	parseDecimal := func(name, v string) (*decimal.Decimal, error) {
		if v == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errors.New(name + " must be a decimal")
		}
		return &d, nil
	}

	var err error
	if f.CreatedFrom, err = parseTime("created_from", q.CreatedFrom); err != nil {
		return f, err
	}
	if f.CreatedTo, err = parseTime("created_to", q.CreatedTo); err != nil {
		return f, err
	}
	if f.EditedFrom, err = parseTime("edited_from", q.EditedFrom); err != nil {
		return f, err
	}
	if f.EditedTo, err = parseTime("edited_to", q.EditedTo); err != nil {
		return f, err
	}
	if f.MinTotal, err = parseDecimal("min_total", q.MinTotal); err != nil {
		return f, err
	}
	if f.MaxTotal, err = parseDecimal("max_total", q.MaxTotal); err != nil {
		return f, err
	}

	if q.Ordering != "" {
		field := q.Ordering
		if field[0] == '-' {
			f.Desc = true
			field = field[1:]
		}
		f.OrderBy = field
	}
	f.Limit = q.Limit
	f.Offset = q.Offset
	return f, nil
}
