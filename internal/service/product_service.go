package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateProductInput struct {
	Name      string
	UnitPrice decimal.Decimal
	IsActive  *bool
}

type UpdateProductInput struct {
	Name      *string
	UnitPrice *decimal.Decimal
	IsActive  *bool
}

type ProductService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewProductService(repo *repository.Repository, log *zap.Logger) *ProductService {
	return &ProductService{repo: repo, log: log}
}

func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("unit price must be non-negative")
	}

	prod := &models.Product{
		Name:      strings.TrimSpace(in.Name),
		UnitPrice: in.UnitPrice.Round(2),
		IsActive:  true,
	}
	if in.IsActive != nil {
		prod.IsActive = *in.IsActive
	}
	if err := s.repo.Products.Create(ctx, prod); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return prod, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, in UpdateProductInput) (*models.Product, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.UnitPrice != nil {
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("unit price must be non-negative")
		}
		fields["unit_price"] = in.UnitPrice.Round(2)
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}

	prod, err := s.repo.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prod == nil {
		return nil, ErrProductNotFound
	}
	if err := s.repo.Products.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.Products.GetByID(ctx, id)
}

func (s *ProductService) ListProducts(ctx context.Context, f repository.ProductListFilter) ([]models.Product, int64, error) {
	if _, err := requirePrincipal(ctx); err != nil {
		return nil, 0, err
	}
	return s.repo.Products.List(ctx, f)
}

func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return err
	}
	if p.Role != models.RoleAdmin {
		return ErrForbidden
	}
	ok, err := s.repo.Products.Delete(ctx, id)
	if err != nil {
		// RESTRICT: товар, на который ссылаются строки заказов, не удаляется
		if strings.Contains(err.Error(), "violates foreign key constraint") {
			return ErrProductInOrders
		}
		return err
	}
	if !ok {
		return ErrProductNotFound
	}
	return nil
}

// EnsurePurchasable — строгая валидация входа заказа на границе API: каждый
// упомянутый товар должен существовать и быть активным. Движок мутаций при
// этом всё равно молча пропускает незалоченные товары — это страховка от
// гонки между валидацией и транзакцией, а не основная проверка.
func (s *ProductService) EnsurePurchasable(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.repo.Products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*models.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		prod, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		if !prod.IsActive {
			return fmt.Errorf("%w: %s", ErrProductInactive, id)
		}
	}
	return nil
}
