package service

import (
	"context"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemInput — желаемое состояние одной строки: quantity == 0 означает
// "строки быть не должно".
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  uint32
}

type CreateOrderInput struct {
	Items []OrderItemInput
}

type UpdateOrderInput struct {
	Items []OrderItemInput
}

type ListOrdersFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	EditedFrom  *time.Time
	EditedTo    *time.Time
	MinTotal    *decimal.Decimal
	MaxTotal    *decimal.Decimal
	OrderBy     string
	Desc        bool
	Limit       int
	Offset      int
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, in UpdateOrderInput) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f ListOrdersFilter) ([]models.Order, int64, error)
}
