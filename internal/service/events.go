package service

import (
	"context"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
)

type OrderItemEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  uint32    `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
}

type OrderEvent struct {
	OrderID    uuid.UUID        `json:"order_id"`
	CustomerID uuid.UUID        `json:"customer_id"`
	Items      []OrderItemEvent `json:"items"`
	TotalPrice string           `json:"total_price"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type OrderDeletedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	DeletedAt  time.Time `json:"deleted_at"`
}

func newOrderEvent(o *models.Order, at time.Time) OrderEvent {
	items := make([]OrderItemEvent, 0, len(o.Items))
	for i := range o.Items {
		it := &o.Items[i]
		items = append(items, OrderItemEvent{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}
	return OrderEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      items,
		TotalPrice: o.TotalPrice.StringFixed(2),
		OccurredAt: at,
	}
}

type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderEvent) error
	PublishOrderUpdated(ctx context.Context, e OrderEvent) error
	PublishOrderDeleted(ctx context.Context, e OrderDeletedEvent) error
}
