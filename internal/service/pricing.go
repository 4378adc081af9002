package service

import (
	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecomputeTotal — единственное место, где считается итог заказа:
// Σ(quantity × unit_price снимка) по строкам, округление до копеек.
func RecomputeTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].LineTotal())
	}
	return total.Round(2)
}

// dedupeItems схлопывает вход по товару: при повторах выигрывает последняя
// запись. Порядок ключей не фиксируем — порядок строк заказа не значим.
func dedupeItems(items []OrderItemInput) map[uuid.UUID]uint32 {
	out := make(map[uuid.UUID]uint32, len(items))
	for _, it := range items {
		out[it.ProductID] = it.Quantity
	}
	return out
}

func snapshotLine(orderID uuid.UUID, p *models.Product, qty uint32) models.OrderItem {
	return models.OrderItem{
		OrderID:   orderID,
		ProductID: p.ID,
		Quantity:  qty,
		UnitPrice: p.UnitPrice,
	}
}
