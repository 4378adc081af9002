package dto

// Контракт записи строки (upsert-семантика):
//   - quantity > 0  — установить/создать
//   - quantity == 0 — удалить строку
type OrderItemWrite struct {
	ProductID string `json:"product" binding:"required,uuid"`
	Quantity  uint32 `json:"quantity"`
}

type OrderWriteRequest struct {
	Items []OrderItemWrite `json:"items" binding:"required,min=1,dive"`
}

type OrderItemRead struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  uint32 `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type OrderRead struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	TotalPrice string          `json:"total_price"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
	Items      []OrderItemRead `json:"items"`
}

type OrderListResponse struct {
	Orders []OrderRead `json:"orders"`
	Total  int64       `json:"total"`
}

// Фильтры списка передаются query-параметрами.
type OrderListQuery struct {
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
	EditedFrom  string `form:"edited_from"`
	EditedTo    string `form:"edited_to"`
	MinTotal    string `form:"min_total"`
	MaxTotal    string `form:"max_total"`
	Ordering    string `form:"ordering"` // например "-created_at" или "total_price"
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}
