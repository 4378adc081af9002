package dto

type ProductCreateRequest struct {
	Name      string `json:"name" binding:"required,max=255"`
	UnitPrice string `json:"unit_price" binding:"required"`
	IsActive  *bool  `json:"is_active"`
}

type ProductUpdateRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=255"`
	UnitPrice *string `json:"unit_price"`
	IsActive  *bool   `json:"is_active"`
}

type ProductRead struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductRead `json:"products"`
	Total    int64         `json:"total"`
}
