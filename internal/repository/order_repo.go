package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderListFilter struct {
	CustomerID *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	EditedFrom  *time.Time
	EditedTo    *time.Time
	MinTotal    *decimal.Decimal
	MaxTotal    *decimal.Decimal
	OrderBy     string // created_at | updated_at | total_price
	Desc        bool
	Limit       int
	Offset      int
}

var orderListSortable = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"total_price": true,
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error)
	// GetByIDForUpdate берёт FOR UPDATE на строку заказа: конкурентные
	// мутации одного заказа строго сериализуются. nil — заказа нет.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) GetByIDForCustomer(ctx context.Context, id, customerID uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		First(&ord, "id = ? AND customer_id = ?", id, customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("total_price", total).Error
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	if f.EditedFrom != nil {
		q = q.Where("updated_at >= ?", *f.EditedFrom)
	}
	if f.EditedTo != nil {
		q = q.Where("updated_at <= ?", *f.EditedTo)
	}
	if f.MinTotal != nil {
		q = q.Where("total_price >= ?", *f.MinTotal)
	}
	if f.MaxTotal != nil {
		q = q.Where("total_price <= ?", *f.MaxTotal)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	orderBy := "created_at"
	if orderListSortable[f.OrderBy] {
		orderBy = f.OrderBy
	}
	dir := " ASC"
	if f.Desc || f.OrderBy == "" { // по умолчанию свежие сверху
		dir = " DESC"
	}

	var list []*models.Order
	err := q.Order(orderBy + dir).Limit(f.Limit).Offset(f.Offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *orderRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Order{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}
