package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	DB         *gorm.DB
	Users      UserRepo
	OTPs       OTPRepo
	Refresh    RefreshRepo
	Products   ProductRepo
	Orders     OrderRepo
	OrderItems OrderItemRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:         db,
		Users:      NewUserRepo(db),
		OTPs:       NewOTPRepo(db),
		Refresh:    NewRefreshRepo(db),
		Products:   NewProductRepo(db),
		Orders:     NewOrderRepo(db),
		OrderItems: NewOrderItemRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx выполняет fn внутри одной транзакции; tx — репозитории,
// привязанные к ней. Любая ошибка из fn откатывает всё целиком.
// Без подключения (репозитории собраны вручную) fn выполняется как есть.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	if r.DB == nil {
		return fn(r)
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
