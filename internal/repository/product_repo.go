package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Aref-Yazdanpanah/orderflow-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductListFilter struct {
	Query      string // по name
	OnlyActive *bool
	Limit      int
	Offset     int
}

type ProductRepo interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	List(ctx context.Context, f ProductListFilter) ([]models.Product, int64, error)
	BatchGetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	// LockActiveByIDs берёт FOR UPDATE на активные товары из ids и возвращает
	// только их: отсутствующие и неактивные просто не попадают в результат.
	// Цена, прочитанная из залоченной строки, не может разъехаться с
	// конкурентным изменением каталога.
	LockActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) ProductRepo { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *productRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *productRepo) List(ctx context.Context, f ProductListFilter) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})

	if f.OnlyActive != nil {
		q = q.Where("is_active = ?", *f.OnlyActive)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where("lower(name) LIKE lower(?)", "%"+s+"%")
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

	var list []models.Product
	if err := q.Order("name ASC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *productRepo) BatchGetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var list []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *productRepo) LockActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var list []models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND is_active = true", ids).
		Find(&list).Error
	return list, err
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}
