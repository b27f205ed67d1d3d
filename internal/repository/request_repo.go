package repository

import (
	"context"

	"requestflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepository stores the full request rows of one domain.
type RequestRepository[T any] interface {
	Create(ctx context.Context, req *T) error
	// Update writes every column of req, provided the stored version is expectedVersion.
	Update(ctx context.Context, req *T, expectedVersion int) error
	FindByID(ctx context.Context, id uint) (*T, error)
	List(ctx context.Context, filter *Filter, page, limit int) ([]T, int64, error)
	Delete(ctx context.Context, id uint) error
}

type requestRepository[T any] struct {
	db       *gorm.DB
	preloads []string
}

func NewPurchaseRequestRepository(db *gorm.DB) RequestRepository[model.PurchaseRequest] {
	return &requestRepository[model.PurchaseRequest]{
		db:       db,
		preloads: []string{"Requester", "Department", "CreatedBy"},
	}
}

func NewTravelRequestRepository(db *gorm.DB) RequestRepository[model.TravelRequest] {
	return &requestRepository[model.TravelRequest]{
		db:       db,
		preloads: []string{"Requester", "Team", "Department", "CreatedBy"},
	}
}

func (r *requestRepository[T]) withRelations(db *gorm.DB) *gorm.DB {
	for _, p := range r.preloads {
		db = db.Preload(p)
	}
	return db
}

func (r *requestRepository[T]) Create(ctx context.Context, req *T) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(req).Error)
}

func (r *requestRepository[T]) Update(ctx context.Context, req *T, expectedVersion int) error {
	res := GetDB(ctx, r.db).Model(req).
		Select("*").
		Omit("CreatedAt", clause.Associations).
		Where("version = ?", expectedVersion).
		Updates(req)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r *requestRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var req T
	if err := r.withRelations(GetDB(ctx, r.db)).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository[T]) List(ctx context.Context, filter *Filter, page, limit int) ([]T, int64, error) {
	var items []T
	var total int64

	db := GetDB(ctx, r.db)
	if err := filter.Where(db.Model(new(T))).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter == nil {
		filter = NewFilter()
	}
	if len(filter.orders) == 0 {
		filter.OrderBy(FieldID, true)
	}
	offset := (page - 1) * limit
	if err := filter.Apply(r.withRelations(db)).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *requestRepository[T]) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(new(T)).Error
}
