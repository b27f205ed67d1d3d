package repository

import (
	"context"
	"time"

	"requestflow/internal/model"

	"gorm.io/gorm"
)

// RequestState is the slice of a request row the approval engine needs,
// identical for both domains.
type RequestState struct {
	ID          uint
	Status      string
	Version     int
	RequesterID uint
	CreatedByID uint
}

// RequestStateRepository reads and conditionally updates the status of a domain's requests.
type RequestStateRepository interface {
	FindState(ctx context.Context, id uint) (*RequestState, error)
	// UpdateStatus succeeds only if the row still carries expectedVersion.
	UpdateStatus(ctx context.Context, id uint, status string, expectedVersion int) error
	CountByStatus(ctx context.Context, requesterID uint) ([]model.StatusCount, error)
}

type requestStateRepository struct {
	db    *gorm.DB
	table string
}

func NewRequestStateRepository(db *gorm.DB, domain model.Domain) RequestStateRepository {
	return &requestStateRepository{db: db, table: domain.Table(model.CollectionRequests)}
}

func (r *requestStateRepository) FindState(ctx context.Context, id uint) (*RequestState, error) {
	var state RequestState
	err := GetDB(ctx, r.db).Table(r.table).
		Select("id, status, version, requester_id, created_by_id").
		Where("id = ?", id).
		Take(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *requestStateRepository) UpdateStatus(ctx context.Context, id uint, status string, expectedVersion int) error {
	res := GetDB(ctx, r.db).Table(r.table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":     status,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r *requestStateRepository) CountByStatus(ctx context.Context, requesterID uint) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	if err := GetDB(ctx, r.db).Table(r.table).
		Select("status, COUNT(*) as count").
		Where("requester_id = ?", requesterID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
