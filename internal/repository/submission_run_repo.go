package repository

import (
	"context"

	"requestflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionRunRepository interface {
	Create(ctx context.Context, run *model.SubmissionRun) error
	Save(ctx context.Context, run *model.SubmissionRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SubmissionRun, error)
}

type submissionRunRepository struct {
	db *gorm.DB
}

func NewSubmissionRunRepository(db *gorm.DB) SubmissionRunRepository {
	return &submissionRunRepository{db: db}
}

func (r *submissionRunRepository) Create(ctx context.Context, run *model.SubmissionRun) error {
	return GetDB(ctx, r.db).Create(run).Error
}

func (r *submissionRunRepository) Save(ctx context.Context, run *model.SubmissionRun) error {
	return GetDB(ctx, r.db).Save(run).Error
}

func (r *submissionRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SubmissionRun, error) {
	var run model.SubmissionRun
	if err := GetDB(ctx, r.db).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
