package repository

import (
	"context"
	"time"

	"requestflow/internal/model"

	"gorm.io/gorm"
)

type AttachmentRepository interface {
	Create(ctx context.Context, a *model.Attachment) error
	FindByID(ctx context.Context, id uint) (*model.Attachment, error)
	FindByFileName(ctx context.Context, fileName string) (*model.Attachment, error)
	SetRequestID(ctx context.Context, id, requestID uint) error
	// UpdateFile records the metadata of a file stored again under the same name.
	UpdateFile(ctx context.Context, id uint, path string, size int64, contentType string) error
	ListByRequest(ctx context.Context, requestID uint) ([]model.Attachment, error)
	DeleteByRequest(ctx context.Context, requestID uint) error
}

type attachmentRepository struct {
	db    *gorm.DB
	table string
}

func NewAttachmentRepository(db *gorm.DB, domain model.Domain) AttachmentRepository {
	return &attachmentRepository{db: db, table: domain.Table(model.CollectionAttachments)}
}

func (r *attachmentRepository) scoped(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).Table(r.table)
}

func (r *attachmentRepository) Create(ctx context.Context, a *model.Attachment) error {
	return translate(r.scoped(ctx).Create(a).Error)
}

func (r *attachmentRepository) FindByID(ctx context.Context, id uint) (*model.Attachment, error) {
	var a model.Attachment
	if err := r.scoped(ctx).Where("id = ?", id).Take(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attachmentRepository) FindByFileName(ctx context.Context, fileName string) (*model.Attachment, error) {
	var items []model.Attachment
	if err := NewFilter().Eq(FieldFileName, fileName).Limit(1).Apply(r.scoped(ctx)).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &items[0], nil
}

func (r *attachmentRepository) SetRequestID(ctx context.Context, id, requestID uint) error {
	return r.scoped(ctx).Where("id = ?", id).Updates(map[string]interface{}{
		"request_id": requestID,
		"updated_at": time.Now(),
	}).Error
}

func (r *attachmentRepository) UpdateFile(ctx context.Context, id uint, path string, size int64, contentType string) error {
	return r.scoped(ctx).Where("id = ?", id).Updates(map[string]interface{}{
		"path":         path,
		"size":         size,
		"content_type": contentType,
		"updated_at":   time.Now(),
	}).Error
}

func (r *attachmentRepository) ListByRequest(ctx context.Context, requestID uint) ([]model.Attachment, error) {
	var items []model.Attachment
	if err := NewFilter().Eq(FieldRequestID, requestID).OrderBy(FieldID, false).
		Apply(r.scoped(ctx)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *attachmentRepository) DeleteByRequest(ctx context.Context, requestID uint) error {
	return r.scoped(ctx).Where("request_id = ?", requestID).Delete(&model.Attachment{}).Error
}
