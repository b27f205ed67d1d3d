package repository

import (
	"context"
	"time"

	"requestflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DiscussionRepository interface {
	Create(ctx context.Context, d *model.Discussion) error
	FindByID(ctx context.Context, id uint) (*model.Discussion, error)
	// SetAnswer writes answer, answered_by and answered_on in a single statement.
	SetAnswer(ctx context.Context, id uint, answer string, answeredBy uint, answeredOn time.Time) error
	ListByRequest(ctx context.Context, requestID uint) ([]model.Discussion, error)
	ListOpenForRecipient(ctx context.Context, recipientID uint) ([]model.Discussion, error)
	CountOpenForRecipient(ctx context.Context, recipientID uint) (int64, error)
}

type discussionRepository struct {
	db    *gorm.DB
	table string
}

func NewDiscussionRepository(db *gorm.DB, domain model.Domain) DiscussionRepository {
	return &discussionRepository{db: db, table: domain.Table(model.CollectionDiscussions)}
}

func (r *discussionRepository) scoped(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).Table(r.table)
}

func (r *discussionRepository) withPeople(db *gorm.DB) *gorm.DB {
	return db.Preload("RaisedBy").Preload("Recipient").Preload("AnsweredBy")
}

func (r *discussionRepository) Create(ctx context.Context, d *model.Discussion) error {
	return r.scoped(ctx).Omit(clause.Associations).Create(d).Error
}

func (r *discussionRepository) FindByID(ctx context.Context, id uint) (*model.Discussion, error) {
	var d model.Discussion
	if err := r.withPeople(r.scoped(ctx)).Where("id = ?", id).Take(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *discussionRepository) SetAnswer(ctx context.Context, id uint, answer string, answeredBy uint, answeredOn time.Time) error {
	res := r.scoped(ctx).Where("id = ?", id).Updates(map[string]interface{}{
		"answer":         answer,
		"answered_by_id": answeredBy,
		"answered_on":    answeredOn,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *discussionRepository) ListByRequest(ctx context.Context, requestID uint) ([]model.Discussion, error) {
	return r.query(ctx, NewFilter().Eq(FieldRequestID, requestID).OrderBy(FieldID, false))
}

func (r *discussionRepository) ListOpenForRecipient(ctx context.Context, recipientID uint) ([]model.Discussion, error) {
	return r.query(ctx, NewFilter().
		Eq(FieldRecipientID, recipientID).
		IsNull(FieldAnsweredOn).
		OrderBy(FieldID, false))
}

func (r *discussionRepository) CountOpenForRecipient(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := NewFilter().
		Eq(FieldRecipientID, recipientID).
		IsNull(FieldAnsweredOn).
		Where(r.scoped(ctx)).
		Count(&count).Error
	return count, err
}

func (r *discussionRepository) query(ctx context.Context, f *Filter) ([]model.Discussion, error) {
	var items []model.Discussion
	if err := f.Apply(r.withPeople(r.scoped(ctx))).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
