package repository

import (
	"context"
	"database/sql"
	"time"

	"requestflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApprovalRepository reads and writes one domain's approval chains.
type ApprovalRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Approval, error)
	// FindForDecision matches on (id, request, approver) together.
	FindForDecision(ctx context.Context, id, requestID, approverID uint) (*model.Approval, error)
	// ListByRequest returns the chain ordered by hierarchy, then id.
	ListByRequest(ctx context.Context, requestID uint) ([]model.Approval, error)
	ListPendingByApprover(ctx context.Context, approverID uint) ([]model.Approval, error)
	MaxHierarchy(ctx context.Context, requestID uint) (int, error)
	Query(ctx context.Context, filter *Filter) ([]model.Approval, error)
	Update(ctx context.Context, approval *model.Approval) error
	UpdateApprover(ctx context.Context, id, approverID uint) error
	// ReplaceChain makes the stored chain equal to chain, keyed on (request_id, hierarchy).
	// Running it twice with the same input leaves the same rows behind.
	ReplaceChain(ctx context.Context, requestID uint, chain []model.Approval) error
	DeleteByRequest(ctx context.Context, requestID uint) error
}

type approvalRepository struct {
	db    *gorm.DB
	table string
}

func NewApprovalRepository(db *gorm.DB, domain model.Domain) ApprovalRepository {
	return &approvalRepository{db: db, table: domain.Table(model.CollectionApprovals)}
}

func (r *approvalRepository) scoped(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).Table(r.table)
}

func (r *approvalRepository) FindByID(ctx context.Context, id uint) (*model.Approval, error) {
	var approval model.Approval
	if err := r.scoped(ctx).Preload("Approver").Where("id = ?", id).Take(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) FindForDecision(ctx context.Context, id, requestID, approverID uint) (*model.Approval, error) {
	var approval model.Approval
	err := r.scoped(ctx).
		Where("id = ? AND request_id = ? AND approver_id = ?", id, requestID, approverID).
		Take(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) ListByRequest(ctx context.Context, requestID uint) ([]model.Approval, error) {
	return r.Query(ctx, NewFilter().
		Eq(FieldRequestID, requestID).
		OrderBy(FieldHierarchy, false).
		OrderBy(FieldID, false))
}

func (r *approvalRepository) ListPendingByApprover(ctx context.Context, approverID uint) ([]model.Approval, error) {
	return r.Query(ctx, NewFilter().
		Eq(FieldApproverID, approverID).
		Eq(FieldStatus, model.ApprovalStatusPending).
		OrderBy(FieldRequestID, false).
		OrderBy(FieldHierarchy, false))
}

func (r *approvalRepository) MaxHierarchy(ctx context.Context, requestID uint) (int, error) {
	var max sql.NullInt64
	if err := r.scoped(ctx).Where("request_id = ?", requestID).
		Select("MAX(hierarchy)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, gorm.ErrRecordNotFound
	}
	return int(max.Int64), nil
}

func (r *approvalRepository) Query(ctx context.Context, filter *Filter) ([]model.Approval, error) {
	var approvals []model.Approval
	if err := filter.Apply(r.scoped(ctx).Preload("Approver")).Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *approvalRepository) Update(ctx context.Context, approval *model.Approval) error {
	return r.scoped(ctx).Where("id = ?", approval.ID).Updates(map[string]interface{}{
		"approver_id":   approval.ApproverID,
		"role":          approval.Role,
		"status":        approval.Status,
		"comments":      approval.Comments,
		"approved_date": approval.ApprovedDate,
		"updated_at":    time.Now(),
	}).Error
}

func (r *approvalRepository) UpdateApprover(ctx context.Context, id, approverID uint) error {
	res := r.scoped(ctx).Where("id = ?", id).Updates(map[string]interface{}{
		"approver_id": approverID,
		"updated_at":  time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *approvalRepository) ReplaceChain(ctx context.Context, requestID uint, chain []model.Approval) error {
	if len(chain) > 0 {
		for i := range chain {
			chain[i].RequestID = requestID
		}
		err := r.scoped(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "request_id"}, {Name: "hierarchy"}},
			DoUpdates: clause.AssignmentColumns([]string{"approver_id", "role", "status", "comments", "approved_date", "updated_at"}),
		}).Create(&chain).Error
		if err != nil {
			return err
		}
	}

	hierarchies := make([]int, 0, len(chain))
	for _, a := range chain {
		hierarchies = append(hierarchies, a.Hierarchy)
	}
	stale := r.scoped(ctx).Where("request_id = ?", requestID)
	if len(hierarchies) > 0 {
		stale = stale.Where("hierarchy NOT IN ?", hierarchies)
	}
	return stale.Delete(&model.Approval{}).Error
}

func (r *approvalRepository) DeleteByRequest(ctx context.Context, requestID uint) error {
	return r.scoped(ctx).Where("request_id = ?", requestID).Delete(&model.Approval{}).Error
}
