package repository

import (
	"context"

	"requestflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RosterRepository interface {
	Create(ctx context.Context, entry *model.RosterEntry) error
	Update(ctx context.Context, entry *model.RosterEntry) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.RosterEntry, error)
	// ListByScope returns the roster ordered by hierarchy, then id.
	ListByScope(ctx context.Context, scope string, scopeID uint) ([]model.RosterEntry, error)
}

type rosterRepository struct {
	db *gorm.DB
}

func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

func (r *rosterRepository) Create(ctx context.Context, entry *model.RosterEntry) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(entry).Error)
}

func (r *rosterRepository) Update(ctx context.Context, entry *model.RosterEntry) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Save(entry).Error)
}

func (r *rosterRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.RosterEntry{}).Error
}

func (r *rosterRepository) FindByID(ctx context.Context, id uint) (*model.RosterEntry, error) {
	var entry model.RosterEntry
	if err := GetDB(ctx, r.db).Preload("Approver").First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *rosterRepository) ListByScope(ctx context.Context, scope string, scopeID uint) ([]model.RosterEntry, error) {
	var entries []model.RosterEntry
	if err := GetDB(ctx, r.db).Preload("Approver").
		Where("scope = ? AND scope_id = ?", scope, scopeID).
		Order("hierarchy ASC").Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
