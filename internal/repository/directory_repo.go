package repository

import (
	"context"

	"requestflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	Update(ctx context.Context, dept *model.Department) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Department, error)
	List(ctx context.Context) ([]model.Department, error)
}

type departmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	return translate(GetDB(ctx, r.db).Create(dept).Error)
}

func (r *departmentRepository) Update(ctx context.Context, dept *model.Department) error {
	return translate(GetDB(ctx, r.db).Save(dept).Error)
}

func (r *departmentRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Department{}).Error
}

func (r *departmentRepository) FindByID(ctx context.Context, id uint) (*model.Department, error) {
	var dept model.Department
	if err := GetDB(ctx, r.db).First(&dept, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]model.Department, error) {
	var depts []model.Department
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&depts).Error; err != nil {
		return nil, err
	}
	return depts, nil
}

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Team, error)
	List(ctx context.Context) ([]model.Team, error)
	// AssignMember moves the user into the team, replacing any previous membership.
	AssignMember(ctx context.Context, teamID, userID uint) error
	RemoveMember(ctx context.Context, teamID, userID uint) error
	FindTeamIDForUser(ctx context.Context, userID uint) (uint, error)
}

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) Create(ctx context.Context, team *model.Team) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Create(team).Error)
}

func (r *teamRepository) Update(ctx context.Context, team *model.Team) error {
	return translate(GetDB(ctx, r.db).Omit(clause.Associations).Save(team).Error)
}

func (r *teamRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("team_id = ?", id).Delete(&model.TeamMember{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Team{}).Error
}

func (r *teamRepository) FindByID(ctx context.Context, id uint) (*model.Team, error) {
	var team model.Team
	if err := GetDB(ctx, r.db).Preload("Members.User").First(&team, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := GetDB(ctx, r.db).Preload("Members.User").Order("name ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepository) AssignMember(ctx context.Context, teamID, userID uint) error {
	member := model.TeamMember{TeamID: teamID, UserID: userID}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"team_id"}),
	}).Create(&member).Error
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, userID uint) error {
	return GetDB(ctx, r.db).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&model.TeamMember{}).Error
}

func (r *teamRepository) FindTeamIDForUser(ctx context.Context, userID uint) (uint, error) {
	var member model.TeamMember
	if err := GetDB(ctx, r.db).First(&member, "user_id = ?", userID).Error; err != nil {
		return 0, err
	}
	return member.TeamID, nil
}
