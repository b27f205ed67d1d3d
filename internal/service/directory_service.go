package service

import (
	"context"
	"fmt"
	"strings"

	"requestflow/internal/model"
	"requestflow/internal/repository"
)

type DepartmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type TeamRequest struct {
	Name string `json:"name" binding:"required"`
}

type TeamMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

type DepartmentResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TeamResponse struct {
	ID      uint              `json:"id"`
	Name    string            `json:"name"`
	Members []model.PersonRef `json:"members"`
}

// DirectoryService manages departments, teams and team membership
type DirectoryService interface {
	ListDepartments(ctx context.Context) ([]DepartmentResponse, error)
	CreateDepartment(ctx context.Context, req DepartmentRequest) (*DepartmentResponse, error)
	UpdateDepartment(ctx context.Context, id uint, req DepartmentRequest) (*DepartmentResponse, error)
	DeleteDepartment(ctx context.Context, id uint) error

	ListTeams(ctx context.Context) ([]TeamResponse, error)
	GetTeam(ctx context.Context, id uint) (*TeamResponse, error)
	CreateTeam(ctx context.Context, req TeamRequest) (*TeamResponse, error)
	UpdateTeam(ctx context.Context, id uint, req TeamRequest) (*TeamResponse, error)
	DeleteTeam(ctx context.Context, id uint) error
	// AddMember moves the user into the team; a user belongs to at most one team.
	AddMember(ctx context.Context, teamID, userID uint) (*TeamResponse, error)
	RemoveMember(ctx context.Context, teamID, userID uint) (*TeamResponse, error)
}

type directoryService struct {
	departments repository.DepartmentRepository
	teams       repository.TeamRepository
	users       repository.UserRepository
}

func NewDirectoryService(departments repository.DepartmentRepository, teams repository.TeamRepository, users repository.UserRepository) DirectoryService {
	return &directoryService{departments: departments, teams: teams, users: users}
}

func (s *directoryService) ListDepartments(ctx context.Context) ([]DepartmentResponse, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, storeErr("failed to list departments", err)
	}
	res := make([]DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		res = append(res, toDepartmentResponse(d))
	}
	return res, nil
}

func (s *directoryService) CreateDepartment(ctx context.Context, req DepartmentRequest) (*DepartmentResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("department name is required")
	}
	dept := &model.Department{Name: name, Description: req.Description}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, storeErr("failed to create department", err)
	}
	res := toDepartmentResponse(*dept)
	return &res, nil
}

func (s *directoryService) UpdateDepartment(ctx context.Context, id uint, req DepartmentRequest) (*DepartmentResponse, error) {
	dept, err := s.departments.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("department not found", err)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		dept.Name = name
	}
	dept.Description = req.Description
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, storeErr("failed to update department", err)
	}
	res := toDepartmentResponse(*dept)
	return &res, nil
}

func (s *directoryService) DeleteDepartment(ctx context.Context, id uint) error {
	if _, err := s.departments.FindByID(ctx, id); err != nil {
		return storeErr("department not found", err)
	}
	return storeErr("failed to delete department", s.departments.Delete(ctx, id))
}

func (s *directoryService) ListTeams(ctx context.Context) ([]TeamResponse, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, storeErr("failed to list teams", err)
	}
	res := make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		res = append(res, toTeamResponse(t))
	}
	return res, nil
}

func (s *directoryService) GetTeam(ctx context.Context, id uint) (*TeamResponse, error) {
	team, err := s.teams.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("team not found", err)
	}
	res := toTeamResponse(*team)
	return &res, nil
}

func (s *directoryService) CreateTeam(ctx context.Context, req TeamRequest) (*TeamResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("team name is required")
	}
	team := &model.Team{Name: name}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, storeErr("failed to create team", err)
	}
	return s.GetTeam(ctx, team.ID)
}

func (s *directoryService) UpdateTeam(ctx context.Context, id uint, req TeamRequest) (*TeamResponse, error) {
	team, err := s.teams.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("team not found", err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("team name is required")
	}
	team.Name = name
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, storeErr("failed to update team", err)
	}
	return s.GetTeam(ctx, id)
}

func (s *directoryService) DeleteTeam(ctx context.Context, id uint) error {
	if _, err := s.teams.FindByID(ctx, id); err != nil {
		return storeErr("team not found", err)
	}
	return storeErr("failed to delete team", s.teams.Delete(ctx, id))
}

func (s *directoryService) AddMember(ctx context.Context, teamID, userID uint) (*TeamResponse, error) {
	if _, err := s.teams.FindByID(ctx, teamID); err != nil {
		return nil, storeErr("team not found", err)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, storeErr("user not found", err)
	}
	if err := s.teams.AssignMember(ctx, teamID, userID); err != nil {
		return nil, storeErr("failed to add team member", err)
	}
	return s.GetTeam(ctx, teamID)
}

func (s *directoryService) RemoveMember(ctx context.Context, teamID, userID uint) (*TeamResponse, error) {
	current, err := s.teams.FindTeamIDForUser(ctx, userID)
	if err != nil || current != teamID {
		return nil, fmt.Errorf("user %d is not a member of team %d: %w", userID, teamID, ErrNotFound)
	}
	if err := s.teams.RemoveMember(ctx, teamID, userID); err != nil {
		return nil, storeErr("failed to remove team member", err)
	}
	return s.GetTeam(ctx, teamID)
}

func toDepartmentResponse(d model.Department) DepartmentResponse {
	return DepartmentResponse{ID: d.ID, Name: d.Name, Description: d.Description}
}

func toTeamResponse(t model.Team) TeamResponse {
	res := TeamResponse{ID: t.ID, Name: t.Name, Members: make([]model.PersonRef, 0, len(t.Members))}
	for _, m := range t.Members {
		res.Members = append(res.Members, m.User.Ref(m.UserID))
	}
	return res
}
