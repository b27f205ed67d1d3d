package service

import (
	"context"
	"fmt"
	"time"

	"requestflow/internal/model"
	"requestflow/internal/repository"

	"go.uber.org/zap"
)

type RosterEntryRequest struct {
	ApproverID uint   `json:"approver_id" binding:"required"`
	Role       string `json:"role"`
	Hierarchy  int    `json:"hierarchy" binding:"required,min=1"`
}

type RosterEntryResponse struct {
	ID        uint            `json:"id"`
	Scope     string          `json:"scope"`
	ScopeID   uint            `json:"scope_id"`
	Approver  model.PersonRef `json:"approver"`
	Role      string          `json:"role"`
	Hierarchy int             `json:"hierarchy"`
	UpdatedAt string          `json:"updated_at"`
}

// RosterService maintains the approver templates of departments and teams.
// Changes apply to requests submitted afterwards; live chains are not touched.
type RosterService interface {
	List(ctx context.Context, scope string, scopeID uint) ([]RosterEntryResponse, error)
	AddEntry(ctx context.Context, actor Actor, scope string, scopeID uint, req RosterEntryRequest) (*RosterEntryResponse, error)
	UpdateEntry(ctx context.Context, actor Actor, scope string, scopeID, entryID uint, req RosterEntryRequest) (*RosterEntryResponse, error)
	RemoveEntry(ctx context.Context, actor Actor, scope string, scopeID, entryID uint) error
}

type rosterService struct {
	repo        repository.RosterRepository
	departments repository.DepartmentRepository
	teams       repository.TeamRepository
	users       repository.UserRepository
	tx          repository.TransactionManager
	audit       auditRecorder
	logger      *zap.Logger
}

func NewRosterService(
	repo repository.RosterRepository,
	departments repository.DepartmentRepository,
	teams repository.TeamRepository,
	users repository.UserRepository,
	auditRepo repository.AuditRepository,
	tx repository.TransactionManager,
	logger *zap.Logger,
) RosterService {
	return &rosterService{
		repo:        repo,
		departments: departments,
		teams:       teams,
		users:       users,
		tx:          tx,
		audit:       auditRecorder{repo: auditRepo},
		logger:      logger,
	}
}

func (s *rosterService) checkScope(ctx context.Context, scope string, scopeID uint) error {
	switch scope {
	case model.RosterScopeDepartment:
		_, err := s.departments.FindByID(ctx, scopeID)
		return storeErr("department not found", err)
	case model.RosterScopeTeam:
		_, err := s.teams.FindByID(ctx, scopeID)
		return storeErr("team not found", err)
	}
	return validationErr("unknown roster scope %q", scope)
}

func (s *rosterService) List(ctx context.Context, scope string, scopeID uint) ([]RosterEntryResponse, error) {
	if err := s.checkScope(ctx, scope, scopeID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByScope(ctx, scope, scopeID)
	if err != nil {
		return nil, storeErr("failed to list roster", err)
	}
	res := make([]RosterEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toRosterResponse(e))
	}
	return res, nil
}

func (s *rosterService) AddEntry(ctx context.Context, actor Actor, scope string, scopeID uint, req RosterEntryRequest) (*RosterEntryResponse, error) {
	if err := s.validate(ctx, scope, scopeID, req); err != nil {
		return nil, err
	}
	entry := &model.RosterEntry{
		Scope:      scope,
		ScopeID:    scopeID,
		ApproverID: req.ApproverID,
		Role:       req.Role,
		Hierarchy:  req.Hierarchy,
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, entry); err != nil {
			return storeErr(fmt.Sprintf("hierarchy %d is already taken", req.Hierarchy), err)
		}
		return s.audit.record(txCtx, actor.UserID, "", model.ActionUpdateRoster, entry.ID, scope, map[string]interface{}{
			"op":        "add",
			"scope_id":  scopeID,
			"approver":  req.ApproverID,
			"hierarchy": req.Hierarchy,
		})
	})
	if err != nil {
		s.logger.Error("Failed to add roster entry", zap.String("scope", scope), zap.Uint("scope_id", scopeID), zap.Error(err))
		return nil, err
	}
	return s.reload(ctx, entry.ID)
}

func (s *rosterService) UpdateEntry(ctx context.Context, actor Actor, scope string, scopeID, entryID uint, req RosterEntryRequest) (*RosterEntryResponse, error) {
	if err := s.validate(ctx, scope, scopeID, req); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.findInScope(txCtx, scope, scopeID, entryID)
		if err != nil {
			return err
		}
		entry.ApproverID = req.ApproverID
		entry.Role = req.Role
		entry.Hierarchy = req.Hierarchy
		entry.Approver = nil
		entry.UpdatedAt = time.Now()
		if err := s.repo.Update(txCtx, entry); err != nil {
			return storeErr(fmt.Sprintf("hierarchy %d is already taken", req.Hierarchy), err)
		}
		return s.audit.record(txCtx, actor.UserID, "", model.ActionUpdateRoster, entry.ID, scope, map[string]interface{}{
			"op":        "update",
			"scope_id":  scopeID,
			"approver":  req.ApproverID,
			"hierarchy": req.Hierarchy,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, entryID)
}

func (s *rosterService) RemoveEntry(ctx context.Context, actor Actor, scope string, scopeID, entryID uint) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.findInScope(txCtx, scope, scopeID, entryID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, entry.ID); err != nil {
			return storeErr("failed to remove roster entry", err)
		}
		return s.audit.record(txCtx, actor.UserID, "", model.ActionUpdateRoster, entry.ID, scope, map[string]interface{}{
			"op":       "remove",
			"scope_id": scopeID,
		})
	})
}

func (s *rosterService) validate(ctx context.Context, scope string, scopeID uint, req RosterEntryRequest) error {
	if req.Hierarchy < 1 {
		return validationErr("hierarchy must be at least 1")
	}
	if err := s.checkScope(ctx, scope, scopeID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, req.ApproverID); err != nil {
		return storeErr("approver not found", err)
	}
	return nil
}

func (s *rosterService) findInScope(ctx context.Context, scope string, scopeID, entryID uint) (*model.RosterEntry, error) {
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		return nil, storeErr("roster entry not found", err)
	}
	if entry.Scope != scope || entry.ScopeID != scopeID {
		return nil, fmt.Errorf("roster entry not found: %w", ErrNotFound)
	}
	return entry, nil
}

func (s *rosterService) reload(ctx context.Context, id uint) (*RosterEntryResponse, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("roster entry not found", err)
	}
	res := toRosterResponse(*entry)
	return &res, nil
}

func toRosterResponse(e model.RosterEntry) RosterEntryResponse {
	return RosterEntryResponse{
		ID:        e.ID,
		Scope:     e.Scope,
		ScopeID:   e.ScopeID,
		Approver:  e.Approver.Ref(e.ApproverID),
		Role:      e.Role,
		Hierarchy: e.Hierarchy,
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}
}
