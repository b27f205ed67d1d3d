package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"requestflow/internal/model"
	"requestflow/internal/repository"

	"go.uber.org/zap"
)

// --- DTOs ---

type DecisionRequest struct {
	RequestID uint   `json:"request_id" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=Approved Rejected"`
	Comments  string `json:"comments"`
}

type ReplaceApproverRequest struct {
	ApproverID uint `json:"approver_id" binding:"required"`
}

// DecisionInput carries one approver's verdict on one approval row
type DecisionInput struct {
	ApprovalID uint
	RequestID  uint
	ApproverID uint
	Status     string
	Comments   string
	DecidedAt  time.Time
}

type ApprovalResponse struct {
	ID            uint            `json:"id"`
	RequestID     uint            `json:"request_id"`
	Approver      model.PersonRef `json:"approver"`
	Role          string          `json:"role"`
	Hierarchy     int             `json:"hierarchy"`
	Status        string          `json:"status"`
	Comments      string          `json:"comments"`
	ApprovedDate  *string         `json:"approved_date"`
	RequestStatus string          `json:"request_status,omitempty"`
}

// --- Interface ---

// WorkflowService is the approval engine of one domain. It derives a request's
// status from the decisions recorded on its approval chain.
type WorkflowService interface {
	Domain() model.Domain
	// BuildChain replaces the request's chain with one Pending approval per roster entry.
	BuildChain(ctx context.Context, requestID uint, roster []model.RosterEntry) ([]model.Approval, error)
	RecordDecision(ctx context.Context, in DecisionInput) (*ApprovalResponse, error)
	// PendingApprovalsFor lists the approvals where it is the person's turn now.
	PendingApprovalsFor(ctx context.Context, personID uint) ([]ApprovalResponse, error)
	IsCurrentTurn(ctx context.Context, approvalID uint) (bool, error)
	ReplaceApprover(ctx context.Context, actorID, approvalID, newApproverID uint) (*ApprovalResponse, error)
	ChainFor(ctx context.Context, requestID uint) ([]ApprovalResponse, error)
	DeleteChain(ctx context.Context, requestID uint) error
}

type workflowService struct {
	domain    model.Domain
	approvals repository.ApprovalRepository
	requests  repository.RequestStateRepository
	users     repository.UserRepository
	tx        repository.TransactionManager
	audit     auditRecorder
	events    EventPublisher
	logger    *zap.Logger
}

func NewWorkflowService(
	domain model.Domain,
	approvals repository.ApprovalRepository,
	requests repository.RequestStateRepository,
	users repository.UserRepository,
	auditRepo repository.AuditRepository,
	tx repository.TransactionManager,
	events EventPublisher,
	logger *zap.Logger,
) WorkflowService {
	return &workflowService{
		domain:    domain,
		approvals: approvals,
		requests:  requests,
		users:     users,
		tx:        tx,
		audit:     auditRecorder{repo: auditRepo},
		events:    publisherOrNop(events),
		logger:    logger.With(zap.String("domain", string(domain))),
	}
}

// --- Implementation ---

func (s *workflowService) Domain() model.Domain {
	return s.domain
}

func (s *workflowService) BuildChain(ctx context.Context, requestID uint, roster []model.RosterEntry) ([]model.Approval, error) {
	if len(roster) == 0 {
		return nil, validationErr("no approvers are configured for this request")
	}

	entries := append([]model.RosterEntry(nil), roster...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Hierarchy != entries[j].Hierarchy {
			return entries[i].Hierarchy < entries[j].Hierarchy
		}
		return entries[i].ID < entries[j].ID
	})

	chain := make([]model.Approval, 0, len(entries))
	for i, e := range entries {
		if i > 0 && entries[i-1].Hierarchy == e.Hierarchy {
			return nil, validationErr("roster has two approvers at hierarchy %d", e.Hierarchy)
		}
		chain = append(chain, model.Approval{
			RequestID:  requestID,
			ApproverID: e.ApproverID,
			Role:       e.Role,
			Hierarchy:  e.Hierarchy,
			Status:     model.ApprovalStatusPending,
			UpdatedAt:  time.Now(),
		})
	}

	if err := s.approvals.ReplaceChain(ctx, requestID, chain); err != nil {
		s.logger.Error("Failed to build approval chain", zap.Uint("request_id", requestID), zap.Error(err))
		return nil, storeErr("failed to build approval chain", err)
	}
	return chain, nil
}

func (s *workflowService) RecordDecision(ctx context.Context, in DecisionInput) (*ApprovalResponse, error) {
	if in.Status != model.ApprovalStatusApproved && in.Status != model.ApprovalStatusRejected {
		return nil, validationErr("decision must be %s or %s", model.ApprovalStatusApproved, model.ApprovalStatusRejected)
	}
	if in.DecidedAt.IsZero() {
		in.DecidedAt = time.Now()
	}

	var approval *model.Approval
	var newStatus string
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		approval, err = s.approvals.FindForDecision(txCtx, in.ApprovalID, in.RequestID, in.ApproverID)
		if err != nil {
			return storeErr("approval not found", err)
		}

		state, err := s.requests.FindState(txCtx, in.RequestID)
		if err != nil {
			return storeErr("request not found", err)
		}
		if model.IsTerminalRequestStatus(state.Status) {
			return fmt.Errorf("%w: request is %s", ErrRequestClosed, state.Status)
		}
		if state.Status != model.RequestStatusInProgress {
			return fmt.Errorf("%w: request is %s", ErrInvalidTransition, state.Status)
		}

		decidedAt := in.DecidedAt
		approval.Status = in.Status
		approval.Comments = in.Comments
		approval.ApprovedDate = &decidedAt
		if err := s.approvals.Update(txCtx, approval); err != nil {
			return storeErr("failed to update approval", err)
		}

		newStatus, err = s.statusAfter(txCtx, approval)
		if err != nil {
			return err
		}
		if err := s.requests.UpdateStatus(txCtx, in.RequestID, newStatus, state.Version); err != nil {
			return storeErr("failed to update request status", err)
		}

		action := model.ActionApproveRequest
		if in.Status == model.ApprovalStatusRejected {
			action = model.ActionRejectRequest
		}
		return s.audit.record(txCtx, in.ApproverID, s.domain, action, in.RequestID, approval.Role, map[string]interface{}{
			"approval_id":    approval.ID,
			"hierarchy":      approval.Hierarchy,
			"comments":       in.Comments,
			"request_status": newStatus,
		})
	})
	if err != nil {
		s.logger.Error("Failed to record decision",
			zap.Uint("request_id", in.RequestID),
			zap.Uint("approval_id", in.ApprovalID),
			zap.Error(err))
		return nil, err
	}

	if reloaded, err := s.approvals.FindByID(ctx, approval.ID); err == nil {
		approval = reloaded
	}
	s.notifyDecision(ctx, approval, newStatus)

	res := toApprovalResponse(*approval)
	res.RequestStatus = newStatus
	return &res, nil
}

// statusAfter evaluates the request status against the approval just decided,
// without rescanning the rest of the chain.
func (s *workflowService) statusAfter(ctx context.Context, decided *model.Approval) (string, error) {
	if decided.Status == model.ApprovalStatusRejected {
		return model.RequestStatusRejected, nil
	}
	max, err := s.approvals.MaxHierarchy(ctx, decided.RequestID)
	if err != nil {
		return "", storeErr("failed to read approval chain", err)
	}
	if decided.Hierarchy == max {
		return model.RequestStatusApproved, nil
	}
	return model.RequestStatusInProgress, nil
}

func (s *workflowService) notifyDecision(ctx context.Context, decided *model.Approval, requestStatus string) {
	state, err := s.requests.FindState(ctx, decided.RequestID)
	if err == nil {
		s.events.Publish(model.Event{
			Type:      model.EventStatusChanged,
			Domain:    s.domain,
			RequestID: decided.RequestID,
			UserID:    state.RequesterID,
			Payload:   map[string]interface{}{"status": requestStatus, "approval_id": decided.ID},
		})
	}
	if requestStatus != model.RequestStatusInProgress {
		return
	}

	chain, err := s.approvals.ListByRequest(ctx, decided.RequestID)
	if err != nil {
		s.logger.Warn("Failed to load chain for turn notification", zap.Uint("request_id", decided.RequestID), zap.Error(err))
		return
	}
	if next := currentTurn(chain); next != nil {
		s.events.Publish(model.Event{
			Type:      model.EventApprovalTurn,
			Domain:    s.domain,
			RequestID: next.RequestID,
			UserID:    next.ApproverID,
			Payload:   toApprovalResponse(*next),
		})
	}
}

func (s *workflowService) PendingApprovalsFor(ctx context.Context, personID uint) ([]ApprovalResponse, error) {
	candidates, err := s.approvals.ListPendingByApprover(ctx, personID)
	if err != nil {
		s.logger.Error("Failed to list pending approvals", zap.Uint("approver_id", personID), zap.Error(err))
		return nil, storeErr("failed to list pending approvals", err)
	}

	chains := make(map[uint][]model.Approval)
	result := make([]ApprovalResponse, 0, len(candidates))
	for _, c := range candidates {
		chain, ok := chains[c.RequestID]
		if !ok {
			chain, err = s.approvals.ListByRequest(ctx, c.RequestID)
			if err != nil {
				return nil, storeErr("failed to load approval chain", err)
			}
			chains[c.RequestID] = chain
		}
		if isTurnOf(chain, c.ID) {
			result = append(result, toApprovalResponse(c))
		}
	}
	return result, nil
}

func (s *workflowService) IsCurrentTurn(ctx context.Context, approvalID uint) (bool, error) {
	approval, err := s.approvals.FindByID(ctx, approvalID)
	if err != nil {
		return false, storeErr("approval not found", err)
	}
	if approval.Status != model.ApprovalStatusPending {
		return false, nil
	}
	chain, err := s.approvals.ListByRequest(ctx, approval.RequestID)
	if err != nil {
		return false, storeErr("failed to load approval chain", err)
	}
	return isTurnOf(chain, approval.ID), nil
}

func (s *workflowService) ReplaceApprover(ctx context.Context, actorID, approvalID, newApproverID uint) (*ApprovalResponse, error) {
	if _, err := s.users.GetByID(ctx, newApproverID); err != nil {
		return nil, storeErr("approver not found", err)
	}

	var approval *model.Approval
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.approvals.FindByID(txCtx, approvalID)
		if err != nil {
			return storeErr("approval not found", err)
		}
		if err := s.approvals.UpdateApprover(txCtx, approvalID, newApproverID); err != nil {
			return storeErr("failed to replace approver", err)
		}
		if err := s.audit.record(txCtx, actorID, s.domain, model.ActionReplaceApprover, current.RequestID, current.Role, map[string]interface{}{
			"approval_id":  approvalID,
			"old_approver": current.ApproverID,
			"new_approver": newApproverID,
		}); err != nil {
			return err
		}
		approval, err = s.approvals.FindByID(txCtx, approvalID)
		return storeErr("approval not found", err)
	})
	if err != nil {
		s.logger.Error("Failed to replace approver", zap.Uint("approval_id", approvalID), zap.Error(err))
		return nil, err
	}

	if turn, err := s.IsCurrentTurn(ctx, approvalID); err == nil && turn {
		s.events.Publish(model.Event{
			Type:      model.EventApprovalTurn,
			Domain:    s.domain,
			RequestID: approval.RequestID,
			UserID:    newApproverID,
			Payload:   toApprovalResponse(*approval),
		})
	}

	res := toApprovalResponse(*approval)
	return &res, nil
}

func (s *workflowService) ChainFor(ctx context.Context, requestID uint) ([]ApprovalResponse, error) {
	chain, err := s.approvals.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr("failed to load approval chain", err)
	}
	res := make([]ApprovalResponse, 0, len(chain))
	for _, a := range chain {
		res = append(res, toApprovalResponse(a))
	}
	return res, nil
}

func (s *workflowService) DeleteChain(ctx context.Context, requestID uint) error {
	return storeErr("failed to delete approval chain", s.approvals.DeleteByRequest(ctx, requestID))
}

// isTurnOf reports whether the approval with id is Pending and either first in
// the (hierarchy, id) ordered chain or directly preceded by an Approved entry.
func isTurnOf(chain []model.Approval, id uint) bool {
	for i, a := range chain {
		if a.ID != id {
			continue
		}
		if a.Status != model.ApprovalStatusPending {
			return false
		}
		return i == 0 || chain[i-1].Status == model.ApprovalStatusApproved
	}
	return false
}

// currentTurn returns the approval whose turn it is, or nil.
func currentTurn(chain []model.Approval) *model.Approval {
	for i := range chain {
		if isTurnOf(chain, chain[i].ID) {
			return &chain[i]
		}
	}
	return nil
}

func toApprovalResponse(a model.Approval) ApprovalResponse {
	res := ApprovalResponse{
		ID:        a.ID,
		RequestID: a.RequestID,
		Approver:  a.Approver.Ref(a.ApproverID),
		Role:      a.Role,
		Hierarchy: a.Hierarchy,
		Status:    a.Status,
		Comments:  a.Comments,
	}
	if a.ApprovedDate != nil {
		d := a.ApprovedDate.Format(time.RFC3339)
		res.ApprovedDate = &d
	}
	return res
}
