package service

import (
	"context"
	"testing"
	"time"

	"requestflow/internal/model"
	"requestflow/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decide(approval ApprovalResponse, status string) DecisionInput {
	return DecisionInput{
		ApprovalID: approval.ID,
		RequestID:  approval.RequestID,
		ApproverID: approval.Approver.ID,
		Status:     status,
		Comments:   "ok",
		DecidedAt:  time.Now(),
	}
}

func TestWorkflow_SequentialApproval(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)

	req := e.submitPurchase(t, f)
	assert.Equal(t, model.RequestStatusInProgress, req.Status)
	first, second := req.Approvals[0], req.Approvals[1]
	assert.Equal(t, f.a.ID, first.Approver.ID)
	assert.Equal(t, f.b.ID, second.Approver.ID)
	assert.Equal(t, model.ApprovalStatusPending, first.Status)
	assert.Equal(t, model.ApprovalStatusPending, second.Status)

	pendingB, err := e.purchaseFlow.PendingApprovalsFor(ctx, f.b.ID)
	require.NoError(t, err)
	assert.Empty(t, pendingB, "B must wait for A")

	pendingA, err := e.purchaseFlow.PendingApprovalsFor(ctx, f.a.ID)
	require.NoError(t, err)
	require.Len(t, pendingA, 1)
	assert.Equal(t, first.ID, pendingA[0].ID)

	res, err := e.purchaseFlow.RecordDecision(ctx, decide(first, model.ApprovalStatusApproved))
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalStatusApproved, res.Status)
	assert.Equal(t, model.RequestStatusInProgress, res.RequestStatus)
	assert.NotNil(t, res.ApprovedDate)

	got, err := e.purchase.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusInProgress, got.Status)

	pendingB, err = e.purchaseFlow.PendingApprovalsFor(ctx, f.b.ID)
	require.NoError(t, err)
	require.Len(t, pendingB, 1)
	assert.Equal(t, second.ID, pendingB[0].ID)

	res, err = e.purchaseFlow.RecordDecision(ctx, decide(second, model.ApprovalStatusApproved))
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, res.RequestStatus)

	got, err = e.purchase.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, got.Status)

	t.Run("closed request cannot change", func(t *testing.T) {
		_, err := e.purchaseFlow.RecordDecision(ctx, decide(second, model.ApprovalStatusRejected))
		assert.ErrorIs(t, err, ErrRequestClosed)

		got, err := e.purchase.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusApproved, got.Status)
	})

	t.Run("events", func(t *testing.T) {
		turns := e.events.ofType(model.EventApprovalTurn)
		require.Len(t, turns, 2)
		assert.Equal(t, f.a.ID, turns[0].UserID)
		assert.Equal(t, f.b.ID, turns[1].UserID)
		assert.Len(t, e.events.ofType(model.EventStatusChanged), 2)
	})
}

func TestWorkflow_RejectStopsChain(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	req := e.submitPurchase(t, f)

	res, err := e.purchaseFlow.RecordDecision(ctx, decide(req.Approvals[0], model.ApprovalStatusRejected))
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, res.RequestStatus)

	chain, err := e.purchaseFlow.ChainFor(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, model.ApprovalStatusRejected, chain[0].Status)
	assert.Equal(t, model.ApprovalStatusPending, chain[1].Status, "later approvals are left untouched")

	pendingB, err := e.purchaseFlow.PendingApprovalsFor(ctx, f.b.ID)
	require.NoError(t, err)
	assert.Empty(t, pendingB)
}

func TestWorkflow_RejectAtLastStep(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	req := e.submitPurchase(t, f)

	_, err := e.purchaseFlow.RecordDecision(ctx, decide(req.Approvals[0], model.ApprovalStatusApproved))
	require.NoError(t, err)
	res, err := e.purchaseFlow.RecordDecision(ctx, decide(req.Approvals[1], model.ApprovalStatusRejected))
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, res.RequestStatus)
}

func TestWorkflow_RecordDecisionValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	req := e.submitPurchase(t, f)
	first := req.Approvals[0]

	tests := []struct {
		name    string
		mutate  func(in *DecisionInput)
		wantErr error
	}{
		{name: "wrong approver", mutate: func(in *DecisionInput) { in.ApproverID = f.b.ID }, wantErr: ErrNotFound},
		{name: "wrong request", mutate: func(in *DecisionInput) { in.RequestID = req.ID + 100 }, wantErr: ErrNotFound},
		{name: "unknown approval", mutate: func(in *DecisionInput) { in.ApprovalID = 9999 }, wantErr: ErrNotFound},
		{name: "pending is not a decision", mutate: func(in *DecisionInput) { in.Status = model.ApprovalStatusPending }, wantErr: ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decide(first, model.ApprovalStatusApproved)
			tt.mutate(&in)
			_, err := e.purchaseFlow.RecordDecision(ctx, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	chain, err := e.purchaseFlow.ChainFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalStatusPending, chain[0].Status)
}

func TestWorkflow_ReplaceApprover(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	c := e.createUser(t, "approver-c", model.RoleManager)
	admin := e.createUser(t, "admin", model.RoleAdmin)
	req := e.submitPurchase(t, f)
	second := req.Approvals[1]

	res, err := e.purchaseFlow.ReplaceApprover(ctx, admin.ID, second.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, res.Approver.ID)
	assert.Equal(t, second.Status, res.Status)
	assert.Equal(t, second.Hierarchy, res.Hierarchy)
	assert.Equal(t, second.Role, res.Role)

	pendingC, err := e.purchaseFlow.PendingApprovalsFor(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, pendingC, "C is not eligible before A decides")

	_, err = e.purchaseFlow.RecordDecision(ctx, decide(req.Approvals[0], model.ApprovalStatusApproved))
	require.NoError(t, err)

	pendingC, err = e.purchaseFlow.PendingApprovalsFor(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, pendingC, 1)
	assert.Equal(t, second.ID, pendingC[0].ID)

	t.Run("unknown approver", func(t *testing.T) {
		_, err := e.purchaseFlow.ReplaceApprover(ctx, admin.ID, second.ID, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("unknown approval", func(t *testing.T) {
		_, err := e.purchaseFlow.ReplaceApprover(ctx, admin.ID, 9999, c.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestWorkflow_IsCurrentTurn(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	req := e.submitPurchase(t, f)

	turn, err := e.purchaseFlow.IsCurrentTurn(ctx, req.Approvals[0].ID)
	require.NoError(t, err)
	assert.True(t, turn)

	turn, err = e.purchaseFlow.IsCurrentTurn(ctx, req.Approvals[1].ID)
	require.NoError(t, err)
	assert.False(t, turn)

	_, err = e.purchaseFlow.IsCurrentTurn(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkflow_BuildChain(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.createUser(t, "a", model.RoleManager)
	b := e.createUser(t, "b", model.RoleManager)
	c := e.createUser(t, "c", model.RoleManager)
	const requestID = 42

	t.Run("orders by hierarchy then id", func(t *testing.T) {
		chain, err := e.purchaseFlow.BuildChain(ctx, requestID, []model.RosterEntry{
			{ID: 3, ApproverID: c.ID, Hierarchy: 30},
			{ID: 1, ApproverID: a.ID, Hierarchy: 10},
			{ID: 2, ApproverID: b.ID, Hierarchy: 20},
		})
		require.NoError(t, err)
		require.Len(t, chain, 3)
		assert.Equal(t, []uint{a.ID, b.ID, c.ID}, []uint{chain[0].ApproverID, chain[1].ApproverID, chain[2].ApproverID})
	})

	t.Run("rebuilding is idempotent and drops stale ranks", func(t *testing.T) {
		roster := []model.RosterEntry{{ID: 1, ApproverID: a.ID, Hierarchy: 10}, {ID: 2, ApproverID: c.ID, Hierarchy: 20}}
		for i := 0; i < 2; i++ {
			_, err := e.purchaseFlow.BuildChain(ctx, requestID, roster)
			require.NoError(t, err)
		}
		stored, err := e.purchaseApprovals.ListByRequest(ctx, requestID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, c.ID, stored[1].ApproverID)
		assert.Equal(t, model.ApprovalStatusPending, stored[1].Status)
	})

	t.Run("duplicate hierarchy", func(t *testing.T) {
		_, err := e.purchaseFlow.BuildChain(ctx, requestID, []model.RosterEntry{
			{ID: 1, ApproverID: a.ID, Hierarchy: 1},
			{ID: 2, ApproverID: b.ID, Hierarchy: 1},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("empty roster", func(t *testing.T) {
		_, err := e.purchaseFlow.BuildChain(ctx, requestID, nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestIsTurnOf(t *testing.T) {
	chain := []model.Approval{
		{ID: 1, Hierarchy: 1, Status: model.ApprovalStatusApproved},
		{ID: 2, Hierarchy: 2, Status: model.ApprovalStatusPending},
		{ID: 3, Hierarchy: 3, Status: model.ApprovalStatusPending},
	}
	assert.False(t, isTurnOf(chain, 1), "decided approvals are never due")
	assert.True(t, isTurnOf(chain, 2))
	assert.False(t, isTurnOf(chain, 3))
	assert.False(t, isTurnOf(chain, 4))

	chain[0].Status = model.ApprovalStatusRejected
	assert.False(t, isTurnOf(chain, 2))

	next := currentTurn([]model.Approval{{ID: 7, Status: model.ApprovalStatusPending}})
	require.NotNil(t, next)
	assert.Equal(t, uint(7), next.ID)
}

// staleStates simulates another writer bumping the request version between
// the read and the conditional status update.
type staleStates struct {
	repository.RequestStateRepository
}

func (staleStates) UpdateStatus(ctx context.Context, id uint, status string, expectedVersion int) error {
	return repository.ErrStaleVersion
}

func TestWorkflow_ConcurrentDecisionIsConflict(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	req := e.submitPurchase(t, f)

	states := staleStates{repository.NewRequestStateRepository(e.db, model.DomainPurchase)}
	flow := NewWorkflowService(model.DomainPurchase, e.purchaseApprovals, states, e.users, e.auditRepo, e.tx, nil, zap.NewNop())

	_, err := flow.RecordDecision(ctx, decide(req.Approvals[0], model.ApprovalStatusApproved))
	require.ErrorIs(t, err, ErrConflict)

	chain, err := flow.ChainFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalStatusPending, chain[0].Status, "approval update is rolled back with the status update")
}
