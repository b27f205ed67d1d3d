package service

import (
	"context"
	"testing"

	"requestflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoster_EntryLifecycle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := Actor{UserID: e.createUser(t, "admin", model.RoleAdmin).ID, Role: model.RoleAdmin}
	lead := e.createUser(t, "lead", model.RoleManager)
	finance := e.createUser(t, "finance", model.RoleManager)
	dept := e.createDepartment(t, "Engineering")

	second, err := e.rosters.AddEntry(ctx, admin, model.RosterScopeDepartment, dept.ID, RosterEntryRequest{ApproverID: finance.ID, Role: "Finance", Hierarchy: 2})
	require.NoError(t, err)
	first, err := e.rosters.AddEntry(ctx, admin, model.RosterScopeDepartment, dept.ID, RosterEntryRequest{ApproverID: lead.ID, Role: "Lead", Hierarchy: 1})
	require.NoError(t, err)
	assert.Equal(t, lead.ID, first.Approver.ID)

	list, err := e.rosters.List(ctx, model.RosterScopeDepartment, dept.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "ordered by hierarchy")
	assert.Equal(t, second.ID, list[1].ID)

	t.Run("duplicate hierarchy", func(t *testing.T) {
		_, err := e.rosters.AddEntry(ctx, admin, model.RosterScopeDepartment, dept.ID, RosterEntryRequest{ApproverID: finance.ID, Hierarchy: 1})
		assert.ErrorIs(t, err, ErrConflict)

		_, err = e.rosters.UpdateEntry(ctx, admin, model.RosterScopeDepartment, dept.ID, second.ID, RosterEntryRequest{ApproverID: finance.ID, Hierarchy: 1})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("update swaps approver", func(t *testing.T) {
		updated, err := e.rosters.UpdateEntry(ctx, admin, model.RosterScopeDepartment, dept.ID, second.ID, RosterEntryRequest{ApproverID: lead.ID, Role: "Deputy", Hierarchy: 3})
		require.NoError(t, err)
		assert.Equal(t, lead.ID, updated.Approver.ID)
		assert.Equal(t, 3, updated.Hierarchy)
		assert.Equal(t, "Deputy", updated.Role)
	})

	t.Run("entry from another scope", func(t *testing.T) {
		other := e.createDepartment(t, "Sales")
		err := e.rosters.RemoveEntry(ctx, admin, model.RosterScopeDepartment, other.ID, first.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		err = e.rosters.RemoveEntry(ctx, admin, model.RosterScopeTeam, dept.ID, first.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, e.rosters.RemoveEntry(ctx, admin, model.RosterScopeDepartment, dept.ID, first.ID))
	list, err = e.rosters.List(ctx, model.RosterScopeDepartment, dept.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	logs, _, err := e.auditRepo.List(ctx, "", 1, 50)
	require.NoError(t, err)
	assert.Len(t, logs, 4, "add, add, update, remove")
}

func TestRoster_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := Actor{UserID: 1, Role: model.RoleAdmin}
	approver := e.createUser(t, "approver", model.RoleManager)
	dept := e.createDepartment(t, "Engineering")

	tests := []struct {
		name    string
		scope   string
		scopeID uint
		req     RosterEntryRequest
		want    error
	}{
		{"zero hierarchy", model.RosterScopeDepartment, dept.ID, RosterEntryRequest{ApproverID: approver.ID}, ErrValidation},
		{"unknown scope", "region", dept.ID, RosterEntryRequest{ApproverID: approver.ID, Hierarchy: 1}, ErrValidation},
		{"missing department", model.RosterScopeDepartment, dept.ID + 9, RosterEntryRequest{ApproverID: approver.ID, Hierarchy: 1}, ErrNotFound},
		{"missing team", model.RosterScopeTeam, 77, RosterEntryRequest{ApproverID: approver.ID, Hierarchy: 1}, ErrNotFound},
		{"missing approver", model.RosterScopeDepartment, dept.ID, RosterEntryRequest{ApproverID: 999, Hierarchy: 1}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.rosters.AddEntry(ctx, admin, tt.scope, tt.scopeID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoster_ChangesDoNotTouchLiveChains(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	req := e.submitPurchase(t, f)

	c := e.createUser(t, "approver-c", model.RoleManager)
	_, err := e.rosters.AddEntry(ctx, Actor{Role: model.RoleAdmin}, model.RosterScopeDepartment, f.dept.ID, RosterEntryRequest{ApproverID: c.ID, Hierarchy: 3})
	require.NoError(t, err)

	chain, err := e.purchaseFlow.ChainFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}
