package service

import (
	"context"
	"testing"

	"requestflow/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchase_CreateDraftComputesTotal(t *testing.T) {
	e := newTestEnv(t)
	requester := e.createUser(t, "requester", model.RoleStaff)
	dept := e.createDepartment(t, "Facilities")

	res, err := e.purchase.Create(context.Background(), Actor{UserID: requester.ID}, purchaseInput(dept.ID, false), nil)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusDraft, res.Status)
	assert.Equal(t, "12.50", res.UnitCost)
	assert.Equal(t, "37.50", res.TotalCost)
	assert.Equal(t, requester.ID, res.Requester.ID)
	assert.Equal(t, requester.ID, res.CreatedBy.ID)
	assert.Equal(t, 1, res.Version)
	assert.Empty(t, res.Approvals)
}

func TestPurchase_CreateValidation(t *testing.T) {
	e := newTestEnv(t)
	requester := e.createUser(t, "requester", model.RoleStaff)
	dept := e.createDepartment(t, "Facilities")
	actor := Actor{UserID: requester.ID}

	tests := []struct {
		name   string
		mutate func(*PurchaseRequestInput)
		want   error
	}{
		{"missing title", func(in *PurchaseRequestInput) { in.Title = "  " }, ErrValidation},
		{"unknown category", func(in *PurchaseRequestInput) { in.Category = "furniture" }, ErrValidation},
		{"negative cost", func(in *PurchaseRequestInput) { in.UnitCost = decimal.NewFromInt(-1) }, ErrValidation},
		{"unknown department", func(in *PurchaseRequestInput) { in.DepartmentID = dept.ID + 50 }, ErrNotFound},
		{"unknown requester", func(in *PurchaseRequestInput) { in.RequesterID = requester.ID + 50 }, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := purchaseInput(dept.ID, false)
			tt.mutate(&in)
			_, err := e.purchase.Create(context.Background(), actor, in, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPurchase_UpdateRules(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	actor := Actor{UserID: f.requester.ID, Role: model.RoleStaff}

	draft, err := e.purchase.Create(ctx, actor, purchaseInput(f.dept.ID, false), nil)
	require.NoError(t, err)

	t.Run("only the owner edits", func(t *testing.T) {
		_, err := e.purchase.Update(ctx, Actor{UserID: f.a.ID, Role: model.RoleManager}, draft.ID, purchaseInput(f.dept.ID, false), nil)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("stale version", func(t *testing.T) {
		in := purchaseInput(f.dept.ID, false)
		in.Version = draft.Version + 3
		_, err := e.purchase.Update(ctx, actor, draft.ID, in, nil)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("draft edit bumps version", func(t *testing.T) {
		in := purchaseInput(f.dept.ID, false)
		in.Title = "Monitors"
		in.Quantity = 2
		in.Version = draft.Version
		res, err := e.purchase.Update(ctx, actor, draft.ID, in, nil)
		require.NoError(t, err)
		assert.Equal(t, "Monitors", res.Title)
		assert.Equal(t, "25.00", res.TotalCost)
		assert.Equal(t, draft.Version+1, res.Version)
	})

	submitted, err := e.purchase.Update(ctx, actor, draft.ID, purchaseInput(f.dept.ID, true), nil)
	require.NoError(t, err)
	require.Equal(t, model.RequestStatusInProgress, submitted.Status)

	t.Run("in progress requests are locked", func(t *testing.T) {
		_, err := e.purchase.Update(ctx, actor, draft.ID, purchaseInput(f.dept.ID, false), nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = e.purchase.Update(ctx, actor, draft.ID, purchaseInput(f.dept.ID, true), nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("rejected requests cannot return to draft", func(t *testing.T) {
		_, err := e.purchaseFlow.RecordDecision(ctx, decide(submitted.Approvals[0], model.ApprovalStatusRejected))
		require.NoError(t, err)
		_, err = e.purchase.Update(ctx, actor, draft.ID, purchaseInput(f.dept.ID, false), nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestPurchase_DeletePermissions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	owner := Actor{UserID: f.requester.ID, Role: model.RoleStaff}

	draft, err := e.purchase.Create(ctx, owner, purchaseInput(f.dept.ID, false), nil)
	require.NoError(t, err)
	submitted := e.submitPurchase(t, f)

	assert.ErrorIs(t, e.purchase.Delete(ctx, Actor{UserID: f.a.ID, Role: model.RoleManager}, draft.ID), ErrForbidden)
	assert.ErrorIs(t, e.purchase.Delete(ctx, owner, submitted.ID), ErrInvalidTransition)
	assert.ErrorIs(t, e.purchase.Delete(ctx, owner, submitted.ID+100), ErrNotFound)

	require.NoError(t, e.purchase.Delete(ctx, owner, draft.ID))
	_, err = e.purchase.Get(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurchase_AdminDeleteCascades(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	admin := e.createUser(t, "admin", model.RoleAdmin)

	res, err := e.purchase.Create(ctx, Actor{UserID: f.requester.ID}, purchaseInput(f.dept.ID, true), []FileUpload{
		{Name: "quote.pdf", Content: []byte("quote")},
	})
	require.NoError(t, err)
	require.Len(t, res.Attachments, 1)

	_, err = e.discussions.RaiseQuestion(ctx, model.DomainPurchase, res.ID, "Which vendor?", f.a.ID, f.requester.ID)
	require.NoError(t, err)

	require.NoError(t, e.purchase.Delete(ctx, Actor{UserID: admin.ID, Role: model.RoleAdmin}, res.ID))

	chain, err := e.purchaseApprovals.ListByRequest(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)

	attachments, err := e.purchaseAttachments.ListByRequest(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, attachments)

	files, err := e.storage.List(ctx, model.DomainPurchase.AttachmentLibrary())
	require.NoError(t, err)
	assert.Empty(t, files)

	discussions, err := e.discussions.ByRequest(ctx, model.DomainPurchase, res.ID)
	require.NoError(t, err)
	assert.Len(t, discussions, 1, "discussions outlive the request")

	pending, err := e.purchaseFlow.PendingApprovalsFor(ctx, f.a.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPurchase_Attachments(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	res := e.submitPurchase(t, f)

	_, err := e.purchase.AddAttachments(ctx, Actor{UserID: f.a.ID, Role: model.RoleManager}, res.ID, []FileUpload{{Name: "x.txt", Content: []byte("x")}})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.purchase.AddAttachments(ctx, Actor{UserID: f.requester.ID}, res.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)

	added, err := e.purchase.AddAttachments(ctx, Actor{UserID: f.requester.ID}, res.ID, []FileUpload{
		{Name: "receipt.png", ContentType: "image/png", Content: []byte("png")},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, model.AttachmentFileName(res.ID, "receipt.png"), added[0].FileName)

	t.Run("re-uploading the same name replaces the file", func(t *testing.T) {
		again, err := e.purchase.AddAttachments(ctx, Actor{UserID: f.requester.ID}, res.ID, []FileUpload{
			{Name: "receipt.png", ContentType: "application/octet-stream", Content: []byte("png v2, larger")},
		})
		require.NoError(t, err)
		assert.Equal(t, added[0].ID, again[0].ID)
		assert.EqualValues(t, len("png v2, larger"), again[0].Size)

		meta, content, err := e.purchase.OpenAttachment(ctx, res.ID, added[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("png v2, larger"), content)
		assert.EqualValues(t, len("png v2, larger"), meta.Size)
		assert.Equal(t, "application/octet-stream", meta.ContentType)

		listed, err := e.purchase.ListAttachments(ctx, res.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.EqualValues(t, len("png v2, larger"), listed[0].Size)
		assert.Equal(t, "application/octet-stream", listed[0].ContentType)
		assert.Equal(t, added[0].Path, listed[0].Path)
	})

	t.Run("attachment must belong to the request", func(t *testing.T) {
		_, _, err := e.purchase.OpenAttachment(ctx, res.ID+1, added[0].ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	list, err := e.purchase.ListAttachments(ctx, res.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPurchase_ListFilters(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	other := e.createDepartment(t, "Sales")
	actor := Actor{UserID: f.requester.ID}

	_, err := e.purchase.Create(ctx, actor, purchaseInput(f.dept.ID, false), nil)
	require.NoError(t, err)
	_, err = e.purchase.Create(ctx, actor, purchaseInput(other.ID, false), nil)
	require.NoError(t, err)
	e.submitPurchase(t, f)

	_, total, err := e.purchase.List(ctx, RequestListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	items, total, err := e.purchase.List(ctx, RequestListQuery{Status: model.RequestStatusDraft})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, item := range items {
		assert.Equal(t, model.RequestStatusDraft, item.Status)
	}

	items, total, err = e.purchase.List(ctx, RequestListQuery{DepartmentID: other.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, other.ID, items[0].Department.ID)

	items, total, err = e.purchase.List(ctx, RequestListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 1)
}
