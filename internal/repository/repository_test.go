package repository

import (
	"context"
	"errors"
	"testing"

	"requestflow/internal/database"
	"requestflow/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(gormlogger.Silent))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func newPurchase(requesterID, deptID uint, status string) *model.PurchaseRequest {
	return &model.PurchaseRequest{
		Title:        "Chairs",
		RequesterID:  requesterID,
		CreatedByID:  requesterID,
		DepartmentID: deptID,
		Category:     model.PurchaseCategoryGoods,
		Quantity:     1,
		UnitCost:     decimal.NewFromInt(10),
		TotalCost:    decimal.NewFromInt(10),
		Status:       status,
		Version:      1,
	}
}

func TestParseField(t *testing.T) {
	f, err := ParseField("department_id")
	require.NoError(t, err)
	assert.Equal(t, FieldDepartmentID, f)

	_, err = ParseField("id; DROP TABLE users")
	assert.Error(t, err)
}

func TestRequestRepository_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPurchaseRequestRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newPurchase(1, 10, model.RequestStatusDraft)))
	require.NoError(t, repo.Create(ctx, newPurchase(1, 20, model.RequestStatusInProgress)))
	require.NoError(t, repo.Create(ctx, newPurchase(2, 10, model.RequestStatusInProgress)))

	items, total, err := repo.List(ctx, NewFilter().Eq(FieldStatus, model.RequestStatusInProgress), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Greater(t, items[0].ID, items[1].ID, "newest first by default")

	items, total, err = repo.List(ctx, NewFilter().Eq(FieldRequesterID, uint(1)).Eq(FieldDepartmentID, uint(10)), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.RequestStatusDraft, items[0].Status)

	items, total, err = repo.List(ctx, nil, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 1)
}

func TestRequestState_UpdateStatusIsConditional(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	req := newPurchase(1, 10, model.RequestStatusInProgress)
	require.NoError(t, NewPurchaseRequestRepository(db).Create(ctx, req))

	states := NewRequestStateRepository(db, model.DomainPurchase)
	require.NoError(t, states.UpdateStatus(ctx, req.ID, model.RequestStatusApproved, 1))

	state, err := states.FindState(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, state.Status)
	assert.Equal(t, 2, state.Version)

	err = states.UpdateStatus(ctx, req.ID, model.RequestStatusRejected, 1)
	assert.ErrorIs(t, err, ErrStaleVersion)

	counts, err := states.CountByStatus(ctx, 1)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.EqualValues(t, 1, counts[0].Count)
}

func TestTransactionManager_RollsBackAndJoins(t *testing.T) {
	db := setupTestDB(t)
	tx := NewTransactionManager(db)
	repo := NewRosterRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		require.True(t, InTx(txCtx))
		require.NoError(t, repo.Create(txCtx, &model.RosterEntry{Scope: model.RosterScopeTeam, ScopeID: 1, ApproverID: 5, Hierarchy: 1}))
		return tx.RunInTx(txCtx, func(inner context.Context) error {
			require.NoError(t, repo.Create(inner, &model.RosterEntry{Scope: model.RosterScopeTeam, ScopeID: 1, ApproverID: 6, Hierarchy: 2}))
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	entries, err := repo.ListByScope(ctx, model.RosterScopeTeam, 1)
	require.NoError(t, err)
	assert.Empty(t, entries, "both writes rolled back")
}

func TestRosterRepository_OrderAndDuplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRosterRepository(db)
	ctx := context.Background()

	for _, h := range []int{3, 1, 2} {
		require.NoError(t, repo.Create(ctx, &model.RosterEntry{Scope: model.RosterScopeDepartment, ScopeID: 7, ApproverID: uint(h), Hierarchy: h}))
	}
	err := repo.Create(ctx, &model.RosterEntry{Scope: model.RosterScopeDepartment, ScopeID: 7, ApproverID: 9, Hierarchy: 2})
	assert.ErrorIs(t, err, ErrDuplicate)

	entries, err := repo.ListByScope(ctx, model.RosterScopeDepartment, 7)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Hierarchy)
	}
}

func TestAttachmentRepository_UpdateFile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttachmentRepository(db, model.DomainTravel)
	ctx := context.Background()

	att := &model.Attachment{FileName: "4_visa.pdf", OriginalName: "visa.pdf", Path: "travel/4_visa.pdf", Size: 3, ContentType: "text/plain"}
	require.NoError(t, repo.Create(ctx, att))
	require.NoError(t, repo.UpdateFile(ctx, att.ID, "travel/4_visa.pdf", 18, "application/pdf"))

	got, err := repo.FindByFileName(ctx, "4_visa.pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 18, got.Size)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, "visa.pdf", got.OriginalName)
}
