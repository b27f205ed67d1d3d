package service

import (
	"context"
	"errors"
	"testing"

	"requestflow/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmission_UploadsAndAssociatesAttachments(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	actor := Actor{UserID: f.requester.ID, Role: model.RoleStaff}

	files := []FileUpload{
		{Name: "quote.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")},
		{Name: "specs.txt", ContentType: "text/plain", Content: []byte("16GB RAM")},
	}
	res, err := e.purchase.Create(ctx, actor, purchaseInput(f.dept.ID, true), files)
	require.NoError(t, err)

	require.NotNil(t, res.Submission)
	assert.Equal(t, model.RunStatusCompleted, res.Submission.Status)
	assert.Empty(t, res.Submission.Pending)
	assert.ElementsMatch(t, []string{
		model.StepRequestSaved,
		model.StepChainBuilt,
		model.StepAttachment + "quote.pdf",
		model.StepAttachment + "specs.txt",
	}, res.Submission.Completed)

	require.Len(t, res.Attachments, 2)
	for _, att := range res.Attachments {
		require.NotNil(t, att.RequestID)
		assert.Equal(t, res.ID, *att.RequestID)
		assert.Equal(t, model.AttachmentFileName(res.ID, att.OriginalName), att.FileName)
	}

	_, content, err := e.purchase.OpenAttachment(ctx, res.ID, res.Attachments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)

	staged, err := e.storage.List(ctx, "_staging/"+res.Submission.RunID)
	require.NoError(t, err)
	assert.Empty(t, staged, "staging area is cleared after completion")
}

func TestSubmission_ResumeAfterAttachmentFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	actor := Actor{UserID: f.requester.ID, Role: model.RoleStaff}

	e.storage.setFailing(true)
	_, err := e.purchase.Create(ctx, actor, purchaseInput(f.dept.ID, true), []FileUpload{
		{Name: "quote.pdf", ContentType: "application/pdf", Content: []byte("quote")},
	})
	require.Error(t, err)

	var incomplete *SubmissionIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, model.StepAttachment+"quote.pdf", incomplete.Step)

	run, err := e.submissions.GetRun(ctx, actor, incomplete.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, []string{model.StepRequestSaved, model.StepChainBuilt}, run.Completed)
	assert.Equal(t, []string{model.StepAttachment + "quote.pdf"}, run.Pending)
	assert.NotEmpty(t, run.LastError)

	req, err := e.purchase.Get(ctx, run.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusInProgress, req.Status, "committed steps stay committed")
	assert.Len(t, req.Approvals, 2)
	assert.Empty(t, req.Attachments)

	t.Run("other users cannot resume", func(t *testing.T) {
		_, err := e.submissions.ResumeSubmission(ctx, Actor{UserID: f.a.ID, Role: model.RoleManager}, incomplete.RunID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	e.storage.setFailing(false)
	run, err = e.submissions.ResumeSubmission(ctx, actor, incomplete.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Empty(t, run.Pending)

	req, err = e.purchase.Get(ctx, run.RequestID)
	require.NoError(t, err)
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, "quote.pdf", req.Attachments[0].OriginalName)
	assert.Len(t, req.Approvals, 2, "resume does not rebuild the chain")

	t.Run("resuming a completed run is a no-op", func(t *testing.T) {
		again, err := e.submissions.ResumeSubmission(ctx, actor, incomplete.RunID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusCompleted, again.Status)

		attachments, err := e.purchase.ListAttachments(ctx, run.RequestID)
		require.NoError(t, err)
		assert.Len(t, attachments, 1)
	})
}

func TestSubmission_UnknownRun(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.submissions.GetRun(context.Background(), Actor{UserID: 1}, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmission_NothingCommittedReturnsCause(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	requester := e.createUser(t, "requester", model.RoleStaff)
	dept := e.createDepartment(t, "No Approvers")

	_, err := e.purchase.Create(ctx, Actor{UserID: requester.ID}, purchaseInput(dept.ID, true), nil)
	require.ErrorIs(t, err, ErrValidation)

	var incomplete *SubmissionIncompleteError
	assert.False(t, errors.As(err, &incomplete))

	list, total, err := e.purchase.List(ctx, RequestListQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list, "request write is rolled back with the failed chain build")
}

func TestSubmission_DuplicateFileNames(t *testing.T) {
	e := newTestEnv(t)
	f := e.twoStep(t)
	_, err := e.purchase.Create(context.Background(), Actor{UserID: f.requester.ID}, purchaseInput(f.dept.ID, true), []FileUpload{
		{Name: "a.txt", Content: []byte("1")},
		{Name: "dir/a.txt", Content: []byte("2")},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmission_ResubmissionUsesCurrentRoster(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.twoStep(t)
	actor := Actor{UserID: f.requester.ID, Role: model.RoleStaff}

	draft, err := e.purchase.Create(ctx, actor, purchaseInput(f.dept.ID, false), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusDraft, draft.Status)
	assert.Empty(t, draft.Approvals, "drafts have no chain")

	c := e.createUser(t, "approver-c", model.RoleManager)
	e.addRoster(t, model.RosterScopeDepartment, f.dept.ID, c.ID, 3)

	submitted, err := e.purchase.Update(ctx, actor, draft.ID, purchaseInput(f.dept.ID, true), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusInProgress, submitted.Status)
	require.Len(t, submitted.Approvals, 3)
	assert.Equal(t, draft.Version+1, submitted.Version)

	_, err = e.purchaseFlow.RecordDecision(ctx, decide(submitted.Approvals[0], model.ApprovalStatusRejected))
	require.NoError(t, err)

	roster, err := e.rosterRepo.ListByScope(ctx, model.RosterScopeDepartment, f.dept.ID)
	require.NoError(t, err)
	for _, entry := range roster[1:] {
		require.NoError(t, e.rosterRepo.Delete(ctx, entry.ID))
	}

	resubmitted, err := e.purchase.Update(ctx, actor, draft.ID, purchaseInput(f.dept.ID, true), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusInProgress, resubmitted.Status)
	require.Len(t, resubmitted.Approvals, 1, "chain size follows the current roster")
	assert.Equal(t, model.ApprovalStatusPending, resubmitted.Approvals[0].Status)
	assert.Empty(t, resubmitted.Approvals[0].Comments)
	assert.Nil(t, resubmitted.Approvals[0].ApprovedDate)
}
