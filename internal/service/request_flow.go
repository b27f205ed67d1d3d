package service

import (
	"context"
	"fmt"
	"time"

	"requestflow/internal/model"
	"requestflow/internal/repository"
	"requestflow/internal/storage"

	"go.uber.org/zap"
)

// RequestServiceDeps are the collaborators shared by the purchase and travel request services
type RequestServiceDeps struct {
	Workflow    WorkflowService
	Submissions *SubmissionCoordinator
	Attachments repository.AttachmentRepository
	Rosters     repository.RosterRepository
	Departments repository.DepartmentRepository
	Teams       repository.TeamRepository
	Users       repository.UserRepository
	Audit       repository.AuditRepository
	Storage     storage.DocumentStorage
	Tx          repository.TransactionManager
	Logger      *zap.Logger
}

// RequestListQuery narrows a request listing. Zero values are ignored.
type RequestListQuery struct {
	Status       string
	RequesterID  uint
	DepartmentID uint
	TeamID       uint
	Page         int
	Limit        int
}

func (q RequestListQuery) filter() *repository.Filter {
	f := repository.NewFilter()
	if q.Status != "" {
		f.Eq(repository.FieldStatus, q.Status)
	}
	if q.RequesterID != 0 {
		f.Eq(repository.FieldRequesterID, q.RequesterID)
	}
	if q.DepartmentID != 0 {
		f.Eq(repository.FieldDepartmentID, q.DepartmentID)
	}
	if q.TeamID != 0 {
		f.Eq(repository.FieldTeamID, q.TeamID)
	}
	return f
}

func (q RequestListQuery) pageAndLimit() (int, int) {
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}

// requestFlow holds what both request services do identically.
type requestFlow struct {
	domain      model.Domain
	workflow    WorkflowService
	submissions *SubmissionCoordinator
	attachments attachmentStore
	rosters     repository.RosterRepository
	users       repository.UserRepository
	tx          repository.TransactionManager
	audit       auditRecorder
	logger      *zap.Logger
}

func newRequestFlow(domain model.Domain, deps RequestServiceDeps) requestFlow {
	logger := deps.Logger.With(zap.String("domain", string(domain)))
	return requestFlow{
		domain:      domain,
		workflow:    deps.Workflow,
		submissions: deps.Submissions,
		attachments: attachmentStore{
			domain:  domain,
			repo:    deps.Attachments,
			storage: deps.Storage,
			logger:  logger,
		},
		rosters: deps.Rosters,
		users:   deps.Users,
		tx:      deps.Tx,
		audit:   auditRecorder{repo: deps.Audit},
		logger:  logger,
	}
}

func targetStatus(submit bool) string {
	if submit {
		return model.RequestStatusInProgress
	}
	return model.RequestStatusDraft
}

// checkTransition allows edits of drafts and resubmission of rejected requests.
// Approved and Rejected are reached only through recorded decisions.
func checkTransition(from, to string) error {
	switch {
	case from == model.RequestStatusDraft && (to == model.RequestStatusDraft || to == model.RequestStatusInProgress):
		return nil
	case from == model.RequestStatusRejected && to == model.RequestStatusInProgress:
		return nil
	}
	return fmt.Errorf("%w: %s request cannot become %s", ErrInvalidTransition, from, to)
}

func checkVersion(given, stored int) error {
	if given != 0 && given != stored {
		return fmt.Errorf("%w: request was modified since version %d", ErrConflict, given)
	}
	return nil
}

func submitAction(status string, created bool) string {
	switch {
	case status == model.RequestStatusInProgress:
		return model.ActionSubmitRequest
	case created:
		return model.ActionCreateRequest
	default:
		return model.ActionUpdateRequest
	}
}

// resolveRequester defaults the requester to the caller and checks the person exists.
func (f requestFlow) resolveRequester(ctx context.Context, callerID, requesterID uint) (uint, error) {
	if requesterID == 0 {
		requesterID = callerID
	}
	if _, err := f.users.GetByID(ctx, requesterID); err != nil {
		return 0, storeErr("requester not found", err)
	}
	return requesterID, nil
}

func requestedDateOrNow(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return time.Now()
	}
	return *d
}

// removeRequest deletes the request's approvals and attachments in one
// transaction with deleteRow, then removes the files. Discussions are kept.
func (f requestFlow) removeRequest(ctx context.Context, actor Actor, id uint, title string, deleteRow func(ctx context.Context) error) error {
	var removed []model.Attachment
	err := f.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if removed, err = f.attachments.detachAll(txCtx, id); err != nil {
			return err
		}
		if err := f.workflow.DeleteChain(txCtx, id); err != nil {
			return err
		}
		if err := deleteRow(txCtx); err != nil {
			return storeErr("failed to delete request", err)
		}
		return f.audit.record(txCtx, actor.UserID, f.domain, model.ActionDeleteRequest, id, title, map[string]interface{}{
			"attachments": len(removed),
		})
	})
	if err != nil {
		f.logger.Error("Failed to delete request", zap.Uint("request_id", id), zap.Error(err))
		return err
	}
	f.attachments.removeFiles(ctx, removed)
	return nil
}

func (f requestFlow) addAttachments(ctx context.Context, actor Actor, id uint, title string, files []FileUpload) ([]AttachmentResponse, error) {
	if len(files) == 0 {
		return nil, validationErr("no files were uploaded")
	}
	res := make([]AttachmentResponse, 0, len(files))
	for _, file := range files {
		att, err := f.attachments.attach(ctx, id, file.Name, file.ContentType, file.Content)
		if err != nil {
			f.logger.Error("Failed to add attachment", zap.Uint("request_id", id), zap.String("file", file.Name), zap.Error(err))
			return nil, err
		}
		if err := f.audit.record(ctx, actor.UserID, f.domain, model.ActionUploadAttachment, id, title, map[string]interface{}{
			"file_name": att.FileName,
			"size":      att.Size,
		}); err != nil {
			return nil, err
		}
		res = append(res, toAttachmentResponse(*att))
	}
	return res, nil
}

func (f requestFlow) canDelete(actor Actor, owned bool, status string) error {
	if actor.IsAdmin() {
		return nil
	}
	if !owned {
		return fmt.Errorf("%w: only the requester may delete this request", ErrForbidden)
	}
	if status != model.RequestStatusDraft {
		return fmt.Errorf("%w: only drafts can be deleted", ErrInvalidTransition)
	}
	return nil
}

func (f requestFlow) canAttach(actor Actor, owned bool) error {
	if actor.IsAdmin() || owned {
		return nil
	}
	return fmt.Errorf("%w: only the requester may attach files", ErrForbidden)
}
