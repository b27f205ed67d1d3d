package service

import (
	"context"
	"encoding/json"
	"fmt"

	"requestflow/internal/model"
	"requestflow/internal/repository"
	"requestflow/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type SubmissionRunResponse struct {
	RunID     string   `json:"run_id"`
	Domain    string   `json:"domain"`
	RequestID uint     `json:"request_id"`
	Status    string   `json:"status"`
	Completed []string `json:"completed"`
	Pending   []string `json:"pending"`
	LastError string   `json:"last_error,omitempty"`
}

// requestWriter is the domain-specific half of a submission.
type requestWriter interface {
	// saveRequest creates or updates the request described by the run payload.
	saveRequest(ctx context.Context, run *model.SubmissionRun) (uint, error)
	// chainSource returns the saved request's status and the roster its chain is cloned from.
	chainSource(ctx context.Context, requestID uint) (string, []model.RosterEntry, error)
}

type submissionDomain struct {
	writer      requestWriter
	workflow    WorkflowService
	attachments attachmentStore
}

type SubmissionService interface {
	GetRun(ctx context.Context, actor Actor, runID uuid.UUID) (*SubmissionRunResponse, error)
	// ResumeSubmission continues a failed run from its first incomplete step.
	ResumeSubmission(ctx context.Context, actor Actor, runID uuid.UUID) (*SubmissionRunResponse, error)
}

// SubmissionCoordinator runs every create, edit and submit of a request as a
// recorded sequence of steps: the request write and chain rebuild commit
// together, then each attachment is uploaded and associated on its own.
type SubmissionCoordinator struct {
	runs    repository.SubmissionRunRepository
	storage storage.DocumentStorage
	tx      repository.TransactionManager
	events  EventPublisher
	logger  *zap.Logger
	domains map[model.Domain]submissionDomain
}

func NewSubmissionCoordinator(
	runs repository.SubmissionRunRepository,
	store storage.DocumentStorage,
	tx repository.TransactionManager,
	events EventPublisher,
	logger *zap.Logger,
) *SubmissionCoordinator {
	return &SubmissionCoordinator{
		runs:    runs,
		storage: store,
		tx:      tx,
		events:  publisherOrNop(events),
		logger:  logger,
		domains: make(map[model.Domain]submissionDomain),
	}
}

func (c *SubmissionCoordinator) register(domain model.Domain, writer requestWriter, workflow WorkflowService, attachments attachmentStore) {
	c.domains[domain] = submissionDomain{writer: writer, workflow: workflow, attachments: attachments}
}

// submit stages the files, records a new run and executes it. requestID is 0 for new requests.
func (c *SubmissionCoordinator) submit(ctx context.Context, domain model.Domain, actor Actor, requestID uint, payload interface{}, files []FileUpload) (*model.SubmissionRun, error) {
	d, ok := c.domains[domain]
	if !ok {
		return nil, fmt.Errorf("no submission flow registered for domain %s", domain)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	run := &model.SubmissionRun{
		ID:        uuid.New(),
		Domain:    string(domain),
		RequestID: requestID,
		UserID:    actor.UserID,
		Status:    model.RunStatusRunning,
	}
	state := model.RunState{Payload: raw, Files: []model.StagedFile{}}
	seen := make(map[string]bool, len(files))
	for i, f := range files {
		name, err := cleanFileName(f.Name)
		if err != nil {
			c.discardStaging(ctx, run)
			return nil, err
		}
		if seen[name] {
			c.discardStaging(ctx, run)
			return nil, validationErr("file %q was attached twice", name)
		}
		seen[name] = true

		staged := fmt.Sprintf("%03d_%s", i, name)
		if _, err := c.storage.Upload(ctx, run.StagingLibrary(), staged, f.Content, true); err != nil {
			c.discardStaging(ctx, run)
			return nil, storeErr("failed to stage attachment", err)
		}
		state.Files = append(state.Files, model.StagedFile{
			OriginalName: name,
			StagedName:   staged,
			ContentType:  f.ContentType,
			Size:         int64(len(f.Content)),
		})
	}
	run.State = datatypes.NewJSONType(state)

	if err := c.runs.Create(ctx, run); err != nil {
		c.discardStaging(ctx, run)
		return nil, storeErr("failed to record submission", err)
	}

	return run, c.execute(ctx, d, run)
}

func (c *SubmissionCoordinator) execute(ctx context.Context, d submissionDomain, run *model.SubmissionRun) error {
	step, err := c.runSteps(ctx, d, run)
	if err == nil {
		run.Status = model.RunStatusCompleted
		run.LastError = ""
		if saveErr := c.runs.Save(ctx, run); saveErr != nil {
			c.logger.Warn("Failed to mark submission completed", zap.String("run_id", run.ID.String()), zap.Error(saveErr))
		}
		c.discardStaging(ctx, run)
		return nil
	}

	run.Status = model.RunStatusFailed
	run.LastError = err.Error()
	if saveErr := c.runs.Save(ctx, run); saveErr != nil {
		c.logger.Error("Failed to record submission failure", zap.String("run_id", run.ID.String()), zap.Error(saveErr))
	}
	c.logger.Error("Submission failed",
		zap.String("domain", run.Domain),
		zap.String("run_id", run.ID.String()),
		zap.Uint("request_id", run.RequestID),
		zap.String("step", step),
		zap.Error(err))

	// Nothing was committed, so the caller sees the plain cause.
	if len(run.CompletedSteps()) == 0 && isClientError(err) {
		return err
	}
	return &SubmissionIncompleteError{RunID: run.ID, Step: step, Err: err}
}

func (c *SubmissionCoordinator) runSteps(ctx context.Context, d submissionDomain, run *model.SubmissionRun) (string, error) {
	if !run.IsDone(model.StepChainBuilt) {
		prevRequestID, prevSteps := run.RequestID, run.CompletedSteps()
		step := model.StepRequestSaved
		var chain []model.Approval

		err := c.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if !run.IsDone(model.StepRequestSaved) {
				id, err := d.writer.saveRequest(txCtx, run)
				if err != nil {
					return err
				}
				run.RequestID = id
				run.MarkDone(model.StepRequestSaved)
			}

			step = model.StepChainBuilt
			status, roster, err := d.writer.chainSource(txCtx, run.RequestID)
			if err != nil {
				return err
			}
			// Drafts never own a chain.
			if status == model.RequestStatusInProgress {
				if chain, err = d.workflow.BuildChain(txCtx, run.RequestID, roster); err != nil {
					return err
				}
			}
			run.MarkDone(model.StepChainBuilt)
			return storeErr("failed to record submission progress", c.runs.Save(txCtx, run))
		})
		if err != nil {
			run.RequestID = prevRequestID
			run.ResetSteps(prevSteps)
			return step, err
		}

		if len(chain) > 0 {
			c.events.Publish(model.Event{
				Type:      model.EventApprovalTurn,
				Domain:    d.workflow.Domain(),
				RequestID: run.RequestID,
				UserID:    chain[0].ApproverID,
				Payload:   map[string]interface{}{"hierarchy": chain[0].Hierarchy, "role": chain[0].Role},
			})
		}
	}

	for _, f := range run.State.Data().Files {
		key := model.StepAttachment + f.OriginalName
		if run.IsDone(key) {
			continue
		}
		content, err := c.storage.Read(ctx, run.StagingLibrary(), f.StagedName)
		if err != nil {
			return key, storeErr("failed to read staged attachment", err)
		}
		if _, err := d.attachments.attach(ctx, run.RequestID, f.OriginalName, f.ContentType, content); err != nil {
			return key, err
		}
		run.MarkDone(key)
		if err := c.runs.Save(ctx, run); err != nil {
			return key, storeErr("failed to record submission progress", err)
		}
	}
	return "", nil
}

func (c *SubmissionCoordinator) discardStaging(ctx context.Context, run *model.SubmissionRun) {
	if err := c.storage.DeleteLibrary(ctx, run.StagingLibrary()); err != nil {
		c.logger.Warn("Failed to discard staged files", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

func (c *SubmissionCoordinator) GetRun(ctx context.Context, actor Actor, runID uuid.UUID) (*SubmissionRunResponse, error) {
	run, err := c.findOwnedRun(ctx, actor, runID)
	if err != nil {
		return nil, err
	}
	return toRunResponse(run), nil
}

func (c *SubmissionCoordinator) ResumeSubmission(ctx context.Context, actor Actor, runID uuid.UUID) (*SubmissionRunResponse, error) {
	run, err := c.findOwnedRun(ctx, actor, runID)
	if err != nil {
		return nil, err
	}
	if run.Status == model.RunStatusCompleted {
		return toRunResponse(run), nil
	}

	d, ok := c.domains[model.Domain(run.Domain)]
	if !ok {
		return nil, fmt.Errorf("no submission flow registered for domain %s", run.Domain)
	}

	c.logger.Info("Resuming submission",
		zap.String("run_id", run.ID.String()),
		zap.Strings("completed", run.CompletedSteps()))
	run.Status = model.RunStatusRunning
	if err := c.execute(ctx, d, run); err != nil {
		return toRunResponse(run), err
	}
	return toRunResponse(run), nil
}

func (c *SubmissionCoordinator) findOwnedRun(ctx context.Context, actor Actor, runID uuid.UUID) (*model.SubmissionRun, error) {
	run, err := c.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, storeErr("submission not found", err)
	}
	if run.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: submission belongs to another user", ErrForbidden)
	}
	return run, nil
}

func toRunResponse(run *model.SubmissionRun) *SubmissionRunResponse {
	res := &SubmissionRunResponse{
		RunID:     run.ID.String(),
		Domain:    run.Domain,
		RequestID: run.RequestID,
		Status:    run.Status,
		Completed: run.CompletedSteps(),
		Pending:   []string{},
		LastError: run.LastError,
	}
	steps := []string{model.StepRequestSaved, model.StepChainBuilt}
	for _, f := range run.State.Data().Files {
		steps = append(steps, model.StepAttachment+f.OriginalName)
	}
	for _, step := range steps {
		if !run.IsDone(step) {
			res.Pending = append(res.Pending, step)
		}
	}
	if res.Completed == nil {
		res.Completed = []string{}
	}
	return res
}
