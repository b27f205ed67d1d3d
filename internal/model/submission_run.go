package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission run states
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Submission steps. Attachment steps are keyed per file: "attachment:<name>".
const (
	StepRequestSaved = "request_saved"
	StepChainBuilt   = "chain_built"
	StepAttachment   = "attachment:"
)

// StagedFile is an upload parked in the staging library until its step runs
type StagedFile struct {
	OriginalName string `json:"original_name"`
	StagedName   string `json:"staged_name"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
}

// RunState is the persisted progress of a submission. Payload keeps the
// submitted form so the request write can be replayed on resume.
type RunState struct {
	Completed []string        `json:"completed"`
	Files     []StagedFile    `json:"files"`
	Payload   json.RawMessage `json:"payload"`
}

// SubmissionRun records each step of a submission so a failed run can be resumed
// from the first incomplete step instead of being replayed from scratch.
type SubmissionRun struct {
	ID        uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	Domain    string                       `gorm:"type:varchar(20);not null;index" json:"domain"`
	RequestID uint                         `gorm:"index" json:"request_id"`
	UserID    uint                         `gorm:"not null" json:"user_id"`
	Status    string                       `gorm:"type:varchar(20);not null;index" json:"status"`
	State     datatypes.JSONType[RunState] `json:"state"`
	LastError string                       `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

func (r *SubmissionRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// StagingLibrary is where the run's files wait before being uploaded
func (r *SubmissionRun) StagingLibrary() string {
	return "_staging/" + r.ID.String()
}

func (r *SubmissionRun) IsDone(step string) bool {
	for _, s := range r.State.Data().Completed {
		if s == step {
			return true
		}
	}
	return false
}

// CompletedSteps returns a copy of the completed step list
func (r *SubmissionRun) CompletedSteps() []string {
	return append([]string(nil), r.State.Data().Completed...)
}

// ResetSteps replaces the completed step list, used to roll back in-memory
// progress after a failed transaction.
func (r *SubmissionRun) ResetSteps(steps []string) {
	state := r.State.Data()
	state.Completed = steps
	r.State = datatypes.NewJSONType(state)
}

// MarkDone appends step to the completed list; already completed steps are ignored.
func (r *SubmissionRun) MarkDone(step string) {
	if r.IsDone(step) {
		return
	}
	state := r.State.Data()
	state.Completed = append(state.Completed, step)
	r.State = datatypes.NewJSONType(state)
}
