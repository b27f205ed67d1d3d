package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateRequest    = "CREATE_REQUEST"
	ActionUpdateRequest    = "UPDATE_REQUEST"
	ActionSubmitRequest    = "SUBMIT_REQUEST"
	ActionDeleteRequest    = "DELETE_REQUEST"
	ActionApproveRequest   = "APPROVE_REQUEST"
	ActionRejectRequest    = "REJECT_REQUEST"
	ActionReplaceApprover  = "REPLACE_APPROVER"
	ActionRaiseQuestion    = "RAISE_QUESTION"
	ActionAnswerQuestion   = "ANSWER_QUESTION"
	ActionUpdateRoster     = "UPDATE_ROSTER"
	ActionUploadAttachment = "UPLOAD_ATTACHMENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uint          `gorm:"index" json:"user_id"` // Nullable gracefully if automated
	User       *User          `gorm:"foreignKey:UserID" json:"user"`
	Domain     string         `gorm:"type:varchar(20);index" json:"domain"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
