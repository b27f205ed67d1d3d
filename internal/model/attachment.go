package model

import (
	"fmt"
	"time"
)

// Attachment is a file stored in a domain's attachment library.
// RequestID stays nil between upload and association.
type Attachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RequestID    *uint     `json:"request_id"`
	FileName     string    `gorm:"type:varchar(512);not null" json:"file_name"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"original_name"`
	Path         string    `gorm:"type:text;not null" json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `gorm:"type:varchar(255)" json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AttachmentFileName applies the "{RequestId}_{originalName}" convention
func AttachmentFileName(requestID uint, originalName string) string {
	return fmt.Sprintf("%d_%s", requestID, originalName)
}
