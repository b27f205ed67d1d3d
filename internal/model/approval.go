package model

import "time"

// Approval is one approver's slot in a request's chain. The same struct backs
// purchase_approvals and travel_approvals, so indexes are declared in the
// migration rather than in tags (index names are global to the database).
type Approval struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RequestID    uint       `gorm:"not null" json:"request_id"`
	ApproverID   uint       `gorm:"not null" json:"approver_id"`
	Approver     *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Role         string     `gorm:"type:varchar(255)" json:"role"`
	Hierarchy    int        `gorm:"not null" json:"hierarchy"`
	Status       string     `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	Comments     string     `gorm:"type:text" json:"comments"`
	ApprovedDate *time.Time `json:"approved_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
