package model

import "time"

// Roster scopes
const (
	RosterScopeDepartment = "department"
	RosterScopeTeam       = "team"
)

// RosterEntry is one approver slot in the template a request's approval chain is cloned from.
// Hierarchy is unique within a scope so the cloned chain has one approval per rank.
type RosterEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Scope      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_roster_slot" json:"scope"`
	ScopeID    uint      `gorm:"not null;uniqueIndex:idx_roster_slot" json:"scope_id"`
	Hierarchy  int       `gorm:"not null;uniqueIndex:idx_roster_slot" json:"hierarchy"`
	ApproverID uint      `gorm:"not null;index" json:"approver_id"`
	Approver   *User     `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Role       string    `gorm:"type:varchar(255)" json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RosterScopeFor returns the roster scope a domain's chains are built from
func RosterScopeFor(d Domain) string {
	if d == DomainTravel {
		return RosterScopeTeam
	}
	return RosterScopeDepartment
}
