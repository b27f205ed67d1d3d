package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// User is the person reference used for requesters, approvers and discussion participants
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	DisplayName string         `gorm:"type:varchar(255);not null" json:"display_name"`
	Email       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"`   // Omit password from JSON requests/responses
	Role        string         `gorm:"type:varchar(50);not null" json:"role"` // admin, manager, staff
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// PersonRef is the id + display name pair embedded in responses
type PersonRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Ref builds a PersonRef, tolerating an unloaded association.
func (u *User) Ref(fallbackID uint) PersonRef {
	if u == nil {
		return PersonRef{ID: fallbackID}
	}
	return PersonRef{ID: u.ID, Name: u.DisplayName}
}
