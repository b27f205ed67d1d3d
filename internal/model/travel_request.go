package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Travel types
const (
	TravelTypeDomestic      = "domestic"
	TravelTypeInternational = "international"
)

// TravelRequest is a request to travel, approved along the requester's team roster
type TravelRequest struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Title            string          `gorm:"type:varchar(255);not null" json:"title"`
	RequesterID      uint            `gorm:"not null;index" json:"requester_id"`
	Requester        *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	TeamID           *uint           `gorm:"index" json:"team_id"`
	Team             *Team           `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	DepartmentID     *uint           `gorm:"index" json:"department_id"`
	Department       *Department     `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Destination      string          `gorm:"type:varchar(255);not null" json:"destination"`
	Purpose          string          `gorm:"type:text" json:"purpose"`
	TravelType       string          `gorm:"type:varchar(20);not null" json:"travel_type"` // domestic, international
	DepartureDate    time.Time       `json:"departure_date"`
	ReturnDate       time.Time       `json:"return_date"`
	EstimatedAirfare decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"estimated_airfare"`
	EstimatedLodging decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"estimated_lodging"`
	EstimatedOther   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"estimated_other"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_cost"`
	EmergencyRelated bool            `gorm:"default:false" json:"emergency_related"`
	Status           string          `gorm:"type:varchar(20);not null;default:'Draft';index" json:"status"`
	Version          int             `gorm:"not null;default:1" json:"version"`
	CreatedByID      uint            `gorm:"not null;index" json:"created_by_id"`
	CreatedBy        *User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	RequestedDate    time.Time       `json:"requested_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (TravelRequest) TableName() string {
	return DomainTravel.Table(CollectionRequests)
}

func (r *TravelRequest) IsOwnedBy(userID uint) bool {
	return r.RequesterID == userID || r.CreatedByID == userID
}
