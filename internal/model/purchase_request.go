package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase categories
const (
	PurchaseCategoryGoods    = "goods"
	PurchaseCategoryServices = "services"
	PurchaseCategorySoftware = "software"
	PurchaseCategoryOther    = "other"
)

// PurchaseRequest is a request to buy goods or services on behalf of a department
type PurchaseRequest struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Title            string          `gorm:"type:varchar(255);not null" json:"title"`
	RequesterID      uint            `gorm:"not null;index" json:"requester_id"`
	Requester        *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	DepartmentID     uint            `gorm:"not null;index" json:"department_id"`
	Department       *Department     `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Vendor           string          `gorm:"type:varchar(255)" json:"vendor"`
	Category         string          `gorm:"type:varchar(30);not null" json:"category"` // goods, services, software, other
	Description      string          `gorm:"type:text" json:"description"`
	Justification    string          `gorm:"type:text" json:"justification"`
	Quantity         int             `gorm:"not null;default:1" json:"quantity"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_cost"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_cost"`
	ARRequired       bool            `gorm:"column:ar_required;default:false" json:"ar_required"`
	EmergencyRelated bool            `gorm:"default:false" json:"emergency_related"`
	Status           string          `gorm:"type:varchar(20);not null;default:'Draft';index" json:"status"`
	Version          int             `gorm:"not null;default:1" json:"version"`
	CreatedByID      uint            `gorm:"not null;index" json:"created_by_id"`
	CreatedBy        *User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	RequestedDate    time.Time       `json:"requested_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (PurchaseRequest) TableName() string {
	return DomainPurchase.Table(CollectionRequests)
}

// IsOwnedBy reports whether the user raised or created the request
func (r *PurchaseRequest) IsOwnedBy(userID uint) bool {
	return r.RequesterID == userID || r.CreatedByID == userID
}
