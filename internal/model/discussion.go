package model

import "time"

// Discussion is a question raised on a request and its optional answer.
// An item without AnsweredOn is open.
type Discussion struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RequestID    uint       `gorm:"not null" json:"request_id"`
	Question     string     `gorm:"type:text;not null" json:"question"`
	RaisedByID   uint       `gorm:"not null" json:"raised_by_id"`
	RaisedBy     *User      `gorm:"foreignKey:RaisedByID" json:"raised_by,omitempty"`
	RaisedOn     time.Time  `gorm:"not null" json:"raised_on"`
	RecipientID  uint       `gorm:"not null" json:"recipient_id"`
	Recipient    *User      `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
	Answer       *string    `gorm:"type:text" json:"answer"`
	AnsweredByID *uint      `json:"answered_by_id"`
	AnsweredBy   *User      `gorm:"foreignKey:AnsweredByID" json:"answered_by,omitempty"`
	AnsweredOn   *time.Time `json:"answered_on"`
}

func (d *Discussion) IsOpen() bool {
	return d.AnsweredOn == nil
}
