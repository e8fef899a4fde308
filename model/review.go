package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	// MaxReviewLength is the longest accepted comment, in characters.
	MaxReviewLength = 300
	// AnonymousReviewer is used when a review is posted without a name.
	AnonymousReviewer = "Anonymous"
)

// Review is a visitor comment that shows up publicly once approved.
type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Comment   string    `json:"comment" gorm:"size:300;not null"`
	Approved  bool      `json:"approved" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.Name == "" {
		r.Name = AnonymousReviewer
	}
	return nil
}
