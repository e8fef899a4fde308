package model

import (
	"time"

	"gorm.io/gorm"
)

// Song is an uploaded track with its media URLs and play counter.
type Song struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Title        string     `json:"title" gorm:"size:255;uniqueIndex;not null"`
	Description  string     `json:"description" gorm:"type:text"`
	AudioURL     string     `json:"audioUrl" gorm:"size:1024;not null"`
	LyricsURL    string     `json:"lyricsUrl,omitempty" gorm:"size:1024"`
	CoverURL     string     `json:"coverUrl,omitempty" gorm:"size:1024"`
	Duration     int        `json:"duration" gorm:"not null"` // seconds, as entered at upload time
	Tags         StringList `json:"tags" gorm:"type:json"`
	Published    bool       `json:"published" gorm:"not null;index"`
	Plays        int        `json:"plays" gorm:"not null;default:0"`
	UploadedByID *string    `json:"uploadedById,omitempty" gorm:"size:36;index"`
	UploadedBy   *Admin     `json:"uploadedBy,omitempty" gorm:"foreignKey:UploadedByID"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (Song) TableName() string {
	return "songs"
}

// BeforeCreate assigns a UUID when none was set.
func (s *Song) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	if s.Tags == nil {
		s.Tags = StringList{}
	}
	return nil
}
