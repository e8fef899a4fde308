package model

import (
	"time"

	"gorm.io/gorm"
)

// HeroImage configures the landing page banner. Only the latest row is shown.
type HeroImage struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:36"`
	ImageURL            string    `json:"imageUrl" gorm:"size:1024;not null"`
	Heading             string    `json:"heading" gorm:"size:255"`
	Subheading          string    `json:"subheading" gorm:"size:255"`
	OverlayColor        string    `json:"overlayColor" gorm:"size:32"`
	OverlayOpacity      float64   `json:"overlayOpacity"`
	PrimaryButtonText   string    `json:"primaryButtonText" gorm:"size:100"`
	PrimaryButtonLink   string    `json:"primaryButtonLink" gorm:"size:255"`
	SecondaryButtonText string    `json:"secondaryButtonText" gorm:"size:100"`
	SecondaryButtonLink string    `json:"secondaryButtonLink" gorm:"size:255"`
	TextColor           string    `json:"textColor" gorm:"size:32"`
	TextShadow          bool      `json:"textShadow"`
	ImageFit            string    `json:"imageFit" gorm:"size:20"` // cover, contain or fill
	ImageOpacity        float64   `json:"imageOpacity"`
	Blur                int       `json:"blur"`
	Brightness          int       `json:"brightness"`
	Contrast            int       `json:"contrast"`
	Enabled             bool      `json:"enabled"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (HeroImage) TableName() string {
	return "hero_images"
}

func (h *HeroImage) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = newID()
	}
	return nil
}

// NewHeroImage returns a banner with the stock look applied.
// Defaults live here rather than in gorm tags so explicit false/0 survive inserts.
func NewHeroImage(imageURL string) *HeroImage {
	return &HeroImage{
		ImageURL:            imageURL,
		Heading:             "Welcome to My Music.",
		Subheading:          "Exclusive tracks, lyrics, and stories",
		OverlayColor:        "#000000",
		OverlayOpacity:      0.65,
		PrimaryButtonText:   "Listen Now",
		PrimaryButtonLink:   "/songs",
		SecondaryButtonText: "View Lyrics",
		SecondaryButtonLink: "/lyrics",
		TextColor:           "white",
		TextShadow:          true,
		ImageFit:            "cover",
		ImageOpacity:        1,
		Blur:                0,
		Brightness:          100,
		Contrast:            100,
		Enabled:             true,
	}
}
