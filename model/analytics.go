package model

// PublishStats counts published songs against drafts.
type PublishStats struct {
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
}

// PlayTrend is the play total of songs created on one day.
type PlayTrend struct {
	Date      string `json:"date"` // YYYY-MM-DD, UTC
	PlayCount int    `json:"playCount"`
}

// Analytics is the admin dashboard summary.
type Analytics struct {
	TotalSongs          int          `json:"totalSongs"`
	TotalPublishedSongs int          `json:"totalPublishedSongs"`
	TotalPlays          int          `json:"totalPlays"`
	MostPlayedSong      *Song        `json:"mostPlayedSong"`
	TopSongs            []Song       `json:"topSongs"`
	PublishStats        PublishStats `json:"publishStats"`
	PlayTrends          []PlayTrend  `json:"playTrends"`
	Songs               []Song       `json:"songs"`
}
