// Package analytics builds the admin dashboard numbers from the song table.
package analytics

import (
	"sort"
	"time"

	"Melodia/model"
)

const (
	topSongsLimit = 5
	trendDays     = 30
)

// Summarize aggregates songs as of now. songs is expected newest first and is
// returned unchanged in the Songs field.
func Summarize(songs []model.Song, now time.Time) model.Analytics {
	out := model.Analytics{
		TotalSongs: len(songs),
		Songs:      songs,
		TopSongs:   []model.Song{},
	}
	if out.Songs == nil {
		out.Songs = []model.Song{}
	}

	byDay := make(map[string]int)
	for i := range songs {
		s := &songs[i]
		if s.Published {
			out.TotalPublishedSongs++
		}
		out.TotalPlays += s.Plays
		// first song wins ties, matching the listing order
		if out.MostPlayedSong == nil || s.Plays > out.MostPlayedSong.Plays {
			out.MostPlayedSong = s
		}
		byDay[s.CreatedAt.UTC().Format(time.DateOnly)] += s.Plays
	}

	out.PublishStats = model.PublishStats{
		Published: out.TotalPublishedSongs,
		Drafts:    out.TotalSongs - out.TotalPublishedSongs,
	}

	ranked := make([]model.Song, len(songs))
	copy(ranked, songs)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Plays > ranked[j].Plays })
	if len(ranked) > topSongsLimit {
		ranked = ranked[:topSongsLimit]
	}
	out.TopSongs = append(out.TopSongs, ranked...)

	today := now.UTC()
	out.PlayTrends = make([]model.PlayTrend, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(time.DateOnly)
		out.PlayTrends = append(out.PlayTrends, model.PlayTrend{Date: day, PlayCount: byDay[day]})
	}
	return out
}
