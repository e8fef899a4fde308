// Package playcount counts a song play at most once per listening session
// within a rolling window.
package playcount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Melodia/cache"
	"Melodia/logger"
	"Melodia/metrics"
	"Melodia/model"
	"Melodia/repository"
)

var (
	ErrInvalidInput = errors.New("invalid song id")
	ErrNotFound     = errors.New("song not found")
	// ErrPersistence wraps a failed counter update. The claim is kept, so a
	// retry from the same session will not count twice.
	ErrPersistence = errors.New("failed to record play")
)

// SongStore is the part of the song repository the guard needs.
type SongStore interface {
	GetByID(ctx context.Context, id string) (*model.Song, error)
	IncrementPlays(ctx context.Context, id string) (int, error)
}

// Result reports whether a call bumped the counter and the count afterwards.
// On a duplicate, Plays is re-read after the claim; an increment still in
// flight from a concurrent first play may not be visible in it yet.
type Result struct {
	Incremented bool `json:"incremented"`
	Plays       int  `json:"plays"`
}

// Guard de-duplicates play registrations per (song, session).
type Guard struct {
	songs    SongStore
	registry cache.PlayRegistry
	// PublishedOnly hides drafts from the public endpoint.
	PublishedOnly bool
}

func NewGuard(songs SongStore, registry cache.PlayRegistry) *Guard {
	return &Guard{songs: songs, registry: registry, PublishedOnly: true}
}

// RegisterPlay records a play of songID for sessionID. Only the first call for
// a pair inside the registry window increments the stored counter.
func (g *Guard) RegisterPlay(ctx context.Context, songID, sessionID string) (Result, error) {
	songID = strings.TrimSpace(songID)
	if songID == "" {
		return Result{}, ErrInvalidInput
	}

	song, err := g.songs.GetByID(ctx, songID)
	if errors.Is(err, repository.ErrNotFound) {
		return Result{}, ErrNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: lookup %s: %v", ErrPersistence, songID, err)
	}
	if g.PublishedOnly && !song.Published {
		return Result{}, ErrNotFound
	}

	first, err := g.registry.Claim(ctx, cache.PlayKey(songID, sessionID))
	if err != nil {
		metrics.PlayRegistrations.WithLabelValues(metrics.PlayFailed).Inc()
		return Result{Plays: song.Plays}, fmt.Errorf("%w: claim: %v", ErrPersistence, err)
	}
	if !first {
		metrics.PlayRegistrations.WithLabelValues(metrics.PlayDuplicate).Inc()
		plays := song.Plays
		if fresh, err := g.songs.GetByID(ctx, songID); err == nil {
			plays = fresh.Plays
		}
		return Result{Incremented: false, Plays: plays}, nil
	}

	plays, err := g.songs.IncrementPlays(ctx, songID)
	if err != nil {
		metrics.PlayRegistrations.WithLabelValues(metrics.PlayFailed).Inc()
		logger.Warn("[PlayCount] increment failed, session stays claimed",
			logger.String("songId", songID),
			logger.String("sessionId", sessionID),
			logger.ErrorField(err))
		return Result{Plays: song.Plays}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.PlayRegistrations.WithLabelValues(metrics.PlayIncremented).Inc()
	return Result{Incremented: true, Plays: plays}, nil
}
