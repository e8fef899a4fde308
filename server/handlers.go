package server

import (
	"context"
	"net/http"
	"time"

	"Melodia/cache"
	"Melodia/config"
	"Melodia/core/auth"
	"Melodia/core/nowplaying"
	"Melodia/core/playcount"
	"Melodia/repository"
	"Melodia/storage"
)

// Deps are the collaborators the HTTP layer runs on.
type Deps struct {
	Config   *config.Config
	Songs    repository.SongRepository
	Admins   repository.AdminRepository
	Reviews  repository.ReviewRepository
	Heroes   repository.HeroRepository
	Blobs    storage.BlobStore
	Registry cache.PlayRegistry
	Tokens   *auth.TokenIssuer
	Spotify  *nowplaying.Client
	Now      func() time.Time
}

// APIHandler handles all /api requests.
type APIHandler struct {
	cfg     *config.Config
	songs   repository.SongRepository
	admins  repository.AdminRepository
	reviews repository.ReviewRepository
	heroes  repository.HeroRepository
	blobs   storage.BlobStore
	guard   *playcount.Guard
	tokens  *auth.TokenIssuer
	spotify *nowplaying.Client
	now     func() time.Time
}

func NewAPIHandler(d Deps) *APIHandler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Tokens == nil {
		d.Tokens = auth.NewTokenIssuer(d.Config.JWTSecret, d.Config.JWTTTL)
	}
	if d.Spotify == nil {
		d.Spotify = nowplaying.NewClient(nowplaying.Options{
			ClientID:     d.Config.SpotifyClientID,
			ClientSecret: d.Config.SpotifyClientSecret,
			RedirectURI:  d.Config.SpotifyRedirectURI,
		})
	}
	return &APIHandler{
		cfg:     d.Config,
		songs:   d.Songs,
		admins:  d.Admins,
		reviews: d.Reviews,
		heroes:  d.Heroes,
		blobs:   d.Blobs,
		guard:   playcount.NewGuard(d.Songs, d.Registry),
		tokens:  d.Tokens,
		spotify: d.Spotify,
		now:     d.Now,
	}
}

// HealthHandler answers liveness checks.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"message":   "Backend is running!",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// deleteBlob removes an uploaded file. Failures are logged and counted only.
func (h *APIHandler) deleteBlob(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := h.blobs.Delete(ctx, url); err != nil {
		blobDeleteFailed(url, err)
	}
}
