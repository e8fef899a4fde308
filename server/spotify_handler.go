package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"Melodia/core/nowplaying"
	"Melodia/logger"

	"github.com/google/uuid"
)

const spotifyStateCookie = "spotify_oauth_state"

// SpotifyLoginHandler redirects the owner to Spotify's consent page.
func (h *APIHandler) SpotifyLoginHandler(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     spotifyStateCookie,
		Value:    state,
		Path:     "/api/spotify",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.spotify.AuthURL(state), http.StatusFound)
}

// SpotifyCallbackHandler stores the tokens and sends the browser back to the site.
func (h *APIHandler) SpotifyCallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, http.StatusBadRequest, e)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	target := strings.TrimRight(h.cfg.FrontendURL, "/") + "/songs?spotify="
	if c, err := r.Cookie(spotifyStateCookie); err != nil || c.Value != q.Get("state") {
		logger.Warn("[Spotify] state mismatch on callback")
		http.Redirect(w, r, target+"error", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: spotifyStateCookie, Path: "/api/spotify", MaxAge: -1})

	if err := h.spotify.Exchange(r.Context(), code); err != nil {
		logger.Error("[Spotify] code exchange failed", logger.ErrorField(err))
		http.Redirect(w, r, target+"error", http.StatusFound)
		return
	}
	logger.Info("[Spotify] connected")
	http.Redirect(w, r, target+"connected", http.StatusFound)
}

// NowPlayingHandler proxies the owner's currently playing track.
func (h *APIHandler) NowPlayingHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.spotify.CurrentlyPlaying(r.Context())
	if errors.Is(err, nowplaying.ErrNotAuthenticated) {
		writeJSON(w, http.StatusUnauthorized, envelope{
			"success": false,
			"error":   "Not authenticated with Spotify",
			"code":    "NOT_AUTHENTICATED",
		})
		return
	}
	if err != nil {
		logger.Error("[Spotify] now playing failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch currently playing track")
		return
	}
	writeData(w, http.StatusOK, track, "")
}

func (h *APIHandler) SpotifyRefreshHandler(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.spotify.Refresh(r.Context())
	if err != nil {
		logger.Warn("[Spotify] refresh failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Token refreshed", "tokens": tokens})
}

func (h *APIHandler) SpotifyStatusHandler(w http.ResponseWriter, r *http.Request) {
	tokens := h.spotify.Status()
	body := envelope{"success": true, "authenticated": tokens.AccessToken != ""}
	if !tokens.ExpiresAt.IsZero() {
		body["expiresAt"] = tokens.ExpiresAt
	}
	writeJSON(w, http.StatusOK, body)
}
