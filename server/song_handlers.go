package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"Melodia/core/playcount"
	"Melodia/logger"
	"Melodia/repository"

	"github.com/gorilla/mux"
)

// ListSongsHandler returns published songs, newest first.
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.ListPublished(r.Context())
	if err != nil {
		logger.Error("[Songs] failed to list songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch songs")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "count": len(songs), "data": songs})
}

// GetSongHandler returns one published song. Drafts look missing.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	song, err := h.songs.GetByID(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !song.Published) {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	if err != nil {
		logger.Error("[Songs] failed to fetch song", logger.String("id", mux.Vars(r)["id"]), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch song")
		return
	}
	writeData(w, http.StatusOK, song, "")
}

type playRequest struct {
	SessionID string `json:"sessionId"`
}

// PlaySongHandler counts a play once per (song, session) inside the window.
func (h *APIHandler) PlaySongHandler(w http.ResponseWriter, r *http.Request) {
	songID := mux.Vars(r)["id"]

	var req playRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	res, err := h.guard.RegisterPlay(r.Context(), songID, req.SessionID)
	switch {
	case errors.Is(err, playcount.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid song ID")
		return
	case errors.Is(err, playcount.ErrNotFound):
		writeError(w, http.StatusNotFound, "Song not found")
		return
	case err != nil:
		// persistence failures are swallowed; the caller gets the last known count
		logger.Warn("[Songs] play not recorded", logger.String("songId", songID), logger.ErrorField(err))
	}

	message := "Play already counted for this session"
	if res.Incremented {
		message = "Play count incremented"
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"incremented": res.Incremented,
		"plays":       res.Plays,
		"message":     message,
	})
}
