package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"Melodia/core/analytics"
	"Melodia/core/auth"
	"Melodia/logger"
	"Melodia/model"
	"Melodia/repository"

	"github.com/gorilla/mux"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler trades admin credentials for a bearer token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if !h.tokens.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "Token login is not configured")
		return
	}

	admin, err := h.admins.GetByUsername(r.Context(), req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("[Login] unknown admin", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		logger.Error("[Login] failed to load admin", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	ok, err := auth.CheckPassword(req.Password, admin.PasswordHash)
	if err != nil {
		logger.Error("[Login] admin record has an unusable password hash",
			logger.String("username", req.Username), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		logger.Warn("[Login] wrong password", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, expiresAt, err := h.tokens.Issue(admin.ID, admin.Username)
	if err != nil {
		logger.Error("[Login] failed to issue token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	logger.Info("[Login] admin signed in", logger.String("username", admin.Username))
	writeData(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt,
		"admin":     admin,
	}, "")
}

// UploadSongHandler stores the media files and creates a draft song.
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		logger.Warn("[Upload] bad multipart body", logger.ErrorField(err))
		writeError(w, uploadErrorStatus(err), "Invalid upload: "+err.Error())
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	durationRaw := strings.TrimSpace(r.FormValue("duration"))
	if title == "" || durationRaw == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: title and duration")
		return
	}
	duration, err := strconv.Atoi(durationRaw)
	if err != nil || duration < 0 {
		writeError(w, http.StatusBadRequest, "Duration must be a whole number of seconds")
		return
	}
	if fileField(r, "audio") == nil {
		writeError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	if err := validateFiles(r, "audio", "lyrics", "cover"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if _, err := h.songs.GetByTitle(ctx, title); err == nil {
		writeError(w, http.StatusBadRequest, "A song with this title already exists")
		return
	}

	song := &model.Song{
		Title:       title,
		Description: strings.TrimSpace(r.FormValue("description")),
		Duration:    duration,
		Tags:        model.ParseTags(r.FormValue("tags")),
	}
	if song.AudioURL, err = h.storeFile(ctx, r, "audio"); err != nil {
		h.uploadFailed(w, err)
		return
	}
	if song.LyricsURL, err = h.storeFile(ctx, r, "lyrics"); err != nil {
		h.deleteBlob(ctx, song.AudioURL)
		h.uploadFailed(w, err)
		return
	}
	if song.CoverURL, err = h.storeFile(ctx, r, "cover"); err != nil {
		h.deleteBlob(ctx, song.AudioURL)
		h.deleteBlob(ctx, song.LyricsURL)
		h.uploadFailed(w, err)
		return
	}

	if uploader := h.uploaderID(r); uploader != "" {
		song.UploadedByID = &uploader
	}

	if err := h.songs.Create(ctx, song); err != nil {
		h.deleteBlob(ctx, song.AudioURL)
		h.deleteBlob(ctx, song.LyricsURL)
		h.deleteBlob(ctx, song.CoverURL)
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "A song with this title already exists")
			return
		}
		logger.Error("[Upload] failed to save song", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to save song")
		return
	}

	created, err := h.songs.GetByID(ctx, song.ID)
	if err != nil {
		created = song
	}
	logger.Info("[Upload] song created", logger.String("id", song.ID), logger.String("title", song.Title))
	writeData(w, http.StatusCreated, created, "Song uploaded successfully")
}

// uploaderID resolves the admin behind the request: the token subject, or the
// first admin when the shared key was used.
func (h *APIHandler) uploaderID(r *http.Request) string {
	if id, ok := AdminFromContext(r.Context()); ok && id.ID != "" {
		return id.ID
	}
	admin, err := h.admins.First(r.Context())
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("[Upload] failed to look up admin", logger.ErrorField(err))
		}
		return ""
	}
	return admin.ID
}

func (h *APIHandler) uploadFailed(w http.ResponseWriter, err error) {
	status := uploadErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("[Upload] upload failed", logger.ErrorField(err))
	}
	writeError(w, status, err.Error())
}

// ListAllSongsHandler returns every song including drafts.
func (h *APIHandler) ListAllSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.ListAll(r.Context())
	if err != nil {
		logger.Error("[Admin] failed to list songs", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch songs")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "count": len(songs), "data": songs})
}

// UpdateSongHandler applies a partial update. New files replace old ones and
// the old blobs are removed best-effort.
func (h *APIHandler) UpdateSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	song, err := h.songs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	if err != nil {
		logger.Error("[Admin] failed to fetch song", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update song")
		return
	}

	if err := h.parseMultipart(w, r); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, uploadErrorStatus(err), "Invalid upload: "+err.Error())
		return
	}

	if v := strings.TrimSpace(r.FormValue("title")); v != "" {
		song.Title = v
	}
	if v := strings.TrimSpace(r.FormValue("description")); v != "" {
		song.Description = v
	}
	if v := strings.TrimSpace(r.FormValue("duration")); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "Duration must be a whole number of seconds")
			return
		}
		song.Duration = d
	}
	if v := r.FormValue("tags"); strings.TrimSpace(v) != "" {
		song.Tags = model.ParseTags(v)
	}
	if err := validateFiles(r, "audio", "lyrics", "cover"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var replaced, stored []string
	for _, f := range []struct {
		field string
		dst   *string
	}{
		{"audio", &song.AudioURL},
		{"lyrics", &song.LyricsURL},
		{"cover", &song.CoverURL},
	} {
		url, err := h.storeFile(ctx, r, f.field)
		if err != nil {
			for _, u := range stored {
				h.deleteBlob(ctx, u)
			}
			h.uploadFailed(w, err)
			return
		}
		if url == "" {
			continue
		}
		stored = append(stored, url)
		if *f.dst != "" {
			replaced = append(replaced, *f.dst)
		}
		*f.dst = url
	}

	if err := h.songs.Update(ctx, song); err != nil {
		for _, u := range stored {
			h.deleteBlob(ctx, u)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "A song with this title already exists")
			return
		}
		logger.Error("[Admin] failed to update song", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update song")
		return
	}
	for _, url := range replaced {
		h.deleteBlob(ctx, url)
	}

	updated, err := h.songs.GetByID(ctx, id)
	if err != nil {
		updated = song
	}
	writeData(w, http.StatusOK, updated, "Song updated successfully")
}

// DeleteSongHandler removes the song and, best-effort, its files.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	song, err := h.songs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	if err != nil {
		logger.Error("[Admin] failed to fetch song", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	h.deleteBlob(ctx, song.AudioURL)
	h.deleteBlob(ctx, song.LyricsURL)
	h.deleteBlob(ctx, song.CoverURL)

	if err := h.songs.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Error("[Admin] failed to delete song", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}
	logger.Info("[Admin] song deleted", logger.String("id", id), logger.String("title", song.Title))
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Song deleted successfully"})
}

// TogglePublishHandler flips the published flag of ?songId=.
func (h *APIHandler) TogglePublishHandler(w http.ResponseWriter, r *http.Request) {
	songID := strings.TrimSpace(r.URL.Query().Get("songId"))
	if songID == "" {
		writeError(w, http.StatusBadRequest, "songId is required")
		return
	}
	song, err := h.songs.TogglePublished(r.Context(), songID)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	if err != nil {
		logger.Error("[Admin] failed to toggle publish", logger.String("id", songID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to toggle publish status")
		return
	}
	state := "unpublished"
	if song.Published {
		state = "published"
	}
	writeData(w, http.StatusOK, song, "Song "+state+" successfully")
}

// AnalyticsHandler summarises plays and publishing over all songs.
func (h *APIHandler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.ListAll(r.Context())
	if err != nil {
		logger.Error("[Admin] failed to load analytics", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch analytics")
		return
	}
	writeData(w, http.StatusOK, analytics.Summarize(songs, h.now()), "")
}

// LegacyPlayHandler increments unconditionally. Old clients still call it.
func (h *APIHandler) LegacyPlayHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	plays, err := h.songs.IncrementPlays(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	if err != nil {
		logger.Error("[Admin] failed to increment plays", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to increment play count")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"id": id, "plays": plays}, "Play count incremented")
}
