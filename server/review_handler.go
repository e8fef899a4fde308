package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"Melodia/logger"
	"Melodia/model"
	"Melodia/repository"

	"github.com/gorilla/mux"
)

type reviewRequest struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// CreateReviewHandler stores a visitor review pending approval.
func (h *APIHandler) CreateReviewHandler(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		writeError(w, http.StatusBadRequest, "Comment cannot be empty")
		return
	}
	if utf8.RuneCountInString(comment) > model.MaxReviewLength {
		writeError(w, http.StatusBadRequest, "Comment must be 300 characters or less")
		return
	}

	review := &model.Review{Name: strings.TrimSpace(req.Name), Comment: comment}
	if err := h.reviews.Create(r.Context(), review); err != nil {
		logger.Error("[Reviews] failed to create review", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create review")
		return
	}
	writeData(w, http.StatusCreated, review, "")
}

// ListApprovedReviewsHandler is the public, newest-first review feed.
func (h *APIHandler) ListApprovedReviewsHandler(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListApproved(r.Context())
	if err != nil {
		logger.Error("[Reviews] failed to list reviews", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}
	writeData(w, http.StatusOK, reviews, "")
}

func (h *APIHandler) ListAllReviewsHandler(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListAll(r.Context())
	if err != nil {
		logger.Error("[Reviews] failed to list reviews", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}
	writeData(w, http.StatusOK, reviews, "")
}

func (h *APIHandler) ApproveReviewHandler(w http.ResponseWriter, r *http.Request) {
	h.setReviewApproved(w, r, true)
}

func (h *APIHandler) RejectReviewHandler(w http.ResponseWriter, r *http.Request) {
	h.setReviewApproved(w, r, false)
}

func (h *APIHandler) setReviewApproved(w http.ResponseWriter, r *http.Request, approved bool) {
	id := mux.Vars(r)["id"]
	review, err := h.reviews.SetApproved(r.Context(), id, approved)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Review not found")
		return
	}
	if err != nil {
		logger.Error("[Reviews] failed to update review", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update review")
		return
	}
	writeData(w, http.StatusOK, review, "")
}

func (h *APIHandler) DeleteReviewHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.reviews.Delete(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Review not found")
		return
	}
	if err != nil {
		logger.Error("[Reviews] failed to delete review", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Review deleted"})
}
