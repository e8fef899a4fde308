package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"Melodia/logger"
	"Melodia/model"
	"Melodia/repository"

	"github.com/gorilla/mux"
)

// GetHeroHandler returns the latest banner, or null when none is configured.
func (h *APIHandler) GetHeroHandler(w http.ResponseWriter, r *http.Request) {
	hero, err := h.heroes.Latest(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		writeData(w, http.StatusOK, nil, "No hero image configured yet")
		return
	}
	if err != nil {
		logger.Error("[Hero] failed to fetch hero", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch hero image")
		return
	}
	writeData(w, http.StatusOK, hero, "")
}

// CreateHeroHandler uploads a new banner image and replaces the previous record.
func (h *APIHandler) CreateHeroHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		writeError(w, uploadErrorStatus(err), "Invalid upload: "+err.Error())
		return
	}
	if fileField(r, "heroImage") == nil {
		writeError(w, http.StatusBadRequest, "Hero image file is required")
		return
	}

	ctx := r.Context()
	imageURL, err := h.storeFile(ctx, r, "heroImage")
	if err != nil {
		h.uploadFailed(w, err)
		return
	}

	hero := model.NewHeroImage(imageURL)
	applyHeroForm(r, hero)

	old, err := h.heroes.Latest(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Warn("[Hero] failed to look up previous hero", logger.ErrorField(err))
	}
	if old != nil {
		h.deleteBlob(ctx, old.ImageURL)
		if err := h.heroes.Delete(ctx, old.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("[Hero] failed to delete previous hero", logger.String("id", old.ID), logger.ErrorField(err))
		}
	}

	if err := h.heroes.Create(ctx, hero); err != nil {
		h.deleteBlob(ctx, imageURL)
		logger.Error("[Hero] failed to save hero", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create hero configuration")
		return
	}
	writeData(w, http.StatusCreated, hero, "Hero configuration created successfully")
}

// UpdateHeroHandler changes only the fields present in the form.
func (h *APIHandler) UpdateHeroHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	hero, err := h.heroes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Hero configuration not found")
		return
	}
	if err != nil {
		logger.Error("[Hero] failed to fetch hero", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update hero configuration")
		return
	}

	if err := h.parseMultipart(w, r); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, uploadErrorStatus(err), "Invalid upload: "+err.Error())
		return
	}
	applyHeroForm(r, hero)

	oldImage := ""
	if fileField(r, "heroImage") != nil {
		url, err := h.storeFile(ctx, r, "heroImage")
		if err != nil {
			h.uploadFailed(w, err)
			return
		}
		oldImage = hero.ImageURL
		hero.ImageURL = url
	}

	if err := h.heroes.Update(ctx, hero); err != nil {
		logger.Error("[Hero] failed to update hero", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update hero configuration")
		return
	}
	h.deleteBlob(ctx, oldImage)
	writeData(w, http.StatusOK, hero, "Hero configuration updated successfully")
}

// DeleteHeroHandler removes the banner and its image.
func (h *APIHandler) DeleteHeroHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	hero, err := h.heroes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Hero image not found")
		return
	}
	if err != nil {
		logger.Error("[Hero] failed to fetch hero", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete hero image")
		return
	}
	h.deleteBlob(ctx, hero.ImageURL)
	if err := h.heroes.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logger.Error("[Hero] failed to delete hero", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete hero image")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Hero image deleted successfully"})
}

// applyHeroForm copies the submitted fields onto hero. Absent or unparsable
// values leave the current value alone.
func applyHeroForm(r *http.Request, hero *model.HeroImage) {
	str := func(key string, dst *string) {
		if vals, ok := r.Form[key]; ok && len(vals) > 0 {
			*dst = vals[0]
		}
	}
	num := func(key string, dst *float64) {
		if v, ok := formValue(r, key); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := formValue(r, key); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = int(f)
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := formValue(r, key); ok {
			*dst = strings.EqualFold(v, "true")
		}
	}

	str("heading", &hero.Heading)
	str("subheading", &hero.Subheading)
	str("overlayColor", &hero.OverlayColor)
	num("overlayOpacity", &hero.OverlayOpacity)
	str("primaryBtnText", &hero.PrimaryButtonText)
	str("primaryBtnLink", &hero.PrimaryButtonLink)
	str("secondaryBtnText", &hero.SecondaryButtonText)
	str("secondaryBtnLink", &hero.SecondaryButtonLink)
	str("textColor", &hero.TextColor)
	flag("textShadow", &hero.TextShadow)
	str("imageFit", &hero.ImageFit)
	num("imageOpacity", &hero.ImageOpacity)
	integer("blur", &hero.Blur)
	integer("brightness", &hero.Brightness)
	integer("contrast", &hero.Contrast)
	flag("enabled", &hero.Enabled)
}

func formValue(r *http.Request, key string) (string, bool) {
	vals, ok := r.Form[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vals[0])
	return v, v != ""
}
