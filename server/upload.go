package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"Melodia/logger"
	"Melodia/metrics"
	"Melodia/storage"
)

// multipart memory buffer; larger parts spill to temp files
const multipartMemory = 32 << 20

// allowedMimes lists accepted content types per form field.
var allowedMimes = map[string][]string{
	"audio":     {"audio/mpeg", "audio/wav", "audio/mp3", "audio/x-wav", "audio/wave"},
	"lyrics":    {"text/plain"},
	"cover":     {"image/jpeg", "image/png", "image/webp"},
	"heroImage": {"image/jpeg", "image/png", "image/webp"},
}

// folders maps a form field to its blob folder.
var folders = map[string]string{
	"audio":     storage.FolderAudio,
	"lyrics":    storage.FolderLyrics,
	"cover":     storage.FolderCovers,
	"heroImage": storage.FolderHero,
}

var errInvalidFileType = errors.New("invalid file type")

// parseMultipart caps the body at the upload limit and parses the form.
func (h *APIHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	return r.ParseMultipartForm(multipartMemory)
}

// checkMime validates a part's content type against its field.
func checkMime(field string, header *multipart.FileHeader) (string, error) {
	raw := header.Header.Get("Content-Type")
	ct, _, err := mime.ParseMediaType(raw)
	if err != nil {
		ct = strings.ToLower(strings.TrimSpace(raw))
	}
	allowed := allowedMimes[field]
	for _, m := range allowed {
		if ct == m {
			return ct, nil
		}
	}
	expected := "unknown"
	if len(allowed) > 0 {
		expected = strings.Join(allowed, ", ")
	}
	return "", fmt.Errorf("%w for %s. Expected: %s", errInvalidFileType, field, expected)
}

// fileField returns the uploaded file header for field, or nil when absent.
func fileField(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

// validateFiles checks every present file before anything is uploaded.
func validateFiles(r *http.Request, fields ...string) error {
	for _, field := range fields {
		if fh := fileField(r, field); fh != nil {
			if _, err := checkMime(field, fh); err != nil {
				return err
			}
		}
	}
	return nil
}

// storeFile uploads the part under field's folder and returns its URL.
// An absent field yields "" and no error.
func (h *APIHandler) storeFile(ctx context.Context, r *http.Request, field string) (string, error) {
	fh := fileField(r, field)
	if fh == nil {
		return "", nil
	}
	ct, err := checkMime(field, fh)
	if err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer f.Close()

	url, err := h.blobs.Upload(ctx, folders[field], fh.Filename, ct, f, fh.Size)
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", field, err)
	}
	metrics.Uploads.WithLabelValues(field).Inc()
	logger.Info("[Upload] stored file",
		logger.String("field", field),
		logger.String("filename", fh.Filename),
		logger.Int64("size", fh.Size),
		logger.String("url", url))
	return url, nil
}

func blobDeleteFailed(url string, err error) {
	metrics.BlobDeleteFailures.Inc()
	logger.Warn("[Upload] could not delete old file", logger.String("url", url), logger.ErrorField(err))
}

// uploadErrorStatus maps parse and store errors to a status code.
func uploadErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errInvalidFileType):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, multipart.ErrMessageTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
