package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Folders used for uploaded media.
const (
	FolderAudio  = "audio"
	FolderLyrics = "lyrics"
	FolderCovers = "covers"
	FolderHero   = "hero-images"
)

const maxNameLength = 50

// ErrForeignURL is returned by Delete for URLs this store did not produce.
var ErrForeignURL = errors.New("url does not belong to this store")

// BlobStore keeps uploaded files and hands back a stable public URL.
type BlobStore interface {
	Upload(ctx context.Context, folder, filename, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, url string) error
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	dashRuns    = regexp.MustCompile(`-+`)
)

// SanitizeName turns an uploaded filename into a safe object name stem:
// the extension is dropped, anything outside [a-zA-Z0-9-_] becomes "-",
// runs of dashes collapse, and the result is lowercased and cut to 50 chars.
func SanitizeName(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = unsafeChars.ReplaceAllString(stem, "-")
	stem = dashRuns.ReplaceAllString(stem, "-")
	stem = strings.ToLower(stem)
	if len(stem) > maxNameLength {
		stem = stem[:maxNameLength]
	}
	if stem == "" || stem == "-" {
		stem = "file"
	}
	return stem
}

// ObjectKey builds "<folder>/<unixmillis>-<sanitized><ext>".
func ObjectKey(folder, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%d-%s%s", folder, now.UnixMilli(), SanitizeName(filename), ext)
}
