package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

const maxMediaBytes = 100 << 20

// fetch downloads url fully into memory so the decoder can seek.
func fetch(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media request returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, "", fmt.Errorf("media larger than %d bytes", maxMediaBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// decode picks a decoder from the content type, falling back to the URL extension.
func decode(data []byte, url, contentType string) (beep.StreamSeekCloser, beep.Format, error) {
	switch kind := mediaKind(url, contentType); kind {
	case "mp3":
		return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case "wav":
		return wav.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported media type %q", contentType)
	}
}

func mediaKind(url, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "wav"
	}
	clean := strings.SplitN(url, "?", 2)[0]
	switch strings.ToLower(path.Ext(clean)) {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	}
	return ""
}
