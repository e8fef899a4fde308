// Package client talks to the Melodia HTTP API on behalf of the CLI player.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Melodia/model"
)

// API implements player.Catalog and player.Notifier over HTTP.
type API struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type songsResponse struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Data    []model.Song `json:"data"`
	Error   string       `json:"error"`
}

// PlayResponse mirrors the play endpoint's body.
type PlayResponse struct {
	Success     bool   `json:"success"`
	Incremented bool   `json:"incremented"`
	Plays       int    `json:"plays"`
	Message     string `json:"message"`
	Error       string `json:"error"`
}

// ListTracks fetches the published songs, newest first.
func (a *API) ListTracks(ctx context.Context) ([]model.Song, error) {
	var body songsResponse
	if err := a.do(ctx, http.MethodGet, "/songs", nil, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, fmt.Errorf("list songs: %s", body.Error)
	}
	return body.Data, nil
}

// NotifyPlay reports that songID started playing in sessionID.
func (a *API) NotifyPlay(ctx context.Context, songID, sessionID string) error {
	_, err := a.RegisterPlay(ctx, songID, sessionID)
	return err
}

// RegisterPlay is NotifyPlay with the server's answer.
func (a *API) RegisterPlay(ctx context.Context, songID, sessionID string) (*PlayResponse, error) {
	payload, err := json.Marshal(map[string]string{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	var body PlayResponse
	path := "/songs/" + url.PathEscape(songID) + "/play"
	if err := a.do(ctx, http.MethodPost, path, payload, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (a *API) do(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&env)
		if env.Error != "" {
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, env.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
