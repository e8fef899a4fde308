package nowplaying

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpotify struct {
	srv        *httptest.Server
	refreshes  int32
	nowPlaying func(w http.ResponseWriter)
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	f := &fakeSpotify{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "the-code", r.Form.Get("code"))
			assert.Equal(t, "id", r.Form.Get("client_id"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "access-1", "refresh_token": "refresh-1", "expires_in": 3600, "token_type": "Bearer",
			})
		case "refresh_token":
			assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
			atomic.AddInt32(&f.refreshes, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "access-2", "expires_in": 3600, "token_type": "Bearer",
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer access-")
		f.nowPlaying(w)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSpotify) client() *Client {
	return NewClient(Options{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/callback",
		TokenURL:     f.srv.URL + "/token",
		APIBase:      f.srv.URL + "/v1",
	})
}

func TestAuthURL(t *testing.T) {
	c := NewClient(Options{ClientID: "id", RedirectURI: "http://localhost/callback"})
	u, err := url.Parse(c.AuthURL("state"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.spotify.com", u.Host)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "id", q.Get("client_id"))
	assert.Equal(t, "true", q.Get("show_dialog"))
	assert.Equal(t, "user-read-currently-playing user-read-playback-state", q.Get("scope"))
}

func TestValidToken_NotAuthenticated(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.ValidToken(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestExchangeAndRefreshNearExpiry(t *testing.T) {
	f := newFakeSpotify(t)
	c := f.client()
	ctx := context.Background()

	require.NoError(t, c.Exchange(ctx, "the-code"))
	assert.Equal(t, "access-1", c.Status().AccessToken)

	tok, err := c.ValidToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.refreshes))

	// 30s before expiry is inside the refresh margin.
	expiresAt := c.Status().ExpiresAt
	c.now = func() time.Time { return expiresAt.Add(-30 * time.Second) }
	tok, err = c.ValidToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.refreshes))
	assert.Equal(t, "refresh-1", c.Status().RefreshToken, "refresh token survives a refresh without rotation")
}

func TestCurrentlyPlaying(t *testing.T) {
	f := newFakeSpotify(t)
	c := f.client()
	require.NoError(t, c.Exchange(context.Background(), "the-code"))

	f.nowPlaying = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"is_playing": true, "progress_ms": 1200,
			"item": {"name": "Song", "duration_ms": 200000,
				"artists": [{"name": "A"}, {"name": "B"}],
				"album": {"images": [{"url": "http://img/1"}, {"url": "http://img/2"}]},
				"external_urls": {"spotify": "http://open/track"}}}`))
	}
	track, err := c.CurrentlyPlaying(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Track{
		Playing: true, IsPlaying: true, Song: "Song", Artists: "A, B", AlbumArt: "http://img/1",
		ProgressMs: 1200, DurationMs: 200000, TrackURL: "http://open/track",
	}, track)

	f.nowPlaying = func(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }
	track, err = c.CurrentlyPlaying(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Track{}, track)

	f.nowPlaying = func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) }
	_, err = c.CurrentlyPlaying(context.Background())
	assert.Error(t, err)
}
