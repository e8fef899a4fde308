// Package nowplaying reports what the site owner is listening to on Spotify.
package nowplaying

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://accounts.spotify.com/authorize"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultAPIBase  = "https://api.spotify.com/v1"

	// refreshMargin is how close to expiry a token may get before it is renewed.
	refreshMargin = 60 * time.Second
)

var scopes = []string{"user-read-currently-playing", "user-read-playback-state"}

var (
	ErrNotAuthenticated = errors.New("not authenticated with Spotify")
	ErrNoRefreshToken   = errors.New("no refresh token available")
)

// Options configures a Client. Empty URLs fall back to Spotify's.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIBase      string
	HTTPClient   *http.Client
}

// Tokens is the cached OAuth state.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Track is the currently playing item. The zero value means nothing is playing.
type Track struct {
	Playing    bool   `json:"playing"`
	Song       string `json:"song"`
	Artists    string `json:"artists"`
	AlbumArt   string `json:"albumArt"`
	ProgressMs int    `json:"progress_ms"`
	DurationMs int    `json:"duration_ms"`
	IsPlaying  bool   `json:"is_playing"`
	TrackURL   string `json:"track_url"`
}

// Client holds one account's tokens in memory and refreshes them on demand.
type Client struct {
	oauth   *oauth2.Config
	apiBase string
	http    *http.Client
	now     func() time.Time

	mu     sync.Mutex
	tokens Tokens
}

func NewClient(opts Options) *Client {
	if opts.AuthURL == "" {
		opts.AuthURL = defaultAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = defaultTokenURL
	}
	if opts.APIBase == "" {
		opts.APIBase = defaultAPIBase
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: strings.TrimRight(opts.APIBase, "/"),
		http:    opts.HTTPClient,
		now:     time.Now,
	}
}

// AuthURL is where the owner is sent to grant access.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// Exchange trades an authorization code for tokens and stores them.
func (c *Client) Exchange(ctx context.Context, code string) error {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}
	c.mu.Lock()
	c.tokens = Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresAt: tok.Expiry}
	c.mu.Unlock()
	return nil
}

// Refresh forces a token refresh.
func (c *Client) Refresh(ctx context.Context) (Tokens, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(ctx); err != nil {
		return Tokens{}, err
	}
	return c.tokens, nil
}

func (c *Client) refreshLocked(ctx context.Context) error {
	if c.tokens.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	// A token without an access token is never valid, so this always refreshes.
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: c.tokens.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	c.tokens.AccessToken = tok.AccessToken
	c.tokens.ExpiresAt = tok.Expiry
	if tok.RefreshToken != "" {
		c.tokens.RefreshToken = tok.RefreshToken
	}
	return nil
}

// ValidToken returns an access token, refreshing it first when it expires
// within refreshMargin.
func (c *Client) ValidToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	if c.tokens.ExpiresAt.Sub(c.now()) < refreshMargin {
		if err := c.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.tokens.AccessToken, nil
}

// Status returns a copy of the cached tokens.
func (c *Client) Status() Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

type currentlyPlayingResponse struct {
	IsPlaying  bool `json:"is_playing"`
	ProgressMs int  `json:"progress_ms"`
	Item       *struct {
		Name       string `json:"name"`
		DurationMs int    `json:"duration_ms"`
		Artists    []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	} `json:"item"`
}

// CurrentlyPlaying asks Spotify for the active track.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*Track, error) {
	token, err := c.ValidToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/me/player/currently-playing", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch currently playing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &Track{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify returned status %d", resp.StatusCode)
	}

	var body currentlyPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode currently playing: %w", err)
	}

	track := &Track{
		Playing:    body.IsPlaying,
		IsPlaying:  body.IsPlaying,
		ProgressMs: body.ProgressMs,
		Song:       "Unknown Track",
		Artists:    "Unknown Artist",
	}
	if item := body.Item; item != nil {
		if item.Name != "" {
			track.Song = item.Name
		}
		names := make([]string, 0, len(item.Artists))
		for _, a := range item.Artists {
			names = append(names, a.Name)
		}
		if len(names) > 0 {
			track.Artists = strings.Join(names, ", ")
		}
		if len(item.Album.Images) > 0 {
			track.AlbumArt = item.Album.Images[0].URL
		}
		track.DurationMs = item.DurationMs
		track.TrackURL = item.ExternalURLs.Spotify
	}
	return track, nil
}
