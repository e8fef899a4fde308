// Package player owns the playback session: one audio output, the current
// song, history for "previous", and a resumable snapshot.
package player

import (
	"context"
	"sync"
	"time"

	"Melodia/logger"
	"Melodia/model"

	"github.com/google/uuid"
)

const (
	positionSaveInterval = time.Second
	notifyTimeout        = 10 * time.Second
)

// Catalog lists the songs that make up the play order.
type Catalog interface {
	ListTracks(ctx context.Context) ([]model.Song, error)
}

// Notifier tells the server a song started. Calls are fire and forget.
type Notifier interface {
	NotifyPlay(ctx context.Context, songID, sessionID string) error
}

// Options wires a Controller. Audio and Store are required.
type Options struct {
	Audio    AudioOutput
	Store    SnapshotStore
	Catalog  Catalog
	Notifier Notifier
	// SessionID scopes play counting on the server. Generated when empty.
	SessionID string
	// AutoAdvance starts the next song when one ends instead of pausing.
	AutoAdvance bool
	Now         func() time.Time
}

// Status is a copy of the observable state.
type Status struct {
	State    State
	Song     *model.Song
	Playing  bool
	Position float64
	Duration float64
	Volume   float64
}

// Controller is the single source of truth for what is playing. Commands never
// return errors: failures fall back to a paused or errored state and are logged.
type Controller struct {
	mu sync.Mutex

	audio    AudioOutput
	store    SnapshotStore
	catalog  Catalog
	notifier Notifier

	sessionID   string
	autoAdvance bool
	now         func() time.Time

	state    State
	current  *model.Song
	position float64
	duration float64
	volume   float64
	order    []model.Song
	history  []*model.Song

	// wantPlay means "start audible output once the media is loaded".
	wantPlay     bool
	// ended means the media ran out; resuming starts the song over.
	ended        bool
	lastPosSave  time.Time
	pendingCalls sync.WaitGroup
}

// New builds a controller and restores the stored snapshot, if any. A restored
// song is loaded but only starts playing once its duration is known.
func New(opts Options) *Controller {
	c := &Controller{
		audio:       opts.Audio,
		store:       opts.Store,
		catalog:     opts.Catalog,
		notifier:    opts.Notifier,
		sessionID:   opts.SessionID,
		autoAdvance: opts.AutoAdvance,
		now:         opts.Now,
		volume:      1,
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.audio.SetVolume(c.volume)
	c.rehydrate()
	return c
}

func (c *Controller) rehydrate() {
	snap, err := c.store.Load()
	if err != nil {
		logger.Warn("[Player] failed to load snapshot", logger.ErrorField(err))
		return
	}
	if snap == nil || snap.Song == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = snap.Song
	c.position = snap.Position
	if c.position < 0 {
		c.position = 0
	}
	c.duration = float64(snap.Song.Duration)
	c.wantPlay = snap.Playing
	c.state = StateLoading
	if err := c.audio.Load(snap.Song.AudioURL); err != nil {
		c.failLocked(err)
	}
	logger.Info("[Player] restored session",
		logger.String("songId", snap.Song.ID),
		logger.Float64("position", c.position),
		logger.Bool("resume", snap.Playing))
}

// SessionID identifies this listener to the play counter.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// ReloadOrder refetches the play order. On failure the previous order stays.
func (c *Controller) ReloadOrder(ctx context.Context) error {
	if c.catalog == nil {
		return nil
	}
	songs, err := c.catalog.ListTracks(ctx)
	if err != nil {
		logger.Warn("[Player] failed to fetch songs", logger.ErrorField(err))
		return err
	}
	c.mu.Lock()
	c.order = songs
	c.mu.Unlock()
	return nil
}

// Order returns a copy of the play order.
func (c *Controller) Order() []model.Song {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Song, len(c.order))
	copy(out, c.order)
	return out
}

// PlayTrack makes song current from position 0 and starts it once loaded.
func (c *Controller) PlayTrack(song *model.Song) {
	if song == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(song, true)
}

// Next plays the cyclic successor of the current song in the play order.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextLocked()
}

func (c *Controller) nextLocked() {
	if len(c.order) == 0 {
		return
	}
	idx := -1
	if c.current != nil {
		for i := range c.order {
			if c.order[i].ID == c.current.ID {
				idx = i
				break
			}
		}
	}
	successor := c.order[(idx+1)%len(c.order)]
	if c.current != nil {
		c.history = append(c.history, c.current)
	}
	c.startLocked(&successor, false)
}

// Previous pops the history. With an empty history the current song restarts.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.history); n > 0 {
		prev := c.history[n-1]
		c.history = c.history[:n-1]
		c.startLocked(prev, false)
		return
	}
	if c.current == nil {
		return
	}

	c.position = 0
	switch c.state {
	case StateLoading:
		c.wantPlay = true
	case StateErrored:
		c.loadLocked(true)
	default:
		c.audio.Seek(0)
		c.playLocked()
	}
	c.saveLocked()
}

// TogglePlayPause flips between playing and paused. No-op with nothing selected.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	switch c.state {
	case StatePlaying:
		c.audio.Pause()
		c.state = StatePaused
	case StatePaused:
		if c.ended {
			c.position = c.audio.Seek(0)
		}
		c.playLocked()
	case StateLoading:
		c.wantPlay = !c.wantPlay
	case StateErrored:
		c.loadLocked(true)
	}
	c.saveLocked()
}

// Seek moves within the current song. While loading, the target is applied
// once the media is ready.
func (c *Controller) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	switch c.state {
	case StatePlaying, StatePaused:
		c.position = c.audio.Seek(seconds)
		c.ended = false
	default:
		c.position = seconds
	}
	c.saveLocked()
}

// SetVolume clamps level to [0,1]. Volume is not persisted.
func (c *Controller) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = level
	c.audio.SetVolume(level)
}

// Stop ends the session and deletes the stored snapshot.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePlaying {
		c.audio.Pause()
	}
	c.current = nil
	c.state = StateIdle
	c.position = 0
	c.duration = 0
	c.wantPlay = false
	c.ended = false
	if err := c.store.Clear(); err != nil {
		logger.Warn("[Player] failed to clear snapshot", logger.ErrorField(err))
	}
}

// Close waits for in-flight play notifications and releases the audio output.
func (c *Controller) Close() error {
	c.pendingCalls.Wait()
	return c.audio.Close()
}

// Status returns the observable state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	var song *model.Song
	if c.current != nil {
		cp := *c.current
		song = &cp
	}
	return Status{
		State:    c.state,
		Song:     song,
		Playing:  c.state == StatePlaying,
		Position: c.position,
		Duration: c.duration,
		Volume:   c.volume,
	}
}

// IsPlaying reports whether audible output is running.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StatePlaying
}

// CurrentTrack returns the current song or nil.
func (c *Controller) CurrentTrack() *model.Song {
	return c.Status().Song
}

// HistoryLen is the number of songs "previous" can step back through.
func (c *Controller) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// MediaLoaded finishes the two-phase start: seek to the pending position and
// start output if playback was requested.
func (c *Controller) MediaLoaded(url string, durationSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale(url) || c.state != StateLoading {
		return
	}
	c.duration = durationSeconds
	if c.position > 0 {
		c.position = c.audio.Seek(c.position)
	}
	if c.wantPlay {
		c.playLocked()
	} else {
		c.state = StatePaused
	}
	c.wantPlay = false
	c.saveLocked()
}

// MediaProgress tracks the position. Snapshot writes are throttled.
func (c *Controller) MediaProgress(url string, positionSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale(url) || c.state != StatePlaying {
		return
	}
	c.position = positionSeconds
	if c.now().Sub(c.lastPosSave) >= positionSaveInterval {
		c.saveLocked()
	}
}

func (c *Controller) MediaEnded(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale(url) {
		return
	}
	if c.autoAdvance && len(c.order) > 0 {
		c.nextLocked()
		return
	}
	c.state = StatePaused
	c.ended = true
	c.saveLocked()
}

func (c *Controller) MediaFailed(url string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale(url) {
		return
	}
	c.failLocked(err)
}

func (c *Controller) stale(url string) bool {
	return c.current == nil || c.current.AudioURL != url
}

// startLocked makes song current and requests playback. History is pushed only
// when asked and when the song actually changes.
func (c *Controller) startLocked(song *model.Song, pushHistory bool) {
	if pushHistory && c.current != nil && c.current.ID != song.ID {
		c.history = append(c.history, c.current)
	}
	if c.state == StatePlaying {
		c.audio.Pause()
	}
	c.current = song
	c.position = 0
	c.duration = float64(song.Duration)
	c.loadLocked(true)
	c.saveLocked()
	c.notifyLocked(song.ID)
}

func (c *Controller) loadLocked(play bool) {
	c.state = StateLoading
	c.ended = false
	c.wantPlay = play
	if err := c.audio.Load(c.current.AudioURL); err != nil {
		c.failLocked(err)
	}
}

// playLocked starts output and falls back to paused when the device refuses.
func (c *Controller) playLocked() {
	if err := c.audio.Play(); err != nil {
		logger.Warn("[Player] playback did not start",
			logger.String("songId", c.current.ID),
			logger.ErrorField(err))
		c.state = StatePaused
		return
	}
	c.state = StatePlaying
	c.ended = false
}

func (c *Controller) failLocked(err error) {
	logger.Error("[Player] media error",
		logger.String("songId", c.current.ID),
		logger.String("url", c.current.AudioURL),
		logger.ErrorField(err))
	c.state = StateErrored
	c.wantPlay = false
	c.saveLocked()
}

func (c *Controller) saveLocked() {
	if c.current == nil {
		return
	}
	snap := Snapshot{
		Version:  SnapshotVersion,
		Song:     c.current,
		Position: c.position,
		Playing:  c.state == StatePlaying || (c.state == StateLoading && c.wantPlay),
	}
	c.lastPosSave = c.now()
	if err := c.store.Save(snap); err != nil {
		logger.Warn("[Player] failed to save snapshot", logger.ErrorField(err))
	}
}

func (c *Controller) notifyLocked(songID string) {
	if c.notifier == nil {
		return
	}
	c.pendingCalls.Add(1)
	go func() {
		defer c.pendingCalls.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := c.notifier.NotifyPlay(ctx, songID, c.sessionID); err != nil {
			logger.Warn("[Player] could not record play", logger.String("songId", songID), logger.ErrorField(err))
		}
	}()
}
