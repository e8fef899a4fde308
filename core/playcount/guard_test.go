package playcount

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Melodia/cache"
	"Melodia/model"
	"Melodia/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSongs struct {
	mu        sync.Mutex
	songs     map[string]*model.Song
	incErr    error
	getErr    error
	increases int32
}

func newFakeSongs(songs ...*model.Song) *fakeSongs {
	f := &fakeSongs{songs: make(map[string]*model.Song)}
	for _, s := range songs {
		f.songs[s.ID] = s
	}
	return f
}

func (f *fakeSongs) GetByID(_ context.Context, id string) (*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.songs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSongs) IncrementPlays(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return 0, f.incErr
	}
	atomic.AddInt32(&f.increases, 1)
	f.songs[id].Plays++
	return f.songs[id].Plays, nil
}

type failingRegistry struct{}

func (failingRegistry) Claim(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newRegistry(t *testing.T, now *time.Time) *cache.MemoryRegistry {
	r := cache.NewMemoryRegistry(24*time.Hour, 0)
	r.SetClock(func() time.Time { return *now })
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegisterPlay_TwiceInOneHour(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	songs := newFakeSongs(&model.Song{ID: "song-1", Published: true, Plays: 7})
	g := NewGuard(songs, newRegistry(t, &now))

	res, err := g.RegisterPlay(ctx, "song-1", "sess-A")
	require.NoError(t, err)
	assert.Equal(t, Result{Incremented: true, Plays: 8}, res)

	now = now.Add(time.Hour)
	res, err = g.RegisterPlay(ctx, "song-1", "sess-A")
	require.NoError(t, err)
	assert.Equal(t, Result{Incremented: false, Plays: 8}, res)
}

func TestRegisterPlay_NCallsIncrementOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	songs := newFakeSongs(&model.Song{ID: "s", Published: true})
	g := NewGuard(songs, newRegistry(t, &now))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.RegisterPlay(ctx, "s", "sess")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&songs.increases))
	assert.Equal(t, 1, songs.songs["s"].Plays)
}

func TestRegisterPlay_ExpiryReopensWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	songs := newFakeSongs(&model.Song{ID: "s", Published: true})
	g := NewGuard(songs, newRegistry(t, &now))

	_, err := g.RegisterPlay(ctx, "s", "sess")
	require.NoError(t, err)

	now = now.Add(24*time.Hour + time.Minute)
	res, err := g.RegisterPlay(ctx, "s", "sess")
	require.NoError(t, err)
	assert.True(t, res.Incremented)
	assert.Equal(t, 2, res.Plays)
}

func TestRegisterPlay_SessionsCountSeparately(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	songs := newFakeSongs(&model.Song{ID: "s", Published: true})
	g := NewGuard(songs, newRegistry(t, &now))

	_, _ = g.RegisterPlay(ctx, "s", "a")
	res, err := g.RegisterPlay(ctx, "s", "b")
	require.NoError(t, err)
	assert.Equal(t, Result{Incremented: true, Plays: 2}, res)
}

func TestRegisterPlay_Validation(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	songs := newFakeSongs(&model.Song{ID: "draft", Published: false})
	g := NewGuard(songs, newRegistry(t, &now))

	_, err := g.RegisterPlay(ctx, "  ", "sess")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = g.RegisterPlay(ctx, "missing", "sess")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = g.RegisterPlay(ctx, "draft", "sess")
	assert.ErrorIs(t, err, ErrNotFound)

	g.PublishedOnly = false
	res, err := g.RegisterPlay(ctx, "draft", "sess")
	require.NoError(t, err)
	assert.True(t, res.Incremented)
}

func TestRegisterPlay_IncrementFailureKeepsClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	songs := newFakeSongs(&model.Song{ID: "s", Published: true, Plays: 3})
	songs.incErr = errors.New("db gone")
	g := NewGuard(songs, newRegistry(t, &now))

	res, err := g.RegisterPlay(ctx, "s", "sess")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, Result{Incremented: false, Plays: 3}, res)

	songs.incErr = nil
	res, err = g.RegisterPlay(ctx, "s", "sess")
	require.NoError(t, err)
	assert.False(t, res.Incremented, "retry must not count again")
	assert.Equal(t, int32(0), atomic.LoadInt32(&songs.increases))
}

func TestRegisterPlay_LookupAndRegistryErrors(t *testing.T) {
	ctx := context.Background()
	songs := newFakeSongs(&model.Song{ID: "s", Published: true})

	g := NewGuard(songs, failingRegistry{})
	_, err := g.RegisterPlay(ctx, "s", "sess")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, int32(0), atomic.LoadInt32(&songs.increases))

	songs.getErr = errors.New("timeout")
	_, err = g.RegisterPlay(ctx, "s", "sess")
	assert.ErrorIs(t, err, ErrPersistence)
}

// racingRegistry lets another session's increment land between the guard's
// lookup and its claim.
type racingRegistry struct {
	songs *fakeSongs
	id    string
}

func (r racingRegistry) Claim(ctx context.Context, _ string) (bool, error) {
	if _, err := r.songs.IncrementPlays(ctx, r.id); err != nil {
		return false, err
	}
	return false, nil
}

func TestRegisterPlay_DuplicateReportsCountAfterClaim(t *testing.T) {
	songs := newFakeSongs(&model.Song{ID: "song-1", Published: true, Plays: 7})
	g := NewGuard(songs, racingRegistry{songs: songs, id: "song-1"})

	res, err := g.RegisterPlay(context.Background(), "song-1", "sess-A")
	require.NoError(t, err)
	assert.False(t, res.Incremented)
	assert.Equal(t, 8, res.Plays)
}
