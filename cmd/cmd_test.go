package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Melodia/core/player"
	"Melodia/model"
	"Melodia/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeControls struct {
	order   []model.Song
	current *model.Song
	state   player.State
	volume  float64
	calls   []string
}

func (f *fakeControls) ReloadOrder(context.Context) error {
	f.calls = append(f.calls, "reload")
	return nil
}

func (f *fakeControls) Order() []model.Song { return f.order }

func (f *fakeControls) PlayTrack(s *model.Song) {
	f.calls = append(f.calls, "play:"+s.ID)
	f.current = s
	f.state = player.StatePlaying
}

func (f *fakeControls) Next()               { f.calls = append(f.calls, "next") }
func (f *fakeControls) Previous()           { f.calls = append(f.calls, "prev") }
func (f *fakeControls) TogglePlayPause()    { f.calls = append(f.calls, "toggle") }
func (f *fakeControls) Seek(float64)        { f.calls = append(f.calls, "seek") }
func (f *fakeControls) SetVolume(v float64) { f.volume = v }

func (f *fakeControls) Stop() {
	f.calls = append(f.calls, "stop")
	f.current = nil
}

func (f *fakeControls) Status() player.Status {
	return player.Status{State: f.state, Song: f.current, Volume: f.volume}
}

func TestConsole_Commands(t *testing.T) {
	fake := &fakeControls{order: []model.Song{
		{ID: "a", Title: "Alpha", Duration: 61},
		{ID: "b", Title: "Beta", Duration: 125},
	}}
	var out bytes.Buffer
	c := &console{player: fake, out: &out}

	script := "list\nplay 2\nplay 9\ntoggle\nnext\nprev\nseek 30\nseek x\nvol 50\nbogus\nstop\nquit\nnext\n"
	c.run(context.Background(), strings.NewReader(script))

	assert.Equal(t, []string{"play:b", "toggle", "next", "prev", "seek", "stop"}, fake.calls)
	assert.InDelta(t, 0.5, fake.volume, 1e-9)
	text := out.String()
	assert.Contains(t, text, "  2  Beta")
	assert.Contains(t, text, "2:05")
	assert.Contains(t, text, "usage: play N (1-2)")
	assert.Contains(t, text, "usage: seek SECONDS")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Contains(t, text, "volume 50%")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0:00", formatSeconds(-3))
	assert.Equal(t, "1:01", formatSeconds(61.9))
	assert.Equal(t, "62:00", formatSeconds(3720))
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Admin{}))

	admins := repository.NewGormAdminRepository(db)
	ctx := context.Background()

	first, created, err := seedAdmin(ctx, admins, "owner", "s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "s3cret", first.PasswordHash)

	again, created, err := seedAdmin(ctx, admins, "owner", "other", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestOpenListenSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "player.db")
	session, err := openListenSession("http://127.0.0.1:1/api", path, true)
	require.NoError(t, err)

	st := session.ctrl.Status()
	assert.Equal(t, player.StateIdle, st.State)
	assert.Nil(t, st.Song)
	session.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "snapshot file is created")
}

func TestOpenListenSession_BadSnapshotPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := openListenSession("http://127.0.0.1:1/api", filepath.Join(blocker, "player.db"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open snapshot store")
}
