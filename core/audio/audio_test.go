package audio

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaKind(t *testing.T) {
	assert.Equal(t, "mp3", mediaKind("http://x/a.bin", "audio/mpeg"))
	assert.Equal(t, "wav", mediaKind("http://x/a.bin", "audio/x-wav; charset=binary"))
	assert.Equal(t, "mp3", mediaKind("http://x/a.MP3?sig=1", "application/octet-stream"))
	assert.Equal(t, "wav", mediaKind("http://x/a.wav", ""))
	assert.Equal(t, "", mediaKind("http://x/a.ogg", ""))
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, 0.0, levelToVolume(1))
	assert.Equal(t, 0.0, levelToVolume(3))
	assert.Equal(t, -1.0, levelToVolume(0.5))
	assert.Equal(t, -2.0, levelToVolume(0.25))
	assert.Equal(t, -10.0, levelToVolume(0))
}

func sineWAV(t *testing.T, seconds int) []byte {
	t.Helper()
	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	phase := 0.0
	tone := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := 0.3 * math.Sin(phase)
			samples[i] = [2]float64{v, v}
			phase += 2 * math.Pi * 440 / float64(format.SampleRate)
		}
		return len(samples), true
	})

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.Encode(f, beep.Take(format.SampleRate.N(time.Duration(seconds)*time.Second), tone), format))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestFetchAndDecodeWAV(t *testing.T) {
	data := sineWAV(t, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(data)
	}))
	defer srv.Close()

	body, ct, err := fetch(t.Context(), srv.Client(), srv.URL+"/tone")
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", ct)

	streamer, format, err := decode(body, srv.URL+"/tone", ct)
	require.NoError(t, err)
	defer streamer.Close()
	assert.Equal(t, beep.SampleRate(22050), format.SampleRate)
	assert.InDelta(t, 2.0, format.SampleRate.D(streamer.Len()).Seconds(), 0.01)
}

func TestDecode_Unsupported(t *testing.T) {
	_, _, err := decode([]byte("x"), "http://x/a.ogg", "audio/ogg")
	assert.Error(t, err)
}

type recordingListener struct {
	mu     sync.Mutex
	loaded int
	ended  int
	failed []string
	err    error
}

func (r *recordingListener) MediaLoaded(string, float64) {
	r.mu.Lock()
	r.loaded++
	r.mu.Unlock()
}

func (r *recordingListener) MediaProgress(string, float64) {}

func (r *recordingListener) MediaEnded(string) {
	r.mu.Lock()
	r.ended++
	r.mu.Unlock()
}

func (r *recordingListener) counts() (loaded, ended int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded, r.ended
}
func (r *recordingListener) MediaFailed(url string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, url)
	r.err = err
}

func TestSpeaker_LoadFailureIsReportedAsync(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := NewSpeaker(srv.Client())
	defer s.Close()

	url := srv.URL + "/missing.mp3"
	require.NoError(t, s.Load(url))

	// events raised before a listener exists are queued
	l := &recordingListener{}
	s.SetListener(l)

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.failed) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, url, l.failed[0])
	assert.Error(t, l.err)
}

func TestSpeaker_NothingLoaded(t *testing.T) {
	s := NewSpeaker(nil)
	defer s.Close()

	assert.True(t, errors.Is(s.Play(), errNothingLoaded))
	assert.Equal(t, 0.0, s.Seek(10))
	assert.NotPanics(t, s.Pause)
	assert.NotPanics(t, func() { s.SetVolume(0.5) })
	assert.NoError(t, s.Close())
}

// fakeDevice mixes like beep's speaker: queued streamers are dropped once
// they report the end of their data.
type fakeDevice struct {
	mu     sync.Mutex
	queued []beep.Streamer
	played int
}

func (d *fakeDevice) Init() error { return nil }
func (d *fakeDevice) Lock()       { d.mu.Lock() }
func (d *fakeDevice) Unlock()     { d.mu.Unlock() }

func (d *fakeDevice) Play(s beep.Streamer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = append(d.queued, s)
	d.played++
}

func (d *fakeDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queued = nil
}

// mix streams up to n samples through every queued streamer and returns how
// many non-silent samples came out.
func (d *fakeDevice) mix(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([][2]float64, 512)
	audible := 0
	for done := 0; done < n && len(d.queued) > 0; done += len(buf) {
		var keep []beep.Streamer
		for _, s := range d.queued {
			got, ok := s.Stream(buf)
			for _, sample := range buf[:got] {
				if sample[0] != 0 || sample[1] != 0 {
					audible++
				}
			}
			if ok {
				keep = append(keep, s)
			}
		}
		d.queued = keep
	}
	return audible
}

func (d *fakeDevice) plays() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.played
}

func TestSpeaker_PlayAfterEndRestarts(t *testing.T) {
	data := sineWAV(t, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(data)
	}))
	defer srv.Close()

	dev := &fakeDevice{}
	s := NewSpeaker(srv.Client())
	s.dev = dev
	defer s.Close()
	l := &recordingListener{}
	s.SetListener(l)

	require.NoError(t, s.Load(srv.URL+"/tone.wav"))
	require.Eventually(t, func() bool {
		loaded, _ := l.counts()
		return loaded == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, dev.plays())

	// a second of 22050Hz audio is about 44100 device samples
	require.NoError(t, s.Play())
	assert.Greater(t, dev.mix(100000), 40000)
	require.Eventually(t, func() bool {
		_, ended := l.counts()
		return ended == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Play())
	assert.Equal(t, 2, dev.plays(), "drained stream is queued again")
	assert.Greater(t, dev.mix(100000), 40000, "restarted from the beginning")
	require.Eventually(t, func() bool {
		_, ended := l.counts()
		return ended == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSpeaker_SeekRepositionsResampledStream(t *testing.T) {
	data := sineWAV(t, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(data)
	}))
	defer srv.Close()

	dev := &fakeDevice{}
	s := NewSpeaker(srv.Client())
	s.dev = dev
	defer s.Close()
	l := &recordingListener{}
	s.SetListener(l)

	require.NoError(t, s.Load(srv.URL+"/tone.wav"))
	require.Eventually(t, func() bool {
		loaded, _ := l.counts()
		return loaded == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Play())
	dev.mix(4410)
	s.Pause()

	assert.InDelta(t, 1.5, s.Seek(1.5), 0.01)
	require.NoError(t, s.Play())
	// only the last half second is left
	audible := dev.mix(200000)
	assert.InDelta(t, 22050, audible, 2000)
}
