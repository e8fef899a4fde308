// Package audio plays songs on the local sound device through beep.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"Melodia/core/player"
	"Melodia/logger"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	progressInterval = 250 * time.Millisecond
	deviceRate       = beep.SampleRate(44100)
)

var errNothingLoaded = errors.New("no media loaded")

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(deviceRate, deviceRate.N(time.Second/10))
	})
	return speakerErr
}

// device is the sound card the mixer feeds. Streamers handed to Play are
// dropped by the mixer once they drain.
type device interface {
	Init() error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Clear()
}

type beepDevice struct{}

func (beepDevice) Init() error          { return initSpeaker() }
func (beepDevice) Play(s beep.Streamer) { speaker.Play(s) }
func (beepDevice) Lock()                { speaker.Lock() }
func (beepDevice) Unlock()              { speaker.Unlock() }
func (beepDevice) Clear()               { speaker.Clear() }

// Speaker implements player.AudioOutput on the default sound device.
// Events are queued and delivered in order from a dedicated goroutine.
type Speaker struct {
	http *http.Client
	dev  device

	mu       sync.Mutex
	url      string
	gen      int // bumped on every Load; stale loads drop their result
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	playing  bool
	// drained is set once the mixer dropped the stream at its end.
	drained bool

	events       chan func(player.MediaListener)
	listenerOnce sync.Once
	done         chan struct{}
	closeOnce    sync.Once
}

func NewSpeaker(client *http.Client) *Speaker {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	s := &Speaker{
		http:   client,
		dev:    beepDevice{},
		level:  1,
		events: make(chan func(player.MediaListener), 64),
		done:   make(chan struct{}),
	}
	go s.progressLoop()
	return s
}

// SetListener starts event delivery. Events raised earlier are kept until then.
func (s *Speaker) SetListener(l player.MediaListener) {
	s.listenerOnce.Do(func() {
		go func() {
			for {
				select {
				case ev := <-s.events:
					ev(l)
				case <-s.done:
					return
				}
			}
		}()
	})
}

func (s *Speaker) emit(ev func(player.MediaListener)) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// emitProgress drops the update when the queue is busy.
func (s *Speaker) emitProgress(ev func(player.MediaListener)) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Speaker) Load(url string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.url = url
	s.releaseLocked()
	s.mu.Unlock()

	go s.load(gen, url)
	return nil
}

func (s *Speaker) load(gen int, url string) {
	data, contentType, err := fetch(context.Background(), s.http, url)
	var streamer beep.StreamSeekCloser
	var format beep.Format
	if err == nil {
		streamer, format, err = decode(data, url, contentType)
	}
	if err == nil {
		err = s.dev.Init()
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if streamer != nil {
			streamer.Close()
		}
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.emit(func(l player.MediaListener) { l.MediaFailed(url, err) })
		return
	}

	s.streamer = streamer
	s.format = format
	duration := format.SampleRate.D(streamer.Len()).Seconds()
	s.queueLocked(true)
	s.mu.Unlock()

	s.emit(func(l player.MediaListener) { l.MediaLoaded(url, duration) })
}

// queueLocked hands a fresh control chain over the current stream to the
// mixer. It is needed once per load and again after the stream drained.
func (s *Speaker) queueLocked(paused bool) {
	gen, url := s.gen, s.url
	s.ctrl = &beep.Ctrl{Streamer: s.resampled(), Paused: paused}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2, Volume: levelToVolume(s.level), Silent: s.level <= 0}
	s.drained = false
	s.dev.Play(beep.Seq(s.volume, beep.Callback(func() {
		// runs on the mixer goroutine with the device lock held
		go s.finished(gen, url)
	})))
}

// resampled adapts the stream to the device rate. A resampler tracks its own
// read position, so a new one is built whenever the stream is repositioned.
func (s *Speaker) resampled() beep.Streamer {
	if s.format.SampleRate == deviceRate {
		return s.streamer
	}
	return beep.Resample(4, s.format.SampleRate, deviceRate, s.streamer)
}

func (s *Speaker) finished(gen int, url string) {
	s.mu.Lock()
	current := gen == s.gen
	if current {
		s.playing = false
		s.drained = true
	}
	s.mu.Unlock()
	if current {
		s.emit(func(l player.MediaListener) { l.MediaEnded(url) })
	}
}

// Play resumes output. A drained stream is requeued, from the start when it
// is still positioned at its end.
func (s *Speaker) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return errNothingLoaded
	}
	if s.drained {
		s.dev.Lock()
		var err error
		if s.streamer.Position() >= s.streamer.Len()-1 {
			err = s.streamer.Seek(0)
		}
		s.dev.Unlock()
		if err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
		s.queueLocked(false)
		s.playing = true
		return nil
	}
	s.dev.Lock()
	s.ctrl.Paused = false
	s.dev.Unlock()
	s.playing = true
	return nil
}

func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return
	}
	s.dev.Lock()
	s.ctrl.Paused = true
	s.dev.Unlock()
	s.playing = false
}

func (s *Speaker) Seek(seconds float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	n := s.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if n < 0 {
		n = 0
	}
	if last := s.streamer.Len() - 1; n > last {
		n = last
	}
	s.dev.Lock()
	err := s.streamer.Seek(n)
	pos := s.streamer.Position()
	if err == nil && !s.drained {
		s.ctrl.Streamer = s.resampled()
	}
	s.dev.Unlock()
	if err != nil {
		logger.Warn("[Audio] seek failed", logger.ErrorField(err))
	}
	return s.format.SampleRate.D(pos).Seconds()
}

// SetVolume maps a linear level onto beep's base-2 volume.
func (s *Speaker) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	if s.volume == nil {
		return
	}
	s.dev.Lock()
	s.volume.Volume = levelToVolume(level)
	s.volume.Silent = level <= 0
	s.dev.Unlock()
}

func (s *Speaker) progressLoop() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if !s.playing || s.streamer == nil {
				s.mu.Unlock()
				continue
			}
			url := s.url
			s.dev.Lock()
			pos := s.format.SampleRate.D(s.streamer.Position()).Seconds()
			s.dev.Unlock()
			s.mu.Unlock()
			s.emitProgress(func(l player.MediaListener) { l.MediaProgress(url, pos) })
		case <-s.done:
			return
		}
	}
}

// releaseLocked stops and frees the current stream.
func (s *Speaker) releaseLocked() {
	if s.streamer == nil {
		return
	}
	s.dev.Clear()
	s.streamer.Close()
	s.streamer = nil
	s.ctrl = nil
	s.volume = nil
	s.playing = false
	s.drained = false
}

func (s *Speaker) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.gen++
		s.releaseLocked()
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

// levelToVolume maps 1 -> 0, 0.5 -> -1, 0.25 -> -2 and 0 -> -10.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
