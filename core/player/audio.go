package player

// AudioOutput is the single media resource owned by the controller.
//
// Implementations report progress through the MediaListener they were given
// and must never call it synchronously from inside one of these methods: the
// controller holds its lock while calling them.
type AudioOutput interface {
	// Load starts fetching url. MediaLoaded or MediaFailed follows.
	Load(url string) error
	// Play starts or resumes audible output. It fails if nothing is loaded
	// or the device refuses to start.
	Play() error
	Pause()
	// Seek moves to seconds and returns the clamped position actually used.
	Seek(seconds float64) float64
	// SetVolume takes a level in [0,1].
	SetVolume(level float64)
	Close() error
}

// MediaListener receives media lifecycle events. Every event carries the URL
// it belongs to so late events from a replaced track can be dropped.
type MediaListener interface {
	MediaLoaded(url string, durationSeconds float64)
	MediaProgress(url string, positionSeconds float64)
	MediaEnded(url string)
	MediaFailed(url string, err error)
}
