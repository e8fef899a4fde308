package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"My Song (Live).mp3":   "my-song-live-",
		"hello__world.wav":     "hello__world",
		"a   b---c.txt":        "a-b-c",
		"../../etc/passwd":     "passwd",
		"Ünïcode Name.jpg":     "-n-code-name",
		".mp3":                 "file",
		"":                     "file",
		"xUPPER.PNG":           "xupper",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeName(in), in)
	}

	long := ""
	for i := 0; i < 80; i++ {
		long += "a"
	}
	assert.Len(t, SanitizeName(long+".mp3"), maxNameLength)
}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "audio/1700000000123-my-track.mp3", ObjectKey(FolderAudio, "My Track.MP3", now))
	assert.Equal(t, "covers/1700000000123-art", ObjectKey(FolderCovers, "art", now))
}

func TestMinioStore_KeyRoundTrip(t *testing.T) {
	m := &MinioStore{bucketName: "melodia", publicBase: "http://cdn:9000"}

	url := m.urlFor("audio/1-a.mp3")
	assert.Equal(t, "http://cdn:9000/melodia/audio/1-a.mp3", url)

	key, ok := m.keyFor(url)
	assert.True(t, ok)
	assert.Equal(t, "audio/1-a.mp3", key)

	_, ok = m.keyFor("https://elsewhere/melodia/audio/1-a.mp3")
	assert.False(t, ok)
	_, ok = m.keyFor("http://cdn:9000/melodia/")
	assert.False(t, ok)
}

func TestSummarise(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	stats := Summarise([]ObjectInfo{
		{Key: "audio/1-a.mp3", Size: 100, LastModified: t1},
		{Key: "audio/2-b.wav", Size: 50, LastModified: t2},
		{Key: "README", Size: 1, LastModified: t1},
	})

	assert.Equal(t, int64(3), stats.TotalObjects)
	assert.Equal(t, int64(151), stats.TotalSize)
	assert.Equal(t, t2, stats.LastModified)
	assert.Equal(t, int64(2), stats.ByFolder["audio"])
	assert.Equal(t, int64(1), stats.ByFolder["/"])
	assert.Equal(t, int64(1), stats.ByExtension["unknown"])
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.50 KiB", FormatSize(1536))
	assert.Equal(t, "2.00 MiB", FormatSize(2<<20))
}
