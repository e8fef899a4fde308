package cache

import "context"

// PlayRegistry remembers which (song, session) pairs were already counted.
type PlayRegistry interface {
	// Claim marks key as seen and reports whether this call was the first
	// within the window. Check and insert happen as one atomic step.
	Claim(ctx context.Context, key string) (bool, error)
}

// PlayKey joins a song id and a session id into a registry key.
func PlayKey(songID, sessionID string) string {
	return songID + ":" + sessionID
}
