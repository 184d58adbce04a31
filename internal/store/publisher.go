// Package store publishes audio objects and derives their public URLs.
package store

import (
	"context"
	"fmt"
)

// Publisher persists audio bytes under a key and yields a publicly
// resolvable URL.
type Publisher interface {
	Publish(ctx context.Context, key string, data []byte) (string, error)
	BaseURL() string
}

// KeyMaker builds deterministic per-row object keys. A rerun produces
// the same key, so publishing overwrites instead of accumulating.
type KeyMaker struct {
	// Prefix defaults to "tts_audio_row"
	Prefix string

	// Ext defaults to ".mp3"
	Ext string
}

// ObjectKey returns {prefix}{row}{ext} for a 1-based sheet row.
func (k KeyMaker) ObjectKey(row int64) string {
	prefix := k.Prefix
	if prefix == "" {
		prefix = "tts_audio_row"
	}
	ext := k.Ext
	if ext == "" {
		ext = ".mp3"
	}
	return fmt.Sprintf("%s%d%s", prefix, row, ext)
}
