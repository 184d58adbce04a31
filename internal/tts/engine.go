// Package tts synthesizes text into audio through an OpenAI-compatible
// speech endpoint, with bounded retry under rate limiting.
package tts

import "context"

// Engine converts text to encoded audio.
type Engine interface {
	// Synthesize converts text to audio bytes. Implementations own
	// their retry policy; a returned error is final for this text.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Validate checks that the engine is properly configured.
	Validate() error

	// Close releases resources held by the engine.
	Close() error
}

// EngineInfo describes an engine's configuration and output.
type EngineInfo struct {
	Name         string
	Model        string
	Voice        string
	OutputFormat string
	MaxTextSize  int
	IsOnline     bool
}

// Voice describes one synthesis voice.
type Voice struct {
	ID          string
	Gender      string
	Description string
}

// Voices returns the voice table the synthesis endpoint understands.
func Voices() []Voice {
	return []Voice{
		{ID: "alloy", Gender: "neutral", Description: "balanced, versatile"},
		{ID: "echo", Gender: "male", Description: "clear"},
		{ID: "fable", Gender: "female", Description: "expressive, British accent"},
		{ID: "onyx", Gender: "male", Description: "deep, authoritative"},
		{ID: "nova", Gender: "female", Description: "warm, friendly"},
		{ID: "shimmer", Gender: "female", Description: "soft, calm"},
	}
}

// KnownVoice reports whether id appears in the voice table.
func KnownVoice(id string) bool {
	for _, v := range Voices() {
		if v.ID == id {
			return true
		}
	}
	return false
}
