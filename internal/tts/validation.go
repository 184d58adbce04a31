package tts

import (
	"fmt"
	"net/url"
)

// ValidationResult contains the result of engine validation
type ValidationResult struct {
	// Available indicates the engine is configured well enough to run
	Available bool

	// Error contains any validation error
	Error error

	// Guidance provides setup instructions if validation failed
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}

// ValidateConfig checks a speech engine configuration without making a
// network call. It verifies endpoint and key presence and the URL
// shape, and fills guidance strings for anything missing.
func ValidateConfig(config Config) *ValidationResult {
	result := &ValidationResult{
		Details: make(map[string]string),
	}

	if config.URL == "" {
		result.Error = ErrNoEndpoint
		result.Guidance = buildEndpointGuidance()
		return result
	}

	u, err := url.Parse(config.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.Error = fmt.Errorf("synthesis endpoint %q is not an absolute http(s) URL", config.URL)
		result.Guidance = buildEndpointGuidance()
		return result
	}
	result.Details["endpoint"] = config.URL

	if config.APIKey == "" {
		result.Error = ErrNoAPIKey
		result.Guidance = buildAPIKeyGuidance()
		return result
	}
	result.Details["api_key"] = "set"

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	result.Details["model"] = model

	voice := config.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	result.Details["voice"] = voice
	if !KnownVoice(voice) {
		result.Details["voice_note"] = fmt.Sprintf("voice %q is not in the known voice table; the endpoint may reject it", voice)
	}

	result.Available = true
	return result
}

// buildEndpointGuidance provides instructions for configuring the
// synthesis endpoint
func buildEndpointGuidance() string {
	return `No synthesis endpoint configured. Set one via the environment:

  export SHEETVOX_TTS_URL="https://your-resource.openai.azure.com/openai/deployments/tts/audio/speech"

The URL must be the full speech endpoint, including scheme and host.
Run "sheetvox voices" to list the voices the endpoint understands.`
}

// buildAPIKeyGuidance provides instructions for configuring the
// synthesis API key
func buildAPIKeyGuidance() string {
	return `No synthesis API key configured. Set one via the environment:

  export SHEETVOX_TTS_API_KEY="your-api-key"

The key is sent in the api-key request header. Keys are read from the
environment only and are never written to the config file.`
}
