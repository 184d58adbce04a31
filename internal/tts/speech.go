package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/sheetvox/internal/cache"
)

// Defaults for the speech engine. Model and output format are the
// strings the hosted speech deployment expects verbatim.
const (
	DefaultModel        = "gpt-4"
	DefaultVoice        = "nova"
	DefaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	DefaultMaxRetries   = 3

	defaultTimeout           = 30 * time.Second
	defaultRequestsPerMinute = 50

	// Endpoints reject very long inputs; fail fast instead.
	maxTextSize = 5000

	// Error bodies are short JSON envelopes; cap reads defensively.
	maxErrorBodySize = 4096
)

// Config holds configuration for the speech engine.
type Config struct {
	// URL of the synthesis endpoint
	URL string

	// APIKey sent in the api-key header
	APIKey string

	// Model, voice and output format are fixed per engine
	Model        string
	Voice        string
	OutputFormat string

	// MaxRetries bounds consecutive rate-limited attempts per text
	// (defaults to 3)
	MaxRetries int

	// Rate limit requests per minute client-side (defaults to 50)
	RequestsPerMinute int

	// Timeout per HTTP request (defaults to 30s)
	Timeout time.Duration

	// Cache stores synthesized audio keyed by text and settings
	// (optional)
	Cache *cache.AudioCache

	// HTTPClient overrides the default client
	HTTPClient *http.Client

	// WaitParser overrides the default rate-limit wait parser
	WaitParser WaitParser
}

// SpeechEngine implements Engine over an OpenAI-compatible HTTP
// endpoint. Each Synthesize call runs a bounded retry loop: a 429
// with a parseable wait hint sleeps then retries, anything else fails
// the call. The retry counter is local to the call.
type SpeechEngine struct {
	url          string
	apiKey       string
	model        string
	voice        string
	outputFormat string
	maxRetries   int

	client      *http.Client
	rateLimiter *rate.Limiter
	cache       *cache.AudioCache
	parseWait   WaitParser

	// sleep blocks for the rate-limit wait; swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSpeechEngine creates a speech engine, filling zero-value config
// fields with the defaults above.
func NewSpeechEngine(config Config) *SpeechEngine {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Voice == "" {
		config.Voice = DefaultVoice
	}
	if config.OutputFormat == "" {
		config.OutputFormat = DefaultOutputFormat
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaultRequestsPerMinute
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	parser := config.WaitParser
	if parser == nil {
		parser = ParseWaitSeconds
	}

	return &SpeechEngine{
		url:          config.URL,
		apiKey:       config.APIKey,
		model:        config.Model,
		voice:        config.Voice,
		outputFormat: config.OutputFormat,
		maxRetries:   config.MaxRetries,
		client:       client,
		rateLimiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		cache:        config.Cache,
		parseWait:    parser,
		sleep:        sleepContext,
	}
}

// Synthesize converts text to audio bytes.
func (e *SpeechEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > maxTextSize {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", len(text), maxTextSize)
	}

	var key string
	if e.cache != nil {
		key = cache.GenerateKey(text, e.model, e.voice, e.outputFormat)
		if audio, ok := e.cache.Get(key); ok {
			log.Debug("synthesis cache hit", "key", key, "bytes", len(audio))
			return audio, nil
		}
	}

	audio, err := e.synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		// Cache errors are non-fatal
		_ = e.cache.Put(key, audio)
	}

	return audio, nil
}

// synthesize runs the retry loop around request.
func (e *SpeechEngine) synthesize(ctx context.Context, text string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
		}

		audio, err := e.request(ctx, text)
		if err == nil {
			return audio, nil
		}

		var limited *retryableLimit
		if !errors.As(err, &limited) {
			return nil, err
		}

		if attempt >= e.maxRetries {
			return nil, &RetryExhaustedError{Attempts: attempt, LastWait: limited.wait}
		}

		log.Debug("rate limited, waiting before retry",
			"attempt", attempt,
			"max_retries", e.maxRetries,
			"wait", limited.wait)

		if err := e.sleep(ctx, limited.wait); err != nil {
			return nil, fmt.Errorf("retry wait cancelled: %w", err)
		}
	}
}

// speechRequest is the request body for the synthesis endpoint.
type speechRequest struct {
	Model        string `json:"model"`
	Input        string `json:"input"`
	Voice        string `json:"voice"`
	OutputFormat string `json:"output_format"`
}

// speechErrorResponse is the JSON envelope the endpoint wraps error
// messages in.
type speechErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// request performs one synthesis call. A 429 with a parseable wait
// hint comes back as *retryableLimit; every other failure is final.
func (e *SpeechEngine) request(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:        e.model,
		Input:        text,
		Voice:        e.voice,
		OutputFormat: e.outputFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		audio, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio response: %w", err)
		}
		if len(audio) == 0 {
			return nil, errors.New("synthesis endpoint returned no audio")
		}
		return audio, nil
	}

	message := errorMessage(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		wait, err := e.parseWait(message)
		if err != nil {
			return nil, &RateLimitParseError{Message: message}
		}
		return nil, &retryableLimit{wait: wait}
	}

	return nil, &APIError{Status: resp.StatusCode, Body: message}
}

// errorMessage extracts a readable message from an error response
// body, falling back to the raw bytes.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return ""
	}

	var envelope speechErrorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// Info returns engine capabilities and configuration.
func (e *SpeechEngine) Info() EngineInfo {
	return EngineInfo{
		Name:         "speech",
		Model:        e.model,
		Voice:        e.voice,
		OutputFormat: e.outputFormat,
		MaxTextSize:  maxTextSize,
		IsOnline:     true,
	}
}

// Validate checks that the engine is configured well enough to make
// requests. It does not call the endpoint.
func (e *SpeechEngine) Validate() error {
	result := ValidateConfig(Config{
		URL:    e.url,
		APIKey: e.apiKey,
		Model:  e.model,
		Voice:  e.voice,
	})
	if result.Error == nil {
		return nil
	}
	if result.Guidance != "" {
		return fmt.Errorf("%w\n\n%s", result.Error, result.Guidance)
	}
	return result.Error
}

// Close releases resources held by the engine.
func (e *SpeechEngine) Close() error {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			return fmt.Errorf("failed to close cache: %w", err)
		}
	}
	return nil
}

// CacheStats returns cache statistics if caching is enabled.
func (e *SpeechEngine) CacheStats() *cache.Stats {
	if e.cache == nil {
		return nil
	}
	stats := e.cache.Stats()
	return &stats
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure SpeechEngine implements the Engine interface
var _ Engine = (*SpeechEngine)(nil)
