// Package cache stores synthesized audio on disk, keyed by the text
// and synthesis settings that produced it. A rerun of the same sheet
// republishes every row, but cached rows skip the remote synthesis
// call entirely.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	// DefaultMaxBytes caps the cache directory at 256 MB.
	DefaultMaxBytes = 256 << 20

	// Compressing tiny payloads is not worth the header overhead.
	minCompressSize = 1024

	indexFile = "cache.index"
)

// Config holds configuration for the audio cache.
type Config struct {
	// Dir is the cache directory; created if missing
	Dir string

	// MaxBytes caps the on-disk size (defaults to DefaultMaxBytes)
	MaxBytes int64

	// DisableCompression stores entries raw. Compression is applied
	// only when it shrinks the entry, so compressed formats like mp3
	// stay raw either way.
	DisableCompression bool
}

// AudioCache is a disk cache with zstd compression and oldest-access
// eviction. The index is persisted across runs.
type AudioCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*cacheEntry
	mu    sync.RWMutex

	stats Stats
}

// cacheEntry is one record of the persisted index
type cacheEntry struct {
	Key          string
	FilePath     string
	Size         int64 // Size on disk (possibly compressed)
	OriginalSize int64
	Timestamp    time.Time
	LastAccess   time.Time
	Hits         int64
	Compressed   bool
}

// New creates an audio cache rooted at config.Dir, loading any index
// a previous run left behind.
func New(config Config) (*AudioCache, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("cache directory not set")
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultMaxBytes
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &AudioCache{
		dir:      config.Dir,
		capacity: config.MaxBytes,
		index:    make(map[string]*cacheEntry),
		stats:    Stats{Capacity: config.MaxBytes},
	}

	if !config.DisableCompression {
		var err error
		c.encoder, err = zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		c.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	// A missing or corrupted index just means starting empty.
	if err := c.loadIndex(); err != nil {
		c.index = make(map[string]*cacheEntry)
	}
	c.recalculateSize()

	return c, nil
}

// GenerateKey derives the cache key for one synthesis request. Every
// setting that changes the audio is part of the key.
func GenerateKey(text, model, voice, format string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", text, model, voice, format)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// Get retrieves audio bytes from the cache.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		// File missing or unreadable, drop the entry
		delete(c.index, key)
		c.size -= entry.Size
		c.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		if c.decoder == nil {
			delete(c.index, key)
			c.size -= entry.Size
			c.stats.Misses++
			return nil, false
		}
		decompressed, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			delete(c.index, key)
			os.Remove(entry.FilePath)
			c.size -= entry.Size
			c.stats.Misses++
			return nil, false
		}
		data = decompressed
	}

	entry.LastAccess = time.Now()
	entry.Hits++

	c.stats.Hits++
	c.stats.LastAccess = time.Now()

	return data, true
}

// Put stores audio bytes under key, evicting oldest-accessed entries
// if the cache would exceed capacity.
func (c *AudioCache) Put(key string, audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	originalSize := int64(len(audio))

	toWrite := audio
	compressed := false
	if c.encoder != nil && originalSize > minCompressSize {
		candidate := c.encoder.EncodeAll(audio, nil)
		// Keep compression only when it actually shrinks the entry
		if len(candidate) < len(audio) {
			toWrite = candidate
			compressed = true
		}
	}

	diskSize := int64(len(toWrite))
	if diskSize > c.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := c.index[key]; ok {
		c.size -= existing.Size
		os.Remove(existing.FilePath)
	}

	for c.size+diskSize > c.capacity && len(c.index) > 0 {
		c.evictOldest()
	}

	path := c.entryPath(key)
	if err := writeFileAtomic(path, toWrite); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	c.index[key] = &cacheEntry{
		Key:          key,
		FilePath:     path,
		Size:         diskSize,
		OriginalSize: originalSize,
		Timestamp:    now,
		LastAccess:   now,
		Compressed:   compressed,
	}
	c.size += diskSize

	return nil
}

// Clear removes every entry and persists the empty index.
func (c *AudioCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.index {
		os.Remove(entry.FilePath)
	}
	c.index = make(map[string]*cacheEntry)
	c.size = 0

	return c.saveIndex()
}

// Size returns the current on-disk size in bytes.
func (c *AudioCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Stats returns cache statistics.
func (c *AudioCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.index))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Close persists the index.
func (c *AudioCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndex()
}

func (c *AudioCache) entryPath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:16])+".cache")
}

// evictOldest drops the entry with the oldest last access. Callers
// hold the lock.
func (c *AudioCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.index {
		if oldestKey == "" || entry.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccess
		}
	}
	if oldestKey == "" {
		return
	}

	entry := c.index[oldestKey]
	os.Remove(entry.FilePath)
	c.size -= entry.Size
	delete(c.index, oldestKey)
	c.stats.Evictions++
	c.stats.LastEvict = time.Now()
}

func (c *AudioCache) loadIndex() error {
	file, err := os.Open(filepath.Join(c.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&c.index)
}

func (c *AudioCache) saveIndex() error {
	path := filepath.Join(c.dir, indexFile)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(c.index)
	closeErr := file.Close()
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}

func (c *AudioCache) recalculateSize() {
	c.size = 0
	for _, entry := range c.index {
		c.size += entry.Size
	}
}

// writeFileAtomic writes to a temp file then renames into place.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()
	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}
