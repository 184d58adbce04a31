package cache

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	base := GenerateKey("hello", "gpt-4", "nova", "mp3")

	if base == "" {
		t.Fatal("GenerateKey returned empty key")
	}
	if again := GenerateKey("hello", "gpt-4", "nova", "mp3"); again != base {
		t.Errorf("same inputs produced different keys: %s vs %s", base, again)
	}

	variants := []struct {
		name                       string
		text, model, voice, format string
	}{
		{"text", "goodbye", "gpt-4", "nova", "mp3"},
		{"model", "hello", "tts-1", "nova", "mp3"},
		{"voice", "hello", "gpt-4", "onyx", "mp3"},
		{"format", "hello", "gpt-4", "nova", "wav"},
	}
	for _, tt := range variants {
		t.Run(tt.name, func(t *testing.T) {
			if key := GenerateKey(tt.text, tt.model, tt.voice, tt.format); key == base {
				t.Errorf("changing %s did not change the key", tt.name)
			}
		})
	}
}

func TestAudioCache_Roundtrip(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	audio := []byte("mp3-bytes")
	key := GenerateKey("hello", "gpt-4", "nova", "mp3")

	if err := c.Put(key, audio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get missed immediately after Put")
	}
	if !bytes.Equal(got, audio) {
		t.Errorf("Get = %q, want %q", got, audio)
	}
}

func TestAudioCache_Miss(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get("no-such-key"); ok {
		t.Error("Get returned ok for an absent key")
	}

	stats := c.Stats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestAudioCache_PersistsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	key := GenerateKey("hello", "gpt-4", "nova", "mp3")
	audio := bytes.Repeat([]byte("audio "), 1000)

	c, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Put(key, audio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New after Close failed: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get(key)
	if !ok {
		t.Fatal("entry did not survive reopen")
	}
	if !bytes.Equal(got, audio) {
		t.Error("reopened entry does not match original audio")
	}
}

func TestAudioCache_CompressionShrinksOnDisk(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	// Highly repetitive, like silence in a wav payload.
	audio := bytes.Repeat([]byte{0}, 64*1024)

	if err := c.Put("silence", audio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if c.Size() >= int64(len(audio)) {
		t.Errorf("on-disk size %d not smaller than input %d", c.Size(), len(audio))
	}

	got, ok := c.Get("silence")
	if !ok {
		t.Fatal("Get missed")
	}
	if !bytes.Equal(got, audio) {
		t.Error("decompressed audio does not match original")
	}
}

func TestAudioCache_EvictsOldestAccess(t *testing.T) {
	c, err := New(Config{
		Dir:                t.TempDir(),
		MaxBytes:           3 * 1024,
		DisableCompression: true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	payload := bytes.Repeat([]byte("a"), 1024)
	for _, key := range []string{"first", "second", "third"} {
		if err := c.Put(key, payload); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}

	// Fourth entry exceeds capacity; "first" has the oldest access.
	if err := c.Put("fourth", payload); err != nil {
		t.Fatalf("Put(fourth) failed: %v", err)
	}

	if _, ok := c.Get("first"); ok {
		t.Error("oldest entry survived eviction")
	}
	for _, key := range []string{"second", "third", "fourth"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q was evicted unexpectedly", key)
		}
	}

	if stats := c.Stats(); stats.Evictions == 0 {
		t.Error("Evictions = 0, want at least 1")
	}
}

func TestAudioCache_ItemTooLarge(t *testing.T) {
	c, err := New(Config{
		Dir:                t.TempDir(),
		MaxBytes:           100,
		DisableCompression: true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	err = c.Put("huge", bytes.Repeat([]byte("a"), 200))
	if !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put error = %v, want ErrItemTooLarge", err)
	}
}

func TestAudioCache_Clear(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	for _, key := range []string{"one", "two"} {
		if err := c.Put(key, []byte("audio")); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if stats := c.Stats(); stats.ItemCount != 0 || stats.Size != 0 {
		t.Errorf("after Clear: ItemCount=%d Size=%d, want 0/0", stats.ItemCount, stats.Size)
	}
	if _, ok := c.Get("one"); ok {
		t.Error("entry survived Clear")
	}
}

func TestAudioCache_Stats(t *testing.T) {
	c, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if err := c.Put("key", []byte("audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	c.Get("key")
	c.Get("key")
	c.Get("absent")

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if want := 2.0 / 3.0; stats.HitRate < want-0.01 || stats.HitRate > want+0.01 {
		t.Errorf("HitRate = %f, want about %f", stats.HitRate, want)
	}
	if stats.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", stats.ItemCount)
	}
}

func TestNew_RequiresDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without a directory should fail")
	}
}
