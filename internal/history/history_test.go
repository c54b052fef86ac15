package history

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func lines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// touch pins the file's mtime to the fake clock, as if the write happened then.
func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestShouldReset(t *testing.T) {
	now := time.Date(2025, 9, 18, 14, 5, 0, 0, time.UTC)

	assert.True(t, ShouldReset(now, time.Time{}, false))
	assert.False(t, ShouldReset(now, now.Add(-10*time.Second), true))
	assert.False(t, ShouldReset(now, now.Add(-Window), true))
	assert.True(t, ShouldReset(now, now.Add(-Window-time.Second), true))
	assert.True(t, ShouldReset(now, now.Add(-70*time.Second), true))
}

func TestAppendAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "context.log")
	c := &clock{now: time.Date(2025, 9, 18, 14, 5, 0, 0, time.UTC)}
	log := New(path, nil, WithClock(c.Now))

	log.Append("включи свет", "Хорошо.")
	assert.Equal(t, []string{"USER: включи свет", "GLADOS: Хорошо."}, lines(t, path))
	touch(t, path, c.Now())

	c.Advance(10 * time.Second)
	log.Append("выключи свет", "Ладно.")
	assert.Len(t, lines(t, path), 4)
	touch(t, path, c.Now())

	c.Advance(70 * time.Second)
	log.Append("который час", "Поздно.")
	assert.Equal(t, []string{"USER: который час", "GLADOS: Поздно."}, lines(t, path))
}

func TestAppendTruncatesStaleFileOnFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.log")
	require.NoError(t, os.WriteFile(path, []byte("USER: old\nGLADOS: old\n"), 0o644))

	now := time.Now()
	touch(t, path, now.Add(-2*time.Minute))

	New(path, nil, WithClock(func() time.Time { return now })).Append("привет", "Опять ты.")
	assert.Equal(t, []string{"USER: привет", "GLADOS: Опять ты."}, lines(t, path))
}

func TestAppendSwallowsErrors(t *testing.T) {
	dir := t.TempDir()
	// the log path is a directory, so opening it for writing fails
	path := filepath.Join(dir, "context.log")
	require.NoError(t, os.Mkdir(path, 0o755))

	assert.NotPanics(t, func() {
		New(path, nil).Append("привет", "нет")
	})
}

func TestRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.log")
	c := &clock{now: time.Date(2025, 9, 18, 14, 5, 0, 0, time.UTC)}
	log := New(path, nil, WithClock(c.Now))

	assert.Empty(t, log.Recent())

	log.Append("привет", "Опять ты.")
	touch(t, path, c.Now())

	c.Advance(30 * time.Second)
	assert.Equal(t, "USER: привет\nGLADOS: Опять ты.\n", log.Recent())

	c.Advance(31 * time.Second)
	assert.Empty(t, log.Recent())
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.log")
	log := New(path, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append("ping", "pong")
		}()
	}
	wg.Wait()

	assert.Len(t, lines(t, path), 16)
}
