package drift

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aiir/internal/container"
	"github.com/roach88/aiir/internal/corpus"
)

func writeCore(t *testing.T, dir string, seed uint32) {
	t.Helper()
	for i, stem := range corpus.WatchedStems {
		require.NoError(t, container.WriteWordsFile(corpus.CorePath(dir, stem), []uint32{seed, uint32(i)}))
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	dir := t.TempDir()
	empty := Fingerprint(dir)

	writeCore(t, dir, 1)
	one := Fingerprint(dir)
	assert.NotEqual(t, empty, one)
	assert.Equal(t, one, Fingerprint(dir))

	// adapt.ids is not watched
	require.NoError(t, container.WriteWordsFile(corpus.CorePath(dir, corpus.AdaptIDsStem), []uint32{9}))
	assert.Equal(t, one, Fingerprint(dir))

	writeCore(t, dir, 2)
	assert.NotEqual(t, one, Fingerprint(dir))
}

func TestTickChecksEveryN(t *testing.T) {
	dir := t.TempDir()
	writeCore(t, dir, 1)
	m, err := New(dir, 3)
	require.NoError(t, err)

	writeCore(t, dir, 2)
	m.Tick()
	m.Tick()
	assert.Equal(t, Counts{Checks: 2}, m.Counts())
	m.Tick()
	assert.Equal(t, Counts{Checks: 3, Drift: 1}, m.Counts())

	// the new content is the new base
	for range 3 {
		m.Tick()
	}
	assert.Equal(t, Counts{Checks: 6, Drift: 1}, m.Counts())
}

func TestNewDefaultsInterval(t *testing.T) {
	m, err := New(t.TempDir(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultCheckEvery), m.every)
}

func TestCheckIgnoresUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeCore(t, dir, 1)
	m, err := New(dir, 1)
	require.NoError(t, err)

	assert.False(t, m.Check())
	writeCore(t, dir, 1)
	assert.False(t, m.Check())
	require.NoError(t, os.Remove(corpus.CorePath(dir, corpus.LiteBlobStem)))
	assert.True(t, m.Check())
}

func TestConcurrentTicks(t *testing.T) {
	dir := t.TempDir()
	writeCore(t, dir, 1)
	m, err := New(dir, 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.Tick()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, Counts{Checks: 800}, m.Counts())
}

func TestWatchDetectsWrites(t *testing.T) {
	dir := t.TempDir()
	writeCore(t, dir, 1)
	m, err := New(dir, DefaultCheckEvery)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// the watcher may not be registered yet, so keep writing new content
	seed := uint32(2)
	assert.Eventually(t, func() bool {
		for _, stem := range corpus.WatchedStems {
			_ = container.WriteWordsFile(corpus.CorePath(dir, stem), []uint32{seed})
		}
		seed++
		return m.Counts().Drift > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchMissingDir(t *testing.T) {
	dir := t.TempDir()
	writeCore(t, dir, 1)
	m, err := New(dir, 1)
	require.NoError(t, err)
	m.coreDir = dir + "/gone"

	assert.Error(t, m.Watch(context.Background()))
}
