package fsnotify

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corey/pmatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// fsnotify Watcher Adapter: detect file changes, trigger rescans
// Expectation: changes under the scan root reach the callback once per burst;
// VCS directories and temporary files never do.
// =============================================================================

var _ ports.Watcher = (*Watcher)(nil)

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

// startWatcher watches dir and returns the channel the callback feeds.
func startWatcher(t *testing.T, dir string, opts Options) (*Watcher, <-chan string) {
	t.Helper()
	w, err := NewWatcher(opts)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	changed := make(chan string, 32)
	require.NoError(t, w.Watch(dir, func(path string) {
		changed <- path
	}))
	// Give watcher time to start
	time.Sleep(50 * time.Millisecond)
	return w, changed
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "sample.bin")
	require.NoError(t, os.WriteFile(testFile, []byte("original"), 0644))

	_, changed := startWatcher(t, dir, Options{})

	require.NoError(t, os.WriteFile(testFile, []byte("modified"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for file change")
	assert.Equal(t, testFile, path)
}

func TestWatcher_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir, Options{})

	newFile := filepath.Join(dir, "new.dll")
	require.NoError(t, os.WriteFile(newFile, []byte("MZ"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for new file")
	assert.Equal(t, newFile, path)
}

func TestWatcher_DetectsDeletedFile(t *testing.T) {
	// Deletions fire too so a stored report can drop the file.
	dir := t.TempDir()
	testFile := filepath.Join(dir, "to_delete.bin")
	require.NoError(t, os.WriteFile(testFile, []byte("x"), 0644))

	_, changed := startWatcher(t, dir, Options{})

	require.NoError(t, os.Remove(testFile))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for deleted file")
	assert.Equal(t, testFile, path)
}

func TestWatcher_WatchesNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	_, changed := startWatcher(t, dir, Options{})

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)

	f := filepath.Join(sub, "payload.bin")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-changed:
			if p == f {
				return
			}
		case <-deadline:
			t.Fatal("no callback for file in new subdirectory")
		}
	}
}

func TestWatcher_IgnoresToolFiles(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0755))
	stateDir := filepath.Join(dir, ".pmatch")
	require.NoError(t, os.MkdirAll(stateDir, 0755))

	_, changed := startWatcher(t, dir, Options{})

	os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref"), 0644)
	os.WriteFile(filepath.Join(stateDir, "pmatch.db"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "test.swp"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "download.part"), []byte("x"), 0644)

	_, ok := waitForCallback(changed, 500*time.Millisecond)
	assert.False(t, ok, "should not have received callback for ignored files")

	regular := filepath.Join(dir, "real.bin")
	require.NoError(t, os.WriteFile(regular, []byte("x"), 0644))

	path, ok := waitForCallback(changed, 2*time.Second)
	assert.True(t, ok, "expected callback for regular file")
	assert.Equal(t, regular, path)
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "burst.bin")
	require.NoError(t, os.WriteFile(testFile, []byte("0"), 0644))

	_, changed := startWatcher(t, dir, Options{Debounce: time.Second})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(testFile, []byte{byte(i)}, 0644))
	}

	_, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok)
	_, again := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, again, "burst within debounce window should fire once")
}

func TestWatcher_StopCleanup(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(Options{})
	require.NoError(t, err)

	callCount := 0
	var mu sync.Mutex
	require.NoError(t, w.Watch(dir, func(path string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	}))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, w.Stop())

	mu.Lock()
	countAfterStop := callCount
	mu.Unlock()

	os.WriteFile(filepath.Join(dir, "after_stop.bin"), []byte("nope"), 0644)
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	countAfterWrite := callCount
	mu.Unlock()
	assert.Equal(t, countAfterStop, countAfterWrite, "callbacks fired after Stop()")

	// Double-stop should be safe
	assert.NoError(t, w.Stop())
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, err := NewWatcher(Options{})
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "absent"), func(string) {}))
}

func TestShouldIgnorePath(t *testing.T) {
	assert.True(t, shouldIgnorePath("/a/.git/config"))
	assert.True(t, shouldIgnorePath("/a/b/file.swp"))
	assert.True(t, shouldIgnorePath("/a/b/backup~"))
	assert.False(t, shouldIgnorePath("/a/b/file.exe"))
}
