package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/corey/pmatch/internal/adapters/bbolt"
	"github.com/corey/pmatch/internal/adapters/socket"
	"github.com/corey/pmatch/internal/adapters/source"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/corey/pmatch/internal/domain/scan"
	"github.com/corey/pmatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// App wiring: pattern cache, signature scanning, watch, retrieval, daemon
// =============================================================================

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = t.TempDir()
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// fixtureTree lays out signatures and a small tree to scan.
func fixtureTree(t *testing.T) (sigDir, root string) {
	t.Helper()
	base := t.TempDir()
	sigDir = filepath.Join(base, "signatures")
	root = filepath.Join(base, "tree")

	writeFile(t, filepath.Join(sigDir, "virus1"), "EVILEVIL")
	writeFile(t, filepath.Join(sigDir, "virus2"), "\x7fELF-payload")
	writeFile(t, filepath.Join(sigDir, "virus3"), "abcdeabcdeab")

	writeFile(t, filepath.Join(root, "clean.txt"), "nothing here")
	writeFile(t, filepath.Join(root, "src", "bad.c"), "int x; EVILEVIL; abcdeabcdeabcdeab")
	writeFile(t, filepath.Join(root, "bin", "tool"), "\x7fELF-payload...EVILEVIL")
	writeFile(t, filepath.Join(root, ".git", "objects", "pack"), "EVILEVIL")
	return sigDir, root
}

func TestNew_Defaults(t *testing.T) {
	root := t.TempDir()
	a := newTestApp(t, Config{ProjectRoot: root, Workers: 0})

	assert.Equal(t, filepath.Join(root, ".pmatch", "pmatch.db"), a.Store.Path())
	assert.GreaterOrEqual(t, a.Workers(), 1)
	assert.NotNil(t, a.Log)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{ProjectRoot: t.TempDir(), Workers: -2})
	assert.Error(t, err)
}

func TestWorkersFromEnv(t *testing.T) {
	t.Setenv(EnvWorkers, "")
	n, err := WorkersFromEnv()
	require.NoError(t, err)
	assert.Zero(t, n)

	t.Setenv(EnvWorkers, "6")
	n, err = WorkersFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	for _, bad := range []string{"0", "-1", "many"} {
		t.Setenv(EnvWorkers, bad)
		_, err = WorkersFromEnv()
		assert.Error(t, err, bad)
	}
}

func TestCompilePattern_Persists(t *testing.T) {
	root := t.TempDir()
	pattern := []byte("abcdeabcdeabcdeab")

	a := newTestApp(t, Config{ProjectRoot: root})
	pt, err := a.CompilePattern(context.Background(), pattern)
	require.NoError(t, err)
	assert.Equal(t, 5, pt.Period())

	again, err := a.CompilePattern(context.Background(), pattern)
	require.NoError(t, err)
	assert.Same(t, pt, again, "memoized")

	stored, err := a.Store.LoadAnalysis(bbolt.AnalysisKey(pattern))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, pt.Analysis(), stored)
	require.NoError(t, a.Close())

	// A fresh process rebuilds the pattern from the stored tables.
	b := newTestApp(t, Config{ProjectRoot: root})
	loaded, err := b.CompilePattern(context.Background(), pattern)
	require.NoError(t, err)
	assert.Equal(t, pt.Analysis(), loaded.Analysis())
}

func TestCompilePattern_NoCache(t *testing.T) {
	a := newTestApp(t, Config{NoCache: true})
	pattern := []byte("needle")

	_, err := a.CompilePattern(context.Background(), pattern)
	require.NoError(t, err)

	stored, err := a.Store.LoadAnalysis(bbolt.AnalysisKey(pattern))
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestCompilePattern_StaleAnalysisReplaced(t *testing.T) {
	a := newTestApp(t, Config{})
	pattern := []byte("abcabcabc")
	key := bbolt.AnalysisKey(pattern)

	forged := &ports.PatternAnalysis{Length: 9, LPS: make([]int, 9), Witness: []int{0, 0, 1, 1, 1, 1}, Period: 3}
	require.NoError(t, a.Store.SaveAnalysis(key, forged))

	pt, err := a.CompilePattern(context.Background(), pattern)
	require.NoError(t, err)
	assert.Equal(t, 3, pt.Period())

	got, err := pt.Match(context.Background(), []byte("abcabcabcabc"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, got)

	stored, err := a.Store.LoadAnalysis(key)
	require.NoError(t, err)
	assert.Equal(t, pt.Analysis(), stored)
}

func TestCompilePattern_Empty(t *testing.T) {
	a := newTestApp(t, Config{})
	_, err := a.CompilePattern(context.Background(), nil)
	assert.ErrorIs(t, err, match.ErrEmptyPattern)
}

func TestLoadSignatures(t *testing.T) {
	sigDir, _ := fixtureTree(t)
	writeFile(t, filepath.Join(sigDir, ".DS_Store"), "junk")
	require.NoError(t, os.MkdirAll(filepath.Join(sigDir, "nested"), 0755))

	sigs, err := LoadSignatures(sigDir)
	require.NoError(t, err)
	require.Len(t, sigs, 3)
	assert.Equal(t, "virus1", sigs[0].Name)
	assert.Equal(t, []byte("EVILEVIL"), sigs[0].Data)
	assert.Equal(t, "virus3", sigs[2].Name)
}

func TestLoadSignatures_Errors(t *testing.T) {
	_, err := LoadSignatures(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = LoadSignatures(empty)
	assert.Error(t, err)

	writeFile(t, filepath.Join(empty, "blank"), "")
	_, err = LoadSignatures(empty)
	assert.ErrorIs(t, err, match.ErrEmptyPattern)
}

func TestScanTree(t *testing.T) {
	sigDir, root := fixtureTree(t)
	sigs, err := LoadSignatures(sigDir)
	require.NoError(t, err)

	for _, prefilter := range []bool{false, true} {
		for _, s := range match.Strategies {
			a := newTestApp(t, Config{})
			sc, err := a.NewScanner(context.Background(), sigs, s, prefilter)
			require.NoError(t, err)

			report, err := a.ScanTree(context.Background(), sc, root, source.WalkOptions{})
			require.NoError(t, err)

			assert.Equal(t, ReportName(root), report.Name)
			assert.Equal(t, s.String(), report.Strategy)
			assert.Equal(t, 3, report.Signatures)
			assert.Equal(t, 3, report.Files, ".git is skipped")
			require.Len(t, report.Hits, 2)

			bin := report.Hits[0]
			assert.Equal(t, filepath.Join(root, "bin", "tool"), bin.Path)
			require.Len(t, bin.Matches, 2)
			assert.Equal(t, "virus1", bin.Matches[0].Signature)
			assert.Equal(t, []int{15}, bin.Matches[0].Offsets)
			assert.Equal(t, "virus2", bin.Matches[1].Signature)

			src := report.Hits[1]
			require.Len(t, src.Matches, 2)
			assert.Equal(t, "virus3", src.Matches[1].Signature)
			assert.Equal(t, []int{17, 22}, src.Matches[1].Offsets)

			stored, err := a.LoadReport(root)
			require.NoError(t, err)
			assert.Equal(t, report, stored)
		}
	}
}

func TestScanTree_MissingRoot(t *testing.T) {
	sigDir, _ := fixtureTree(t)
	sigs, err := LoadSignatures(sigDir)
	require.NoError(t, err)

	a := newTestApp(t, Config{})
	sc, err := a.NewScanner(context.Background(), sigs, match.StrategySerial, true)
	require.NoError(t, err)

	_, err = a.ScanTree(context.Background(), sc, filepath.Join(t.TempDir(), "nope"), source.WalkOptions{})
	assert.Error(t, err)
}

// watchTree runs WatchTree in the background and records every update.
type watchTree struct {
	updates chan ports.FileResult
	cancel  context.CancelFunc
	done    chan error

	mu   sync.Mutex
	seen []string
}

func startWatch(t *testing.T, a *App, sc *scan.Scanner, root string, walk source.WalkOptions, report *ports.ScanReport) *watchTree {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := &watchTree{
		updates: make(chan ports.FileResult, 16),
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() {
		w.done <- a.WatchTree(ctx, sc, root, walk, report, func(r ports.FileResult) {
			w.mu.Lock()
			w.seen = append(w.seen, r.Path)
			w.mu.Unlock()
			select {
			case w.updates <- r:
			default:
			}
		})
	}()
	return w
}

// await repeats write until an update satisfying ok arrives. Writing again
// covers changes made before the watcher was up.
func (w *watchTree) await(t *testing.T, write func(), ok func(ports.FileResult) bool) ports.FileResult {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		write()
		select {
		case got := <-w.updates:
			if ok(got) {
				return got
			}
		case <-time.After(150 * time.Millisecond):
		case <-deadline:
			t.Fatal("no rescan after modification")
		}
	}
}

func (w *watchTree) stop(t *testing.T) []string {
	t.Helper()
	w.cancel()
	require.NoError(t, <-w.done)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seen
}

func hitPaths(r *ports.ScanReport) []string {
	var out []string
	for _, h := range r.Hits {
		out = append(out, h.Path)
	}
	return out
}

func watchFixture(t *testing.T, sigDir, root string, walk source.WalkOptions) (*App, *scan.Scanner, *ports.ScanReport) {
	t.Helper()
	sigs, err := LoadSignatures(sigDir)
	require.NoError(t, err)

	a := newTestApp(t, Config{})
	sc, err := a.NewScanner(context.Background(), sigs, match.StrategyOptimalParallel, true)
	require.NoError(t, err)
	report, err := a.ScanTree(context.Background(), sc, root, walk)
	require.NoError(t, err)
	return a, sc, report
}

func TestWatchTree(t *testing.T) {
	sigDir, root := fixtureTree(t)
	a, sc, report := watchFixture(t, sigDir, root, source.WalkOptions{})
	require.Len(t, report.Hits, 2)

	w := startWatch(t, a, sc, root, source.WalkOptions{}, report)
	infected := filepath.Join(root, "clean.txt")
	got := w.await(t,
		func() { writeFile(t, infected, "now with EVILEVIL inside") },
		func(r ports.FileResult) bool { return r.Path == infected && len(r.Matches) > 0 })
	assert.Equal(t, "virus1", got.Matches[0].Signature)
	w.stop(t)

	stored, err := a.LoadReport(root)
	require.NoError(t, err)
	require.Len(t, stored.Hits, 3)
}

func TestWatchTree_CleanedFileLeavesReport(t *testing.T) {
	sigDir, root := fixtureTree(t)
	a, sc, report := watchFixture(t, sigDir, root, source.WalkOptions{})
	bad := filepath.Join(root, "src", "bad.c")
	require.Contains(t, hitPaths(report), bad)

	w := startWatch(t, a, sc, root, source.WalkOptions{}, report)
	w.await(t,
		func() { writeFile(t, bad, "int x; nothing left") },
		func(r ports.FileResult) bool { return r.Path == bad && len(r.Matches) == 0 })
	w.stop(t)

	want := []string{filepath.Join(root, "bin", "tool")}
	assert.Equal(t, want, hitPaths(report))
	stored, err := a.LoadReport(root)
	require.NoError(t, err)
	assert.Equal(t, want, hitPaths(stored))
}

func TestWatchTree_RelativeRoot(t *testing.T) {
	sigDir, root := fixtureTree(t)
	t.Chdir(filepath.Dir(root))
	rel := filepath.Base(root)

	a, sc, report := watchFixture(t, sigDir, rel, source.WalkOptions{})
	bad := filepath.Join(rel, "src", "bad.c")
	tool := filepath.Join(rel, "bin", "tool")
	require.Equal(t, []string{tool, bad}, hitPaths(report))

	w := startWatch(t, a, sc, rel, source.WalkOptions{}, report)
	w.await(t,
		func() { writeFile(t, bad, "int x; nothing left") },
		func(r ports.FileResult) bool { return r.Path == bad && len(r.Matches) == 0 })
	infected := filepath.Join(rel, "clean.txt")
	w.await(t,
		func() { writeFile(t, infected, "now with EVILEVIL inside") },
		func(r ports.FileResult) bool { return r.Path == infected && len(r.Matches) > 0 })
	w.stop(t)

	want := []string{tool, infected}
	assert.Equal(t, want, hitPaths(report))
	stored, err := a.LoadReport(rel)
	require.NoError(t, err)
	assert.Equal(t, want, hitPaths(stored))
}

func TestWatchTree_Filters(t *testing.T) {
	sigDir, root := fixtureTree(t)
	walk := source.WalkOptions{Exclude: "*.log", ExcludeDir: "bin"}
	a, sc, report := watchFixture(t, sigDir, root, walk)
	require.Equal(t, []string{filepath.Join(root, "src", "bad.c")}, hitPaths(report))

	w := startWatch(t, a, sc, root, walk, report)
	skipped := filepath.Join(root, "skip.log")
	tool := filepath.Join(root, "bin", "tool")
	infected := filepath.Join(root, "clean.txt")
	// Events arrive in order, so the excluded writes are handled before the
	// update for clean.txt.
	w.await(t,
		func() {
			writeFile(t, skipped, "EVILEVIL")
			writeFile(t, tool, "still EVILEVIL")
			writeFile(t, infected, "now with EVILEVIL inside")
		},
		func(r ports.FileResult) bool { return r.Path == infected && len(r.Matches) > 0 })
	seen := w.stop(t)

	assert.NotContains(t, seen, skipped)
	assert.NotContains(t, seen, tool)
	want := []string{infected, filepath.Join(root, "src", "bad.c")}
	assert.Equal(t, want, hitPaths(report))
	stored, err := a.LoadReport(root)
	require.NoError(t, err)
	assert.Equal(t, want, hitPaths(stored))
}

func TestRetrieve(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.txt")
	list := filepath.Join(dir, "patterns.txt")
	writeFile(t, doc, "to be or not to be, that is the question: to be")
	writeFile(t, list, "to be\r\n\nquestion\nabsent\n")

	a := newTestApp(t, Config{})
	for _, s := range match.Strategies {
		results, err := a.Retrieve(context.Background(), doc, list, s)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "3 0 13 42", results[0].Line())
		assert.Equal(t, "1 32", results[1].Line())
		assert.Equal(t, "0", results[2].Line())
	}

	// Patterns went through the pattern cache.
	for _, p := range []string{"to be", "question", "absent"} {
		stored, err := a.Store.LoadAnalysis(bbolt.AnalysisKey([]byte(p)))
		require.NoError(t, err)
		assert.NotNil(t, stored, p)
	}
}

func TestRetrieve_Errors(t *testing.T) {
	dir := t.TempDir()
	a := newTestApp(t, Config{})

	_, err := a.Retrieve(context.Background(), filepath.Join(dir, "doc"), filepath.Join(dir, "missing"), match.StrategySerial)
	assert.Error(t, err)

	list := filepath.Join(dir, "empty.txt")
	writeFile(t, list, "\n\n")
	_, err = a.Retrieve(context.Background(), filepath.Join(dir, "doc"), list, match.StrategySerial)
	assert.Error(t, err)

	writeFile(t, list, "x\n")
	_, err = a.Retrieve(context.Background(), filepath.Join(dir, "doc"), list, match.StrategySerial)
	assert.Error(t, err, "missing document")
}

func TestMatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text")
	writeFile(t, path, "ababcababcababcabc")

	a := newTestApp(t, Config{})
	for _, s := range match.Strategies {
		got, err := a.MatchFile(context.Background(), path, []byte("ababc"), s)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 5, 10}, got)
	}
}

func TestDaemon(t *testing.T) {
	sigDir, root := fixtureTree(t)
	sigs, err := LoadSignatures(sigDir)
	require.NoError(t, err)

	a := newTestApp(t, Config{})
	sc, err := a.NewScanner(context.Background(), sigs, match.StrategyOptimalParallel, true)
	require.NoError(t, err)

	d := a.NewDaemon(sc, source.WalkOptions{})
	require.NoError(t, d.Start())
	defer d.Stop()

	_, err = os.Stat(a.Paths.PIDFile)
	require.NoError(t, err)

	client := socket.NewClient(d.Addr())
	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, 3, health.Signatures)
	assert.Equal(t, "optimal", health.Strategy)

	result, err := client.Scan(root, 10*time.Second)
	require.NoError(t, err)
	assert.Len(t, result.Report.Hits, 2)

	m, err := client.Match(filepath.Join(root, "bin", "tool"), []byte("EVIL"), "block")
	require.NoError(t, err)
	assert.Equal(t, []int{15, 19}, m.Offsets)

	_, err = client.Match(filepath.Join(root, "bin", "tool"), []byte("EVIL"), "regex")
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	waited := make(chan error, 1)
	go func() { waited <- d.Wait(ctx) }()
	require.NoError(t, client.Shutdown())
	require.NoError(t, <-waited)

	_, err = os.Stat(a.Paths.PIDFile)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, client.Ping())
}

func TestDaemon_HTTP(t *testing.T) {
	sigDir, root := fixtureTree(t)
	sigs, err := LoadSignatures(sigDir)
	require.NoError(t, err)

	a := newTestApp(t, Config{})
	sc, err := a.NewScanner(context.Background(), sigs, match.StrategySerial, false)
	require.NoError(t, err)
	d := a.NewDaemon(sc, source.WalkOptions{})
	require.NoError(t, d.Start())
	defer d.Stop()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	base, err := d.StartHTTP(port)
	require.NoError(t, err)
	_, err = os.Stat(a.Paths.PortFile)
	require.NoError(t, err)

	_, err = socket.NewClient(d.Addr()).Scan(root, 10*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:"+strconv.Itoa(port), base)
	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/api/report?name=" + url.QueryEscape(ReportName(root)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep ports.ScanReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.Equal(t, "serial", rep.Strategy)
	assert.Len(t, rep.Hits, 2)

	require.NoError(t, d.Stop())
	_, err = os.Stat(a.Paths.PortFile)
	assert.True(t, os.IsNotExist(err))
}
