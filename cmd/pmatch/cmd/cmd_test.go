package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/corey/pmatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errNoMatch))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("wrapped: %w", errNoMatch)))
	assert.Equal(t, -1, ExitCode(errors.New("boom")))
	assert.Equal(t, -1, ExitCode(nil))
	assert.Equal(t, "no match", errNoMatch.Error())
}

func TestReadPattern(t *testing.T) {
	p, rest, err := readPattern([]string{"abc", "file"}, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), p)
	assert.Equal(t, []string{"file"}, rest)

	_, _, err = readPattern(nil, "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "pat")
	require.NoError(t, os.WriteFile(path, []byte("a\x00b\n"), 0644))
	p, rest, err = readPattern([]string{"file"}, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("a\x00b\n"), p, "pattern file bytes are used as-is")
	assert.Equal(t, []string{"file"}, rest)

	_, _, err = readPattern(nil, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWriteLines_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, writeLines(nil, path, []string{"3 0 13 42", "0"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3 0 13 42\n0\n", string(data))
}

func TestIntsPreview(t *testing.T) {
	assert.Equal(t, "[]", intsPreview(nil, 4))
	assert.Equal(t, "[0 1 2]", intsPreview([]int{0, 1, 2}, 4))
	assert.Equal(t, "[0 1 … +2]", intsPreview([]int{0, 1, 2, 3}, 2))
}

func TestOffsetLines(t *testing.T) {
	assert.Equal(t, []string{"0", "5", "19"}, offsetLines([]int{0, 5, 19}))
	assert.Empty(t, offsetLines(nil))
}

func TestFormatRescan(t *testing.T) {
	useColor = false
	assert.Equal(t, "  clean a.txt", formatRescan(ports.FileResult{Path: "a.txt"}))
	res := ports.FileResult{Path: "b.bin", Matches: []ports.SignatureMatch{
		{Signature: "virus1", Offsets: []int{0}},
		{Signature: "virus2", Offsets: []int{9}},
	}}
	assert.Equal(t, "  infected b.bin virus1 virus2", formatRescan(res))
}

func TestFormatScanSummary(t *testing.T) {
	useColor = false
	r := &ports.ScanReport{Strategy: "optimal", Signatures: 3, Files: 10, ElapsedMs: 12,
		Hits: []ports.FileResult{{Path: "x"}}}
	assert.Equal(t, "⚡ 1 infected │ 10 files │ 3 signatures │ optimal │ 12ms", formatScanSummary(r))
}

func TestResolveColor(t *testing.T) {
	assert.True(t, resolveColor("always"))
	assert.False(t, resolveColor("never"))
	t.Setenv("NO_COLOR", "1")
	assert.False(t, resolveColor("auto"))
}
