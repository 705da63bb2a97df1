package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/corey/pmatch/internal/adapters/socket"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/corey/pmatch/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// paint wraps s in code when color output is enabled.
func paint(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colorReset
}

// writeLines writes lines to path, or to w when path is empty.
func writeLines(w io.Writer, path string, lines []string) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := writeTo(f, lines); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return writeTo(w, lines)
}

func writeTo(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// formatScanSummary formats the one-line scan summary printed to stderr.
//
//	⚡ 2 infected │ 4213 files │ 10 signatures │ optimal │ 1.83s
func formatScanSummary(r *ports.ScanReport) string {
	infected := paint(colorGreen, "0 infected")
	if len(r.Hits) > 0 {
		infected = paint(colorRed, fmt.Sprintf("%d infected", len(r.Hits)))
	}
	return fmt.Sprintf("%s %s │ %d files │ %d signatures │ %s │ %dms",
		paint(colorBold, "⚡"), infected, r.Files, r.Signatures, r.Strategy, r.ElapsedMs)
}

// formatAnalysis formats a compiled pattern for terminal display.
func formatAnalysis(pt *match.Pattern, key string) string {
	var sb strings.Builder
	period := "none (non-periodic)"
	if p := pt.Period(); p > 0 {
		period = fmt.Sprintf("%d (k=%d, |v|=%d)", p, pt.Len()/p, pt.Len()%p)
	}
	a := pt.Analysis()

	sb.WriteString(paint(colorBold, "⚡ pattern analysis") + "\n")
	sb.WriteString(fmt.Sprintf("  Length:   %d\n", pt.Len()))
	sb.WriteString(fmt.Sprintf("  Period:   %s\n", period))
	sb.WriteString(fmt.Sprintf("  Route:    %s\n", paint(colorCyan, pt.Route())))
	sb.WriteString(fmt.Sprintf("  LPS:      %s\n", intsPreview(a.LPS, 16)))
	sb.WriteString(fmt.Sprintf("  Witness:  %s\n", intsPreview(a.Witness[1:], 16)))
	sb.WriteString(fmt.Sprintf("  Key:      %s\n", paint(colorGray, key)))
	return sb.String()
}

// intsPreview renders the first limit values of vals.
func intsPreview(vals []int, limit int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vals {
		if i == limit {
			sb.WriteString(fmt.Sprintf(" … +%d", len(vals)-limit))
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprint(v))
	}
	sb.WriteByte(']')
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(paint(colorBold, "⚡ pmatch daemon") + "\n")
	sb.WriteString(fmt.Sprintf("  Status:      %s\n", paint(colorGreen, h.Status)))
	sb.WriteString(fmt.Sprintf("  Signatures:  %d\n", h.Signatures))
	sb.WriteString(fmt.Sprintf("  Strategy:    %s\n", h.Strategy))
	sb.WriteString(fmt.Sprintf("  Scans:       %d\n", h.Scans))
	sb.WriteString(fmt.Sprintf("  Uptime:      %s\n", h.Uptime))
	return sb.String()
}

// offsetLines renders one offset per line.
func offsetLines(offsets []int) []string {
	lines := make([]string, len(offsets))
	for i, off := range offsets {
		lines[i] = fmt.Sprint(off)
	}
	return lines
}
