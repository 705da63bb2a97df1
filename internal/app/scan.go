package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/corey/pmatch/internal/adapters/source"
	"github.com/corey/pmatch/internal/domain/scan"
	"github.com/corey/pmatch/internal/ports"
)

// openSource adapts source.Open to scan.Opener.
func openSource(path string) (ports.Source, error) {
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReportName is the key a scan of root is stored under.
func ReportName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}

// ScanTree scans every file under root and stores the report under
// ReportName(root).
func (a *App) ScanTree(ctx context.Context, sc *scan.Scanner, root string, opts source.WalkOptions) (*ports.ScanReport, error) {
	files, err := source.Walk(root, opts)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	a.Log.Debug("scan started", "root", root, "files", len(files), "signatures", sc.Len())

	sum, err := sc.ScanFiles(ctx, files, openSource, a.workers)
	if err != nil {
		return nil, err
	}
	for _, s := range sum.Skipped {
		a.Log.Warn("file skipped", "path", s.Path, "err", s.Err)
	}

	report := sc.Report(ReportName(root), sum)
	if err := a.Store.SaveReport(report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	a.Log.Info("scan finished", "root", root, "files", sum.Files,
		"infected", len(sum.Hits), "skipped", len(sum.Skipped), "elapsed", sum.Elapsed)
	return report, nil
}

// LoadReport returns the stored report for root, or nil if there is none.
func (a *App) LoadReport(root string) (*ports.ScanReport, error) {
	return a.Store.LoadReport(ReportName(root))
}
