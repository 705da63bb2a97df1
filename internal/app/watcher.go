package app

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	fsw "github.com/corey/pmatch/internal/adapters/fsnotify"
	"github.com/corey/pmatch/internal/adapters/source"
	"github.com/corey/pmatch/internal/domain/scan"
	"github.com/corey/pmatch/internal/ports"
)

// WatchTree keeps report current while files under root change, until ctx is
// cancelled. Each change rescans just that file, updates the report, persists
// it and calls onUpdate with the new result. A deleted file is passed as a
// result without matches.
//
// Changed files go through the same walk filters as the initial scan and are
// reported under root exactly as the walk names them, so a rescan replaces
// the earlier entry for the same file.
func (a *App) WatchTree(ctx context.Context, sc *scan.Scanner, root string, walk source.WalkOptions, report *ports.ScanReport, onUpdate func(ports.FileResult)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w, err := fsw.NewWatcher(fsw.Options{
		OnError: func(err error) { a.Log.Warn("watch error", "err", err) },
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	var mu sync.Mutex
	err = w.Watch(absRoot, func(path string) {
		rel, err := filepath.Rel(absRoot, path)
		if err != nil || !walk.Keep(rel) {
			a.Log.Debug("change ignored", "path", path)
			return
		}
		res, ok := a.rescan(ctx, sc, path, filepath.Join(root, rel))
		if !ok {
			return
		}
		mu.Lock()
		scan.ReplaceFile(report, res)
		if err := a.Store.SaveReport(report); err != nil {
			a.Log.Warn("report not saved", "err", err)
		}
		mu.Unlock()
		if onUpdate != nil {
			onUpdate(res)
		}
	})
	if err != nil {
		return err
	}
	a.Log.Info("watching", "root", root)

	<-ctx.Done()
	return nil
}

// rescan reads the file at path and labels the result with name.
func (a *App) rescan(ctx context.Context, sc *scan.Scanner, path, name string) (ports.FileResult, bool) {
	src, err := openSource(path)
	if errors.Is(err, fs.ErrNotExist) {
		a.Log.Debug("file removed", "path", name)
		return ports.FileResult{Path: name}, true
	}
	if err != nil {
		a.Log.Warn("file skipped", "path", name, "err", err)
		return ports.FileResult{}, false
	}
	defer src.Close()

	res, err := sc.ScanData(ctx, name, src.Bytes())
	if err != nil {
		if ctx.Err() == nil {
			a.Log.Warn("rescan failed", "path", name, "err", err)
		}
		return ports.FileResult{}, false
	}
	a.Log.Debug("file rescanned", "path", name, "signatures", len(res.Matches))
	return res, true
}
