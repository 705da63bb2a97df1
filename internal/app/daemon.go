package app

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/corey/pmatch/internal/adapters/socket"
	"github.com/corey/pmatch/internal/adapters/source"
	"github.com/corey/pmatch/internal/adapters/web"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/corey/pmatch/internal/domain/scan"
	"github.com/corey/pmatch/internal/ports"
)

// Daemon serves scans with one signature set kept compiled in memory. It
// implements socket.Backend.
type Daemon struct {
	app     *App
	scanner *scan.Scanner
	walk    source.WalkOptions
	server  *socket.Server
	web     *web.Server
}

// NewDaemon prepares a daemon for the project. Start must be called to listen.
func (a *App) NewDaemon(sc *scan.Scanner, walk source.WalkOptions) *Daemon {
	d := &Daemon{app: a, scanner: sc, walk: walk}
	d.server = socket.NewServer(d, socket.SocketPath(a.ProjectRoot))
	return d
}

// Start listens on the project socket and records the PID file.
func (d *Daemon) Start() error {
	if err := d.app.Paths.EnsureDirs(); err != nil {
		return err
	}
	if err := d.server.Start(); err != nil {
		return err
	}
	pid := []byte(strconv.Itoa(os.Getpid()))
	if err := os.WriteFile(d.app.Paths.PIDFile, pid, 0644); err != nil {
		d.server.Stop()
		return fmt.Errorf("write pid file: %w", err)
	}
	d.app.Log.Info("daemon started", "socket", d.server.Addr(), "signatures", d.scanner.Len())
	return nil
}

// Wait blocks until ctx is done or a client requests shutdown, then stops.
func (d *Daemon) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-d.server.ShutdownCh():
	}
	return d.Stop()
}

// StartHTTP serves the stored reports as JSON on localhost. A port of 0 uses
// the project's default port. Returns the base URL.
func (d *Daemon) StartHTTP(port int) (string, error) {
	if port == 0 {
		port = web.DefaultPort(d.app.ProjectRoot)
	}
	srv := web.NewServer(d.app.Store, d.app.Paths.PortFile)
	if err := srv.Start(port); err != nil {
		return "", err
	}
	d.web = srv
	d.app.Log.Info("http started", "url", srv.URL())
	return srv.URL(), nil
}

// Stop closes the socket and removes runtime files. Idempotent.
func (d *Daemon) Stop() error {
	if d.web != nil {
		d.web.Stop()
	}
	err := d.server.Stop()
	d.app.Paths.CleanEphemeral()
	d.app.Log.Info("daemon stopped")
	return err
}

// Addr returns the socket path.
func (d *Daemon) Addr() string { return d.server.Addr() }

func (d *Daemon) Signatures() int { return d.scanner.Len() }

func (d *Daemon) Strategy() string { return d.scanner.Strategy().String() }

func (d *Daemon) ScanTree(ctx context.Context, root string) (*ports.ScanReport, error) {
	return d.app.ScanTree(ctx, d.scanner, root, d.walk)
}

func (d *Daemon) MatchFile(ctx context.Context, path string, pattern []byte, strategy string) ([]int, error) {
	s := d.scanner.Strategy()
	if strategy != "" {
		var err error
		if s, err = match.ParseStrategy(strategy); err != nil {
			return nil, err
		}
	}
	return d.app.MatchFile(ctx, path, pattern, s)
}
