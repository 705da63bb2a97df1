package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .pmatch/ project directory.
type Paths struct {
	Root string // .pmatch/
	DB   string // .pmatch/pmatch.db

	LogDir    string // .pmatch/log/
	DaemonLog string // .pmatch/log/daemon.log

	RunDir   string // .pmatch/run/
	PIDFile  string // .pmatch/run/daemon.pid
	PortFile string // .pmatch/run/http.port

	ResultsDir string // .pmatch/results/
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".pmatch")
	return &Paths{
		Root: root,
		DB:   filepath.Join(root, "pmatch.db"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:   filepath.Join(root, "run"),
		PIDFile:  filepath.Join(root, "run", "daemon.pid"),
		PortFile: filepath.Join(root, "run", "http.port"),

		ResultsDir: filepath.Join(root, "results"),
	}
}

// EnsureDirs creates all subdirectories under .pmatch/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir, p.ResultsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes runtime files left by a daemon. Called on clean
// daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
