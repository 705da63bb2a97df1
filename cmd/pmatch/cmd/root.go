package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/corey/pmatch/internal/app"
	"github.com/spf13/cobra"
)

var (
	workersFlag  int
	logLevelFlag string
	dbFlag       string
	noCacheFlag  bool
	colorFlag    string

	useColor bool
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pmatch",
	Short: "pmatch — parallel exact pattern matching",
	Long: "Finds every occurrence of a byte pattern with serial KMP, block-parallel KMP or\n" +
		"the witness-based parallel algorithm, scans trees for signature sets and\n" +
		"locates pattern lists in documents.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		useColor = resolveColor(colorFlag)
		l, err := app.LoggerFromEnv(os.Stderr, logLevelFlag)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// projectRoot returns the project root (cwd).
func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return dir, nil
}

// resolveConfig merges flags and environment into an app.Config.
func resolveConfig() (app.Config, error) {
	root, err := projectRoot()
	if err != nil {
		return app.Config{}, err
	}
	workers := workersFlag
	if workers == 0 {
		if workers, err = app.WorkersFromEnv(); err != nil {
			return app.Config{}, err
		}
	}
	return app.Config{
		ProjectRoot: root,
		DBPath:      dbFlag,
		Workers:     workers,
		NoCache:     noCacheFlag,
		Logger:      logger,
	}, nil
}

// openApp creates the app, explaining lock contention on the store.
func openApp() (*app.App, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("%w\n%s", err, diagnoseDBLock(cfg.ProjectRoot))
		}
		return nil, err
	}
	return a, nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	f := rootCmd.PersistentFlags()
	f.IntVarP(&workersFlag, "workers", "j", 0, "Worker pool size (default: $PMATCH_WORKERS or number of CPUs)")
	f.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (default: $PMATCH_LOG_LEVEL or warn)")
	f.StringVar(&dbFlag, "db", "", "Path to the cache database (default: .pmatch/pmatch.db)")
	f.BoolVar(&noCacheFlag, "no-cache", false, "Do not load or store pattern analyses")
	f.StringVar(&colorFlag, "color", "auto", "Color output: auto, always, never")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(daemonCmd)
}
