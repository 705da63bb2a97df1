package cmd

import (
	"fmt"
	"os"

	"github.com/corey/pmatch/internal/adapters/socket"
	"github.com/corey/pmatch/internal/app"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved settings",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	paths := app.NewPaths(cfg.ProjectRoot)
	db := cfg.DBPath
	if db == "" {
		db = paths.DB
	}
	workers := fmt.Sprint(cfg.Workers)
	if cfg.Workers == 0 {
		workers = "auto"
	}
	sock := socket.SocketPath(cfg.ProjectRoot)
	daemon := paint(colorGray, "not running")
	if socket.NewClient(sock).Ping() {
		daemon = paint(colorGreen, "running")
	}
	cache := "on"
	if cfg.NoCache {
		cache = "off"
	}

	fmt.Println(paint(colorBold, "⚡ pmatch config"))
	fmt.Printf("  Project:   %s\n", cfg.ProjectRoot)
	fmt.Printf("  Database:  %s\n", db)
	fmt.Printf("  Cache:     %s\n", cache)
	fmt.Printf("  Workers:   %s\n", workers)
	fmt.Printf("  Socket:    %s\n", sock)
	fmt.Printf("  Daemon:    %s\n", daemon)
	fmt.Println()
	for _, env := range []string{app.EnvWorkers, app.EnvLogLevel, app.EnvJSONLog, "NO_COLOR"} {
		v, ok := os.LookupEnv(env)
		if !ok {
			v = paint(colorGray, "(unset)")
		}
		fmt.Printf("  %-18s %s\n", env, v)
	}
	return nil
}
