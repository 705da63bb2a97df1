package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corey/pmatch/internal/adapters/socket"
	"github.com/corey/pmatch/internal/adapters/source"
	"github.com/corey/pmatch/internal/app"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/corey/pmatch/internal/domain/scan"
	"github.com/corey/pmatch/internal/ports"
	"github.com/spf13/cobra"
)

var (
	scanSignatures  string
	scanOut         string
	scanWatch       bool
	scanStrategy    match.Strategy
	scanNoPrefilter bool
	scanDaemon      bool
	scanWalk        source.WalkOptions
)

var scanCmd = &cobra.Command{
	Use:   "scan <root>",
	Short: "Scan a directory tree for signatures",
	Long: "Matches every signature (one file per signature in --signatures) against every\n" +
		"file under root. Prints one line per infected file:\n\n" +
		"  <path> <signature> <signature>...\n\n" +
		"The report is stored and can be shown again with 'pmatch report'.",
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanSignatures, "signatures", "", "Directory of signature files")
	f.StringVarP(&scanOut, "out", "o", "", "Write the result lines to a file instead of stdout")
	f.BoolVarP(&scanWatch, "watch", "w", false, "Keep watching the tree and rescan changed files")
	f.VarP(&scanStrategy, "strategy", "s", "Matching strategy: optimal, serial, block")
	f.BoolVar(&scanNoPrefilter, "no-prefilter", false, "Match every signature against every file")
	f.BoolVar(&scanDaemon, "daemon", false, "Run on the project daemon")
	addWalkFlags(scanCmd, &scanWalk)
}

// addWalkFlags registers the file filter flags shared by scan and daemon start.
func addWalkFlags(cmd *cobra.Command, w *source.WalkOptions) {
	f := cmd.Flags()
	f.StringVar(&w.Include, "include", "", "Only scan files whose name matches this glob")
	f.StringVar(&w.Exclude, "exclude", "", "Skip files whose name matches this glob")
	f.StringVar(&w.ExcludeDir, "exclude-dir", "", "Skip directories whose name matches this glob")
}

func runScan(cmd *cobra.Command, args []string) error {
	root := args[0]
	if scanDaemon {
		return runScanDaemon(root)
	}
	if scanSignatures == "" {
		return errors.New("--signatures is required")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sigs, err := app.LoadSignatures(scanSignatures)
	if err != nil {
		return err
	}
	sc, err := a.NewScanner(cmd.Context(), sigs, scanStrategy, !scanNoPrefilter)
	if err != nil {
		return err
	}
	report, err := a.ScanTree(cmd.Context(), sc, root, scanWalk)
	if err != nil {
		return err
	}
	if err := writeLines(os.Stdout, scanOut, scan.ReportLines(report)); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, formatScanSummary(report))

	if !scanWatch {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s watching %s (Ctrl-C to stop)\n", paint(colorBold, "⚡"), root)
	return a.WatchTree(cmd.Context(), sc, root, scanWalk, report, func(res ports.FileResult) {
		fmt.Fprintln(os.Stderr, formatRescan(res))
		if scanOut != "" {
			if err := writeLines(os.Stdout, scanOut, scan.ReportLines(report)); err != nil {
				logger.Warn("result file not updated", "path", scanOut, "err", err)
			}
		}
	})
}

func runScanDaemon(root string) error {
	project, err := projectRoot()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	res, err := socket.NewClient(socket.SocketPath(project)).Scan(abs, time.Hour)
	if err != nil {
		return err
	}
	if err := writeLines(os.Stdout, scanOut, scan.ReportLines(res.Report)); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, formatScanSummary(res.Report))
	return nil
}

// formatRescan formats a single-file rescan for the watch log.
func formatRescan(res ports.FileResult) string {
	if len(res.Matches) == 0 {
		return fmt.Sprintf("  %s %s", paint(colorGreen, "clean"), res.Path)
	}
	names := make([]string, len(res.Matches))
	for i, m := range res.Matches {
		names[i] = m.Signature
	}
	return fmt.Sprintf("  %s %s %s", paint(colorRed, "infected"), res.Path, paint(colorYellow, strings.Join(names, " ")))
}
