package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/corey/pmatch/internal/app"
	"github.com/corey/pmatch/internal/domain/scan"
	"github.com/corey/pmatch/internal/ports"
	"github.com/spf13/cobra"
)

var (
	reportDelete bool
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report [root]",
	Short: "Show or delete stored scan reports",
	Long: "Without arguments, lists every stored report. With a root, prints the\n" +
		"stored result lines of the last scan of that tree.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportDelete, "delete", false, "Delete the report for root")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write the result lines to a file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		if reportDelete {
			return fmt.Errorf("--delete needs a root")
		}
		return listReports(a)
	}

	root := args[0]
	if reportDelete {
		if err := a.Store.DeleteReport(app.ReportName(root)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s deleted report for %s\n", paint(colorBold, "⚡"), root)
		return nil
	}

	r, err := a.LoadReport(root)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("no report for %s (run 'pmatch scan' first)", root)
	}
	if err := writeLines(os.Stdout, reportOut, scan.ReportLines(r)); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, formatScanSummary(r))
	return nil
}

func listReports(a *app.App) error {
	names, err := a.Store.ReportNames()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "no reports")
		return nil
	}
	for _, name := range names {
		r, err := a.Store.LoadReport(name)
		if err != nil {
			logger.Warn("unreadable report", "name", name, "err", err)
			continue
		}
		if r == nil {
			continue
		}
		fmt.Println(formatReportEntry(r))
	}
	return nil
}

// formatReportEntry formats one line of the report listing.
func formatReportEntry(r *ports.ScanReport) string {
	when := time.Unix(r.CreatedAt, 0).Format("2006-01-02 15:04")
	return fmt.Sprintf("%s  %s  %d infected / %d files  %s",
		paint(colorGray, when), r.Name, len(r.Hits), r.Files, r.Strategy)
}
