package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/corey/pmatch/internal/domain/match"
	"github.com/spf13/cobra"
)

var (
	retrievePatterns string
	retrieveOut      string
	retrieveStrategy match.Strategy
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <document>",
	Short: "Locate a list of patterns in a document",
	Long: "Reads one pattern per line from --patterns and prints, for each pattern in\n" +
		"order, a line with the number of occurrences followed by their offsets:\n\n" +
		"  <count> <offset> <offset>...",
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	f := retrieveCmd.Flags()
	f.StringVarP(&retrievePatterns, "patterns", "p", "", "File with one pattern per line")
	f.StringVarP(&retrieveOut, "out", "o", "", "Write the result lines to a file instead of stdout")
	f.VarP(&retrieveStrategy, "strategy", "s", "Matching strategy: optimal, serial, block")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievePatterns == "" {
		return errors.New("--patterns is required")
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Retrieve(cmd.Context(), args[0], retrievePatterns, retrieveStrategy)
	if err != nil {
		return err
	}
	lines := make([]string, len(results))
	found := 0
	for i, r := range results {
		lines[i] = r.Line()
		if len(r.Offsets) > 0 {
			found++
		}
	}
	if err := writeLines(os.Stdout, retrieveOut, lines); err != nil {
		return err
	}
	if retrieveOut != "" {
		fmt.Fprintf(os.Stderr, "%s %d of %d patterns found\n", paint(colorBold, "⚡"), found, len(results))
	}
	return nil
}
