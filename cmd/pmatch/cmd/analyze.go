package cmd

import (
	"errors"
	"fmt"

	"github.com/corey/pmatch/internal/adapters/bbolt"
	"github.com/spf13/cobra"
)

var analyzePatternFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [pattern]",
	Short: "Show the failure function, witness array and period of a pattern",
	Long: "Compiles the pattern (or loads it from the cache), prints its tables and the\n" +
		"algorithm the optimal strategy will use for it.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzePatternFile, "pattern-file", "f", "", "Read the pattern from a file (bytes as-is)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	pattern, rest, err := readPattern(args, analyzePatternFile)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errors.New("unexpected arguments")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pt, err := a.CompilePattern(cmd.Context(), pattern)
	if err != nil {
		return err
	}
	fmt.Print(formatAnalysis(pt, bbolt.AnalysisKey(pattern)))
	return nil
}
