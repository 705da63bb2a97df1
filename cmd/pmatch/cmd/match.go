package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corey/pmatch/internal/adapters/socket"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/spf13/cobra"
)

var (
	matchStrategy    match.Strategy
	matchPatternFile string
	matchCount       bool
	matchDaemon      bool
)

var matchCmd = &cobra.Command{
	Use:   "match [pattern] <file>",
	Short: "Print every offset of a pattern in a file",
	Long: "Prints the zero-based start offset of every occurrence of pattern in file,\n" +
		"one per line. Exit status is 0 if the pattern occurs, 1 if not, 2 on error.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.VarP(&matchStrategy, "strategy", "s", "Matching strategy: optimal, serial, block")
	f.StringVarP(&matchPatternFile, "pattern-file", "f", "", "Read the pattern from a file (bytes as-is)")
	f.BoolVarP(&matchCount, "count", "c", false, "Print only the number of matches")
	f.BoolVar(&matchDaemon, "daemon", false, "Run on the project daemon")
}

// readPattern takes the pattern from patternFile when set, else from the first
// argument, and returns the remaining arguments.
func readPattern(args []string, patternFile string) ([]byte, []string, error) {
	if patternFile != "" {
		data, err := os.ReadFile(patternFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read pattern: %w", err)
		}
		return data, args, nil
	}
	if len(args) == 0 {
		return nil, nil, errors.New("pattern required")
	}
	return []byte(args[0]), args[1:], nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	pattern, rest, err := readPattern(args, matchPatternFile)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("expected exactly one file")
	}
	file := rest[0]

	var offsets []int
	if matchDaemon {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		res, err := socket.NewClient(socket.SocketPath(root)).Match(abs, pattern, matchStrategy.String())
		if err != nil {
			return err
		}
		offsets = res.Offsets
	} else {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if offsets, err = a.MatchFile(cmd.Context(), file, pattern, matchStrategy); err != nil {
			return err
		}
	}

	if matchCount {
		fmt.Println(len(offsets))
	} else if err := writeLines(os.Stdout, "", offsetLines(offsets)); err != nil {
		return err
	}
	if len(offsets) == 0 {
		return errNoMatch
	}
	return nil
}
