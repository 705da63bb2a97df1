// pmatch finds exact byte patterns in files with serial, block-parallel and
// witness-based parallel matching. It also scans directory trees for a set of
// signatures and locates pattern lists in a document.
package main

import (
	"fmt"
	"os"

	"github.com/corey/pmatch/cmd/pmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if code := cmd.ExitCode(err); code >= 0 {
			os.Exit(code)
		}
		fmt.Fprintf(os.Stderr, "pmatch: %v\n", err)
		os.Exit(2)
	}
}
