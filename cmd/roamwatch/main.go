// Command roamwatch monitors a wireless adapter and classifies roams and
// reconnects.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/roamwatch/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
