// Command extctl is the administrative CLI for the extension runtime: it
// runs a configured set of example plugins (`extctl run`) and probes a
// live extension's own socket (`extctl ping`).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "extctl",
	Short: "Run and probe Thrift extension-runtime plugins",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "extctl:", err)
		os.Exit(1)
	}
}
