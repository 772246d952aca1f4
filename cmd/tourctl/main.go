// Command tourctl runs the tour rules offline: stop validation, price quotes, media probing,
// and minting development bearer tokens for AUTH_MODE=hmac.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tourctl",
		Short:         "Offline tools for tour authoring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newValidateCmd(),
		newQuoteCmd(),
		newProbeCmd(),
		newDevJWTCmd(),
	)
	return root
}
