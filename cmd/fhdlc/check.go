package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <files...>",
	Short: "Lex, parse, and transform FHDL source, reporting diagnostics without synthesizing.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		modules, file, diags, err := frontend(args)
		if err != nil {
			log.WithError(err).Error("check failed")
			os.Exit(1)
		}

		printDiagnostics(file, diags)

		if len(diags) > 0 {
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "ok: %d module(s), no diagnostics\n", len(modules))
	},
}
