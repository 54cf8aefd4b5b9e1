package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "fhdlc",
	Short: "A compiler for FHDL, a hardware description language for Factorio circuits.",
	Long:  "fhdlc lexes, parses, and synthesizes FHDL source into a netlist of combinators, then emits a blueprint.",
}

// Execute runs the root command, exiting the process with a nonzero status
// on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("main", "main", "name of the top-level module to synthesize")
	rootCmd.PersistentFlags().StringP("out", "o", "", "output path (defaults to stdout)")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(checkCmd)

	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: !term.IsTerminal(int(os.Stderr.Fd())),
	})
}

func configureLogging(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}
