package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dthusian/k2se/pkg/blueprint"
	"github.com/dthusian/k2se/pkg/builtins"
	"github.com/dthusian/k2se/pkg/layout"
	"github.com/dthusian/k2se/pkg/synth"
)

var compileCmd = &cobra.Command{
	Use:   "compile <files...>",
	Short: "Compile FHDL source into a Factorio blueprint.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		mainModule, _ := cmd.Flags().GetString("main")
		outPath, _ := cmd.Flags().GetString("out")

		modules, file, diags, err := frontend(args)
		if err != nil {
			log.WithError(err).Error("compile failed")
			os.Exit(1)
		}

		printDiagnostics(file, diags)

		if len(diags) > 0 {
			log.Error("aborting synthesis due to front-end diagnostics")
			os.Exit(1)
		}

		log.Debugf("transformed %d module(s)", len(modules))

		registry := builtins.NewRegistry()

		nl, synthDiags := synth.Synthesize(modules, registry, synth.Settings{MainModule: mainModule})
		printDiagnostics(file, synthDiags)

		if len(synthDiags) > 0 {
			os.Exit(1)
		}

		positions, err := layout.Layout(nl)
		if err != nil {
			log.WithError(err).Error("layout failed")
			os.Exit(1)
		}

		label := mainModule
		if len(args) > 0 {
			label = filepath.Base(args[0])
		}

		out, err := blueprint.Emit(nl, positions, label)
		if err != nil {
			log.WithError(err).Error("blueprint emission failed")
			os.Exit(1)
		}

		if outPath == "" {
			os.Stdout.Write(out)
			return
		}

		if err := os.WriteFile(outPath, out, 0o644); err != nil {
			log.WithError(err).Error("writing output failed")
			os.Exit(1)
		}

		log.Infof("wrote blueprint to %s", outPath)
	},
}
