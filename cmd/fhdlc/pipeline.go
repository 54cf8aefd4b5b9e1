package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/dthusian/k2se/pkg/builtins"
	"github.com/dthusian/k2se/pkg/cursor"
	"github.com/dthusian/k2se/pkg/diag"
	"github.com/dthusian/k2se/pkg/ir"
	"github.com/dthusian/k2se/pkg/lexer"
	"github.com/dthusian/k2se/pkg/parser"
	"github.com/dthusian/k2se/pkg/source"
)

// frontend runs lex -> parse -> transform over every input file, merging
// all modules into one map for synthesis. Each file is transformed on its
// own, so an `inst` statement only resolves modules declared in the same
// file.
func frontend(paths []string) (map[string]*ir.IRModule, *source.File, []diag.Diagnostic, error) {
	var (
		allDiags []diag.Diagnostic
		lastFile *source.File
		modules  = make(map[string]*ir.IRModule)
	)

	registry := builtins.NewRegistry()

	for _, p := range paths {
		file, err := source.ReadFile(p)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading %s: %w", p, err)
		}

		lastFile = file

		tokens, lexErr := lexer.Tokenize(file)
		if lexErr != nil {
			allDiags = append(allDiags, *lexErr)
			continue
		}

		eofPos := file.EOFPos()

		prog, parseErr := parser.Parse(tokens, eofPos)
		if parseErr != nil {
			allDiags = append(allDiags, *parseErr)
			continue
		}

		fileModules, diags := ir.Transform(prog, registry)
		allDiags = append(allDiags, diags...)

		for name, m := range fileModules {
			modules[name] = m
		}
	}

	return modules, lastFile, allDiags, nil
}

func printDiagnostics(file *source.File, diags []diag.Diagnostic) {
	color := term.IsTerminal(int(os.Stderr.Fd()))

	for _, d := range diags {
		if file == nil || d.Span == nil {
			fmt.Fprintln(os.Stderr, d.Error())
			continue
		}

		fmt.Fprint(os.Stderr, diag.Format(file, d, color))
	}
}
