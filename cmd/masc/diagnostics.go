package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	mas "go.mas.dev/pkg"
)

type diagnosticPrinter struct {
	w       io.Writer
	loc     *color.Color
	syntax  *color.Color
	problem *color.Color
}

func newDiagnosticPrinter(w io.Writer, colored bool) *diagnosticPrinter {
	p := &diagnosticPrinter{
		w:       w,
		loc:     color.New(color.Bold),
		syntax:  color.New(color.FgRed, color.Bold),
		problem: color.New(color.FgYellow, color.Bold),
	}

	for _, c := range []*color.Color{p.loc, p.syntax, p.problem} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// stderrPrinter prints to stderr, coloured according to mode (auto, always or never).
func stderrPrinter(mode string) *diagnosticPrinter {
	colored := mode == "always"
	if mode == "auto" {
		colored = isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	}

	if colored {
		return newDiagnosticPrinter(colorable.NewColorableStderr(), true)
	}

	return newDiagnosticPrinter(os.Stderr, false)
}

func (p *diagnosticPrinter) Print(d *mas.Diagnostic) {
	kind := p.problem
	if d.Kind.IsSyntax() {
		kind = p.syntax
	}

	p.loc.Fprintf(p.w, "%s: ", d.Loc)
	kind.Fprint(p.w, d.Kind.String())
	fmt.Fprintf(p.w, ": %s\n", d.Message())
}

func (p *diagnosticPrinter) PrintAll(diags []*mas.Diagnostic) {
	for _, d := range diags {
		p.Print(d)
	}
}
