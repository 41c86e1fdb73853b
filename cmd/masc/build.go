package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	mas "go.mas.dev/pkg"
)

const (
	emitTokens   = "tokens"
	emitAST      = "ast"
	emitUnrolled = "unrolled"
	emitIR       = "ir"
)

var (
	buildCommand = cli.Command{
		Action:    guarded(build),
		Name:      "build",
		Usage:     "Compile source files",
		ArgsUsage: "<file> [file...]",
		Flags:     []cli.Flag{emitFlag, outputFlag},
		Description: `The build command compiles every file given, concurrently, and writes the
requested representation of each to the output in argument order.`,
	}

	emitFlag = cli.StringFlag{
		Name:  "emit",
		Usage: "What to output: tokens, ast, unrolled or ir",
		Value: emitIR,
	}
	outputFlag = cli.StringFlag{
		Name:  "o",
		Usage: "Output file (default: stdout)",
	}
)

var emitModes = map[string]bool{emitTokens: true, emitAST: true, emitUnrolled: true, emitIR: true}

// artifact is what compiling one file produced. Output is nil when there is nothing worth
// writing.
type artifact struct {
	name   string
	output []byte
	diags  []*mas.Diagnostic
}

func (a *artifact) failed() bool {
	return len(a.diags) != 0
}

func build(ctx *cli.Context) error {
	files := ctx.Args()
	if len(files) == 0 {
		return errors.New("no input files")
	}

	emit := ctx.String(emitFlag.Name)
	if !emitModes[emit] {
		return fmt.Errorf("unknown emit kind %q", emit)
	}

	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}

	compiler := mas.NewCompiler(cfg)
	artifacts := make([]*artifact, len(files))

	g, gctx := errgroup.WithContext(context.Background())
	for i, file := range files {
		i, file := i, file

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			src, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			artifacts[i], err = emitSource(compiler, file, src, emit)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if path := ctx.String(outputFlag.Name); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		out = f
	}

	return writeArtifacts(out, stderrPrinter(cfg.Diagnostics.Color), artifacts)
}

// writeArtifacts prints every diagnostic and writes every output, in order. It fails if
// any file had a diagnostic.
func writeArtifacts(out io.Writer, printer *diagnosticPrinter, artifacts []*artifact) error {
	failed := false
	for _, a := range artifacts {
		printer.PrintAll(a.diags)
		if a.failed() {
			failed = true
		}

		if a.output == nil {
			continue
		}

		if _, err := out.Write(a.output); err != nil {
			return err
		}
	}

	if failed {
		return errCompileFailed
	}

	return nil
}

// emitSource compiles src and renders the emit representation. Compilation problems are
// carried in the artifact; only I/O errors are returned.
func emitSource(compiler *mas.Compiler, name string, src []byte, emit string) (*artifact, error) {
	a := &artifact{name: name}

	if emit == emitTokens {
		toks, err := mas.NewLexer(name, bytes.NewReader(src)).Drain()

		var diag *mas.Diagnostic
		if errors.As(err, &diag) {
			a.diags = append(a.diags, diag)
		}

		a.output = tokenTable(toks)
		return a, nil
	}

	res, err := compiler.CompileFromReader(name, bytes.NewReader(src))
	if res != nil {
		a.diags = res.Diagnostics
	}

	var diag *mas.Diagnostic
	if err != nil && !errors.As(err, &diag) {
		return nil, err
	}

	if res.Program == nil {
		log.Debug("Nothing to emit", "file", name, "err", err)
		return a, nil
	}

	var buf bytes.Buffer
	switch emit {
	case emitAST:
		mas.Dump(&buf, res.Program)
	case emitUnrolled:
		if err := mas.Fprint(&buf, res.Program); err != nil {
			return nil, err
		}
	case emitIR:
		// A module with dropped instructions is not worth writing out
		if res.HasErrors() {
			return a, nil
		}

		buf.WriteString(res.IR())
	}

	a.output = buf.Bytes()
	return a, nil
}

func tokenTable(toks []mas.Token) []byte {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Location", "Type", "Value"})
	table.SetAutoWrapText(false)

	for _, t := range toks {
		table.Append([]string{t.Loc.String(), t.Typ.String(), t.Value})
	}

	table.Render()
	return buf.Bytes()
}
