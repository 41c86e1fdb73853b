package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"go.mas.dev/internal/interp"
	mas "go.mas.dev/pkg"
)

var (
	runCommand = cli.Command{
		Action:    guarded(run),
		Name:      "run",
		Usage:     "Compile a file and execute it",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{maxStepsFlag},
		Description: `The run command compiles a file and executes the generated module with the
built-in interpreter. The program's exit code becomes masc's.`,
	}

	maxStepsFlag = cli.IntFlag{
		Name:  "max-steps",
		Usage: "Abort after executing this many instructions (0 = no limit)",
		Value: interp.DefaultMaxSteps,
	}
)

func run(ctx *cli.Context) error {
	file := ctx.Args().First()
	if file == "" {
		return errors.New("no input file")
	}

	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}

	res, err := mas.NewCompiler(cfg).Compile(file)
	if res != nil {
		stderrPrinter(cfg.Diagnostics.Color).PrintAll(res.Diagnostics)
	}

	var diag *mas.Diagnostic
	switch {
	case errors.As(err, &diag):
		return errCompileFailed
	case err != nil:
		return err
	case res.HasErrors():
		return errCompileFailed
	}

	m := interp.New(os.Stdout)
	m.MaxSteps = ctx.Int(maxStepsFlag.Name)

	code, err := m.Run(res.Module, cfg.CodeGen.Entry())
	if err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}

	if code != 0 {
		return cli.NewExitError("", int(code))
	}

	return nil
}
