// masc compiles mas source files to LLVM IR.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"

	mas "go.mas.dev/pkg"
)

var (
	errCompileFailed = errors.New("compilation failed")
	errInternal      = errors.New("internal compiler error")
)

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: int(log.LvlWarn),
	}
	colorFlag = cli.StringFlag{
		Name:  "color",
		Usage: "Colour diagnostics: auto, always or never",
		Value: "auto",
	}
	runtimeFlag = cli.BoolFlag{
		Name:  "runtime",
		Usage: "Define print and printBool in the module on top of printf",
	}
	maxUnrollFlag = cli.IntFlag{
		Name:  "max-unroll",
		Usage: "Largest number of statements a single loop may unroll to",
		Value: mas.DefaultMaxUnrolledStatements,
	}
)

var app = newApp()

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "masc"
	app.Usage = "the mas compiler"
	app.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		colorFlag,
		runtimeFlag,
		maxUnrollFlag,
	}
	app.Commands = []cli.Command{
		buildCommand,
		runCommand,
		watchCommand,
		dumpConfigCommand,
	}
	app.Before = setupLogging

	return app
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) error {
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"

	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorableStderr()
	}

	glogger := log.NewGlogHandler(log.StreamHandler(output, log.TerminalFormat(usecolor)))
	glogger.Verbosity(log.Lvl(ctx.GlobalInt(verbosityFlag.Name)))
	log.Root().SetHandler(glogger)

	return nil
}

// guarded turns a panic inside the compiler into an error carrying the stack it came from.
func guarded(action func(ctx *cli.Context) error) func(ctx *cli.Context) error {
	return func(ctx *cli.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Compiler panicked", "err", r)
				fmt.Fprintf(os.Stderr, "%v\n%+v\n", r, stack.Trace().TrimRuntime())
				err = errInternal
			}
		}()

		return action(ctx)
	}
}
