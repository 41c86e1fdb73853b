package main

import (
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru"
	"gopkg.in/urfave/cli.v1"

	mas "go.mas.dev/pkg"
)

const watchCacheSize = 64

var watchCommand = cli.Command{
	Action:    guarded(watch),
	Name:      "watch",
	Usage:     "Recompile a file every time it changes",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{emitFlag},
	Description: `The watch command compiles a file, then recompiles it on every save. Outputs
are cached by source content, so reverting an edit is instant.`,
}

// rebuilder compiles one file on demand, reusing earlier results for identical sources.
type rebuilder struct {
	compiler *mas.Compiler
	emit     string
	cache    *lru.Cache
	out      io.Writer
	printer  *diagnosticPrinter
}

func newRebuilder(compiler *mas.Compiler, emit string, out io.Writer, printer *diagnosticPrinter) (*rebuilder, error) {
	cache, err := lru.New(watchCacheSize)
	if err != nil {
		return nil, err
	}

	return &rebuilder{
		compiler: compiler,
		emit:     emit,
		cache:    cache,
		out:      out,
		printer:  printer,
	}, nil
}

func (r *rebuilder) rebuild(file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(src)
	if cached, ok := r.cache.Get(sum); ok {
		log.Debug("Source unchanged, reusing output", "file", file)
		return r.show(cached.(*artifact))
	}

	a, err := emitSource(r.compiler, file, src, r.emit)
	if err != nil {
		return err
	}

	r.cache.Add(sum, a)
	return r.show(a)
}

func (r *rebuilder) show(a *artifact) error {
	err := writeArtifacts(r.out, r.printer, []*artifact{a})
	if errors.Is(err, errCompileFailed) {
		return nil
	}

	return err
}

func watch(ctx *cli.Context) error {
	file := ctx.Args().First()
	if file == "" {
		return errors.New("no input file")
	}

	emit := ctx.String(emitFlag.Name)
	if !emitModes[emit] {
		return errors.New("unknown emit kind " + emit)
	}

	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}

	r, err := newRebuilder(mas.NewCompiler(cfg), emit, os.Stdout, stderrPrinter(cfg.Diagnostics.Color))
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors often save by replacing the file, so watch its directory
	if err := w.Add(filepath.Dir(file)); err != nil {
		return err
	}

	if err := r.rebuild(file); err != nil {
		log.Warn("Build failed", "file", file, "err", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	target := filepath.Clean(file)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			log.Info("Source changed, rebuilding", "file", file)
			if err := r.rebuild(file); err != nil {
				log.Warn("Build failed", "file", file, "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			log.Warn("Watcher error", "err", err)
		case <-interrupt:
			return nil
		}
	}
}
