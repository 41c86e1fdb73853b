package mas

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/llir/llvm/ir"
)

// Result is everything a compilation produced. Program and Module are nil when parsing
// failed; Diagnostics holds every problem reported along the way, in order.
type Result struct {
	Program     *Program
	Module      *ir.Module
	Diagnostics []*Diagnostic
}

// IR returns the textual LLVM module, or an empty string if none was generated.
func (r *Result) IR() string {
	if r.Module == nil {
		return ""
	}

	return r.Module.String()
}

func (r *Result) HasErrors() bool {
	return len(r.Diagnostics) != 0
}

type Compiler struct {
	cfg Config
}

func NewCompiler(cfg Config) *Compiler {
	return &Compiler{cfg: cfg}
}

func (c *Compiler) Compile(filename string) (*Result, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return c.CompileFromReader(filename, f)
}

func (c *Compiler) CompileString(name, src string) (*Result, error) {
	return c.CompileFromReader(name, strings.NewReader(src))
}

// CompileFromReader runs the whole pipeline. A syntax or loop-bound error stops it and
// is returned as a *Diagnostic; semantic problems only end up in Result.Diagnostics.
func (c *Compiler) CompileFromReader(name string, reader io.Reader) (*Result, error) {
	res := &Result{}
	sink := SinkFunc(func(d *Diagnostic) {
		res.Diagnostics = append(res.Diagnostics, d)
	})

	lexer := NewLexer(name, reader)
	parser := NewParser(lexer,
		WithSink(sink),
		WithUnroller(NewUnroller(c.cfg.Optimizer.MaxUnrolledStatements)),
	)

	prog, err := parser.Parse()
	if err != nil {
		return res, err
	}
	res.Program = prog

	gen := NewLLVMGenerator(prog,
		WithDiagnostics(sink),
		WithRuntime(c.cfg.CodeGen.EmitRuntime),
		WithEntryName(c.cfg.CodeGen.Entry()),
	)
	res.Module = gen.Generate()

	log.Debug("Compiled source", "file", name, "diagnostics", len(res.Diagnostics))
	return res, nil
}
