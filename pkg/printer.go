package mas

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

func (e *NumberLiteral) String() string {
	return strconv.FormatInt(int64(e.Value), 10)
}

func (e *BooleanLiteral) String() string {
	return strconv.FormatBool(e.Value)
}

func (e *Identifier) String() string {
	return e.Name
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Operation, e.Right)
}

func (e *BooleanExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Operation, e.Right)
}

// Fprint writes prog back out as source text, one statement per line. Expressions are
// fully parenthesised.
func Fprint(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)
	p := &printer{w: bw}
	p.statements(prog.Statements)

	return bw.Flush()
}

// Sprint is Fprint into a string.
func Sprint(prog *Program) string {
	var str strings.Builder
	_ = Fprint(&str, prog)

	return str.String()
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders the raw tree, including locations.
func Dump(w io.Writer, prog *Program) {
	dumpConfig.Fdump(w, prog)
}

type printer struct {
	w     *bufio.Writer
	depth int
}

func (p *printer) line(format string, args ...interface{}) {
	p.w.WriteString(strings.Repeat("    ", p.depth))
	fmt.Fprintf(p.w, format, args...)
	p.w.WriteByte('\n')
}

func (p *printer) block(stmts []Statement) {
	p.depth++
	p.statements(stmts)
	p.depth--
}

func (p *printer) statements(stmts []Statement) {
	for _, stmt := range stmts {
		p.statement(stmt)
	}
}

func (p *printer) statement(stmt Statement) {
	switch s := stmt.(type) {
	case *Declaration:
		if s.Value == nil {
			p.line("%s %s;", s.Type, s.Name)
			return
		}

		p.line("%s %s = %s;", s.Type, s.Name, s.Value)
	case *Assignment:
		p.line("%s = %s;", s.Target, s.Value)
	case *PrintStatement:
		p.line("print(%s);", s.Operand)
	case *IfStatement:
		p.line("if (%s) {", s.Condition)
		p.block(s.Body)

		for _, elseIf := range s.ElseIfs {
			p.line("} else if (%s) {", elseIf.Condition)
			p.block(elseIf.Body)
		}

		if s.Else != nil {
			p.line("} else {")
			p.block(s.Else)
		}

		p.line("}")
	case *WhileStatement:
		p.line("while (%s) {", s.Condition)
		p.block(s.Body)
		p.line("}")
	case *ForStatement:
		init := fmt.Sprintf("%s = %s", s.Init.Target, s.Init.Value)
		if s.DeclaresIterator {
			init = "int " + init
		}

		p.line("for (%s; %s; %s = %s) {", init, s.Condition, s.Update.Target, s.Update.Value)
		p.block(s.Body)
		p.line("}")
	default:
		panic(fmt.Sprintf("unexpected statement %T", stmt))
	}
}
