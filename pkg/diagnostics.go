package mas

import (
	"fmt"
	"strings"
)

type DiagnosticKind int

const (
	// Syntax
	LeftParenExpected DiagnosticKind = iota
	RightParenExpected
	LeftBraceExpected
	RightBraceExpected
	SemiColonExpected
	VariableExpected
	EqualExpected
	NumberOrVariableExpected
	UnexpectedToken
	NumberOutOfRange
	InvalidToken

	// Loop bounds
	UnsupportedLoopBoundKind
	UnrollLimitExceeded

	// Semantics
	UndefinedVariable
	UnsupportedPrintType
	IncompatibleTypes
)

var diagnosticNames = [...]string{
	LeftParenExpected:        "LeftParenExpected",
	RightParenExpected:       "RightParenExpected",
	LeftBraceExpected:        "LeftBraceExpected",
	RightBraceExpected:       "RightBraceExpected",
	SemiColonExpected:        "SemiColonExpected",
	VariableExpected:         "VariableExpected",
	EqualExpected:            "EqualExpected",
	NumberOrVariableExpected: "NumberOrVariableExpected",
	UnexpectedToken:          "UnexpectedToken",
	NumberOutOfRange:         "NumberOutOfRange",
	InvalidToken:             "InvalidToken",
	UnsupportedLoopBoundKind: "UnsupportedLoopBoundKind",
	UnrollLimitExceeded:      "UnrollLimitExceeded",
	UndefinedVariable:        "UndefinedVariable",
	UnsupportedPrintType:     "UnsupportedPrintType",
	IncompatibleTypes:        "IncompatibleTypes",
}

var diagnosticMessages = [...]string{
	LeftParenExpected:        "expected '('",
	RightParenExpected:       "expected ')'",
	LeftBraceExpected:        "expected '{'",
	RightBraceExpected:       "expected '}'",
	SemiColonExpected:        "expected ';'",
	VariableExpected:         "expected a variable name",
	EqualExpected:            "expected an assignment operator",
	NumberOrVariableExpected: "expected a number, boolean, variable or '('",
	UnexpectedToken:          "unexpected token",
	NumberOutOfRange:         "number does not fit in 32 bits",
	InvalidToken:             "invalid token",
	UnsupportedLoopBoundKind: "loop bounds are not statically known",
	UnrollLimitExceeded:      "unrolled loop is too large",
	UndefinedVariable:        "undefined variable",
	UnsupportedPrintType:     "value cannot be printed",
	IncompatibleTypes:        "incompatible types",
}

func (k DiagnosticKind) String() string {
	if k >= 0 && int(k) < len(diagnosticNames) {
		return diagnosticNames[k]
	}

	return fmt.Sprintf("DiagnosticKind(%d)", int(k))
}

// IsSyntax reports whether the kind is raised while parsing.
func (k DiagnosticKind) IsSyntax() bool {
	return k <= InvalidToken
}

// Diagnostic is a single compilation problem. Text carries the offending token or a
// free-form detail, Name the variable involved, if any.
type Diagnostic struct {
	Kind DiagnosticKind
	Loc  *Location
	Text string
	Name string
}

func (d *Diagnostic) Message() string {
	msg := "unknown problem"
	if d.Kind >= 0 && int(d.Kind) < len(diagnosticMessages) {
		msg = diagnosticMessages[d.Kind]
	}

	var str strings.Builder
	str.WriteString(msg)

	if d.Name != "" {
		str.WriteString(": ")
		str.WriteString(d.Name)
	}

	if d.Text != "" {
		fmt.Fprintf(&str, " (%s)", d.Text)
	}

	return str.String()
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s %s: %s", d.Loc, d.Kind, d.Message())
}

func (d *Diagnostic) String() string {
	return d.Error()
}

// DiagnosticSink receives every diagnostic raised while compiling. Whether a report halts
// compilation is decided by whoever drives the compiler, not by the sink.
type DiagnosticSink interface {
	Report(d *Diagnostic)
}

// SinkFunc adapts an ordinary function to a DiagnosticSink.
type SinkFunc func(d *Diagnostic)

func (f SinkFunc) Report(d *Diagnostic) {
	f(d)
}

// DiagnosticList records diagnostics in the order they were reported.
type DiagnosticList struct {
	Items []*Diagnostic
}

func (l *DiagnosticList) Report(d *Diagnostic) {
	l.Items = append(l.Items, d)
}

func (l *DiagnosticList) Len() int {
	return len(l.Items)
}

// Kinds lists the kinds of the recorded diagnostics, in order.
func (l *DiagnosticList) Kinds() []DiagnosticKind {
	kinds := make([]DiagnosticKind, 0, len(l.Items))
	for _, d := range l.Items {
		kinds = append(kinds, d.Kind)
	}

	return kinds
}

func (l *DiagnosticList) Has(kind DiagnosticKind) bool {
	for _, d := range l.Items {
		if d.Kind == kind {
			return true
		}
	}

	return false
}

type discardSink struct{}

func (discardSink) Report(*Diagnostic) {}
