package mas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnosticError(t *testing.T) {
	cases := []struct {
		diag   *Diagnostic
		expect string
	}{
		{
			&Diagnostic{Kind: SemiColonExpected, Loc: &Location{"a.mas", 3, 7}, Text: "print"},
			"a.mas:3:7 SemiColonExpected: expected ';' (print)",
		},
		{
			&Diagnostic{Kind: UndefinedVariable, Loc: &Location{"a.mas", 1, 1}, Name: "x"},
			"a.mas:1:1 UndefinedVariable: undefined variable: x",
		},
		{
			&Diagnostic{Kind: UnrollLimitExceeded, Name: "i", Text: "20 statements, limit 10"},
			"- UnrollLimitExceeded: unrolled loop is too large: i (20 statements, limit 10)",
		},
	}

	for _, c := range cases {
		assert.Equal(t, c.expect, c.diag.Error())
	}
}

func TestDiagnosticKind(t *testing.T) {
	assert.True(t, LeftParenExpected.IsSyntax())
	assert.True(t, InvalidToken.IsSyntax())
	assert.False(t, UnsupportedLoopBoundKind.IsSyntax())
	assert.False(t, UndefinedVariable.IsSyntax())

	assert.Equal(t, "IncompatibleTypes", IncompatibleTypes.String())
	assert.Equal(t, "DiagnosticKind(99)", DiagnosticKind(99).String())
}

func TestDiagnosticSinks(t *testing.T) {
	var list DiagnosticList
	var seen []string

	sinks := []DiagnosticSink{
		&list,
		SinkFunc(func(d *Diagnostic) { seen = append(seen, d.Name) }),
	}

	for _, sink := range sinks {
		sink.Report(&Diagnostic{Kind: UndefinedVariable, Name: "a"})
		sink.Report(&Diagnostic{Kind: UnsupportedPrintType, Name: "b"})
	}

	assert.Equal(t, 2, list.Len())
	assert.Equal(t, []DiagnosticKind{UndefinedVariable, UnsupportedPrintType}, list.Kinds())
	assert.True(t, list.Has(UnsupportedPrintType))
	assert.False(t, list.Has(IncompatibleTypes))
	assert.Equal(t, []string{"a", "b"}, seen)
}
