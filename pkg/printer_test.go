package mas

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterReparses(t *testing.T) {
	sources := []string{
		"int a = 1, b; bool c = a < 2 or false; print(a + b * 2 ^ 3);",
		"if (a == 1) { x = 1; } else if (a != 2) { while (x < y) { x += 1; } } else { print(true); }",
		"for (int i = 0; i < 3; i++) { if (i % 2 == 0) { print(i); } }",
	}

	for _, src := range sources {
		prog, err := parseSource(src)
		require.NoError(t, err, src)

		text := Sprint(prog)

		again, err := parseSource(text)
		require.NoError(t, err, text)
		assert.Equal(t, text, Sprint(again), src)
	}
}

func TestPrinterFor(t *testing.T) {
	loop := &ForStatement{
		Init:             &Assignment{Target: "i", Value: num(0)},
		DeclaresIterator: true,
		Condition:        &BooleanExpr{Operation: BooleanLess, Left: ident("i"), Right: num(3)},
		Update:           &Assignment{Target: "i", Value: add(ident("i"), num(1))},
		Body:             []Statement{printOf(ident("i"))},
	}

	text := Sprint(&Program{Statements: []Statement{loop}})
	assert.Equal(t, "for (int i = 0; (i < 3); i = (i + 1)) {\n    print(i);\n}\n", text)
}

func TestDump(t *testing.T) {
	prog, err := parseSource("int a = 1; print(a);")
	require.NoError(t, err)

	var buf bytes.Buffer
	Dump(&buf, prog)

	out := buf.String()
	assert.Contains(t, out, "Declaration")
	assert.Contains(t, out, "PrintStatement")
	assert.Contains(t, out, "test.mas")
}
