package mas

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mas.dev/internal/interp"
)

var update = flag.Bool("update", false, "rewrite the golden IR files in testdata")

func TestValueLookup(t *testing.T) {
	vals := NewValueLookup()

	slot1 := ir.NewAlloca(types.I32)
	slot2 := ir.NewAlloca(types.I1)

	vals.Set("id1", slot1)
	vals.Set("id2", slot2)

	got, ok := vals.Get("id1")
	assert.True(t, ok)
	assert.Equal(t, slot1, got)

	got, ok = vals.Get("id2")
	assert.True(t, ok)
	assert.Equal(t, slot2, got)

	_, ok = vals.Get("id3")
	assert.False(t, ok)

	// Redeclaring rebinds the name
	slot3 := ir.NewAlloca(types.I32)
	vals.Set("id1", slot3)

	got, _ = vals.Get("id1")
	assert.Equal(t, slot3, got)
}

func generate(t *testing.T, src string, opts ...GeneratorOption) (*ir.Module, []DiagnosticKind) {
	t.Helper()

	prog, err := parseSource(src)
	require.NoError(t, err, src)

	var diags DiagnosticList
	mod := NewLLVMGenerator(prog, append([]GeneratorOption{WithDiagnostics(&diags)}, opts...)...).Generate()

	return mod, diags.Kinds()
}

func execute(t *testing.T, mod *ir.Module) (string, error) {
	t.Helper()

	var out bytes.Buffer
	m := interp.New(&out)
	m.MaxSteps = 1_000_000

	_, err := m.Run(mod, "main")
	return out.String(), err
}

func TestGeneratorBehaviour(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		output string
	}{
		{"defaults", "int x; bool b; print(x); print(b);", "0\nfalse\n"},
		{"addition", "int a = 3; int b = 5; print(a + b);", "8\n"},
		{"declaration order", "int a = 1, b = a + 1; print(b);", "2\n"},
		{"power", "int a = 2, b = 3; print(a ^ b);", "8\n"},
		{"power of zero", "int a = 5; print(a ^ 0); print(0 ^ 0);", "1\n1\n"},
		{"power negative exponent", "print(2 ^ (0 - 1));", "1\n"},
		{"power left associative", "print(2 ^ 3 ^ 2);", "64\n"},
		{"power in condition", "int a = 3; if (a ^ 2 == 9) { print(1); }", "1\n"},
		{"division", "int a = 7; print(a / 2); print(-7 / 2);", "3\n-3\n"},
		{"modulo", "int a = 7; print(a % 3); print(-7 % 3); print(7 % -3);", "1\n-1\n1\n"},
		{"negation", "int a = 4; print(-a + 1);", "-3\n"},
		{"smallest literal", "int a = -2147483648; print(a); print(a + 1); print(-2 ^ 2);", "-2147483648\n-2147483647\n-4\n"},
		{
			"compound assignment",
			"int x = 5; x += 3; print(x); x++; print(x); x--; x -= 2; print(x); x *= 4; print(x); x /= 3; print(x); x %= 3; print(x);",
			"8\n9\n6\n24\n8\n2\n",
		},
		{"comparisons", "print(1 < 2); print(2 <= 1); print(3 != 3); print(3 == 3); print(4 > 3); print(3 >= 4);", "true\nfalse\nfalse\ntrue\ntrue\nfalse\n"},
		{"boolean ops", "bool t = true; print(t and false); print(t or false); print(t == false);", "false\ntrue\nfalse\n"},
		{"if", "int a = 0; if (a == 0) { print(0); } else if (a == 1) { print(1); } else { print(2); }", "0\n"},
		{"else if", "int a = 1; if (a == 0) { print(0); } else if (a == 1) { print(1); } else { print(2); }", "1\n"},
		{"else", "int a = 5; if (a == 0) { print(0); } else if (a == 1) { print(1); } else { print(2); }", "2\n"},
		{"if without else", "if (false) { print(1); } print(2);", "2\n"},
		{"nested if", "int a = 2; if (a > 1) { if (a > 5) { print(5); } else { print(1); } } print(a);", "1\n2\n"},
		{"for", "for (int i = 0; i < 3; i++) { print(i); } print(i);", "0\n1\n2\n3\n"},
		{"for step", "int i; for (i = 1; i <= 7; i += 3) { print(i); } print(i);", "1\n4\n7\n10\n"},
		{"for never runs", "for (int i = 9; i < 3; i++) { print(i); } print(i);", "9\n"},
		{
			"nested for",
			"for (int i = 0; i < 2; i++) { for (int j = 0; j < 2; j++) { print(i * 10 + j); } }",
			"0\n1\n10\n11\n",
		},
		{"while unrolled", "int i = 0; while (i < 3) { print(i); i = i + 1; } print(i);", "0\n1\n2\n3\n"},
		{"while after updater", "int i = 0; while (i < 2) { i += 1; print(i); }", "1\n2\n"},
		{
			"while loop",
			"int n = 4; int i = 0; int s = 0; while (i < n) { s = s + i; i = i + 1; } print(s); print(i);",
			"6\n4\n",
		},
		{
			"while never runs",
			"int n = 0; int i = 0; while (i < n) { print(i); i++; } print(7);",
			"7\n",
		},
		{"shadowing", "int x = 1; if (true) { int x = 2; } print(x);", "2\n"},
		{"redeclaration uses old value", "int x = 1; int x = x + 1; print(x);", "2\n"},
	}

	for _, c := range cases {
		mod, diags := generate(t, c.src)
		assert.Empty(t, diags, c.name)

		out, err := execute(t, mod)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.output, out, c.name)
	}
}

func TestGeneratorDiagnostics(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		diags  []DiagnosticKind
		output string
	}{
		{
			"undefined variable",
			"print(y); y = 1; int z = y; print(z);",
			[]DiagnosticKind{UndefinedVariable, UndefinedVariable, UndefinedVariable},
			"0\n",
		},
		{
			"undefined in expression",
			"int a = 1; print(a + missing); print(a);",
			[]DiagnosticKind{UndefinedVariable},
			"1\n",
		},
		{"bool into int", "int x = true; print(x);", []DiagnosticKind{IncompatibleTypes}, "0\n"},
		{"int into bool", "bool b; b = 3; print(b);", []DiagnosticKind{IncompatibleTypes}, "false\n"},
		{"arithmetic on bool", "bool b = 1 + true;", []DiagnosticKind{IncompatibleTypes}, ""},
		{"ordering bools", "print(true < false);", []DiagnosticKind{IncompatibleTypes}, ""},
		{"and on ints", "print(1 and 2);", []DiagnosticKind{IncompatibleTypes}, ""},
		{"int condition", "if (1) { print(1); } print(2);", []DiagnosticKind{IncompatibleTypes}, "2\n"},
		{"undefined condition", "while (nope) { print(1); } print(2);", []DiagnosticKind{UndefinedVariable}, "2\n"},
	}

	for _, c := range cases {
		mod, diags := generate(t, c.src)
		assert.Equal(t, c.diags, diags, c.name)

		out, err := execute(t, mod)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.output, out, c.name)
	}
}

func TestGeneratorDiagnosticLocation(t *testing.T) {
	prog, err := parseSource("int a = 1;\nprint(a + b);")
	require.NoError(t, err)

	var diags DiagnosticList
	NewLLVMGenerator(prog, WithDiagnostics(&diags)).Generate()

	require.Equal(t, 1, diags.Len())
	d := diags.Items[0]
	assert.Equal(t, UndefinedVariable, d.Kind)
	assert.Equal(t, "b", d.Name)
	assert.Equal(t, "test.mas:2:11", d.Loc.String())
}

func TestGeneratorFaults(t *testing.T) {
	cases := []struct {
		src string
		err error
	}{
		// and / or evaluate both sides
		{"print(true or 1 / 0 == 0);", interp.ErrDivisionByZero},
		{"print(false and 1 % 0 == 0);", interp.ErrDivisionByZero},
		{"int x = 2147483647; x = x + 1;", interp.ErrOverflow},
		{"int x = 65536; x = x * x;", interp.ErrOverflow},
		{"int x = 2 ^ 31;", interp.ErrOverflow},
	}

	for _, c := range cases {
		mod, diags := generate(t, c.src)
		assert.Empty(t, diags, c.src)

		_, err := execute(t, mod)
		assert.True(t, errors.Is(err, c.err), "%s: got %v", c.src, err)
	}
}

func TestGeneratorIR(t *testing.T) {
	mod, _ := generate(t, "int a = 2; int b = a + 1; if (b > a) { print(a ^ b); } else { print(false); } while (a < b) { a = a * 2; }")
	text := mod.String()

	for _, want := range []string{
		"define i32 @main(i32",
		"declare void @print(i32",
		"declare void @printBool(i1",
		"entry:",
		"add nsw i32",
		"mul nsw i32",
		"icmp sgt i32",
		"if.cond:",
		"if.body:",
		"else.body:",
		"after.if:",
		"pow.loop:",
		"pow.end:",
		"phi i32",
		"while.cond:",
		"while.body:",
		"after.while:",
		"ret i32 0",
	} {
		assert.Contains(t, text, want)
	}

	assert.NotContains(t, text, "printf")
}

func TestGeneratorBlockNames(t *testing.T) {
	mod, _ := generate(t, "int x = 1; if (true) { print(x); } if (true) { print(x); } int x = 2;")

	var names []string
	for _, b := range mod.Funcs[len(mod.Funcs)-1].Blocks {
		names = append(names, b.Name())
	}

	assert.Equal(t, []string{"entry", "if.cond", "if.body", "after.if", "if.cond.1", "if.body.1", "after.if.1"}, names)
	assert.Contains(t, mod.String(), "%x.1 = alloca i32")
}

func TestGeneratorRuntime(t *testing.T) {
	src := "bool b = 2 > 1; print(b); print(40 + 2);"

	mod, diags := generate(t, src, WithRuntime(true), WithEntryName("entrypoint"))
	require.Empty(t, diags)

	text := mod.String()
	assert.Contains(t, text, "define void @print(i32")
	assert.Contains(t, text, "define void @printBool(i1")
	assert.Contains(t, text, "declare i32 @printf(")
	assert.Contains(t, text, "define i32 @entrypoint(")

	var out bytes.Buffer
	_, err := interp.New(&out).Run(mod, "entrypoint")
	require.NoError(t, err)
	assert.Equal(t, "true\n42\n", out.String())
}

func TestGeneratorDeterministic(t *testing.T) {
	src := "int a = 3; for (int i = 0; i < 4; i++) { if (i % 2 == 0) { a += i ^ 2; } else { print(a); } } while (a < 100) { a *= 2; } print(a);"

	first, _ := generate(t, src)
	second, _ := generate(t, src)

	assert.Equal(t, first.String(), second.String())
}

func TestGeneratorGolden(t *testing.T) {
	sources, err := filepath.Glob(filepath.Join("testdata", "*.mas"))
	require.NoError(t, err)
	require.NotEmpty(t, sources)

	for _, path := range sources {
		res, err := NewCompiler(DefaultConfig).Compile(path)
		require.NoError(t, err, path)
		require.False(t, res.HasErrors(), path)

		golden := strings.TrimSuffix(path, ".mas") + ".ll"
		if *update {
			require.NoError(t, os.WriteFile(golden, []byte(res.IR()), 0644))
			continue
		}

		want, err := os.ReadFile(golden)
		if os.IsNotExist(err) {
			t.Fatalf("no golden file for %s, run with -update", path)
		}
		require.NoError(t, err)

		assert.Equal(t, string(want), res.IR(), path)
	}
}
