package mas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileString(t *testing.T) {
	res, err := NewCompiler(DefaultConfig).CompileString("ok.mas", "int x = 1; print(x);")
	require.NoError(t, err)

	assert.False(t, res.HasErrors())
	assert.NotNil(t, res.Program)
	assert.Contains(t, res.IR(), "source_filename = \"ok.mas\"")
	assert.Contains(t, res.IR(), "call void @print(i32")
}

func TestCompileSyntaxError(t *testing.T) {
	res, err := NewCompiler(DefaultConfig).CompileString("bad.mas", "int x = 1")
	require.Error(t, err)

	diag, ok := err.(*Diagnostic)
	require.True(t, ok)
	assert.Equal(t, SemiColonExpected, diag.Kind)

	require.NotNil(t, res)
	assert.Nil(t, res.Program)
	assert.Nil(t, res.Module)
	assert.Equal(t, "", res.IR())
	assert.True(t, res.HasErrors())
	assert.Equal(t, []*Diagnostic{diag}, res.Diagnostics)
}

func TestCompileSemanticErrors(t *testing.T) {
	res, err := NewCompiler(DefaultConfig).CompileString("sem.mas", "print(a); int b = true;")
	require.NoError(t, err)

	assert.True(t, res.HasErrors())
	assert.NotNil(t, res.Module)

	var kinds []DiagnosticKind
	for _, d := range res.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []DiagnosticKind{UndefinedVariable, IncompatibleTypes}, kinds)
}

func TestCompileConfig(t *testing.T) {
	src := "for (int i = 0; i < 20; i++) { print(i); }"

	_, err := NewCompiler(DefaultConfig).CompileString("cfg.mas", src)
	require.NoError(t, err)

	cfg := DefaultConfig
	cfg.Optimizer.MaxUnrolledStatements = 10
	cfg.CodeGen.EmitRuntime = true
	cfg.CodeGen.EntryName = ""

	_, err = NewCompiler(cfg).CompileString("cfg.mas", src)
	require.Error(t, err)
	assert.Equal(t, UnrollLimitExceeded, err.(*Diagnostic).Kind)

	res, err := NewCompiler(cfg).CompileString("cfg.mas", "print(1);")
	require.NoError(t, err)
	assert.Contains(t, res.IR(), "define i32 @main(")
	assert.Contains(t, res.IR(), "@printf(")
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.mas")
	require.NoError(t, os.WriteFile(path, []byte("bool b = true;\nprint(b);\n"), 0644))

	res, err := NewCompiler(DefaultConfig).Compile(path)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())
	assert.Equal(t, path, res.Program.Filename)

	_, err = NewCompiler(DefaultConfig).Compile(filepath.Join(t.TempDir(), "missing.mas"))
	require.Error(t, err)

	_, isDiag := err.(*Diagnostic)
	assert.False(t, isDiag)
}
