package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mas "go.mas.dev/pkg"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		data   string
		fail   bool
		expect func(cfg *mas.Config)
	}{
		{
			"[Optimizer]\nMaxUnrolledStatements = 50\n\n[CodeGen]\nEmitRuntime = true\nEntryName = \"start\"\n",
			false,
			func(cfg *mas.Config) {
				cfg.Optimizer.MaxUnrolledStatements = 50
				cfg.CodeGen.EmitRuntime = true
				cfg.CodeGen.EntryName = "start"
			},
		},
		{
			"[Diagnostics]\nColor = \"never\"\n",
			false,
			func(cfg *mas.Config) {
				cfg.Diagnostics.Color = "never"
			},
		},
		{
			"[Optimizer]\nUnrollEverything = true\n",
			true,
			nil,
		},
		{
			"[Optimizer\n",
			true,
			nil,
		},
	}

	for i, c := range cases {
		path := filepath.Join(dir, "cfg.toml")
		require.NoError(t, os.WriteFile(path, []byte(c.data), 0644))

		cfg := mas.DefaultConfig
		err := loadConfig(path, &cfg)
		if c.fail {
			assert.Error(t, err, i)
			continue
		}
		require.NoError(t, err, i)

		expect := mas.DefaultConfig
		c.expect(&expect)
		assert.Equal(t, expect, cfg, i)
	}
}

func TestDumpedConfigLoads(t *testing.T) {
	out, err := tomlSettings.Marshal(&mas.DefaultConfig)
	require.NoError(t, err)
	assert.Contains(t, string(out), "MaxUnrolledStatements")

	path := filepath.Join(t.TempDir(), "dump.toml")
	require.NoError(t, os.WriteFile(path, out, 0644))

	var cfg mas.Config
	require.NoError(t, loadConfig(path, &cfg))
	assert.Equal(t, mas.DefaultConfig, cfg)
}
