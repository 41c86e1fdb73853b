package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	mas "go.mas.dev/pkg"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      guarded(dumpConfig),
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[file]",
		Description: `The dumpconfig command shows the effective configuration: defaults, then the --config file, then flags.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

func loadConfig(file string, cfg *mas.Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

var colorModes = map[string]bool{"auto": true, "always": true, "never": true}

// makeConfig layers the config file and the global flags over the defaults.
func makeConfig(ctx *cli.Context) (mas.Config, error) {
	cfg := mas.DefaultConfig

	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}

	if ctx.GlobalIsSet(maxUnrollFlag.Name) {
		cfg.Optimizer.MaxUnrolledStatements = ctx.GlobalInt(maxUnrollFlag.Name)
	}
	if ctx.GlobalIsSet(runtimeFlag.Name) {
		cfg.CodeGen.EmitRuntime = ctx.GlobalBool(runtimeFlag.Name)
	}
	if ctx.GlobalIsSet(colorFlag.Name) {
		cfg.Diagnostics.Color = ctx.GlobalString(colorFlag.Name)
	}

	if !colorModes[cfg.Diagnostics.Color] {
		return cfg, fmt.Errorf("invalid colour mode %q", cfg.Diagnostics.Color)
	}

	return cfg, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}

	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)

	return err
}
