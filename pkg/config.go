package mas

// Config holds every tunable of the compiler. Field names double as TOML keys.
type Config struct {
	Optimizer   OptimizerConfig
	CodeGen     CodeGenConfig
	Diagnostics DiagnosticsConfig
}

type OptimizerConfig struct {
	// MaxUnrolledStatements caps the size of a single unrolled loop. Zero means the default.
	MaxUnrolledStatements int
}

type CodeGenConfig struct {
	// EmitRuntime defines print and printBool in the module instead of declaring them.
	EmitRuntime bool
	EntryName   string
}

// Entry is the name of the generated entry routine.
func (c CodeGenConfig) Entry() string {
	if c.EntryName == "" {
		return "main"
	}

	return c.EntryName
}

type DiagnosticsConfig struct {
	// Color is one of auto, always or never.
	Color string
}

var DefaultConfig = Config{
	Optimizer: OptimizerConfig{
		MaxUnrolledStatements: DefaultMaxUnrolledStatements,
	},
	CodeGen: CodeGenConfig{
		EntryName: "main",
	},
	Diagnostics: DiagnosticsConfig{
		Color: "auto",
	},
}
