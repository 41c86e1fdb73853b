package mas

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// defineBuiltins adds the two print primitives the generated code calls. By default they
// are only declared and the runtime is expected to provide them at link time; with
// runtime set they are defined on top of printf.
func defineBuiltins(b *LLVMIRBuilder, runtime bool) {
	b.printInt = b.mod.NewFunc("print", types.Void, ir.NewParam("v", types.I32))
	b.printBool = b.mod.NewFunc("printBool", types.Void, ir.NewParam("v", types.I1))

	if !runtime {
		return
	}

	printf := b.mod.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	printf.Sig.Variadic = true

	builtinPrint(b.mod, b.printInt, printf)
	builtinPrintBool(b.mod, b.printBool, printf)
}

// cString defines a NUL terminated global and returns an i8* to its first byte.
func cString(mod *ir.Module, name, s string) constant.Constant {
	zero := constant.NewInt(types.I32, 0)

	str := constant.NewCharArrayFromString(s + "\x00")
	glob := mod.NewGlobalDef(name, str)
	glob.Immutable = true

	return constant.NewGetElementPtr(str.Typ, glob, zero, zero)
}

func builtinPrint(mod *ir.Module, f, printf *ir.Func) {
	b := f.NewBlock("")

	format := cString(mod, "._print_fmt", "%d\n")
	b.NewCall(printf, format, f.Params[0])

	b.NewRet(nil)
}

func builtinPrintBool(mod *ir.Module, f, printf *ir.Func) {
	b := f.NewBlock("")

	yes := cString(mod, "._print_true", "true\n")
	no := cString(mod, "._print_false", "false\n")

	b.NewCall(printf, b.NewSelect(f.Params[0], yes, no))

	b.NewRet(nil)
}
