package interp

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i32(v int64) *constant.Int {
	return constant.NewInt(types.I32, v)
}

// newModule declares the print primitives and an empty entry routine.
func newModule() (*ir.Module, *ir.Func, *ir.Func, *ir.Block) {
	mod := ir.NewModule()
	print := mod.NewFunc("print", types.Void, ir.NewParam("v", types.I32))
	printBool := mod.NewFunc("printBool", types.Void, ir.NewParam("v", types.I1))
	main := mod.NewFunc("main", types.I32)

	return mod, print, printBool, main.NewBlock("entry")
}

func TestRunStraightLine(t *testing.T) {
	mod, print, printBool, entry := newModule()

	slot := entry.NewAlloca(types.I32)
	entry.NewStore(i32(41), slot)
	v := entry.NewLoad(types.I32, slot)
	entry.NewCall(print, entry.NewAdd(v, i32(1)))
	entry.NewCall(print, entry.NewSDiv(i32(-7), i32(2)))
	entry.NewCall(printBool, entry.NewICmp(enum.IPredSLE, v, i32(41)))
	entry.NewCall(printBool, entry.NewAnd(constant.True, constant.False))
	entry.NewCall(printBool, entry.NewOr(constant.True, constant.False))
	entry.NewRet(i32(3))

	var out bytes.Buffer
	code, err := New(&out).Run(mod, "main")
	require.NoError(t, err)

	assert.Equal(t, int32(3), code)
	assert.Equal(t, "42\n-3\ntrue\nfalse\ntrue\n", out.String())
}

func TestRunPhiLoop(t *testing.T) {
	mod, print, _, entry := newModule()
	main := mod.Funcs[2]

	loop := main.NewBlock("loop")
	exit := main.NewBlock("exit")

	entry.NewBr(loop)

	// counts 0, 1, 2 then leaves
	idx := loop.NewPhi(ir.NewIncoming(i32(0), entry))
	loop.NewCall(print, idx)
	next := loop.NewAdd(idx, i32(1))
	idx.Incs = append(idx.Incs, ir.NewIncoming(next, loop))
	loop.NewCondBr(loop.NewICmp(enum.IPredSLT, next, i32(3)), loop, exit)

	exit.NewRet(i32(0))

	var out bytes.Buffer
	_, err := New(&out).Run(mod, "main")
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out.String())
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name  string
		build func(mod *ir.Module, entry *ir.Block)
		err   error
	}{
		{
			"division by zero",
			func(mod *ir.Module, entry *ir.Block) {
				entry.NewSDiv(i32(1), i32(0))
				entry.NewRet(i32(0))
			},
			ErrDivisionByZero,
		},
		{
			"overflow",
			func(mod *ir.Module, entry *ir.Block) {
				add := entry.NewAdd(i32(math.MaxInt32), i32(1))
				add.OverflowFlags = []enum.OverflowFlag{enum.OverflowFlagNSW}
				entry.NewRet(i32(0))
			},
			ErrOverflow,
		},
		{
			"division overflow",
			func(mod *ir.Module, entry *ir.Block) {
				entry.NewSDiv(i32(math.MinInt32), i32(-1))
				entry.NewRet(i32(0))
			},
			ErrOverflow,
		},
		{
			"unsupported instruction",
			func(mod *ir.Module, entry *ir.Block) {
				entry.NewXor(i32(1), i32(2))
				entry.NewRet(i32(0))
			},
			ErrUnsupported,
		},
		{
			"unknown callee",
			func(mod *ir.Module, entry *ir.Block) {
				other := mod.NewFunc("other", types.Void, ir.NewParam("v", types.I32))
				entry.NewCall(other, i32(1))
				entry.NewRet(i32(0))
			},
			ErrUnsupported,
		},
		{
			"endless loop",
			func(mod *ir.Module, entry *ir.Block) {
				entry.NewBr(entry)
			},
			ErrStepLimit,
		},
	}

	for _, c := range cases {
		mod, _, _, entry := newModule()
		c.build(mod, entry)

		m := New(&bytes.Buffer{})
		m.MaxSteps = 1000

		_, err := m.Run(mod, "main")
		assert.True(t, errors.Is(err, c.err), "%s: got %v", c.name, err)
	}
}

func TestRunWrapsWithoutNSW(t *testing.T) {
	mod, print, _, entry := newModule()

	entry.NewCall(print, entry.NewAdd(i32(math.MaxInt32), i32(1)))
	entry.NewRet(i32(0))

	var out bytes.Buffer
	_, err := New(&out).Run(mod, "main")
	require.NoError(t, err)
	assert.Equal(t, "-2147483648\n", out.String())
}

func TestRunMissingEntry(t *testing.T) {
	mod, _, _, entry := newModule()
	entry.NewRet(i32(0))

	_, err := New(&bytes.Buffer{}).Run(mod, "start")
	assert.True(t, errors.Is(err, ErrNoEntry))

	// Declarations cannot be run
	_, err = New(&bytes.Buffer{}).Run(mod, "print")
	assert.True(t, errors.Is(err, ErrNoEntry))
}
