// Package interp executes the modules produced by the code generator without going
// through LLVM. It understands exactly the instruction subset the generator emits.
package interp

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ethereum/go-ethereum/log"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("signed overflow")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrUnsupported    = errors.New("unsupported instruction")
	ErrNoEntry        = errors.New("entry routine not found")
)

const DefaultMaxSteps = 10_000_000

// Machine runs an entry routine, writing everything printed to Out.
type Machine struct {
	Out      io.Writer
	MaxSteps int

	env   map[value.Value]int64
	mem   map[value.Value]int64
	steps int
}

func New(out io.Writer) *Machine {
	return &Machine{
		Out:      out,
		MaxSteps: DefaultMaxSteps,
	}
}

// Run executes the function called entry and returns its exit code.
func (m *Machine) Run(mod *ir.Module, entry string) (int32, error) {
	var fn *ir.Func
	for _, f := range mod.Funcs {
		if f.Name() == entry && len(f.Blocks) != 0 {
			fn = f
			break
		}
	}

	if fn == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoEntry, entry)
	}

	m.env = make(map[value.Value]int64)
	m.mem = make(map[value.Value]int64)
	m.steps = 0

	code, err := m.function(fn)
	log.Trace("Interpreted module", "entry", entry, "steps", m.steps, "err", err)

	return code, err
}

func (m *Machine) function(fn *ir.Func) (int32, error) {
	var pred *ir.Block
	block := fn.Blocks[0]

	for {
		if err := m.phis(block, pred); err != nil {
			return 0, err
		}

		for _, inst := range block.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				continue
			}

			if err := m.tick(); err != nil {
				return 0, err
			}

			if err := m.instruction(inst); err != nil {
				return 0, err
			}
		}

		next, done, code, err := m.terminator(block.Term)
		if err != nil || done {
			return code, err
		}

		pred, block = block, next
	}
}

func (m *Machine) tick() error {
	m.steps++
	if m.MaxSteps > 0 && m.steps > m.MaxSteps {
		return ErrStepLimit
	}

	return nil
}

// phis evaluates every phi at the top of block at once, choosing the incoming value of
// the edge control arrived through.
func (m *Machine) phis(block, pred *ir.Block) error {
	results := make(map[value.Value]int64)
	for _, inst := range block.Insts {
		phi, ok := inst.(*ir.InstPhi)
		if !ok {
			continue
		}

		found := false
		for _, inc := range phi.Incs {
			var from value.Value = inc.Pred
			if b, ok := from.(*ir.Block); !ok || b != pred {
				continue
			}

			v, err := m.eval(inc.X)
			if err != nil {
				return err
			}

			results[phi], found = v, true
			break
		}

		if !found {
			return fmt.Errorf("%w: phi %s has no edge from the previous block", ErrUnsupported, phi.Ident())
		}
	}

	for k, v := range results {
		m.env[k] = v
	}

	return nil
}

func (m *Machine) eval(v value.Value) (int64, error) {
	switch v := v.(type) {
	case *constant.Int:
		return v.X.Int64(), nil
	case *ir.Param:
		return 0, nil
	}

	val, ok := m.env[v]
	if !ok {
		return 0, fmt.Errorf("%w: value %s used before definition", ErrUnsupported, v.Ident())
	}

	return val, nil
}

func (m *Machine) operands(x, y value.Value) (int64, int64, error) {
	a, err := m.eval(x)
	if err != nil {
		return 0, 0, err
	}

	b, err := m.eval(y)
	if err != nil {
		return 0, 0, err
	}

	return a, b, nil
}

func bitSize(t types.Type) uint64 {
	if it, ok := t.(*types.IntType); ok {
		return it.BitSize
	}

	return 64
}

func hasNSW(flags []enum.OverflowFlag) bool {
	for _, f := range flags {
		if f == enum.OverflowFlagNSW {
			return true
		}
	}

	return false
}

// fit truncates v to the width of t, sign extending the result. With checked set a value
// that does not fit is an overflow.
func fit(v int64, t types.Type, checked bool) (int64, error) {
	switch bitSize(t) {
	case 1:
		return v & 1, nil
	case 32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			if checked {
				return 0, ErrOverflow
			}
		}

		return int64(int32(v)), nil
	default:
		return v, nil
	}
}

func (m *Machine) instruction(inst ir.Instruction) error {
	switch inst := inst.(type) {
	case *ir.InstAlloca:
		m.mem[inst] = 0
	case *ir.InstLoad:
		v, ok := m.mem[inst.Src]
		if !ok {
			return fmt.Errorf("%w: load from unknown address %s", ErrUnsupported, inst.Src.Ident())
		}

		m.env[inst] = v
	case *ir.InstStore:
		if _, ok := m.mem[inst.Dst]; !ok {
			return fmt.Errorf("%w: store to unknown address %s", ErrUnsupported, inst.Dst.Ident())
		}

		v, err := m.eval(inst.Src)
		if err != nil {
			return err
		}

		m.mem[inst.Dst] = v
	case *ir.InstAdd:
		return m.arith(inst, inst.X, inst.Y, hasNSW(inst.OverflowFlags), func(a, b int64) int64 { return a + b })
	case *ir.InstSub:
		return m.arith(inst, inst.X, inst.Y, hasNSW(inst.OverflowFlags), func(a, b int64) int64 { return a - b })
	case *ir.InstMul:
		return m.arith(inst, inst.X, inst.Y, hasNSW(inst.OverflowFlags), func(a, b int64) int64 { return a * b })
	case *ir.InstSDiv:
		a, b, err := m.operands(inst.X, inst.Y)
		if err != nil {
			return err
		}

		if b == 0 {
			return ErrDivisionByZero
		}

		// INT_MIN / -1 has no 32-bit result
		v, err := fit(a/b, inst.Type(), true)
		if err != nil {
			return err
		}

		m.env[inst] = v
	case *ir.InstAnd:
		return m.arith(inst, inst.X, inst.Y, false, func(a, b int64) int64 { return a & b })
	case *ir.InstOr:
		return m.arith(inst, inst.X, inst.Y, false, func(a, b int64) int64 { return a | b })
	case *ir.InstICmp:
		a, b, err := m.operands(inst.X, inst.Y)
		if err != nil {
			return err
		}

		ok, err := compare(inst.Pred, a, b)
		if err != nil {
			return err
		}

		m.env[inst] = 0
		if ok {
			m.env[inst] = 1
		}
	case *ir.InstCall:
		return m.call(inst)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, inst)
	}

	return nil
}

func (m *Machine) arith(inst value.Value, x, y value.Value, checked bool, op func(a, b int64) int64) error {
	a, b, err := m.operands(x, y)
	if err != nil {
		return err
	}

	v, err := fit(op(a, b), inst.Type(), checked)
	if err != nil {
		return err
	}

	m.env[inst] = v
	return nil
}

func compare(pred enum.IPred, a, b int64) (bool, error) {
	switch pred {
	case enum.IPredEQ:
		return a == b, nil
	case enum.IPredNE:
		return a != b, nil
	case enum.IPredSLT:
		return a < b, nil
	case enum.IPredSLE:
		return a <= b, nil
	case enum.IPredSGT:
		return a > b, nil
	case enum.IPredSGE:
		return a >= b, nil
	default:
		return false, fmt.Errorf("%w: icmp %s", ErrUnsupported, pred)
	}
}

// call handles the print primitives directly, whether the module defines them or only
// declares them.
func (m *Machine) call(inst *ir.InstCall) error {
	callee, ok := inst.Callee.(*ir.Func)
	if !ok || len(inst.Args) != 1 {
		return fmt.Errorf("%w: call to %s", ErrUnsupported, inst.Callee.Ident())
	}

	v, err := m.eval(inst.Args[0])
	if err != nil {
		return err
	}

	switch callee.Name() {
	case "print":
		_, err = fmt.Fprintf(m.Out, "%d\n", int32(v))
	case "printBool":
		_, err = fmt.Fprintf(m.Out, "%t\n", v != 0)
	default:
		return fmt.Errorf("%w: call to %s", ErrUnsupported, callee.Ident())
	}

	return err
}

func target(v value.Value) (*ir.Block, error) {
	b, ok := v.(*ir.Block)
	if !ok {
		return nil, fmt.Errorf("%w: branch target %T", ErrUnsupported, v)
	}

	return b, nil
}

func (m *Machine) terminator(term ir.Terminator) (next *ir.Block, done bool, code int32, err error) {
	if err := m.tick(); err != nil {
		return nil, false, 0, err
	}

	switch t := term.(type) {
	case *ir.TermRet:
		if t.X == nil {
			return nil, true, 0, nil
		}

		v, err := m.eval(t.X)
		return nil, true, int32(v), err
	case *ir.TermBr:
		var to value.Value = t.Target
		next, err = target(to)
		return next, false, 0, err
	case *ir.TermCondBr:
		cond, err := m.eval(t.Cond)
		if err != nil {
			return nil, false, 0, err
		}

		var to value.Value = t.TargetFalse
		if cond != 0 {
			to = t.TargetTrue
		}

		next, err = target(to)
		return next, false, 0, err
	default:
		return nil, false, 0, fmt.Errorf("%w: terminator %T", ErrUnsupported, term)
	}
}
