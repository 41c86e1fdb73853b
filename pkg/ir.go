package mas

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// ValueLookup is the symbol table: a single flat namespace from variable name to stack
// slot. Redeclaring a name rebinds it for every later reference; leaving a block does not
// restore the previous binding.
type ValueLookup struct {
	vals map[string]*ir.InstAlloca
}

func NewValueLookup() *ValueLookup {
	return &ValueLookup{
		vals: make(map[string]*ir.InstAlloca),
	}
}

func (l *ValueLookup) Get(id string) (*ir.InstAlloca, bool) {
	slot, ok := l.vals[id]
	return slot, ok
}

func (l *ValueLookup) Set(id string, slot *ir.InstAlloca) {
	l.vals[id] = slot
}

var comparisonPreds = map[BooleanOp]enum.IPred{
	BooleanEqual:        enum.IPredEQ,
	BooleanNotEqual:     enum.IPredNE,
	BooleanLess:         enum.IPredSLT,
	BooleanLessEqual:    enum.IPredSLE,
	BooleanGreater:      enum.IPredSGT,
	BooleanGreaterEqual: enum.IPredSGE,
}

// LLVMIRBuilder lowers statements into the blocks of a single function. block is the
// insertion point; lowering control flow moves it to the continuation block.
type LLVMIRBuilder struct {
	mod    *ir.Module
	fn     *ir.Func
	block  *ir.Block
	values *ValueLookup
	sink   DiagnosticSink

	printInt  *ir.Func
	printBool *ir.Func

	// Slots live at the top of the entry block so they dominate every use
	slots []ir.Instruction

	names map[string]int
	loc   *Location
}

func NewLLVMIRBuilder(sink DiagnosticSink) *LLVMIRBuilder {
	return &LLVMIRBuilder{
		mod:    ir.NewModule(),
		values: NewValueLookup(),
		sink:   sink,
		names: map[string]int{
			"entry": 1,
			"argc":  1,
			"argv":  1,
		},
	}
}

// uniqueName returns base the first time it is asked for and base.N afterwards. Source
// identifiers cannot contain dots, so generated names never clash with them.
func (b *LLVMIRBuilder) uniqueName(base string) string {
	n := b.names[base]
	b.names[base] = n + 1

	if n == 0 {
		return base
	}

	return base + "." + strconv.Itoa(n)
}

// detached creates a block that is not yet part of the function; enter attaches it. Blocks
// therefore appear in the output in the order control first reaches them.
func (b *LLVMIRBuilder) detached(name string) *ir.Block {
	return ir.NewBlock(b.uniqueName(name))
}

func (b *LLVMIRBuilder) enter(block *ir.Block) {
	block.Parent = b.fn
	b.fn.Blocks = append(b.fn.Blocks, block)
	b.block = block
}

func (b *LLVMIRBuilder) report(kind DiagnosticKind, name, text string) {
	d := &Diagnostic{Kind: kind, Loc: b.loc, Name: name, Text: text}
	b.sink.Report(d)

	log.Debug("Dropped instruction", "kind", kind, "name", name, "at", b.loc)
}

// function opens the entry routine: i32 name(i32 argc, i8** argv).
func (b *LLVMIRBuilder) function(name string) {
	b.fn = b.mod.NewFunc(name, types.I32,
		ir.NewParam("argc", types.I32),
		ir.NewParam("argv", types.NewPointer(types.I8Ptr)),
	)

	entry := ir.NewBlock("entry")
	b.enter(entry)
}

func (b *LLVMIRBuilder) finish() {
	b.block.NewRet(constant.NewInt(types.I32, 0))

	entry := b.fn.Blocks[0]
	entry.Insts = append(b.slots, entry.Insts...)
}

func (b *LLVMIRBuilder) statements(stmts []Statement) {
	for _, stmt := range stmts {
		b.statement(stmt)
	}
}

func (b *LLVMIRBuilder) statement(stmt Statement) {
	b.loc = stmt.Location()

	switch s := stmt.(type) {
	case *Declaration:
		b.variableDecl(s)
	case *Assignment:
		b.assignment(s)
	case *PrintStatement:
		b.print(s)
	case *IfStatement:
		b.ifStatement(s)
	case *WhileStatement:
		b.whileStatement(s)
	default:
		panic(fmt.Sprintf("unexpected statement %T in code generation", stmt))
	}
}

func llvmType(t VarType) types.Type {
	if t == TypeBool {
		return types.I1
	}

	return types.I32
}

func zeroValue(t VarType) value.Value {
	if t == TypeBool {
		return constant.NewBool(false)
	}

	return constant.NewInt(types.I32, 0)
}

func isInt(v value.Value) bool {
	return v.Type().Equal(types.I32)
}

func isBool(v value.Value) bool {
	return v.Type().Equal(types.I1)
}

// variableDecl evaluates the initializer, then allocates a fresh slot and binds the name
// to it. An initializer that cannot be lowered leaves the zero value in the slot. Each
// declaration site owns one slot, reused when a loop runs the declaration again.
func (b *LLVMIRBuilder) variableDecl(s *Declaration) {
	typ := llvmType(s.Type)
	init := zeroValue(s.Type)

	if s.Value != nil {
		if v := b.recursiveLoad(s.Value); v != nil {
			if v.Type().Equal(typ) {
				init = v
			} else {
				b.report(IncompatibleTypes, s.Name, fmt.Sprintf("cannot initialise %s with %s", typ, v.Type()))
			}
		}
	}

	slot := ir.NewAlloca(typ)
	slot.SetName(b.uniqueName(s.Name))
	b.slots = append(b.slots, slot)
	b.block.NewStore(init, slot)

	b.values.Set(s.Name, slot)
}

func (b *LLVMIRBuilder) assignment(s *Assignment) {
	v := b.recursiveLoad(s.Value)

	slot, ok := b.values.Get(s.Target)
	if !ok {
		b.report(UndefinedVariable, s.Target, "")
		return
	}

	if v == nil {
		return
	}

	if !v.Type().Equal(slot.ElemType) {
		b.report(IncompatibleTypes, s.Target, fmt.Sprintf("cannot assign %s to %s", v.Type(), slot.ElemType))
		return
	}

	b.block.NewStore(v, slot)
}

func (b *LLVMIRBuilder) print(s *PrintStatement) {
	v := b.recursiveLoad(s.Operand)
	if v == nil {
		return
	}

	switch {
	case isInt(v):
		b.block.NewCall(b.printInt, v)
	case isBool(v):
		b.block.NewCall(b.printBool, v)
	default:
		// Unreachable while i32 and i1 are the only value types
		b.report(UnsupportedPrintType, "", v.Type().String())
	}
}

// condition lowers a branch condition. A condition that cannot be lowered is replaced by
// false so the guarded body is skipped.
func (b *LLVMIRBuilder) condition(expr Expression) value.Value {
	v := b.recursiveLoad(expr)
	if v == nil {
		return constant.False
	}

	if !isBool(v) {
		b.report(IncompatibleTypes, "", fmt.Sprintf("condition is %s, not i1", v.Type()))
		return constant.False
	}

	return v
}

func (b *LLVMIRBuilder) ifStatement(s *IfStatement) {
	type arm struct {
		cond Expression
		body []Statement
		name string
	}

	arms := []arm{{s.Condition, s.Body, "if.body"}}
	for _, elseIf := range s.ElseIfs {
		arms = append(arms, arm{elseIf.Condition, elseIf.Body, "elseif.body"})
	}

	after := b.detached("after.if")
	cond := b.detached("if.cond")
	b.block.NewBr(cond)

	var elseBlock *ir.Block
	for i, a := range arms {
		b.enter(cond)
		c := b.condition(a.cond)

		next := after
		switch {
		case i+1 < len(arms):
			next = b.detached("elseif.cond")
		case s.Else != nil:
			next = b.detached("else.body")
			elseBlock = next
		}

		body := b.detached(a.name)
		b.block.NewCondBr(c, body, next)

		b.enter(body)
		b.statements(a.body)
		b.block.NewBr(after)

		cond = next
	}

	if elseBlock != nil {
		b.enter(elseBlock)
		b.statements(s.Else)
		b.block.NewBr(after)
	}

	b.enter(after)
}

func (b *LLVMIRBuilder) whileStatement(s *WhileStatement) {
	cond := b.detached("while.cond")
	body := b.detached("while.body")
	after := b.detached("after.while")

	b.block.NewBr(cond)

	b.enter(cond)
	b.block.NewCondBr(b.condition(s.Condition), body, after)

	b.enter(body)
	b.statements(s.Body)
	b.block.NewBr(cond)

	b.enter(after)
}

// recursiveLoad lowers an expression, operands left to right. It returns nil when the
// expression cannot be lowered; the problem has been reported by then.
func (b *LLVMIRBuilder) recursiveLoad(expr Expression) value.Value {
	switch e := expr.(type) {
	case *NumberLiteral:
		return constant.NewInt(types.I32, int64(e.Value))
	case *BooleanLiteral:
		return constant.NewBool(e.Value)
	case *Identifier:
		slot, ok := b.values.Get(e.Name)
		if !ok {
			if e.Loc != nil {
				b.loc = e.Loc
			}

			b.report(UndefinedVariable, e.Name, "")
			return nil
		}

		return b.block.NewLoad(slot.ElemType, slot)
	case *BinaryExpr:
		return b.binaryExpression(e)
	case *BooleanExpr:
		return b.booleanExpression(e)
	default:
		panic(fmt.Sprintf("unexpected expression %T in code generation", expr))
	}
}

func (b *LLVMIRBuilder) operands(left, right Expression) (value.Value, value.Value) {
	l := b.recursiveLoad(left)
	r := b.recursiveLoad(right)

	return l, r
}

func nsw() []enum.OverflowFlag {
	return []enum.OverflowFlag{enum.OverflowFlagNSW}
}

func (b *LLVMIRBuilder) add(x, y value.Value) value.Value {
	inst := b.block.NewAdd(x, y)
	inst.OverflowFlags = nsw()

	return inst
}

func (b *LLVMIRBuilder) sub(x, y value.Value) value.Value {
	inst := b.block.NewSub(x, y)
	inst.OverflowFlags = nsw()

	return inst
}

func (b *LLVMIRBuilder) mul(x, y value.Value) value.Value {
	inst := b.block.NewMul(x, y)
	inst.OverflowFlags = nsw()

	return inst
}

func (b *LLVMIRBuilder) binaryExpression(expr *BinaryExpr) value.Value {
	l, r := b.operands(expr.Left, expr.Right)
	if l == nil || r == nil {
		return nil
	}

	if !isInt(l) || !isInt(r) {
		b.report(IncompatibleTypes, "", fmt.Sprintf("%s %s %s", l.Type(), expr.Operation, r.Type()))
		return nil
	}

	switch expr.Operation {
	case BinaryAddition:
		return b.add(l, r)
	case BinarySubtraction:
		return b.sub(l, r)
	case BinaryMultiplication:
		return b.mul(l, r)
	case BinaryDivision:
		return b.block.NewSDiv(l, r)
	case BinaryModulo:
		quotient := b.block.NewSDiv(l, r)
		return b.sub(l, b.mul(quotient, r))
	case BinaryPower:
		return b.power(l, r)
	default:
		panic("unexpected binary op: " + string(expr.Operation))
	}
}

// power lowers base ^ exp to a counted loop. The accumulator starts at 1 and the loop
// only runs for a positive exponent, so any exponent <= 0 yields 1.
//
//	pre:     br (exp > 0), pow.loop, pow.end
//	pow.loop: acc = phi [1, pre], [acc*base, pow.loop]
//	          idx = phi [0, pre], [idx+1, pow.loop]
//	          br (idx+1 < exp), pow.loop, pow.end
//	pow.end:  result = phi [1, pre], [acc*base, pow.loop]
func (b *LLVMIRBuilder) power(base, exp value.Value) value.Value {
	zero := constant.NewInt(types.I32, 0)
	one := constant.NewInt(types.I32, 1)

	pre := b.block
	loop := b.detached("pow.loop")
	end := b.detached("pow.end")

	positive := pre.NewICmp(enum.IPredSGT, exp, zero)
	pre.NewCondBr(positive, loop, end)

	b.enter(loop)
	acc := loop.NewPhi(ir.NewIncoming(one, pre))
	acc.SetName(b.uniqueName("pow.acc"))
	idx := loop.NewPhi(ir.NewIncoming(zero, pre))
	idx.SetName(b.uniqueName("pow.idx"))

	product := b.mul(acc, base)
	next := b.add(idx, one)
	more := loop.NewICmp(enum.IPredSLT, next, exp)
	loop.NewCondBr(more, loop, end)

	acc.Incs = append(acc.Incs, ir.NewIncoming(product, loop))
	idx.Incs = append(idx.Incs, ir.NewIncoming(next, loop))

	b.enter(end)
	result := end.NewPhi(ir.NewIncoming(one, pre), ir.NewIncoming(product, loop))
	result.SetName(b.uniqueName("pow"))

	return result
}

func (b *LLVMIRBuilder) booleanExpression(expr *BooleanExpr) value.Value {
	l, r := b.operands(expr.Left, expr.Right)
	if l == nil || r == nil {
		return nil
	}

	if expr.Operation.IsComparison() {
		pred := comparisonPreds[expr.Operation]

		sameType := l.Type().Equal(r.Type())
		equality := expr.Operation == BooleanEqual || expr.Operation == BooleanNotEqual
		if !sameType || (!equality && !isInt(l)) {
			b.report(IncompatibleTypes, "", fmt.Sprintf("%s %s %s", l.Type(), expr.Operation, r.Type()))
			return nil
		}

		return b.block.NewICmp(pred, l, r)
	}

	// and / or are bitwise on i1: both sides are always evaluated
	if !isBool(l) || !isBool(r) {
		b.report(IncompatibleTypes, "", fmt.Sprintf("%s %s %s", l.Type(), expr.Operation, r.Type()))
		return nil
	}

	if expr.Operation == BooleanAnd {
		return b.block.NewAnd(l, r)
	}

	return b.block.NewOr(l, r)
}

// LLVMGenerator lowers a loop-free Program into an LLVM module holding one entry routine.
type LLVMGenerator struct {
	prog    *Program
	sink    DiagnosticSink
	runtime bool
	entry   string
}

type GeneratorOption func(g *LLVMGenerator)

// WithDiagnostics sets where semantic diagnostics are reported.
func WithDiagnostics(sink DiagnosticSink) GeneratorOption {
	return func(g *LLVMGenerator) {
		g.sink = sink
	}
}

// WithRuntime makes the module define print and printBool on top of printf instead of
// only declaring them.
func WithRuntime(define bool) GeneratorOption {
	return func(g *LLVMGenerator) {
		g.runtime = define
	}
}

func WithEntryName(name string) GeneratorOption {
	return func(g *LLVMGenerator) {
		g.entry = name
	}
}

func NewLLVMGenerator(prog *Program, opts ...GeneratorOption) *LLVMGenerator {
	g := &LLVMGenerator{
		prog:  prog,
		sink:  discardSink{},
		entry: "main",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate lowers the program. Semantic problems are reported to the sink and the
// offending instruction is left out; generation always runs to completion.
func (g *LLVMGenerator) Generate() *ir.Module {
	b := NewLLVMIRBuilder(g.sink)
	b.mod.SourceFilename = g.prog.Filename

	defineBuiltins(b, g.runtime)
	b.function(g.entry)
	b.statements(g.prog.Statements)
	b.finish()

	log.Trace("Generated module", "file", g.prog.Filename, "blocks", len(b.fn.Blocks))
	return b.mod
}
