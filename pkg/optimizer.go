package mas

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultMaxUnrolledStatements caps the number of statements unrolling may produce over a
// whole program.
const DefaultMaxUnrolledStatements = 10000

// Unroller replaces loops with a statically known iteration space by straight-line code.
//
// For a loop over iterator i starting at s with step k, iteration n's copy of the body
// reads i as `i + n*k`: the iterator keeps its entry value s while the copies run and is
// set to its exit value once they are done. A for loop's init is kept as a prologue so
// the entry value holds; a while loop's entry value is taken from the statements that
// precede it.
//
// MaxStatements bounds the statements produced by every loop of one program together, so
// an Unroller serves a single parse. Copies of statements an inner loop produced are
// counted again when an outer loop repeats them.
type Unroller struct {
	MaxStatements int

	emitted int64
}

func NewUnroller(maxStatements int) *Unroller {
	if maxStatements <= 0 {
		maxStatements = DefaultMaxUnrolledStatements
	}

	return &Unroller{MaxStatements: maxStatements}
}

// loopBounds is a half-open iteration space [start, bound) walked in steps of step.
type loopBounds struct {
	iterator string
	start    int64
	bound    int64
	step     int64
}

func (b loopBounds) iterations() int64 {
	if b.start >= b.bound {
		return 0
	}

	return (b.bound - b.start + b.step - 1) / b.step
}

// exit is the iterator's value once the loop finishes.
func (b loopBounds) exit() int64 {
	return b.start + b.iterations()*b.step
}

// fits reports whether every value and offset the unrolled code uses is a valid int32.
func (b loopBounds) fits() bool {
	return b.exit() <= math.MaxInt32 && b.iterations()*b.step <= math.MaxInt32
}

// UnrollFor flattens a for loop. A loop whose bounds do not have a supported shape fails
// with UnsupportedLoopBoundKind, one that would take the program past MaxStatements with
// UnrollLimitExceeded. The error is always a *Diagnostic.
func (u *Unroller) UnrollFor(loop *ForStatement) ([]Statement, error) {
	bounds, reason := forBounds(loop)
	if reason != "" {
		return nil, loopError(UnsupportedLoopBoundKind, loop.Loc, loop.Init.Target, reason)
	}

	if writesIterator(loop.Body, bounds.iterator) {
		return nil, loopError(UnsupportedLoopBoundKind, loop.Loc, bounds.iterator, "iterator is assigned in the loop body")
	}

	if !bounds.fits() {
		return nil, loopError(UnsupportedLoopBoundKind, loop.Loc, bounds.iterator, "iterator overflows")
	}

	n := bounds.iterations()
	size := n * int64(CountStatements(loop.Body))
	if !u.reserve(size) {
		return nil, loopError(UnrollLimitExceeded, loop.Loc, bounds.iterator,
			fmt.Sprintf("%d more statements, %d of %d used", size, u.emitted, u.MaxStatements))
	}

	var prologue Statement = &Assignment{
		Target: loop.Init.Target,
		Value:  loop.Init.Value,
		Loc:    loop.Init.Loc,
	}
	if loop.DeclaresIterator {
		prologue = &Declaration{
			Name:  loop.Init.Target,
			Type:  TypeInt,
			Value: loop.Init.Value,
			Loc:   loop.Init.Loc,
		}
	}

	out := make([]Statement, 0, int(n)*len(loop.Body)+2)
	out = append(out, prologue)

	for i := int64(0); i < n && len(loop.Body) > 0; i++ {
		offset := int32(i * bounds.step)
		for _, stmt := range loop.Body {
			out = append(out, SubstituteStatement(stmt, bounds.iterator, offset))
		}
	}

	out = append(out, settle(bounds, loop.Loc)...)

	log.Debug("Unrolled for loop", "iterator", bounds.iterator, "iterations", n, "statements", len(out), "at", loop.Loc)
	return out, nil
}

// UnrollWhile flattens a while loop when its shape allows it: the condition compares
// the iterator against a literal with < or <=, the body holds exactly one top-level
// statement advancing the iterator by a positive literal, and the iterator's entry value
// is a literal set by the statements preceding the loop in its block. The updater is
// elided from the output; statements after it see the advanced iterator. ok is false when
// the loop has to be kept.
func (u *Unroller) UnrollWhile(loop *WhileStatement, preceding []Statement) (unrolled []Statement, ok bool) {
	iterator, bound, reason := conditionBound(loop.Condition)
	if reason != "" {
		log.Trace("Keeping while loop", "reason", reason, "at", loop.Loc)
		return nil, false
	}

	updater := -1
	var step int64
	for i, stmt := range loop.Body {
		assign, isAssign := stmt.(*Assignment)
		if !isAssign || assign.Target != iterator {
			continue
		}

		s, reason := updateStep(assign, iterator)
		if updater >= 0 || reason != "" {
			log.Trace("Keeping while loop", "reason", "iterator has no single linear update", "at", loop.Loc)
			return nil, false
		}

		updater, step = i, s
	}

	if updater < 0 {
		log.Trace("Keeping while loop", "reason", "iterator is never updated", "at", loop.Loc)
		return nil, false
	}

	rest := make([]Statement, 0, len(loop.Body)-1)
	rest = append(rest, loop.Body[:updater]...)
	rest = append(rest, loop.Body[updater+1:]...)

	if writesIterator(rest, iterator) {
		log.Trace("Keeping while loop", "reason", "iterator is written outside its update", "at", loop.Loc)
		return nil, false
	}

	start, known := entryValue(preceding, iterator)
	if !known {
		log.Trace("Keeping while loop", "reason", "iterator entry value is unknown", "at", loop.Loc)
		return nil, false
	}

	bounds := loopBounds{iterator: iterator, start: start, bound: bound, step: step}
	if !bounds.fits() {
		return nil, false
	}

	n := bounds.iterations()
	if size := n * int64(CountStatements(rest)); !u.reserve(size) {
		log.Debug("Keeping while loop", "reason", "unroll limit", "statements", size, "used", u.emitted, "limit", u.MaxStatements, "at", loop.Loc)
		return nil, false
	}

	out := make([]Statement, 0, int(n)*len(rest)+1)
	for i := int64(0); i < n && len(rest) > 0; i++ {
		for j, stmt := range loop.Body {
			offset := i * step
			switch {
			case j == updater:
				continue
			case j > updater:
				offset += step
			}

			out = append(out, SubstituteStatement(stmt, iterator, int32(offset)))
		}
	}

	out = append(out, settle(bounds, loop.Loc)...)

	log.Debug("Unrolled while loop", "iterator", iterator, "iterations", n, "statements", len(out), "at", loop.Loc)
	return out, true
}

// reserve counts size more statements against the budget, refusing if that overruns it.
func (u *Unroller) reserve(size int64) bool {
	if u.emitted+size > int64(u.MaxStatements) {
		return false
	}

	u.emitted += size
	return true
}

// settle leaves the iterator at its exit value. Nothing is needed when the body never ran.
func settle(b loopBounds, loc *Location) []Statement {
	if b.iterations() == 0 {
		return nil
	}

	return []Statement{&Assignment{
		Target: b.iterator,
		Value:  &NumberLiteral{Value: int32(b.exit())},
		Loc:    loc,
	}}
}

func loopError(kind DiagnosticKind, loc *Location, iterator, detail string) *Diagnostic {
	return &Diagnostic{Kind: kind, Loc: loc, Name: iterator, Text: detail}
}

// forBounds extracts the iteration space of a for loop. reason is empty on success.
func forBounds(loop *ForStatement) (b loopBounds, reason string) {
	start, ok := literalInt(loop.Init.Value)
	if !ok {
		return b, "initial value is not a literal"
	}

	iterator, bound, reason := conditionBound(loop.Condition)
	if reason != "" {
		return b, reason
	}

	if iterator != loop.Init.Target {
		return b, "condition does not test the initialised variable"
	}

	step, reason := updateStep(loop.Update, iterator)
	if reason != "" {
		return b, reason
	}

	return loopBounds{iterator: iterator, start: start, bound: bound, step: step}, ""
}

// conditionBound matches `i < lit` and `i <= lit`, returning the exclusive bound.
func conditionBound(cond Expression) (iterator string, bound int64, reason string) {
	cmp, ok := cond.(*BooleanExpr)
	if !ok || (cmp.Operation != BooleanLess && cmp.Operation != BooleanLessEqual) {
		return "", 0, "condition is not a < or <= comparison"
	}

	id, ok := cmp.Left.(*Identifier)
	if !ok {
		return "", 0, "condition does not start with the iterator"
	}

	limit, ok := literalInt(cmp.Right)
	if !ok {
		return "", 0, "bound is not a literal"
	}

	if cmp.Operation == BooleanLessEqual {
		limit++
	}

	return id.Name, limit, ""
}

// updateStep matches `i = i + lit` with a positive literal.
func updateStep(update *Assignment, iterator string) (step int64, reason string) {
	if update.Target != iterator {
		return 0, "update does not assign the iterator"
	}

	add, ok := update.Value.(*BinaryExpr)
	if !ok || add.Operation != BinaryAddition {
		return 0, "update is not an addition"
	}

	if id, ok := add.Left.(*Identifier); !ok || id.Name != iterator {
		return 0, "update does not add to the iterator"
	}

	step, ok = literalInt(add.Right)
	if !ok {
		return 0, "step is not a literal"
	}

	if step <= 0 {
		return 0, "step is not positive"
	}

	return step, ""
}

// literalInt matches an integer literal, optionally negated.
func literalInt(expr Expression) (int64, bool) {
	switch e := expr.(type) {
	case *NumberLiteral:
		return int64(e.Value), true
	case *BinaryExpr:
		sign, ok := e.Left.(*NumberLiteral)
		if !ok || e.Operation != BinaryMultiplication || sign.Value != -1 {
			return 0, false
		}

		if n, ok := e.Right.(*NumberLiteral); ok {
			return -int64(n.Value), true
		}
	}

	return 0, false
}

// entryValue finds the literal most recently stored into iterator by stmts.
func entryValue(stmts []Statement, iterator string) (int64, bool) {
	for i := len(stmts) - 1; i >= 0; i-- {
		switch s := stmts[i].(type) {
		case *Declaration:
			if s.Name != iterator {
				continue
			}

			if s.Type != TypeInt {
				return 0, false
			}

			if s.Value == nil {
				return 0, true
			}

			return literalInt(s.Value)
		case *Assignment:
			if s.Target == iterator {
				return literalInt(s.Value)
			}
		default:
			if writesIterator(stmts[i:i+1], iterator) {
				return 0, false
			}
		}
	}

	return 0, false
}

func writesIterator(stmts []Statement, iterator string) bool {
	writes := false
	Walk(stmts, func(stmt Statement) bool {
		switch s := stmt.(type) {
		case *Declaration:
			writes = writes || s.Name == iterator
		case *Assignment:
			writes = writes || s.Target == iterator
		}

		return !writes
	})

	return writes
}

// SubstituteExpr returns a copy of expr where every reference to iterator reads
// `iterator + offset`. The addition is left unfolded.
func SubstituteExpr(expr Expression, iterator string, offset int32) Expression {
	switch e := expr.(type) {
	case *NumberLiteral:
		return &NumberLiteral{Value: e.Value}
	case *BooleanLiteral:
		return &BooleanLiteral{Value: e.Value}
	case *Identifier:
		id := &Identifier{Name: e.Name, Loc: e.Loc}
		if e.Name != iterator {
			return id
		}

		return &BinaryExpr{
			Operation: BinaryAddition,
			Left:      id,
			Right:     &NumberLiteral{Value: offset},
		}
	case *BinaryExpr:
		return &BinaryExpr{
			Operation: e.Operation,
			Left:      SubstituteExpr(e.Left, iterator, offset),
			Right:     SubstituteExpr(e.Right, iterator, offset),
		}
	case *BooleanExpr:
		return &BooleanExpr{
			Operation: e.Operation,
			Left:      SubstituteExpr(e.Left, iterator, offset),
			Right:     SubstituteExpr(e.Right, iterator, offset),
		}
	default:
		panic(fmt.Sprintf("unexpected expression %T", expr))
	}
}

// SubstituteStatement applies SubstituteExpr to every expression in stmt, descending into
// nested bodies.
func SubstituteStatement(stmt Statement, iterator string, offset int32) Statement {
	sub := func(e Expression) Expression {
		if e == nil {
			return nil
		}

		return SubstituteExpr(e, iterator, offset)
	}

	switch s := stmt.(type) {
	case *Declaration:
		return &Declaration{Name: s.Name, Type: s.Type, Value: sub(s.Value), Loc: s.Loc}
	case *Assignment:
		return &Assignment{Target: s.Target, Value: sub(s.Value), Loc: s.Loc}
	case *PrintStatement:
		return &PrintStatement{Operand: sub(s.Operand), Loc: s.Loc}
	case *IfStatement:
		out := &IfStatement{
			Condition: sub(s.Condition),
			Body:      substituteBody(s.Body, iterator, offset),
			Else:      substituteBody(s.Else, iterator, offset),
			Loc:       s.Loc,
		}

		for _, elseIf := range s.ElseIfs {
			out.ElseIfs = append(out.ElseIfs, &ElseIf{
				Condition: sub(elseIf.Condition),
				Body:      substituteBody(elseIf.Body, iterator, offset),
				Loc:       elseIf.Loc,
			})
		}

		return out
	case *WhileStatement:
		return &WhileStatement{
			Condition: sub(s.Condition),
			Body:      substituteBody(s.Body, iterator, offset),
			Loc:       s.Loc,
		}
	default:
		panic(fmt.Sprintf("unexpected statement %T", stmt))
	}
}

func substituteBody(stmts []Statement, iterator string, offset int32) []Statement {
	if stmts == nil {
		return nil
	}

	out := make([]Statement, 0, len(stmts))
	for _, stmt := range stmts {
		out = append(out, SubstituteStatement(stmt, iterator, offset))
	}

	return out
}
