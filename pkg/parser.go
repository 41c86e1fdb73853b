package mas

import (
	"strconv"

	"github.com/ethereum/go-ethereum/log"
)

var compoundOps = map[TokenType]BinaryOp{
	TokenPlusAssign:  BinaryAddition,
	TokenMinusAssign: BinarySubtraction,
	TokenMultiAssign: BinaryMultiplication,
	TokenDivAssign:   BinaryDivision,
	TokenModAssign:   BinaryModulo,
}

var comparisonOps = map[TokenType]BooleanOp{
	TokenEqual:        BooleanEqual,
	TokenNotEqual:     BooleanNotEqual,
	TokenLess:         BooleanLess,
	TokenLessEqual:    BooleanLessEqual,
	TokenGreater:      BooleanGreater,
	TokenGreaterEqual: BooleanGreaterEqual,
}

// Parser builds a Program from a token stream. Loops are handed to the Unroller as soon
// as they are parsed, so no ForStatement survives in the result.
type Parser struct {
	filename  string
	tokenizer Tokenizer
	buf       *Token
	sink      DiagnosticSink
	unroller  *Unroller
}

type ParserOption func(p *Parser)

// WithSink sets where syntax and loop-bound diagnostics are reported.
func WithSink(sink DiagnosticSink) ParserOption {
	return func(p *Parser) {
		p.sink = sink
	}
}

func WithUnroller(u *Unroller) ParserOption {
	return func(p *Parser) {
		p.unroller = u
	}
}

func NewParser(tokenizer Tokenizer, opts ...ParserOption) *Parser {
	p := &Parser{
		tokenizer: tokenizer,
		filename:  tokenizer.GetFilename(),
		sink:      discardSink{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.unroller == nil {
		p.unroller = NewUnroller(DefaultMaxUnrolledStatements)
	}

	return p
}

func (p *Parser) GetFilename() string {
	return p.filename
}

// bailout unwinds the recursive descent on the first error.
type bailout struct {
	diag *Diagnostic
}

// Parse consumes the whole token stream. A syntax or loop-bound error is reported to the
// sink and returned; parsing does not resume after it.
func (p *Parser) Parse() (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}

			prog, err = nil, b.diag
		}
	}()

	prog = &Program{Filename: p.filename}
	prog.Statements = p.statements(false)

	log.Trace("Parsed program", "file", p.filename, "statements", len(prog.Statements))
	return prog, nil
}

func (p *Parser) peek() Token {
	if p.buf == nil {
		temp := p.next()
		p.buf = &temp
	}

	return *p.buf
}

func (p *Parser) next() Token {
	if p.buf != nil {
		if !p.buf.isValid() {
			// If an invalid token is buffered, don't try to get more tokens
			return *p.buf
		}

		temp := p.buf
		p.buf = nil

		return *temp
	}

	tok := p.read()
	if !tok.isValid() {
		// EOF stays buffered since no more valid tokens are expected
		p.buf = &tok
	}

	return tok
}

// read pulls the next meaningful token from the tokenizer, dropping comments.
func (p *Parser) read() Token {
	for {
		tok := p.tokenizer.Get()

		switch {
		case tok.isComment():
			continue
		case tok.Typ == TokenCommentOpen:
			p.skipComment()
			continue
		case tok.Typ == TokenError:
			p.fail(InvalidToken, tok)
		}

		return tok
	}
}

func (p *Parser) skipComment() {
	for {
		switch tok := p.tokenizer.Get(); tok.Typ {
		case TokenCommentClose, TokenEOF:
			return
		case TokenError:
			p.fail(InvalidToken, tok)
		}
	}
}

func (p *Parser) check(typ TokenType) bool {
	return p.peek().Typ == typ
}

// expect consumes the next token, failing with kind if it is not of type typ.
func (p *Parser) expect(typ TokenType, kind DiagnosticKind) Token {
	tok := p.next()
	if tok.Typ != typ {
		p.fail(kind, tok)
	}

	return tok
}

func (p *Parser) semicolon() {
	p.expect(TokenSemicolon, SemiColonExpected)
}

func (p *Parser) fail(kind DiagnosticKind, tok Token) {
	text := tok.Value
	if text == "" {
		text = tok.Typ.String()
	}

	p.abort(&Diagnostic{Kind: kind, Loc: tok.Loc, Text: text})
}

func (p *Parser) abort(d *Diagnostic) {
	p.sink.Report(d)
	log.Debug("Parse aborted", "file", p.filename, "kind", d.Kind, "at", d.Loc)

	panic(bailout{d})
}

// statements parses statements until EOF or, when nested, until the closing brace,
// which is left in the stream.
func (p *Parser) statements(nested bool) []Statement {
	var stmts []Statement
	for {
		switch tok := p.peek(); tok.Typ {
		case TokenEOF:
			if nested {
				p.fail(RightBraceExpected, tok)
			}

			return stmts
		case TokenCloseCurly:
			if nested {
				return stmts
			}
		}

		stmts = p.statement(stmts)
	}
}

// statement parses one statement and appends whatever it lowers to onto stmts. A loop
// can contribute any number of statements, including none.
func (p *Parser) statement(stmts []Statement) []Statement {
	switch tok := p.peek(); tok.Typ {
	case TokenInt, TokenBool:
		return append(stmts, p.declarations()...)
	case TokenIdentifier:
		assign := p.assignment()
		p.semicolon()

		return append(stmts, assign)
	case TokenPrint:
		return append(stmts, p.printStmt())
	case TokenIf:
		return append(stmts, p.ifStmt())
	case TokenWhile:
		return append(stmts, p.whileStmt(stmts)...)
	case TokenFor:
		return append(stmts, p.forStmt()...)
	default:
		p.next()
		p.fail(UnexpectedToken, tok)
	}

	return stmts // Unreachable
}

// declarations parses `int a = 1, b, c = a;`. The declarations keep their source order.
func (p *Parser) declarations() []Statement {
	typ := TypeInt
	if p.next().Typ == TokenBool {
		typ = TypeBool
	}

	var decls []Statement
	for {
		name := p.expect(TokenIdentifier, VariableExpected)

		var value Expression
		if p.check(TokenAssign) {
			p.next()
			value = p.expr()
		}

		decls = append(decls, &Declaration{
			Name:  name.Value,
			Type:  typ,
			Value: value,
			Loc:   name.Loc,
		})

		if p.check(TokenComma) {
			p.next()
			continue
		}

		p.semicolon()
		return decls
	}
}

func (p *Parser) assignment() *Assignment {
	return p.assignmentTo(p.expect(TokenIdentifier, VariableExpected))
}

// assignmentTo parses the operator and value of an assignment whose target name has
// already been consumed. Compound and increment forms are desugared.
func (p *Parser) assignmentTo(name Token) *Assignment {
	target := &Identifier{Name: name.Value, Loc: name.Loc}

	var value Expression
	switch tok := p.next(); tok.Typ {
	case TokenAssign:
		value = p.expr()
	case TokenPlusAssign, TokenMinusAssign, TokenMultiAssign, TokenDivAssign, TokenModAssign:
		value = &BinaryExpr{
			Operation: compoundOps[tok.Typ],
			Left:      target,
			Right:     p.expr(),
		}
	case TokenIncrement:
		value = &BinaryExpr{Operation: BinaryAddition, Left: target, Right: &NumberLiteral{Value: 1}}
	case TokenDecrement:
		value = &BinaryExpr{Operation: BinarySubtraction, Left: target, Right: &NumberLiteral{Value: 1}}
	default:
		p.fail(EqualExpected, tok)
	}

	return &Assignment{
		Target: name.Value,
		Value:  value,
		Loc:    name.Loc,
	}
}

func (p *Parser) printStmt() Statement {
	start := p.next() // print keyword

	p.expect(TokenOpenParentheses, LeftParenExpected)
	operand := p.expr()
	p.expect(TokenCloseParentheses, RightParenExpected)
	p.semicolon()

	return &PrintStatement{
		Operand: operand,
		Loc:     start.Loc,
	}
}

func (p *Parser) condition() Expression {
	p.expect(TokenOpenParentheses, LeftParenExpected)
	cond := p.expr()
	p.expect(TokenCloseParentheses, RightParenExpected)

	return cond
}

// blockStmt parses a brace-delimited body. The result is never nil, so an empty else
// branch can be told apart from a missing one.
func (p *Parser) blockStmt() []Statement {
	p.expect(TokenOpenCurly, LeftBraceExpected)
	stmts := p.statements(true)
	p.expect(TokenCloseCurly, RightBraceExpected)

	if stmts == nil {
		stmts = []Statement{}
	}

	return stmts
}

func (p *Parser) ifStmt() Statement {
	start := p.next() // if keyword

	stmt := &IfStatement{
		Condition: p.condition(),
		Body:      p.blockStmt(),
		Loc:       start.Loc,
	}

	for p.check(TokenElse) {
		p.next()

		if p.check(TokenIf) {
			loc := p.next().Loc
			stmt.ElseIfs = append(stmt.ElseIfs, &ElseIf{
				Condition: p.condition(),
				Body:      p.blockStmt(),
				Loc:       loc,
			})

			continue
		}

		stmt.Else = p.blockStmt()
		break
	}

	return stmt
}

// whileStmt parses a while loop and offers it to the unroller; preceding holds the
// statements already parsed in the same block, which is where the iterator's entry value
// is looked up.
func (p *Parser) whileStmt(preceding []Statement) []Statement {
	start := p.next() // while keyword

	loop := &WhileStatement{
		Condition: p.condition(),
		Body:      p.blockStmt(),
		Loc:       start.Loc,
	}

	if unrolled, ok := p.unroller.UnrollWhile(loop, preceding); ok {
		return unrolled
	}

	return []Statement{loop}
}

func (p *Parser) forStmt() []Statement {
	start := p.next() // for keyword

	p.expect(TokenOpenParentheses, LeftParenExpected)

	var init *Assignment
	declares := p.check(TokenInt)
	if declares {
		p.next()

		name := p.expect(TokenIdentifier, VariableExpected)
		if tok := p.peek(); tok.Typ != TokenAssign {
			p.fail(EqualExpected, tok)
		}

		init = p.assignmentTo(name)
	} else {
		init = p.assignment()
	}

	p.semicolon()
	cond := p.expr()
	p.semicolon()
	update := p.assignment()
	p.expect(TokenCloseParentheses, RightParenExpected)

	loop := &ForStatement{
		Init:             init,
		DeclaresIterator: declares,
		Condition:        cond,
		Update:           update,
		Body:             p.blockStmt(),
		Loc:              start.Loc,
	}

	unrolled, err := p.unroller.UnrollFor(loop)
	if err != nil {
		// UnrollFor only fails with a *Diagnostic
		p.abort(err.(*Diagnostic))
	}

	return unrolled
}

// expr parses the loosest level: `and` / `or`.
func (p *Parser) expr() Expression {
	lhs := p.comparisonExpr()

	for {
		tok := p.peek()
		if tok.Typ != TokenAnd && tok.Typ != TokenOr {
			return lhs
		}

		p.next()

		op := BooleanAnd
		if tok.Typ == TokenOr {
			op = BooleanOr
		}

		lhs = &BooleanExpr{
			Operation: op,
			Left:      lhs,
			Right:     p.comparisonExpr(),
		}
	}
}

func (p *Parser) comparisonExpr() Expression {
	lhs := p.additiveExpr()

	for {
		op, ok := comparisonOps[p.peek().Typ]
		if !ok {
			return lhs
		}

		p.next()
		lhs = &BooleanExpr{
			Operation: op,
			Left:      lhs,
			Right:     p.additiveExpr(),
		}
	}
}

func (p *Parser) additiveExpr() Expression {
	lhs := p.multiplicativeExpr()

	for {
		tok := p.peek()
		if tok.Typ != TokenPlus && tok.Typ != TokenMinus {
			return lhs
		}

		// Chained operands (for example 1 - 3 + 1) nest to the left
		p.next()
		lhs = &BinaryExpr{
			Operation: BinaryOp(tok.Value),
			Left:      lhs,
			Right:     p.multiplicativeExpr(),
		}
	}
}

func (p *Parser) multiplicativeExpr() Expression {
	lhs := p.unaryExpr()

	for {
		var op BinaryOp
		switch p.peek().Typ {
		case TokenMulti:
			op = BinaryMultiplication
		case TokenDiv:
			op = BinaryDivision
		case TokenMod:
			op = BinaryModulo
		default:
			return lhs
		}

		p.next()
		lhs = &BinaryExpr{
			Operation: op,
			Left:      lhs,
			Right:     p.unaryExpr(),
		}
	}
}

// unaryExpr handles a leading sign. A negation is expressed as a multiplication by -1,
// except directly in front of a number literal that is not raised to a power, where it
// becomes part of the literal so that -2147483648 can be written.
func (p *Parser) unaryExpr() Expression {
	switch p.peek().Typ {
	case TokenMinus:
		p.next()

		var operand Expression
		if p.check(TokenNumber) {
			tok := p.next()
			if !p.check(TokenPower) {
				return p.number(tok, "-")
			}

			operand = p.powerFrom(p.number(tok, ""))
		} else {
			operand = p.powerExpr()
		}

		return &BinaryExpr{
			Operation: BinaryMultiplication,
			Left:      &NumberLiteral{Value: -1},
			Right:     operand,
		}
	case TokenPlus:
		p.next()
		return p.powerExpr()
	}

	return p.powerExpr()
}

// powerExpr is left-associative: a ^ b ^ c is (a ^ b) ^ c.
func (p *Parser) powerExpr() Expression {
	return p.powerFrom(p.primary())
}

func (p *Parser) powerFrom(lhs Expression) Expression {
	for p.check(TokenPower) {
		p.next()
		lhs = &BinaryExpr{
			Operation: BinaryPower,
			Left:      lhs,
			Right:     p.primary(),
		}
	}

	return lhs
}

func (p *Parser) primary() Expression {
	switch tok := p.next(); tok.Typ {
	case TokenNumber:
		return p.number(tok, "")
	case TokenTrue:
		return &BooleanLiteral{Value: true}
	case TokenFalse:
		return &BooleanLiteral{Value: false}
	case TokenIdentifier:
		return &Identifier{Name: tok.Value, Loc: tok.Loc}
	case TokenOpenParentheses:
		exp := p.expr()
		p.expect(TokenCloseParentheses, RightParenExpected)

		return exp
	default:
		p.fail(NumberOrVariableExpected, tok)
	}

	return nil // Unreachable
}

// number converts a number token, with sign prepended to its digits.
func (p *Parser) number(tok Token, sign string) *NumberLiteral {
	v, err := strconv.ParseInt(sign+tok.Value, 10, 32)
	if err != nil {
		p.fail(NumberOutOfRange, tok)
	}

	return &NumberLiteral{Value: int32(v)}
}
