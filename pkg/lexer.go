package mas

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType uint64
type stateFunc func(l *Lexer) stateFunc

//go:generate stringer -type=TokenType -trimprefix=Token
const (
	EOF rune = 0

	TokenError TokenType = iota
	TokenEOF
	TokenNumber
	TokenIdentifier

	TokenInt
	TokenBool
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenPrint
	TokenAnd
	TokenOr
	TokenTrue
	TokenFalse

	TokenOpenParentheses
	TokenCloseParentheses
	TokenOpenCurly
	TokenCloseCurly
	TokenSemicolon
	TokenComma

	TokenAssign
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual

	TokenPlus
	TokenMinus
	TokenMulti
	TokenDiv
	TokenMod
	TokenPower

	TokenPlusAssign
	TokenMinusAssign
	TokenMultiAssign
	TokenDivAssign
	TokenModAssign
	TokenIncrement
	TokenDecrement

	TokenCommentOpen
	TokenCommentClose
	TokenLineComment
)

var keywordTable = map[string]TokenType{
	"int":   TokenInt,
	"bool":  TokenBool,
	"if":    TokenIf,
	"else":  TokenElse,
	"while": TokenWhile,
	"for":   TokenFor,
	"print": TokenPrint,
	"and":   TokenAnd,
	"or":    TokenOr,
	"true":  TokenTrue,
	"false": TokenFalse,
}

var operatorTable = map[string]TokenType{
	"(":  TokenOpenParentheses,
	")":  TokenCloseParentheses,
	"{":  TokenOpenCurly,
	"}":  TokenCloseCurly,
	";":  TokenSemicolon,
	",":  TokenComma,
	"=":  TokenAssign,
	"==": TokenEqual,
	"!=": TokenNotEqual,
	"<":  TokenLess,
	"<=": TokenLessEqual,
	">":  TokenGreater,
	">=": TokenGreaterEqual,
	"+":  TokenPlus,
	"-":  TokenMinus,
	"*":  TokenMulti,
	"/":  TokenDiv,
	"%":  TokenMod,
	"^":  TokenPower,
	"+=": TokenPlusAssign,
	"-=": TokenMinusAssign,
	"*=": TokenMultiAssign,
	"/=": TokenDivAssign,
	"%=": TokenModAssign,
	"++": TokenIncrement,
	"--": TokenDecrement,
	"/*": TokenCommentOpen,
	"*/": TokenCommentClose,
	"//": TokenLineComment,
}

// Location points at the first rune of a token.
type Location struct {
	Filename string
	Line     int
	Col      int
}

func (l *Location) String() string {
	if l == nil {
		return "-"
	}

	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Col)
}

type Token struct {
	Typ   TokenType
	Value string
	Loc   *Location
}

func (t Token) isValid() bool {
	return t.Typ != TokenEOF && t.Typ != TokenError
}

func (t Token) isComment() bool {
	return t.Typ == TokenLineComment
}

// Tokenizer is the token source consumed by the parser.
type Tokenizer interface {
	Get() Token
	GetFilename() string
}

// Lexer turns source text into tokens. The state machine is advanced lazily from Get, so
// no tokens are produced ahead of the parser's demand beyond a single state step.
type Lexer struct {
	filename string
	reader   *bufio.Reader
	state    stateFunc
	pending  []Token

	line, col int
	start     Location
}

func NewLexer(filename string, reader io.Reader) *Lexer {
	return &Lexer{
		filename: filename,
		reader:   bufio.NewReader(reader),
		state:    defaultState,
		line:     1,
		col:      1,
	}
}

func (l *Lexer) GetFilename() string {
	return l.filename
}

// Get returns the next token. Once the input is exhausted (or after an error token) it
// keeps returning EOF.
func (l *Lexer) Get() Token {
	for len(l.pending) == 0 {
		if l.state == nil {
			return Token{Typ: TokenEOF, Loc: l.here()}
		}

		l.state = l.state(l)
	}

	tok := l.pending[0]
	l.pending = l.pending[1:]

	return tok
}

// Drain lexes the remaining input, stopping at EOF or at the first error. The error is an
// InvalidToken *Diagnostic.
func (l *Lexer) Drain() ([]Token, error) {
	var tokens []Token
	for {
		t := l.Get()
		switch t.Typ {
		case TokenEOF:
			return tokens, nil
		case TokenError:
			return tokens, &Diagnostic{Kind: InvalidToken, Loc: t.Loc, Text: t.Value}
		}

		tokens = append(tokens, t)
	}
}

func defaultState(l *Lexer) stateFunc {
	for {
		l.mark()

		switch r := l.peek(); {
		case r == EOF:
			return l.emitValue(TokenEOF, "")
		case unicode.IsSpace(r):
			l.next()
			continue
		case '0' <= r && r <= '9':
			return numberState
		case unicode.IsLetter(r) || r == '_':
			return identifierState
		default:
			return operatorState
		}
	}
}

func numberState(l *Lexer) stateFunc {
	var num strings.Builder
	for r := l.peek(); '0' <= r && r <= '9'; r = l.peek() {
		num.WriteRune(l.next())
	}

	return l.emitValue(TokenNumber, num.String())
}

func identifierState(l *Lexer) stateFunc {
	var id strings.Builder
	for r := l.peek(); unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'; r = l.peek() {
		id.WriteRune(l.next())
	}

	if t, ok := keywordTable[id.String()]; ok {
		return l.emitValue(t, id.String())
	}

	return l.emitValue(TokenIdentifier, id.String())
}

func operatorState(l *Lexer) stateFunc {
	r := l.next()

	// Two-rune operators win over their one-rune prefixes
	op := string(r) + string(l.peek())
	if tok, ok := operatorTable[op]; ok {
		l.next()

		switch tok {
		case TokenLineComment:
			return lineCommentState
		case TokenCommentOpen:
			l.emitValue(tok, op)
			return blockCommentState
		}

		return l.emitValue(tok, op)
	}

	if tok, ok := operatorTable[string(r)]; ok {
		return l.emitValue(tok, string(r))
	}

	return l.errorf("invalid symbol '%c'", r)
}

func lineCommentState(l *Lexer) stateFunc {
	var text strings.Builder
	for r := l.peek(); r != '\n' && r != EOF; r = l.peek() {
		text.WriteRune(l.next())
	}

	return l.emitValue(TokenLineComment, text.String())
}

// blockCommentState discards raw text up to the closing marker, which is emitted so the
// parser sees a balanced open/close pair. Reaching EOF first is an error reported at the
// opening marker.
func blockCommentState(l *Lexer) stateFunc {
	for r := l.next(); r != EOF; r = l.next() {
		if r == '*' && l.peek() == '/' {
			l.start = Location{Filename: l.filename, Line: l.line, Col: l.col - 1}
			l.next()

			return l.emitValue(TokenCommentClose, "*/")
		}
	}

	return l.errorf("unterminated block comment")
}

func (l *Lexer) errorf(format string, args ...interface{}) stateFunc {
	l.emitValue(TokenError, fmt.Sprintf(format, args...))
	return nil
}

func (l *Lexer) emitValue(t TokenType, val string) stateFunc {
	loc := l.start
	l.pending = append(l.pending, Token{
		Typ:   t,
		Value: val,
		Loc:   &loc,
	})

	if t == TokenEOF {
		return nil
	}

	return defaultState
}

func (l *Lexer) mark() {
	l.start = Location{Filename: l.filename, Line: l.line, Col: l.col}
}

func (l *Lexer) here() *Location {
	return &Location{Filename: l.filename, Line: l.line, Col: l.col}
}

func (l *Lexer) peek() rune {
	r, _, err := l.reader.ReadRune()
	if err != nil {
		if err == io.EOF {
			return EOF
		}

		return utf8.RuneError
	}

	_ = l.reader.UnreadRune()
	return r
}

func (l *Lexer) next() rune {
	r, _, err := l.reader.ReadRune()
	if err != nil {
		if err == io.EOF {
			return EOF
		}

		return utf8.RuneError
	}

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	return r
}
