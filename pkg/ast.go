package mas

// Program is the parse root: the statements of the implicit entry routine.
type Program struct {
	Filename   string
	Statements []Statement
}

// Expression is one of *NumberLiteral, *BooleanLiteral, *Identifier, *BinaryExpr or
// *BooleanExpr.
type Expression interface {
	String() string
	expressionNode()
}

// Statement is one of *Declaration, *Assignment, *PrintStatement, *IfStatement,
// *WhileStatement or *ForStatement. A *ForStatement never leaves the parser.
type Statement interface {
	Location() *Location
	statementNode()
}

type NumberLiteral struct {
	Value int32
}

type BooleanLiteral struct {
	Value bool
}

type Identifier struct {
	Name string
	Loc  *Location
}

type BinaryOp string

const (
	BinaryAddition       BinaryOp = "+"
	BinarySubtraction    BinaryOp = "-"
	BinaryMultiplication BinaryOp = "*"
	BinaryDivision       BinaryOp = "/"
	BinaryModulo         BinaryOp = "%"
	BinaryPower          BinaryOp = "^"
)

type BinaryExpr struct {
	Operation BinaryOp
	Left      Expression
	Right     Expression
}

type BooleanOp string

const (
	BooleanEqual        BooleanOp = "=="
	BooleanNotEqual     BooleanOp = "!="
	BooleanLess         BooleanOp = "<"
	BooleanLessEqual    BooleanOp = "<="
	BooleanGreater      BooleanOp = ">"
	BooleanGreaterEqual BooleanOp = ">="
	BooleanAnd          BooleanOp = "and"
	BooleanOr           BooleanOp = "or"
)

// IsComparison reports whether op compares two integers.
func (op BooleanOp) IsComparison() bool {
	return op != BooleanAnd && op != BooleanOr
}

type BooleanExpr struct {
	Operation BooleanOp
	Left      Expression
	Right     Expression
}

func (*NumberLiteral) expressionNode()  {}
func (*BooleanLiteral) expressionNode() {}
func (*Identifier) expressionNode()     {}
func (*BinaryExpr) expressionNode()     {}
func (*BooleanExpr) expressionNode()    {}

type VarType int

const (
	TypeInt VarType = iota
	TypeBool
)

func (t VarType) String() string {
	if t == TypeBool {
		return "bool"
	}

	return "int"
}

// Declaration introduces a new slot for Name. Value is nil when no initializer was given.
type Declaration struct {
	Name  string
	Type  VarType
	Value Expression
	Loc   *Location
}

type Assignment struct {
	Target string
	Value  Expression
	Loc    *Location
}

type PrintStatement struct {
	Operand Expression
	Loc     *Location
}

// IfStatement holds the whole if / else if / else chain. Else is nil when there is no
// else branch.
type IfStatement struct {
	Condition Expression
	Body      []Statement
	ElseIfs   []*ElseIf
	Else      []Statement
	Loc       *Location
}

// ElseIf only ever appears inside an IfStatement.
type ElseIf struct {
	Condition Expression
	Body      []Statement
	Loc       *Location
}

type WhileStatement struct {
	Condition Expression
	Body      []Statement
	Loc       *Location
}

// ForStatement is the C-style loop. DeclaresIterator is set for `for (int i = ...`.
type ForStatement struct {
	Init             *Assignment
	DeclaresIterator bool
	Condition        Expression
	Update           *Assignment
	Body             []Statement
	Loc              *Location
}

func (*Declaration) statementNode()    {}
func (*Assignment) statementNode()     {}
func (*PrintStatement) statementNode() {}
func (*IfStatement) statementNode()    {}
func (*WhileStatement) statementNode() {}
func (*ForStatement) statementNode()   {}

func (s *Declaration) Location() *Location    { return s.Loc }
func (s *Assignment) Location() *Location     { return s.Loc }
func (s *PrintStatement) Location() *Location { return s.Loc }
func (s *IfStatement) Location() *Location    { return s.Loc }
func (s *WhileStatement) Location() *Location { return s.Loc }
func (s *ForStatement) Location() *Location   { return s.Loc }

// Walk calls fn for every statement in stmts, descending into nested bodies. Descent
// into a statement's children stops when fn returns false.
func Walk(stmts []Statement, fn func(Statement) bool) {
	for _, stmt := range stmts {
		if !fn(stmt) {
			continue
		}

		switch s := stmt.(type) {
		case *IfStatement:
			Walk(s.Body, fn)
			for _, elseIf := range s.ElseIfs {
				Walk(elseIf.Body, fn)
			}
			Walk(s.Else, fn)
		case *WhileStatement:
			Walk(s.Body, fn)
		case *ForStatement:
			Walk(s.Body, fn)
		}
	}
}

// CountStatements is the number of statement nodes in stmts, nested ones included.
func CountStatements(stmts []Statement) int {
	n := 0
	Walk(stmts, func(Statement) bool {
		n++
		return true
	})

	return n
}
