package wgsl

import (
	"github.com/gogpu/tir/types"
)

// Module is a validated WGSL translation unit. Every expression carries its
// resolved type and every identifier refers to its declaration.
type Module struct {
	Structs    []*StructDecl
	GlobalVars []*VarDecl
	Constants  []*ConstDecl
	Functions  []*FunctionDecl
}

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() Span
}

// Decl is the interface for declarations.
type Decl interface {
	Node
	declNode()
}

// Stmt is the interface for statements.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the interface for expressions.
type Expr interface {
	Node
	exprNode()

	// ResolvedType returns the type assigned by semantic analysis. For
	// references to variables it is the store type.
	ResolvedType() types.Type
}

// StructDecl represents a struct declaration.
type StructDecl struct {
	Name string
	Type *types.Struct
	Span Span
}

func (s *StructDecl) Pos() Span { return s.Span }
func (s *StructDecl) declNode() {}

// FunctionDecl represents a function declaration.
type FunctionDecl struct {
	Name        string
	Params      []*Parameter
	ReturnType  types.Type  // nil for functions without a result
	ReturnAttrs []Attribute // Attributes on return type (e.g., @builtin(position), @location(0))
	Attributes  []Attribute
	Body        *BlockStmt
	Span        Span
}

func (f *FunctionDecl) Pos() Span { return f.Span }
func (f *FunctionDecl) declNode() {}

// Parameter represents a function parameter.
type Parameter struct {
	Name       string
	Type       types.Type
	Attributes []Attribute
	Span       Span
}

func (p *Parameter) Pos() Span { return p.Span }
func (p *Parameter) declNode() {}

// VarDecl represents a variable declaration.
type VarDecl struct {
	Name         string
	Type         types.Type // store type
	Init         Expr
	AddressSpace string // function, private, workgroup, uniform, storage
	AccessMode   string // read, write, read_write
	Attributes   []Attribute
	Span         Span
}

func (v *VarDecl) Pos() Span { return v.Span }
func (v *VarDecl) declNode() {}
func (v *VarDecl) stmtNode() {}

// LetDecl represents an immutable local value.
type LetDecl struct {
	Name string
	Type types.Type
	Init Expr
	Span Span
}

func (l *LetDecl) Pos() Span { return l.Span }
func (l *LetDecl) declNode() {}
func (l *LetDecl) stmtNode() {}

// ConstDecl represents a const declaration.
type ConstDecl struct {
	Name string
	Type types.Type
	Init Expr
	Span Span
}

func (c *ConstDecl) Pos() Span { return c.Span }
func (c *ConstDecl) declNode() {}
func (c *ConstDecl) stmtNode() {} // Allow const as local statement

// Attribute represents an attribute (e.g., @location(0)).
type Attribute struct {
	Name string
	Args []Expr
	Span Span
}

// Statements

// BlockStmt represents a block statement.
type BlockStmt struct {
	Statements []Stmt
	Span       Span
}

func (b *BlockStmt) Pos() Span { return b.Span }
func (b *BlockStmt) stmtNode() {}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	Value Expr
	Span  Span
}

func (r *ReturnStmt) Pos() Span { return r.Span }
func (r *ReturnStmt) stmtNode() {}

// IfStmt represents an if statement.
type IfStmt struct {
	Condition Expr
	Body      *BlockStmt
	Else      Stmt // *BlockStmt or *IfStmt
	Span      Span
}

func (i *IfStmt) Pos() Span { return i.Span }
func (i *IfStmt) stmtNode() {}

// ForStmt represents a for loop.
type ForStmt struct {
	Init      Stmt
	Condition Expr
	Update    Stmt
	Body      *BlockStmt
	Span      Span
}

func (f *ForStmt) Pos() Span { return f.Span }
func (f *ForStmt) stmtNode() {}

// WhileStmt represents a while loop.
type WhileStmt struct {
	Condition Expr
	Body      *BlockStmt
	Span      Span
}

func (w *WhileStmt) Pos() Span { return w.Span }
func (w *WhileStmt) stmtNode() {}

// LoopStmt represents a loop statement. A break-if, if present, is the last
// statement of Continuing.
type LoopStmt struct {
	Body       *BlockStmt
	Continuing *BlockStmt
	Span       Span
}

func (l *LoopStmt) Pos() Span { return l.Span }
func (l *LoopStmt) stmtNode() {}

// BreakStmt represents a break statement.
type BreakStmt struct {
	Span Span
}

func (b *BreakStmt) Pos() Span { return b.Span }
func (b *BreakStmt) stmtNode() {}

// BreakIfStmt represents `break if cond;` at the end of a continuing block.
type BreakIfStmt struct {
	Condition Expr
	Span      Span
}

func (b *BreakIfStmt) Pos() Span { return b.Span }
func (b *BreakIfStmt) stmtNode() {}

// ContinueStmt represents a continue statement.
type ContinueStmt struct {
	Span Span
}

func (c *ContinueStmt) Pos() Span { return c.Span }
func (c *ContinueStmt) stmtNode() {}

// FallthroughStmt transfers control to the next case of a switch.
type FallthroughStmt struct {
	Span Span
}

func (f *FallthroughStmt) Pos() Span { return f.Span }
func (f *FallthroughStmt) stmtNode() {}

// DiscardStmt represents a discard statement.
type DiscardStmt struct {
	Span Span
}

func (d *DiscardStmt) Pos() Span { return d.Span }
func (d *DiscardStmt) stmtNode() {}

// AssignStmt represents an assignment statement.
type AssignStmt struct {
	Left  Expr
	Op    TokenKind // =, +=, -=, etc.
	Right Expr
	Span  Span
}

func (a *AssignStmt) Pos() Span { return a.Span }
func (a *AssignStmt) stmtNode() {}

// IncDecStmt represents `x++` or `x--`.
type IncDecStmt struct {
	Expr Expr
	Op   TokenKind // ++ or --
	Span Span
}

func (s *IncDecStmt) Pos() Span { return s.Span }
func (s *IncDecStmt) stmtNode() {}

// ExprStmt represents an expression statement.
type ExprStmt struct {
	Expr Expr
	Span Span
}

func (e *ExprStmt) Pos() Span { return e.Span }
func (e *ExprStmt) stmtNode() {}

// SwitchStmt represents a switch statement.
type SwitchStmt struct {
	Selector Expr
	Cases    []*SwitchCaseClause
	Span     Span
}

func (s *SwitchStmt) Pos() Span { return s.Span }
func (s *SwitchStmt) stmtNode() {}

// SwitchCaseClause represents a case clause in a switch statement.
type SwitchCaseClause struct {
	Selectors []Expr     // Case selectors (nil or empty for default)
	IsDefault bool       // True if the clause contains the default selector
	Body      *BlockStmt // Case body
	Span      Span
}

// Expressions

// Ident represents an identifier. Decl is the declaration it resolves to:
// *VarDecl, *LetDecl, *ConstDecl or *Parameter.
type Ident struct {
	Name string
	Decl Decl
	Type types.Type
	Span Span
}

func (i *Ident) Pos() Span                { return i.Span }
func (i *Ident) exprNode()                {}
func (i *Ident) ResolvedType() types.Type { return i.Type }

// Literal represents a literal value.
type Literal struct {
	Kind  TokenKind // IntLiteral, FloatLiteral, BoolLiteral
	Value string
	Type  types.Type
	Span  Span
}

func (l *Literal) Pos() Span                { return l.Span }
func (l *Literal) exprNode()                {}
func (l *Literal) ResolvedType() types.Type { return l.Type }

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Left  Expr
	Op    TokenKind
	Right Expr
	Type  types.Type
	Span  Span
}

func (b *BinaryExpr) Pos() Span                { return b.Span }
func (b *BinaryExpr) exprNode()                {}
func (b *BinaryExpr) ResolvedType() types.Type { return b.Type }

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Op      TokenKind
	Operand Expr
	Type    types.Type
	Span    Span
}

func (u *UnaryExpr) Pos() Span                { return u.Span }
func (u *UnaryExpr) exprNode()                {}
func (u *UnaryExpr) ResolvedType() types.Type { return u.Type }

// CallExpr represents a function call.
type CallExpr struct {
	Func   *Ident
	Args   []Expr
	Callee *FunctionDecl // nil for builtins
	Type   types.Type    // nil for calls without a result
	Span   Span
}

func (c *CallExpr) Pos() Span                { return c.Span }
func (c *CallExpr) exprNode()                {}
func (c *CallExpr) ResolvedType() types.Type { return c.Type }

// IndexExpr represents an index expression.
type IndexExpr struct {
	Expr  Expr
	Index Expr
	Type  types.Type
	Span  Span
}

func (i *IndexExpr) Pos() Span                { return i.Span }
func (i *IndexExpr) exprNode()                {}
func (i *IndexExpr) ResolvedType() types.Type { return i.Type }

// MemberExpr represents a struct member access or a vector swizzle.
type MemberExpr struct {
	Expr   Expr
	Member string
	Type   types.Type
	Span   Span
}

func (m *MemberExpr) Pos() Span                { return m.Span }
func (m *MemberExpr) exprNode()                {}
func (m *MemberExpr) ResolvedType() types.Type { return m.Type }

// ConstructExpr represents a type constructor or conversion expression.
type ConstructExpr struct {
	Type types.Type
	Args []Expr
	Span Span
}

func (c *ConstructExpr) Pos() Span                { return c.Span }
func (c *ConstructExpr) exprNode()                {}
func (c *ConstructExpr) ResolvedType() types.Type { return c.Type }
