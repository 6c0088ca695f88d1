// This file is part of glua.
//
// Copyright 2024 The glua Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ast defines the syntax tree the parser produces and the compiler
// consumes (spec §4.2's "AST node kinds"). Every node carries the source
// Position its first token started at, for runtime-error and debug-info
// purposes (spec §7).
package ast

// Position is a source location: line and column are 1-based. Every node
// struct embeds Position directly (as an exported field), which both
// satisfies the Node interface below and lets parser construct nodes with
// an ordinary struct literal.
type Position struct {
	Source string
	Line   int
	Column int
}

// Pos implements Node for every struct that embeds Position.
func (p Position) Pos() Position { return p }

// Node is implemented by every statement and expression node.
type Node interface {
	Pos() Position
}

// Block is a sequence of statements, optionally ending with a Return or
// Break (enforced by the parser, not this type).
type Block struct {
	Stmts []Stmt
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// ---- Statements ----

// AssignStmt is a (possibly multi-target, multi-value) assignment:
// lhs1, lhs2 = rhs1, rhs2 (spec §4.2).
type AssignStmt struct {
	Position
	LHS []Expr // each is *Identifier, *IndexExpr or *MemberExpr
	RHS []Expr
}

func (*AssignStmt) stmtNode() {}

// LocalStmt declares one or more locals with an optional initializer list:
// local a, b = 1, 2.
type LocalStmt struct {
	Position
	Names   []string
	Attribs []string // reserved for future const/close attribs; always "" in 5.1
	Exprs   []Expr
}

func (*LocalStmt) stmtNode() {}

// LocalFunctionStmt is `local function name(...) ... end`, distinct from
// LocalStmt+FunctionExpr because the name is in scope inside its own body
// (spec §4.2 "local function").
type LocalFunctionStmt struct {
	Position
	Name string
	Func *FunctionExpr
}

func (*LocalFunctionStmt) stmtNode() {}

// FunctionStmt is `function t.a.b:m(...) ... end` sugar, spec §4.2
// "Method-definition sugar"/"Function-definition name path": Target is the
// whole name path (base identifier, dotted `.field` chain and the optional
// trailing `:name`) assembled into one expression; for a `:name` method the
// parser has already put `self` first in Func's parameters.
type FunctionStmt struct {
	Position
	Target Expr // *Identifier or *MemberExpr chain, already assembled by the parser
	Func   *FunctionExpr
}

func (*FunctionStmt) stmtNode() {}

// DoStmt is `do block end`, a scope-only block.
type DoStmt struct {
	Position
	Body *Block
}

func (*DoStmt) stmtNode() {}

// WhileStmt is `while cond do block end`.
type WhileStmt struct {
	Position
	Cond Expr
	Body *Block
}

func (*WhileStmt) stmtNode() {}

// RepeatStmt is `repeat block until cond`; cond can see block's locals
// (spec §4.2 "repeat-until" scoping quirk).
type RepeatStmt struct {
	Position
	Body *Block
	Cond Expr
}

func (*RepeatStmt) stmtNode() {}

// NumericForStmt is `for name = start, limit[, step] do block end`.
type NumericForStmt struct {
	Position
	Name  string
	Start Expr
	Limit Expr
	Step  Expr // nil means implicit 1
	Body  *Block
}

func (*NumericForStmt) stmtNode() {}

// GenericForStmt is `for n1, n2, ... in explist do block end`.
type GenericForStmt struct {
	Position
	Names []string
	Exprs []Expr
	Body  *Block
}

func (*GenericForStmt) stmtNode() {}

// IfClause is one `if`/`elseif` arm.
type IfClause struct {
	Cond Expr
	Body *Block
}

// IfStmt is `if c1 then b1 elseif c2 then b2 ... else be end`.
type IfStmt struct {
	Position
	Clauses []IfClause
	Else    *Block // nil if no else
}

func (*IfStmt) stmtNode() {}

// ReturnStmt is `return [explist]`; must be the last statement of a block
// (enforced by the parser).
type ReturnStmt struct {
	Position
	Exprs []Expr
}

func (*ReturnStmt) stmtNode() {}

// BreakStmt is `break`; must appear inside a loop (enforced by the
// compiler, which tracks the enclosing loop's patch list).
type BreakStmt struct{ Position }

func (*BreakStmt) stmtNode() {}

// ExprStmt is an expression used as a statement: only call and method-call
// expressions are legal here (spec §4.2).
type ExprStmt struct {
	Position
	Call Expr // *CallExpr or *MethodCallExpr
}

func (*ExprStmt) stmtNode() {}

// ---- Expressions ----

type NilExpr struct{ Position }

func (*NilExpr) exprNode() {}

type BoolExpr struct {
	Position
	Value bool
}

func (*BoolExpr) exprNode() {}

type NumberExpr struct {
	Position
	Value float64
}

func (*NumberExpr) exprNode() {}

type StringExpr struct {
	Position
	Value string
}

func (*StringExpr) exprNode() {}

// VarargExpr is `...`, only legal inside a vararg function.
type VarargExpr struct{ Position }

func (*VarargExpr) exprNode() {}

// Identifier is a bare name reference; the compiler resolves it to a local,
// an upvalue, or a global (spec §4.3 "Upvalue resolution").
type Identifier struct {
	Position
	Name string
}

func (*Identifier) exprNode() {}

// BinaryExpr covers every binary operator in spec §4.2's precedence table,
// Op holding the lexer token text ("+", "and", "==", ...).
type BinaryExpr struct {
	Position
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr covers `not`, `-` and `#`.
type UnaryExpr struct {
	Position
	Op      string
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// IndexExpr is `e[k]`.
type IndexExpr struct {
	Position
	Object Expr
	Key    Expr
}

func (*IndexExpr) exprNode() {}

// MemberExpr is `e.k`, sugar for IndexExpr with a string-literal key (spec
// §4.2).
type MemberExpr struct {
	Position
	Object Expr
	Name   string
}

func (*MemberExpr) exprNode() {}

// ParenExpr is `(e)`: unlike every other wrapper, parentheses truncate a
// multi-value or vararg expression to exactly one value (spec §4.2
// "Multi-value expressions" — `(f())` and `f()` differ).
type ParenExpr struct {
	Position
	Inner Expr
}

func (*ParenExpr) exprNode() {}

// CallExpr is `f(args)`.
type CallExpr struct {
	Position
	Func Expr
	Args []Expr
}

func (*CallExpr) exprNode() {}

// MethodCallExpr is `obj:m(args)`, sugar for obj.m(obj, args) with obj
// evaluated once (spec §4.2).
type MethodCallExpr struct {
	Position
	Object Expr
	Method string
	Args   []Expr
}

func (*MethodCallExpr) exprNode() {}

// TableField is one table-constructor entry: either `[Key] = Value`,
// `Name = Value` (Key is a StringExpr built by the parser), or a positional
// `Value` (Key is nil).
type TableField struct {
	Key   Expr // nil for a positional (array-style) entry
	Value Expr
}

// TableExpr is a table constructor `{ ... }`.
type TableExpr struct {
	Position
	Fields []TableField
}

func (*TableExpr) exprNode() {}

// FunctionExpr is a function body: `function(params, ...) ... end`, used
// both as an expression and, via FunctionStmt/LocalFunctionStmt, as
// sugared statement forms.
type FunctionExpr struct {
	Position
	Params   []string
	IsVararg bool
	Body     *Block
	// Name is debug info only: the dotted path FunctionStmt/
	// LocalFunctionStmt constructed, or "" for an anonymous function
	// expression.
	Name string
}

func (*FunctionExpr) exprNode() {}
