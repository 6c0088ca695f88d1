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

package parser

import (
	"github.com/dbrn/glua/ast"
	"github.com/dbrn/glua/lexer"
)

// binOpInfo holds a binary operator's left and right binding power; right <
// left makes an operator right-associative (spec §4.2's precedence table).
// The numbers mirror the reference implementation's own parser table scaled
// to this package's precedence levels; relative order is what matters.
type binOpInfo struct{ left, right int }

var binPriority = map[lexer.Kind]binOpInfo{
	lexer.KwOr:  {1, 1},
	lexer.KwAnd: {2, 2},

	lexer.Lt: {3, 3}, lexer.Gt: {3, 3}, lexer.Le: {3, 3}, lexer.Ge: {3, 3},
	lexer.Ne: {3, 3}, lexer.Eq: {3, 3},

	lexer.Concat: {5, 4}, // right-associative

	lexer.Plus: {6, 6}, lexer.Minus: {6, 6},

	lexer.Star: {7, 7}, lexer.Slash: {7, 7}, lexer.Percent: {7, 7},

	lexer.Caret: {10, 9}, // right-associative, binds tighter than unary
}

// unaryPriority is the binding power unary operators parse their operand at;
// it sits between */% and ^ (spec §4.2: "^" binds tighter than unary minus,
// so `-2^2` is `-(2^2)`).
const unaryPriority = 8

// parseExpr implements precedence climbing: it parses an expression whose
// leading binary operators must bind tighter than limit.
func (p *parser) parseExpr(limit int) ast.Expr {
	var left ast.Expr
	pos := p.pos()
	switch p.tok.Kind {
	case lexer.KwNot, lexer.Minus, lexer.Hash:
		op := p.tok.Kind.String()
		p.next()
		operand := p.parseExpr(unaryPriority)
		left = &ast.UnaryExpr{Position: pos, Op: op, Operand: operand}
	default:
		left = p.parseSimpleExpr()
	}
	for {
		info, ok := binPriority[p.tok.Kind]
		if !ok || info.left <= limit {
			return left
		}
		op := p.tok.Kind.String()
		opPos := p.pos()
		p.next()
		right := p.parseExpr(info.right)
		left = &ast.BinaryExpr{Position: opPos, Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseExprList() []ast.Expr {
	exprs := []ast.Expr{p.parseExpr(0)}
	for p.tok.Kind == lexer.Comma {
		p.next()
		exprs = append(exprs, p.parseExpr(0))
	}
	return exprs
}

// parseSimpleExpr handles literals, table/function constructors, and
// defers to parseSuffixedExpr for everything that starts a prefixexp.
func (p *parser) parseSimpleExpr() ast.Expr {
	pos := p.pos()
	switch p.tok.Kind {
	case lexer.KwNil:
		p.next()
		return &ast.NilExpr{Position: pos}
	case lexer.KwTrue:
		p.next()
		return &ast.BoolExpr{Position: pos, Value: true}
	case lexer.KwFalse:
		p.next()
		return &ast.BoolExpr{Position: pos, Value: false}
	case lexer.Number:
		v := p.tok.Number
		p.next()
		return &ast.NumberExpr{Position: pos, Value: v}
	case lexer.String:
		v := p.tok.Str
		p.next()
		return &ast.StringExpr{Position: pos, Value: v}
	case lexer.Ellipsis:
		p.next()
		return &ast.VarargExpr{Position: pos}
	case lexer.KwFunction:
		p.next()
		return p.parseFunctionBody(pos, "")
	case lexer.LBrace:
		return p.parseTableConstructor()
	default:
		return p.parseSuffixedExpr()
	}
}

// parsePrimaryExpr handles a bare name or a parenthesized expression, the
// two bases a suffix chain (call/index/member) can build on (spec §4.2
// "prefixexp").
func (p *parser) parsePrimaryExpr() ast.Expr {
	pos := p.pos()
	switch p.tok.Kind {
	case lexer.Name:
		name := p.tok.Str
		p.next()
		return &ast.Identifier{Position: pos, Name: name}
	case lexer.LParen:
		p.next()
		inner := p.parseExpr(0)
		p.expect(lexer.RParen)
		return &ast.ParenExpr{Position: pos, Inner: inner}
	default:
		p.errorf("unexpected symbol near '%s'", p.tokenText())
		p.next()
		return &ast.NilExpr{Position: pos}
	}
}

// parseSuffixedExpr extends a primary expression with any chain of
// `.name`, `[expr]`, `:name(args)` or `(args)` suffixes.
func (p *parser) parseSuffixedExpr() ast.Expr {
	e := p.parsePrimaryExpr()
	for {
		pos := p.pos()
		switch p.tok.Kind {
		case lexer.Dot:
			p.next()
			name := p.expect(lexer.Name).Str
			e = &ast.MemberExpr{Position: pos, Object: e, Name: name}
		case lexer.LBracket:
			p.next()
			key := p.parseExpr(0)
			p.expect(lexer.RBracket)
			e = &ast.IndexExpr{Position: pos, Object: e, Key: key}
		case lexer.Colon:
			p.next()
			method := p.expect(lexer.Name).Str
			args := p.parseArgs()
			e = &ast.MethodCallExpr{Position: pos, Object: e, Method: method, Args: args}
		case lexer.LParen, lexer.String, lexer.LBrace:
			args := p.parseArgs()
			e = &ast.CallExpr{Position: pos, Func: e, Args: args}
		default:
			return e
		}
	}
}

// parseArgs parses a call's argument list: `(explist)`, a single string
// literal, or a table constructor (spec §4.2 "Call sugar").
func (p *parser) parseArgs() []ast.Expr {
	switch p.tok.Kind {
	case lexer.String:
		pos := p.pos()
		s := p.tok.Str
		p.next()
		return []ast.Expr{&ast.StringExpr{Position: pos, Value: s}}
	case lexer.LBrace:
		return []ast.Expr{p.parseTableConstructor()}
	case lexer.LParen:
		p.next()
		var args []ast.Expr
		if p.tok.Kind != lexer.RParen {
			args = p.parseExprList()
		}
		p.expect(lexer.RParen)
		return args
	default:
		p.errorf("function arguments expected near '%s'", p.tokenText())
		return nil
	}
}

func (p *parser) parseTableConstructor() ast.Expr {
	pos := p.pos()
	p.expect(lexer.LBrace)
	var fields []ast.TableField
	for p.tok.Kind != lexer.RBrace && !p.abort() {
		switch {
		case p.tok.Kind == lexer.LBracket:
			p.next()
			key := p.parseExpr(0)
			p.expect(lexer.RBracket)
			p.expect(lexer.Assign)
			val := p.parseExpr(0)
			fields = append(fields, ast.TableField{Key: key, Value: val})
		case p.tok.Kind == lexer.Name && p.lex.Peek().Kind == lexer.Assign:
			namePos := p.pos()
			name := p.tok.Str
			p.next()
			p.next() // consume '='
			val := p.parseExpr(0)
			fields = append(fields, ast.TableField{
				Key:   &ast.StringExpr{Position: namePos, Value: name},
				Value: val,
			})
		default:
			val := p.parseExpr(0)
			fields = append(fields, ast.TableField{Value: val})
		}
		if p.tok.Kind == lexer.Comma || p.tok.Kind == lexer.Semi {
			p.next()
		} else {
			break
		}
	}
	p.expect(lexer.RBrace)
	return &ast.TableExpr{Position: pos, Fields: fields}
}

// parseFunctionBody parses `(params) block end`, the part shared by
// function expressions, `function name(...)` statements and `local
// function name(...)`. name is debug info only (spec §4.2).
func (p *parser) parseFunctionBody(pos ast.Position, name string) *ast.FunctionExpr {
	p.expect(lexer.LParen)
	var params []string
	vararg := false
	if p.tok.Kind != lexer.RParen {
		for {
			if p.tok.Kind == lexer.Ellipsis {
				vararg = true
				p.next()
				break
			}
			params = append(params, p.expect(lexer.Name).Str)
			if p.tok.Kind != lexer.Comma {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.RParen)
	body := p.parseBlock()
	p.expect(lexer.KwEnd)
	return &ast.FunctionExpr{Position: pos, Params: params, IsVararg: vararg, Body: body, Name: name}
}
