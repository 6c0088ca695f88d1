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

func (p *parser) parseStatement() ast.Stmt {
	switch p.tok.Kind {
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwDo:
		return p.parseDo()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwRepeat:
		return p.parseRepeat()
	case lexer.KwFunction:
		return p.parseFunctionStmt()
	case lexer.KwLocal:
		return p.parseLocal()
	case lexer.KwBreak:
		pos := p.pos()
		p.next()
		return &ast.BreakStmt{Position: pos}
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseDo() ast.Stmt {
	pos := p.pos()
	p.next()
	body := p.parseBlock()
	p.expect(lexer.KwEnd)
	return &ast.DoStmt{Position: pos, Body: body}
}

func (p *parser) parseWhile() ast.Stmt {
	pos := p.pos()
	p.next()
	cond := p.parseExpr(0)
	p.expect(lexer.KwDo)
	body := p.parseBlock()
	p.expect(lexer.KwEnd)
	return &ast.WhileStmt{Position: pos, Cond: cond, Body: body}
}

// parseRepeat relies on the compiler, not the parser, to let the until
// condition see the body's locals (spec §4.2's repeat-until scoping quirk):
// both Body and Cond are handed over intact for the compiler to lower in
// one scope.
func (p *parser) parseRepeat() ast.Stmt {
	pos := p.pos()
	p.next()
	body := p.parseBlock()
	p.expect(lexer.KwUntil)
	cond := p.parseExpr(0)
	return &ast.RepeatStmt{Position: pos, Body: body, Cond: cond}
}

func (p *parser) parseIf() ast.Stmt {
	pos := p.pos()
	p.next()
	cond := p.parseExpr(0)
	p.expect(lexer.KwThen)
	body := p.parseBlock()
	clauses := []ast.IfClause{{Cond: cond, Body: body}}
	for p.tok.Kind == lexer.KwElseif {
		p.next()
		c := p.parseExpr(0)
		p.expect(lexer.KwThen)
		b := p.parseBlock()
		clauses = append(clauses, ast.IfClause{Cond: c, Body: b})
	}
	var elseBlock *ast.Block
	if p.tok.Kind == lexer.KwElse {
		p.next()
		elseBlock = p.parseBlock()
	}
	p.expect(lexer.KwEnd)
	return &ast.IfStmt{Position: pos, Clauses: clauses, Else: elseBlock}
}

// parseFor disambiguates numeric vs generic for by whether the first name
// is followed by '=' (spec §4.2 "for").
func (p *parser) parseFor() ast.Stmt {
	pos := p.pos()
	p.next()
	name := p.expect(lexer.Name).Str
	if p.tok.Kind == lexer.Assign {
		p.next()
		start := p.parseExpr(0)
		p.expect(lexer.Comma)
		limit := p.parseExpr(0)
		var step ast.Expr
		if p.tok.Kind == lexer.Comma {
			p.next()
			step = p.parseExpr(0)
		}
		p.expect(lexer.KwDo)
		body := p.parseBlock()
		p.expect(lexer.KwEnd)
		return &ast.NumericForStmt{Position: pos, Name: name, Start: start, Limit: limit, Step: step, Body: body}
	}

	names := []string{name}
	for p.tok.Kind == lexer.Comma {
		p.next()
		names = append(names, p.expect(lexer.Name).Str)
	}
	p.expect(lexer.KwIn)
	exprs := p.parseExprList()
	p.expect(lexer.KwDo)
	body := p.parseBlock()
	p.expect(lexer.KwEnd)
	return &ast.GenericForStmt{Position: pos, Names: names, Exprs: exprs, Body: body}
}

// parseFunctionStmt parses `function t.a.b:m(...) ... end` (spec §4.2
// "Method-definition sugar"/"Function-definition name path"): a dotted
// Target chain with an optional trailing `:name`, which injects an
// implicit `self` as the function's first parameter.
func (p *parser) parseFunctionStmt() ast.Stmt {
	pos := p.pos()
	p.next()
	namePos := p.pos()
	name := p.expect(lexer.Name).Str
	var target ast.Expr = &ast.Identifier{Position: namePos, Name: name}
	fullName := name
	isMethod := false
	for p.tok.Kind == lexer.Dot {
		p.next()
		mpos := p.pos()
		field := p.expect(lexer.Name).Str
		target = &ast.MemberExpr{Position: mpos, Object: target, Name: field}
		fullName += "." + field
	}
	if p.tok.Kind == lexer.Colon {
		p.next()
		mpos := p.pos()
		field := p.expect(lexer.Name).Str
		target = &ast.MemberExpr{Position: mpos, Object: target, Name: field}
		fullName += ":" + field
		isMethod = true
	}
	fn := p.parseFunctionBody(pos, fullName)
	if isMethod {
		fn.Params = append([]string{"self"}, fn.Params...)
	}
	return &ast.FunctionStmt{Position: pos, Target: target, Func: fn}
}

func (p *parser) parseLocal() ast.Stmt {
	pos := p.pos()
	p.next()
	if p.tok.Kind == lexer.KwFunction {
		p.next()
		namePos := p.pos()
		name := p.expect(lexer.Name).Str
		fn := p.parseFunctionBody(namePos, name)
		return &ast.LocalFunctionStmt{Position: pos, Name: name, Func: fn}
	}

	var names, attribs []string
	names = append(names, p.expect(lexer.Name).Str)
	attribs = append(attribs, p.parseAttrib())
	for p.tok.Kind == lexer.Comma {
		p.next()
		names = append(names, p.expect(lexer.Name).Str)
		attribs = append(attribs, p.parseAttrib())
	}
	var exprs []ast.Expr
	if p.tok.Kind == lexer.Assign {
		p.next()
		exprs = p.parseExprList()
	}
	return &ast.LocalStmt{Position: pos, Names: names, Attribs: attribs, Exprs: exprs}
}

// parseAttrib is a placeholder: Lua 5.1 has no variable attribute syntax
// (<const>/<close> were added in 5.4), so a local's attribute is always "".
func (p *parser) parseAttrib() string { return "" }

// parseExprStmt parses either an assignment or a call used as a statement,
// disambiguated the way spec §4.2 requires: parse one suffixed expression
// first, then look at what follows it.
func (p *parser) parseExprStmt() ast.Stmt {
	pos := p.pos()
	first := p.parseSuffixedExpr()
	if p.tok.Kind == lexer.Assign || p.tok.Kind == lexer.Comma {
		lhs := []ast.Expr{first}
		for p.tok.Kind == lexer.Comma {
			p.next()
			lhs = append(lhs, p.parseSuffixedExpr())
		}
		p.expect(lexer.Assign)
		rhs := p.parseExprList()
		for _, l := range lhs {
			switch l.(type) {
			case *ast.Identifier, *ast.IndexExpr, *ast.MemberExpr:
			default:
				p.errorf("syntax error: cannot assign to this expression")
			}
		}
		return &ast.AssignStmt{Position: pos, LHS: lhs, RHS: rhs}
	}

	switch first.(type) {
	case *ast.CallExpr, *ast.MethodCallExpr:
		return &ast.ExprStmt{Position: pos, Call: first}
	default:
		p.errorf("syntax error near '%s'", p.tokenText())
		return &ast.ExprStmt{Position: pos, Call: first}
	}
}
