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

// Package parser turns a lexer.Lexer token stream into an *ast.Block (spec
// §4.2), using precedence climbing for expressions and the teacher's
// bounded ErrAsm/abort() error-accumulation idiom (db47h-ngaro/asm/parser.go)
// generalized to Lua's grammar and synchronizing on the statement-starting
// token set spec §4.2 names, instead of a single token.
package parser

import (
	"fmt"
	"strings"

	"github.com/dbrn/glua/ast"
	"github.com/dbrn/glua/lexer"
)

const maxErrors = 10

// ErrList collects syntax errors (spec §4.2 "Error recovery").
type ErrList []struct {
	Pos lexer.Position
	Msg string
}

func (e ErrList) Error() string {
	l := make([]string, 0, len(e))
	for _, err := range e {
		l = append(l, fmt.Sprintf("%s:%d: %s", err.Pos.Source, err.Pos.Line, err.Msg))
	}
	return strings.Join(l, "\n")
}

type parser struct {
	lex  *lexer.Lexer
	tok  lexer.Token
	errs ErrList
}

// Parse lexes and parses src (named source in error messages) into a
// top-level Block representing an implicit vararg function chunk (spec
// §4.2, §3.2 "the main chunk is itself a vararg function").
func Parse(source string, src []byte) (*ast.Block, error) {
	l := lexer.New(source, src)
	p := &parser{lex: l}
	p.next()
	block := p.parseBlock()
	if p.tok.Kind != lexer.EndOfSource {
		p.errorf("'<eof>' expected near '%s'", p.tokenText())
	}
	if lexErrs := l.Errs(); lexErrs != nil {
		if le, ok := lexErrs.(lexer.ErrList); ok {
			for _, e := range le {
				p.errs = append(p.errs, struct {
					Pos lexer.Position
					Msg string
				}{e.Pos, e.Msg})
			}
		}
	}
	if len(p.errs) > 0 {
		return block, p.errs
	}
	return block, nil
}

func (p *parser) next()          { p.tok = p.lex.Next() }
func (p *parser) abort() bool    { return len(p.errs) >= maxErrors }
func (p *parser) pos() ast.Position {
	return ast.Position{Source: p.tok.Pos.Source, Line: p.tok.Pos.Line, Column: p.tok.Pos.Column}
}

func (p *parser) errorf(format string, args ...any) {
	if p.abort() {
		return
	}
	p.errs = append(p.errs, struct {
		Pos lexer.Position
		Msg string
	}{p.tok.Pos, fmt.Sprintf(format, args...)})
}

func (p *parser) tokenText() string {
	switch p.tok.Kind {
	case lexer.Name, lexer.String:
		return p.tok.Str
	case lexer.Number:
		return fmt.Sprintf("%g", p.tok.Number)
	default:
		return p.tok.Kind.String()
	}
}

func (p *parser) expect(k lexer.Kind) lexer.Token {
	if p.tok.Kind != k {
		p.errorf("'%s' expected near '%s'", k, p.tokenText())
		return p.tok
	}
	t := p.tok
	p.next()
	return t
}

// blockEnd is the statement-starting/synchronization token set spec §4.2
// names for error recovery: blocks stop at one of these.
func (p *parser) blockEnd() bool {
	switch p.tok.Kind {
	case lexer.EndOfSource, lexer.KwEnd, lexer.KwElse, lexer.KwElseif, lexer.KwUntil:
		return true
	default:
		return false
	}
}

// synchronize skips tokens until a stable recovery point (spec §4.2 "Error
// recovery"): a block terminator or a statement-starting keyword.
func (p *parser) synchronize() {
	for !p.blockEnd() {
		switch p.tok.Kind {
		case lexer.KwIf, lexer.KwWhile, lexer.KwDo, lexer.KwFor, lexer.KwRepeat,
			lexer.KwFunction, lexer.KwLocal, lexer.KwReturn, lexer.KwBreak, lexer.Semi:
			return
		}
		p.next()
	}
}

func (p *parser) parseBlock() *ast.Block {
	b := &ast.Block{}
	for !p.blockEnd() && !p.abort() {
		if p.tok.Kind == lexer.Semi {
			p.next()
			continue
		}
		if p.tok.Kind == lexer.KwReturn {
			b.Stmts = append(b.Stmts, p.parseReturn())
			break
		}
		before := len(p.errs)
		s := p.parseStatement()
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
		if len(p.errs) > before {
			p.synchronize()
		}
	}
	return b
}

func (p *parser) parseReturn() ast.Stmt {
	pos := p.pos()
	p.next()
	var exprs []ast.Expr
	if !p.blockEnd() && p.tok.Kind != lexer.Semi {
		exprs = p.parseExprList()
	}
	if p.tok.Kind == lexer.Semi {
		p.next()
	}
	return &ast.ReturnStmt{Position: pos, Exprs: exprs}
}
