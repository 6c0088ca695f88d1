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

package parser_test

import (
	"testing"

	"github.com/dbrn/glua/ast"
	"github.com/dbrn/glua/parser"
)

func mustParse(t *testing.T, src string) *ast.Block {
	t.Helper()
	block, err := parser.Parse("test", []byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", src, err)
	}
	return block
}

func TestParseLocalAssignment(t *testing.T) {
	block := mustParse(t, "local a, b = 1, 2")
	if len(block.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(block.Stmts))
	}
	ls, ok := block.Stmts[0].(*ast.LocalStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.LocalStmt", block.Stmts[0])
	}
	if len(ls.Names) != 2 || ls.Names[0] != "a" || ls.Names[1] != "b" {
		t.Errorf("got names %v, want [a b]", ls.Names)
	}
	if len(ls.Exprs) != 2 {
		t.Fatalf("got %d initializers, want 2", len(ls.Exprs))
	}
	if n, ok := ls.Exprs[0].(*ast.NumberExpr); !ok || n.Value != 1 {
		t.Errorf("first initializer: got %#v", ls.Exprs[0])
	}
}

func TestParseFunctionDefinition(t *testing.T) {
	block := mustParse(t, "function t.a:m(x, ...) return x end")
	if len(block.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(block.Stmts))
	}
	fs, ok := block.Stmts[0].(*ast.FunctionStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.FunctionStmt", block.Stmts[0])
	}
	if fs.Func == nil {
		t.Fatalf("Func is nil")
	}
	// Method sugar injects self as the first parameter (spec §4.2).
	want := []string{"self", "x"}
	if len(fs.Func.Params) != len(want) {
		t.Fatalf("got params %v, want %v", fs.Func.Params, want)
	}
	for i := range want {
		if fs.Func.Params[i] != want[i] {
			t.Errorf("param %d: got %q, want %q", i, fs.Func.Params[i], want[i])
		}
	}
	if !fs.Func.IsVararg {
		t.Errorf("expected IsVararg")
	}
}

func TestParseLocalFunction(t *testing.T) {
	block := mustParse(t, "local function fact(n) if n == 0 then return 1 else return n end end")
	if len(block.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(block.Stmts))
	}
	lf, ok := block.Stmts[0].(*ast.LocalFunctionStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.LocalFunctionStmt", block.Stmts[0])
	}
	if lf.Name != "fact" {
		t.Errorf("got name %q, want fact", lf.Name)
	}
	if len(lf.Func.Body.Stmts) != 1 {
		t.Fatalf("got %d body statements, want 1", len(lf.Func.Body.Stmts))
	}
	ifs, ok := lf.Func.Body.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.IfStmt", lf.Func.Body.Stmts[0])
	}
	if len(ifs.Clauses) != 1 || ifs.Else == nil {
		t.Errorf("expected one if-clause with an else arm, got %d clauses, else=%v", len(ifs.Clauses), ifs.Else)
	}
}

func TestParseNumericFor(t *testing.T) {
	block := mustParse(t, "for i = 1, 10, 2 do end")
	fs, ok := block.Stmts[0].(*ast.NumericForStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.NumericForStmt", block.Stmts[0])
	}
	if fs.Name != "i" {
		t.Errorf("got name %q, want i", fs.Name)
	}
	if fs.Step == nil {
		t.Errorf("expected an explicit step")
	}
}

func TestParseGenericFor(t *testing.T) {
	block := mustParse(t, "for k, v in pairs(t) do end")
	fs, ok := block.Stmts[0].(*ast.GenericForStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.GenericForStmt", block.Stmts[0])
	}
	want := []string{"k", "v"}
	if len(fs.Names) != len(want) {
		t.Fatalf("got names %v, want %v", fs.Names, want)
	}
}

func TestParseTableConstructor(t *testing.T) {
	block := mustParse(t, `local t = { 1, 2, [3] = "three", name = "x" }`)
	ls := block.Stmts[0].(*ast.LocalStmt)
	tbl, ok := ls.Exprs[0].(*ast.TableExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.TableExpr", ls.Exprs[0])
	}
	if len(tbl.Fields) != 4 {
		t.Fatalf("got %d fields, want 4", len(tbl.Fields))
	}
	if tbl.Fields[0].Key != nil {
		t.Errorf("field 0 should be positional, got key %#v", tbl.Fields[0].Key)
	}
	if tbl.Fields[2].Key == nil {
		t.Errorf("field 2 ([3] = ...) should have an explicit key")
	}
	if tbl.Fields[3].Key == nil {
		t.Errorf("field 3 (name = ...) should have a string key")
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 must parse as 1 + (2 * 3), not (1 + 2) * 3 (spec §4.2
	// precedence table).
	block := mustParse(t, "local x = 1 + 2 * 3")
	ls := block.Stmts[0].(*ast.LocalStmt)
	be, ok := ls.Exprs[0].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.BinaryExpr", ls.Exprs[0])
	}
	if be.Op != "+" {
		t.Fatalf("top-level op: got %q, want +", be.Op)
	}
	rhs, ok := be.Right.(*ast.BinaryExpr)
	if !ok || rhs.Op != "*" {
		t.Fatalf("right-hand side: got %#v, want a * BinaryExpr", be.Right)
	}
}

func TestParseConcatRightAssociative(t *testing.T) {
	// a .. b .. c must parse as a .. (b .. c) (spec §4.2: ".." is
	// right-associative).
	block := mustParse(t, "local x = a .. b .. c")
	ls := block.Stmts[0].(*ast.LocalStmt)
	be, ok := ls.Exprs[0].(*ast.BinaryExpr)
	if !ok || be.Op != ".." {
		t.Fatalf("got %#v", ls.Exprs[0])
	}
	if _, ok := be.Left.(*ast.Identifier); !ok {
		t.Errorf("left operand: got %T, want *ast.Identifier", be.Left)
	}
	rhs, ok := be.Right.(*ast.BinaryExpr)
	if !ok || rhs.Op != ".." {
		t.Errorf("right operand: got %#v, want nested .. BinaryExpr", be.Right)
	}
}

func TestParseMethodCall(t *testing.T) {
	block := mustParse(t, `s:sub(1, 2)`)
	es, ok := block.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.ExprStmt", block.Stmts[0])
	}
	mc, ok := es.Call.(*ast.MethodCallExpr)
	if !ok {
		t.Fatalf("got %T, want *ast.MethodCallExpr", es.Call)
	}
	if mc.Method != "sub" {
		t.Errorf("got method %q, want sub", mc.Method)
	}
	if len(mc.Args) != 2 {
		t.Errorf("got %d args, want 2", len(mc.Args))
	}
}

func TestParseReturnMustBeLastStatement(t *testing.T) {
	_, err := parser.Parse("test", []byte("return 1 local x = 2"))
	if err == nil {
		t.Fatalf("expected a syntax error when a statement follows return")
	}
}

func TestParseSyntaxErrorReported(t *testing.T) {
	_, err := parser.Parse("test", []byte("local x = "))
	if err == nil {
		t.Fatalf("expected a syntax error for a missing initializer expression")
	}
	errs, ok := err.(parser.ErrList)
	if !ok {
		t.Fatalf("got %T, want parser.ErrList", err)
	}
	if len(errs) == 0 {
		t.Fatalf("expected at least one reported error")
	}
	msg := err.Error()
	if msg == "" {
		t.Errorf("Error() returned an empty string")
	}
}

func TestParseMismatchedBlockTerminator(t *testing.T) {
	_, err := parser.Parse("test", []byte("if true then return 1 end end"))
	if err == nil {
		t.Fatalf("expected a syntax error for a trailing dangling 'end'")
	}
}
