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

package lexer_test

import (
	"testing"

	"github.com/dbrn/glua/lexer"
)

func scanAll(src string) []lexer.Token {
	l := lexer.New("test", []byte(src))
	var toks []lexer.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == lexer.EndOfSource {
			return toks
		}
	}
}

func kinds(toks []lexer.Token) []lexer.Kind {
	ks := make([]lexer.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexKeywordsAndSymbols(t *testing.T) {
	toks := scanAll("local x = 1 + 2 == 3 and not false")
	want := []lexer.Kind{
		lexer.KwLocal, lexer.Name, lexer.Assign, lexer.Number, lexer.Plus,
		lexer.Number, lexer.Eq, lexer.Number, lexer.KwAnd, lexer.KwNot,
		lexer.KwFalse, lexer.EndOfSource,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexMultiCharSymbols(t *testing.T) {
	toks := scanAll("a ~= b <= c >= d .. e ...")
	want := []lexer.Kind{
		lexer.Name, lexer.Ne, lexer.Name, lexer.Le, lexer.Name, lexer.Ge,
		lexer.Name, lexer.Concat, lexer.Name, lexer.Ellipsis, lexer.EndOfSource,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := scanAll(`"a\tb\nc\\\""`)
	if toks[0].Kind != lexer.String {
		t.Fatalf("expected a string token, got %v", toks[0].Kind)
	}
	want := "a\tb\nc\\\""
	if toks[0].Str != want {
		t.Errorf("got %q, want %q", toks[0].Str, want)
	}
}

func TestLexLongBracketString(t *testing.T) {
	toks := scanAll("[[hello\nworld]]")
	if toks[0].Kind != lexer.String {
		t.Fatalf("expected a string token, got %v", toks[0].Kind)
	}
	if toks[0].Str != "hello\nworld" {
		t.Errorf("got %q", toks[0].Str)
	}
}

func TestLexLongBracketLevel(t *testing.T) {
	toks := scanAll("[==[ a ]] still inside ]==]")
	if toks[0].Kind != lexer.String {
		t.Fatalf("expected a string token, got %v", toks[0].Kind)
	}
	want := " a ]] still inside "
	if toks[0].Str != want {
		t.Errorf("got %q, want %q", toks[0].Str, want)
	}
}

func TestLexComments(t *testing.T) {
	toks := scanAll("-- a line comment\nlocal --[[ block comment ]] x")
	want := []lexer.Kind{lexer.KwLocal, lexer.Name, lexer.EndOfSource}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
}

func TestLexNumbers(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"42", 42},
		{"3.14", 3.14},
		{"1e3", 1000},
		{"0x1A", 26},
		{".5", 0.5},
	}
	for _, c := range cases {
		toks := scanAll(c.src)
		if toks[0].Kind != lexer.Number {
			t.Fatalf("%q: expected a number token, got %v", c.src, toks[0].Kind)
		}
		if toks[0].Number != c.want {
			t.Errorf("%q: got %v, want %v", c.src, toks[0].Number, c.want)
		}
	}
}

func TestLexPeekDoesNotConsume(t *testing.T) {
	l := lexer.New("test", []byte("a b"))
	first := l.Peek()
	second := l.Peek()
	if first.Kind != second.Kind || first.Str != second.Str {
		t.Fatalf("Peek must be idempotent, got %v then %v", first, second)
	}
	if l.Next().Str != "a" {
		t.Fatalf("Next after Peek should still return the peeked token")
	}
	if l.Next().Str != "b" {
		t.Fatalf("Next should advance past the peeked token")
	}
}

func TestLexIllegalCharacterIsReported(t *testing.T) {
	l := lexer.New("test", []byte("local x = @"))
	for {
		tok := l.Next()
		if tok.Kind == lexer.EndOfSource {
			break
		}
	}
	if l.Errs() == nil {
		t.Fatalf("expected an error for the illegal '@' character")
	}
}
