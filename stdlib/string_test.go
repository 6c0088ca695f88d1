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

package stdlib_test

import (
	"testing"

	"github.com/dbrn/glua/compiler"
	"github.com/dbrn/glua/parser"
	"github.com/dbrn/glua/stdlib"
	"github.com/dbrn/glua/vm"
)

func run(t *testing.T, src string) []vm.Value {
	t.Helper()
	in, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	stdlib.Open(in)
	block, err := parser.Parse("test", []byte(src))
	if err != nil {
		t.Fatalf("parser.Parse(%q): %v", src, err)
	}
	proto, err := compiler.Compile(in.Heap(), "test", block)
	if err != nil {
		t.Fatalf("compiler.Compile(%q): %v", src, err)
	}
	cl := in.Heap().NewLuaClosure(proto)
	res, err := in.Call(cl)
	if err != nil {
		t.Fatalf("running %q: %v", src, err)
	}
	return res
}

func wantString(t *testing.T, v vm.Value, want string) {
	t.Helper()
	s, ok := v.(*vm.String)
	if !ok {
		t.Fatalf("got %T (%s), want *vm.String", v, v.GoString())
	}
	if s.GoString() != want {
		t.Errorf("got %q, want %q", s.GoString(), want)
	}
}

func wantNumber(t *testing.T, v vm.Value, want float64) {
	t.Helper()
	n, ok := v.(vm.Number)
	if !ok {
		t.Fatalf("got %T (%s), want vm.Number", v, v.GoString())
	}
	if float64(n) != want {
		t.Errorf("got %v, want %v", float64(n), want)
	}
}

func TestStringFindPlain(t *testing.T) {
	res := run(t, `return string.find("hello world", "world")`)
	wantNumber(t, res[0], 7)
	wantNumber(t, res[1], 11)
}

func TestStringFindPattern(t *testing.T) {
	res := run(t, `return string.find("  42 apples", "%d+")`)
	wantNumber(t, res[0], 3)
	wantNumber(t, res[1], 4)
}

func TestStringMatchCapture(t *testing.T) {
	res := run(t, `return string.match("key=value", "(%a+)=(%a+)")`)
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	wantString(t, res[0], "key")
	wantString(t, res[1], "value")
}

func TestStringMatchNoCaptureReturnsWholeMatch(t *testing.T) {
	res := run(t, `return string.match("hello world", "%a+")`)
	wantString(t, res[0], "hello")
}

func TestStringGmatchIteratesAllMatches(t *testing.T) {
	res := run(t, `
		local words = {}
		for w in string.gmatch("one two three", "%a+") do
			words[#words + 1] = w
		end
		return words[1], words[2], words[3], #words
	`)
	wantString(t, res[0], "one")
	wantString(t, res[1], "two")
	wantString(t, res[2], "three")
	wantNumber(t, res[3], 3)
}

func TestStringGsubStringReplacement(t *testing.T) {
	res := run(t, `return string.gsub("hello world", "o", "0")`)
	wantString(t, res[0], "hell0 w0rld")
	wantNumber(t, res[1], 2)
}

func TestStringGsubWithCaptureTemplate(t *testing.T) {
	res := run(t, `return string.gsub("2024-01-02", "(%d+)-(%d+)-(%d+)", "%3/%2/%1")`)
	wantString(t, res[0], "02/01/2024")
}

func TestStringGsubWithFunction(t *testing.T) {
	res := run(t, `return (string.gsub("hello", "%a", function(c) return c:upper() end))`)
	wantString(t, res[0], "HELLO")
}

func TestStringGsubWithTable(t *testing.T) {
	res := run(t, `
		local subs = { foo = "bar" }
		return (string.gsub("foo baz", "%a+", subs))
	`)
	wantString(t, res[0], "bar baz")
}

func TestStringGsubMaxCount(t *testing.T) {
	res := run(t, `return string.gsub("aaaa", "a", "b", 2)`)
	wantString(t, res[0], "bbaa")
	wantNumber(t, res[1], 2)
}

func TestStringFormat(t *testing.T) {
	res := run(t, `return string.format("%d-%s", 42, "x")`)
	wantString(t, res[0], "42-x")
}

func TestStringSubNegativeIndices(t *testing.T) {
	res := run(t, `return string.sub("hello", -3, -1)`)
	wantString(t, res[0], "llo")
}
