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

package compiler_test

import (
	"testing"

	"github.com/dbrn/glua/compiler"
	"github.com/dbrn/glua/parser"
	"github.com/dbrn/glua/stdlib"
	"github.com/dbrn/glua/vm"
)

// run compiles and executes src in a fresh Instance with the standard
// library open, returning whatever the chunk returned.
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

func global(t *testing.T, in *vm.Instance, name string) vm.Value {
	t.Helper()
	return in.Globals().GetStr(in.Heap().NewString([]byte(name)))
}

func runGlobal(t *testing.T, src, name string) vm.Value {
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
	if _, err := in.Call(cl); err != nil {
		t.Fatalf("running %q: %v", src, err)
	}
	return global(t, in, name)
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

func TestArithmeticAndReturn(t *testing.T) {
	res := run(t, "return 1 + 2 * 3")
	if len(res) != 1 {
		t.Fatalf("got %d results, want 1", len(res))
	}
	wantNumber(t, res[0], 7)
}

func TestLocalsAndAssignment(t *testing.T) {
	res := run(t, "local a, b = 10, 20; a, b = b, a; return a, b")
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	wantNumber(t, res[0], 20)
	wantNumber(t, res[1], 10)
}

func TestIfElse(t *testing.T) {
	res := run(t, `
		local function sign(x)
			if x > 0 then return 1
			elseif x < 0 then return -1
			else return 0
			end
		end
		return sign(5), sign(-5), sign(0)
	`)
	if len(res) != 3 {
		t.Fatalf("got %d results, want 3", len(res))
	}
	wantNumber(t, res[0], 1)
	wantNumber(t, res[1], -1)
	wantNumber(t, res[2], 0)
}

func TestNumericForAccumulates(t *testing.T) {
	res := run(t, `
		local sum = 0
		for i = 1, 10 do sum = sum + i end
		return sum
	`)
	wantNumber(t, res[0], 55)
}

func TestGenericForOverTable(t *testing.T) {
	res := run(t, `
		local t = {10, 20, 30}
		local sum = 0
		for i, v in ipairs(t) do sum = sum + v end
		return sum
	`)
	wantNumber(t, res[0], 60)
}

func TestClosureCapturesUpvalue(t *testing.T) {
	res := run(t, `
		local function counter()
			local n = 0
			return function()
				n = n + 1
				return n
			end
		end
		local c = counter()
		c()
		c()
		return c()
	`)
	wantNumber(t, res[0], 3)
}

func TestRecursiveFunction(t *testing.T) {
	res := run(t, `
		local function fact(n)
			if n <= 1 then return 1 end
			return n * fact(n - 1)
		end
		return fact(6)
	`)
	wantNumber(t, res[0], 720)
}

func TestMethodCallAndSelf(t *testing.T) {
	res := run(t, `
		local obj = { value = 41 }
		function obj:bump() self.value = self.value + 1; return self.value end
		return obj:bump()
	`)
	wantNumber(t, res[0], 42)
}

func TestStringConcatAndLibrary(t *testing.T) {
	res := run(t, `return "hello " .. string.upper("world")`)
	wantString(t, res[0], "hello WORLD")
}

func TestVarargPassthrough(t *testing.T) {
	res := run(t, `
		local function sum(...)
			local s = 0
			for _, v in ipairs({...}) do s = s + v end
			return s
		end
		return sum(1, 2, 3, 4)
	`)
	wantNumber(t, res[0], 10)
}

func TestPcallCatchesError(t *testing.T) {
	res := run(t, `
		local ok, msg = pcall(function() error("boom") end)
		return ok, msg
	`)
	if b, ok := res[0].(vm.Boolean); !ok || bool(b) {
		t.Fatalf("got %#v, want false", res[0])
	}
}

func TestTableLibrarySort(t *testing.T) {
	v := runGlobal(t, `
		t = {3, 1, 2}
		table.sort(t)
	`, "t")
	tbl, ok := v.(*vm.Table)
	if !ok {
		t.Fatalf("got %T, want *vm.Table", v)
	}
	wantNumber(t, tbl.GetInt(1), 1)
	wantNumber(t, tbl.GetInt(2), 2)
	wantNumber(t, tbl.GetInt(3), 3)
}
