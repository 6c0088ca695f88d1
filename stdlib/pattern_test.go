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

package stdlib

import (
	"testing"

	"github.com/dbrn/glua/vm"
)

func capStrings(t *testing.T, h *vm.Heap, caps []vm.Value) []string {
	t.Helper()
	out := make([]string, len(caps))
	for i, c := range caps {
		s, ok := c.(*vm.String)
		if !ok {
			t.Fatalf("capture %d: got %T, want *vm.String", i, c)
		}
		out[i] = s.GoString()
	}
	return out
}

func TestPatFindPlainSubstring(t *testing.T) {
	h := vm.NewHeap()
	start, end, caps, err := patFind(h, "hello world", "world", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 6 || end != 11 {
		t.Fatalf("got [%d,%d), want [6,11)", start, end)
	}
	if caps != nil {
		t.Errorf("expected nil captures for a patternless find, got %v", caps)
	}
}

func TestPatFindNoMatch(t *testing.T) {
	h := vm.NewHeap()
	start, _, _, err := patFind(h, "hello", "xyz", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != -1 {
		t.Fatalf("got start %d, want -1", start)
	}
}

func TestPatFindCharacterClasses(t *testing.T) {
	h := vm.NewHeap()
	start, end, _, err := patFind(h, "  42 apples", "%d+", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 2 || end != 4 {
		t.Fatalf("got [%d,%d), want [2,4)", start, end)
	}
}

func TestPatFindAnchor(t *testing.T) {
	h := vm.NewHeap()
	if start, _, _, err := patFind(h, "abc", "^b", 0); err != nil || start != -1 {
		t.Fatalf("got start=%d err=%v, want -1,nil", start, err)
	}
	if start, end, _, err := patFind(h, "abc", "^a", 0); err != nil || start != 0 || end != 1 {
		t.Fatalf("got [%d,%d) err=%v, want [0,1) nil", start, end, err)
	}
}

func TestPatFindDollarAnchor(t *testing.T) {
	h := vm.NewHeap()
	start, end, _, err := patFind(h, "hello", "lo$", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 3 || end != 5 {
		t.Fatalf("got [%d,%d), want [3,5)", start, end)
	}
}

func TestPatFindCaptures(t *testing.T) {
	h := vm.NewHeap()
	_, _, caps, err := patFind(h, "key=value", "(%a+)=(%a+)", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := capStrings(t, h, caps)
	want := []string{"key", "value"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPatFindPositionCapture(t *testing.T) {
	h := vm.NewHeap()
	_, _, caps, err := patFind(h, "hello", "l()lo", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(caps) != 1 {
		t.Fatalf("got %d captures, want 1", len(caps))
	}
	n, ok := caps[0].(vm.Number)
	if !ok {
		t.Fatalf("got %T, want vm.Number", caps[0])
	}
	// "hello": h-e-l-l-o, the second 'l' starts the "lo" suffix: 1-based
	// offset 4 (spec §13 position captures).
	if float64(n) != 4 {
		t.Errorf("got %v, want 4", float64(n))
	}
}

func TestPatFindSetAndRange(t *testing.T) {
	h := vm.NewHeap()
	start, end, _, err := patFind(h, "a1b2c3", "[a-c]%d", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 0 || end != 2 {
		t.Fatalf("got [%d,%d), want [0,2)", start, end)
	}
}

func TestPatFindNegatedSet(t *testing.T) {
	h := vm.NewHeap()
	start, end, _, err := patFind(h, "abc123", "[^%d]+", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 0 || end != 3 {
		t.Fatalf("got [%d,%d), want [0,3)", start, end)
	}
}

func TestPatFindLazyQuantifier(t *testing.T) {
	h := vm.NewHeap()
	_, end, _, err := patFind(h, "<a><b>", "<.->", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end != 3 {
		t.Fatalf("got end %d, want 3 (lazy match stops at first '>')", end)
	}
}

func TestPatFindGreedyQuantifier(t *testing.T) {
	h := vm.NewHeap()
	_, end, _, err := patFind(h, "<a><b>", "<.*>", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end != 6 {
		t.Fatalf("got end %d, want 6 (greedy match runs to the last '>')", end)
	}
}

func TestPatFindOptionalQuantifier(t *testing.T) {
	h := vm.NewHeap()
	if _, end, _, err := patFind(h, "color", "colou?r", 0); err != nil || end != 5 {
		t.Fatalf("got end=%d err=%v, want 5,nil", end, err)
	}
	if _, end, _, err := patFind(h, "colour", "colou?r", 0); err != nil || end != 6 {
		t.Fatalf("got end=%d err=%v, want 6,nil", end, err)
	}
}

func TestPatFindBackreference(t *testing.T) {
	h := vm.NewHeap()
	start, end, _, err := patFind(h, "abcabc xyz", "(abc)%1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 0 || end != 6 {
		t.Fatalf("got [%d,%d), want [0,6)", start, end)
	}
}

func TestPatFindBalancedMatch(t *testing.T) {
	h := vm.NewHeap()
	start, end, _, err := patFind(h, "(foo(bar)baz)qux", "%b()", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 0 || end != 13 {
		t.Fatalf("got [%d,%d), want [0,13)", start, end)
	}
}

func TestPatFindFrontier(t *testing.T) {
	h := vm.NewHeap()
	// %f[%u] matches the frontier into an uppercase run: the boundary right
	// before "World" in "helloWorld".
	start, _, _, err := patFind(h, "helloWorld", "%f[%u]", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 5 {
		t.Fatalf("got start %d, want 5", start)
	}
}

func TestPatFindInitOffset(t *testing.T) {
	h := vm.NewHeap()
	start, _, _, err := patFind(h, "aaa", "a", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 1 {
		t.Fatalf("got start %d, want 1", start)
	}
}

func TestNormInit(t *testing.T) {
	cases := []struct {
		init, length, want int
	}{
		{1, 10, 0},
		{0, 10, 0},
		{-1, 10, 9},
		{-20, 10, 0},
		{11, 10, 10},
	}
	for _, c := range cases {
		got := normInit(c.init, c.length)
		if got != c.want {
			t.Errorf("normInit(%d, %d) = %d, want %d", c.init, c.length, got, c.want)
		}
	}
}

func TestHasPatternSpecials(t *testing.T) {
	if hasPatternSpecials("hello world") {
		t.Errorf("plain text should have no specials")
	}
	if !hasPatternSpecials("hello%d") {
		t.Errorf("%%d should be detected as a special")
	}
	if !hasPatternSpecials("a.b") {
		t.Errorf("'.' should be detected as a special")
	}
}
