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

package vm

// ThreadStatus is a coroutine's lifecycle state (spec §3.2).
type ThreadStatus int

const (
	ThreadReady ThreadStatus = iota
	ThreadRunning
	ThreadSuspended
	ThreadDead
)

func (s ThreadStatus) String() string {
	switch s {
	case ThreadReady:
		return "ready"
	case ThreadRunning:
		return "running"
	case ThreadSuspended:
		return "suspended"
	case ThreadDead:
		return "dead"
	default:
		return "?"
	}
}

// Thread is an independent Lua execution context: its own register stack
// and call-frame chain (spec §3.2, §3.3). Threads cooperate the way Lua
// coroutines do (spec §5): the coroutine library backs each Thread with its
// own goroutine, synchronized so that only one Thread's Go goroutine is
// ever actually running Lua bytecode at a time (see coroutine.go).
type Thread struct {
	gcHeader

	heap   *Heap
	stack  []Value
	frames []CallFrame
	top    int // current stack top (one past the highest live slot)

	openUpvalues map[int]*Upvalue

	status ThreadStatus

	maxCallDepth int

	// coroutine plumbing (see coroutine.go); nil for the main thread.
	resumeCh chan []Value
	yieldCh  chan coroResult
	resumer  *Thread
	fn       *Closure // the function this coroutine was created from
	started  bool
}

const defaultMaxCallDepth = 200

func newThread(h *Heap) *Thread {
	return &Thread{
		heap:         h,
		stack:        make([]Value, 256),
		openUpvalues: make(map[int]*Upvalue),
		status:       ThreadReady,
		maxCallDepth: defaultMaxCallDepth,
	}
}

func (t *Thread) Type() Type       { return TypeThread }
func (t *Thread) GoString() string { return addressTag("thread", t) }
func (t *Thread) Status() ThreadStatus { return t.status }

// Heap returns the Heap t allocates through, so a host function holding
// only a *Thread (its sole argument per the HostFunction signature) can
// still intern strings and build RuntimeErrors (spec §6.2).
func (t *Thread) Heap() *Heap { return t.heap }

func (t *Thread) gcChildren(fn func(Value)) {
	for i := 0; i < t.top; i++ {
		if t.stack[i] != nil {
			fn(t.stack[i])
		}
	}
	for _, fr := range t.frames {
		if fr.Closure != nil {
			fn(fr.Closure)
		}
	}
	for _, uv := range t.openUpvalues {
		v := uv.Get()
		if v != nil {
			fn(v)
		}
	}
	if t.fn != nil {
		fn(t.fn)
	}
}

// ensure grows the stack so that index n is valid, relocating any absolute
// indices open Upvalues hold are safe across growth because they store a
// Thread pointer + index, never a raw slice pointer (spec §5 "Stack
// growth", §9 "Stack reallocation").
func (t *Thread) ensure(n int) {
	if n <= len(t.stack) {
		return
	}
	newCap := len(t.stack) * 2
	if newCap < n {
		newCap = n
	}
	newStack := make([]Value, newCap)
	copy(newStack, t.stack)
	t.stack = newStack
}

// SetTop grows or truncates the thread's stack top, padding newly exposed
// slots with Nil.
func (t *Thread) SetTop(n int) {
	t.ensure(n)
	for i := t.top; i < n; i++ {
		t.stack[i] = Nil
	}
	t.top = n
}

// Top returns the current stack top.
func (t *Thread) Top() int { return t.top }

// Get returns stack[i], or Nil if i is out of range.
func (t *Thread) Get(i int) Value {
	if i < 0 || i >= t.top {
		return Nil
	}
	v := t.stack[i]
	if v == nil {
		return Nil
	}
	return v
}

// Set stores v at stack[i], growing the stack (and top) if necessary.
func (t *Thread) Set(i int, v Value) {
	t.ensure(i + 1)
	t.stack[i] = v
	if i >= t.top {
		t.top = i + 1
	}
}

// Push appends v at the current top.
func (t *Thread) Push(v Value) {
	t.ensure(t.top + 1)
	t.stack[t.top] = v
	t.top++
}

// findOrCreateUpvalue implements the sharing half of spec §3.2's "Upvalue"
// and §8.1's "Upvalue sharing" invariant: closures capturing the same
// source-level local get the identical *Upvalue handle.
func (t *Thread) findOrCreateUpvalue(index int) *Upvalue {
	if uv, ok := t.openUpvalues[index]; ok {
		return uv
	}
	uv := newOpenUpvalue(t, index)
	t.openUpvalues[index] = uv
	return uv
}

// closeUpvalues closes every open upvalue at or above stack index from
// (spec §4.4 "Upvalue lifecycle": scope exit / Close / stack truncation).
func (t *Thread) closeUpvalues(from int) {
	for idx, uv := range t.openUpvalues {
		if idx >= from {
			uv.close()
			delete(t.openUpvalues, idx)
		}
	}
}

// NArgs returns the number of arguments passed to the running host
// function, i.e. the width of the private argument window callHost gave it
// (spec §6.2 "Host functions"). Zero outside of a host call.
func (t *Thread) NArgs() int {
	if len(t.frames) == 0 {
		return 0
	}
	f := &t.frames[len(t.frames)-1]
	return f.Top - f.Base
}

// Arg returns the i'th argument (0-based) passed to the running host
// function, or Nil if i is out of range — mirroring Lua's own
// "missing arguments are nil" convention (spec §4.2 "Function calls").
func (t *Thread) Arg(i int) Value {
	if len(t.frames) == 0 {
		return Nil
	}
	f := &t.frames[len(t.frames)-1]
	if i < 0 || f.Base+i >= f.Top {
		return Nil
	}
	return t.Get(f.Base + i)
}

// PushResults appends vs at the current top, for a host function to return
// them: the caller reads back exactly the values pushed since callHost
// recorded its base (spec §6.2).
func (t *Thread) PushResults(vs ...Value) {
	for _, v := range vs {
		t.Push(v)
	}
}

// CallerPosition returns the source position of the level'th Lua activation
// below the currently running host call (level 1 is the function that
// directly invoked it), the same frame-walk runtimeError does internally,
// exported so error()'s level-prefixing (spec §7) can reuse it from the
// stdlib package.
func (t *Thread) CallerPosition(level int) (Position, bool) {
	idx := len(t.frames) - 1 - level
	if idx < 0 || idx >= len(t.frames) {
		return Position{}, false
	}
	f := &t.frames[idx]
	if f.Closure == nil || f.Closure.Proto == nil {
		return Position{}, false
	}
	p := Position{Source: f.Closure.Proto.Source}
	if f.PC < len(f.Closure.Proto.Lines) {
		p.Line = int(f.Closure.Proto.Lines[f.PC])
	}
	return p, true
}
