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

// Package vm implements the register-based bytecode virtual machine that
// executes compiled Lua 5.1 programs (spec §3, §4). An Instance owns a Heap
// of GC-managed objects and a main Thread; additional Threads are created by
// the coroutine library (spec §5) and cooperate with the main Thread rather
// than running concurrently with it — only one Thread's Go goroutine is ever
// actually executing Lua bytecode at a time.
//
// The instruction set and RK-operand encoding follow the reference
// implementation closely enough to be a faithful semantic port (spec §4.3),
// but this package defines its own Instruction word layout rather than
// reading or writing the reference's binary chunk format (spec §10
// Non-goals).
package vm

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Option configures an Instance at construction time, mirroring the
// teacher's functional-options constructor (db47h-ngaro/vm.Option).
type Option func(*Instance) error

// Stdout sets the Writer the print/io stdlib routes standard output to.
func Stdout(w io.Writer) Option {
	return func(in *Instance) error { in.stdout = w; return nil }
}

// Stderr sets the Writer the stdlib routes standard error to.
func Stderr(w io.Writer) Option {
	return func(in *Instance) error { in.stderr = w; return nil }
}

// Stdin sets the Reader the io stdlib reads standard input from.
func Stdin(r io.Reader) Option {
	return func(in *Instance) error { in.stdin = r; return nil }
}

// MaxCallDepth overrides the default recursion limit (spec §7 "stack
// overflow") applied to every Thread created by this Instance, including
// the main Thread.
func MaxCallDepth(n int) Option {
	return func(in *Instance) error {
		if n <= 0 {
			return errors.New("vm: MaxCallDepth must be positive")
		}
		in.maxCallDepth = n
		return nil
	}
}

// GCPause sets the Collector's pause percentage (spec §4.5): the heap may
// grow to pause/100 times its live size before the next collection.
func GCPause(percent int64) Option {
	return func(in *Instance) error {
		if percent < 100 {
			return errors.New("vm: GCPause must be >= 100")
		}
		in.heap.gc.pause = percent
		return nil
	}
}

// Instance is one independent Lua runtime: a Heap of GC-managed objects
// shared by every Thread it creates, plus a main Thread that runs the
// top-level chunk (spec §3.2 "State", §5).
type Instance struct {
	heap *Heap
	main *Thread

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	maxCallDepth int
}

// New creates an Instance with its globals, registry and main Thread ready,
// applying opts in order (spec §3.2). Construction never fails unless an
// Option itself rejects its argument.
func New(opts ...Option) (*Instance, error) {
	in := &Instance{
		heap:         NewHeap(),
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		stdin:        os.Stdin,
		maxCallDepth: defaultMaxCallDepth,
	}
	in.main = in.heap.NewThread()
	in.main.maxCallDepth = in.maxCallDepth
	in.main.status = ThreadRunning

	for _, opt := range opts {
		if err := opt(in); err != nil {
			return nil, errors.Wrap(err, "vm.New")
		}
	}
	in.main.maxCallDepth = in.maxCallDepth
	return in, nil
}

// Heap returns the Instance's shared object allocator.
func (in *Instance) Heap() *Heap { return in.heap }

// MainThread returns the Instance's top-level Thread.
func (in *Instance) MainThread() *Thread { return in.main }

// Globals returns the global table (spec §6.1's GetGlobal/SetGlobal root).
func (in *Instance) Globals() *Table { return in.heap.Globals() }

// Stdout, Stderr and Stdin expose the configured I/O streams to the stdlib
// packages building on top of vm (spec §13 io/os library).
func (in *Instance) Stdout() io.Writer { return in.stdout }
func (in *Instance) Stderr() io.Writer { return in.stderr }
func (in *Instance) Stdin() io.Reader  { return in.stdin }

// NewCoroutine creates a coroutine Thread running fn, sharing this
// Instance's Heap (spec §5 "coroutine.create").
func (in *Instance) NewCoroutine(fn *Closure) *Thread {
	t := NewCoroutine(in.heap, fn)
	t.maxCallDepth = in.maxCallDepth
	return t
}

// Call invokes fn on the main Thread with args, running to completion
// (spec §3.3 "Call"). It is the entry point cmd/glua and the host-interface
// pcall/xpcall implementations use to start executing compiled chunks.
func (in *Instance) Call(fn *Closure, args ...Value) ([]Value, error) {
	return in.CallOn(in.main, fn, args...)
}

// CallOn invokes fn on a specific Thread (the main Thread or a coroutine),
// running its dispatch loop to completion or until an uncaught error
// propagates out.
func (in *Instance) CallOn(th *Thread, fn *Closure, args ...Value) ([]Value, error) {
	return in.execute(th, fn, args)
}

// ResumeCoroutine resumes the coroutine Thread co (created by NewCoroutine)
// on behalf of by, running co's body to its first yield, a return, or an
// error (spec §5 "coroutine.resume"). This is the thin piece of Thread's
// exported Resume that only the owning Instance can provide: the exec
// callback Resume needs on first start has to run co.fn through this
// Instance's own dispatch loop, and fn is an unexported Thread field on
// purpose (coroutine library authors shouldn't poke at it directly).
func (in *Instance) ResumeCoroutine(by, co *Thread, args ...Value) ([]Value, error) {
	return co.Resume(by, args, func(t *Thread, args []Value) ([]Value, error) {
		return in.execute(t, t.fn, args)
	})
}

// CallValue invokes any callable Value on th — a Closure directly, or
// anything else via its __call metamethod (spec §8.1) — the general form
// Call/CallOn's Closure-only signature doesn't cover. The stdlib (pcall,
// table.sort comparators, string.gsub replacement functions, pairs/ipairs'
// iterator protocol) needs this generality; Call/CallOn stay Closure-typed
// because that is all cmd/glua's chunk-loading entry point ever calls.
func (in *Instance) CallValue(th *Thread, v Value, args ...Value) ([]Value, error) {
	return in.callValues(th, v, args, -1)
}
