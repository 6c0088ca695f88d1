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

import "github.com/pkg/errors"

// Coroutines are cooperative (spec §5): only one Thread's goroutine ever
// runs Lua bytecode at a time. Each non-main Thread gets its own goroutine,
// parked on resumeCh until Resume hands it arguments; the goroutine parks
// the resumer on yieldCh when the coroutine body calls Yield or returns.
// This trades a little goroutine-per-coroutine overhead for code that reads
// like ordinary synchronous function calls, instead of hand-written
// stack-switching assembly.

// coroResult is what a coroutine goroutine sends back across yieldCh: either
// a yield (ok, not done), a normal return (ok, done), or an error (!ok).
type coroResult struct {
	values []Value
	done   bool
	err    error
}

var errCannotResumeNonSuspended = errors.New("cannot resume non-suspended coroutine")
var errYieldAcrossHostCall = errors.New("attempt to yield across a C-call boundary")

// NewCoroutine creates a new Thread sharing heap's Heap, wrapping fn as the
// coroutine's body (spec §3.2 Thread, §5 "coroutine.create").
func NewCoroutine(heap *Heap, fn *Closure) *Thread {
	t := heap.NewThread()
	t.fn = fn
	t.resumeCh = make(chan []Value)
	t.yieldCh = make(chan coroResult)
	return t
}

// Resume transfers control to t, passing args as the results of the
// suspend point (or as call arguments, on the first resume). It blocks
// until t yields, returns, or errors (spec §5 "coroutine.resume").
//
// exec is the caller-supplied function that actually runs Lua bytecode on
// t from its current call-frame state (vm/run.go's dispatch loop); it is
// invoked on t's own goroutine the first time Resume is called.
func (t *Thread) Resume(by *Thread, args []Value, exec func(t *Thread, args []Value) ([]Value, error)) ([]Value, error) {
	if t.status != ThreadReady && t.status != ThreadSuspended {
		return nil, errors.WithStack(errCannotResumeNonSuspended)
	}

	t.resumer = by
	t.status = ThreadRunning
	if by != nil {
		by.status = ThreadRunning
	}

	if !t.started {
		t.started = true
		go func() {
			values, err := exec(t, args)
			t.status = ThreadDead
			t.yieldCh <- coroResult{values: values, done: true, err: err}
		}()
	} else {
		t.resumeCh <- args
	}

	res := <-t.yieldCh
	if res.done {
		t.status = ThreadDead
	} else {
		t.status = ThreadSuspended
	}
	if by != nil {
		by.status = ThreadRunning
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.values, nil
}

// Yield suspends t, handing values back to whoever last Resumed it, and
// blocks until the next Resume supplies fresh arguments (spec §5
// "coroutine.yield"). Must only be called from t's own goroutine.
func (t *Thread) Yield(values []Value) []Value {
	t.yieldCh <- coroResult{values: values, done: false}
	return <-t.resumeCh
}

// IsMain reports whether t has no coroutine plumbing, i.e. is an Instance's
// top-level thread rather than one created by coroutine.create.
func (t *Thread) IsMain() bool { return t.resumeCh == nil }
