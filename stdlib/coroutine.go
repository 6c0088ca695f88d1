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

import "github.com/dbrn/glua/vm"

// openCoroutine installs coroutine.create/.resume/.yield/.status/.wrap
// (spec §13, §5), thin wrappers over vm.Thread's Resume/Yield (vm/coroutine.go).
func openCoroutine(in *vm.Instance) {
	h := in.Heap()
	t := newLibTable(in, "coroutine", 6)
	register(h, t, "create", makeCoroutineCreate(in))
	register(h, t, "resume", makeCoroutineResume(in))
	register(h, t, "yield", builtinCoroutineYield)
	register(h, t, "status", builtinCoroutineStatus)
	register(h, t, "wrap", makeCoroutineWrap(in))
	register(h, t, "running", builtinCoroutineRunning)
}

func checkCoroutineFn(th *vm.Thread, n int, fname string) (*vm.Closure, error) {
	c, ok := th.Arg(n).(*vm.Closure)
	if !ok {
		return nil, typeError(th.Heap(), n+1, fname, "function", th.Arg(n))
	}
	return c, nil
}

func checkThread(th *vm.Thread, n int, fname string) (*vm.Thread, error) {
	co, ok := th.Arg(n).(*vm.Thread)
	if !ok {
		return nil, typeError(th.Heap(), n+1, fname, "coroutine", th.Arg(n))
	}
	return co, nil
}

func makeCoroutineCreate(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		fn, err := checkCoroutineFn(th, 0, "create")
		if err != nil {
			return 0, err
		}
		th.PushResults(in.NewCoroutine(fn))
		return 1, nil
	}
}

func collectArgsFrom(th *vm.Thread, from int) []vm.Value {
	n := th.NArgs()
	if from >= n {
		return nil
	}
	args := make([]vm.Value, n-from)
	for i := range args {
		args[i] = th.Arg(from + i)
	}
	return args
}

func makeCoroutineResume(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		co, err := checkThread(th, 0, "resume")
		if err != nil {
			return 0, err
		}
		args := collectArgsFrom(th, 1)
		res, resErr := in.ResumeCoroutine(th, co, args...)
		if resErr != nil {
			th.PushResults(vm.Boolean(false), errorValue(th, resErr))
			return 2, nil
		}
		out := append([]vm.Value{vm.Boolean(true)}, res...)
		th.PushResults(out...)
		return len(out), nil
	}
}

func builtinCoroutineYield(th *vm.Thread) (int, error) {
	if th.IsMain() {
		return 0, libError(th.Heap(), "attempt to yield from outside a coroutine")
	}
	res := th.Yield(collectArgsFrom(th, 0))
	th.PushResults(res...)
	return len(res), nil
}

func builtinCoroutineStatus(th *vm.Thread) (int, error) {
	co, err := checkThread(th, 0, "status")
	if err != nil {
		return 0, err
	}
	var s string
	switch co.Status() {
	case vm.ThreadReady, vm.ThreadSuspended:
		s = "suspended"
	case vm.ThreadRunning:
		s = "running"
	default:
		s = "dead"
	}
	th.PushResults(th.Heap().NewString([]byte(s)))
	return 1, nil
}

func builtinCoroutineRunning(th *vm.Thread) (int, error) {
	if th.IsMain() {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	th.PushResults(th)
	return 1, nil
}

func makeCoroutineWrap(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		fn, err := checkCoroutineFn(th, 0, "wrap")
		if err != nil {
			return 0, err
		}
		co := in.NewCoroutine(fn)
		wrapped := th.Heap().NewHostClosure(func(inner *vm.Thread) (int, error) {
			args := collectArgsFrom(inner, 0)
			res, resErr := in.ResumeCoroutine(inner, co, args...)
			if resErr != nil {
				return 0, resErr
			}
			inner.PushResults(res...)
			return len(res), nil
		}, "wrapped coroutine")
		th.PushResults(wrapped)
		return 1, nil
	}
}
