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

// Package stdlib implements the subset of Lua 5.1's standard library this
// interpreter ships (spec §13): base, string, table, math, os, io and
// coroutine. Every function in this package is a vm.HostFunction registered
// into an Instance's global table (or a library sub-table) through the
// stack ABI of vm/thread.go's Arg/NArgs/PushResults — the same mechanism
// any other embedder would use, generalized from db47h-ngaro/lang/retro's
// role as a set of host-side helpers bound to a running VM instance.
package stdlib

import "github.com/dbrn/glua/vm"

// Open installs every library this package implements into in's global
// table: base functions unqualified (print, type, pairs, ...) and the rest
// under their conventional library tables (string, table, math, os, io,
// coroutine), then installs the shared string metatable so `s:method(...)`
// dispatches through the string table exactly like `string.method(s, ...)`.
func Open(in *vm.Instance) {
	openBase(in)
	strLib := openString(in)
	openTable(in)
	openMath(in)
	openOS(in)
	openIO(in)
	openCoroutine(in)

	h := in.Heap()
	mt := h.NewTable(0, 1)
	mt.SetStr(h.NewString([]byte("__index")), strLib)
	h.SetStringMetatable(mt)
}

// register binds fn under name in t: the shared "install a host function"
// primitive every library file uses.
func register(h *vm.Heap, t *vm.Table, name string, fn vm.HostFunction) {
	t.SetStr(h.NewString([]byte(name)), h.NewHostClosure(fn, name))
}

// newLibTable allocates a fresh table, publishes it under name in in's
// globals, and returns it for the caller to register functions into.
func newLibTable(in *vm.Instance, name string, nrec int) *vm.Table {
	h := in.Heap()
	t := h.NewTable(0, nrec)
	h.Globals().SetStr(h.NewString([]byte(name)), t)
	return t
}
