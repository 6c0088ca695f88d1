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
	"fmt"

	"github.com/dbrn/glua/vm"
)

// libError builds a RuntimeError carrying a plain string message, the way a
// host (C) function raising an error in the reference implementation does
// not get a "<source>:<line>:" prefix attached (only Lua-level error() calls
// with level>0 do, and that is the compiler/VM's job, not a library's).
func libError(h *vm.Heap, format string, args ...any) error {
	return &vm.RuntimeError{Value: h.NewString([]byte(fmt.Sprintf(format, args...)))}
}

// argError reports a bad-argument error in the standard
// "bad argument #n to 'fname' (msg)" shape (spec §7).
func argError(h *vm.Heap, n int, fname, msg string) error {
	return libError(h, "bad argument #%d to '%s' (%s)", n, fname, msg)
}

func typeError(h *vm.Heap, n int, fname, want string, got vm.Value) error {
	return argError(h, n, fname, fmt.Sprintf("%s expected, got %s", want, got.Type()))
}
