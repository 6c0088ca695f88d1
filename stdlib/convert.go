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

// checkString coerces argument n (0-based) to a string the way the
// reference luaL_checkstring does: strings pass through, numbers are
// stringified, anything else is a type error.
func checkString(th *vm.Thread, n int, fname string) (string, error) {
	v := th.Arg(n)
	switch x := v.(type) {
	case *vm.String:
		return string(x.Bytes()), nil
	case vm.Number:
		return x.GoString(), nil
	default:
		return "", typeError(th.Heap(), n+1, fname, "string", v)
	}
}

// optString is checkString, but missing/nil argument n returns def.
func optString(th *vm.Thread, n int, fname, def string) (string, error) {
	if n >= th.NArgs() || th.Arg(n) == vm.Nil {
		return def, nil
	}
	return checkString(th, n, fname)
}

// checkNumber coerces argument n to a number (spec §3.1's numeric coercion
// rule: numeric strings convert).
func checkNumber(th *vm.Thread, n int, fname string) (vm.Number, error) {
	v := th.Arg(n)
	if num, ok := vm.ToNumber(v); ok {
		return num, nil
	}
	return 0, typeError(th.Heap(), n+1, fname, "number", v)
}

func optNumber(th *vm.Thread, n int, fname string, def vm.Number) (vm.Number, error) {
	if n >= th.NArgs() || th.Arg(n) == vm.Nil {
		return def, nil
	}
	return checkNumber(th, n, fname)
}

func checkInt(th *vm.Thread, n int, fname string) (int, error) {
	num, err := checkNumber(th, n, fname)
	if err != nil {
		return 0, err
	}
	return int(num), nil
}

func optInt(th *vm.Thread, n int, fname string, def int) (int, error) {
	if n >= th.NArgs() || th.Arg(n) == vm.Nil {
		return def, nil
	}
	return checkInt(th, n, fname)
}

func checkTable(th *vm.Thread, n int, fname string) (*vm.Table, error) {
	v := th.Arg(n)
	t, ok := v.(*vm.Table)
	if !ok {
		return nil, typeError(th.Heap(), n+1, fname, "table", v)
	}
	return t, nil
}

// checkCallable returns v itself if it is a function or a table; every other
// value (userdata included) is rejected up front with the standard message.
// A table is passed on without checking for __call, so calling a table that
// has none fails later in vm.Instance.CallValue with a VM-level runtime error.
func checkCallable(th *vm.Thread, n int, fname string) (vm.Value, error) {
	v := th.Arg(n)
	switch v.(type) {
	case *vm.Closure:
		return v, nil
	case *vm.Table:
		return v, nil
	default:
		return nil, typeError(th.Heap(), n+1, fname, "function", v)
	}
}
