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

// openBase installs the unqualified base-library functions (spec §13) into
// in's global table.
func openBase(in *vm.Instance) {
	h := in.Heap()
	g := in.Globals()

	// next and the ipairs iterator are shared closures: pairs/ipairs return
	// the very same *vm.Closure every time rather than allocating a fresh
	// one per call, matching the reference implementation's behavior of
	// `pairs == next` plumbing for raw tables.
	nextClosure := h.NewHostClosure(builtinNext, "next")
	g.SetStr(h.NewString([]byte("next")), nextClosure)
	ipairsAux := h.NewHostClosure(builtinIpairsAux, "ipairs_aux")

	register(h, g, "print", makePrint(in))
	register(h, g, "type", builtinType)
	register(h, g, "tostring", makeToString(in))
	register(h, g, "tonumber", builtinToNumber)
	register(h, g, "rawget", builtinRawGet)
	register(h, g, "rawset", builtinRawSet)
	register(h, g, "rawequal", builtinRawEqual)
	register(h, g, "rawlen", builtinRawLen)
	register(h, g, "setmetatable", builtinSetMetatable)
	register(h, g, "getmetatable", builtinGetMetatable)
	register(h, g, "assert", builtinAssert)
	register(h, g, "error", builtinError)
	register(h, g, "select", builtinSelect)
	register(h, g, "unpack", builtinUnpack)
	register(h, g, "pcall", makePcall(in))
	register(h, g, "xpcall", makeXpcall(in))
	register(h, g, "pairs", func(th *vm.Thread) (int, error) {
		t, err := checkTable(th, 0, "pairs")
		if err != nil {
			return 0, err
		}
		th.PushResults(nextClosure, t, vm.Nil)
		return 3, nil
	})
	register(h, g, "ipairs", func(th *vm.Thread) (int, error) {
		t, err := checkTable(th, 0, "ipairs")
		if err != nil {
			return 0, err
		}
		th.PushResults(ipairsAux, t, vm.Number(0))
		return 3, nil
	})
	g.SetStr(h.NewString([]byte("_G")), g)
	g.SetStr(h.NewString([]byte("_VERSION")), h.NewString([]byte("Lua 5.1")))
}

func builtinType(th *vm.Thread) (int, error) {
	th.PushResults(th.Heap().NewString([]byte(th.Arg(0).Type().String())))
	return 1, nil
}

// toDisplayString implements tostring()'s full rule (spec §8.1): honor a
// __tostring metamethod on tables/userdata before falling back to
// vm.ToGoString's plain rendering.
func toDisplayString(in *vm.Instance, th *vm.Thread, v vm.Value) (string, error) {
	var mt *vm.Table
	switch x := v.(type) {
	case *vm.Table:
		mt = x.Metatable()
	case *vm.Userdata:
		mt = x.Metatable()
	}
	if mt != nil {
		mm := mt.GetStr(th.Heap().NewString([]byte("__tostring")))
		if mm != vm.Nil {
			res, err := in.CallValue(th, mm, v)
			if err != nil {
				return "", err
			}
			if len(res) == 0 {
				return "", nil
			}
			s, ok := res[0].(*vm.String)
			if !ok {
				return "", libError(th.Heap(), "'__tostring' must return a string")
			}
			return string(s.Bytes()), nil
		}
	}
	return vm.ToGoString(v), nil
}

func makeToString(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		s, err := toDisplayString(in, th, th.Arg(0))
		if err != nil {
			return 0, err
		}
		th.PushResults(th.Heap().NewString([]byte(s)))
		return 1, nil
	}
}

func makePrint(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		w := in.Stdout()
		for i := 0; i < th.NArgs(); i++ {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			s, err := toDisplayString(in, th, th.Arg(i))
			if err != nil {
				return 0, err
			}
			fmt.Fprint(w, s)
		}
		fmt.Fprintln(w)
		return 0, nil
	}
}

func builtinToNumber(th *vm.Thread) (int, error) {
	if th.NArgs() >= 2 && th.Arg(1) != vm.Nil {
		base, err := checkInt(th, 1, "tonumber")
		if err != nil {
			return 0, err
		}
		s, err := checkString(th, 0, "tonumber")
		if err != nil {
			return 0, err
		}
		n, ok := parseIntBase(s, base)
		if !ok {
			th.PushResults(vm.Nil)
			return 1, nil
		}
		th.PushResults(vm.Number(n))
		return 1, nil
	}
	n, ok := vm.ToNumber(th.Arg(0))
	if !ok {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	th.PushResults(n)
	return 1, nil
}

func builtinRawGet(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "rawget")
	if err != nil {
		return 0, err
	}
	th.PushResults(t.Get(th.Arg(1)))
	return 1, nil
}

func builtinRawSet(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "rawset")
	if err != nil {
		return 0, err
	}
	key := th.Arg(1)
	if key == vm.Nil {
		return 0, libError(th.Heap(), "table index is nil")
	}
	t.Set(key, th.Arg(2))
	th.PushResults(t)
	return 1, nil
}

func builtinRawEqual(th *vm.Thread) (int, error) {
	th.PushResults(vm.Boolean(vm.RawEquals(th.Arg(0), th.Arg(1))))
	return 1, nil
}

func builtinRawLen(th *vm.Thread) (int, error) {
	switch v := th.Arg(0).(type) {
	case *vm.Table:
		th.PushResults(vm.Number(v.Len()))
	case *vm.String:
		th.PushResults(vm.Number(v.Len()))
	default:
		return 0, argError(th.Heap(), 1, "rawlen", "table or string expected")
	}
	return 1, nil
}

const metatableGuardKey = "__metatable"

func builtinSetMetatable(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "setmetatable")
	if err != nil {
		return 0, err
	}
	if cur := t.Metatable(); cur != nil {
		if g := cur.GetStr(th.Heap().NewString([]byte(metatableGuardKey))); g != vm.Nil {
			return 0, libError(th.Heap(), "cannot change a protected metatable")
		}
	}
	switch mt := th.Arg(1).(type) {
	case vm.NilValue:
		t.SetMetatable(nil)
	case *vm.Table:
		t.SetMetatable(mt)
	default:
		return 0, argError(th.Heap(), 2, "setmetatable", "nil or table expected")
	}
	th.PushResults(t)
	return 1, nil
}

func builtinGetMetatable(th *vm.Thread) (int, error) {
	var mt *vm.Table
	switch v := th.Arg(0).(type) {
	case *vm.Table:
		mt = v.Metatable()
	case *vm.Userdata:
		mt = v.Metatable()
	case *vm.String:
		mt = th.Heap().StringMetatable()
	}
	if mt == nil {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	if g := mt.GetStr(th.Heap().NewString([]byte(metatableGuardKey))); g != vm.Nil {
		th.PushResults(g)
		return 1, nil
	}
	th.PushResults(mt)
	return 1, nil
}

func builtinAssert(th *vm.Thread) (int, error) {
	if vm.Truthy(th.Arg(0)) {
		n := th.NArgs()
		res := make([]vm.Value, n)
		for i := 0; i < n; i++ {
			res[i] = th.Arg(i)
		}
		th.PushResults(res...)
		return n, nil
	}
	if th.NArgs() >= 2 {
		return 0, &vm.RuntimeError{Value: th.Arg(1)}
	}
	return 0, libError(th.Heap(), "assertion failed!")
}

func builtinError(th *vm.Thread) (int, error) {
	msg := th.Arg(0)
	level, err := optInt(th, 1, "error", 1)
	if err != nil {
		return 0, err
	}
	s, ok := msg.(*vm.String)
	if ok && level > 0 {
		if pos, have := th.CallerPosition(level); have {
			msg = th.Heap().NewString([]byte(pos.String() + ": " + string(s.Bytes())))
		}
	}
	return 0, &vm.RuntimeError{Value: msg}
}

func builtinSelect(th *vm.Thread) (int, error) {
	if s, ok := th.Arg(0).(*vm.String); ok && string(s.Bytes()) == "#" {
		th.PushResults(vm.Number(th.NArgs() - 1))
		return 1, nil
	}
	n, err := checkInt(th, 0, "select")
	if err != nil {
		return 0, err
	}
	nargs := th.NArgs()
	if n < 0 {
		n = nargs + n
	}
	if n < 1 {
		return 0, argError(th.Heap(), 1, "select", "index out of range")
	}
	var res []vm.Value
	for i := n; i < nargs; i++ {
		res = append(res, th.Arg(i))
	}
	th.PushResults(res...)
	return len(res), nil
}

func builtinUnpack(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "unpack")
	if err != nil {
		return 0, err
	}
	i, err := optInt(th, 1, "unpack", 1)
	if err != nil {
		return 0, err
	}
	j, err := optInt(th, 2, "unpack", t.Len())
	if err != nil {
		return 0, err
	}
	if i > j {
		return 0, nil
	}
	res := make([]vm.Value, 0, j-i+1)
	for k := i; k <= j; k++ {
		res = append(res, t.GetInt(k))
	}
	th.PushResults(res...)
	return len(res), nil
}

func makePcall(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		f, err := checkCallable(th, 0, "pcall")
		if err != nil {
			return 0, err
		}
		args := make([]vm.Value, th.NArgs()-1)
		for i := range args {
			args[i] = th.Arg(i + 1)
		}
		res, callErr := in.CallValue(th, f, args...)
		if callErr != nil {
			th.PushResults(vm.Boolean(false), errorValue(th, callErr))
			return 2, nil
		}
		out := append([]vm.Value{vm.Boolean(true)}, res...)
		th.PushResults(out...)
		return len(out), nil
	}
}

func makeXpcall(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		f, err := checkCallable(th, 0, "xpcall")
		if err != nil {
			return 0, err
		}
		handler, err := checkCallable(th, 1, "xpcall")
		if err != nil {
			return 0, err
		}
		args := make([]vm.Value, th.NArgs()-2)
		for i := range args {
			args[i] = th.Arg(i + 2)
		}
		res, callErr := in.CallValue(th, f, args...)
		if callErr != nil {
			hres, hErr := in.CallValue(th, handler, errorValue(th, callErr))
			if hErr != nil {
				th.PushResults(vm.Boolean(false), errorValue(th, hErr))
				return 2, nil
			}
			out := append([]vm.Value{vm.Boolean(false)}, hres...)
			th.PushResults(out...)
			return len(out), nil
		}
		out := append([]vm.Value{vm.Boolean(true)}, res...)
		th.PushResults(out...)
		return len(out), nil
	}
}

// errorValue extracts the Lua-level error Value a failed CallValue carries:
// a *vm.RuntimeError wraps the Value that was actually raised (any type,
// spec §7); any other Go error (e.g. a host panic we didn't author) is
// stringified instead of losing its message.
func errorValue(th *vm.Thread, err error) vm.Value {
	if re, ok := err.(*vm.RuntimeError); ok {
		return re.Value
	}
	return th.Heap().NewString([]byte(err.Error()))
}

func builtinNext(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "next")
	if err != nil {
		return 0, err
	}
	key := th.Arg(1)
	nk, nv, ok, nextErr := t.Next(key)
	if nextErr != nil {
		return 0, libError(th.Heap(), "%s", nextErr.Error())
	}
	if !ok {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	th.PushResults(nk, nv)
	return 2, nil
}

func builtinIpairsAux(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "ipairs")
	if err != nil {
		return 0, err
	}
	i, err := checkInt(th, 1, "ipairs")
	if err != nil {
		return 0, err
	}
	i++
	v := t.GetInt(i)
	if v == vm.Nil {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	th.PushResults(vm.Number(i), v)
	return 2, nil
}

// parseIntBase parses s as an integer in the given base (2..36), the way
// tonumber(s, base) works (spec §13): only defined for explicit bases,
// unlike vm.ParseNumber's base-10/0x grammar.
func parseIntBase(s string, base int) (float64, bool) {
	if base < 2 || base > 36 || s == "" {
		return 0, false
	}
	neg := false
	i := 0
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		i++
	}
	if i >= len(s) {
		return 0, false
	}
	var n float64
	for ; i < len(s); i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'z':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'Z':
			d = int(c-'A') + 10
		default:
			return 0, false
		}
		if d >= base {
			return 0, false
		}
		n = n*float64(base) + float64(d)
	}
	if neg {
		n = -n
	}
	return n, true
}
