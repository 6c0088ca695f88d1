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
	"strconv"
	"strings"

	"github.com/dbrn/glua/vm"
)

// fmtPrintf applies a single printf-style conversion spec (already
// extracted from the format string, including its leading '%') to a single
// argument, reusing Go's verb grammar since Lua's string.format directives
// are a subset of it.
func fmtPrintf(spec string, a any) string {
	return fmt.Sprintf(spec, a)
}

// openString installs the string.* library (spec §13): everything except
// find/match/gmatch/gsub is a direct wrapper around the standard library's
// strings/strconv; those four route through pattern.go's from-scratch Lua
// pattern engine (real Lua patterns are not regular expressions, so Go's
// regexp package is not a substitute — grounded on
// src/lib/stringlib.cpp's pattern-function set, reimplemented for real
// semantics rather than that file's admitted literal-substring shortcut).
// Returns the table so stdlib.Open can wire it in as the shared string
// metatable's __index (spec §8.1 "String metatable").
func openString(in *vm.Instance) *vm.Table {
	h := in.Heap()
	t := newLibTable(in, "string", 16)
	register(h, t, "len", builtinStrLen)
	register(h, t, "sub", builtinStrSub)
	register(h, t, "upper", builtinStrUpper)
	register(h, t, "lower", builtinStrLower)
	register(h, t, "rep", builtinStrRep)
	register(h, t, "reverse", builtinStrReverse)
	register(h, t, "byte", builtinStrByte)
	register(h, t, "char", builtinStrChar)
	register(h, t, "format", builtinStrFormat)
	register(h, t, "find", builtinStrFind)
	register(h, t, "match", builtinStrMatch)
	register(h, t, "gmatch", builtinStrGmatch)
	register(h, t, "gsub", makeStrGsub(in))
	return t
}

// strRange resolves Lua's 1-based, negative-from-end sub/byte range
// convention (spec §13 "string.sub"): i,j default to 1,-1; negative values
// count from the end; the result is clamped into [1, len] (or an empty
// range if i>j after clamping).
func strRange(i, j, length int) (int, int) {
	if i < 0 {
		i = length + i + 1
	}
	if j < 0 {
		j = length + j + 1
	}
	if i < 1 {
		i = 1
	}
	if j > length {
		j = length
	}
	return i, j
}

func builtinStrLen(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "len")
	if err != nil {
		return 0, err
	}
	th.PushResults(vm.Number(len(s)))
	return 1, nil
}

func builtinStrSub(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "sub")
	if err != nil {
		return 0, err
	}
	i, err := optInt(th, 1, "sub", 1)
	if err != nil {
		return 0, err
	}
	j, err := optInt(th, 2, "sub", -1)
	if err != nil {
		return 0, err
	}
	i, j = strRange(i, j, len(s))
	if i > j {
		th.PushResults(th.Heap().NewString(nil))
		return 1, nil
	}
	th.PushResults(th.Heap().NewString([]byte(s[i-1 : j])))
	return 1, nil
}

func builtinStrUpper(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "upper")
	if err != nil {
		return 0, err
	}
	th.PushResults(th.Heap().NewString([]byte(strings.ToUpper(s))))
	return 1, nil
}

func builtinStrLower(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "lower")
	if err != nil {
		return 0, err
	}
	th.PushResults(th.Heap().NewString([]byte(strings.ToLower(s))))
	return 1, nil
}

func builtinStrRep(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "rep")
	if err != nil {
		return 0, err
	}
	n, err := checkInt(th, 1, "rep")
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		th.PushResults(th.Heap().NewString(nil))
		return 1, nil
	}
	th.PushResults(th.Heap().NewString([]byte(strings.Repeat(s, n))))
	return 1, nil
}

func builtinStrReverse(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "reverse")
	if err != nil {
		return 0, err
	}
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	th.PushResults(th.Heap().NewString(b))
	return 1, nil
}

func builtinStrByte(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "byte")
	if err != nil {
		return 0, err
	}
	i, err := optInt(th, 1, "byte", 1)
	if err != nil {
		return 0, err
	}
	j, err := optInt(th, 2, "byte", i)
	if err != nil {
		return 0, err
	}
	i, j = strRange(i, j, len(s))
	if i > j {
		return 0, nil
	}
	res := make([]vm.Value, 0, j-i+1)
	for k := i; k <= j; k++ {
		res = append(res, vm.Number(s[k-1]))
	}
	th.PushResults(res...)
	return len(res), nil
}

func builtinStrChar(th *vm.Thread) (int, error) {
	n := th.NArgs()
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		c, err := checkInt(th, i, "char")
		if err != nil {
			return 0, err
		}
		if c < 0 || c > 255 {
			return 0, argError(th.Heap(), i+1, "char", "value out of range")
		}
		b[i] = byte(c)
	}
	th.PushResults(th.Heap().NewString(b))
	return 1, nil
}

// builtinStrFormat implements the common printf-style directives Lua 5.1
// scripts use: %%, %s (plain rendering, no __tostring), %q, %d/%i/%u, %x/%X/%o, %c, %f/%g/%e
// with optional width/precision/flags, delegated straight to Go's fmt
// verbs since Lua's string.format directive grammar is (by design) a
// subset of C's, which Go's fmt already speaks.
func builtinStrFormat(th *vm.Thread) (int, error) {
	format, err := checkString(th, 0, "format")
	if err != nil {
		return 0, err
	}
	var out strings.Builder
	arg := 1
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("-+ #0", format[j]) >= 0 {
			j++
		}
		for j < len(format) && format[j] >= '0' && format[j] <= '9' {
			j++
		}
		if j < len(format) && format[j] == '.' {
			j++
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
		}
		if j >= len(format) {
			return 0, libError(th.Heap(), "invalid conversion to 'format'")
		}
		verb := format[j]
		spec := format[i : j+1]
		i = j
		if verb == '%' {
			out.WriteByte('%')
			continue
		}
		if arg >= th.NArgs() {
			return 0, argError(th.Heap(), arg+1, "format", "no value")
		}
		a := th.Arg(arg)
		arg++
		switch verb {
		case 'd', 'i', 'u':
			n, ok := vm.ToNumber(a)
			if !ok {
				return 0, typeError(th.Heap(), arg, "format", "number", a)
			}
			out.WriteString(fmtPrintf(spec[:len(spec)-1]+"d", int64(n)))
		case 'x', 'X', 'o':
			n, ok := vm.ToNumber(a)
			if !ok {
				return 0, typeError(th.Heap(), arg, "format", "number", a)
			}
			out.WriteString(fmtPrintf(spec, int64(n)))
		case 'c':
			n, ok := vm.ToNumber(a)
			if !ok {
				return 0, typeError(th.Heap(), arg, "format", "number", a)
			}
			out.WriteByte(byte(n))
		case 'f', 'F', 'g', 'G', 'e', 'E':
			n, ok := vm.ToNumber(a)
			if !ok {
				return 0, typeError(th.Heap(), arg, "format", "number", a)
			}
			out.WriteString(fmtPrintf(spec, float64(n)))
		case 's':
			s, sErr := toDisplayStringArg(th, a)
			if sErr != nil {
				return 0, sErr
			}
			out.WriteString(fmtPrintf(spec, s))
		case 'q':
			s, sErr := toDisplayStringArg(th, a)
			if sErr != nil {
				return 0, sErr
			}
			out.WriteString(strconv.Quote(s))
		default:
			return 0, libError(th.Heap(), "invalid conversion '%%%c' to 'format'", verb)
		}
	}
	th.PushResults(th.Heap().NewString([]byte(out.String())))
	return 1, nil
}

// toDisplayStringArg renders a's plain value for %s/%q (no __tostring
// dispatch: format() has no Instance in scope, and the reference library's
// %s already requires a pre-stringified value for non-string/number types).
func toDisplayStringArg(th *vm.Thread, v vm.Value) (string, error) {
	switch x := v.(type) {
	case *vm.String:
		return string(x.Bytes()), nil
	case vm.Number:
		return x.GoString(), nil
	default:
		return vm.ToGoString(v), nil
	}
}

// normInit resolves Lua's 1-based, negative-from-end "init" convention used
// by find/match/gmatch into a 0-based byte offset clamped into [0, length].
func normInit(init, length int) int {
	if init > 0 {
		init--
	} else if init < 0 {
		init = length + init
		if init < 0 {
			init = 0
		}
	}
	if init > length {
		init = length
	}
	return init
}

// patternSpecials mirrors the reference library's quick check for whether a
// string needs the pattern engine at all, letting find() take the plain
// substring-search fast path (spec §13 "string.find"'s plain flag, and the
// same optimization for patterns without any special character).
const patternSpecials = "^$*+?.([%-"

func hasPatternSpecials(p string) bool {
	return strings.ContainsAny(p, patternSpecials)
}

func builtinStrFind(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "find")
	if err != nil {
		return 0, err
	}
	p, err := checkString(th, 1, "find")
	if err != nil {
		return 0, err
	}
	initArg, err := optInt(th, 2, "find", 1)
	if err != nil {
		return 0, err
	}
	init := normInit(initArg, len(s))
	plain := th.NArgs() > 3 && vm.Truthy(th.Arg(3))
	if plain || !hasPatternSpecials(p) {
		idx := strings.Index(s[init:], p)
		if idx < 0 {
			th.PushResults(vm.Nil)
			return 1, nil
		}
		start := init + idx
		th.PushResults(vm.Number(start+1), vm.Number(start+len(p)))
		return 2, nil
	}
	start, end, caps, mErr := patFind(th.Heap(), s, p, init)
	if mErr != nil {
		return 0, libError(th.Heap(), "%s", mErr.Error())
	}
	if start < 0 {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	res := append([]vm.Value{vm.Number(start + 1), vm.Number(end)}, caps...)
	th.PushResults(res...)
	return len(res), nil
}

func builtinStrMatch(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "match")
	if err != nil {
		return 0, err
	}
	p, err := checkString(th, 1, "match")
	if err != nil {
		return 0, err
	}
	initArg, err := optInt(th, 2, "match", 1)
	if err != nil {
		return 0, err
	}
	init := normInit(initArg, len(s))
	start, end, caps, mErr := patFind(th.Heap(), s, p, init)
	if mErr != nil {
		return 0, libError(th.Heap(), "%s", mErr.Error())
	}
	if start < 0 {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	if len(caps) == 0 {
		th.PushResults(th.Heap().NewString([]byte(s[start:end])))
		return 1, nil
	}
	th.PushResults(caps...)
	return len(caps), nil
}

// builtinStrGmatch returns a host closure that, called repeatedly, yields
// successive matches of p against s (spec §13 "string.gmatch", the
// generic-for iterator idiom: `for w in string.gmatch(s, p) do ... end`).
func builtinStrGmatch(th *vm.Thread) (int, error) {
	s, err := checkString(th, 0, "gmatch")
	if err != nil {
		return 0, err
	}
	p, err := checkString(th, 1, "gmatch")
	if err != nil {
		return 0, err
	}
	h := th.Heap()
	pos := 0
	iter := h.NewHostClosure(func(inner *vm.Thread) (int, error) {
		if pos > len(s) {
			inner.PushResults(vm.Nil)
			return 1, nil
		}
		start, end, caps, mErr := patFind(h, s, p, pos)
		if mErr != nil {
			return 0, libError(h, "%s", mErr.Error())
		}
		if start < 0 {
			pos = len(s) + 1
			inner.PushResults(vm.Nil)
			return 1, nil
		}
		if end == start {
			pos = end + 1
		} else {
			pos = end
		}
		if len(caps) == 0 {
			inner.PushResults(h.NewString([]byte(s[start:end])))
			return 1, nil
		}
		inner.PushResults(caps...)
		return len(caps), nil
	}, "gmatch iterator")
	th.PushResults(iter)
	return 1, nil
}

// makeStrGsub implements string.gsub (spec §13): repl may be a string
// template (%0-%9, %% substitution), a table (keyed by the first capture or
// the whole match) or a function (called with the captures, or the whole
// match if the pattern has none) — resolved through in.CallValue so a
// function repl runs exactly like any other Lua call, including error
// propagation and multiple-return handling.
func makeStrGsub(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		s, err := checkString(th, 0, "gsub")
		if err != nil {
			return 0, err
		}
		p, err := checkString(th, 1, "gsub")
		if err != nil {
			return 0, err
		}
		repl := th.Arg(2)
		switch repl.(type) {
		case *vm.String, vm.Number, *vm.Table, *vm.Closure:
		default:
			return 0, typeError(th.Heap(), 3, "gsub", "string/function/table", repl)
		}
		maxN, err := optInt(th, 3, "gsub", -1)
		if err != nil {
			return 0, err
		}
		h := th.Heap()
		anchor := len(p) > 0 && p[0] == '^'
		pi0 := 0
		if anchor {
			pi0 = 1
		}
		var out strings.Builder
		si, count := 0, 0
		for si <= len(s) {
			if maxN >= 0 && count >= maxN {
				break
			}
			ms := &matchState{src: s, pat: p}
			e, mErr := ms.match(si, pi0)
			if mErr != nil {
				return 0, libError(h, "%s", mErr.Error())
			}
			if e != -1 {
				count++
				whole := s[si:e]
				caps := ms.captureValues(h)
				rep, rErr := gsubReplacement(in, th, repl, whole, caps)
				if rErr != nil {
					return 0, rErr
				}
				out.WriteString(rep)
				if e > si {
					si = e
				} else {
					if si < len(s) {
						out.WriteByte(s[si])
					}
					si++
				}
			} else {
				if si < len(s) {
					out.WriteByte(s[si])
				}
				si++
			}
			if anchor {
				break
			}
		}
		if si < len(s) {
			out.WriteString(s[si:])
		}
		th.PushResults(h.NewString([]byte(out.String())), vm.Number(count))
		return 2, nil
	}
}

// gsubReplacement resolves one match's replacement text against repl's
// three possible shapes.
func gsubReplacement(in *vm.Instance, th *vm.Thread, repl vm.Value, whole string, caps []vm.Value) (string, error) {
	h := th.Heap()
	switch r := repl.(type) {
	case *vm.String:
		return expandGsubTemplate(string(r.Bytes()), whole, caps), nil
	case vm.Number:
		return expandGsubTemplate(r.GoString(), whole, caps), nil
	case *vm.Table:
		var key vm.Value = h.NewString([]byte(whole))
		if len(caps) > 0 {
			key = caps[0]
		}
		return gsubResultToString(th, whole, r.Get(key))
	case *vm.Closure:
		args := caps
		if len(args) == 0 {
			args = []vm.Value{h.NewString([]byte(whole))}
		}
		res, err := in.CallValue(th, r, args...)
		if err != nil {
			return "", err
		}
		var v vm.Value = vm.Nil
		if len(res) > 0 {
			v = res[0]
		}
		return gsubResultToString(th, whole, v)
	default:
		return "", typeError(h, 3, "gsub", "string/function/table", repl)
	}
}

// gsubResultToString applies spec §13's rule for a table/function repl's
// result: false or nil keeps the original matched text, a string or number
// replaces it, anything else is an error.
func gsubResultToString(th *vm.Thread, whole string, v vm.Value) (string, error) {
	switch x := v.(type) {
	case vm.NilValue:
		return whole, nil
	case vm.Boolean:
		if !bool(x) {
			return whole, nil
		}
		return "", typeError(th.Heap(), 3, "gsub", "string", v)
	case *vm.String:
		return string(x.Bytes()), nil
	case vm.Number:
		return x.GoString(), nil
	default:
		return "", typeError(th.Heap(), 3, "gsub", "string", v)
	}
}

func expandGsubTemplate(tmpl, whole string, caps []vm.Value) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 >= len(tmpl) {
			b.WriteByte(c)
			continue
		}
		i++
		n := tmpl[i]
		switch {
		case n == '%':
			b.WriteByte('%')
		case n == '0':
			b.WriteString(whole)
		case n >= '1' && n <= '9':
			idx := int(n - '1')
			if idx < len(caps) {
				b.WriteString(captureToString(caps[idx]))
			} else if idx == 0 {
				b.WriteString(whole)
			}
		default:
			b.WriteByte(n)
		}
	}
	return b.String()
}

func captureToString(v vm.Value) string {
	switch x := v.(type) {
	case *vm.String:
		return string(x.Bytes())
	case vm.Number:
		return x.GoString()
	default:
		return ""
	}
}
