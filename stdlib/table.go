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
	"sort"
	"strings"

	"github.com/dbrn/glua/vm"
)

// openTable installs table.insert/.remove/.concat/.sort (spec §13).
func openTable(in *vm.Instance) {
	h := in.Heap()
	t := newLibTable(in, "table", 4)
	register(h, t, "insert", builtinTableInsert)
	register(h, t, "remove", builtinTableRemove)
	register(h, t, "concat", builtinTableConcat)
	register(h, t, "sort", makeTableSort(in))
}

func builtinTableInsert(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "insert")
	if err != nil {
		return 0, err
	}
	n := t.Len()
	switch th.NArgs() {
	case 2:
		t.Set(vm.Number(n+1), th.Arg(1))
	case 3:
		pos, err := checkInt(th, 1, "insert")
		if err != nil {
			return 0, err
		}
		if pos < 1 || pos > n+1 {
			return 0, argError(th.Heap(), 2, "insert", "position out of bounds")
		}
		for i := n + 1; i > pos; i-- {
			t.Set(vm.Number(i), t.Get(vm.Number(i-1)))
		}
		t.Set(vm.Number(pos), th.Arg(2))
	default:
		return 0, libError(th.Heap(), "wrong number of arguments to 'insert'")
	}
	return 0, nil
}

func builtinTableRemove(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "remove")
	if err != nil {
		return 0, err
	}
	n := t.Len()
	pos, err := optInt(th, 1, "remove", n)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		th.PushResults(vm.Nil)
		return 1, nil
	}
	if pos < 1 || pos > n+1 {
		return 0, argError(th.Heap(), 2, "remove", "position out of bounds")
	}
	removed := t.Get(vm.Number(pos))
	for i := pos; i < n; i++ {
		t.Set(vm.Number(i), t.Get(vm.Number(i+1)))
	}
	t.Set(vm.Number(n), vm.Nil)
	th.PushResults(removed)
	return 1, nil
}

func builtinTableConcat(th *vm.Thread) (int, error) {
	t, err := checkTable(th, 0, "concat")
	if err != nil {
		return 0, err
	}
	sep, err := optString(th, 1, "concat", "")
	if err != nil {
		return 0, err
	}
	i, err := optInt(th, 2, "concat", 1)
	if err != nil {
		return 0, err
	}
	j, err := optInt(th, 3, "concat", t.Len())
	if err != nil {
		return 0, err
	}
	var b strings.Builder
	for k := i; k <= j; k++ {
		if k > i {
			b.WriteString(sep)
		}
		v := t.GetInt(k)
		s, ok := concatPiece(v)
		if !ok {
			return 0, libError(th.Heap(), "invalid value (%s) at index %d in table for 'concat'", v.Type(), k)
		}
		b.WriteString(s)
	}
	th.PushResults(th.Heap().NewString([]byte(b.String())))
	return 1, nil
}

func concatPiece(v vm.Value) (string, bool) {
	switch x := v.(type) {
	case *vm.String:
		return string(x.Bytes()), true
	case vm.Number:
		return x.GoString(), true
	default:
		return "", false
	}
}

func makeTableSort(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		t, err := checkTable(th, 0, "sort")
		if err != nil {
			return 0, err
		}
		n := t.Len()
		elems := make([]vm.Value, n)
		for i := range elems {
			elems[i] = t.GetInt(i + 1)
		}

		var cmp vm.Value
		if th.NArgs() >= 2 && th.Arg(1) != vm.Nil {
			cmp, err = checkCallable(th, 1, "sort")
			if err != nil {
				return 0, err
			}
		}

		var sortErr error
		less := func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			if cmp != nil {
				res, callErr := in.CallValue(th, cmp, elems[i], elems[j])
				if callErr != nil {
					sortErr = callErr
					return false
				}
				return len(res) > 0 && vm.Truthy(res[0])
			}
			ok, cmpErr := defaultLess(elems[i], elems[j])
			if cmpErr != nil {
				sortErr = libError(th.Heap(), "%s", cmpErr.Error())
				return false
			}
			return ok
		}
		sort.SliceStable(elems, less)
		if sortErr != nil {
			return 0, sortErr
		}
		for i, v := range elems {
			t.Set(vm.Number(i+1), v)
		}
		return 0, nil
	}
}

// defaultLess implements table.sort's no-comparator default: plain Lua `<`
// restricted to the two operand kinds the reference's fallback handles
// without a VM in hand (numbers, strings) — a table/userdata pair needing
// __lt is rejected with the standard "attempt to compare" message instead
// of silently misordering.
func defaultLess(a, b vm.Value) (bool, error) {
	switch x := a.(type) {
	case vm.Number:
		y, ok := b.(vm.Number)
		if !ok {
			break
		}
		return x < y, nil
	case *vm.String:
		y, ok := b.(*vm.String)
		if !ok {
			break
		}
		return string(x.Bytes()) < string(y.Bytes()), nil
	}
	return false, fmt.Errorf("attempt to compare two %s values", a.Type())
}
