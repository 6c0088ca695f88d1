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
	"math"
	"math/rand"

	"github.com/dbrn/glua/vm"
)

// openMath installs the math.* library (spec §13), each entry a thin
// wrapper around the standard library's math package — there is no pack
// library offering float64 transcendental functions, so this part is
// justifiably stdlib-only.
func openMath(in *vm.Instance) {
	h := in.Heap()
	t := newLibTable(in, "math", 24)
	t.SetStr(h.NewString([]byte("pi")), vm.Number(math.Pi))
	t.SetStr(h.NewString([]byte("huge")), vm.Number(math.Inf(1)))

	unary := map[string]func(float64) float64{
		"sqrt": math.Sqrt, "sin": math.Sin, "cos": math.Cos, "tan": math.Tan,
		"asin": math.Asin, "acos": math.Acos, "atan": math.Atan,
		"exp": math.Exp, "log10": math.Log10, "rad": radians, "deg": degrees,
		"ceil": math.Ceil, "floor": math.Floor,
	}
	for name, fn := range unary {
		fn := fn
		register(h, t, name, func(th *vm.Thread) (int, error) {
			x, err := checkNumber(th, 0, name)
			if err != nil {
				return 0, err
			}
			th.PushResults(vm.Number(fn(float64(x))))
			return 1, nil
		})
	}

	register(h, t, "abs", func(th *vm.Thread) (int, error) {
		x, err := checkNumber(th, 0, "abs")
		if err != nil {
			return 0, err
		}
		th.PushResults(vm.Number(math.Abs(float64(x))))
		return 1, nil
	})
	register(h, t, "log", func(th *vm.Thread) (int, error) {
		x, err := checkNumber(th, 0, "log")
		if err != nil {
			return 0, err
		}
		th.PushResults(vm.Number(math.Log(float64(x))))
		return 1, nil
	})
	register(h, t, "pow", func(th *vm.Thread) (int, error) {
		x, err := checkNumber(th, 0, "pow")
		if err != nil {
			return 0, err
		}
		y, err := checkNumber(th, 1, "pow")
		if err != nil {
			return 0, err
		}
		th.PushResults(vm.Number(math.Pow(float64(x), float64(y))))
		return 1, nil
	})
	register(h, t, "atan2", func(th *vm.Thread) (int, error) {
		x, err := checkNumber(th, 0, "atan2")
		if err != nil {
			return 0, err
		}
		y, err := checkNumber(th, 1, "atan2")
		if err != nil {
			return 0, err
		}
		th.PushResults(vm.Number(math.Atan2(float64(x), float64(y))))
		return 1, nil
	})
	register(h, t, "fmod", func(th *vm.Thread) (int, error) {
		x, err := checkNumber(th, 0, "fmod")
		if err != nil {
			return 0, err
		}
		y, err := checkNumber(th, 1, "fmod")
		if err != nil {
			return 0, err
		}
		th.PushResults(vm.Number(math.Mod(float64(x), float64(y))))
		return 1, nil
	})
	register(h, t, "modf", func(th *vm.Thread) (int, error) {
		x, err := checkNumber(th, 0, "modf")
		if err != nil {
			return 0, err
		}
		ip, fp := math.Modf(float64(x))
		th.PushResults(vm.Number(ip), vm.Number(fp))
		return 2, nil
	})
	register(h, t, "max", func(th *vm.Thread) (int, error) {
		return mathExtreme(th, "max", func(a, b float64) bool { return b > a })
	})
	register(h, t, "min", func(th *vm.Thread) (int, error) {
		return mathExtreme(th, "min", func(a, b float64) bool { return b < a })
	})
	register(h, t, "random", builtinRandom)
	register(h, t, "randomseed", func(th *vm.Thread) (int, error) {
		seed, err := checkNumber(th, 0, "randomseed")
		if err != nil {
			return 0, err
		}
		rand.Seed(int64(seed))
		return 0, nil
	})
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func mathExtreme(th *vm.Thread, name string, better func(cur, cand float64) bool) (int, error) {
	n := th.NArgs()
	if n == 0 {
		return 0, argError(th.Heap(), 1, name, "value expected")
	}
	best, err := checkNumber(th, 0, name)
	if err != nil {
		return 0, err
	}
	for i := 1; i < n; i++ {
		v, err := checkNumber(th, i, name)
		if err != nil {
			return 0, err
		}
		if better(float64(best), float64(v)) {
			best = v
		}
	}
	th.PushResults(best)
	return 1, nil
}

func builtinRandom(th *vm.Thread) (int, error) {
	switch th.NArgs() {
	case 0:
		th.PushResults(vm.Number(rand.Float64()))
	case 1:
		m, err := checkInt(th, 0, "random")
		if err != nil {
			return 0, err
		}
		if m < 1 {
			return 0, argError(th.Heap(), 1, "random", "interval is empty")
		}
		th.PushResults(vm.Number(1 + rand.Intn(m)))
	default:
		lo, err := checkInt(th, 0, "random")
		if err != nil {
			return 0, err
		}
		hi, err := checkInt(th, 1, "random")
		if err != nil {
			return 0, err
		}
		if lo > hi {
			return 0, argError(th.Heap(), 2, "random", "interval is empty")
		}
		th.PushResults(vm.Number(lo + rand.Intn(hi-lo+1)))
	}
	return 1, nil
}
