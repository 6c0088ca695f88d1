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
	"os"
	"time"

	"github.com/dbrn/glua/vm"
)

var processStart = time.Now()

// openOS installs a small, host-safe slice of os.* (spec §13): time/clock
// for scripts that measure or format wall-clock time, getenv/exit for
// scripting glue. Filesystem and process-spawning entry points
// (os.remove/rename/execute/tmpname) are deliberately left unimplemented —
// scope the spec's "narrow contract" excludes, same as the file-handle side
// of io.* below.
func openOS(in *vm.Instance) {
	h := in.Heap()
	t := newLibTable(in, "os", 8)
	register(h, t, "time", func(th *vm.Thread) (int, error) {
		th.PushResults(vm.Number(time.Now().Unix()))
		return 1, nil
	})
	register(h, t, "clock", func(th *vm.Thread) (int, error) {
		th.PushResults(vm.Number(time.Since(processStart).Seconds()))
		return 1, nil
	})
	register(h, t, "difftime", func(th *vm.Thread) (int, error) {
		t2, err := checkNumber(th, 0, "difftime")
		if err != nil {
			return 0, err
		}
		t1, err := checkNumber(th, 1, "difftime")
		if err != nil {
			return 0, err
		}
		th.PushResults(vm.Number(float64(t2) - float64(t1)))
		return 1, nil
	})
	register(h, t, "date", builtinOSDate)
	register(h, t, "getenv", func(th *vm.Thread) (int, error) {
		name, err := checkString(th, 0, "getenv")
		if err != nil {
			return 0, err
		}
		v, ok := os.LookupEnv(name)
		if !ok {
			th.PushResults(vm.Nil)
			return 1, nil
		}
		th.PushResults(th.Heap().NewString([]byte(v)))
		return 1, nil
	})
	register(h, t, "exit", func(th *vm.Thread) (int, error) {
		code, err := optInt(th, 0, "exit", 0)
		if err != nil {
			return 0, err
		}
		os.Exit(code)
		return 0, nil
	})
}

// builtinOSDate implements the common cases of os.date's strftime-like
// format string (spec §13): "*t" for a table breakdown, otherwise a
// Go-time-layout translation of the handful of directives Lua scripts
// typically use. Full strftime is out of scope.
func builtinOSDate(th *vm.Thread) (int, error) {
	format, err := optString(th, 0, "date", "%c")
	if err != nil {
		return 0, err
	}
	when := time.Now()
	if th.NArgs() >= 2 && th.Arg(1) != vm.Nil {
		sec, err := checkNumber(th, 1, "date")
		if err != nil {
			return 0, err
		}
		when = time.Unix(int64(sec), 0)
	}
	utc := false
	if len(format) > 0 && format[0] == '!' {
		utc = true
		format = format[1:]
	}
	if utc {
		when = when.UTC()
	}
	if format == "*t" || format == "!*t" {
		h := th.Heap()
		tbl := h.NewTable(0, 8)
		tbl.SetStr(h.NewString([]byte("year")), vm.Number(when.Year()))
		tbl.SetStr(h.NewString([]byte("month")), vm.Number(int(when.Month())))
		tbl.SetStr(h.NewString([]byte("day")), vm.Number(when.Day()))
		tbl.SetStr(h.NewString([]byte("hour")), vm.Number(when.Hour()))
		tbl.SetStr(h.NewString([]byte("min")), vm.Number(when.Minute()))
		tbl.SetStr(h.NewString([]byte("sec")), vm.Number(when.Second()))
		tbl.SetStr(h.NewString([]byte("wday")), vm.Number(int(when.Weekday())+1))
		tbl.SetStr(h.NewString([]byte("yday")), vm.Number(when.YearDay()))
		tbl.SetStr(h.NewString([]byte("isdst")), vm.Boolean(false))
		th.PushResults(tbl)
		return 1, nil
	}
	th.PushResults(th.Heap().NewString([]byte(strftime(format, when))))
	return 1, nil
}

// strftime translates the small subset of C strftime directives Lua 5.1
// scripts use in practice into Go's reference-time layout.
func strftime(format string, t time.Time) string {
	replacer := map[byte]string{
		'Y': "2006", 'y': "06", 'm': "01", 'd': "02",
		'H': "15", 'M': "04", 'S': "05", 'p': "PM",
		'A': "Monday", 'a': "Mon", 'B': "January", 'b': "Jan",
		'c': "Mon Jan  2 15:04:05 2006", 'x': "01/02/06", 'X': "15:04:05",
	}
	var out []byte
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			if layout, ok := replacer[format[i+1]]; ok {
				out = append(out, t.Format(layout)...)
				i++
				continue
			}
			if format[i+1] == '%' {
				out = append(out, '%')
				i++
				continue
			}
		}
		out = append(out, format[i])
	}
	return string(out)
}
