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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dbrn/glua/vm"
)

// openIO installs io.write/io.read against the Instance's configured
// stdout/stdin (spec §13, §6.2 host-configurable streams) — the simple
// "current default file" subset of Lua 5.1's io library, not the full
// file-handle object model (no io.open/file methods: this interpreter has
// no filesystem sandboxing story, so that surface is left out rather than
// implemented unsafely).
func openIO(in *vm.Instance) {
	h := in.Heap()
	t := newLibTable(in, "io", 2)
	reader := bufio.NewReader(in.Stdin())
	register(h, t, "write", makeIOWrite(in))
	register(h, t, "read", makeIORead(in, reader))
}

func makeIOWrite(in *vm.Instance) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		w := in.Stdout()
		for i := 0; i < th.NArgs(); i++ {
			s, ok := concatPiece(th.Arg(i))
			if !ok {
				return 0, typeError(th.Heap(), i+1, "write", "string", th.Arg(i))
			}
			if _, err := fmt.Fprint(w, s); err != nil {
				return 0, libError(th.Heap(), "%s", err.Error())
			}
		}
		return 0, nil
	}
}

func makeIORead(in *vm.Instance, r *bufio.Reader) vm.HostFunction {
	return func(th *vm.Thread) (int, error) {
		format, err := optString(th, 0, "read", "l")
		if err != nil {
			return 0, err
		}
		format = strings.TrimPrefix(format, "*")
		switch format {
		case "l", "L":
			line, err := r.ReadString('\n')
			if err != nil && line == "" {
				if err == io.EOF {
					th.PushResults(vm.Nil)
					return 1, nil
				}
				return 0, libError(th.Heap(), "%s", err.Error())
			}
			if format == "l" {
				line = strings.TrimRight(line, "\n")
				line = strings.TrimRight(line, "\r")
			}
			th.PushResults(th.Heap().NewString([]byte(line)))
			return 1, nil
		case "a":
			data, _ := io.ReadAll(r)
			th.PushResults(th.Heap().NewString(data))
			return 1, nil
		case "n":
			var f float64
			if _, err := fmt.Fscan(r, &f); err != nil {
				th.PushResults(vm.Nil)
				return 1, nil
			}
			th.PushResults(vm.Number(f))
			return 1, nil
		default:
			return 0, argError(th.Heap(), 1, "read", "invalid format")
		}
	}
}
