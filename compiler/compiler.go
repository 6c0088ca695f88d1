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

// Package compiler lowers an *ast.Block into a *vm.Proto: register
// allocation, upvalue resolution, constant-pool deduplication and jump
// patching (spec §4.3), grounded on the teacher's label/labelSite
// forward-patch technique (db47h-ngaro/asm/parser.go) generalized to a full
// FuncState stack with both forward (if/and/or/break) and backward
// (while/repeat/for) jump patching.
package compiler

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/dbrn/glua/ast"
	"github.com/dbrn/glua/vm"
)

// maxRegisters is the largest register index a single 8-bit A/B/C operand
// can address minus headroom for metamethod call scratch space (spec §4.3
// "register window").
const maxRegisters = 200

var (
	errFunctionTooComplex = errors.New("function or expression too complex")
	errControlTooLong     = errors.New("control structure too long")
)

// Compile lowers block into a vararg main-chunk Proto (spec §3.2: "the main
// chunk is itself a vararg function with no fixed parameters"). heap is
// needed to intern string constants through the same pool every other Value
// in the running Instance uses.
func Compile(heap *vm.Heap, source string, block *ast.Block) (proto *vm.Proto, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*compileError); ok {
				err = ce.err
				return
			}
			panic(r)
		}
	}()

	fs := newFuncState(nil, heap, source, nil, true)
	fs.compileBlock(block)
	fs.emitABC(vm.OpReturn, 0, 1, 0, 0)
	return fs.finish(), nil
}

// compileError lets deeply nested compile* helpers abort to Compile's
// recover without threading an error return through every call (mirrors
// the teacher's panic-based abort from its own recursive-descent parser).
type compileError struct{ err error }

func (fs *funcState) errorf(pos ast.Position, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	panic(&compileError{errors.Errorf("%s:%d: %s", pos.Source, pos.Line, msg)})
}
