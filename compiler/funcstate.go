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

package compiler

import (
	"github.com/dbrn/glua/ast"
	"github.com/dbrn/glua/vm"
)

// local is one in-scope local variable: its name and the register it's
// bound to. captured is set once some nested function resolves it as an
// upvalue, which tells the enclosing block it must emit OpClose (not just
// drop the register) when the local goes out of scope (spec §4.3
// "Upvalue resolution" step 5).
type local struct {
	name     string
	reg      int
	captured bool
}

// blockScope is one lexical block (spec §4.3): it remembers where its
// locals start so compileBlock can pop them on exit, whether it is a loop
// (so break knows where to jump to), and the pending break-jump patch list.
type blockScope struct {
	parent     *blockScope
	firstLocal int
	isLoop     bool
	breakJumps []int
}

// funcState is the compiler's per-function (per-Proto) state: one FuncState
// exists per nested `function ... end`, chained to its lexically enclosing
// FuncState so upvalue resolution can walk outward (spec §4.3).
type funcState struct {
	parent *funcState
	heap   *vm.Heap
	source string

	proto *vm.Proto

	locals  []local
	block   *blockScope
	freeReg int
	maxReg  int

	numberK map[float64]int
	stringK map[string]int

	isVararg bool
}

func newFuncState(parent *funcState, heap *vm.Heap, source string, params []string, isVararg bool) *funcState {
	fs := &funcState{
		parent:  parent,
		heap:    heap,
		source:  source,
		numberK: make(map[float64]int),
		stringK: make(map[string]int),
		proto: &vm.Proto{
			Source:    source,
			NumParams: len(params),
			IsVararg:  isVararg,
		},
		isVararg: isVararg,
	}
	fs.block = &blockScope{}
	for _, p := range params {
		fs.addLocal(p)
	}
	return fs
}

func (fs *funcState) finish() *vm.Proto {
	fs.proto.MaxStack = fs.maxReg + 2 // +2: metamethod/OP_CALL scratch headroom
	if fs.proto.MaxStack < 2 {
		fs.proto.MaxStack = 2
	}
	return fs.proto
}

// ---- register allocation ----

// reserve claims n consecutive fresh registers and returns the first.
func (fs *funcState) reserve(n int) int {
	r := fs.freeReg
	fs.freeReg += n
	if fs.freeReg > fs.maxReg {
		fs.maxReg = fs.freeReg
	}
	if fs.freeReg > maxRegisters {
		panic(&compileError{errFunctionTooComplex})
	}
	return r
}

// freeTo releases every register from r up to (but not including) the
// current locals' top, restoring fs.freeReg to r. Only valid when r is at
// or above every in-scope local's register (temporaries are always
// allocated above locals).
func (fs *funcState) freeTo(r int) {
	if r < fs.freeReg {
		fs.freeReg = r
	}
}

// ---- constants ----

func (fs *funcState) numberConst(v float64) int {
	if i, ok := fs.numberK[v]; ok {
		return i
	}
	i := len(fs.proto.Constants)
	fs.proto.Constants = append(fs.proto.Constants, vm.Number(v))
	fs.numberK[v] = i
	return i
}

func (fs *funcState) stringConst(s string) int {
	if i, ok := fs.stringK[s]; ok {
		return i
	}
	i := len(fs.proto.Constants)
	fs.proto.Constants = append(fs.proto.Constants, fs.heap.NewString([]byte(s)))
	fs.stringK[s] = i
	return i
}

// ---- locals ----

func (fs *funcState) addLocal(name string) int {
	reg := fs.reserve(1)
	fs.locals = append(fs.locals, local{name: name, reg: reg})
	return reg
}

// resolveLocal finds name among the currently visible locals of fs only
// (innermost declaration wins), without crossing into enclosing functions.
func (fs *funcState) resolveLocal(name string) (*local, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return &fs.locals[i], true
		}
	}
	return nil, false
}

// resolveUpvalue resolves name as an upvalue of fs, recursing into fs.parent
// as needed and registering a UpvalDesc chain at every level along the way
// (spec §4.3 "Upvalue resolution" 5-step algorithm: local in parent, mark
// captured and reference it directly; else upvalue in parent, chain through
// it; else not found).
func (fs *funcState) resolveUpvalue(name string) (int, bool) {
	if fs.parent == nil {
		return 0, false
	}
	if i, ok := fs.findUpvalue(name); ok {
		return i, true
	}
	if l, ok := fs.parent.resolveLocal(name); ok {
		l.captured = true
		return fs.addUpvalue(name, true, l.reg), true
	}
	if idx, ok := fs.parent.resolveUpvalue(name); ok {
		return fs.addUpvalue(name, false, idx), true
	}
	return 0, false
}

func (fs *funcState) findUpvalue(name string) (int, bool) {
	for i, uv := range fs.proto.Upvalues {
		if uv.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (fs *funcState) addUpvalue(name string, isLocal bool, index int) int {
	fs.proto.Upvalues = append(fs.proto.Upvalues, vm.UpvalDesc{
		IsLocal: isLocal,
		Index:   uint8(index),
		Name:    name,
	})
	return len(fs.proto.Upvalues) - 1
}

// ---- scopes ----

func (fs *funcState) enterBlock(isLoop bool) *blockScope {
	b := &blockScope{parent: fs.block, firstLocal: len(fs.locals), isLoop: isLoop}
	fs.block = b
	return b
}

// closeBlockLocals emits OpClose for b's locals if any were captured by a
// nested closure (spec §4.4 "Close"), without popping them from scope yet —
// split out from leaveBlock so repeat-until can close before its
// until-condition runs (which must still see the body's locals) while
// while/do/if close only after their body is fully done.
func (fs *funcState) closeBlockLocals(b *blockScope, line int32) {
	needsClose := false
	closeFrom := 0
	for i := b.firstLocal; i < len(fs.locals); i++ {
		if fs.locals[i].captured {
			if !needsClose || fs.locals[i].reg < closeFrom {
				closeFrom = fs.locals[i].reg
			}
			needsClose = true
		}
	}
	if needsClose {
		fs.emitABC(vm.OpClose, closeFrom, 0, 0, line)
	}
}

// popBlockLocals drops b's locals from scope and rewinds the register
// allocator, without emitting OpClose (see closeBlockLocals).
func (fs *funcState) popBlockLocals(b *blockScope) {
	if b.firstLocal < len(fs.locals) {
		fs.freeReg = fs.locals[b.firstLocal].reg
	}
	fs.locals = fs.locals[:b.firstLocal]
	fs.block = b.parent
}

// leaveBlock pops every local declared since the matching enterBlock,
// emitting OpClose first if any of them were captured by a nested closure
// (spec §4.4 "Close").
func (fs *funcState) leaveBlock(line int32) {
	b := fs.block
	fs.closeBlockLocals(b, line)
	fs.popBlockLocals(b)
}

func (fs *funcState) enclosingLoop() *blockScope {
	for b := fs.block; b != nil; b = b.parent {
		if b.isLoop {
			return b
		}
	}
	return nil
}

// ---- code emission ----

func (fs *funcState) emitABC(op vm.OpCode, a, b, c int, line int32) int {
	return fs.emit(vm.NewABC(op, a, b, c), line)
}

func (fs *funcState) emitABx(op vm.OpCode, a, bx int, line int32) int {
	return fs.emit(vm.NewABx(op, a, bx), line)
}

func (fs *funcState) emitASBx(op vm.OpCode, a, sbx int, line int32) int {
	return fs.emit(vm.NewASBx(op, a, sbx), line)
}

func (fs *funcState) emit(ins vm.Instruction, line int32) int {
	fs.proto.Code = append(fs.proto.Code, ins)
	fs.proto.Lines = append(fs.proto.Lines, line)
	return len(fs.proto.Code) - 1
}

func (fs *funcState) pc() int { return len(fs.proto.Code) }

// emitJump emits a forward-unresolved OpJmp and returns its index for a
// later patchJump call (spec §4.3 "jump-patch-list technique").
func (fs *funcState) emitJump(line int32) int {
	return fs.emitASBx(vm.OpJmp, 0, 0, line)
}

// patchJump backpatches the OpJmp at jumpPC to land at the current pc.
func (fs *funcState) patchJump(jumpPC int) {
	fs.patchJumpTo(jumpPC, fs.pc())
}

func (fs *funcState) patchJumpTo(jumpPC, target int) {
	offset := target - (jumpPC + 1)
	if offset > vm.MaxArgSBx || offset < -vm.MaxArgSBx-1 {
		panic(&compileError{errControlTooLong})
	}
	ins := fs.proto.Code[jumpPC]
	fs.proto.Code[jumpPC] = vm.NewASBx(ins.OpCode(), ins.A(), offset)
}

// pos converts an ast.Position's line into the int32 the Proto's parallel
// Lines slice uses.
func pos(p ast.Position) int32 { return int32(p.Line) }
