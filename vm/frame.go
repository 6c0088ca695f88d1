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

package vm

// FrameKind distinguishes the three call-frame shapes the VM must track
// (spec §3.3).
type FrameKind int

const (
	FrameLua FrameKind = iota
	FrameHost
	FrameTailcall
)

// CallFrame is one activation record (spec §3.3): the executing Closure,
// its program counter, the stack region it owns ([Base, Top)), how many
// results its caller wants, and which of the three frame kinds it is.
type CallFrame struct {
	Closure  *Closure
	PC       int
	Base     int // register 0 is stack[Base]
	Top      int // one past the highest live register
	NResults int // -1 means "keep all results"
	Kind     FrameKind
	Varargs  []Value // extra arguments past declared params, for vararg Protos

	// resultAbs is the absolute stack index where this call's results
	// should be written once it returns (normally the index the callee
	// function value itself occupied, so results overwrite it in place).
	resultAbs int
}
