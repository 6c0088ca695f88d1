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

// UpvalDesc tells the VM where to find the value a Lua closure's Nth
// upvalue captures when the Closure opcode runs (spec §3.2, §4.3).
type UpvalDesc struct {
	IsLocal bool // true: capture enclosing function's local register Index
	Index   uint8
	Name    string // debug info only
}

// Proto is a compile-time function template: bytecode, constants, nested
// function Protos, upvalue descriptors, and debug info (spec §3.2).
type Proto struct {
	Source      string
	LineDefined int

	Code     []Instruction
	Lines    []int32 // parallel to Code
	Constants []Value
	Protos    []*Proto
	Upvalues  []UpvalDesc

	NumParams int
	IsVararg  bool
	MaxStack  int

	// Locals is debug info only (not required for execution): the name of
	// each local register-assigned variable and the [start,end) instruction
	// range over which it is live.
	Locals []LocalVar
}

// LocalVar is debug information about one local variable's live range.
type LocalVar struct {
	Name       string
	StartPC    int
	EndPC      int
	Register   int
}
