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

// Package vm implements the Lua 5.1.5 value model, heap, and register-based
// bytecode virtual machine.
//
// An Instance owns a heap and a main Thread; additional Threads are created
// by the coroutine library and cooperate the way Lua coroutines do: only one
// Thread runs at a time, and control only changes hands at an explicit
// yield/resume boundary (see coroutine.go).
//
// The instruction set, register allocation conventions and RK operand
// encoding mirror the reference Lua 5.1 implementation closely enough that a
// Proto compiled by package compiler executes with observably identical
// semantics, but nothing here depends on binary compatibility with the
// reference bytecode loader.
package vm
