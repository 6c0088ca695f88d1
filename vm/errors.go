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

import (
	"fmt"

	"github.com/pkg/errors"
)

var errInvalidKey = errors.New("invalid key to 'next'")

// Position is a source location, shared by the lexer, parser, compiler and
// VM (runtime errors carry one per spec §7's "<source>:<line>: <message>"
// format).
type Position struct {
	Source string
	Line   int
}

func (p Position) String() string {
	if p.Source == "" {
		return fmt.Sprintf("?:%d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.Source, p.Line)
}

// RuntimeError wraps a Lua error Value (spec §7: "any Value is legal") with
// the Go error interface so it can flow through panic/recover and pcall.
// VM-detected errors have Value be a *String formatted
// "<source>:<line>: <message>"; errors raised by error() may carry any
// Value.
type RuntimeError struct {
	Value     Value
	Traceback []Position
}

func (e *RuntimeError) Error() string {
	return ToGoString(e.Value)
}

// NewRuntimeError builds a RuntimeError from a formatted message, prefixed
// with the standard "<source>:<line>: " tag (spec §7).
func NewRuntimeError(heap *Heap, pos Position, format string, args ...any) *RuntimeError {
	msg := pos.String() + ": " + fmt.Sprintf(format, args...)
	return &RuntimeError{Value: heap.NewString([]byte(msg))}
}
