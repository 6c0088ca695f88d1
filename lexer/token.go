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

// Package lexer translates Lua 5.1 source bytes into a token stream with
// one-token lookahead (spec §4.1), grounded on the teacher's hand-rolled
// scanner-plus-bounded-error-list idiom (db47h-ngaro/asm's parser.go,
// generalized from text/scanner tokens to Lua's own grammar since Go's
// text/scanner does not know Lua's long-bracket strings or `..`/`...`).
package lexer

// Kind identifies a token's lexical category.
type Kind int

const (
	EndOfSource Kind = iota
	Name
	Number
	String

	// keywords
	KwAnd
	KwBreak
	KwDo
	KwElse
	KwElseif
	KwEnd
	KwFalse
	KwFor
	KwFunction
	KwIf
	KwIn
	KwLocal
	KwNil
	KwNot
	KwOr
	KwRepeat
	KwReturn
	KwThen
	KwTrue
	KwUntil
	KwWhile

	// symbols
	Plus
	Minus
	Star
	Slash
	Percent
	Caret
	Hash
	Lt
	Gt
	Assign
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Colon
	Comma
	Dot

	Eq
	Ne
	Le
	Ge
	Concat
	Ellipsis
)

var keywords = map[string]Kind{
	"and": KwAnd, "break": KwBreak, "do": KwDo, "else": KwElse,
	"elseif": KwElseif, "end": KwEnd, "false": KwFalse, "for": KwFor,
	"function": KwFunction, "if": KwIf, "in": KwIn, "local": KwLocal,
	"nil": KwNil, "not": KwNot, "or": KwOr, "repeat": KwRepeat,
	"return": KwReturn, "then": KwThen, "true": KwTrue, "until": KwUntil,
	"while": KwWhile,
}

var kindNames = map[Kind]string{
	EndOfSource: "<eof>", Name: "<name>", Number: "<number>", String: "<string>",
	KwAnd: "and", KwBreak: "break", KwDo: "do", KwElse: "else",
	KwElseif: "elseif", KwEnd: "end", KwFalse: "false", KwFor: "for",
	KwFunction: "function", KwIf: "if", KwIn: "in", KwLocal: "local",
	KwNil: "nil", KwNot: "not", KwOr: "or", KwRepeat: "repeat",
	KwReturn: "return", KwThen: "then", KwTrue: "true", KwUntil: "until",
	KwWhile: "while",
	Plus:     "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Caret: "^",
	Hash: "#", Lt: "<", Gt: ">", Assign: "=", LParen: "(", RParen: ")",
	LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]", Semi: ";",
	Colon: ":", Comma: ",", Dot: ".",
	Eq: "==", Ne: "~=", Le: "<=", Ge: ">=", Concat: "..", Ellipsis: "...",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "<unknown>"
}

// Position is a source location (spec §4.1 "Positional queries").
type Position struct {
	Source string
	Line   int
	Column int
	Offset int
}

// Token is one lexical unit: a Kind, its source Position, and — for Name,
// Number and String tokens — a payload (spec §4.1).
type Token struct {
	Kind   Kind
	Pos    Position
	Str    string  // Name's identifier text, or String's decoded contents
	Number float64 // Number's value
}
