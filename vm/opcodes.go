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

// OpCode identifies a bytecode instruction (spec §4.3's instruction table).
// Grounded on the teacher's opcode-table-plus-name-index idiom
// (db47h-ngaro/vm/opcodes.go), generalized from Ngaro's 31 single-cell
// opcodes to Lua's 32-bit-word register machine.
type OpCode uint8

const (
	OpMove OpCode = iota
	OpLoadK
	OpLoadBool
	OpLoadNil
	OpGetUpval
	OpSetUpval
	OpGetGlobal
	OpSetGlobal
	OpGetTable
	OpSetTable
	OpNewTable
	OpSelf
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpUnm
	OpNot
	OpLen
	OpConcat
	OpJmp
	OpEq
	OpLt
	OpLe
	OpTest
	OpTestSet
	OpCall
	OpTailCall
	OpReturn
	OpForPrep
	OpForLoop
	OpTForCall
	OpTForLoop
	OpSetList
	OpClose
	OpClosure
	OpVararg
	opCodeCount
)

var opNames = [...]string{
	OpMove:      "MOVE",
	OpLoadK:     "LOADK",
	OpLoadBool:  "LOADBOOL",
	OpLoadNil:   "LOADNIL",
	OpGetUpval:  "GETUPVAL",
	OpSetUpval:  "SETUPVAL",
	OpGetGlobal: "GETGLOBAL",
	OpSetGlobal: "SETGLOBAL",
	OpGetTable:  "GETTABLE",
	OpSetTable:  "SETTABLE",
	OpNewTable:  "NEWTABLE",
	OpSelf:      "SELF",
	OpAdd:       "ADD",
	OpSub:       "SUB",
	OpMul:       "MUL",
	OpDiv:       "DIV",
	OpMod:       "MOD",
	OpPow:       "POW",
	OpUnm:       "UNM",
	OpNot:       "NOT",
	OpLen:       "LEN",
	OpConcat:    "CONCAT",
	OpJmp:       "JMP",
	OpEq:        "EQ",
	OpLt:        "LT",
	OpLe:        "LE",
	OpTest:      "TEST",
	OpTestSet:   "TESTSET",
	OpCall:      "CALL",
	OpTailCall:  "TAILCALL",
	OpReturn:    "RETURN",
	OpForPrep:   "FORPREP",
	OpForLoop:   "FORLOOP",
	OpTForCall:  "TFORCALL",
	OpTForLoop:  "TFORLOOP",
	OpSetList:   "SETLIST",
	OpClose:     "CLOSE",
	OpClosure:   "CLOSURE",
	OpVararg:    "VARARG",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "???"
}

// Instruction is a fixed 32-bit bytecode word (spec §4.3's instruction
// format): 6 bits opcode, 8 bits A, then either {9 bits B, 9 bits C} or an
// 18-bit Bx/sBx depending on the opcode's layout.
type Instruction uint32

const (
	sizeOp = 6
	sizeA  = 8
	sizeB  = 9
	sizeC  = 9
	sizeBx = sizeB + sizeC

	posOp = 0
	posA  = posOp + sizeOp
	posC  = posA + sizeA
	posB  = posC + sizeC
	posBx = posC

	maxArgBx  = 1<<sizeBx - 1
	maxArgSBx = maxArgBx >> 1

	// RKMask: if the high bit of a B/C operand is set, it addresses the
	// constant table instead of a register (spec §4.3 "RK operand").
	RKMask = 1 << (sizeB - 1)
)

func mask1(n, p uint) uint32 { return ((1 << n) - 1) << p }

func getArg(i Instruction, pos, size uint) uint32 {
	return (uint32(i) >> pos) & ((1 << size) - 1)
}

func setArg(i *Instruction, v uint32, pos, size uint) {
	*i = Instruction((uint32(*i) &^ mask1(size, pos)) | ((v & ((1 << size) - 1)) << pos))
}

func (i Instruction) OpCode() OpCode { return OpCode(getArg(i, posOp, sizeOp)) }
func (i Instruction) A() int         { return int(getArg(i, posA, sizeA)) }
func (i Instruction) B() int         { return int(getArg(i, posB, sizeB)) }
func (i Instruction) C() int         { return int(getArg(i, posC, sizeC)) }
func (i Instruction) Bx() int        { return int(getArg(i, posBx, sizeBx)) }
func (i Instruction) SBx() int       { return int(getArg(i, posBx, sizeBx)) - maxArgSBx }

// IsK reports whether a raw B/C operand addresses the constant table.
func IsK(v int) bool { return v&RKMask != 0 }

// KIndex extracts the constant-table index from a raw RK B/C operand.
func KIndex(v int) int { return v &^ RKMask }

// RKAsK encodes constant index k as an RK operand.
func RKAsK(k int) int { return k | RKMask }

func newABC(op OpCode, a, b, c int) Instruction {
	var i Instruction
	setArg(&i, uint32(op), posOp, sizeOp)
	setArg(&i, uint32(a), posA, sizeA)
	setArg(&i, uint32(b), posB, sizeB)
	setArg(&i, uint32(c), posC, sizeC)
	return i
}

func newABx(op OpCode, a, bx int) Instruction {
	var i Instruction
	setArg(&i, uint32(op), posOp, sizeOp)
	setArg(&i, uint32(a), posA, sizeA)
	setArg(&i, uint32(bx), posBx, sizeBx)
	return i
}

func newASBx(op OpCode, a, sbx int) Instruction {
	return newABx(op, a, sbx+maxArgSBx)
}

// NewABC, NewABx and NewASBx are exported constructors used by package
// compiler to emit instructions without reaching into unexported bit
// layout helpers.
func NewABC(op OpCode, a, b, c int) Instruction  { return newABC(op, a, b, c) }
func NewABx(op OpCode, a, bx int) Instruction    { return newABx(op, a, bx) }
func NewASBx(op OpCode, a, sbx int) Instruction  { return newASBx(op, a, sbx) }

// MaxArgSBx is the largest signed displacement a single jump/loop
// instruction can encode; the compiler reports "control structure too long"
// (spec §7) if a patch would overflow this.
const MaxArgSBx = maxArgSBx
