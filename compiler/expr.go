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

// isMultiExpr reports whether e can, unparenthesized, yield more than one
// value (spec §4.2 "Multi-value expressions": only a call or `...`
// qualifies; ast.ParenExpr exists precisely to opt back out of this).
func isMultiExpr(e ast.Expr) bool {
	switch e.(type) {
	case *ast.CallExpr, *ast.MethodCallExpr, *ast.VarargExpr:
		return true
	default:
		return false
	}
}

// compileExprNewReg reserves one fresh register, compiles e into it, and
// returns that register.
func (fs *funcState) compileExprNewReg(e ast.Expr) int {
	r := fs.reserve(1)
	fs.compileExprToReg(e, r)
	return r
}

// exprReg returns a register already holding e's value: a local's own
// register if e is a bare reference to one (no copy needed), otherwise a
// freshly compiled temporary.
func (fs *funcState) exprReg(e ast.Expr) int {
	if id, ok := e.(*ast.Identifier); ok {
		if l, ok := fs.resolveLocal(id.Name); ok {
			return l.reg
		}
	}
	return fs.compileExprNewReg(e)
}

// exprToRK compiles e into an RK-encoded operand: a constant-table index
// for a literal number/string (no register spent), or a register otherwise
// (spec §4.3 "RK operand").
func (fs *funcState) exprToRK(e ast.Expr) int {
	switch x := e.(type) {
	case *ast.NumberExpr:
		return vm.RKAsK(fs.numberConst(x.Value))
	case *ast.StringExpr:
		return vm.RKAsK(fs.stringConst(x.Value))
	default:
		return fs.exprReg(e)
	}
}

// compileExprToReg compiles e so its single value ends up in reg. Any
// temporaries used by e's own subexpressions live above reg and are
// reclaimed before returning, so callers never need to track them.
func (fs *funcState) compileExprToReg(e ast.Expr, reg int) {
	fs.compileExprToRegRaw(e, reg)
	fs.freeTo(reg + 1)
}

func (fs *funcState) compileExprToRegRaw(e ast.Expr, reg int) {
	p := pos(e.Pos())
	switch x := e.(type) {
	case *ast.NilExpr:
		fs.emitABC(vm.OpLoadNil, reg, reg, 0, p)
	case *ast.BoolExpr:
		b := 0
		if x.Value {
			b = 1
		}
		fs.emitABC(vm.OpLoadBool, reg, b, 0, p)
	case *ast.NumberExpr:
		fs.emitABx(vm.OpLoadK, reg, fs.numberConst(x.Value), p)
	case *ast.StringExpr:
		fs.emitABx(vm.OpLoadK, reg, fs.stringConst(x.Value), p)
	case *ast.VarargExpr:
		fs.emitABC(vm.OpVararg, reg, 2, 0, p)
	case *ast.Identifier:
		fs.compileIdentTo(x, reg)
	case *ast.ParenExpr:
		fs.compileExprToReg(x.Inner, reg)
	case *ast.IndexExpr:
		obj := fs.exprReg(x.Object)
		key := fs.exprToRK(x.Key)
		fs.emitABC(vm.OpGetTable, reg, obj, key, p)
	case *ast.MemberExpr:
		obj := fs.exprReg(x.Object)
		key := vm.RKAsK(fs.stringConst(x.Name))
		fs.emitABC(vm.OpGetTable, reg, obj, key, p)
	case *ast.UnaryExpr:
		fs.compileUnary(x, reg)
	case *ast.BinaryExpr:
		fs.compileBinary(x, reg)
	case *ast.FunctionExpr:
		fs.compileFunctionExprTo(x, reg)
	case *ast.TableExpr:
		fs.compileTableCtor(x, reg)
	case *ast.CallExpr:
		fs.compileCallExpr(x, reg, 1)
	case *ast.MethodCallExpr:
		fs.compileMethodCallExpr(x, reg, 1)
	default:
		fs.errorf(x.Pos(), "compiler: unsupported expression %T", x)
	}
}

func (fs *funcState) compileIdentTo(id *ast.Identifier, reg int) {
	p := pos(id.Pos())
	if l, ok := fs.resolveLocal(id.Name); ok {
		if l.reg != reg {
			fs.emitABC(vm.OpMove, reg, l.reg, 0, p)
		}
		return
	}
	if idx, ok := fs.resolveUpvalue(id.Name); ok {
		fs.emitABC(vm.OpGetUpval, reg, idx, 0, p)
		return
	}
	fs.emitABx(vm.OpGetGlobal, reg, fs.stringConst(id.Name), p)
}

func (fs *funcState) compileUnary(x *ast.UnaryExpr, reg int) {
	p := pos(x.Pos())
	r := fs.exprReg(x.Operand)
	switch x.Op {
	case "-":
		fs.emitABC(vm.OpUnm, reg, r, 0, p)
	case "not":
		fs.emitABC(vm.OpNot, reg, r, 0, p)
	case "#":
		fs.emitABC(vm.OpLen, reg, r, 0, p)
	default:
		fs.errorf(x.Pos(), "compiler: unknown unary operator %q", x.Op)
	}
}

var arithOps = map[string]vm.OpCode{
	"+": vm.OpAdd, "-": vm.OpSub, "*": vm.OpMul,
	"/": vm.OpDiv, "%": vm.OpMod, "^": vm.OpPow,
}

func (fs *funcState) compileBinary(x *ast.BinaryExpr, reg int) {
	p := pos(x.Pos())
	switch x.Op {
	case "and":
		fs.compileExprToReg(x.Left, reg)
		test := fs.emitABC(vm.OpTest, reg, 0, 0, p) // take jmp (keep a) only when falsy
		_ = test
		j := fs.emitJump(p)
		fs.compileExprToReg(x.Right, reg)
		fs.patchJump(j)
		return
	case "or":
		fs.compileExprToReg(x.Left, reg)
		fs.emitABC(vm.OpTest, reg, 0, 1, p) // take jmp (keep a) only when truthy
		j := fs.emitJump(p)
		fs.compileExprToReg(x.Right, reg)
		fs.patchJump(j)
		return
	case "..":
		l := fs.reserve(1)
		fs.compileExprToReg(x.Left, l)
		r := fs.reserve(1)
		fs.compileExprToReg(x.Right, r)
		fs.emitABC(vm.OpConcat, reg, l, r, p)
		return
	case "==", "~=":
		fs.compileCompare(vm.OpEq, x.Left, x.Right, x.Op == "~=", reg, p)
		return
	case "<":
		fs.compileCompare(vm.OpLt, x.Left, x.Right, false, reg, p)
		return
	case ">":
		fs.compileCompare(vm.OpLt, x.Right, x.Left, false, reg, p)
		return
	case "<=":
		fs.compileCompare(vm.OpLe, x.Left, x.Right, false, reg, p)
		return
	case ">=":
		fs.compileCompare(vm.OpLe, x.Right, x.Left, false, reg, p)
		return
	}
	if op, ok := arithOps[x.Op]; ok {
		a := fs.exprToRK(x.Left)
		b := fs.exprToRK(x.Right)
		fs.emitABC(op, reg, a, b, p)
		return
	}
	fs.errorf(x.Pos(), "compiler: unknown binary operator %q", x.Op)
}

// compileCompare materializes a comparison's boolean result into reg using
// the standard test-jump-loadbool-loadbool pattern (the EQ/LT/LE opcodes
// are conditional-skip instructions meant for control flow, not direct
// value production; spec §4.3 OpEq/OpLt/OpLe, §7 "Boolean-valued
// comparisons"). invert flips which side of the test counts as true,
// giving `~=` the exact same shape as `==`.
func (fs *funcState) compileCompare(op vm.OpCode, left, right ast.Expr, invert bool, reg int, p int32) {
	a := fs.exprToRK(left)
	b := fs.exprToRK(right)
	want := 1
	if invert {
		want = 0
	}
	fs.emitABC(op, want, a, b, p)
	j := fs.emitJump(p)
	fs.emitABC(vm.OpLoadBool, reg, 0, 1, p)
	fs.patchJump(j)
	fs.emitABC(vm.OpLoadBool, reg, 1, 0, p)
}

// compileCondJump compiles e for its truth value only (as in an if/while
// condition) and emits a forward-unresolved jump taken exactly when e's
// truthiness equals jumpIfTrue, returning the jump's pc for patchJump.
func (fs *funcState) compileCondJump(e ast.Expr, jumpIfTrue bool) int {
	p := pos(e.Pos())
	save := fs.freeReg
	reg := fs.compileExprNewReg(e)
	c := 0
	if jumpIfTrue {
		c = 1
	}
	fs.emitABC(vm.OpTest, reg, 0, c, p)
	j := fs.emitJump(p)
	fs.freeTo(save)
	return j
}

// compileExprListToRegs compiles exprs into consecutive registers starting
// at base. If want < 0, the list is open-ended: only the last expression,
// if it is a call or `...`, may expand to however many values it actually
// produces (spec §4.2). Otherwise exactly want values are placed (padding
// with nil, or letting the final call/vararg produce precisely the
// shortfall). Returns the number of values placed, or -1 if open-ended.
func (fs *funcState) compileExprListToRegs(exprs []ast.Expr, base int, want int) int {
	fs.freeReg = base
	if len(exprs) == 0 {
		if want > 0 {
			fs.reserve(want)
			fs.emitABC(vm.OpLoadNil, base, base+want-1, 0, 0)
			return want
		}
		return 0
	}
	for _, e := range exprs[:len(exprs)-1] {
		r := fs.reserve(1)
		fs.compileExprToReg(e, r)
	}
	last := exprs[len(exprs)-1]
	lastBase := fs.freeReg
	n := len(exprs)
	if isMultiExpr(last) {
		lastWant := -1
		if want >= 0 {
			lastWant = want - (n - 1)
			if lastWant < 0 {
				lastWant = 0
			}
		}
		fs.compileExprMulti(last, lastBase, lastWant)
		if lastWant < 0 {
			fs.freeReg = lastBase
			return -1
		}
		fs.freeReg = lastBase + lastWant
		return lastBase + lastWant - base
	}
	fs.reserve(1)
	fs.compileExprToReg(last, lastBase)
	got := n
	if want >= 0 && want > got {
		fs.emitABC(vm.OpLoadNil, lastBase+1, base+want-1, 0, 0)
		got = want
	}
	fs.freeReg = base + got
	return got
}

// compileExprMulti compiles a call/method-call/vararg expression, placing
// its results starting at base: exactly nresults of them, or every value it
// produces if nresults < 0.
func (fs *funcState) compileExprMulti(e ast.Expr, base, nresults int) {
	switch x := e.(type) {
	case *ast.CallExpr:
		fs.compileCallExpr(x, base, nresults)
	case *ast.MethodCallExpr:
		fs.compileMethodCallExpr(x, base, nresults)
	case *ast.VarargExpr:
		b := 0
		if nresults >= 0 {
			b = nresults + 1
		}
		fs.emitABC(vm.OpVararg, base, b, 0, pos(x.Pos()))
		if nresults >= 0 {
			fs.freeReg = base + nresults
		}
	default:
		fs.errorf(e.Pos(), "compiler: expression cannot produce multiple values")
	}
}

func (fs *funcState) compileCallExpr(x *ast.CallExpr, base, nresults int) {
	p := pos(x.Pos())
	fs.freeReg = base
	fs.reserve(1)
	fs.compileExprToReg(x.Func, base)
	fs.freeReg = base + 1
	nargs := fs.compileExprListToRegs(x.Args, base+1, -1)
	b := 0
	if nargs >= 0 {
		b = nargs + 1
	}
	c := 0
	if nresults >= 0 {
		c = nresults + 1
	}
	fs.emitABC(vm.OpCall, base, b, c, p)
	if nresults >= 0 {
		fs.freeReg = base + nresults
	} else {
		fs.freeReg = base
	}
}

// compileMethodCallExpr compiles `obj:m(args)` as SELF (object, once) plus
// CALL over self+args (spec §4.2 "Method-call sugar").
func (fs *funcState) compileMethodCallExpr(x *ast.MethodCallExpr, base, nresults int) {
	p := pos(x.Pos())
	fs.freeReg = base
	objReg := fs.exprReg(x.Object)
	fs.freeReg = base
	fs.reserve(2)
	fs.emitABC(vm.OpSelf, base, objReg, vm.RKAsK(fs.stringConst(x.Method)), p)
	fs.freeReg = base + 2
	nargs := fs.compileExprListToRegs(x.Args, base+2, -1)
	b := 0
	if nargs >= 0 {
		b = nargs + 2
	}
	c := 0
	if nresults >= 0 {
		c = nresults + 1
	}
	fs.emitABC(vm.OpCall, base, b, c, p)
	if nresults >= 0 {
		fs.freeReg = base + nresults
	} else {
		fs.freeReg = base
	}
}

func (fs *funcState) compileTableCtor(x *ast.TableExpr, reg int) {
	p := pos(x.Pos())
	var narr, nrec int
	for _, f := range x.Fields {
		if f.Key == nil {
			narr++
		} else {
			nrec++
		}
	}
	fs.emitABC(vm.OpNewTable, reg, narr, nrec, p)
	save := fs.freeReg
	fs.freeReg = reg + 1
	arrBase := fs.freeReg
	arrCount := 0
	openEnded := false
	for i, f := range x.Fields {
		if f.Key != nil {
			kr := fs.exprToRK(f.Key)
			vr := fs.exprToRK(f.Value)
			fs.emitABC(vm.OpSetTable, reg, kr, vr, p)
			fs.freeReg = arrBase + arrCount
			continue
		}
		isLast := i == len(x.Fields)-1
		if isLast && isMultiExpr(f.Value) {
			fs.compileExprMulti(f.Value, arrBase+arrCount, -1)
			openEnded = true
			break
		}
		r := fs.reserve(1)
		fs.compileExprToReg(f.Value, r)
		arrCount++
	}
	if arrCount > 0 || openEnded {
		b := arrCount
		if openEnded {
			b = 0
		}
		fs.emitABC(vm.OpSetList, reg, b, 1, p)
	}
	fs.freeReg = save
}

// compileFunctionExprTo compiles x as a nested Proto and emits a Closure
// instruction (plus one upvalue-binding pseudo-instruction per captured
// variable, read by vm.makeClosure — spec §4.3 "Closure").
func (fs *funcState) compileFunctionExprTo(x *ast.FunctionExpr, reg int) {
	p := pos(x.Pos())
	child := newFuncState(fs, fs.heap, fs.source, x.Params, x.IsVararg)
	child.proto.LineDefined = x.Pos().Line
	child.compileBlock(x.Body)
	child.emitABC(vm.OpReturn, 0, 1, 0, p)
	proto := child.finish()

	idx := len(fs.proto.Protos)
	fs.proto.Protos = append(fs.proto.Protos, proto)
	fs.emitABx(vm.OpClosure, reg, idx, p)
	for _, uv := range proto.Upvalues {
		if uv.IsLocal {
			fs.emitABC(vm.OpMove, 0, int(uv.Index), 0, p)
		} else {
			fs.emitABC(vm.OpGetUpval, 0, int(uv.Index), 0, p)
		}
	}
}
