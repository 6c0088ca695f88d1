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

func (fs *funcState) compileBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		fs.compileStmt(s)
	}
}

func (fs *funcState) compileStmt(s ast.Stmt) {
	switch x := s.(type) {
	case *ast.LocalStmt:
		fs.compileLocal(x)
	case *ast.LocalFunctionStmt:
		reg := fs.addLocal(x.Name)
		fs.compileFunctionExprTo(x.Func, reg)
	case *ast.AssignStmt:
		fs.compileAssign(x)
	case *ast.FunctionStmt:
		fs.compileFunctionStmt(x)
	case *ast.ExprStmt:
		fs.compileExprStmt(x)
	case *ast.DoStmt:
		p := pos(x.Pos())
		fs.enterBlock(false)
		fs.compileBlock(x.Body)
		fs.leaveBlock(p)
	case *ast.IfStmt:
		fs.compileIf(x)
	case *ast.WhileStmt:
		fs.compileWhile(x)
	case *ast.RepeatStmt:
		fs.compileRepeat(x)
	case *ast.NumericForStmt:
		fs.compileNumericFor(x)
	case *ast.GenericForStmt:
		fs.compileGenericFor(x)
	case *ast.BreakStmt:
		loop := fs.enclosingLoop()
		if loop == nil {
			fs.errorf(x.Pos(), "break outside a loop")
		}
		j := fs.emitJump(pos(x.Pos()))
		loop.breakJumps = append(loop.breakJumps, j)
	case *ast.ReturnStmt:
		fs.compileReturn(x)
	default:
		fs.errorf(s.Pos(), "compiler: unsupported statement %T", x)
	}
}

// compileLocal evaluates the RHS before declaring any of the new names, so
// `local x = x` reads the outer x (spec §4.2 "local" scoping rule).
func (fs *funcState) compileLocal(x *ast.LocalStmt) {
	base := fs.freeReg
	fs.compileExprListToRegs(x.Exprs, base, len(x.Names))
	for i, name := range x.Names {
		fs.locals = append(fs.locals, local{name: name, reg: base + i})
	}
	fs.freeReg = base + len(x.Names)
}

func (fs *funcState) compileAssign(x *ast.AssignStmt) {
	p := pos(x.Pos())
	base := fs.freeReg
	fs.compileExprListToRegs(x.RHS, base, len(x.LHS))
	for i, target := range x.LHS {
		fs.assignTo(target, base+i, p)
	}
	fs.freeReg = base
}

func (fs *funcState) compileFunctionStmt(x *ast.FunctionStmt) {
	p := pos(x.Pos())
	reg := fs.reserve(1)
	fs.compileFunctionExprTo(x.Func, reg)
	fs.assignTo(x.Target, reg, p)
	fs.freeReg = reg
}

func (fs *funcState) compileExprStmt(x *ast.ExprStmt) {
	base := fs.freeReg
	switch c := x.Call.(type) {
	case *ast.CallExpr:
		fs.compileCallExpr(c, base, 0)
	case *ast.MethodCallExpr:
		fs.compileMethodCallExpr(c, base, 0)
	default:
		fs.errorf(x.Pos(), "compiler: expression statement must be a call")
	}
	fs.freeReg = base
}

func (fs *funcState) compileReturn(x *ast.ReturnStmt) {
	p := pos(x.Pos())
	base := fs.freeReg
	n := fs.compileExprListToRegs(x.Exprs, base, -1)
	b := 0
	if n >= 0 {
		b = n + 1
	}
	fs.emitABC(vm.OpReturn, base, b, 0, p)
}

// assignTo stores the value already sitting in valueReg into target,
// dispatching on whether it's a local, an upvalue, a global, or a table
// field (spec §4.2 "Assignment").
func (fs *funcState) assignTo(target ast.Expr, valueReg int, p int32) {
	switch t := target.(type) {
	case *ast.Identifier:
		if l, ok := fs.resolveLocal(t.Name); ok {
			if l.reg != valueReg {
				fs.emitABC(vm.OpMove, l.reg, valueReg, 0, p)
			}
			return
		}
		if idx, ok := fs.resolveUpvalue(t.Name); ok {
			fs.emitABC(vm.OpSetUpval, valueReg, idx, 0, p)
			return
		}
		fs.emitABx(vm.OpSetGlobal, valueReg, fs.stringConst(t.Name), p)
	case *ast.MemberExpr:
		obj := fs.exprReg(t.Object)
		key := vm.RKAsK(fs.stringConst(t.Name))
		fs.emitABC(vm.OpSetTable, obj, key, valueReg, p)
	case *ast.IndexExpr:
		obj := fs.exprReg(t.Object)
		key := fs.exprToRK(t.Key)
		fs.emitABC(vm.OpSetTable, obj, key, valueReg, p)
	default:
		fs.errorf(target.Pos(), "compiler: invalid assignment target %T", t)
	}
}

func (fs *funcState) compileIf(x *ast.IfStmt) {
	p := pos(x.Pos())
	var endJumps []int
	for i, c := range x.Clauses {
		falseJ := fs.compileCondJump(c.Cond, false)
		fs.enterBlock(false)
		fs.compileBlock(c.Body)
		fs.leaveBlock(p)
		if i < len(x.Clauses)-1 || x.Else != nil {
			endJumps = append(endJumps, fs.emitJump(p))
		}
		fs.patchJump(falseJ)
	}
	if x.Else != nil {
		fs.enterBlock(false)
		fs.compileBlock(x.Else)
		fs.leaveBlock(p)
	}
	for _, j := range endJumps {
		fs.patchJump(j)
	}
}

func (fs *funcState) compileWhile(x *ast.WhileStmt) {
	p := pos(x.Pos())
	startPC := fs.pc()
	falseJ := fs.compileCondJump(x.Cond, false)
	loopBlock := fs.enterBlock(true)
	fs.compileBlock(x.Body)
	fs.leaveBlock(p)
	fs.emitBackJump(startPC, p)
	fs.patchJump(falseJ)
	for _, j := range loopBlock.breakJumps {
		fs.patchJump(j)
	}
}

// compileRepeat closes captured locals before testing the until-condition
// (which must still see them — spec §4.2's repeat-until scoping quirk) so
// both the loop-again and exit paths close correctly, then pops the scope
// by hand instead of through leaveBlock.
func (fs *funcState) compileRepeat(x *ast.RepeatStmt) {
	p := pos(x.Pos())
	startPC := fs.pc()
	loopBlock := fs.enterBlock(true)
	fs.compileBlock(x.Body)
	fs.closeBlockLocals(loopBlock, p)
	trueJ := fs.compileCondJump(x.Cond, true)
	fs.popBlockLocals(loopBlock)
	fs.emitBackJump(startPC, p)
	fs.patchJump(trueJ)
	for _, j := range loopBlock.breakJumps {
		fs.patchJump(j)
	}
}

// compileNumericFor lowers to ForPrep/ForLoop exactly as db47h-ngaro's VM
// target (and the reference Lua VM) expects: three control registers
// (init-as-start, limit, step) immediately followed by the user-visible
// loop variable (spec §4.3 "OpForPrep"/"OpForLoop").
func (fs *funcState) compileNumericFor(x *ast.NumericForStmt) {
	p := pos(x.Pos())
	base := fs.reserve(3)
	fs.compileExprToReg(x.Start, base)
	fs.compileExprToReg(x.Limit, base+1)
	if x.Step != nil {
		fs.compileExprToReg(x.Step, base+2)
	} else {
		fs.emitABx(vm.OpLoadK, base+2, fs.numberConst(1), p)
	}
	fs.freeReg = base + 3
	prepPC := fs.emitASBx(vm.OpForPrep, base, 0, p)
	bodyStart := fs.pc()
	loopBlock := fs.enterBlock(true)
	fs.addLocal(x.Name)
	fs.compileBlock(x.Body)
	fs.leaveBlock(p)
	loopPC := fs.emitASBx(vm.OpForLoop, base, 0, p)
	fs.patchJumpTo(prepPC, loopPC)
	fs.patchJumpTo(loopPC, bodyStart)
	for _, j := range loopBlock.breakJumps {
		fs.patchJump(j)
	}
}

// compileGenericFor lowers to TForCall/TForLoop: base, base+1, base+2 hold
// the iterator function/state/control value, base+3.. the loop variables
// TForCall just produced (spec §4.3 "OpTForCall"/"OpTForLoop").
func (fs *funcState) compileGenericFor(x *ast.GenericForStmt) {
	p := pos(x.Pos())
	base := fs.reserve(3)
	fs.compileExprListToRegs(x.Exprs, base, 3)
	prepJ := fs.emitJump(p)
	bodyStart := fs.pc()
	loopBlock := fs.enterBlock(true)
	for _, name := range x.Names {
		fs.addLocal(name)
	}
	fs.compileBlock(x.Body)
	fs.leaveBlock(p)
	fs.patchJump(prepJ)
	fs.emitABC(vm.OpTForCall, base, 0, len(x.Names), p)
	loopPC := fs.emitASBx(vm.OpTForLoop, base+2, 0, p)
	fs.patchJumpTo(loopPC, bodyStart)
	for _, j := range loopBlock.breakJumps {
		fs.patchJump(j)
	}
}

func (fs *funcState) emitBackJump(target int, line int32) {
	j := fs.emitASBx(vm.OpJmp, 0, 0, line)
	fs.patchJumpTo(j, target)
}
