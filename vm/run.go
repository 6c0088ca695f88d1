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
	"math"

	"github.com/pkg/errors"
)

// execute pushes a call to fn on th and runs th's dispatch loop until that
// call (and everything it calls) has returned, mirroring the teacher's
// Run()-wraps-a-panic/recover-in-errors.Wrapf idiom (db47h-ngaro/vm/run.go)
// generalized from a flat opcode switch to one that also threads call
// frames, metamethod dispatch and coroutine yields.
func (in *Instance) execute(th *Thread, fn *Closure, args []Value) (results []Value, err error) {
	startDepth := len(th.frames)
	funcAbs := th.top
	th.Set(funcAbs, fn)
	for _, a := range args {
		th.Push(a)
	}
	if err := in.call(th, funcAbs, len(args), -1, funcAbs); err != nil {
		return nil, err
	}
	return in.runLoop(th, startDepth, funcAbs)
}

// runLoop drives th's top CallFrame's bytecode until the frame stack is back
// down to startDepth, then reads the call's results out of th.stack starting
// at resultAbs (spec §3.3 "Call"/"Return").
func (in *Instance) runLoop(th *Thread, startDepth, resultAbs int) (results []Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			th.frames = th.frames[:startDepth]
			if re, ok := r.(*RuntimeError); ok {
				err = re
				return
			}
			err = errors.Errorf("%v", r)
		}
	}()

	for len(th.frames) > startDepth {
		frame := &th.frames[len(th.frames)-1]
		in.step(th, frame)
		th.heap.maybeCollect(th)
	}

	n := th.top - resultAbs
	if n < 0 {
		n = 0
	}
	results = make([]Value, n)
	for i := 0; i < n; i++ {
		results[i] = th.Get(resultAbs + i)
	}
	return results, nil
}

// call resolves v = th.Get(funcAbs) as a callable (a Closure, or a value
// with a __call metamethod per spec §8.1) and either pushes a new Lua
// CallFrame onto th.frames (for the dispatch loop to run) or, for a host
// closure, invokes it inline with no new frame (spec §6.2: host functions
// consume Go call stack, not a Lua CallFrame, so calling from Lua into a
// host function and back is not tail-call-optimized — matching the
// reference implementation's own C-call boundary).
//
// funcAbs is the absolute stack index of the callee; nargs<0 means "use
// every value currently on the stack from funcAbs+1 to th.top" (spec's
// "B==0" / multret argument convention). nresults<0 means "keep every
// result" (C==0 / multret). resultAbs is where results should land once
// the call completes — normally funcAbs itself, so results overwrite the
// function value and its arguments in place.
func (in *Instance) call(th *Thread, funcAbs, nargs, nresults, resultAbs int) error {
	if len(th.frames) >= th.maxCallDepth {
		return th.runtimeError(nil, "stack overflow")
	}

	v := th.Get(funcAbs)
	closure, ok := v.(*Closure)
	if !ok {
		mm := in.metamethod(th, v, "__call")
		if mm == nil {
			return th.runtimeError(nil, "attempt to call a %s value", v.Type())
		}
		// __call(f, ...): shift the original value right by one and put
		// the metamethod in its place (spec §8.1 "__call").
		end := th.top
		if nargs >= 0 {
			end = funcAbs + 1 + nargs
		}
		orig := v
		th.ensure(end + 1)
		for i := end; i > funcAbs; i-- {
			th.stack[i] = th.stack[i-1]
		}
		th.stack[funcAbs] = mm
		th.stack[funcAbs+1] = orig
		if th.top < end+1 {
			th.top = end + 1
		}
		if nargs >= 0 {
			nargs++
		}
		return in.call(th, funcAbs, nargs, nresults, resultAbs)
	}

	argEnd := th.top
	if nargs >= 0 {
		argEnd = funcAbs + 1 + nargs
	}
	args := make([]Value, argEnd-(funcAbs+1))
	for i := range args {
		args[i] = th.Get(funcAbs + 1 + i)
	}

	if closure.IsHost() {
		res, err := in.callHost(th, closure, args)
		if err != nil {
			return err
		}
		in.deliverResults(th, resultAbs, res, nresults)
		return nil
	}

	return in.pushLuaFrame(th, closure, args, nresults, resultAbs)
}

// callHost invokes a host closure with a private argument/result stack
// view, isolated from the caller's registers (spec §6.2).
func (in *Instance) callHost(th *Thread, closure *Closure, args []Value) ([]Value, error) {
	callerTop := th.top
	base := th.top
	th.ensure(base + len(args))
	for i, a := range args {
		th.stack[base+i] = a
	}
	th.top = base + len(args)

	th.frames = append(th.frames, CallFrame{
		Closure:  closure,
		Base:     base,
		Top:      th.top,
		NResults: -1,
		Kind:     FrameHost,
	})
	defer func() { th.frames = th.frames[:len(th.frames)-1] }()

	n, err := closure.Host(th)
	if err != nil {
		th.top = callerTop
		return nil, err
	}
	res := make([]Value, n)
	for i := 0; i < n; i++ {
		res[i] = th.Get(th.top - n + i)
	}
	th.top = callerTop
	return res, nil
}

// deliverResults writes res to th.stack starting at resultAbs, per Lua's
// call-result truncation/padding rule: if nresults>=0 the window is forced
// to exactly that many values (padding with Nil or discarding extras);
// nresults<0 keeps every value and moves th.top to match.
func (in *Instance) deliverResults(th *Thread, resultAbs int, res []Value, nresults int) {
	want := len(res)
	if nresults >= 0 {
		want = nresults
	}
	th.ensure(resultAbs + want)
	for i := 0; i < want; i++ {
		if i < len(res) {
			th.stack[resultAbs+i] = res[i]
		} else {
			th.stack[resultAbs+i] = Nil
		}
	}
	if resultAbs+want > th.top || nresults < 0 {
		th.top = resultAbs + want
	}
}

// pushLuaFrame sets up a new CallFrame for a Lua closure: parameter
// binding, vararg collection, and MaxStack register space (spec §3.3,
// §4.4's "function prologue").
func (in *Instance) pushLuaFrame(th *Thread, closure *Closure, args []Value, nresults, resultAbs int) error {
	p := closure.Proto
	base := resultAbs + 1

	var varargs []Value
	if p.IsVararg && len(args) > p.NumParams {
		varargs = append([]Value(nil), args[p.NumParams:]...)
	}

	top := base + p.MaxStack
	th.ensure(top)
	for i := 0; i < p.MaxStack; i++ {
		if i < len(args) && i < p.NumParams {
			th.stack[base+i] = args[i]
		} else {
			th.stack[base+i] = Nil
		}
	}
	if top > th.top {
		th.top = top
	}

	th.frames = append(th.frames, CallFrame{
		Closure:  closure,
		PC:       0,
		Base:     base,
		Top:      top,
		NResults: nresults,
		Kind:     FrameLua,
		Varargs:  varargs,
	})
	// stash where the caller wants the results; read back by doReturn via
	// the frame immediately below this one on th.frames, or by runLoop's
	// resultAbs parameter when this is the outermost call.
	th.frames[len(th.frames)-1].resultAbs = resultAbs
	return nil
}

func (th *Thread) runtimeError(pos *Position, format string, args ...any) *RuntimeError {
	p := Position{}
	if pos != nil {
		p = *pos
	} else if n := len(th.frames); n > 0 {
		f := th.frames[n-1]
		if f.Closure != nil && f.Closure.Proto != nil {
			p.Source = f.Closure.Proto.Source
			if f.PC < len(f.Closure.Proto.Lines) {
				p.Line = int(f.Closure.Proto.Lines[f.PC])
			}
		}
	}
	return NewRuntimeError(th.heap, p, format, args...)
}

// step executes instructions from frame until control leaves it (a Return,
// a TailCall, or an error panics out), or it performs a nested call that
// pushes a new frame in which case step returns so runLoop can pick up the
// new top frame.
func (in *Instance) step(th *Thread, frame *CallFrame) {
	p := frame.Closure.Proto
	for {
		if frame.PC >= len(p.Code) {
			in.doReturn(th, frame, frame.Base, 0)
			return
		}
		ins := p.Code[frame.PC]
		op := ins.OpCode()
		reg := func(i int) Value { return th.Get(frame.Base + i) }
		setReg := func(i int, v Value) { th.Set(frame.Base+i, v) }
		rk := func(v int) Value {
			if IsK(v) {
				return p.Constants[KIndex(v)]
			}
			return reg(v)
		}

		switch op {
		case OpMove:
			setReg(ins.A(), reg(ins.B()))
		case OpLoadK:
			setReg(ins.A(), p.Constants[ins.Bx()])
		case OpLoadBool:
			setReg(ins.A(), Boolean(ins.B() != 0))
			if ins.C() != 0 {
				frame.PC++
			}
		case OpLoadNil:
			for r := ins.A(); r <= ins.B(); r++ {
				setReg(r, Nil)
			}
		case OpGetUpval:
			setReg(ins.A(), frame.Closure.Upvalues[ins.B()].Get())
		case OpSetUpval:
			frame.Closure.Upvalues[ins.B()].Set(reg(ins.A()))
		case OpGetGlobal:
			key := p.Constants[ins.Bx()]
			setReg(ins.A(), in.index(th, in.Globals(), key))
		case OpSetGlobal:
			key := p.Constants[ins.Bx()]
			in.newindex(th, in.Globals(), key, reg(ins.A()))
		case OpGetTable:
			setReg(ins.A(), in.index(th, reg(ins.B()), rk(ins.C())))
		case OpSetTable:
			in.newindex(th, reg(ins.A()), rk(ins.B()), rk(ins.C()))
		case OpNewTable:
			setReg(ins.A(), in.heap.NewTable(ins.B(), ins.C()))
		case OpSelf:
			obj := reg(ins.B())
			setReg(ins.A()+1, obj)
			setReg(ins.A(), in.index(th, obj, rk(ins.C())))
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
			setReg(ins.A(), in.arith(th, op, rk(ins.B()), rk(ins.C())))
		case OpUnm:
			setReg(ins.A(), in.arith(th, OpSub, Number(0), reg(ins.B())))
		case OpNot:
			setReg(ins.A(), Boolean(!Truthy(reg(ins.B()))))
		case OpLen:
			setReg(ins.A(), in.length(th, reg(ins.B())))
		case OpConcat:
			setReg(ins.A(), in.concat(th, frame, ins.B(), ins.C()))
		case OpJmp:
			frame.PC += ins.SBx()
		case OpEq:
			if in.equals(th, rk(ins.B()), rk(ins.C())) != (ins.A() != 0) {
				frame.PC++
			}
		case OpLt:
			if in.less(th, rk(ins.B()), rk(ins.C())) != (ins.A() != 0) {
				frame.PC++
			}
		case OpLe:
			if in.lessEqual(th, rk(ins.B()), rk(ins.C())) != (ins.A() != 0) {
				frame.PC++
			}
		case OpTest:
			if Truthy(reg(ins.A())) != (ins.C() != 0) {
				frame.PC++
			}
		case OpTestSet:
			v := reg(ins.B())
			if Truthy(v) == (ins.C() != 0) {
				setReg(ins.A(), v)
			} else {
				frame.PC++
			}
		case OpCall:
			funcAbs := frame.Base + ins.A()
			nargs, nresults := callArgCounts(th, frame, funcAbs, ins)
			frame.PC++
			if err := in.call(th, funcAbs, nargs, nresults, funcAbs); err != nil {
				panic(err)
			}
			return
		case OpTailCall:
			funcAbs := frame.Base + ins.A()
			nargs, _ := callArgCounts(th, frame, funcAbs, ins)
			in.doTailCall(th, frame, funcAbs, nargs)
			return
		case OpReturn:
			a, b := ins.A(), ins.B()
			var n int
			if b == 0 {
				n = th.top - (frame.Base + a)
			} else {
				n = b - 1
			}
			in.doReturn(th, frame, frame.Base+a, n)
			return
		case OpForPrep:
			in.forPrep(th, frame, ins)
		case OpForLoop:
			if in.forLoop(th, frame, ins) {
				return
			}
		case OpTForCall:
			res, err := in.callValues(th, reg(ins.A()), []Value{reg(ins.A() + 1), reg(ins.A() + 2)}, ins.C())
			if err != nil {
				panic(err)
			}
			for i := 0; i < ins.C(); i++ {
				v := Nil
				if i < len(res) {
					v = res[i]
				}
				setReg(ins.A()+3+i, v)
			}
		case OpTForLoop:
			if Truthy(reg(ins.A() + 1)) {
				setReg(ins.A(), reg(ins.A()+1))
				frame.PC += ins.SBx()
			}
		case OpSetList:
			in.setList(th, frame, ins)
		case OpClose:
			th.closeUpvalues(frame.Base + ins.A())
		case OpClosure:
			setReg(ins.A(), in.makeClosure(th, frame, p.Protos[ins.Bx()]))
			frame.PC++
			for range p.Protos[ins.Bx()].Upvalues {
				frame.PC++
			}
			continue
		case OpVararg:
			in.doVararg(th, frame, ins)
		default:
			panic(th.runtimeError(nil, "unimplemented opcode %s", op))
		}
		frame.PC++
	}
}

func callArgCounts(th *Thread, frame *CallFrame, funcAbs int, ins Instruction) (nargs, nresults int) {
	b, c := ins.B(), ins.C()
	if b == 0 {
		nargs = th.top - (funcAbs + 1)
	} else {
		nargs = b - 1
	}
	if c == 0 {
		nresults = -1
	} else {
		nresults = c - 1
	}
	return nargs, nresults
}

// doReturn pops frame, delivering n values starting at valuesAbs as its
// call's results (spec §4.4 "Return").
func (in *Instance) doReturn(th *Thread, frame *CallFrame, valuesAbs, n int) {
	th.closeUpvalues(frame.Base)
	res := make([]Value, n)
	for i := 0; i < n; i++ {
		res[i] = th.Get(valuesAbs + i)
	}
	resultAbs := frame.resultAbs
	nresults := frame.NResults
	th.frames = th.frames[:len(th.frames)-1]
	in.deliverResults(th, resultAbs, res, nresults)
}

// doTailCall reuses frame's activation record for the callee instead of
// pushing a new one (spec §4.4/§8.1 "Tail calls": Lua-to-Lua tail calls
// never grow the call stack). Calling into a host function or through
// __call from tail position falls back to an ordinary call+return, which
// does consume one extra frame — an accepted divergence shared with the
// reference implementation's own C-call boundary.
func (in *Instance) doTailCall(th *Thread, frame *CallFrame, funcAbs, nargs int) {
	th.closeUpvalues(frame.Base)

	v := th.Get(funcAbs)
	closure, ok := v.(*Closure)
	if ok && !closure.IsHost() {
		args := make([]Value, nargs)
		for i := range args {
			args[i] = th.Get(funcAbs + 1 + i)
		}
		resultAbs := frame.resultAbs
		nresults := frame.NResults
		th.frames = th.frames[:len(th.frames)-1]
		if err := in.pushLuaFrame(th, closure, args, nresults, resultAbs); err != nil {
			panic(err)
		}
		return
	}

	// Not a direct Lua-closure tail call (host function, or a __call chain):
	// pop frame first so the callee's results land at frame's own
	// destination, since frame is being discarded either way.
	resultAbs := frame.resultAbs
	nresults := frame.NResults
	th.frames = th.frames[:len(th.frames)-1]
	if err := in.call(th, funcAbs, nargs, nresults, resultAbs); err != nil {
		panic(err)
	}
}

// callValues is the host-callable entry point used by OpTForCall and by the
// stdlib's pcall/xpcall/table.sort-style callback helpers: call v with args
// and collect up to nresults values (nresults<0 keeps all).
func (in *Instance) callValues(th *Thread, v Value, args []Value, nresults int) ([]Value, error) {
	funcAbs := th.top
	th.Set(funcAbs, v)
	for _, a := range args {
		th.Push(a)
	}
	startDepth := len(th.frames)
	if err := in.call(th, funcAbs, len(args), nresults, funcAbs); err != nil {
		th.top = funcAbs
		return nil, err
	}
	if len(th.frames) == startDepth {
		// host call already completed inline.
		n := th.top - funcAbs
		res := make([]Value, n)
		for i := 0; i < n; i++ {
			res[i] = th.Get(funcAbs + i)
		}
		th.top = funcAbs
		return res, nil
	}
	return in.runLoop(th, startDepth, funcAbs)
}

func (in *Instance) makeClosure(th *Thread, frame *CallFrame, proto *Proto) *Closure {
	c := in.heap.NewLuaClosure(proto)
	p := frame.Closure.Proto
	pc := frame.PC + 1
	for i, uv := range proto.Upvalues {
		pseudo := p.Code[pc+i]
		if uv.IsLocal {
			c.Upvalues[i] = th.findOrCreateUpvalue(frame.Base + int(pseudo.B()))
		} else {
			c.Upvalues[i] = frame.Closure.Upvalues[pseudo.B()]
		}
	}
	return c
}

func (in *Instance) doVararg(th *Thread, frame *CallFrame, ins Instruction) {
	a, b := ins.A(), ins.B()
	n := len(frame.Varargs)
	want := n
	if b != 0 {
		want = b - 1
	}
	th.ensure(frame.Base + a + want)
	for i := 0; i < want; i++ {
		v := Nil
		if i < n {
			v = frame.Varargs[i]
		}
		th.Set(frame.Base+a+i, v)
	}
	if b == 0 {
		th.top = frame.Base + a + want
	}
}

func (in *Instance) setList(th *Thread, frame *CallFrame, ins Instruction) {
	a, b, c := ins.A(), ins.B(), ins.C()
	t, ok := th.Get(frame.Base + a).(*Table)
	if !ok {
		panic(th.runtimeError(nil, "attempt to build a list on a non-table"))
	}
	n := b
	if b == 0 {
		n = th.top - (frame.Base + a + 1)
	}
	const listItemsPerFlush = 50
	offset := (c - 1) * listItemsPerFlush
	for i := 1; i <= n; i++ {
		t.Set(Number(offset+i), th.Get(frame.Base+a+i))
	}
}

func (in *Instance) forPrep(th *Thread, frame *CallFrame, ins Instruction) {
	a := ins.A()
	initV, ok1 := ToNumber(th.Get(frame.Base + a))
	limitV, ok2 := ToNumber(th.Get(frame.Base + a + 1))
	stepV, ok3 := ToNumber(th.Get(frame.Base + a + 2))
	if !ok1 || !ok2 || !ok3 {
		panic(th.runtimeError(nil, "'for' initial value must be a number"))
	}
	th.Set(frame.Base+a, initV-stepV)
	th.Set(frame.Base+a+1, limitV)
	th.Set(frame.Base+a+2, stepV)
	frame.PC += ins.SBx()
}

// forLoop returns true if it performed a nested call (never does; kept for
// symmetry with step's other handlers that may return early).
func (in *Instance) forLoop(th *Thread, frame *CallFrame, ins Instruction) bool {
	a := ins.A()
	step := th.Get(frame.Base + a + 2).(Number)
	v := th.Get(frame.Base + a).(Number) + step
	limit := th.Get(frame.Base + a + 1).(Number)
	cont := (step > 0 && v <= limit) || (step <= 0 && v >= limit)
	if cont {
		th.Set(frame.Base+a, v)
		th.Set(frame.Base+a+3, v)
		frame.PC += ins.SBx()
	}
	return false
}

// arith implements the six binary arithmetic opcodes with __add/__sub/
// __mul/__div/__mod/__pow metamethod fallback (spec §4.3, §8.1).
func (in *Instance) arith(th *Thread, op OpCode, a, b Value) Value {
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if aok && bok {
		return Number(rawArith(op, float64(an), float64(bn)))
	}
	name := arithMetamethodName(op)
	if v, ok := in.tryBinaryMetamethod(th, name, a, b); ok {
		return v
	}
	bad := a
	if aok {
		bad = b
	}
	panic(th.runtimeError(nil, "attempt to perform arithmetic on a %s value", bad.Type()))
}

func rawArith(op OpCode, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMod:
		return a - math.Floor(a/b)*b
	case OpPow:
		return math.Pow(a, b)
	default:
		return 0
	}
}

func arithMetamethodName(op OpCode) string {
	switch op {
	case OpAdd:
		return "__add"
	case OpSub:
		return "__sub"
	case OpMul:
		return "__mul"
	case OpDiv:
		return "__div"
	case OpMod:
		return "__mod"
	case OpPow:
		return "__pow"
	default:
		return ""
	}
}

func (in *Instance) tryBinaryMetamethod(th *Thread, name string, a, b Value) (Value, bool) {
	mm := in.metamethod(th, a, name)
	if mm == nil {
		mm = in.metamethod(th, b, name)
	}
	if mm == nil {
		return nil, false
	}
	res, err := in.callValues(th, mm, []Value{a, b}, 1)
	if err != nil {
		panic(err)
	}
	if len(res) == 0 {
		return Nil, true
	}
	return res[0], true
}

// concat implements the .. operator over registers b..c inclusive, with
// __concat metamethod fallback applied pairwise from the right (spec §4.3
// OpConcat, §8.1 "__concat").
func (in *Instance) concat(th *Thread, frame *CallFrame, b, c int) Value {
	acc := th.Get(frame.Base + c)
	for i := c - 1; i >= b; i-- {
		left := th.Get(frame.Base + i)
		acc = in.concat2(th, left, acc)
	}
	return acc
}

func (in *Instance) concat2(th *Thread, a, b Value) Value {
	as, aok := concatString(a)
	bs, bok := concatString(b)
	if aok && bok {
		return in.heap.NewString([]byte(as + bs))
	}
	if v, ok := in.tryBinaryMetamethod(th, "__concat", a, b); ok {
		return v
	}
	bad := a
	if aok {
		bad = b
	}
	panic(th.runtimeError(nil, "attempt to concatenate a %s value", bad.Type()))
}

func concatString(v Value) (string, bool) {
	switch x := v.(type) {
	case *String:
		return string(x.Bytes()), true
	case Number:
		return x.GoString(), true
	default:
		return "", false
	}
}

// length implements the # operator with __len metamethod fallback (spec
// §4.3 OpLen, §8.1 "__len").
func (in *Instance) length(th *Thread, v Value) Value {
	switch x := v.(type) {
	case *String:
		return Number(x.Len())
	case *Table:
		if mm := in.metamethod(th, v, "__len"); mm != nil {
			res, err := in.callValues(th, mm, []Value{v}, 1)
			if err != nil {
				panic(err)
			}
			if len(res) > 0 {
				return res[0]
			}
			return Nil
		}
		return Number(x.Len())
	default:
		panic(th.runtimeError(nil, "attempt to get length of a %s value", v.Type()))
	}
}

// equals implements == with __eq metamethod fallback, which only applies
// when both operands are tables (or both userdata), raw-unequal, and carry
// the same __eq handler (spec §4.3 OpEq, §8.1 "__eq").
func (in *Instance) equals(th *Thread, a, b Value) bool {
	if RawEquals(a, b) {
		return true
	}
	_, at := a.(*Table)
	_, bt := b.(*Table)
	_, au := a.(*Userdata)
	_, bu := b.(*Userdata)
	if (at && bt) || (au && bu) {
		mm := in.metamethod(th, a, "__eq")
		if mm != nil && RawEquals(mm, in.metamethod(th, b, "__eq")) {
			res, err := in.callValues(th, mm, []Value{a, b}, 1)
			if err != nil {
				panic(err)
			}
			return len(res) > 0 && Truthy(res[0])
		}
	}
	return false
}

// less implements < with __lt metamethod fallback (spec §4.3 OpLt, §8.1).
func (in *Instance) less(th *Thread, a, b Value) bool {
	if an, aok := a.(Number); aok {
		if bn, bok := b.(Number); bok {
			return an < bn
		}
	}
	if as, aok := a.(*String); aok {
		if bs, bok := b.(*String); bok {
			return string(as.Bytes()) < string(bs.Bytes())
		}
	}
	if v, ok := in.tryBinaryMetamethod(th, "__lt", a, b); ok {
		return Truthy(v)
	}
	panic(th.runtimeError(nil, "attempt to compare two %s values", a.Type()))
}

// lessEqual implements <= with __le metamethod fallback (spec §4.3 OpLe,
// §8.1).
func (in *Instance) lessEqual(th *Thread, a, b Value) bool {
	if an, aok := a.(Number); aok {
		if bn, bok := b.(Number); bok {
			return an <= bn
		}
	}
	if as, aok := a.(*String); aok {
		if bs, bok := b.(*String); bok {
			return string(as.Bytes()) <= string(bs.Bytes())
		}
	}
	if v, ok := in.tryBinaryMetamethod(th, "__le", a, b); ok {
		return Truthy(v)
	}
	panic(th.runtimeError(nil, "attempt to compare two %s values", a.Type()))
}

// metamethod looks up event on v's metatable, if it has one (spec §8.1).
func (in *Instance) metamethod(th *Thread, v Value, event string) Value {
	var mt *Table
	switch x := v.(type) {
	case *Table:
		mt = x.Metatable()
	case *Userdata:
		mt = x.Metatable()
	case *String:
		mt = in.heap.stringMeta
	default:
		return nil
	}
	if mt == nil {
		return nil
	}
	r := mt.Get(in.heap.NewString([]byte(event)))
	if r == Nil {
		return nil
	}
	return r
}

// index implements table/field access with __index metamethod chaining
// (spec §3.2 "Table", §8.1 "__index"): tables try the raw slot first, then
// chase __index (a table, recursively, or a function called with (t,k)).
func (in *Instance) index(th *Thread, v, key Value) Value {
	for i := 0; i < maxMetaChain; i++ {
		t, ok := v.(*Table)
		if ok {
			raw := t.Get(key)
			if raw != Nil {
				return raw
			}
			mm := in.metamethod(th, t, "__index")
			if mm == nil {
				return Nil
			}
			if mmt, isTable := mm.(*Table); isTable {
				v = mmt
				continue
			}
			res, err := in.callValues(th, mm, []Value{v, key}, 1)
			if err != nil {
				panic(err)
			}
			if len(res) == 0 {
				return Nil
			}
			return res[0]
		}
		mm := in.metamethod(th, v, "__index")
		if mm == nil {
			panic(th.runtimeError(nil, "attempt to index a %s value", v.Type()))
		}
		if mmt, isTable := mm.(*Table); isTable {
			v = mmt
			continue
		}
		res, err := in.callValues(th, mm, []Value{v, key}, 1)
		if err != nil {
			panic(err)
		}
		if len(res) == 0 {
			return Nil
		}
		return res[0]
	}
	panic(th.runtimeError(nil, "'__index' chain too long; possible loop"))
}

const maxMetaChain = 100

// newindex implements table/field assignment with __newindex metamethod
// chaining (spec §8.1 "__newindex").
func (in *Instance) newindex(th *Thread, v, key, value Value) {
	for i := 0; i < maxMetaChain; i++ {
		t, ok := v.(*Table)
		if ok {
			if t.Get(key) != Nil {
				t.Set(key, value)
				return
			}
			mm := in.metamethod(th, t, "__newindex")
			if mm == nil {
				if key == Nil {
					panic(th.runtimeError(nil, "table index is nil"))
				}
				t.Set(key, value)
				return
			}
			if mmt, isTable := mm.(*Table); isTable {
				v = mmt
				continue
			}
			if _, err := in.callValues(th, mm, []Value{v, key, value}, 0); err != nil {
				panic(err)
			}
			return
		}
		mm := in.metamethod(th, v, "__newindex")
		if mm == nil {
			panic(th.runtimeError(nil, "attempt to index a %s value", v.Type()))
		}
		if mmt, isTable := mm.(*Table); isTable {
			v = mmt
			continue
		}
		if _, err := in.callValues(th, mm, []Value{v, key, value}, 0); err != nil {
			panic(err)
		}
		return
	}
	panic(th.runtimeError(nil, "'__newindex' chain too long; possible loop"))
}
