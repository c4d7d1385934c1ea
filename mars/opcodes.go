package mars

import "github.com/corewars/drq/redcode"

// dispatch executes instr's opcode against the already-resolved operand
// pointers and pre-dispatch snapshots, and enqueues the successor PC(s)
// the opcode implies. aRes/bRes are the effective-address results from
// resolving the A- then B-operand (in that order, as the side effects of
// A-operand resolution must be visible to B-operand resolution).
func dispatch(vm *VM, ws *WarriorState, instr redcode.Instruction, pc, nextPC int, aRes, bRes resolved, src, dst redcode.Instruction) {
	coreSize := vm.Config.CoreSize

	switch instr.Op {
	case redcode.DAT:
		// process dies: nothing re-enqueued.

	case redcode.MOV:
		vm.Core.Write(bRes.ptr, applyMov(instr.Modifier, src, dst), ws.WarriorID, ws)
		ws.enqueue(nextPC)

	case redcode.ADD:
		vm.Core.Write(bRes.ptr, applyArith(instr.Modifier, src, dst, coreSize, addOp), ws.WarriorID, ws)
		ws.enqueue(nextPC)

	case redcode.SUB:
		vm.Core.Write(bRes.ptr, applyArith(instr.Modifier, src, dst, coreSize, subOp), ws.WarriorID, ws)
		ws.enqueue(nextPC)

	case redcode.MUL:
		vm.Core.Write(bRes.ptr, applyArith(instr.Modifier, src, dst, coreSize, mulOp), ws.WarriorID, ws)
		ws.enqueue(nextPC)

	case redcode.DIV:
		if result, ok := applyDivMod(instr.Modifier, src, dst, coreSize, divOp); ok {
			vm.Core.Write(bRes.ptr, result, ws.WarriorID, ws)
			ws.enqueue(nextPC)
		}
		// division by zero: process dies, no write, not re-enqueued.

	case redcode.MOD:
		if result, ok := applyDivMod(instr.Modifier, src, dst, coreSize, modOp); ok {
			vm.Core.Write(bRes.ptr, result, ws.WarriorID, ws)
			ws.enqueue(nextPC)
		}

	case redcode.JMP:
		ws.enqueue(aRes.ptr)

	case redcode.JMZ:
		if isZero(instr.Modifier, dst) {
			ws.enqueue(aRes.ptr)
		} else {
			ws.enqueue(nextPC)
		}

	case redcode.JMN:
		if !isZero(instr.Modifier, dst) {
			ws.enqueue(aRes.ptr)
		} else {
			ws.enqueue(nextPC)
		}

	case redcode.DJN:
		decremented := decrementFields(instr.Modifier, dst, coreSize)
		vm.Core.Write(bRes.ptr, decremented, ws.WarriorID, ws)
		if !isZero(instr.Modifier, decremented) {
			ws.enqueue(aRes.ptr)
		} else {
			ws.enqueue(nextPC)
		}

	case redcode.SPL:
		// Next_pc is enqueued before the split target, so that the
		// process order observed by later cycles matches a FIFO that
		// never reorders on a successful split.
		ws.enqueue(nextPC)
		if ws.QueueLen() < vm.Config.MaxProcesses {
			ws.enqueue(aRes.ptr)
			ws.ThreadsSpawned++
		}

	case redcode.CMP, redcode.SEQ:
		if compareEqual(instr.Modifier, src, dst) {
			ws.enqueue(vm.Core.Normalize(nextPC + 1))
		} else {
			ws.enqueue(nextPC)
		}

	case redcode.SNE:
		if !compareEqual(instr.Modifier, src, dst) {
			ws.enqueue(vm.Core.Normalize(nextPC + 1))
		} else {
			ws.enqueue(nextPC)
		}

	case redcode.SLT:
		if compareLessThan(instr.Modifier, src, dst) {
			ws.enqueue(vm.Core.Normalize(nextPC + 1))
		} else {
			ws.enqueue(nextPC)
		}

	case redcode.NOP:
		ws.enqueue(nextPC)
	}
}

// applyMov projects src's field(s) into dst per modifier. Modifier I
// copies the instruction whole; every other modifier only moves numeric
// fields.
func applyMov(mod redcode.Modifier, src, dst redcode.Instruction) redcode.Instruction {
	if mod == redcode.ModI {
		return src
	}
	out := dst
	switch mod {
	case redcode.ModA:
		out.A.Value = src.A.Value
	case redcode.ModB:
		out.B.Value = src.B.Value
	case redcode.ModAB:
		out.B.Value = src.A.Value
	case redcode.ModBA:
		out.A.Value = src.B.Value
	case redcode.ModF:
		out.A.Value = src.A.Value
		out.B.Value = src.B.Value
	case redcode.ModX:
		out.A.Value = src.B.Value
		out.B.Value = src.A.Value
	}
	return out
}

type binOp func(a, b, m int) int

func addOp(a, b, m int) int { return normMod(a+b, m) }
func subOp(a, b, m int) int { return normMod(a-b, m) }
func mulOp(a, b, m int) int { return normMod(a*b, m) }

func normMod(v, m int) int {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}

// applyArith projects src's field(s) into dst's field(s) via op,
// treating modifier I identically to F since ICWS'94 leaves I
// undefined for arithmetic opcodes.
func applyArith(mod redcode.Modifier, src, dst redcode.Instruction, coreSize int, op binOp) redcode.Instruction {
	out := dst
	switch mod {
	case redcode.ModA:
		out.A.Value = op(dst.A.Value, src.A.Value, coreSize)
	case redcode.ModB:
		out.B.Value = op(dst.B.Value, src.B.Value, coreSize)
	case redcode.ModAB:
		out.B.Value = op(dst.B.Value, src.A.Value, coreSize)
	case redcode.ModBA:
		out.A.Value = op(dst.A.Value, src.B.Value, coreSize)
	case redcode.ModF, redcode.ModI:
		out.A.Value = op(dst.A.Value, src.A.Value, coreSize)
		out.B.Value = op(dst.B.Value, src.B.Value, coreSize)
	case redcode.ModX:
		out.A.Value = op(dst.A.Value, src.B.Value, coreSize)
		out.B.Value = op(dst.B.Value, src.A.Value, coreSize)
	}
	return out
}

// divOp and modOp assume both operands have already been normalized
// into [0, m) by the caller, so Go's truncating / and % agree with
// Python's floor // and %.
func divOp(a, b, m int) int { return normMod(a/b, m) }
func modOp(a, b, m int) int { return normMod(a%b, m) }

// applyDivMod mirrors applyArith but reports failure (process death)
// whenever a selected divisor field is zero (mod coreSize), without
// performing any write.
func applyDivMod(mod redcode.Modifier, src, dst redcode.Instruction, coreSize int, op binOp) (redcode.Instruction, bool) {
	out := dst
	da, db := normMod(dst.A.Value, coreSize), normMod(dst.B.Value, coreSize)
	sa, sb := normMod(src.A.Value, coreSize), normMod(src.B.Value, coreSize)
	switch mod {
	case redcode.ModA:
		if sa == 0 {
			return redcode.Instruction{}, false
		}
		out.A.Value = op(da, sa, coreSize)
	case redcode.ModB:
		if sb == 0 {
			return redcode.Instruction{}, false
		}
		out.B.Value = op(db, sb, coreSize)
	case redcode.ModAB:
		if sa == 0 {
			return redcode.Instruction{}, false
		}
		out.B.Value = op(db, sa, coreSize)
	case redcode.ModBA:
		if sb == 0 {
			return redcode.Instruction{}, false
		}
		out.A.Value = op(da, sb, coreSize)
	case redcode.ModF, redcode.ModI:
		if sa == 0 || sb == 0 {
			return redcode.Instruction{}, false
		}
		out.A.Value = op(da, sa, coreSize)
		out.B.Value = op(db, sb, coreSize)
	case redcode.ModX:
		if sa == 0 || sb == 0 {
			return redcode.Instruction{}, false
		}
		out.A.Value = op(da, sb, coreSize)
		out.B.Value = op(db, sa, coreSize)
	}
	return out, true
}

// decrementFields decrements dst's modifier-selected field(s) by one,
// modulo coreSize, for DJN.
func decrementFields(mod redcode.Modifier, dst redcode.Instruction, coreSize int) redcode.Instruction {
	out := dst
	switch mod {
	case redcode.ModA, redcode.ModBA:
		out.A.Value = normMod(out.A.Value-1, coreSize)
	case redcode.ModB, redcode.ModAB:
		out.B.Value = normMod(out.B.Value-1, coreSize)
	default: // F, X, I
		out.A.Value = normMod(out.A.Value-1, coreSize)
		out.B.Value = normMod(out.B.Value-1, coreSize)
	}
	return out
}

// isZero reports whether instr's modifier-selected field(s) are zero,
// used by JMZ/JMN/DJN.
func isZero(mod redcode.Modifier, instr redcode.Instruction) bool {
	switch mod {
	case redcode.ModA, redcode.ModBA:
		return instr.A.Value == 0
	case redcode.ModB, redcode.ModAB:
		return instr.B.Value == 0
	default: // F, X, I
		return instr.A.Value == 0 && instr.B.Value == 0
	}
}

// compareEqual implements CMP/SEQ/SNE's equality test under modifier
// projection; modifier I additionally requires opcode, modifier and
// both addressing modes to match.
func compareEqual(mod redcode.Modifier, src, dst redcode.Instruction) bool {
	switch mod {
	case redcode.ModA:
		return src.A.Value == dst.A.Value
	case redcode.ModB:
		return src.B.Value == dst.B.Value
	case redcode.ModAB:
		return src.A.Value == dst.B.Value
	case redcode.ModBA:
		return src.B.Value == dst.A.Value
	case redcode.ModF:
		return src.A.Value == dst.A.Value && src.B.Value == dst.B.Value
	case redcode.ModX:
		return src.A.Value == dst.B.Value && src.B.Value == dst.A.Value
	case redcode.ModI:
		return src.Equal(dst)
	}
	return false
}

// compareLessThan implements SLT's field-wise ordering test.
func compareLessThan(mod redcode.Modifier, src, dst redcode.Instruction) bool {
	switch mod {
	case redcode.ModA:
		return src.A.Value < dst.A.Value
	case redcode.ModB:
		return src.B.Value < dst.B.Value
	case redcode.ModAB:
		return src.A.Value < dst.B.Value
	case redcode.ModBA:
		return src.B.Value < dst.A.Value
	default: // F, X, I
		return src.A.Value < dst.A.Value && src.B.Value < dst.B.Value
	}
}
