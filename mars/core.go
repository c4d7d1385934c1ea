// Package mars implements the Memory Array Redcode Simulator: a
// cycle-accurate ICWS'94-style executor over a circular core of Redcode
// instructions, with per-warrior process queues and the eight
// side-effecting addressing modes.
package mars

import "github.com/corewars/drq/redcode"

// Core is the circular instruction memory shared by every warrior in a
// battle. Every address is normalized into [0, Size) before use.
type Core struct {
	size  int
	cells []redcode.Instruction
	owner []int
}

// Unowned marks a cell nobody has written to yet.
const Unowned = -1

// NewCore allocates a core of the given size, every cell initialized to
// the default DAT.F $0, $0 instruction.
func NewCore(size int) *Core {
	c := &Core{
		size:  size,
		cells: make([]redcode.Instruction, size),
		owner: make([]int, size),
	}
	for i := range c.owner {
		c.owner[i] = Unowned
	}
	return c
}

// Size returns the core's address space.
func (c *Core) Size() int { return c.size }

// Normalize reduces an address to [0, Size) by Euclidean remainder; Go's
// % can return a negative result for a negative dividend, so this adds
// Size back in whenever the remainder is negative.
func (c *Core) Normalize(addr int) int {
	m := addr % c.size
	if m < 0 {
		m += c.size
	}
	return m
}

// Read returns the instruction at addr, normalizing first.
func (c *Core) Read(addr int) redcode.Instruction {
	return c.cells[c.Normalize(addr)]
}

// Owner returns the warrior id that last wrote addr, or Unowned.
func (c *Core) Owner(addr int) int {
	return c.owner[c.Normalize(addr)]
}

// Write replaces the cell at addr, tags its owner, and, when ws is
// non-nil, records the write against the warrior's behavioral counters.
func (c *Core) Write(addr int, instr redcode.Instruction, warriorID int, ws *WarriorState) {
	a := c.Normalize(addr)
	c.cells[a] = instr
	c.owner[a] = warriorID
	if ws != nil {
		ws.MemoryWrites++
		ws.MemoryAccessed[a] = struct{}{}
	}
}

// loadInstructions copies a sequence of instructions into the core
// starting at position, tagging every written cell with warriorID. It
// does not touch process state.
func (c *Core) loadInstructions(instrs []redcode.Instruction, position, warriorID int) {
	for i, instr := range instrs {
		a := c.Normalize(position + i)
		c.cells[a] = instr
		c.owner[a] = warriorID
	}
}

// resolved is the result of effective-address resolution: where a
// subsequent write lands, and the scalar value to use when an
// instruction needs a magnitude rather than a pointer (chiefly
// Immediate).
type resolved struct {
	ptr int
	val int
}

// resolveAddress computes the effective address for one operand of the
// instruction at basePC, applying any addressing-mode side effects
// (pre-decrement / post-increment) to the core before returning.
func (c *Core) resolveAddress(basePC int, mode redcode.AddressMode, value, warriorID int, ws *WarriorState) resolved {
	a0 := c.Normalize(basePC + value)

	switch mode {
	case redcode.Immediate:
		return resolved{ptr: basePC, val: value}

	case redcode.Direct:
		return resolved{ptr: a0, val: value}

	case redcode.AIndirect:
		t := c.Read(a0)
		return resolved{ptr: c.Normalize(a0 + t.A.Value), val: t.A.Value}

	case redcode.BIndirect:
		t := c.Read(a0)
		return resolved{ptr: c.Normalize(a0 + t.B.Value), val: t.B.Value}

	case redcode.APreDec:
		t := c.Read(a0)
		t.A.Value = c.Normalize(t.A.Value - 1)
		c.Write(a0, t, warriorID, ws)
		return resolved{ptr: c.Normalize(a0 + t.A.Value), val: t.A.Value}

	case redcode.BPreDec:
		t := c.Read(a0)
		t.B.Value = c.Normalize(t.B.Value - 1)
		c.Write(a0, t, warriorID, ws)
		return resolved{ptr: c.Normalize(a0 + t.B.Value), val: t.B.Value}

	case redcode.APostInc:
		t := c.Read(a0)
		ptr := c.Normalize(a0 + t.A.Value)
		snapshot := t.A.Value
		t.A.Value = c.Normalize(t.A.Value + 1)
		c.Write(a0, t, warriorID, ws)
		return resolved{ptr: ptr, val: snapshot}

	case redcode.BPostInc:
		t := c.Read(a0)
		ptr := c.Normalize(a0 + t.B.Value)
		snapshot := t.B.Value
		t.B.Value = c.Normalize(t.B.Value + 1)
		c.Write(a0, t, warriorID, ws)
		return resolved{ptr: ptr, val: snapshot}
	}

	return resolved{ptr: a0, val: value}
}
