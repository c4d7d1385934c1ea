// Package redcode implements the Redcode-94 instruction model and the
// minimal text parser/printer needed to load and round-trip warriors.
package redcode

import "fmt"

// OpCode is a Redcode operation code.
type OpCode int

const (
	DAT OpCode = iota
	MOV
	ADD
	SUB
	MUL
	DIV
	MOD
	JMP
	JMZ
	JMN
	DJN
	SPL
	CMP // alias SEQ
	SEQ
	SNE
	SLT
	NOP
)

var opcodeNames = map[OpCode]string{
	DAT: "DAT", MOV: "MOV", ADD: "ADD", SUB: "SUB", MUL: "MUL",
	DIV: "DIV", MOD: "MOD", JMP: "JMP", JMZ: "JMZ", JMN: "JMN",
	DJN: "DJN", SPL: "SPL", CMP: "CMP", SEQ: "SEQ", SNE: "SNE",
	SLT: "SLT", NOP: "NOP",
}

var opcodeByName = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opcodeNames)+1)
	for op, name := range opcodeNames {
		m[name] = op
	}
	m["SEQ"] = CMP // CMP and SEQ are the same opcode; CMP is the canonical name
	return m
}()

func (o OpCode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OpCode(%d)", int(o))
}

// Modifier selects which operand fields an opcode reads and writes.
type Modifier int

const (
	ModF Modifier = iota // zero value, so a zero Instruction is DAT.F, per spec
	ModA
	ModB
	ModAB
	ModBA
	ModX
	ModI
)

var modifierNames = map[Modifier]string{
	ModA: "A", ModB: "B", ModAB: "AB", ModBA: "BA", ModF: "F", ModX: "X", ModI: "I",
}

var modifierByName = func() map[string]Modifier {
	m := make(map[string]Modifier, len(modifierNames))
	for mod, name := range modifierNames {
		m[name] = mod
	}
	return m
}()

func (m Modifier) String() string {
	if name, ok := modifierNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Modifier(%d)", int(m))
}

// AddressMode is an operand's addressing mode.
type AddressMode int

const (
	Direct AddressMode = iota // zero value, so a zero Operand is $0, per spec
	Immediate
	AIndirect
	BIndirect
	APreDec
	BPreDec
	APostInc
	BPostInc
)

// modePrefix maps an AddressMode to its one-character Redcode prefix.
var modePrefix = map[AddressMode]byte{
	Immediate: '#', Direct: '$', AIndirect: '*', BIndirect: '@',
	APreDec: '{', BPreDec: '<', APostInc: '}', BPostInc: '>',
}

var modeByPrefix = func() map[byte]AddressMode {
	m := make(map[byte]AddressMode, len(modePrefix))
	for mode, b := range modePrefix {
		m[b] = mode
	}
	return m
}()

func (m AddressMode) String() string {
	if b, ok := modePrefix[m]; ok {
		return string(b)
	}
	return fmt.Sprintf("AddressMode(%d)", int(m))
}

// Operand is one addressing-mode/value pair of an Instruction.
type Operand struct {
	Mode  AddressMode
	Value int
}

// Instruction is a single, immutable Redcode instruction. The zero value
// is the core's default cell: DAT.F $0, $0.
type Instruction struct {
	Op       OpCode
	Modifier Modifier
	A        Operand
	B        Operand
}

// String renders the instruction in the same textual form Parse accepts,
// omitting the default Direct ("$") address-mode prefix.
func (i Instruction) String() string {
	aPrefix := ""
	if i.A.Mode != Direct {
		aPrefix = i.A.Mode.String()
	}
	bPrefix := ""
	if i.B.Mode != Direct {
		bPrefix = i.B.Mode.String()
	}
	return fmt.Sprintf("%s.%s %s%d, %s%d", i.Op, i.Modifier, aPrefix, i.A.Value, bPrefix, i.B.Value)
}

// Equal reports whether two instructions are identical in every field,
// the comparison CMP/SEQ.I and SNE.I use.
func (i Instruction) Equal(o Instruction) bool {
	return i.Op == o.Op && i.Modifier == o.Modifier &&
		i.A.Mode == o.A.Mode && i.A.Value == o.A.Value &&
		i.B.Mode == o.B.Mode && i.B.Value == o.B.Value
}

// Warrior is a static, immutable Core War program as produced by the
// variation operator or the text parser.
type Warrior struct {
	Name         string
	Author       string
	Instructions []Instruction
	StartOffset  int
}

// Len returns the instruction count.
func (w *Warrior) Len() int {
	return len(w.Instructions)
}

// Clone returns a deep copy, since Warrior is meant to be treated as
// immutable once created but callers (mutation, crossover) need a
// private copy to edit.
func (w *Warrior) Clone() *Warrior {
	instrs := make([]Instruction, len(w.Instructions))
	copy(instrs, w.Instructions)
	return &Warrior{
		Name:         w.Name,
		Author:       w.Author,
		Instructions: instrs,
		StartOffset:  w.StartOffset,
	}
}
