package redcode

import "testing"

func TestParseImp(t *testing.T) {
	w, err := Parse(ImpSource)
	if err != nil {
		t.Fatalf("Parse(imp): %v", err)
	}
	if w.Name != "Imp" {
		t.Errorf("Name = %q, want Imp", w.Name)
	}
	if w.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", w.Len())
	}
	instr := w.Instructions[0]
	want := Instruction{Op: MOV, Modifier: ModI, A: Operand{Mode: Direct, Value: 0}, B: Operand{Mode: Direct, Value: 1}}
	if !instr.Equal(want) {
		t.Errorf("instruction = %+v, want %+v", instr, want)
	}
}

func TestParseDwarf(t *testing.T) {
	w, err := Parse(DwarfSource)
	if err != nil {
		t.Fatalf("Parse(dwarf): %v", err)
	}
	if w.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", w.Len())
	}
	add := w.Instructions[0]
	if add.Op != ADD || add.Modifier != ModAB || add.A.Mode != Immediate || add.A.Value != 4 || add.B.Value != 3 {
		t.Errorf("ADD line = %+v", add)
	}
	mov := w.Instructions[1]
	if mov.Op != MOV || mov.Modifier != ModI || mov.B.Mode != BIndirect || mov.B.Value != 2 {
		t.Errorf("MOV line = %+v", mov)
	}
}

func TestParseScannerLabels(t *testing.T) {
	w, err := Parse(ScannerSource)
	if err != nil {
		t.Fatalf("Parse(scanner): %v", err)
	}
	if w.Len() != 14 {
		t.Fatalf("Len() = %d, want 14", w.Len())
	}
	// "JMP scan" is at index 3, "scan" labels index 0: relative offset -3.
	jmp := w.Instructions[3]
	if jmp.Op != JMP || jmp.A.Value != -3 {
		t.Errorf("JMP scan = %+v, want A.Value -3", jmp)
	}
	// "DJN attack, count": attack labels index 5, count labels index 13.
	djn := w.Instructions[7]
	if djn.Op != DJN {
		t.Fatalf("instruction 7 = %+v, want DJN", djn)
	}
	if djn.A.Value != 5-7 {
		t.Errorf("DJN attack A.Value = %d, want %d", djn.A.Value, 5-7)
	}
	if djn.B.Value != 13-7 {
		t.Errorf("DJN count B.Value = %d, want %d", djn.B.Value, 13-7)
	}
}

func TestDefaultModifiers(t *testing.T) {
	cases := []struct {
		op         OpCode
		aMode      AddressMode
		bMode      AddressMode
		wantMod    Modifier
	}{
		{DAT, Direct, Direct, ModF},
		{MOV, Immediate, Direct, ModAB},
		{MOV, Direct, Immediate, ModB},
		{MOV, Direct, Direct, ModI},
		{ADD, Immediate, Direct, ModAB},
		{ADD, Direct, Direct, ModF},
		{SLT, Immediate, Direct, ModAB},
		{SLT, Direct, Direct, ModB},
		{JMP, Direct, Direct, ModB},
		{NOP, Direct, Direct, ModF},
	}
	for _, c := range cases {
		got := defaultModifier(c.op, c.aMode, c.bMode)
		if got != c.wantMod {
			t.Errorf("defaultModifier(%v,%v,%v) = %v, want %v", c.op, c.aMode, c.bMode, got, c.wantMod)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	w, err := Parse(ImpSource)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := w.String()
	w2, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(String()): %v", err)
	}
	if !w.Instructions[0].Equal(w2.Instructions[0]) {
		t.Errorf("round trip mismatch: %+v vs %+v", w.Instructions[0], w2.Instructions[0])
	}
}

func TestParseOrgDirective(t *testing.T) {
	src := ";redcode-94\n;name Test\n;author Me\n\nJMP 0\nORG 1\n"
	w, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if w.StartOffset != 1 {
		t.Errorf("StartOffset = %d, want 1", w.StartOffset)
	}
}

func TestParseSymbolicOrgLeavesZero(t *testing.T) {
	src := ";redcode-94\n;name Test\n\nstart   JMP 0\nORG unknownlabel\n"
	w, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if w.StartOffset != 0 {
		t.Errorf("StartOffset = %d, want 0 for unresolvable symbolic ORG", w.StartOffset)
	}
}
