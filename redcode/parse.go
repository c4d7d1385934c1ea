package redcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// instructionPattern matches "OPCODE[.MODIFIER] A_OPERAND [, B_OPERAND]",
// with an optional leading label token captured separately by the caller.
var instructionPattern = regexp.MustCompile(`^(\w+)(?:\.(\w+))?\s+([^,]+)(?:,\s*(.+))?$`)

// ParseError reports a line that could not be parsed as an instruction,
// directive, or comment.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("redcode: line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// defaultModifier returns the ICWS'94 default modifier for an opcode given
// its resolved addressing modes, used whenever a source line omits the
// ".MODIFIER" suffix.
func defaultModifier(op OpCode, aMode, bMode AddressMode) Modifier {
	switch op {
	case DAT:
		return ModF
	case MOV, SEQ, CMP, SNE:
		switch {
		case aMode == Immediate:
			return ModAB
		case bMode == Immediate:
			return ModB
		default:
			return ModI
		}
	case ADD, SUB, MUL, DIV, MOD:
		switch {
		case aMode == Immediate:
			return ModAB
		case bMode == Immediate:
			return ModB
		default:
			return ModF
		}
	case SLT:
		if aMode == Immediate {
			return ModAB
		}
		return ModB
	case JMP, JMZ, JMN, DJN, SPL:
		return ModB
	case NOP:
		return ModF
	default:
		return ModF
	}
}

// rawOperand is an operand as it appears on a source line, before label
// references are resolved into relative offsets.
type rawOperand struct {
	mode  AddressMode
	value int
	label string // non-empty if value is a forward/backward label reference
}

func parseOperand(operand string) rawOperand {
	operand = strings.TrimSpace(operand)
	if operand == "" {
		return rawOperand{mode: Direct}
	}
	mode := Direct
	rest := operand
	if m, ok := modeByPrefix[operand[0]]; ok {
		mode = m
		rest = strings.TrimSpace(operand[1:])
	}
	if rest == "" {
		return rawOperand{mode: mode}
	}
	if v, err := strconv.Atoi(rest); err == nil {
		return rawOperand{mode: mode, value: v}
	}
	return rawOperand{mode: mode, label: rest}
}

// rawLine is one parsed, not-yet-resolved instruction line together with
// the label (if any) that names its address.
type rawLine struct {
	label string
	op    OpCode
	mod   Modifier
	modSet bool
	a, b  rawOperand
}

// Parse reads Redcode-94 source text and returns the Warrior it describes.
// Labels are resolved to PC-relative offsets, matching the values a
// compiled instruction carries at load time. Comments (";" to end of
// line) and blank lines are ignored. The ";name", ";author" and "ORG"
// directives are recognized; an ORG operand that is not a bare integer or
// known label leaves StartOffset at 0.
func Parse(source string) (*Warrior, error) {
	w := &Warrior{Name: "Unknown", Author: "Unknown"}
	lines := strings.Split(source, "\n")

	var raws []rawLine
	labels := make(map[string]int)
	orgText := ""

	for lineNo, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, ";name"):
			w.Name = strings.TrimSpace(trimmed[5:])
			continue
		case strings.HasPrefix(lower, ";author"):
			w.Author = strings.TrimSpace(trimmed[7:])
			continue
		}
		trimmed = strings.TrimSpace(stripComment(line))
		if trimmed == "" {
			continue
		}
		lower = strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "org"):
			fields := strings.Fields(trimmed)
			if len(fields) > 1 {
				orgText = fields[1]
			}
			continue
		case strings.HasPrefix(lower, "end"):
			continue
		}

		rl, label, err := parseInstructionLine(trimmed, lineNo+1)
		if err != nil {
			return nil, err
		}
		if label != "" {
			labels[label] = len(raws)
		}
		raws = append(raws, rl)
	}

	if orgText != "" {
		if v, err := strconv.Atoi(orgText); err == nil {
			w.StartOffset = v
		} else if idx, ok := labels[strings.ToUpper(orgText)]; ok {
			w.StartOffset = idx
		}
		// Anything else (an unresolvable symbolic ORG) silently leaves
		// StartOffset at 0.
	}

	instrs := make([]Instruction, len(raws))
	for i, rl := range raws {
		mod := rl.mod
		if !rl.modSet {
			mod = defaultModifier(rl.op, rl.a.mode, rl.b.mode)
		}
		instrs[i] = Instruction{
			Op:       rl.op,
			Modifier: mod,
			A:        resolveOperand(rl.a, i, labels),
			B:        resolveOperand(rl.b, i, labels),
		}
	}
	w.Instructions = instrs
	return w, nil
}

func resolveOperand(ro rawOperand, index int, labels map[string]int) Operand {
	if ro.label == "" {
		return Operand{Mode: ro.mode, Value: ro.value}
	}
	if target, ok := labels[ro.label]; ok {
		return Operand{Mode: ro.mode, Value: target - index}
	}
	return Operand{Mode: ro.mode, Value: 0}
}

func stripComment(line string) string {
	if i := strings.Index(line, ";"); i >= 0 {
		return line[:i]
	}
	return line
}

// parseInstructionLine parses one non-directive, non-comment line,
// accepting an optional leading label before the opcode.
func parseInstructionLine(line string, lineNo int) (rawLine, string, error) {
	upperLine := strings.ToUpper(line)
	match := instructionPattern.FindStringSubmatch(upperLine)
	label := ""
	if match == nil {
		return rawLine{}, "", &ParseError{Line: lineNo, Text: line, Msg: "does not match instruction grammar"}
	}
	first := match[1]
	if _, ok := opcodeByName[first]; !ok {
		// first token is a label; re-match against the remainder of the line.
		fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if len(fields) != 2 {
			return rawLine{}, "", &ParseError{Line: lineNo, Text: line, Msg: "label with no instruction"}
		}
		label = strings.ToUpper(fields[0])
		upperRest := strings.ToUpper(strings.TrimSpace(fields[1]))
		match = instructionPattern.FindStringSubmatch(upperRest)
		if match == nil {
			return rawLine{}, "", &ParseError{Line: lineNo, Text: line, Msg: "does not match instruction grammar"}
		}
	}

	opStr, modStr, aStr, bStr := match[1], match[2], match[3], match[4]
	op, ok := opcodeByName[opStr]
	if !ok {
		return rawLine{}, "", &ParseError{Line: lineNo, Text: line, Msg: "unknown opcode " + opStr}
	}

	a := parseOperand(aStr)
	b := rawOperand{mode: Direct}
	if bStr != "" {
		b = parseOperand(bStr)
	}

	rl := rawLine{label: label, op: op, a: a, b: b}
	if modStr != "" {
		if mod, ok := modifierByName[modStr]; ok {
			rl.mod = mod
			rl.modSet = true
		}
	}
	return rl, label, nil
}

// String renders a warrior as Redcode-94 source, the inverse of Parse for
// instructions that carry no unresolved label references.
func (w *Warrior) String() string {
	var b strings.Builder
	b.WriteString(";redcode-94\n")
	fmt.Fprintf(&b, ";name %s\n", w.Name)
	fmt.Fprintf(&b, ";author %s\n\n", w.Author)
	for _, instr := range w.Instructions {
		b.WriteString(instr.String())
		b.WriteByte('\n')
	}
	if w.StartOffset != 0 {
		fmt.Fprintf(&b, "ORG %d\n", w.StartOffset)
	}
	return b.String()
}
