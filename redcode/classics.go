package redcode

// Classic warrior source texts, carried over verbatim from the reference
// corpus so that battle and evolution tests have known-good opponents
// and seed champions.
const (
	ImpSource = `;redcode-94
;name Imp
;author A.K. Dewdney
;strategy The simplest warrior - copies itself forward

MOV.I 0, 1
`

	DwarfSource = `;redcode-94
;name Dwarf
;author A.K. Dewdney
;strategy Bombs memory at regular intervals

ADD.AB #4, 3
MOV.I  2, @2
JMP    -2
DAT    #0, #0
`

	MiceSource = `;redcode-94
;name Mice
;author Chip Wendell
;strategy Self-replicating bomber

SPL    0, 0
MOV.I  12, <15
DJN    -1, -3
SPL    @14, 0
ADD.AB #653, 13
JMZ    -5, -7
MOV.I  10, <11
DJN    -1, -3
SPL    2, 0
JMP    -9, 0
DAT    #0, #833
DAT    #0, #0
DAT    #0, #0
DAT    #0, #0
DAT    #0, #0
`

	ScannerSource = `;redcode-94
;name Scanner
;author Unknown
;strategy Scans for enemies then bombs them

scan    ADD.AB bomb, ptr
        MOV.I  @ptr, copy
        SNE.I  copy, empty
        JMP    scan
        SUB.AB #5, ptr
attack  MOV.I  bomb, @ptr
        ADD.AB #1, ptr
        DJN    attack, count
        JMP    scan
bomb    DAT    #0, #0
ptr     DAT    #0, #15
copy    DAT    #0, #0
empty   DAT    #0, #0
count   DAT    #0, #5
`
)

// mustParse parses a classic warrior's source and panics on failure,
// since these constants are compiled into the binary and must always be
// valid Redcode.
func mustParse(source string) *Warrior {
	w, err := Parse(source)
	if err != nil {
		panic("redcode: invalid classic warrior source: " + err.Error())
	}
	return w
}

// Imp returns a fresh copy of the single-instruction imp warrior.
func Imp() *Warrior { return mustParse(ImpSource) }

// Dwarf returns a fresh copy of the classic memory-bombing dwarf.
func Dwarf() *Warrior { return mustParse(DwarfSource) }

// Mice returns a fresh copy of the self-replicating mice warrior.
func Mice() *Warrior { return mustParse(MiceSource) }

// Scanner returns a fresh copy of the scan-then-bomb warrior.
func Scanner() *Warrior { return mustParse(ScannerSource) }

// Classics returns all four reference warriors, keyed by lowercase name,
// used as the variation operator's fallback template pool and as the
// CLI's tournament roster.
func Classics() map[string]*Warrior {
	return map[string]*Warrior{
		"imp":     Imp(),
		"dwarf":   Dwarf(),
		"mice":    Mice(),
		"scanner": Scanner(),
	}
}
