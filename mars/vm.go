package mars

import (
	"github.com/golang/glog"

	"github.com/corewars/drq/redcode"
)

// Config bundles the VM defaults a battle overrides per run.
type Config struct {
	CoreSize     int // M
	MaxCycles    int // C_max
	MaxProcesses int // P_max
	MaxLength    int // L_max
	MinDistance  int
}

// DefaultConfig returns the external-interface defaults: M=8000,
// C_max=80000, P_max=8000, L_max=100, min_distance=100.
func DefaultConfig() Config {
	return Config{
		CoreSize:     8000,
		MaxCycles:    80000,
		MaxProcesses: 8000,
		MaxLength:    100,
		MinDistance:  100,
	}
}

// VM is one Memory Array Redcode Simulator instance: a core plus the
// warriors currently battling inside it. A VM is used for exactly one
// battle and discarded; it holds no state that survives past Run.
type VM struct {
	Config Config
	Core   *Core

	warriors     map[int]*WarriorState
	warriorOrder []int
	currentIdx   int

	Cycle   int
	Running bool
}

// NewVM allocates a fresh core and an empty warrior set.
func NewVM(cfg Config) *VM {
	return &VM{
		Config:   cfg,
		Core:     NewCore(cfg.CoreSize),
		warriors: make(map[int]*WarriorState),
	}
}

// LoadWarrior copies a warrior's instructions into the core at position
// and creates its runtime state, with a single process at its start
// offset. It reports false (and loads nothing) if the warrior exceeds
// MaxLength.
func (vm *VM) LoadWarrior(w *redcode.Warrior, position, warriorID int) bool {
	if w.Len() > vm.Config.MaxLength {
		return false
	}
	vm.Core.loadInstructions(w.Instructions, position, warriorID)
	startPC := vm.Core.Normalize(position + w.StartOffset)
	vm.warriors[warriorID] = newWarriorState(warriorID, w.Name, startPC)
	vm.warriorOrder = append(vm.warriorOrder, warriorID)
	return true
}

// Warrior returns the runtime state for a loaded warrior id, or nil.
func (vm *VM) Warrior(warriorID int) *WarriorState {
	return vm.warriors[warriorID]
}

// livingCount returns how many loaded warriors currently have a
// non-empty process queue.
func (vm *VM) livingCount() int {
	n := 0
	for _, ws := range vm.warriors {
		if ws.Alive {
			n++
		}
	}
	return n
}

// Step executes exactly one instruction belonging to the next living
// warrior in round-robin order. One call is one cycle: each warrior's
// instruction is counted on its own, not one turn of the whole warrior
// set. It reports whether the simulation should continue: false means
// the cycle cap was reached, no warrior is alive, or, when more than one
// warrior was loaded, at most one remains alive. A VM holding a single
// warrior keeps stepping until that warrior's queue empties.
func (vm *VM) Step() bool {
	if vm.Cycle >= vm.Config.MaxCycles {
		return false
	}
	living := vm.livingCount()
	if living == 0 {
		return false
	}
	if len(vm.warriorOrder) > 1 && living <= 1 {
		return false
	}

	var ws *WarriorState
	for i := 0; i < len(vm.warriorOrder); i++ {
		id := vm.warriorOrder[vm.currentIdx]
		candidate := vm.warriors[id]
		vm.currentIdx = (vm.currentIdx + 1) % len(vm.warriorOrder)
		if candidate.Alive {
			ws = candidate
			break
		}
	}
	if ws == nil {
		return false
	}

	vm.executeOne(ws)
	vm.Cycle++
	return true
}

// Run drives Step to completion and reports the winner's warrior id, or
// (0, false) for a draw (cycle cap reached, or every warrior died in the
// same final instruction).
func (vm *VM) Run() (winner int, ok bool) {
	vm.Running = true
	for vm.Step() {
	}
	vm.Running = false

	alive := 0
	for id, ws := range vm.warriors {
		if ws.Alive {
			alive++
			winner = id
		}
	}
	if alive == 1 {
		return winner, true
	}
	return 0, false
}

// BehavioralMetrics is the fixed-field replacement for the source's
// dynamic metric dictionary, published to the behavior descriptor.
type BehavioralMetrics struct {
	MemoryCoverage       float64
	ThreadsSpawned       int
	InstructionsExecuted int
	MemoryWrites         int
}

// Metrics returns the behavioral counters for a loaded warrior. It
// returns the zero value if warriorID was never loaded.
func (vm *VM) Metrics(warriorID int) BehavioralMetrics {
	ws, ok := vm.warriors[warriorID]
	if !ok {
		return BehavioralMetrics{}
	}
	return BehavioralMetrics{
		MemoryCoverage:       ws.MemoryCoverage(vm.Config.CoreSize),
		ThreadsSpawned:       ws.ThreadsSpawned,
		InstructionsExecuted: ws.InstructionsExecuted,
		MemoryWrites:         ws.MemoryWrites,
	}
}

// executeOne dequeues the warrior's front process, fetches and dispatches
// one instruction, and re-enqueues zero, one or two successor PCs per the
// opcode's semantics. Unknown opcodes never occur since redcode.Parse
// rejects them, so unlike the reference simulator this never falls back
// to a silent NOP.
func (vm *VM) executeOne(ws *WarriorState) {
	pc := ws.dequeue()
	ws.InstructionsExecuted++
	ws.MemoryAccessed[pc] = struct{}{}

	instr := vm.Core.Read(pc)
	nextPC := vm.Core.Normalize(pc + 1)

	aRes := vm.Core.resolveAddress(pc, instr.A.Mode, instr.A.Value, ws.WarriorID, ws)
	bRes := vm.Core.resolveAddress(pc, instr.B.Mode, instr.B.Value, ws.WarriorID, ws)

	src := vm.Core.Read(aRes.ptr)
	dst := vm.Core.Read(bRes.ptr)

	dispatch(vm, ws, instr, pc, nextPC, aRes, bRes, src, dst)

	ws.Alive = ws.QueueLen() > 0
	if !ws.Alive {
		glog.V(2).Infof("warrior %d (%s) died at pc=%d after %d instructions", ws.WarriorID, ws.Name, pc, ws.InstructionsExecuted)
	}
}

// Reset discards all loaded warriors and reallocates a fresh core,
// matching the reference simulator's full-state reset.
func (vm *VM) Reset() {
	vm.Core = NewCore(vm.Config.CoreSize)
	vm.warriors = make(map[int]*WarriorState)
	vm.warriorOrder = nil
	vm.currentIdx = 0
	vm.Cycle = 0
	vm.Running = false
}
