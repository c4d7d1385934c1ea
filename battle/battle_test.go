package battle

import (
	"math/rand"
	"testing"

	"github.com/corewars/drq/mars"
	"github.com/corewars/drq/redcode"
)

func smallConfig() Config {
	return Config{
		Config: mars.Config{
			CoreSize:     8,
			MaxCycles:    64,
			MaxProcesses: 8000,
			MaxLength:    100,
			MinDistance:  1,
		},
		NumRounds: 1,
	}
}

func TestImpVsEmptyCore(t *testing.T) {
	vm := mars.NewVM(mars.Config{CoreSize: 8, MaxCycles: 64, MaxProcesses: 8000, MaxLength: 100})
	imp, err := redcode.Parse("MOV.I $0, $1\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	vm.LoadWarrior(imp, 0, 0)

	for i := 0; i < 10 && vm.Step(); i++ {
	}

	for addr := 0; addr < 8; addr++ {
		if vm.Core.Owner(addr) != 0 {
			t.Errorf("addr %d owner = %d, want 0 after imp sweep", addr, vm.Core.Owner(addr))
		}
	}
	m := vm.Metrics(0)
	if m.MemoryWrites < 8 {
		t.Errorf("memory writes = %d, want >= 8", m.MemoryWrites)
	}
}

func TestDatSuicide(t *testing.T) {
	vm := mars.NewVM(mars.Config{CoreSize: 8, MaxCycles: 64, MaxProcesses: 8000, MaxLength: 100})
	dat, _ := redcode.Parse("DAT.F #0, #0\n")
	other, _ := redcode.Parse("JMP 0\n")
	vm.LoadWarrior(dat, 0, 0)
	vm.LoadWarrior(other, 4, 1)

	vm.Step()

	ws := vm.Warrior(0)
	if ws.Alive {
		t.Error("warrior 0 should be dead after executing DAT")
	}
	if ws.QueueLen() != 0 {
		t.Errorf("queue length = %d, want 0", ws.QueueLen())
	}
	if ws.InstructionsExecuted != 1 {
		t.Errorf("instructions executed = %d, want 1", ws.InstructionsExecuted)
	}
}

func TestDivByZeroKillsProcess(t *testing.T) {
	vm := mars.NewVM(mars.Config{CoreSize: 8, MaxCycles: 64, MaxProcesses: 8000, MaxLength: 100})
	w, err := redcode.Parse("DIV.AB #0, $1\nDAT.F #0, #0\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	other, _ := redcode.Parse("JMP 0\n")
	vm.LoadWarrior(w, 0, 0)
	vm.LoadWarrior(other, 4, 1)

	before := vm.Core.Read(1)
	vm.Step()
	after := vm.Core.Read(1)

	ws := vm.Warrior(0)
	if ws.Alive {
		t.Error("warrior should be dead after DIV by zero")
	}
	if !before.Equal(after) {
		t.Errorf("cell at pc1 changed: before=%+v after=%+v", before, after)
	}
}

func TestSplAtCap(t *testing.T) {
	vm := mars.NewVM(mars.Config{CoreSize: 8, MaxCycles: 64, MaxProcesses: 2, MaxLength: 100})
	w, err := redcode.Parse("SPL $0, $0\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	other, _ := redcode.Parse("JMP 0\n")
	vm.LoadWarrior(w, 0, 0)
	vm.LoadWarrior(other, 4, 1)

	vm.Step()
	vm.Step()

	ws := vm.Warrior(0)
	if ws.QueueLen() != 2 {
		t.Errorf("queue length = %d, want 2", ws.QueueLen())
	}
	if ws.ThreadsSpawned != 1 {
		t.Errorf("threads spawned = %d, want 1", ws.ThreadsSpawned)
	}
}

func TestPostIncrementSnapshot(t *testing.T) {
	vm := mars.NewVM(mars.Config{CoreSize: 8, MaxCycles: 64, MaxProcesses: 8000, MaxLength: 100})
	w, err := redcode.Parse("MOV.I >1, $2\nDAT.F #0, #0\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	other, _ := redcode.Parse("JMP 0\n")
	vm.LoadWarrior(w, 0, 0)
	vm.LoadWarrior(other, 5, 1)

	vm.Step()

	cell1 := vm.Core.Read(1)
	if cell1.B.Value != 1 {
		t.Errorf("cell1.B.Value = %d, want 1 (post-incremented)", cell1.B.Value)
	}
	cell2 := vm.Core.Read(2)
	if cell2.A.Value != 0 {
		t.Errorf("cell2.A.Value = %d, want 0 (pre-increment snapshot)", cell2.A.Value)
	}
}

func TestTournamentScoring(t *testing.T) {
	cfg := smallConfig()
	cfg.CoreSize = 100
	cfg.MaxCycles = 2000
	cfg.MinDistance = 10
	rng := rand.New(rand.NewSource(1))

	dominator, _ := redcode.Parse("ADD.AB #4, 3\nMOV.I  2, @2\nJMP    -2\nDAT    #0, #0\n")
	weak, _ := redcode.Parse("DAT #0, #0\n")

	stats := RunTournament(cfg, rng, []*redcode.Warrior{dominator, weak}, 10)
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}
	if stats[0].Points != 3*float64(stats[0].Wins)+float64(stats[0].Draws) {
		t.Errorf("dominator points = %v, wins=%d draws=%d", stats[0].Points, stats[0].Wins, stats[0].Draws)
	}
	if stats[0].Wins == 0 {
		t.Error("expected the dominator to win at least one round against a suicidal warrior")
	}
}

func TestGeneratePositionsRespectsMinDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	positions := generatePositions(rng, 1000, []int{10, 10, 10}, 50)
	if len(positions) != 3 {
		t.Fatalf("len(positions) = %d, want 3", len(positions))
	}
	for i := range positions {
		for j := range positions {
			if i == j {
				continue
			}
			d1 := abs(positions[i] - positions[j])
			d2 := 1000 - d1
			minDist := d1
			if d2 < minDist {
				minDist = d2
			}
			if minDist < 60 {
				t.Errorf("positions %d,%d too close: %d < 60", positions[i], positions[j], minDist)
			}
		}
	}
}
