// Package battle runs Core War matches inside a mars.VM: random
// non-overlapping placement, multi-round aggregation, and round-robin
// tournaments.
package battle

import (
	"math"
	"math/rand"

	"github.com/corewars/drq/mars"
	"github.com/corewars/drq/redcode"
)

// Config bundles battle-wide parameters, a superset of mars.Config plus
// the number of rounds averaged per BattleResult.
type Config struct {
	mars.Config
	NumRounds int
}

// DefaultConfig returns VM defaults with a single round per battle.
func DefaultConfig() Config {
	return Config{Config: mars.DefaultConfig(), NumRounds: 1}
}

// Result is the outcome of a (possibly multi-round) battle between two
// or more warriors.
type Result struct {
	WinnerID    int
	IsDraw      bool
	WarriorIDs  []int
	Names       map[int]string
	Cycles      int
	Metrics     map[int]mars.BehavioralMetrics
}

// WinnerName returns the winning warrior's name, or "Draw".
func (r Result) WinnerName() string {
	if r.IsDraw {
		return "Draw"
	}
	return r.Names[r.WinnerID]
}

// maxPlacementAttempts bounds the random-position rejection sampler
// before falling back to equal spacing.
const maxPlacementAttempts = 1000

// generatePositions samples starting positions uniformly in [0,
// coreSize), rejecting a candidate unless its circular distance from
// every already-placed warrior exceeds max(len(other), len(new)) +
// minDistance. After maxPlacementAttempts rejections it falls back to
// equal spacing.
func generatePositions(rng *rand.Rand, coreSize int, lengths []int, minDistance int) []int {
	positions := make([]int, 0, len(lengths))
	attempts := 0

	for len(positions) < len(lengths) && attempts < maxPlacementAttempts {
		pos := rng.Intn(coreSize)
		valid := true
		for i, other := range positions {
			dist1 := abs(pos - other)
			dist2 := coreSize - dist1
			minDist := dist1
			if dist2 < minDist {
				minDist = dist2
			}
			required := maxInt(lengths[i], lengths[len(positions)]) + minDistance
			if minDist <= required {
				valid = false
				break
			}
		}
		if valid {
			positions = append(positions, pos)
		} else {
			attempts++
		}
	}

	if len(positions) < len(lengths) {
		spacing := coreSize / len(lengths)
		positions = make([]int, len(lengths))
		for i := range positions {
			positions[i] = i * spacing
		}
	}
	return positions
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Battle runs matches between a fixed set of warriors using a shared
// configuration and random source.
type Battle struct {
	Config Config
	rng    *rand.Rand
}

// New creates a Battle. rng must not be shared concurrently across
// goroutines; callers running matches in parallel should give each
// goroutine its own Battle (and rng) — see RunTournament.
func New(cfg Config, rng *rand.Rand) *Battle {
	return &Battle{Config: cfg, rng: rng}
}

// Run executes Config.NumRounds independent rounds of warriors battling
// in a fresh mars.VM each round, and aggregates wins, draws, and
// per-warrior metric averages. It requires at least two warriors.
func (b *Battle) Run(warriors []*redcode.Warrior) Result {
	if len(warriors) < 2 {
		panic("battle: need at least 2 warriors")
	}

	wins := make([]int, len(warriors))
	draws := 0
	totalCycles := 0
	sums := make([]mars.BehavioralMetrics, len(warriors))
	counts := make([]int, len(warriors))

	lengths := make([]int, len(warriors))
	for i, w := range warriors {
		lengths[i] = w.Len()
	}

	for round := 0; round < b.Config.NumRounds; round++ {
		vm := mars.NewVM(b.Config.Config)
		positions := generatePositions(b.rng, b.Config.CoreSize, lengths, b.Config.MinDistance)
		for i, w := range warriors {
			vm.LoadWarrior(w, positions[i], i)
		}

		winner, ok := vm.Run()
		totalCycles += vm.Cycle
		if ok {
			wins[winner]++
		} else {
			draws++
		}

		for i := range warriors {
			m := vm.Metrics(i)
			sums[i].MemoryCoverage += m.MemoryCoverage
			sums[i].ThreadsSpawned += m.ThreadsSpawned
			sums[i].InstructionsExecuted += m.InstructionsExecuted
			sums[i].MemoryWrites += m.MemoryWrites
			counts[i]++
		}
	}

	maxWins := 0
	for _, w := range wins {
		if w > maxWins {
			maxWins = w
		}
	}
	leaders := 0
	leaderID := -1
	for i, w := range wins {
		if w == maxWins {
			leaders++
			leaderID = i
		}
	}

	res := Result{
		IsDraw:     true,
		WarriorIDs: make([]int, len(warriors)),
		Names:      make(map[int]string, len(warriors)),
		Cycles:     totalCycles / b.Config.NumRounds,
		Metrics:    make(map[int]mars.BehavioralMetrics, len(warriors)),
	}
	if leaders == 1 && maxWins > draws {
		res.IsDraw = false
		res.WinnerID = leaderID
	}
	for i, w := range warriors {
		res.WarriorIDs[i] = i
		res.Names[i] = w.Name
		n := counts[i]
		if n == 0 {
			continue
		}
		res.Metrics[i] = mars.BehavioralMetrics{
			MemoryCoverage:       sums[i].MemoryCoverage / float64(n),
			ThreadsSpawned:       divRound(sums[i].ThreadsSpawned, n),
			InstructionsExecuted: divRound(sums[i].InstructionsExecuted, n),
			MemoryWrites:         divRound(sums[i].MemoryWrites, n),
		}
	}
	return res
}

// divRound averages an integer counter across n rounds, rounding to the
// nearest integer rather than truncating, since these are published as
// behavior-descriptor axes where systematic truncation would bias the
// low bins.
func divRound(total, n int) int {
	return int(math.Round(float64(total) / float64(n)))
}
