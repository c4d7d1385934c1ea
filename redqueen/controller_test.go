package redqueen

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/corewars/drq/llm"
	"github.com/corewars/drq/redcode"
)

func smallConfig(t *testing.T) DRQConfig {
	t.Helper()
	cfg := DefaultDRQConfig()
	cfg.NumRounds = 1
	cfg.GenerationsPerRound = 1
	cfg.InitialPopulationSize = 3
	cfg.BatchSize = 2
	cfg.CoreSize = 64
	cfg.MaxCycles = 300
	cfg.BattlesPerEvaluation = 1
	cfg.OutputDir = t.TempDir()
	cfg.SaveCheckpoints = true
	return cfg
}

func TestOpponentsHistoryWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	provider := llm.NewLocalProvider(rng, []string{"MOV.I 0, 1"})

	imp, dwarf, mice := redcode.Imp(), redcode.Dwarf(), redcode.Mice()

	full := smallConfig(t)
	full.HistoryLength = -1
	c := NewController(provider, full, []*redcode.Warrior{imp, dwarf, mice}, rng)
	if got := len(c.opponents()); got != 3 {
		t.Errorf("full history: len(opponents()) = %d, want 3", got)
	}

	lastOnly := smallConfig(t)
	lastOnly.HistoryLength = 0
	c = NewController(provider, lastOnly, []*redcode.Warrior{imp, dwarf, mice}, rng)
	opp := c.opponents()
	if len(opp) != 1 || opp[0] != mice {
		t.Errorf("last-only history: opponents() = %v, want [mice]", opp)
	}

	lastK := smallConfig(t)
	lastK.HistoryLength = 2
	c = NewController(provider, lastK, []*redcode.Warrior{imp, dwarf, mice}, rng)
	opp = c.opponents()
	if len(opp) != 2 || opp[0] != dwarf || opp[1] != mice {
		t.Errorf("last-2 history: opponents() = %v, want [dwarf, mice]", opp)
	}
}

func TestRunProducesChampionsAndArtifacts(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	provider := llm.NewLocalProvider(rng, []string{"MOV.I 0, 1\nJMP -1\n"})
	cfg := smallConfig(t)

	c := NewController(provider, cfg, nil, rng)
	champions, err := c.Run(context.Background(), "test-run")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(champions) != cfg.NumRounds {
		t.Errorf("len(champions) = %d, want %d", len(champions), cfg.NumRounds)
	}
	if len(c.Champions) != 2+cfg.NumRounds {
		t.Errorf("len(c.Champions) = %d, want %d (2 seed + %d rounds)", len(c.Champions), 2+cfg.NumRounds, cfg.NumRounds)
	}

	summaryPath := filepath.Join(cfg.OutputDir, "run_test-run", "summary.json")
	if _, err := os.Stat(summaryPath); err != nil {
		t.Errorf("expected summary.json at %s: %v", summaryPath, err)
	}
	championPath := filepath.Join(cfg.OutputDir, "run_test-run", "round_000", "champion.red")
	if _, err := os.Stat(championPath); err != nil {
		t.Errorf("expected champion.red at %s: %v", championPath, err)
	}
}

func TestEvaluateGeneralityNegativeIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	provider := llm.NewLocalProvider(rng, []string{"MOV.I 0, 1"})
	cfg := smallConfig(t)
	cfg.SaveCheckpoints = false

	c := NewController(provider, cfg, []*redcode.Warrior{redcode.Imp()}, rng)
	report := c.EvaluateGenerality([]*redcode.Warrior{redcode.Dwarf()}, -1)
	if report.Wins+report.Draws+report.Losses != 1 {
		t.Errorf("EvaluateGenerality tallies = %+v, want exactly one match", report)
	}
}
