// Package redqueen implements the Digital Red Queen algorithm: rounds
// of MAP-Elites evolution where each round's champion must answer for
// its fitness against the accumulated history of prior champions.
package redqueen

import (
	"context"
	"fmt"
	"math/rand"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/corewars/drq/archive"
	"github.com/corewars/drq/evolution"
	"github.com/corewars/drq/llm"
	"github.com/corewars/drq/mars"
	"github.com/corewars/drq/redcode"
)

// DRQConfig configures one Digital Red Queen run.
type DRQConfig struct {
	NumRounds             int
	GenerationsPerRound   int
	InitialPopulationSize int
	BatchSize             int

	// HistoryLength selects the opponent set each round draws from:
	// -1 is the full champion history, 0 is only the most recent
	// champion, and k>0 is the last k champions.
	HistoryLength int

	CoreSize             int
	MaxCycles            int
	BattlesPerEvaluation int

	MemoryCoverageBins  int
	ThreadsSpawnedBins  int
	MaxThreadsExpected  int

	Temperature      float64
	MaxWarriorLength int

	OutputDir       string
	SaveCheckpoints bool
}

// DefaultDRQConfig mirrors the reference algorithm's defaults.
func DefaultDRQConfig() DRQConfig {
	return DRQConfig{
		NumRounds:             10,
		GenerationsPerRound:   50,
		InitialPopulationSize: 50,
		BatchSize:             10,
		HistoryLength:         -1,
		CoreSize:              8000,
		MaxCycles:             80000,
		BattlesPerEvaluation:  5,
		MemoryCoverageBins:    10,
		ThreadsSpawnedBins:    10,
		MaxThreadsExpected:    100,
		Temperature:           0.8,
		MaxWarriorLength:      50,
		OutputDir:             "./drq_output",
		SaveCheckpoints:       true,
	}
}

// RoundResult captures one round's champion and the statistics behind
// its selection.
type RoundResult struct {
	RoundNumber      int
	Champion         *redcode.Warrior
	ChampionFitness  float64
	ChampionMetrics  mars.BehavioralMetrics
	ArchiveSize      int
	TotalEvaluations int
	BestFitnessCurve []float64
	VsHistory        map[string]float64
}

// Controller runs the DRQ round loop, owning the champion history, the
// variation operator and the fitness evaluator shared across rounds.
type Controller struct {
	Config    DRQConfig
	Generator *evolution.VariationOperator
	Evaluator *evolution.FitnessEvaluator

	Champions    []*redcode.Warrior
	RoundResults []RoundResult

	rng *rand.Rand
}

// NewController builds a Controller. initialWarriors seeds the
// champion history; if empty, the bundled Imp and Dwarf classics seed
// it, matching the reference default.
func NewController(provider llm.Provider, cfg DRQConfig, initialWarriors []*redcode.Warrior, rng *rand.Rand) *Controller {
	genCfg := llm.GenerationConfig{
		Temperature:     cfg.Temperature,
		MaxTokens:       1024,
		MaxWarriorLines: cfg.MaxWarriorLength,
	}
	evalCfg := evolution.FitnessConfig{
		Config: mars.Config{
			CoreSize:     cfg.CoreSize,
			MaxCycles:    cfg.MaxCycles,
			MaxProcesses: 8000,
			MaxLength:    cfg.MaxWarriorLength,
			MinDistance:  100,
		},
		BattlesPerOpponent: cfg.BattlesPerEvaluation,
		WinScore:           3.0,
		DrawScore:          1.0,
		LossScore:          0.0,
	}

	champions := initialWarriors
	if len(champions) == 0 {
		champions = []*redcode.Warrior{redcode.Imp(), redcode.Dwarf()}
	}

	return &Controller{
		Config:    cfg,
		Generator: evolution.NewVariationOperator(provider, genCfg, rng, nil),
		Evaluator: evolution.NewFitnessEvaluator(evalCfg, rng),
		Champions: append([]*redcode.Warrior{}, champions...),
		rng:       rng,
	}
}

// opponents returns the current round's opponent set per HistoryLength.
func (c *Controller) opponents() []*redcode.Warrior {
	switch {
	case c.Config.HistoryLength < 0:
		return append([]*redcode.Warrior{}, c.Champions...)
	case c.Config.HistoryLength == 0:
		if len(c.Champions) == 0 {
			return nil
		}
		return c.Champions[len(c.Champions)-1:]
	default:
		k := c.Config.HistoryLength
		if k > len(c.Champions) {
			k = len(c.Champions)
		}
		return c.Champions[len(c.Champions)-k:]
	}
}

func (c *Controller) descriptor() archive.Descriptor {
	return archive.Descriptor{
		Axes: []archive.Axis{
			{Name: "memory_coverage", Min: 0, Max: 1, Bins: c.Config.MemoryCoverageBins},
			{Name: "threads_spawned", Min: 0, Max: float64(c.Config.MaxThreadsExpected), Bins: c.Config.ThreadsSpawnedBins},
		},
	}
}

// headToHeadJob is one opponent's vs_history contribution, threaded
// through the fan-in channel.
type headToHeadJob struct {
	key     string
	winRate float64
}

// vsHistory computes champion's win rate against every opponent
// concurrently, one goroutine per opponent, fanned into a single
// channel the way the reference reinforcement worker pool fans in
// episodes.
func (c *Controller) vsHistory(_ context.Context, champion *redcode.Warrior, opponents []*redcode.Warrior) map[string]float64 {
	done := make(chan struct{})
	defer close(done)

	workers := make([]<-chan headToHeadJob, 0, len(opponents))
	for _, opp := range opponents {
		opp := opp
		ch := make(chan headToHeadJob, 1)
		go func() {
			defer close(ch)
			h2h := c.Evaluator.HeadToHead(champion, opp, c.Config.BattlesPerEvaluation)
			job := headToHeadJob{key: "vs_" + opp.Name, winRate: h2h.Warrior1WinRate}
			select {
			case ch <- job:
			case <-done:
			}
		}()
		workers = append(workers, ch)
	}

	result := make(map[string]float64, len(opponents))
	for job := range channerics.Merge(done, workers...) {
		result[job.key] = job.winRate
	}
	return result
}

// runRound evolves one MAP-Elites archive against the current
// opponent set and returns its champion.
func (c *Controller) runRound(ctx context.Context, roundNum int) RoundResult {
	opponents := c.opponents()

	evaluate := func(w *redcode.Warrior) (float64, mars.BehavioralMetrics) {
		return c.Evaluator.Evaluate(w, opponents)
	}
	generate := func() *redcode.Warrior {
		return c.Generator.GenerateRandom(ctx)
	}
	mutate := func(w *redcode.Warrior) *redcode.Warrior {
		return c.Generator.Mutate(ctx, w)
	}

	elites := archive.New(c.descriptor(), c.Config.BatchSize, c.rng)
	elites.Initialize(c.Config.InitialPopulationSize, generate, evaluate)

	var curve []float64
	if best, ok := elites.GetBest(); ok {
		curve = append(curve, best.Fitness)
	}

	for gen := 0; gen < c.Config.GenerationsPerRound; gen++ {
		elites.Step(mutate, evaluate)
		if best, ok := elites.GetBest(); ok {
			curve = append(curve, best.Fitness)
		}
	}

	result := RoundResult{
		RoundNumber:      roundNum,
		BestFitnessCurve: curve,
		ArchiveSize:      elites.Size(),
		TotalEvaluations: elites.StatsSnapshot().TotalEvaluations,
	}

	champion, ok := elites.GetBest()
	if !ok {
		fallback := redcode.Dwarf().Clone()
		fallback.Name = fmt.Sprintf("Fallback_Round%d", roundNum)
		result.Champion = fallback
		result.ChampionFitness = 0
	} else {
		named := champion.Solution.Clone()
		named.Name = fmt.Sprintf("%s_R%d", named.Name, roundNum)
		result.Champion = named
		result.ChampionFitness = champion.Fitness
		result.ChampionMetrics = champion.Metrics
	}

	result.VsHistory = c.vsHistory(ctx, result.Champion, opponents)
	return result
}

// Run executes NumRounds rounds, appending each round's champion to
// the history before the next round's opponent set is drawn, and
// writing a checkpoint after each round when SaveCheckpoints is set.
func (c *Controller) Run(ctx context.Context, runID string) ([]*redcode.Warrior, error) {
	champions := make([]*redcode.Warrior, 0, c.Config.NumRounds)

	for round := 0; round < c.Config.NumRounds; round++ {
		result := c.runRound(ctx, round)
		c.RoundResults = append(c.RoundResults, result)
		c.Champions = append(c.Champions, result.Champion)
		champions = append(champions, result.Champion)

		if c.Config.SaveCheckpoints {
			if err := WriteRoundArtifacts(c.Config.OutputDir, runID, result); err != nil {
				return champions, fmt.Errorf("redqueen: writing round %d checkpoint: %w", round, err)
			}
		}
	}

	if err := WriteRunSummary(c.Config.OutputDir, runID, c); err != nil {
		return champions, fmt.Errorf("redqueen: writing run summary: %w", err)
	}
	return champions, nil
}

// EvaluateGenerality tests a champion (by history index; -1 is the
// most recent) against a held-out warrior set.
func (c *Controller) EvaluateGenerality(testWarriors []*redcode.Warrior, championIdx int) evolution.GeneralityReport {
	idx := championIdx
	if idx < 0 {
		idx = len(c.Champions) + idx
	}
	return c.Evaluator.EvaluateGenerality(c.Champions[idx], testWarriors)
}

// FitnessCurves returns each completed round's best-fitness trajectory,
// keyed by round number.
func (c *Controller) FitnessCurves() map[int][]float64 {
	curves := make(map[int][]float64, len(c.RoundResults))
	for _, r := range c.RoundResults {
		curves[r.RoundNumber] = r.BestFitnessCurve
	}
	return curves
}
