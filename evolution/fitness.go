// Package evolution implements the fitness evaluator and the LLM-backed
// variation operator that the MAP-Elites loop and Red Queen controller
// drive.
package evolution

import (
	"math/rand"

	"github.com/corewars/drq/battle"
	"github.com/corewars/drq/mars"
	"github.com/corewars/drq/redcode"
)

// FitnessConfig configures battle parameters and the win/draw/loss
// point scale a challenger is scored on.
type FitnessConfig struct {
	mars.Config
	BattlesPerOpponent int
	WinScore           float64
	DrawScore          float64
	LossScore          float64
}

// DefaultFitnessConfig mirrors the reference 3/1/0 scoring scale at VM
// defaults with five rounds per opponent.
func DefaultFitnessConfig() FitnessConfig {
	return FitnessConfig{
		Config:             mars.DefaultConfig(),
		BattlesPerOpponent: 5,
		WinScore:           3.0,
		DrawScore:          1.0,
		LossScore:          0.0,
	}
}

// GeneralityReport summarizes a warrior's performance against a
// held-out test set.
type GeneralityReport struct {
	Generality float64
	WinRate    float64
	DrawRate   float64
	LossRate   float64
	Wins       int
	Draws      int
	Losses     int
}

// HeadToHeadResult names the winner of a multi-round head-to-head match
// and each side's projected win rate.
type HeadToHeadResult struct {
	Winner          string // "warrior1", "warrior2", or "draw"
	Warrior1WinRate float64
	Warrior2WinRate float64
}

// FitnessEvaluator scores a challenger against a set of opponents by
// running battles and converting outcomes to a normalized [0,1] score.
type FitnessEvaluator struct {
	Config FitnessConfig
	rng    *rand.Rand

	TotalEvaluations int
}

// NewFitnessEvaluator creates an evaluator using rng as its battle
// position sampler's random source.
func NewFitnessEvaluator(cfg FitnessConfig, rng *rand.Rand) *FitnessEvaluator {
	return &FitnessEvaluator{Config: cfg, rng: rng}
}

func (e *FitnessEvaluator) battleConfig(numRounds int) battle.Config {
	return battle.Config{Config: e.Config.Config, NumRounds: numRounds}
}

// Evaluate scores warrior against opponents: for each opponent a
// multi-round battle is run, awarding WinScore/DrawScore/LossScore
// points; fitness is the total divided by the maximum attainable score.
// Behavioral metrics are averaged from the warrior's (index 0) per-match
// metrics. An empty opponent set scores 0 with no metrics.
func (e *FitnessEvaluator) Evaluate(warrior *redcode.Warrior, opponents []*redcode.Warrior) (float64, mars.BehavioralMetrics) {
	if len(opponents) == 0 {
		return 0, mars.BehavioralMetrics{}
	}
	e.TotalEvaluations++

	b := battle.New(e.battleConfig(e.Config.BattlesPerOpponent), e.rng)

	totalScore := 0.0
	var sum mars.BehavioralMetrics
	matches := 0

	for _, opponent := range opponents {
		result := b.Run([]*redcode.Warrior{warrior, opponent})
		switch {
		case !result.IsDraw && result.WinnerID == 0:
			totalScore += e.Config.WinScore
		case result.IsDraw:
			totalScore += e.Config.DrawScore
		default:
			totalScore += e.Config.LossScore
		}
		if m, ok := result.Metrics[0]; ok {
			sum.MemoryCoverage += m.MemoryCoverage
			sum.ThreadsSpawned += m.ThreadsSpawned
			sum.InstructionsExecuted += m.InstructionsExecuted
			sum.MemoryWrites += m.MemoryWrites
			matches++
		}
	}

	maxScore := e.Config.WinScore * float64(len(opponents))
	fitness := 0.0
	if maxScore > 0 {
		fitness = totalScore / maxScore
	}

	avg := mars.BehavioralMetrics{}
	if matches > 0 {
		avg.MemoryCoverage = sum.MemoryCoverage / float64(matches)
		avg.ThreadsSpawned = sum.ThreadsSpawned / matches
		avg.InstructionsExecuted = sum.InstructionsExecuted / matches
		avg.MemoryWrites = sum.MemoryWrites / matches
	}
	return fitness, avg
}

// EvaluateGenerality battles warrior against each of testWarriors once
// and reports the win/draw/loss breakdown plus the combined generality
// score (wins + 0.5*draws)/total.
func (e *FitnessEvaluator) EvaluateGenerality(warrior *redcode.Warrior, testWarriors []*redcode.Warrior) GeneralityReport {
	if len(testWarriors) == 0 {
		return GeneralityReport{}
	}
	b := battle.New(e.battleConfig(e.Config.BattlesPerOpponent), e.rng)

	var wins, draws, losses int
	for _, opponent := range testWarriors {
		result := b.Run([]*redcode.Warrior{warrior, opponent})
		switch {
		case result.IsDraw:
			draws++
		case result.WinnerID == 0:
			wins++
		default:
			losses++
		}
	}

	total := float64(len(testWarriors))
	return GeneralityReport{
		Generality: (float64(wins) + 0.5*float64(draws)) / total,
		WinRate:    float64(wins) / total,
		DrawRate:   float64(draws) / total,
		LossRate:   float64(losses) / total,
		Wins:       wins,
		Draws:      draws,
		Losses:     losses,
	}
}

// HeadToHead runs a single numBattles-round match and reports the
// aggregate winner.
func (e *FitnessEvaluator) HeadToHead(warrior1, warrior2 *redcode.Warrior, numBattles int) HeadToHeadResult {
	b := battle.New(e.battleConfig(numBattles), e.rng)
	result := b.Run([]*redcode.Warrior{warrior1, warrior2})

	switch {
	case result.IsDraw:
		return HeadToHeadResult{Winner: "draw", Warrior1WinRate: 0.5, Warrior2WinRate: 0.5}
	case result.WinnerID == 0:
		return HeadToHeadResult{Winner: "warrior1", Warrior1WinRate: 1.0}
	default:
		return HeadToHeadResult{Winner: "warrior2", Warrior2WinRate: 1.0}
	}
}
