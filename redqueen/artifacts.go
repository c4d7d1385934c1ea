package redqueen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func runDir(outputDir, runID string) string {
	return filepath.Join(outputDir, "run_"+runID)
}

type roundMetrics struct {
	Round            int                `json:"round"`
	ChampionName     string             `json:"champion_name"`
	Fitness          float64            `json:"fitness"`
	Metrics          map[string]float64 `json:"metrics"`
	ArchiveSize      int                `json:"archive_size"`
	TotalEvaluations int                `json:"total_evaluations"`
	FitnessCurve     []float64          `json:"fitness_curve"`
	VsHistory        map[string]float64 `json:"vs_history"`
}

// WriteRoundArtifacts writes a round's champion source and metrics
// sidecar under outputDir/run_<runID>/round_<NNN>/.
func WriteRoundArtifacts(outputDir, runID string, result RoundResult) error {
	dir := filepath.Join(runDir(outputDir, runID), fmt.Sprintf("round_%03d", result.RoundNumber))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	championPath := filepath.Join(dir, "champion.red")
	if err := os.WriteFile(championPath, []byte(result.Champion.String()), 0o644); err != nil {
		return err
	}

	metrics := roundMetrics{
		Round:        result.RoundNumber,
		ChampionName: result.Champion.Name,
		Fitness:      result.ChampionFitness,
		Metrics: map[string]float64{
			"memory_coverage":       result.ChampionMetrics.MemoryCoverage,
			"threads_spawned":       float64(result.ChampionMetrics.ThreadsSpawned),
			"instructions_executed": float64(result.ChampionMetrics.InstructionsExecuted),
			"memory_writes":         float64(result.ChampionMetrics.MemoryWrites),
		},
		ArchiveSize:      result.ArchiveSize,
		TotalEvaluations: result.TotalEvaluations,
		FitnessCurve:     result.BestFitnessCurve,
		VsHistory:        result.VsHistory,
	}

	raw, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "metrics.json"), raw, 0o644)
}

type summaryRoundEntry struct {
	Round       int     `json:"round"`
	Champion    string  `json:"champion"`
	Fitness     float64 `json:"fitness"`
	ArchiveSize int     `json:"archive_size"`
}

type summaryConfig struct {
	NumRounds           int `json:"num_rounds"`
	GenerationsPerRound int `json:"generations_per_round"`
	HistoryLength       int `json:"history_length"`
	CoreSize            int `json:"core_size"`
	MaxCycles           int `json:"max_cycles"`
}

type runSummary struct {
	RunID          string              `json:"run_id"`
	LLM            string              `json:"llm"`
	Config         summaryConfig       `json:"config"`
	Results        []summaryRoundEntry `json:"results"`
	GeneratorStats generatorStats      `json:"generator_stats"`
}

type generatorStats struct {
	Generations   int     `json:"generations"`
	Mutations     int     `json:"mutations"`
	ParseFailures int     `json:"parse_failures"`
	SuccessRate   float64 `json:"success_rate"`
}

// WriteRunSummary writes the every-champion listing and a top-level
// summary.json describing the whole run.
func WriteRunSummary(outputDir, runID string, c *Controller) error {
	dir := runDir(outputDir, runID)
	championsDir := filepath.Join(dir, "champions")
	if err := os.MkdirAll(championsDir, 0o755); err != nil {
		return err
	}

	for i, champion := range c.Champions {
		path := filepath.Join(championsDir, fmt.Sprintf("champion_%03d.red", i))
		if err := os.WriteFile(path, []byte(champion.String()), 0o644); err != nil {
			return err
		}
	}

	results := make([]summaryRoundEntry, len(c.RoundResults))
	for i, r := range c.RoundResults {
		results[i] = summaryRoundEntry{
			Round:       r.RoundNumber,
			Champion:    r.Champion.Name,
			Fitness:     r.ChampionFitness,
			ArchiveSize: r.ArchiveSize,
		}
	}

	summary := runSummary{
		RunID: runID,
		LLM:   c.Generator.Provider.Name(),
		Config: summaryConfig{
			NumRounds:           c.Config.NumRounds,
			GenerationsPerRound: c.Config.GenerationsPerRound,
			HistoryLength:       c.Config.HistoryLength,
			CoreSize:            c.Config.CoreSize,
			MaxCycles:           c.Config.MaxCycles,
		},
		Results: results,
		GeneratorStats: generatorStats{
			Generations:   c.Generator.Stats.Generations,
			Mutations:     c.Generator.Stats.Mutations,
			ParseFailures: c.Generator.Stats.ParseFailures,
			SuccessRate:   c.Generator.Stats.SuccessRate(),
		},
	}

	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.json"), raw, 0o644)
}
