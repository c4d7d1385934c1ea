package archive

import (
	"context"
	"math/rand"
	"sync"

	"github.com/joeycumines/go-microbatch"

	"github.com/corewars/drq/mars"
	"github.com/corewars/drq/redcode"
)

// EliteCell is one archive slot: the fittest solution found for that
// behavioral niche so far.
type EliteCell struct {
	Solution   *redcode.Warrior
	Fitness    float64
	Metrics    mars.BehavioralMetrics
	Generation int
}

// Stats mirrors the fixed counters published alongside the archive.
type Stats struct {
	TotalEvaluations int
	ArchiveUpdates   int
	BestFitness      float64
	ArchiveSize      int
}

// GenerateFn produces a random candidate warrior, backed by the
// variation operator's generate-random port.
type GenerateFn func() *redcode.Warrior

// MutateFn produces an offspring from a parent warrior.
type MutateFn func(*redcode.Warrior) *redcode.Warrior

// EvaluateFn scores a candidate warrior, returning its fitness in [0,1]
// and the behavioral metrics the descriptor projects.
type EvaluateFn func(*redcode.Warrior) (float64, mars.BehavioralMetrics)

// MAPElites maintains one elite per behavioral niche. Admission
// (_try_add in the source) is always serialized; Step's batch of
// candidate evaluations runs concurrently and admits sequentially
// against a stable snapshot, matching spec.md's "archive admission is
// the single serialization point per generation".
type MAPElites struct {
	Descriptor Descriptor
	BatchSize  int
	rng        *rand.Rand

	mu         sync.Mutex
	cells      map[CellIndex]EliteCell
	generation int
	stats      Stats
}

// New creates an empty archive over the given descriptor and batch
// size, using rng for elite sampling.
func New(descriptor Descriptor, batchSize int, rng *rand.Rand) *MAPElites {
	return &MAPElites{
		Descriptor: descriptor,
		BatchSize:  batchSize,
		rng:        rng,
		cells:      make(map[CellIndex]EliteCell),
	}
}

// Initialize populates the archive by calling generate pInit times and
// trying to admit each candidate.
func (m *MAPElites) Initialize(pInit int, generate GenerateFn, evaluate EvaluateFn) {
	for i := 0; i < pInit; i++ {
		candidate := generate()
		fitness, metrics := evaluate(candidate)
		m.tryAdd(candidate, fitness, metrics)
	}
}

// tryAdd admits a candidate if its cell is empty or the candidate beats
// the incumbent's fitness. It reports whether the archive changed.
func (m *MAPElites) tryAdd(solution *redcode.Warrior, fitness float64, metrics mars.BehavioralMetrics) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.Descriptor.Project(metrics)
	m.stats.TotalEvaluations++

	incumbent, present := m.cells[key]
	if present && fitness <= incumbent.Fitness {
		return false
	}

	m.cells[key] = EliteCell{
		Solution:   solution,
		Fitness:    fitness,
		Metrics:    metrics,
		Generation: m.generation,
	}
	m.stats.ArchiveUpdates++
	m.stats.ArchiveSize = len(m.cells)
	if fitness > m.stats.BestFitness {
		m.stats.BestFitness = fitness
	}
	return true
}

// SampleElite returns a uniformly random elite, or false if the archive
// is empty.
func (m *MAPElites) SampleElite() (EliteCell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.cells) == 0 {
		return EliteCell{}, false
	}
	idx := m.rng.Intn(len(m.cells))
	i := 0
	for _, cell := range m.cells {
		if i == idx {
			return cell, true
		}
		i++
	}
	panic("unreachable")
}

// GetBest returns the elite of maximal fitness, or false if the archive
// is empty. Ties are broken by map iteration order, which Go randomizes
// per run but is stable within a single call.
func (m *MAPElites) GetBest() (EliteCell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best EliteCell
	found := false
	for _, cell := range m.cells {
		if !found || cell.Fitness > best.Fitness {
			best = cell
			found = true
		}
	}
	return best, found
}

// Size returns the current archive size.
func (m *MAPElites) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cells)
}

// StatsSnapshot returns a copy of the running statistics.
func (m *MAPElites) StatsSnapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// offspringJob is one Step candidate: a mutated solution awaiting
// evaluation and admission.
type offspringJob struct {
	candidate *redcode.Warrior
	fitness   float64
	metrics   mars.BehavioralMetrics
}

// Step runs one generation: samples BatchSize parents, mutates each,
// evaluates the batch concurrently via a microbatch.Batcher sized to
// flush in a single shot, then admits every result sequentially. It
// returns the number of admissions.
func (m *MAPElites) Step(mutate MutateFn, evaluate EvaluateFn) int {
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()

	parents := make([]*redcode.Warrior, 0, m.BatchSize)
	for i := 0; i < m.BatchSize; i++ {
		elite, ok := m.SampleElite()
		if !ok {
			continue
		}
		parents = append(parents, elite.Solution)
	}
	if len(parents) == 0 {
		return 0
	}

	jobs := make([]*offspringJob, len(parents))
	for i, parent := range parents {
		jobs[i] = &offspringJob{candidate: mutate(parent)}
	}

	processor := func(_ context.Context, batch []*offspringJob) error {
		var wg sync.WaitGroup
		for _, job := range batch {
			job := job
			wg.Add(1)
			go func() {
				defer wg.Done()
				job.fitness, job.metrics = evaluate(job.candidate)
			}()
		}
		wg.Wait()
		return nil
	}

	batcher := microbatch.NewBatcher(&microbatch.BatcherConfig{
		MaxSize:        len(jobs),
		MaxConcurrency: 1,
	}, processor)
	defer batcher.Close()

	ctx := context.Background()
	results := make([]*microbatch.JobResult[*offspringJob], len(jobs))
	for i, job := range jobs {
		res, err := batcher.Submit(ctx, job)
		if err != nil {
			continue
		}
		results[i] = res
	}

	admitted := 0
	for i, res := range results {
		if res == nil {
			continue
		}
		if err := res.Wait(ctx); err != nil {
			continue
		}
		job := jobs[i]
		if m.tryAdd(job.candidate, job.fitness, job.metrics) {
			admitted++
		}
	}
	return admitted
}
