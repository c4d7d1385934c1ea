package archive

import (
	"math/rand"
	"testing"

	"github.com/corewars/drq/mars"
	"github.com/corewars/drq/redcode"

	. "github.com/smartystreets/goconvey/convey"
)

func testDescriptor() Descriptor {
	return Descriptor{
		Axes: []Axis{
			{Name: "memory_coverage", Min: 0, Max: 1, Bins: 4},
			{Name: "threads_spawned", Min: 0, Max: 10, Bins: 4},
		},
	}
}

func TestMAPElitesIdempotence(t *testing.T) {
	Convey("Given an empty archive and a fixed candidate", t, func() {
		rng := rand.New(rand.NewSource(1))
		m := New(testDescriptor(), 4, rng)

		solution := redcode.Imp()
		fitness := 0.5
		metrics := mars.BehavioralMetrics{MemoryCoverage: 0.25, ThreadsSpawned: 2}

		Convey("admitting it twice changes the archive at most once, on the first call", func() {
			firstChanged := m.tryAdd(solution, fitness, metrics)
			sizeAfterFirst := m.Size()
			updatesAfterFirst := m.StatsSnapshot().ArchiveUpdates

			secondChanged := m.tryAdd(solution, fitness, metrics)

			So(firstChanged, ShouldBeTrue)
			So(sizeAfterFirst, ShouldEqual, 1)
			So(updatesAfterFirst, ShouldEqual, 1)

			So(secondChanged, ShouldBeFalse)
			So(m.Size(), ShouldEqual, sizeAfterFirst)
			So(m.StatsSnapshot().ArchiveUpdates, ShouldEqual, updatesAfterFirst)
		})

		Convey("a strictly worse duplicate is also refused", func() {
			m.tryAdd(solution, fitness, metrics)
			changed := m.tryAdd(solution, fitness-0.1, metrics)
			So(changed, ShouldBeFalse)
			So(m.Size(), ShouldEqual, 1)
		})
	})
}

func TestMAPElitesMonotonicity(t *testing.T) {
	Convey("Given an archive admitting a sequence of candidates with varying fitness", t, func() {
		rng := rand.New(rand.NewSource(2))
		m := New(testDescriptor(), 4, rng)

		fitnesses := []float64{0.2, 0.9, 0.1, 0.5, 0.95, 0.3}
		metrics := []mars.BehavioralMetrics{
			{MemoryCoverage: 0.1, ThreadsSpawned: 0},
			{MemoryCoverage: 0.4, ThreadsSpawned: 3},
			{MemoryCoverage: 0.6, ThreadsSpawned: 5},
			{MemoryCoverage: 0.1, ThreadsSpawned: 0},
			{MemoryCoverage: 0.9, ThreadsSpawned: 9},
			{MemoryCoverage: 0.4, ThreadsSpawned: 3},
		}

		Convey("best-fitness-ever is non-decreasing across admissions", func() {
			best := 0.0
			for i, f := range fitnesses {
				m.tryAdd(redcode.Imp(), f, metrics[i])
				snapshot := m.StatsSnapshot()
				So(snapshot.BestFitness, ShouldBeGreaterThanOrEqualTo, best)
				best = snapshot.BestFitness
			}
			So(best, ShouldEqual, 0.95)
		})

		Convey("best-fitness-ever is non-decreasing across Step calls", func() {
			generate := func() *redcode.Warrior { return redcode.Imp() }
			idx := 0
			evaluate := func(*redcode.Warrior) (float64, mars.BehavioralMetrics) {
				f := fitnesses[idx%len(fitnesses)]
				mm := metrics[idx%len(metrics)]
				idx++
				return f, mm
			}
			m.Initialize(2, generate, evaluate)

			best := m.StatsSnapshot().BestFitness
			for gen := 0; gen < 5; gen++ {
				mutate := func(w *redcode.Warrior) *redcode.Warrior { return w.Clone() }
				m.Step(mutate, evaluate)
				got := m.StatsSnapshot().BestFitness
				So(got, ShouldBeGreaterThanOrEqualTo, best)
				best = got
			}
		})
	})
}
