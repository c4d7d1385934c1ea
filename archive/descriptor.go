// Package archive implements the behavior descriptor projection and the
// MAP-Elites quality-diversity archive that drives the evolution loop.
package archive

import (
	"strconv"
	"strings"

	"github.com/corewars/drq/mars"
)

// Axis is one dimension of a behavior descriptor: a named metric
// clamped to [Min, Max] and discretized into Bins buckets.
type Axis struct {
	Name string
	Min  float64
	Max  float64
	Bins int
}

// Descriptor is an ordered list of axes projecting a warrior's runtime
// metrics onto an archive cell.
type Descriptor struct {
	Axes []Axis
}

// DefaultDescriptor returns the DRQ-paper default axes: memory_coverage
// in [0,1] over 10 bins, threads_spawned in [0,100] over 10 bins.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Axes: []Axis{
			{Name: "memory_coverage", Min: 0, Max: 1, Bins: 10},
			{Name: "threads_spawned", Min: 0, Max: 100, Bins: 10},
		},
	}
}

// CellIndex is the discretized coordinate of one archive cell, one int
// per axis, used as a map key.
type CellIndex string

// metricValue extracts axis's raw value from a behavioral metrics
// snapshot. Unknown axis names project to the axis minimum, matching
// the source's dict.get(name, min_val) fallback.
func metricValue(axis Axis, m mars.BehavioralMetrics) float64 {
	switch axis.Name {
	case "memory_coverage":
		return m.MemoryCoverage
	case "threads_spawned":
		return float64(m.ThreadsSpawned)
	case "instructions_executed":
		return float64(m.InstructionsExecuted)
	case "memory_writes":
		return float64(m.MemoryWrites)
	default:
		return axis.Min
	}
}

// Project clamps and bins a metrics snapshot into a CellIndex, one bin
// index per axis: clamp into [min, max], then
// floor(normalized * (bins-1)) clamped to [0, bins-1].
func (d Descriptor) Project(m mars.BehavioralMetrics) CellIndex {
	indices := make([]int, len(d.Axes))
	for i, axis := range d.Axes {
		v := metricValue(axis, m)
		if v < axis.Min {
			v = axis.Min
		}
		if v > axis.Max {
			v = axis.Max
		}
		bin := 0
		if axis.Max > axis.Min {
			normalized := (v - axis.Min) / (axis.Max - axis.Min)
			bin = int(normalized * float64(axis.Bins-1))
			if bin >= axis.Bins {
				bin = axis.Bins - 1
			}
			if bin < 0 {
				bin = 0
			}
		}
		indices[i] = bin
	}
	return encodeIndex(indices)
}

// Shape returns the bin count of each axis, in order.
func (d Descriptor) Shape() []int {
	shape := make([]int, len(d.Axes))
	for i, a := range d.Axes {
		shape[i] = a.Bins
	}
	return shape
}

func encodeIndex(indices []int) CellIndex {
	var b strings.Builder
	for i, v := range indices {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return CellIndex(b.String())
}
