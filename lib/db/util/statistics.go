// Package util
//
// This file contains the small amount of statistics the engines report
// through db.DatabaseInfo: spread of records over shards and a summary
// of sampled value sizes. All numbers are estimates taken from samples,
// they are meant for operators, not for correctness decisions.
package util

import (
	"math"
	"sort"
)

// ----------------------------------------------------------------------------
// Basic statistics
// ----------------------------------------------------------------------------

type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes mean, standard deviation (population), minimum and maximum of values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	s := Stats{Min: values[0], Max: values[0], MinMaxRatio: 1}

	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	var squares float64
	for _, v := range values {
		squares += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDeviation = math.Sqrt(squares / float64(len(values)))

	if s.Max > 0 {
		s.MinMaxRatio = s.Min / s.Max
	}
	return s
}

// DistributionStats describes how evenly records are spread over shards
type DistributionStats struct {
	Stats
	DistributionQuality float64 `json:"distribution_quality"` // 1 = perfectly even
}

// NewDistributionStats combines the coefficient of variation and the min/max ratio
// of the shard sizes into a single quality score between 0 and 1.
func NewDistributionStats(shardSizes []float64) DistributionStats {
	stats := NewStats(shardSizes)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	return DistributionStats{
		Stats:               stats,
		DistributionQuality: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}

// ----------------------------------------------------------------------------
// Value sizes
// ----------------------------------------------------------------------------

// SizeSummary summarises sampled value sizes in bytes
type SizeSummary struct {
	Samples int `json:"samples"`
	Average int `json:"average"`
	Median  int `json:"median"`
	P99     int `json:"p99"`
	Max     int `json:"max"`
}

// NewSizeSummary computes a SizeSummary. The slice is sorted in place.
func NewSizeSummary(sizes []int) SizeSummary {
	if len(sizes) == 0 {
		return SizeSummary{}
	}
	sort.Ints(sizes)

	total := 0
	for _, s := range sizes {
		total += s
	}

	return SizeSummary{
		Samples: len(sizes),
		Average: total / len(sizes),
		Median:  sizes[len(sizes)/2],
		P99:     sizes[int(math.Ceil(float64(len(sizes))*0.99))-1],
		Max:     sizes[len(sizes)-1],
	}
}
