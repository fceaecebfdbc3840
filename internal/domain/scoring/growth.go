package scoring

import (
	"math"
	"sort"
)

// GrowthPercentage returns the relative change from prev to curr in percent.
// A zero previous window reads as 100% growth when anything was observed
// now, and as flat otherwise.
func GrowthPercentage(prev, curr float64) float64 {
	if prev == 0 {
		if curr > 0 {
			return 100
		}
		return 0
	}
	return (curr - prev) / prev * 100
}

// Bucket awards Points to any value at or above Min.
type Bucket struct {
	Min    float64
	Points float64
}

// Table is a threshold table ordered by descending Min. Tables should end
// with a math.Inf(-1) catch-all.
type Table []Bucket

// NewTable builds a Table from a threshold->points mapping.
func NewTable(thresholds map[float64]float64) Table {
	t := make(Table, 0, len(thresholds))
	for threshold, pts := range thresholds {
		t = append(t, Bucket{Min: threshold, Points: pts})
	}
	sort.Slice(t, func(i, j int) bool { return t[i].Min > t[j].Min })
	return t
}

// BucketByThreshold returns the points of the highest threshold that is <= value,
// or 0 when nothing matches.
func BucketByThreshold(value float64, table Table) float64 {
	for _, b := range table {
		if value >= b.Min {
			return b.Points
		}
	}
	return 0
}

var (
	organicGrowthTable = NewTable(map[float64]float64{ //nolint:gochecknoglobals // static table
		30: 20, 15: 16, 5: 12, 0: 8, -10: 4, math.Inf(-1): 0,
	})
	trafficGrowthTable = NewTable(map[float64]float64{ //nolint:gochecknoglobals // static table
		30: 15, 15: 12, 5: 9, 0: 6, -10: 3, math.Inf(-1): 0,
	})
	pageSpeedTable = NewTable(map[float64]float64{ //nolint:gochecknoglobals // static table
		90: 10, 80: 8, 70: 6, 60: 4, math.Inf(-1): 2,
	})
	// Error counts score better when lower, so the table is keyed on the
	// negated total: -errors >= -5 is errors <= 5.
	errorCountTable = NewTable(map[float64]float64{ //nolint:gochecknoglobals // static table
		0: 10, -5: 8, -15: 5, -40: 2, math.Inf(-1): 0,
	})
)

func clamp(lo, hi, v float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// Round2 rounds v to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
