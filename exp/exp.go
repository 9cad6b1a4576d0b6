package exp

import (
	"fmt"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// fullLevel is the percent-of-level progress a completed level is worth.
const fullLevel = 100.0

// Snapshot is one calendar day's recorded state of a character.
type Snapshot struct {
	Date    time.Time
	Level   int
	ExpRate float64 // percent of the current level, [0, 100)
	Exp     int64
}

// DailyGain is the experience progress between two consecutive snapshots.
type DailyGain struct {
	Date        time.Time
	Level       int
	IsLevelUp   bool
	LevelDiff   int
	ExpGainRate float64

	// RawGainRate is the unclamped difference. It can be negative when the
	// upstream reading regressed and is kept for diagnostics only.
	RawGainRate float64
}

// Label formats the gain the way it is printed on chart cells.
func (g DailyGain) Label() string {
	if g.IsLevelUp {
		return fmt.Sprintf("%d↑\n+%.2f%%", g.LevelDiff, g.ExpGainRate)
	}
	return fmt.Sprintf("+%.3f%%", g.ExpGainRate)
}

// Aggregate computes one DailyGain per adjacent pair of snapshots.
// N snapshots always yield N-1 gains. Gaps between dates are not filled in:
// a pair is whatever two snapshots sit next to each other once sorted.
func Aggregate(snapshots []Snapshot) []DailyGain {
	if len(snapshots) < 2 {
		return nil
	}

	sorted := slices.Clone(snapshots)
	slices.SortStableFunc(sorted, func(a, b Snapshot) int {
		return a.Date.Compare(b.Date)
	})

	gains := make([]DailyGain, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gains = append(gains, Between(sorted[i-1], sorted[i]))
	}
	return gains
}

// Between computes the gain from prev to cur.
func Between(prev, cur Snapshot) DailyGain {
	var raw float64
	if cur.Level == prev.Level {
		raw = cur.ExpRate - prev.ExpRate
	} else {
		// Each level crossed resets the percent counter, so it contributes a
		// whole level of progress. A level drop goes through the same formula
		// and ends up clamped below.
		d := cur.Level - prev.Level
		raw = (fullLevel*float64(d) + cur.ExpRate) - prev.ExpRate
	}

	return DailyGain{
		Date:        cur.Date,
		Level:       cur.Level,
		IsLevelUp:   cur.Level > prev.Level,
		LevelDiff:   max(0, cur.Level-prev.Level),
		ExpGainRate: max(0, raw),
		RawGainRate: raw,
	}
}

// Summary condenses a run of gains for display.
type Summary struct {
	Days     int
	Total    float64
	Mean     float64
	Best     *DailyGain
	LevelUps int
}

// Summarize totals the clamped gains. An empty input yields a zero Summary.
func Summarize(gains []DailyGain) Summary {
	if len(gains) == 0 {
		return Summary{}
	}

	rates := make([]float64, len(gains))
	var levelUps int
	for i, g := range gains {
		rates[i] = g.ExpGainRate
		levelUps += g.LevelDiff
	}

	best := gains[floats.MaxIdx(rates)]
	return Summary{
		Days:     len(gains),
		Total:    floats.Sum(rates),
		Mean:     stat.Mean(rates, nil),
		Best:     &best,
		LevelUps: levelUps,
	}
}
