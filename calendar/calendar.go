// Package calendar lays daily experience gains out on a Monday-first month
// grid and assigns each day a heatmap intensity bucket.
package calendar

import (
	"fmt"
	"time"

	"maple-exp-bot/exp"
)

// NoBucket marks a slot with nothing to color: outside the month, or a day
// with no recorded gain. It is distinct from bucket 0 ("no activity").
const NoBucket = -1

// Buckets is the number of intensity levels, 0 through 4.
const Buckets = 5

// Cell is one (week, weekday) slot of the grid.
type Cell struct {
	Day    int // 0 for slots outside the month
	Gain   *exp.DailyGain
	Bucket int
}

// Empty reports whether the slot lies outside the month.
func (c Cell) Empty() bool {
	return c.Day == 0
}

// GainLabel is the text printed in the cell, empty when there is no
// positive gain to show.
func (c Cell) GainLabel() string {
	if c.Gain == nil || c.Gain.ExpGainRate <= 0 {
		return ""
	}
	return c.Gain.Label()
}

// Month is a month grid with its legend values.
type Month struct {
	Year       int
	Month      time.Month
	Weeks      [][7]Cell
	Max        float64
	Thresholds [3]float64
}

// LegendLabels describes each bucket for the heatmap legend.
func (m Month) LegendLabels() [Buckets]string {
	t := m.Thresholds
	return [Buckets]string{
		"no exp",
		fmt.Sprintf("<= %.2f%%", t[0]),
		fmt.Sprintf("<= %.2f%%", t[1]),
		fmt.Sprintf("<= %.2f%%", t[2]),
		fmt.Sprintf("> %.2f%%", t[2]),
	}
}

// Thresholds returns the bucket boundaries at 25%, 50% and 75% of max.
func Thresholds(max float64) [3]float64 {
	return [3]float64{max * 0.25, max * 0.5, max * 0.75}
}

// Bucket maps a gain to its intensity bucket for the given month maximum.
// It is monotonic in g and safe for max == 0.
func Bucket(g, max float64) int {
	t := Thresholds(max)
	switch {
	case g <= 0:
		return 0
	case g <= t[0]:
		return 1
	case g <= t[1]:
		return 2
	case g <= t[2]:
		return 3
	default:
		return 4
	}
}

// Build lays out gains for the given month. Gains dated outside the month
// are ignored.
func Build(gains []exp.DailyGain, year int, month time.Month) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := first.AddDate(0, 1, -1).Day()

	byDay := make(map[int]exp.DailyGain, len(gains))
	var maxGain float64
	for _, g := range gains {
		if g.Date.Year() != year || g.Date.Month() != month {
			continue
		}
		byDay[g.Date.Day()] = g
		maxGain = max(maxGain, g.ExpGainRate)
	}

	m := Month{
		Year:       year,
		Month:      month,
		Max:        maxGain,
		Thresholds: Thresholds(maxGain),
	}

	// Monday = 0
	offset := (int(first.Weekday()) + 6) % 7

	var week [7]Cell
	for i := range week {
		week[i] = Cell{Bucket: NoBucket}
	}
	col := offset
	for d := 1; d <= daysIn; d++ {
		cell := Cell{Day: d, Bucket: NoBucket}
		if g, ok := byDay[d]; ok {
			cell.Gain = &g
			cell.Bucket = Bucket(g.ExpGainRate, maxGain)
		}
		week[col] = cell

		col++
		if col == 7 {
			m.Weeks = append(m.Weeks, week)
			for i := range week {
				week[i] = Cell{Bucket: NoBucket}
			}
			col = 0
		}
	}
	if col > 0 {
		m.Weeks = append(m.Weeks, week)
	}

	return m
}
