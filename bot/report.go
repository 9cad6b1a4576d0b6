package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maple-exp-bot/calendar"
	"maple-exp-bot/chart"
	"maple-exp-bot/exp"
	"maple-exp-bot/history"
	"maple-exp-bot/nexon"
)

// ErrNoMonthData is returned when a month has no recorded snapshots.
var ErrNoMonthData = errors.New("no data for month")

// CharacterLookup resolves characters against the game API.
type CharacterLookup interface {
	GetOCID(ctx context.Context, name string) (string, error)
	GetCharacterBasic(ctx context.Context, ocid string, date time.Time) (*nexon.CharacterBasic, error)
}

// HistoryCollector fetches a series of daily snapshots.
type HistoryCollector interface {
	Collect(ctx context.Context, ocid string, plan []history.Request) ([]exp.Snapshot, error)
}

// ChartRenderer draws PNG charts.
type ChartRenderer interface {
	RenderWeek(title string, points []chart.WeekPoint) ([]byte, error)
	RenderMonth(title string, m calendar.Month) ([]byte, error)
}

// WeeklyReport is the character card with the last seven days charted.
type WeeklyReport struct {
	Character *nexon.CharacterBasic
	Snapshots []exp.Snapshot
	Gains     []exp.DailyGain
	Summary   exp.Summary
	// Chart is nil when no day in the window has data.
	Chart []byte
}

// MonthlyReport is a month heatmap.
type MonthlyReport struct {
	Year  int
	Month time.Month
	Grid  calendar.Month
	Chart []byte
}

// Reports builds character reports from the API.
type Reports struct {
	chars  CharacterLookup
	hist   HistoryCollector
	charts ChartRenderer
	now    func() time.Time
}

// NewReports creates a report builder. now returns the current time in
// the timezone that defines calendar days.
func NewReports(chars CharacterLookup, hist HistoryCollector, charts ChartRenderer, now func() time.Time) *Reports {
	if now == nil {
		now = time.Now
	}
	return &Reports{chars: chars, hist: hist, charts: charts, now: now}
}

// Now returns the current time used for date plans.
func (r *Reports) Now() time.Time {
	return r.now()
}

// Info returns the latest basic info for a character.
func (r *Reports) Info(ctx context.Context, name string) (*nexon.CharacterBasic, error) {
	ocid, err := r.chars.GetOCID(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}
	basic, err := r.chars.GetCharacterBasic(ctx, ocid, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("character info: %w", err)
	}
	return basic, nil
}

// Weekly builds the card and 7-day chart.
func (r *Reports) Weekly(ctx context.Context, name string) (*WeeklyReport, error) {
	ocid, err := r.chars.GetOCID(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}
	basic, err := r.chars.GetCharacterBasic(ctx, ocid, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("character info: %w", err)
	}

	snapshots, err := r.hist.Collect(ctx, ocid, history.WeekPlan(r.now()))
	if err != nil {
		return nil, fmt.Errorf("collect week: %w", err)
	}

	gains := exp.Aggregate(snapshots)
	report := &WeeklyReport{
		Character: basic,
		Snapshots: snapshots,
		Gains:     gains,
		Summary:   exp.Summarize(gains),
	}
	if len(snapshots) == 0 {
		return report, nil
	}

	png, err := r.charts.RenderWeek(name+" exp history", WeekPoints(snapshots))
	if err != nil {
		return nil, fmt.Errorf("render week: %w", err)
	}
	report.Chart = png
	return report, nil
}

// Monthly builds the heatmap for one month.
func (r *Reports) Monthly(ctx context.Context, name string, year int, month time.Month) (*MonthlyReport, error) {
	ocid, err := r.chars.GetOCID(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}

	plan := history.MonthPlan(year, month, r.now())
	if len(plan) == 0 {
		return nil, ErrNoMonthData
	}
	snapshots, err := r.hist.Collect(ctx, ocid, plan)
	if err != nil {
		return nil, fmt.Errorf("collect month: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, ErrNoMonthData
	}

	grid := calendar.Build(exp.Aggregate(snapshots), year, month)
	title := fmt.Sprintf("%s exp gains %d-%02d", name, year, int(month))
	png, err := r.charts.RenderMonth(title, grid)
	if err != nil {
		return nil, fmt.Errorf("render month: %w", err)
	}
	return &MonthlyReport{Year: year, Month: month, Grid: grid, Chart: png}, nil
}

// WeekPoints converts snapshots into chart points labelled MM/DD.
func WeekPoints(snapshots []exp.Snapshot) []chart.WeekPoint {
	points := make([]chart.WeekPoint, len(snapshots))
	for i, s := range snapshots {
		points[i] = chart.WeekPoint{
			Label:   s.Date.Format("01/02"),
			ExpRate: s.ExpRate,
			Level:   s.Level,
		}
	}
	return points
}
