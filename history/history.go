// Package history decides which days to fetch for a character and collects
// the resulting snapshots into a complete, date-ordered series.
package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"maple-exp-bot/exp"
)

// ErrNoData is returned by a Fetcher when the API has no record for a date.
var ErrNoData = errors.New("no data for date")

// WeekDays is the length of the rolling window.
const WeekDays = 7

const defaultConcurrency = 4

// Request is one snapshot to fetch.
type Request struct {
	Date time.Time
	// Latest requests the current state without a date parameter. Only the
	// request for today is flagged.
	Latest bool
}

// Fetcher retrieves a single day's snapshot.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, ocid string, req Request) (exp.Snapshot, error)
}

// WeekPlan returns today plus the prior six days, oldest first.
func WeekPlan(now time.Time) []Request {
	today := truncateDay(now)
	plan := make([]Request, 0, WeekDays)
	for i := WeekDays - 1; i >= 0; i-- {
		plan = append(plan, Request{
			Date:   today.AddDate(0, 0, -i),
			Latest: i == 0,
		})
	}
	return plan
}

// MonthPlan returns every day of the month up to today, oldest first. Days
// after today are skipped, and today is requested without a date so it is
// fetched exactly once.
func MonthPlan(year int, month time.Month, now time.Time) []Request {
	today := truncateDay(now)
	first := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	next := first.AddDate(0, 1, 0)

	var plan []Request
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		if d.After(today) {
			break
		}
		plan = append(plan, Request{Date: d, Latest: d.Equal(today)})
	}
	return plan
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Collector runs a plan against a Fetcher.
type Collector struct {
	fetcher     Fetcher
	concurrency int
}

// Option configures a Collector.
type Option func(*Collector)

// WithConcurrency bounds the number of requests in flight.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewCollector creates a Collector.
func NewCollector(fetcher Fetcher, opts ...Option) *Collector {
	c := &Collector{
		fetcher:     fetcher,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches every request in the plan and returns the snapshots that
// exist, sorted by date. Days without data are left out. Any other error
// aborts the collection.
func (c *Collector) Collect(ctx context.Context, ocid string, plan []Request) ([]exp.Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	var (
		mu        sync.Mutex
		snapshots = make([]exp.Snapshot, 0, len(plan))
	)
	for _, req := range plan {
		req := req
		g.Go(func() error {
			snap, err := c.fetcher.FetchSnapshot(gctx, ocid, req)
			if errors.Is(err, ErrNoData) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch %s: %w", req.Date.Format(time.DateOnly), err)
			}

			// Latest responses are keyed on the day they were requested for.
			snap.Date = req.Date

			mu.Lock()
			snapshots = append(snapshots, snap)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(snapshots, func(a, b exp.Snapshot) int {
		return a.Date.Compare(b.Date)
	})
	return snapshots, nil
}
