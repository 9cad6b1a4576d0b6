package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maple-exp-bot/exp"
)

var kst = time.FixedZone("KST", 9*60*60)

type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string]exp.Snapshot
	fail  map[string]error
	calls []Request
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, ocid string, req Request) (exp.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	key := req.Date.Format(time.DateOnly)
	if err, ok := f.fail[key]; ok {
		return exp.Snapshot{}, err
	}
	if s, ok := f.data[key]; ok {
		return s, nil
	}
	return exp.Snapshot{}, ErrNoData
}

func TestWeekPlan(t *testing.T) {
	now := time.Date(2024, time.March, 3, 15, 30, 0, 0, kst)
	plan := WeekPlan(now)

	require.Len(t, plan, WeekDays)
	assert.Equal(t, "2024-02-26", plan[0].Date.Format(time.DateOnly))
	assert.Equal(t, "2024-03-03", plan[6].Date.Format(time.DateOnly))

	latest := 0
	for _, r := range plan {
		if r.Latest {
			latest++
		}
	}
	assert.Equal(t, 1, latest)
	assert.True(t, plan[6].Latest)
}

func TestMonthPlanPastMonth(t *testing.T) {
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, kst)
	plan := MonthPlan(2024, time.February, now)

	require.Len(t, plan, 29)
	assert.Equal(t, 1, plan[0].Date.Day())
	assert.Equal(t, 29, plan[28].Date.Day())
	for _, r := range plan {
		assert.False(t, r.Latest)
	}
}

func TestMonthPlanCurrentMonthSkipsFuture(t *testing.T) {
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, kst)
	plan := MonthPlan(2024, time.March, now)

	require.Len(t, plan, 10)
	last := plan[len(plan)-1]
	assert.Equal(t, 10, last.Date.Day())
	assert.True(t, last.Latest)
	for _, r := range plan[:len(plan)-1] {
		assert.False(t, r.Latest)
	}
}

func TestMonthPlanDecember(t *testing.T) {
	now := time.Date(2025, time.January, 5, 0, 0, 0, 0, kst)
	plan := MonthPlan(2024, time.December, now)

	require.Len(t, plan, 31)
	assert.Equal(t, time.December, plan[30].Date.Month())
}

func TestMonthPlanFutureMonth(t *testing.T) {
	now := time.Date(2024, time.March, 10, 0, 0, 0, 0, kst)
	assert.Empty(t, MonthPlan(2024, time.April, now))
}

func TestCollectOmitsMissingDays(t *testing.T) {
	now := time.Date(2024, time.March, 3, 12, 0, 0, 0, kst)
	f := &fakeFetcher{data: map[string]exp.Snapshot{
		"2024-03-01": {Level: 100, ExpRate: 10},
		"2024-03-03": {Level: 100, ExpRate: 30},
		"2024-02-28": {Level: 99, ExpRate: 90},
	}}

	snaps, err := NewCollector(f, WithConcurrency(2)).Collect(context.Background(), "ocid", WeekPlan(now))
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "2024-02-28", snaps[0].Date.Format(time.DateOnly))
	assert.Equal(t, "2024-03-01", snaps[1].Date.Format(time.DateOnly))
	assert.Equal(t, "2024-03-03", snaps[2].Date.Format(time.DateOnly))
	assert.Len(t, f.calls, WeekDays)
}

func TestCollectPropagatesErrors(t *testing.T) {
	now := time.Date(2024, time.March, 3, 12, 0, 0, 0, kst)
	boom := errors.New("upstream 500")
	f := &fakeFetcher{
		data: map[string]exp.Snapshot{"2024-03-01": {Level: 1}},
		fail: map[string]error{"2024-02-29": boom},
	}

	_, err := NewCollector(f).Collect(context.Background(), "ocid", WeekPlan(now))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestCollectEmpty(t *testing.T) {
	snaps, err := NewCollector(&fakeFetcher{}).Collect(context.Background(), "ocid", nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestCollectKeysLatestOnRequestDate(t *testing.T) {
	now := time.Date(2024, time.March, 3, 12, 0, 0, 0, kst)
	f := &fakeFetcher{data: map[string]exp.Snapshot{
		// the API reports no date for the live state
		"2024-03-03": {Level: 10, ExpRate: 1},
	}}

	snaps, err := NewCollector(f).Collect(context.Background(), "ocid", []Request{{Date: truncateDay(now), Latest: true}})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, truncateDay(now), snaps[0].Date)
}
