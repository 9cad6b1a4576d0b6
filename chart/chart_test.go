package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maple-exp-bot/calendar"
	"maple-exp-bot/exp"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

func TestLevelRange(t *testing.T) {
	lo, hi := LevelRange([]WeekPoint{{Level: 198}, {Level: 201}, {Level: 200}})
	assert.Equal(t, 200, lo)
	assert.Equal(t, 300, hi)

	lo, hi = LevelRange([]WeekPoint{{Level: 57}})
	assert.Equal(t, 0, lo)
	assert.Equal(t, 100, hi)
}

func TestRenderWeek(t *testing.T) {
	r := newTestRenderer(t)
	points := []WeekPoint{
		{Label: "02/26", ExpRate: 12.5, Level: 260},
		{Label: "02/27", ExpRate: 40.125, Level: 260},
		{Label: "02/28", ExpRate: 0, Level: 261},
		{Label: "02/29", ExpRate: 99.999, Level: 261},
	}

	data, err := r.RenderWeek("meru: exp / level", points)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, weekWidth, img.Bounds().Dx())
	assert.Equal(t, weekHeight, img.Bounds().Dy())
}

func TestRenderWeekEmpty(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.RenderWeek("x", nil)
	assert.Error(t, err)
}

func TestRenderMonth(t *testing.T) {
	r := newTestRenderer(t)
	gains := []exp.DailyGain{
		{Date: time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC), ExpGainRate: 10},
		{Date: time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), ExpGainRate: 115, IsLevelUp: true, LevelDiff: 1},
		{Date: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), ExpGainRate: 0},
	}
	m := calendar.Build(gains, 2024, time.March)

	data, err := r.RenderMonth("meru: March 2024", m)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, gridLeft+7*cellW+legendW, img.Bounds().Dx())
	assert.Equal(t, gridTop+len(m.Weeks)*cellH+heatmapPadB, img.Bounds().Dy())

	// Saturday the 2nd sits in week 0, column 5, bucket 1.
	x := gridLeft + 5*cellW + cellW - 4
	y := gridTop + cellH - 4
	assert.Equal(t, BucketColors[1], img.At(x, y))
}

func TestRenderMonthEmpty(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.RenderMonth("empty", calendar.Month{})
	require.NoError(t, err)
}
