package chart

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	expBarColor   = color.RGBA{0x90, 0xee, 0x90, 0xff} // lightgreen
	levelBarColor = color.RGBA{0xfa, 0x80, 0x72, 0xff} // salmon
)

const (
	weekWidth     = 1000
	weekHeight    = 680
	weekMarginL   = 70
	weekMarginR   = 30
	weekTitleH    = 60
	weekExpPanelH = 360
	weekGap       = 40
	weekLevelH    = 160
	levelBand     = 100
)

// WeekPoint is one day of the weekly chart.
type WeekPoint struct {
	Label   string // e.g. "01/02"
	ExpRate float64
	Level   int
}

// LevelRange returns the y-axis range for the level panel: the block of
// 100 levels containing the highest level.
func LevelRange(points []WeekPoint) (lo, hi int) {
	var top int
	for _, p := range points {
		top = max(top, p.Level)
	}
	lo = (top / levelBand) * levelBand
	return lo, lo + levelBand
}

// RenderWeek draws the exp% bar panel above the level bar panel.
func (r *Renderer) RenderWeek(title string, points []WeekPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, errors.New("no points to render")
	}

	f, err := r.newFaces()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := newCanvas(weekWidth, weekHeight)
	c.text(f.title, title, weekWidth/2, 36, alignCenter, black)

	plotW := weekWidth - weekMarginL - weekMarginR
	slot := plotW / len(points)
	barW := slot * 6 / 10

	// exp% panel, fixed 0-100 scale
	expTop := weekTitleH
	expBottom := expTop + weekExpPanelH
	r.axes(c, f, expTop, expBottom, plotW, "exp %", []string{"0", "25", "50", "75", "100"})
	for i, p := range points {
		x0 := weekMarginL + i*slot + (slot-barW)/2
		h := int(float64(weekExpPanelH) * clamp(p.ExpRate, 0, 100) / 100)
		bar := image.Rect(x0, expBottom-h, x0+barW, expBottom)
		if h > 0 {
			c.box(bar, expBarColor, 2)
		}
		c.text(f.small, fmt.Sprintf("%.2f%%", p.ExpRate), x0+barW/2, expBottom-h-4, alignCenter, black)
	}

	// level panel, one band of 100 levels
	lo, hi := LevelRange(points)
	lvTop := expBottom + weekGap
	lvBottom := lvTop + weekLevelH
	r.axes(c, f, lvTop, lvBottom, plotW, "level", []string{
		fmt.Sprint(lo), "", fmt.Sprint(lo + levelBand/2), "", fmt.Sprint(hi),
	})
	for i, p := range points {
		x0 := weekMarginL + i*slot + (slot-barW)/2
		frac := clamp(float64(p.Level-lo), 0, levelBand) / levelBand
		h := int(float64(weekLevelH) * frac)
		if h > 0 {
			c.box(image.Rect(x0, lvBottom-h, x0+barW, lvBottom), levelBarColor, 2)
		}
		c.text(f.small, fmt.Sprint(p.Level), x0+barW/2, lvBottom-h-4, alignCenter, black)
		c.text(f.label, p.Label, x0+barW/2, lvBottom+18, alignCenter, black)
	}
	c.text(f.label, "date", weekWidth/2, weekHeight-8, alignCenter, black)

	return encodePNG(c.img)
}

// axes draws the frame of a panel with evenly spaced tick labels, bottom up.
func (r *Renderer) axes(c *canvas, f *faces, top, bottom, plotW int, ylabel string, ticks []string) {
	left := weekMarginL
	right := left + plotW
	c.vline(left, top, bottom+1, black)
	c.hline(left, right, bottom, black)

	if len(ticks) > 1 {
		step := float64(bottom-top) / float64(len(ticks)-1)
		for i, t := range ticks {
			y := bottom - int(step*float64(i))
			if i > 0 {
				c.hline(left+1, right, y, color.RGBA{0xe0, 0xe0, 0xe0, 0xff})
			}
			if t != "" {
				c.text(f.small, t, left-6, y+4, alignRight, grey)
			}
		}
	}
	c.text(f.label, ylabel, left+4, top-6, alignLeft, black)
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
