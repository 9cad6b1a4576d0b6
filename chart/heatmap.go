package chart

import (
	"fmt"
	"image"
	"image/color"

	"maple-exp-bot/calendar"
)

// BucketColors are the heatmap fills for buckets 0 through 4.
var BucketColors = [calendar.Buckets]color.RGBA{
	{0xeb, 0xed, 0xf0, 0xff},
	{0x9b, 0xe9, 0xa8, 0xff},
	{0x40, 0xc4, 0x63, 0xff},
	{0x30, 0xa1, 0x4e, 0xff},
	{0x21, 0x6e, 0x39, 0xff},
}

// noDataColor fills in-month days without a recorded gain.
var noDataColor = color.RGBA{0xf7, 0xf7, 0xf7, 0xff}

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

const (
	cellW       = 110
	cellH       = 90
	gridLeft    = 30
	gridTop     = 100
	legendW     = 230
	heatmapPadB = 30
)

// RenderMonth draws the month grid colored by intensity bucket with a legend.
func (r *Renderer) RenderMonth(title string, m calendar.Month) ([]byte, error) {
	f, err := r.newFaces()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	weeks := max(len(m.Weeks), 1)
	gridW := 7 * cellW
	width := gridLeft + gridW + legendW
	height := gridTop + weeks*cellH + heatmapPadB

	c := newCanvas(width, height)
	c.text(f.title, title, (gridLeft+gridW)/2, 40, alignCenter, black)

	for i, name := range weekdayNames {
		c.text(f.label, name, gridLeft+i*cellW+cellW/2, gridTop-12, alignCenter, black)
	}

	lineH := f.small.Metrics().Height.Ceil()
	for wi, week := range m.Weeks {
		for di, cell := range week {
			if cell.Empty() {
				continue
			}
			x0 := gridLeft + di*cellW
			y0 := gridTop + wi*cellH
			rect := image.Rect(x0, y0, x0+cellW+1, y0+cellH+1)

			fill := noDataColor
			if cell.Bucket >= 0 && cell.Bucket < calendar.Buckets {
				fill = BucketColors[cell.Bucket]
			}
			c.box(rect, fill, 1)

			textCol := black
			if cell.Bucket >= 3 {
				textCol = white
			}
			c.text(f.small, fmt.Sprint(cell.Day), x0+6, y0+lineH, alignLeft, textCol)

			if label := cell.GainLabel(); label != "" {
				blockH := lineCount(label) * lineH
				baseline := y0 + cellH/2 - blockH/2 + lineH
				c.text(f.small, label, x0+cellW/2, baseline+6, alignCenter, textCol)
			}
		}
	}

	r.legend(c, f, m, gridLeft+gridW+30, gridTop)

	return encodePNG(c.img)
}

func (r *Renderer) legend(c *canvas, f *faces, m calendar.Month, x, y int) {
	c.text(f.label, "exp gained", x, y, alignLeft, black)
	labels := m.LegendLabels()
	for i, label := range labels {
		top := y + 16 + i*28
		c.box(image.Rect(x, top, x+22, top+22), BucketColors[i], 1)
		c.text(f.small, label, x+32, top+16, alignLeft, black)
	}
	top := y + 16 + len(labels)*28
	c.box(image.Rect(x, top, x+22, top+22), noDataColor, 1)
	c.text(f.small, "no data", x+32, top+16, alignLeft, black)
}
