// Package chart renders experience charts as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	white = color.RGBA{0xff, 0xff, 0xff, 0xff}
	black = color.RGBA{0x00, 0x00, 0x00, 0xff}
	grey  = color.RGBA{0x88, 0x88, 0x88, 0xff}
)

// Renderer draws charts. Fonts are parsed once; faces are created per
// render because font.Face is not safe for concurrent use.
type Renderer struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// NewRenderer parses the embedded Go fonts.
func NewRenderer() (*Renderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Renderer{regular: regular, bold: bold}, nil
}

type faces struct {
	title font.Face
	label font.Face
	small font.Face
}

func (r *Renderer) newFaces() (*faces, error) {
	title, err := newFace(r.bold, 20)
	if err != nil {
		return nil, err
	}
	label, err := newFace(r.regular, 13)
	if err != nil {
		return nil, err
	}
	small, err := newFace(r.regular, 11)
	if err != nil {
		return nil, err
	}
	return &faces{title: title, label: label, small: small}, nil
}

func (f *faces) Close() {
	f.title.Close()
	f.label.Close()
	f.small.Close()
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

// canvas wraps an RGBA image with the few primitives the charts need.
type canvas struct {
	img *image.RGBA
}

func newCanvas(w, h int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	return &canvas{img: img}
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// box fills r and outlines it with a border of the given width.
func (c *canvas) box(r image.Rectangle, fillCol color.Color, border int) {
	c.fill(r, black)
	c.fill(r.Inset(border), fillCol)
}

func (c *canvas) hline(x0, x1, y int, col color.Color) {
	c.fill(image.Rect(x0, y, x1, y+1), col)
}

func (c *canvas) vline(x, y0, y1 int, col color.Color) {
	c.fill(image.Rect(x, y0, x+1, y1), col)
}

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// text draws s with its baseline at y. Multi-line strings stack downward.
func (c *canvas) text(face font.Face, s string, x, y int, a align, col color.Color) {
	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face}
	lineHeight := face.Metrics().Height.Ceil()
	for i, line := range strings.Split(s, "\n") {
		w := d.MeasureString(line).Ceil()
		lx := x
		switch a {
		case alignCenter:
			lx = x - w/2
		case alignRight:
			lx = x - w
		}
		d.Dot = fixed.P(lx, y+i*lineHeight)
		d.DrawString(line)
	}
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
