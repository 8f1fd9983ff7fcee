package main

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	lineHeight = 14
	panelPad   = 6
)

var (
	panelBG   = color.RGBA{0x1e, 0x1e, 0x24, 0xff}
	panelText = color.RGBA{0xd0, 0xd0, 0xd0, 0xff}
	titleText = color.RGBA{0x7f, 0xc8, 0xff, 0xff}
)

// Panel is a titled column of text lines.
type Panel struct {
	Title string
	Lines []string
	// Focus is the index of a line that must stay visible, or -1.
	Focus int
}

// visible returns the slice of lines that fits in rows, keeping Focus in view.
func (p Panel) visible(rows int) []string {
	if rows <= 0 {
		return nil
	}
	if len(p.Lines) <= rows {
		return p.Lines
	}
	start := 0
	if p.Focus >= rows/2 {
		start = p.Focus - rows/2
	}
	if start+rows > len(p.Lines) {
		start = len(p.Lines) - rows
	}
	return p.Lines[start : start+rows]
}

// RenderPanels draws panels side by side into a new w×h image.
func RenderPanels(w, h int, panels []Panel) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{panelBG}, image.Point{}, draw.Src)
	if len(panels) == 0 {
		return img
	}

	colWidth := w / len(panels)
	rows := (h-2*panelPad)/lineHeight - 1
	d := &font.Drawer{Dst: img, Face: basicfont.Face7x13}

	for i, p := range panels {
		x := i*colWidth + panelPad
		y := panelPad + lineHeight

		d.Src = image.NewUniform(titleText)
		d.Dot = fixed.P(x, y)
		d.DrawString(p.Title)

		d.Src = image.NewUniform(panelText)
		for _, line := range p.visible(rows) {
			y += lineHeight
			d.Dot = fixed.P(x, y)
			d.DrawString(clip(line, colWidth-2*panelPad))
		}
	}
	return img
}

// clip shortens s so that it fits in width pixels of the fixed-width face.
func clip(s string, width int) string {
	adv := basicfont.Face7x13.Advance
	if adv <= 0 {
		return s
	}
	n := width / adv
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
