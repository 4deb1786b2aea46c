// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package viz

import (
	"fmt"
	"math"
	"strings"
)

// RGB is a truecolor pixel.
type RGB struct {
	R, G, B uint8
}

// Canvas is a logical-pixel framebuffer rendered with half blocks: every
// terminal cell carries two vertically stacked pixels, top as foreground
// and bottom as background of U+2580. Overlapping draws composite
// additively, which reads as glow on a dark background.
type Canvas struct {
	W, H int // logical pixels; H is twice the row count
	cols int
	rows int
	pix  []RGB
}

// NewCanvas allocates a canvas for a cols x rows cell grid.
func NewCanvas(cols, rows int) *Canvas {
	return &Canvas{
		W:    cols,
		H:    rows * 2,
		cols: cols,
		rows: rows,
		pix:  make([]RGB, cols*rows*2),
	}
}

// Fill floods every pixel with one color.
func (c *Canvas) Fill(col RGB) {
	for i := range c.pix {
		c.pix[i] = col
	}
}

// Add composites a color onto one pixel additively, clamped per channel.
func (c *Canvas) Add(x, y int, col RGB) {
	if x < 0 || x >= c.W || y < 0 || y >= c.H {
		return
	}
	p := &c.pix[y*c.W+x]
	p.R = addClamp(p.R, col.R)
	p.G = addClamp(p.G, col.G)
	p.B = addClamp(p.B, col.B)
}

func addClamp(a, b uint8) uint8 {
	s := int(a) + int(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// FillCircle adds a solid disc centered at (cx, cy).
func (c *Canvas) FillCircle(cx, cy, r float64, col RGB) {
	c.disc(cx, cy, r, col, false)
}

// FillCircleFalloff adds a disc whose intensity fades toward the rim.
func (c *Canvas) FillCircleFalloff(cx, cy, r float64, col RGB) {
	c.disc(cx, cy, r, col, true)
}

func (c *Canvas) disc(cx, cy, r float64, col RGB, falloff bool) {
	if r <= 0 {
		c.Add(int(cx), int(cy), col)
		return
	}
	x0, x1 := int(cx-r), int(cx+r)
	y0, y1 := int(cy-r), int(cy+r)
	r2 := r * r
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			d2 := dx*dx + dy*dy
			if d2 > r2 {
				continue
			}
			px := col
			if falloff {
				px = scale(col, 1-d2/r2)
			}
			c.Add(x, y, px)
		}
	}
}

// StrokeCircle adds a one-pixel circle outline.
func (c *Canvas) StrokeCircle(cx, cy, r float64, col RGB) {
	if r <= 0 {
		return
	}
	// Step fine enough that adjacent samples land on neighboring pixels.
	steps := int(r * 8)
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		a := float64(i) / float64(steps) * 2 * math.Pi
		c.Add(int(cx+math.Cos(a)*r), int(cy+math.Sin(a)*r), col)
	}
}

// String renders the framebuffer as ANSI truecolor half blocks, one line
// per cell row.
func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.cols * c.rows * 24)
	for row := 0; row < c.rows; row++ {
		for x := 0; x < c.cols; x++ {
			top := c.pix[(row*2)*c.W+x]
			bot := c.pix[(row*2+1)*c.W+x]
			fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
		b.WriteString("\x1b[0m")
		if row < c.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
