// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panelsim

import (
	"bytes"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// PreviewOpts controls how Preview renders the frame.
type PreviewOpts struct {
	// Scale is the side, in pixels, of the square each character cell
	// stands for. 0 means 8.
	Scale   int
	Palette *ansi256.Palette

	_ struct{}
}

// Terminal returns the console, with ANSI escape codes translated on
// Windows.
func Terminal() io.Writer {
	return colorable.NewColorableStdout()
}

// Preview writes the frame to w as rows of ANSI colored blocks. A blank
// frame is printed when the display is off or asleep, as on the glass.
//
// Useful to look at what a program draws without the hardware.
func (p *Panel) Preview(w io.Writer, opts *PreviewOpts) error {
	scale := 8
	palette := ansi256.Default
	if opts != nil {
		if opts.Scale > 0 {
			scale = opts.Scale
		}
		if opts.Palette != nil {
			palette = opts.Palette
		}
	}
	p.mu.Lock()
	lit := p.regs.DisplayOn && !p.regs.Sleeping
	inv := p.regs.Inverted
	r := p.frame.Rect
	var buf bytes.Buffer
	for y := r.Min.Y; y < r.Max.Y; y += scale {
		_, _ = buf.WriteString("\033[0m")
		for x := r.Min.X; x < r.Max.X; x += scale {
			c := color.NRGBA{A: 255}
			if lit {
				off := p.frame.PixOffset(x, y)
				c.R, c.G, c.B = p.frame.Pix[off], p.frame.Pix[off+1], p.frame.Pix[off+2]
				if inv {
					c.R, c.G, c.B = ^c.R&0xFC, ^c.G&0xFC, ^c.B&0xFC
				}
			}
			_, _ = io.WriteString(&buf, palette.Block(c))
		}
		_, _ = buf.WriteString("\033[0m\n")
	}
	p.mu.Unlock()
	_, err := buf.WriteTo(w)
	return err
}
