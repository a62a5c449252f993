// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/GermanBionicSystems/paneldrv/ili9488/rgb666"
	"github.com/GermanBionicSystems/paneldrv/pixstream"
)

// RasterOp combines a source color with the color already on the panel.
// Colors are 0xRRGGBB.
type RasterOp uint8

// Raster operations.
const (
	// Copy draws the source.
	Copy RasterOp = iota
	// And, Or and Xor combine the source with the panel content bitwise.
	// The panel is read back when FlagReadBack is set; otherwise the
	// background color stands in for it.
	And
	Or
	Xor
	// Invert draws the complement of the source.
	Invert
	// SwapBW swaps black and white and keeps other colors.
	SwapBW
	// Desaturate draws the luminance of the source.
	Desaturate
)

func (op RasterOp) String() string {
	switch op {
	case Copy:
		return "Copy"
	case And:
		return "And"
	case Or:
		return "Or"
	case Xor:
		return "Xor"
	case Invert:
		return "Invert"
	case SwapBW:
		return "SwapBW"
	case Desaturate:
		return "Desaturate"
	default:
		return fmt.Sprintf("RasterOp(%d)", uint8(op))
	}
}

// ParseRasterOp returns the RasterOp named s, case insensitively.
func ParseRasterOp(s string) (RasterOp, error) {
	for op := Copy; op <= Desaturate; op++ {
		if strings.EqualFold(s, op.String()) {
			return op, nil
		}
	}
	return Copy, fmt.Errorf("ili9488: unknown raster op %q", s)
}

// readsDst reports whether the op depends on the panel content.
func (op RasterOp) readsDst() bool {
	return op == And || op == Or || op == Xor
}

// Apply returns the combination of src and dst.
func (op RasterOp) Apply(src, dst uint32) uint32 {
	switch op {
	case And:
		return src & dst
	case Or:
		return src | dst
	case Xor:
		return src ^ dst
	case Invert:
		return ^src & 0xFFFFFF
	case SwapBW:
		switch src & 0xFFFFFF {
		case 0:
			return 0xFFFFFF
		case 0xFFFFFF:
			return 0
		}
		return src
	case Desaturate:
		r, g, b := src>>16&0xFF, src>>8&0xFF, src&0xFF
		y := (299*r + 587*g + 114*b + 500) / 1000
		return y<<16 | y<<8 | y
	default:
		return src
	}
}

// compose returns the color drawn for the source pixel c over bg.
func compose(c color.NRGBA, bg uint32) uint32 {
	s := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	switch c.A {
	case 0:
		return bg
	case 0xFF:
		return s
	}
	a := uint32(c.A)
	var out uint32
	for shift := 0; shift <= 16; shift += 8 {
		f := s >> shift & 0xFF
		b := bg >> shift & 0xFF
		out |= ((f*a + b*(0xFF-a) + 0x7F) / 0xFF) << shift
	}
	return out
}

// DrawImage draws the whole of img with its top left corner at p.
func (d *Dev) DrawImage(img image.Image, p image.Point) error {
	src := pixstream.FromImage(img)
	return d.DrawStream(src, p, 0, Copy, src.Header().Bounds())
}

// DrawStream draws the crop rectangle of the image carried by src with its
// top left corner at p.
//
// crop is in image coordinates, (0, 0) being the first pixel of the stream.
// It is clipped to the image; when nothing remains the call does nothing.
// Transparent pixels are replaced by the 0xRRGGBB color bg before the raster
// op is applied.
//
// The stream is consumed in order up to the last row of crop. Pixels outside
// of crop or of the panel are consumed and dropped. The image is sent in
// chunks of as many rows as the arena holds; each chunk is transferred
// before the next one is decoded. If the stream ends early the error wraps
// ErrDecodeExhausted and the chunks already sent stay on the panel.
func (d *Dev) DrawStream(src pixstream.Source, p image.Point, bg uint32, op RasterOp, crop image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	h := src.Header()
	crop = crop.Intersect(h.Bounds())
	if crop.Empty() {
		return nil
	}
	dst := crop.Sub(crop.Min).Add(p)
	vis := dst.Intersect(d.rect)
	if vis.Empty() {
		return nil
	}
	b := blit{
		d:    d,
		src:  src,
		w:    h.Width,
		h:    h.Height,
		crop: crop,
		off:  p.Sub(crop.Min),
		vis:  vis,
		bg:   bg & 0xFFFFFF,
		op:   op,
	}
	b.stride = vis.Dx() * rgb666.BytesPerPixel
	b.rows = d.arena.Size() / b.stride
	if op.readsDst() && d.cfg.Flags&FlagReadBack != 0 {
		b.readBack = true
		b.rows = min(b.rows, d.readLimit/b.stride)
		if b.rows == 0 {
			return ErrBufferTooSmall
		}
	}
	return b.run()
}

// blit is the state of one DrawStream call.
type blit struct {
	d        *Dev
	src      pixstream.Source
	w, h     int
	crop     image.Rectangle
	off      image.Point // Source to panel translation.
	vis      image.Rectangle
	bg       uint32
	op       RasterOp
	readBack bool
	stride   int
	rows     int

	buf   []byte          // Non-nil while the arena is borrowed.
	chunk image.Rectangle // Panel rows held in buf.
}

func (b *blit) run() error {
	defer func() {
		if b.buf != nil {
			b.d.arena.Return(b.buf)
			b.buf = nil
		}
	}()
	// Rows below the crop are drained once the last chunk is sent so a short
	// stream is still reported.
	for sy := 0; sy < b.h; sy++ {
		y := sy + b.off.Y
		visible := sy >= b.crop.Min.Y && y >= b.vis.Min.Y && y < b.vis.Max.Y
		if visible && b.buf == nil {
			if err := b.begin(y); err != nil {
				return err
			}
		}
		if err := b.row(sy, y, visible); err != nil {
			return err
		}
		if visible && y+1 == b.chunk.Max.Y {
			if err := b.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// begin borrows the arena for the chunk starting at panel row y.
func (b *blit) begin(y int) error {
	b.chunk = image.Rect(b.vis.Min.X, y, b.vis.Max.X, min(y+b.rows, b.vis.Max.Y))
	b.buf = b.d.arena.Borrow()
	n := b.chunk.Dy() * b.stride
	if b.readBack {
		return b.d.readRect(b.chunk, b.buf[:n])
	}
	if b.op.readsDst() {
		rgb666.Fill(b.buf[:n], rgb666.Pack(b.bg))
	}
	return nil
}

// row consumes one source row, storing it at panel row y when visible.
func (b *blit) row(sy, y int, visible bool) error {
	line := 0
	if visible {
		line = (y - b.chunk.Min.Y) * b.stride
	}
	for sx := 0; sx < b.w; sx++ {
		c, err := b.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w at pixel (%d, %d) of %dx%d", ErrDecodeExhausted, sx, sy, b.w, b.h)
			}
			return fmt.Errorf("ili9488: decode: %w", err)
		}
		if !visible || sx < b.crop.Min.X || sx >= b.crop.Max.X {
			continue
		}
		x := sx + b.off.X
		if x < b.vis.Min.X || x >= b.vis.Max.X {
			continue
		}
		px := b.buf[line+(x-b.vis.Min.X)*rgb666.BytesPerPixel:]
		s := compose(c, b.bg)
		var dst uint32
		if b.op.readsDst() {
			dst = rgb666.Unpack(rgb666.Get(px))
		}
		rgb666.Put(px, rgb666.Pack(b.op.Apply(s, dst)))
	}
	return nil
}

// flush sends the chunk and returns the arena once the transfer completed.
func (b *blit) flush() error {
	n := b.chunk.Dy() * b.stride
	b.d.log.Debug().Stringer("rect", b.chunk).Msg("blit chunk")
	err := b.d.writeRect(b.chunk, b.buf[:n])
	b.d.arena.Return(b.buf)
	b.buf = nil
	return err
}
