// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"fmt"
	"image"
	"image/color"

	"github.com/GermanBionicSystems/paneldrv/ili9488/rgb666"
	"github.com/GermanBionicSystems/paneldrv/internal/syncutil"
	"github.com/GermanBionicSystems/paneldrv/pixstream"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// NewSPI returns a Dev that communicates over 4-wire SPI with an ILI9488.
//
// # Wiring
//
// Connect SDI to SPI_MOSI, SDO to SPI_MISO (only needed with ReadBack), SCL
// to SPI_CLK, CS to SPI_CS and D/C to the dc GPIO. The reset and backlight
// pins are optional and passed through Opts.
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if dc == nil || dc == gpio.INVALID {
		return nil, fmt.Errorf("ili9488: dc pin is required")
	}
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := dc.Out(gpio.Low); err != nil {
		return nil, err
	}
	c, err := p.Connect(opts.spiFrequency(), spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ili9488: %w", err)
	}
	return New(newSPITransport(c, dc, opts.DMAProbe), opts)
}

// New returns a Dev driving the panel behind t, and initializes the panel.
//
// opts can be nil to use DefaultOpts.
func New(t Transport, opts *Opts) (*Dev, error) {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	d := &Dev{
		t:    t,
		opts: *opts,
		rect: image.Rect(0, 0, opts.W, opts.H),
		rst:  opts.Reset,
		bl:   opts.Backlight,
		cfg:  opts.config(),
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	} else {
		d.log = zerolog.Nop()
	}
	d.log = d.log.With().Str("dev", "ili9488").Logger()
	d.eng = newEngine(t, &d.cfg, &d.log, opts)
	d.readLimit = opts.W * opts.BufferRows * rgb666.BytesPerPixel
	if l, ok := t.(conn.Limits); ok && l.MaxTxSize() > 1 {
		d.readLimit = min(d.readLimit, l.MaxTxSize()-1)
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is an open handle to the display controller.
//
// All methods are safe to call from multiple goroutines; operations are
// serialized and each waits for the previous transfer to complete.
type Dev struct {
	mu syncutil.Mutex

	// Communication
	t   Transport
	eng *engine
	rst gpio.PinOut
	bl  gpio.PinOut

	opts      Opts
	rect      image.Rectangle
	log       zerolog.Logger
	readLimit int

	// Mutable
	cfg   PanelConfig
	arena *Arena
	power PowerState
	// stale is set when a configuration write failed; the panel state is
	// unknown until the next full initialization.
	stale bool
}

func (d *Dev) String() string {
	return fmt.Sprintf("ili9488.Dev{%v, %s}", d.t, d.rect.Max)
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return rgb666.Model
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw implements display.Drawer.
//
// The part of src starting at sp is copied to r. Transparent pixels are
// drawn black.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if u, ok := src.(*image.Uniform); ok {
		return d.FillRect(r, compose(color.NRGBAModel.Convert(u.C).(color.NRGBA), 0))
	}
	b := src.Bounds()
	want := image.Rectangle{Min: sp, Max: sp.Add(r.Size())}.Sub(b.Min)
	crop := want.Intersect(image.Rect(0, 0, b.Dx(), b.Dy()))
	// sp stays aligned with r.Min when the source does not cover it.
	return d.DrawStream(pixstream.FromImage(src), r.Min.Add(crop.Min.Sub(want.Min)), 0, Copy, crop)
}

// Buffer returns the arena. Fill it and pass it to DrawBuffer to draw
// pre-rendered pixels without extra allocation.
//
// It returns nil after Done, until Init allocates a new arena.
func (d *Dev) Buffer() *Arena {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.arena
}

// DrawBuffer sends the first r.Dx()*r.Dy() pixels of the arena to r.
//
// The arena must have been returned by the caller.
func (d *Dev) DrawBuffer(r image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	if r.Empty() {
		return nil
	}
	if !r.In(d.rect) {
		return fmt.Errorf("ili9488: %v outside of %v", r, d.rect)
	}
	n := r.Dx() * r.Dy() * rgb666.BytesPerPixel
	if n > d.arena.Size() {
		return ErrBufferTooSmall
	}
	buf := d.arena.Borrow()
	defer d.arena.Return(buf)
	return d.writeRect(r, buf[:n])
}

// SetPixel sets the pixel at (x, y) to the 0xRRGGBB color c.
func (d *Dev) SetPixel(x, y int, c uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	if !(image.Point{X: x, Y: y}).In(d.rect) {
		return nil
	}
	var b [rgb666.BytesPerPixel]byte
	rgb666.Put(b[:], rgb666.Pack(c))
	return d.writeRect(image.Rect(x, y, x+1, y+1), b[:])
}

// Pixel reads back the pixel at (x, y) as 0xRRGGBB.
func (d *Dev) Pixel(x, y int) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return 0, err
	}
	if d.cfg.Flags&FlagReadBack == 0 {
		return 0, ErrNoReadBack
	}
	if !(image.Point{X: x, Y: y}).In(d.rect) {
		return 0, fmt.Errorf("ili9488: (%d, %d) outside of %v", x, y, d.rect)
	}
	var b [rgb666.BytesPerPixel]byte
	if err := d.readRect(image.Rect(x, y, x+1, y+1), b[:]); err != nil {
		return 0, err
	}
	return rgb666.Unpack(rgb666.Get(b[:])), nil
}

// FillRect fills r, clipped to the panel, with the 0xRRGGBB color c.
func (d *Dev) FillRect(r image.Rectangle, c uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}
	return d.fillRect(r, c)
}

// Clear fills the whole panel with the 0xRRGGBB color c.
func (d *Dev) Clear(c uint32) error {
	return d.FillRect(d.rect, c)
}

// ReadRect reads r, clipped to the panel, back from the panel memory.
func (d *Dev) ReadRect(r image.Rectangle) (*rgb666.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return nil, err
	}
	if d.cfg.Flags&FlagReadBack == 0 {
		return nil, ErrNoReadBack
	}
	r = r.Intersect(d.rect)
	img := rgb666.NewImage(r)
	if r.Empty() {
		return img, nil
	}
	stride := r.Dx() * rgb666.BytesPerPixel
	rows := d.readLimit / stride
	if rows == 0 {
		return nil, ErrBufferTooSmall
	}
	buf := d.arena.Borrow()
	defer d.arena.Return(buf)
	for y := r.Min.Y; y < r.Max.Y; y += rows {
		chunk := image.Rect(r.Min.X, y, r.Max.X, min(y+rows, r.Max.Y))
		n := chunk.Dy() * stride
		if err := d.readRect(chunk, buf[:n]); err != nil {
			return nil, err
		}
		copy(img.Pix[img.PixOffset(r.Min.X, y):], buf[:n])
	}
	return img, nil
}

func (d *Dev) fillRect(r image.Rectangle, c uint32) error {
	r = r.Intersect(d.rect)
	if r.Empty() {
		return nil
	}
	stride := r.Dx() * rgb666.BytesPerPixel
	rows := min(d.arena.Size()/stride, r.Dy())
	buf := d.arena.Borrow()
	defer d.arena.Return(buf)
	rgb666.Fill(buf[:rows*stride], rgb666.Pack(c))
	for y := r.Min.Y; y < r.Max.Y; y += rows {
		chunk := image.Rect(r.Min.X, y, r.Max.X, min(y+rows, r.Max.Y))
		if err := d.writeRect(chunk, buf[:chunk.Dy()*stride]); err != nil {
			return err
		}
	}
	return nil
}

// setWindow selects the memory area the next RAMWR or RAMRD accesses.
func (d *Dev) setWindow(r image.Rectangle) error {
	x0, x1 := r.Min.X, r.Max.X-1
	y0, y1 := r.Min.Y, r.Max.Y-1
	if err := d.eng.command(_CASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	return d.eng.command(_PASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1))
}

// writeRect sends pix, in wire format, to r. It returns once the transfer
// completed so the caller can reuse pix.
func (d *Dev) writeRect(r image.Rectangle, pix []byte) error {
	if err := d.setWindow(r); err != nil {
		return err
	}
	if err := d.eng.command(_RAMWR); err != nil {
		return err
	}
	return d.eng.write(pix)
}

// readRect reads r into pix.
func (d *Dev) readRect(r image.Rectangle, pix []byte) error {
	if err := d.setWindow(r); err != nil {
		return err
	}
	return d.eng.read(_RAMRD, pix)
}

var _ display.Drawer = &Dev{}
