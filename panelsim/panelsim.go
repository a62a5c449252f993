// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panelsim emulates an ILI9488 controller behind a serial bus.
//
// A Panel implements the transport expected by package ili9488. It decodes
// the command stream into an in-memory frame, keeps the controller registers
// and records every memory transfer so that tests can inspect what the
// driver sent. Asynchronous transfers complete on a separate goroutine, the
// way a DMA interrupt would.
//
// The frame can be mirrored to a terminal with Preview or to a web browser
// with ServeHTTP.
package panelsim

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/GermanBionicSystems/paneldrv/ili9488/rgb666"
	"github.com/GermanBionicSystems/paneldrv/internal/syncutil"
	"github.com/rs/zerolog"
)

// Commands decoded by the emulator.
const (
	NOP      = 0x00
	SWRESET  = 0x01
	RDMADCTL = 0x0B
	SLPIN    = 0x10
	SLPOUT   = 0x11
	INVOFF   = 0x20
	INVON    = 0x21
	GAMMASET = 0x26
	DISPOFF  = 0x28
	DISPON   = 0x29
	CASET    = 0x2A
	PASET    = 0x2B
	RAMWR    = 0x2C
	RAMRD    = 0x2E
	MADCTL   = 0x36
	COLMOD   = 0x3A
	WRDISBV  = 0x51
	WRCTRLD  = 0x53
)

// ErrInjected is returned by the operation armed with FailNext when no other
// error is given.
var ErrInjected = errors.New("panelsim: injected failure")

// Opts represents the options of the emulated panel.
type Opts struct {
	// W and H are the panel size in pixels, after orientation.
	W, H int
	// NoDMA makes DMAAvailable report false.
	NoDMA bool
	// Latency delays the completion of asynchronous transfers.
	Latency time.Duration
	// Logger receives the decoded commands at trace level.
	Logger *zerolog.Logger
}

// DefaultOpts is a landscape 480x320 panel.
var DefaultOpts = Opts{W: 480, H: 320}

// Registers is the controller register file.
type Registers struct {
	MADCtl     byte
	ColMod     byte
	Gamma      byte
	Brightness byte
	CtrlD      byte
	Inverted   bool
	DisplayOn  bool
	Sleeping   bool
}

// Transfer is one memory access as seen on the bus.
type Transfer struct {
	Cmd    byte // RAMWR or RAMRD.
	Window image.Rectangle
	Len    int // Bytes of pixel data.
	Async  bool
}

// Panel is an emulated ILI9488.
type Panel struct {
	mu syncutil.Mutex

	opts Opts
	log  zerolog.Logger

	frame *rgb666.Image
	regs  Registers

	cmd    byte            // Last command, its parameters follow.
	window image.Rectangle // CASET/PASET window.
	pos    image.Point     // Memory write pointer.
	xs, ys [2]int

	tx, rx func(error)

	commands    []byte
	transfers   []Transfer
	completions int
	failNext    error
	failAsync   error

	mirror mirror
}

// New returns an emulated panel in its power on state.
func New(opts *Opts) *Panel {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	p := &Panel{
		opts:  *opts,
		frame: rgb666.NewImage(image.Rect(0, 0, opts.W, opts.H)),
	}
	p.mirror.clients = map[*client]struct{}{}
	p.mirror.snapshot = map[ImageFormat][]byte{}
	if opts.Logger != nil {
		p.log = *opts.Logger
	} else {
		p.log = zerolog.Nop()
	}
	p.log = p.log.With().Str("dev", "panelsim").Logger()
	// Memory content is undefined at power on; make it visible.
	for i := range p.frame.Pix {
		p.frame.Pix[i] = 0xFC
	}
	p.powerOn()
	return p
}

func (p *Panel) String() string {
	return fmt.Sprintf("panelsim.Panel{%s}", p.frame.Rect.Max)
}

func (p *Panel) powerOn() {
	p.regs = Registers{ColMod: 0x66, Sleeping: true}
	p.window = p.frame.Rect
	p.xs = [2]int{0, p.opts.W - 1}
	p.ys = [2]int{0, p.opts.H - 1}
}

// SetCompletion implements ili9488.Transport.
func (p *Panel) SetCompletion(tx, rx func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tx, p.rx = tx, rx
}

// Command implements ili9488.Transport.
func (p *Panel) Command(cmd byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.takeFailure(); err != nil {
		return err
	}
	p.commands = append(p.commands, cmd)
	p.cmd = cmd
	p.log.Trace().Hex("cmd", []byte{cmd}).Msg("command")
	switch cmd {
	case SWRESET:
		p.powerOn()
	case SLPIN:
		p.regs.Sleeping = true
	case SLPOUT:
		p.regs.Sleeping = false
	case INVOFF:
		p.regs.Inverted = false
	case INVON:
		p.regs.Inverted = true
	case DISPOFF:
		p.regs.DisplayOn = false
	case DISPON:
		p.regs.DisplayOn = true
	case RAMWR:
		p.pos = p.window.Min
	}
	return nil
}

// Write implements ili9488.Transport.
func (p *Panel) Write(data []byte, async bool) error {
	p.mu.Lock()
	if err := p.takeFailure(); err != nil {
		p.mu.Unlock()
		return err
	}
	ram := p.cmd == RAMWR
	if ram {
		p.transfers = append(p.transfers, Transfer{Cmd: RAMWR, Window: p.window, Len: len(data), Async: async})
		p.writeMemory(data)
	} else {
		p.params(data)
	}
	p.mu.Unlock()
	if ram {
		p.mirror.invalidate()
	}
	if async {
		p.complete(p.tx)
	}
	return nil
}

// Read implements ili9488.Transport.
func (p *Panel) Read(cmd byte, r []byte, async bool) error {
	p.mu.Lock()
	if err := p.takeFailure(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.commands = append(p.commands, cmd)
	p.cmd = cmd
	switch cmd {
	case RAMRD:
		p.transfers = append(p.transfers, Transfer{Cmd: RAMRD, Window: p.window, Len: len(r), Async: async})
		p.readMemory(r)
	case RDMADCTL:
		if len(r) != 0 {
			r[0] = p.regs.MADCtl
		}
	default:
		clear(r)
	}
	p.mu.Unlock()
	if async {
		p.complete(p.rx)
	}
	return nil
}

// DMAAvailable reports whether asynchronous transfers are possible.
func (p *Panel) DMAAvailable() bool {
	return !p.opts.NoDMA
}

// complete calls f from another goroutine, with the error armed by
// FailAsync.
func (p *Panel) complete(f func(error)) {
	p.mu.Lock()
	err := p.failAsync
	p.failAsync = nil
	p.mu.Unlock()
	go func() {
		if p.opts.Latency > 0 {
			time.Sleep(p.opts.Latency)
		}
		p.mu.Lock()
		p.completions++
		p.mu.Unlock()
		f(err)
	}()
}

func (p *Panel) takeFailure() error {
	err := p.failNext
	p.failNext = nil
	return err
}

// params applies the parameters of the last command.
func (p *Panel) params(data []byte) {
	if len(data) == 0 {
		return
	}
	p.log.Trace().Hex("cmd", []byte{p.cmd}).Hex("params", data).Msg("parameters")
	switch p.cmd {
	case CASET:
		if len(data) >= 4 {
			p.xs = [2]int{int(data[0])<<8 | int(data[1]), int(data[2])<<8 | int(data[3])}
			p.window = p.clampWindow()
		}
	case PASET:
		if len(data) >= 4 {
			p.ys = [2]int{int(data[0])<<8 | int(data[1]), int(data[2])<<8 | int(data[3])}
			p.window = p.clampWindow()
		}
	case MADCTL:
		p.regs.MADCtl = data[0]
	case COLMOD:
		p.regs.ColMod = data[0]
	case GAMMASET:
		p.regs.Gamma = data[0]
	case WRDISBV:
		p.regs.Brightness = data[0]
	case WRCTRLD:
		p.regs.CtrlD = data[0]
	}
}

// clampWindow returns the window selected by the last CASET and PASET,
// limited to the panel.
func (p *Panel) clampWindow() image.Rectangle {
	return image.Rect(p.xs[0], p.ys[0], p.xs[1]+1, p.ys[1]+1).Intersect(p.frame.Rect)
}

// writeMemory stores data at the write pointer. The pointer wraps inside the
// window like the controller does.
func (p *Panel) writeMemory(data []byte) {
	if p.window.Empty() {
		return
	}
	for ; len(data) >= rgb666.BytesPerPixel; data = data[rgb666.BytesPerPixel:] {
		off := p.frame.PixOffset(p.pos.X, p.pos.Y)
		p.frame.Pix[off] = data[0] & 0xFC
		p.frame.Pix[off+1] = data[1] & 0xFC
		p.frame.Pix[off+2] = data[2] & 0xFC
		p.advance()
	}
}

func (p *Panel) readMemory(r []byte) {
	if p.window.Empty() {
		clear(r)
		return
	}
	p.pos = p.window.Min
	for ; len(r) >= rgb666.BytesPerPixel; r = r[rgb666.BytesPerPixel:] {
		off := p.frame.PixOffset(p.pos.X, p.pos.Y)
		copy(r, p.frame.Pix[off:off+rgb666.BytesPerPixel])
		p.advance()
	}
}

func (p *Panel) advance() {
	p.pos.X++
	if p.pos.X < p.window.Max.X {
		return
	}
	p.pos.X = p.window.Min.X
	p.pos.Y++
	if p.pos.Y >= p.window.Max.Y {
		p.pos.Y = p.window.Min.Y
	}
}

// FailNext makes the next Command, Write or Read return err, or ErrInjected
// when err is nil.
func (p *Panel) FailNext(err error) {
	if err == nil {
		err = ErrInjected
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = err
}

// FailAsync makes the next asynchronous transfer report err, or ErrInjected
// when err is nil, through its completion callback.
func (p *Panel) FailAsync(err error) {
	if err == nil {
		err = ErrInjected
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAsync = err
}

// Reset emulates a spontaneous controller reset, e.g. caused by ESD: the
// registers are back to their power on values while memory is kept.
func (p *Panel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.powerOn()
}

// Registers returns a copy of the register file.
func (p *Panel) Registers() Registers {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.regs
}

// Frame returns a copy of the panel memory.
func (p *Panel) Frame() *rgb666.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	img := rgb666.NewImage(p.frame.Rect)
	copy(img.Pix, p.frame.Pix)
	return img
}

// Pixel returns the color at (x, y) as 0xRRGGBB.
func (p *Panel) Pixel(x, y int) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !(image.Point{X: x, Y: y}).In(p.frame.Rect) {
		return 0
	}
	off := p.frame.PixOffset(x, y)
	return rgb666.Unpack(rgb666.Get(p.frame.Pix[off:]))
}

// Commands returns the command bytes received so far.
func (p *Panel) Commands() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.commands...)
}

// Transfers returns the memory transfers received so far.
func (p *Panel) Transfers() []Transfer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Transfer(nil), p.transfers...)
}

// Completions returns the number of asynchronous completions delivered.
func (p *Panel) Completions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completions
}

// ClearLog forgets the recorded commands and transfers.
func (p *Panel) ClearLog() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = nil
	p.transfers = nil
	p.completions = 0
}
