// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"fmt"
	"io"
	"time"

	"github.com/GermanBionicSystems/paneldrv/ili9488/rgb666"
	"periph.io/x/conn/v3/gpio"
)

// PowerState is the lifecycle state of a Dev.
type PowerState uint8

// Lifecycle states.
const (
	Uninit PowerState = iota
	Active
	PoweredDown
)

func (s PowerState) String() string {
	switch s {
	case Uninit:
		return "Uninit"
	case Active:
		return "Active"
	case PoweredDown:
		return "PoweredDown"
	default:
		return fmt.Sprintf("PowerState(%d)", uint8(s))
	}
}

// Delays from the datasheet: 5ms after a reset before sending commands,
// 120ms after SWRESET or SLPOUT before the next sleep command.
const (
	resetDelay = 5 * time.Millisecond
	sleepDelay = 120 * time.Millisecond
)

// dmaProber is implemented by transports that can tell whether asynchronous
// transfers are possible.
type dmaProber interface {
	DMAAvailable() bool
}

// Init initializes the panel: reset, power on, pixel format, orientation,
// gamma, inversion, backlight, cleared memory and display on.
//
// It is called by New, and again to wake the panel after PowerDown or after
// Done.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.init()
}

// Reinit runs the full initialization again on an active panel, e.g. after
// an external event such as a bus reset or an ESD discharge reset the
// controller.
func (d *Dev) Reinit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.power != Active {
		return fmt.Errorf("ili9488: reinit while %s", d.power)
	}
	d.log.Debug().Msg("full reinit")
	return d.init()
}

func (d *Dev) init() error {
	// Cleared once every register has been written.
	d.stale = true
	if d.arena == nil {
		d.arena = newArena(d.opts.W * d.opts.BufferRows * rgb666.BytesPerPixel)
	}
	if d.cfg.Flags&FlagDMA != 0 && d.cfg.Flags&FlagSafe == 0 {
		if p, ok := d.t.(dmaProber); ok && !p.DMAAvailable() {
			d.log.Warn().Msg("DMA unavailable, entering safe mode")
			d.cfg.Flags |= FlagSafe
		}
	}
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("ili9488: failed to pull RST low: %w", err)
		}
		sleep(resetDelay)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("ili9488: failed to pull RST high: %w", err)
		}
		sleep(resetDelay)
	}
	if err := d.eng.command(_SWRESET); err != nil {
		return err
	}
	sleep(sleepDelay)
	if err := d.eng.command(_SLPOUT); err != nil {
		return err
	}
	sleep(sleepDelay)
	for _, c := range [][]byte{
		{_COLMOD, d.cfg.ColMod},
		{_MADCTL, d.cfg.MADCtl},
		{_GAMMASET, gammaCurves[d.cfg.Gamma]},
	} {
		if err := d.eng.command(c[0], c[1:]...); err != nil {
			return err
		}
	}
	if err := d.sendInversion(); err != nil {
		return err
	}
	if err := d.sendBrightness(); err != nil {
		return err
	}
	// Memory content is random after power on.
	if err := d.fillRect(d.rect, 0); err != nil {
		return err
	}
	if err := d.eng.command(_DISPON); err != nil {
		return err
	}
	d.power = Active
	d.stale = false
	d.log.Debug().Stringer("flags", d.cfg.Flags).Int("buffer", d.arena.Size()).Msg("initialized")
	return nil
}

// PowerDown turns the display off and puts the controller to sleep. Drawing
// fails with ErrPoweredDown until Init is called.
func (d *Dev) PowerDown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.power != Active {
		return nil
	}
	if err := d.eng.command(_DISPOFF); err != nil {
		return err
	}
	if err := d.eng.command(_SLPIN); err != nil {
		return err
	}
	d.power = PoweredDown
	d.log.Debug().Msg("powered down")
	return nil
}

// Halt implements conn.Resource. It powers the panel down.
func (d *Dev) Halt() error {
	return d.PowerDown()
}

// Done releases the buffer and closes the transport when it is an
// io.Closer. Other operations return ErrNotInitialized afterward.
func (d *Dev) Done() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.arena != nil && d.arena.Borrowed() {
		panic("ili9488: Done while the buffer is borrowed")
	}
	d.arena = nil
	d.power = Uninit
	if c, ok := d.t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// State returns the lifecycle state.
func (d *Dev) State() PowerState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power
}

// EnableSafeMode switches to blocking transfers for the rest of the life of
// the Dev. It is meant for hardware where DMA proved unreliable.
func (d *Dev) EnableSafeMode() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.Flags&FlagSafe == 0 {
		d.log.Warn().Msg("safe mode enabled")
	}
	d.cfg.Flags |= FlagSafe
}

// NeedsReinit reads the memory access control register back and reports
// whether it lost its value, which happens when the controller reset itself.
// It also reports true when a configuration write failed.
func (d *Dev) NeedsReinit() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.power == Uninit {
		return false, ErrNotInitialized
	}
	if d.cfg.Flags&FlagReadBack == 0 {
		return false, ErrNoReadBack
	}
	var b [1]byte
	if err := d.eng.read(_RDMADCTL, b[:]); err != nil {
		return false, err
	}
	return d.stale || b[0] != d.cfg.MADCtl, nil
}

// ready returns an error when drawing is not possible.
func (d *Dev) ready() error {
	switch d.power {
	case Active:
		return nil
	case PoweredDown:
		return ErrPoweredDown
	default:
		return ErrNotInitialized
	}
}
