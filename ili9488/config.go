// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"periph.io/x/conn/v3/gpio"
)

// PanelConfig is the live configuration of the panel.
//
// Each setter of Dev updates it first, then sends the matching command. When
// the command fails the value is kept and the panel is marked stale until
// the next successful Init or Reinit.
type PanelConfig struct {
	Flags Flags
	// ColMod is the interface pixel format.
	ColMod uint8
	// MADCtl is the memory access control value.
	MADCtl uint8
	// Gamma is the index of the active gamma curve.
	Gamma int
	// Brightness is the backlight level, 0 to 255.
	Brightness uint8
	// Inverted is true while color inversion is on.
	Inverted bool
	// BacklightCtl is true while brightness control is enabled.
	BacklightCtl bool
	// PWMInverted flips the backlight PWM polarity.
	PWMInverted bool
}

func (o *Opts) config() PanelConfig {
	return PanelConfig{
		Flags:        o.flags(),
		ColMod:       o.ColMod,
		MADCtl:       o.MADCtl,
		Gamma:        o.Gamma,
		Brightness:   o.Brightness,
		Inverted:     o.Inverted,
		BacklightCtl: o.BacklightCtl,
		PWMInverted:  o.PWMInverted,
	}
}

// Config returns a copy of the live configuration.
func (d *Dev) Config() PanelConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Stale reports whether a configuration write failed since the last full
// initialization, leaving the panel state unknown.
func (d *Dev) Stale() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stale
}

// DisplayOn turns the panel output on.
func (d *Dev) DisplayOn() error {
	return d.update(func() error { return d.eng.command(_DISPON) })
}

// DisplayOff blanks the panel output. The memory content is kept.
func (d *Dev) DisplayOff() error {
	return d.update(func() error { return d.eng.command(_DISPOFF) })
}

// InversionOn turns color inversion on.
func (d *Dev) InversionOn() error {
	return d.setInversion(func(bool) bool { return true })
}

// InversionOff turns color inversion off.
func (d *Dev) InversionOff() error {
	return d.setInversion(func(bool) bool { return false })
}

// InversionToggle flips color inversion.
func (d *Dev) InversionToggle() error {
	return d.setInversion(func(v bool) bool { return !v })
}

// Inverted reports whether color inversion is on.
func (d *Dev) Inverted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Inverted
}

func (d *Dev) setInversion(f func(bool) bool) error {
	return d.update(func() error {
		d.cfg.Inverted = f(d.cfg.Inverted)
		return d.sendInversion()
	})
}

func (d *Dev) sendInversion() error {
	if d.cfg.Inverted {
		return d.eng.command(_INVON)
	}
	return d.eng.command(_INVOFF)
}

// GammaNext selects the next gamma curve. It stays on the last one.
func (d *Dev) GammaNext() error {
	return d.setGamma(func(g int) int { return min(g+1, len(gammaCurves)-1) })
}

// GammaPrev selects the previous gamma curve. It stays on the first one.
func (d *Dev) GammaPrev() error {
	return d.setGamma(func(g int) int { return max(g-1, 0) })
}

// SetGamma selects gamma curve g, clamped to the valid range.
func (d *Dev) SetGamma(g int) error {
	return d.setGamma(func(int) int { return min(max(g, 0), len(gammaCurves)-1) })
}

// Gamma returns the index of the active gamma curve.
func (d *Dev) Gamma() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Gamma
}

func (d *Dev) setGamma(f func(int) int) error {
	return d.update(func() error {
		d.cfg.Gamma = f(d.cfg.Gamma)
		return d.eng.command(_GAMMASET, gammaCurves[d.cfg.Gamma])
	})
}

// SetBrightness sets the backlight level.
func (d *Dev) SetBrightness(b uint8) error {
	return d.update(func() error {
		d.cfg.Brightness = b
		return d.sendBrightness()
	})
}

// Brightness returns the backlight level.
func (d *Dev) Brightness() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Brightness
}

// BacklightEnable enables brightness control; the backlight follows the
// brightness level.
func (d *Dev) BacklightEnable() error {
	return d.setBacklightCtl(true)
}

// BacklightDisable disables brightness control; the backlight runs at full
// power regardless of the brightness level, which is kept.
func (d *Dev) BacklightDisable() error {
	return d.setBacklightCtl(false)
}

func (d *Dev) setBacklightCtl(on bool) error {
	return d.update(func() error {
		d.cfg.BacklightCtl = on
		return d.sendBrightness()
	})
}

// sendBrightness programs the controller brightness block and, when wired,
// the backlight PWM pin.
func (d *Dev) sendBrightness() error {
	var ctrl byte
	if d.cfg.BacklightCtl {
		ctrl = ctrlBCTRL | ctrlBL
	}
	if err := d.eng.command(_WRDISBV, d.cfg.Brightness); err != nil {
		return err
	}
	if err := d.eng.command(_WRCTRLD, ctrl); err != nil {
		return err
	}
	if d.bl == nil {
		return nil
	}
	return d.bl.PWM(backlightDuty(d.cfg), d.opts.pwmFrequency())
}

func backlightDuty(cfg PanelConfig) gpio.Duty {
	duty := gpio.DutyMax
	if cfg.BacklightCtl {
		duty = gpio.Duty(int64(cfg.Brightness) * int64(gpio.DutyMax) / 0xFF)
	}
	if cfg.PWMInverted {
		duty = gpio.DutyMax - duty
	}
	return duty
}

// update runs a configuration change. The panel is marked stale when it
// fails.
func (d *Dev) update(f func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.power == Uninit {
		return ErrNotInitialized
	}
	if err := f(); err != nil {
		d.stale = true
		d.log.Error().Err(err).Msg("configuration write failed; panel state unknown")
		return err
	}
	return nil
}
