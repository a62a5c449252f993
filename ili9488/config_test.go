// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"errors"
	"testing"

	"github.com/GermanBionicSystems/paneldrv/panelsim"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// pwmPin records the last PWM setting.
type pwmPin struct {
	gpiotest.Pin
	duty gpio.Duty
	freq physic.Frequency
}

func (p *pwmPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.duty, p.freq = duty, f
	return nil
}

func TestGamma(t *testing.T) {
	d, p := newDev(t, nil)
	if err := d.GammaPrev(); err != nil {
		t.Fatal(err)
	}
	if d.Gamma() != 0 || p.Registers().Gamma != 0x01 {
		t.Fatalf("GammaPrev() moved below the first curve: %d", d.Gamma())
	}
	for i := 0; i < 5; i++ {
		if err := d.GammaNext(); err != nil {
			t.Fatal(err)
		}
	}
	if d.Gamma() != 3 || p.Registers().Gamma != 0x08 {
		t.Fatalf("GammaNext() saturation: %d, %#x", d.Gamma(), p.Registers().Gamma)
	}
	for _, tc := range []struct {
		in   int
		want int
		reg  byte
	}{
		{-2, 0, 0x01},
		{1, 1, 0x02},
		{2, 2, 0x04},
		{9, 3, 0x08},
	} {
		if err := d.SetGamma(tc.in); err != nil {
			t.Fatal(err)
		}
		if d.Gamma() != tc.want || p.Registers().Gamma != tc.reg {
			t.Errorf("SetGamma(%d): %d, %#x", tc.in, d.Gamma(), p.Registers().Gamma)
		}
	}
}

func TestInversion(t *testing.T) {
	d, p := newDev(t, nil)
	for i, tc := range []struct {
		f    func() error
		want bool
	}{
		{d.InversionToggle, true},
		{d.InversionToggle, false},
		{d.InversionOn, true},
		{d.InversionOn, true},
		{d.InversionOff, false},
	} {
		if err := tc.f(); err != nil {
			t.Fatal(err)
		}
		if d.Inverted() != tc.want || p.Registers().Inverted != tc.want {
			t.Errorf("#%d: Inverted() = %t, register %t", i, d.Inverted(), p.Registers().Inverted)
		}
	}
}

func TestDisplayOnOff(t *testing.T) {
	d, p := newDev(t, nil)
	if err := d.DisplayOff(); err != nil {
		t.Fatal(err)
	}
	if p.Registers().DisplayOn {
		t.Error("display still on")
	}
	if err := d.DisplayOn(); err != nil {
		t.Fatal(err)
	}
	if !p.Registers().DisplayOn {
		t.Error("display still off")
	}
}

func TestBrightness(t *testing.T) {
	for _, tc := range []struct {
		name     string
		inverted bool
		want     gpio.Duty
	}{
		{"normal", false, gpio.Duty(0x80 * int64(gpio.DutyMax) / 0xFF)},
		{"inverted", true, gpio.DutyMax - gpio.Duty(0x80*int64(gpio.DutyMax)/0xFF)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bl := &pwmPin{}
			d, p := newDev(t, func(o *Opts) {
				o.Backlight = bl
				o.PWMInverted = tc.inverted
			})
			full := gpio.DutyMax
			if tc.inverted {
				full = 0
			}
			if bl.duty != full || bl.freq != 20*physic.KiloHertz {
				t.Fatalf("after init: %s at %s", bl.duty, bl.freq)
			}
			// Without brightness control the level is only recorded.
			if err := d.SetBrightness(0x80); err != nil {
				t.Fatal(err)
			}
			if bl.duty != full {
				t.Errorf("duty %s without brightness control", bl.duty)
			}
			if err := d.BacklightEnable(); err != nil {
				t.Fatal(err)
			}
			if bl.duty != tc.want {
				t.Errorf("duty %s, want %s", bl.duty, tc.want)
			}
			regs := p.Registers()
			if regs.Brightness != 0x80 || regs.CtrlD != 0x24 {
				t.Errorf("registers %+v", regs)
			}
			if err := d.BacklightDisable(); err != nil {
				t.Fatal(err)
			}
			if bl.duty != full || p.Registers().CtrlD != 0 || d.Brightness() != 0x80 {
				t.Errorf("after disable: duty %s, %+v", bl.duty, p.Registers())
			}
		})
	}
}

func TestConfigStale(t *testing.T) {
	d, p := newDev(t, nil)
	p.FailNext(nil)
	if err := d.InversionOn(); !errors.Is(err, panelsim.ErrInjected) {
		t.Fatalf("InversionOn() = %v", err)
	}
	// The configuration is kept, the panel is out of sync.
	if !d.Inverted() || !d.Stale() {
		t.Fatalf("Inverted() = %t, Stale() = %t", d.Inverted(), d.Stale())
	}
	if p.Registers().Inverted {
		t.Fatal("the failed command was applied")
	}
	if need, err := d.NeedsReinit(); err != nil || !need {
		t.Fatalf("NeedsReinit() = %t, %v", need, err)
	}
	if err := d.Reinit(); err != nil {
		t.Fatal(err)
	}
	if d.Stale() || !p.Registers().Inverted {
		t.Errorf("Reinit() did not resync: stale %t, %+v", d.Stale(), p.Registers())
	}
	if got := d.Config(); !got.Inverted || got.MADCtl != 0xE0 {
		t.Errorf("Config() = %+v", got)
	}
}

func TestConfigUninit(t *testing.T) {
	d, _ := newDev(t, nil)
	if err := d.Done(); err != nil {
		t.Fatal(err)
	}
	for name, f := range map[string]func() error{
		"SetGamma":        func() error { return d.SetGamma(1) },
		"InversionOn":     d.InversionOn,
		"SetBrightness":   func() error { return d.SetBrightness(1) },
		"BacklightEnable": d.BacklightEnable,
		"DisplayOn":       d.DisplayOn,
	} {
		if err := f(); !errors.Is(err, ErrNotInitialized) {
			t.Errorf("%s() = %v", name, err)
		}
	}
}
