// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"errors"
	"image"
	"testing"

	"github.com/GermanBionicSystems/paneldrv/pixstream"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestPowerDown(t *testing.T) {
	d, p := newDev(t, nil)
	if err := d.FillRect(d.Bounds(), 0xFF0000); err != nil {
		t.Fatal(err)
	}
	if err := d.PowerDown(); err != nil {
		t.Fatal(err)
	}
	if got := d.State(); got != PoweredDown {
		t.Fatalf("State() = %s", got)
	}
	if regs := p.Registers(); regs.DisplayOn || !regs.Sleeping {
		t.Fatalf("registers %+v", regs)
	}
	p.ClearLog()
	for name, err := range map[string]error{
		"SetPixel":   d.SetPixel(0, 0, 0),
		"FillRect":   d.FillRect(d.Bounds(), 0),
		"DrawImage":  d.DrawImage(solid(2, 2, red), image.Point{}),
		"DrawStream": d.DrawStream(pixstream.FromImage(solid(2, 2, red)), image.Point{}, 0, Copy, image.Rect(0, 0, 2, 2)),
		"DrawBuffer": d.DrawBuffer(image.Rect(0, 0, 1, 1)),
	} {
		if !errors.Is(err, ErrPoweredDown) {
			t.Errorf("%s() = %v", name, err)
		}
	}
	if n := len(p.Commands()); n != 0 {
		t.Errorf("%d commands sent while powered down", n)
	}
	// Powering down twice is a no-op.
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := d.Reinit(); err == nil {
		t.Error("Reinit() succeeded while powered down")
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if got := d.State(); got != Active {
		t.Fatalf("State() = %s", got)
	}
	if regs := p.Registers(); !regs.DisplayOn || regs.Sleeping {
		t.Fatalf("registers %+v", regs)
	}
	if got := p.Pixel(0, 0); got != 0 {
		t.Errorf("memory not cleared on wake up: %#06x", got)
	}
}

func TestNeedsReinit(t *testing.T) {
	d, p := newDev(t, nil)
	if need, err := d.NeedsReinit(); err != nil || need {
		t.Fatalf("NeedsReinit() = %t, %v", need, err)
	}
	// The controller lost its registers.
	p.Reset()
	if need, err := d.NeedsReinit(); err != nil || !need {
		t.Fatalf("NeedsReinit() = %t, %v after reset", need, err)
	}
	if err := d.Reinit(); err != nil {
		t.Fatal(err)
	}
	if need, err := d.NeedsReinit(); err != nil || need {
		t.Fatalf("NeedsReinit() = %t, %v after Reinit", need, err)
	}
}

func TestNeedsReinitAfterFailedReinit(t *testing.T) {
	d, p := newDev(t, nil)
	p.FailNext(errors.New("bus error"))
	if err := d.Reinit(); !errors.Is(err, ErrTransfer) {
		t.Fatalf("Reinit() = %v", err)
	}
	if need, err := d.NeedsReinit(); err != nil || !need {
		t.Fatalf("NeedsReinit() = %t, %v after a failed Reinit", need, err)
	}
	if err := d.Reinit(); err != nil {
		t.Fatal(err)
	}
	if need, err := d.NeedsReinit(); err != nil || need {
		t.Fatalf("NeedsReinit() = %t, %v", need, err)
	}
}

func TestDone(t *testing.T) {
	d, p := newDev(t, nil)
	b := d.Buffer().Borrow()
	mustPanic(t, "Done while the buffer is borrowed", func() { _ = d.Done() })
	d.Buffer().Return(b)
	if err := d.Done(); err != nil {
		t.Fatal(err)
	}
	if got := d.State(); got != Uninit {
		t.Fatalf("State() = %s", got)
	}
	if d.Buffer() != nil {
		t.Error("buffer kept after Done")
	}
	if err := d.DrawImage(solid(2, 2, red), image.Point{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DrawImage() = %v", err)
	}
	if _, err := d.NeedsReinit(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NeedsReinit() = %v", err)
	}
	if err := d.PowerDown(); err != nil {
		t.Errorf("PowerDown() = %v", err)
	}
	// The emulated panel survives Close, the Dev can start over.
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.DrawImage(solid(2, 2, red), image.Point{}); err != nil {
		t.Fatal(err)
	}
	if got := p.Pixel(1, 1); got != 0xFC0000 {
		t.Errorf("Pixel(1, 1) = %#06x", got)
	}
}

func TestResetPin(t *testing.T) {
	rst := &gpiotest.Pin{N: "RST"}
	d, _ := newDev(t, func(o *Opts) { o.Reset = rst })
	if got := rst.Read(); got != gpio.High {
		t.Errorf("reset pin left %s", got)
	}
	if got := PowerState(9).String(); got != "PowerState(9)" {
		t.Errorf("String() = %q", got)
	}
	if err := d.Reinit(); err != nil {
		t.Fatal(err)
	}
}

func TestInitFailure(t *testing.T) {
	d, p := newDev(t, nil)
	if err := d.PowerDown(); err != nil {
		t.Fatal(err)
	}
	p.FailNext(errors.New("bus error"))
	if err := d.Init(); !errors.Is(err, ErrTransfer) {
		t.Fatalf("Init() = %v", err)
	}
	if got := d.State(); got != PoweredDown {
		t.Errorf("State() = %s after a failed Init", got)
	}
}
