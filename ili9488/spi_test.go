// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"path/filepath"
	"testing"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

// initOps is the bus traffic of Init on a 4x2 panel with a one row buffer.
var initOps = []conntest.IO{
	{W: []byte{_SWRESET}},
	{W: []byte{_SLPOUT}},
	{W: []byte{_COLMOD}}, {W: []byte{0x66}},
	{W: []byte{_MADCTL}}, {W: []byte{0xE0}},
	{W: []byte{_GAMMASET}}, {W: []byte{0x01}},
	{W: []byte{_INVOFF}},
	{W: []byte{_WRDISBV}}, {W: []byte{0xFF}},
	{W: []byte{_WRCTRLD}}, {W: []byte{0x00}},
	{W: []byte{_CASET}}, {W: []byte{0, 0, 0, 3}},
	{W: []byte{_PASET}}, {W: []byte{0, 0, 0, 0}},
	{W: []byte{_RAMWR}}, {W: make([]byte, 12)},
	{W: []byte{_CASET}}, {W: []byte{0, 0, 0, 3}},
	{W: []byte{_PASET}}, {W: []byte{0, 1, 0, 1}},
	{W: []byte{_RAMWR}}, {W: make([]byte, 12)},
	{W: []byte{_DISPON}},
}

func TestNewSPI(t *testing.T) {
	ops := append([]conntest.IO(nil), initOps...)
	ops = append(ops,
		// SetPixel(1, 1, red)
		conntest.IO{W: []byte{_CASET}}, conntest.IO{W: []byte{0, 1, 0, 1}},
		conntest.IO{W: []byte{_PASET}}, conntest.IO{W: []byte{0, 1, 0, 1}},
		conntest.IO{W: []byte{_RAMWR}}, conntest.IO{W: []byte{0xFC, 0x00, 0x00}},
		// Pixel(1, 1); the first byte read is the dummy cycle.
		conntest.IO{W: []byte{_CASET}}, conntest.IO{W: []byte{0, 1, 0, 1}},
		conntest.IO{W: []byte{_PASET}}, conntest.IO{W: []byte{0, 1, 0, 1}},
		conntest.IO{W: []byte{_RAMRD}},
		conntest.IO{W: make([]byte, 4), R: []byte{0xAA, 0xFC, 0x00, 0x00}},
	)
	pb := &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}}
	dc := &gpiotest.Pin{N: "DC"}
	o := DefaultOpts
	o.W, o.H, o.BufferRows = 4, 2, 1
	d, err := NewSPI(pb, dc, &o)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetPixel(1, 1, 0xFF0000); err != nil {
		t.Fatal(err)
	}
	c, err := d.Pixel(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if c != 0xFC0000 {
		t.Errorf("Pixel() = %#06x", c)
	}
	if pb.Count != len(pb.Ops) {
		t.Errorf("%d of %d operations played", pb.Count, len(pb.Ops))
	}
	// Data follows with D/C high.
	if got := dc.Read(); got != gpio.High {
		t.Errorf("dc left %s", got)
	}
}

func TestNewSPINoDC(t *testing.T) {
	if _, err := NewSPI(&spitest.Playback{}, nil, nil); err == nil {
		t.Fatal("NewSPI() without D/C succeeded")
	}
}

func TestSPIChunks(t *testing.T) {
	pb := &spitest.Playback{Playback: conntest.Playback{
		Ops: []conntest.IO{
			{W: []byte{1, 2, 3, 4}},
			{W: []byte{5, 6, 7, 8}},
			{W: []byte{9}},
			{W: []byte{_RAMRD}},
		},
		DontPanic: true,
	}}
	s := newSPITransport(pb, &gpiotest.Pin{}, "")
	s.maxTxSize = 4
	if err := s.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, false); err != nil {
		t.Fatal(err)
	}
	// A read must fit a single transaction with the dummy byte.
	if err := s.Read(_RAMRD, make([]byte, 4), false); err == nil {
		t.Fatal("oversized read succeeded")
	}
	if pb.Count != len(pb.Ops) {
		t.Errorf("%d of %d operations played", pb.Count, len(pb.Ops))
	}
	if s.MaxTxSize() != 4 {
		t.Errorf("MaxTxSize() = %d", s.MaxTxSize())
	}
}

func TestSPIAsync(t *testing.T) {
	pb := &spitest.Playback{Playback: conntest.Playback{
		Ops:       []conntest.IO{{W: []byte{1, 2, 3}}},
		DontPanic: true,
	}}
	s := newSPITransport(pb, &gpiotest.Pin{}, "")
	done := make(chan error, 1)
	s.SetCompletion(func(err error) { done <- err }, nil)
	if err := s.Write([]byte{1, 2, 3}, true); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestDMAProbe(t *testing.T) {
	dir := t.TempDir()
	for _, tc := range []struct {
		probe string
		want  bool
	}{
		{"", true},
		{dir, true},
		{filepath.Join(dir, "dma:tx"), false},
	} {
		s := newSPITransport(&spitest.Playback{}, &gpiotest.Pin{}, tc.probe)
		if got := s.DMAAvailable(); got != tc.want {
			t.Errorf("DMAAvailable(%q) = %t", tc.probe, got)
		}
	}
}
