// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// DefaultOpts is the configuration of a 480x320 panel in landscape, mirrored
// on both axes, as shipped on most 3.5" modules.
var DefaultOpts = Opts{
	W:            480,
	H:            320,
	BufferRows:   4,
	DMA:          true,
	ReadBack:     true,
	ColMod:       ColMod666,
	MADCtl:       MADCtlMY | MADCtlMX | MADCtlMV,
	Brightness:   0xFF,
	SPIHz:        20000000,
	PWMHz:        20000,
	SafeDelay:    10 * time.Microsecond,
	DMAProbe:     "",
	Gamma:        0,
	Inverted:     false,
	PWMInverted:  false,
	BacklightCtl: false,
}

// Opts defines the options for the device.
//
// The yaml tagged fields can be loaded from a file with LoadOpts.
type Opts struct {
	// W and H are the panel dimensions in the orientation selected by MADCtl.
	W int `yaml:"width"`
	H int `yaml:"height"`
	// BufferRows is the number of full panel rows the arena holds.
	BufferRows int `yaml:"buffer_rows"`

	// DMA enables asynchronous transfers.
	DMA bool `yaml:"dma"`
	// ReadBack enables reads from the panel (MISO wired).
	ReadBack bool `yaml:"read_back"`
	// SafeMode forces blocking transfers from the start.
	SafeMode bool `yaml:"safe_mode"`
	// SafeDelay is the guard time inserted before every transfer in safe
	// mode.
	SafeDelay time.Duration `yaml:"safe_delay"`
	// DMAProbe is a path that must exist for DMA to be considered available,
	// e.g. the dma:tx link of the SPI controller in sysfs. Empty disables the
	// probe.
	DMAProbe string `yaml:"dma_probe"`

	// ColMod is the interface pixel format.
	ColMod uint8 `yaml:"colmod"`
	// MADCtl is the memory access control register; it selects orientation,
	// mirroring and RGB/BGR order.
	MADCtl uint8 `yaml:"madctl"`
	// Gamma is the index of the initial gamma curve, 0 to 3.
	Gamma int `yaml:"gamma"`
	// Brightness is the initial backlight brightness.
	Brightness uint8 `yaml:"brightness"`
	// Inverted starts the panel with color inversion on.
	Inverted bool `yaml:"inverted"`
	// BacklightCtl starts with brightness control enabled.
	BacklightCtl bool `yaml:"backlight_control"`
	// PWMInverted flips the polarity of the backlight PWM pin.
	PWMInverted bool `yaml:"pwm_inverted"`

	// SPIHz is the SPI clock in Hz.
	SPIHz int64 `yaml:"spi_hz"`
	// PWMHz is the backlight PWM frequency in Hz.
	PWMHz int64 `yaml:"pwm_hz"`

	// Reset is the optional hardware reset pin, active low.
	Reset gpio.PinOut `yaml:"-"`
	// Backlight is the optional backlight pin, driven with PWM.
	Backlight gpio.PinOut `yaml:"-"`
	// Logger receives driver logs. nil disables logging.
	Logger *zerolog.Logger `yaml:"-"`
	// OnState is called on every transfer state change. It may be called
	// from the transport's completion context and must not block.
	OnState func(TransferState) `yaml:"-"`
}

// LoadOpts decodes YAML options on top of DefaultOpts.
func LoadOpts(r io.Reader) (*Opts, error) {
	o := DefaultOpts
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ili9488: options: %w", err)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// LoadOptsFile is LoadOpts reading from a file.
func LoadOptsFile(path string) (*Opts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadOpts(f)
}

func (o *Opts) validate() error {
	if o.W <= 0 || o.H <= 0 || o.W > 480 || o.H > 480 || o.W*o.H > 480*320 {
		return fmt.Errorf("ili9488: invalid size %dx%d", o.W, o.H)
	}
	if o.BufferRows <= 0 || o.BufferRows > o.H {
		return fmt.Errorf("ili9488: invalid buffer rows %d", o.BufferRows)
	}
	if o.ColMod != ColMod666 {
		return fmt.Errorf("ili9488: unsupported pixel format 0x%02X", o.ColMod)
	}
	if o.Gamma < 0 || o.Gamma >= len(gammaCurves) {
		return fmt.Errorf("ili9488: invalid gamma %d", o.Gamma)
	}
	if o.SafeDelay < 0 {
		return fmt.Errorf("ili9488: invalid safe delay %s", o.SafeDelay)
	}
	return nil
}

func (o *Opts) spiFrequency() physic.Frequency {
	return physic.Frequency(o.SPIHz) * physic.Hertz
}

func (o *Opts) pwmFrequency() physic.Frequency {
	return physic.Frequency(o.PWMHz) * physic.Hertz
}

func (o *Opts) flags() Flags {
	var f Flags
	if o.DMA {
		f |= FlagDMA
	}
	if o.ReadBack {
		f |= FlagReadBack
	}
	if o.SafeMode {
		f |= FlagSafe
	}
	return f
}
