// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// paneldraw draws an image, an SVG drawing or a line of text on an ILI9488
// panel, or on an emulated one served over HTTP.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GermanBionicSystems/paneldrv/ili9488"
	"github.com/GermanBionicSystems/paneldrv/panelsim"
	"github.com/GermanBionicSystems/paneldrv/pixstream"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	config := flag.String("config", "", "YAML panel options")
	spiID := flag.String("spi", "", "SPI port to use")
	dcName := flag.String("dc", "GPIO25", "D/C pin")
	rstName := flag.String("rst", "", "reset pin")
	blName := flag.String("bl", "", "backlight pin")
	sim := flag.String("sim", "", "emulate the panel and serve it over HTTP on this address, e.g. :8080")
	preview := flag.Bool("preview", false, "print the emulated panel to the terminal")
	x := flag.Int("x", 0, "left position")
	y := flag.Int("y", 0, "top position")
	bg := flag.String("bg", "000000", "background color as RRGGBB")
	rop := flag.String("rop", "copy", "raster op: copy, and, or, xor, invert, swapbw, desaturate")
	text := flag.String("text", "", "draw this text instead of a file")
	size := flag.Float64("size", 32, "text size in points")
	fg := flag.String("fg", "FFFFFF", "text color as RRGGBB")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	o := ili9488.DefaultOpts
	opts := &o
	if *config != "" {
		var err error
		if opts, err = ili9488.LoadOptsFile(*config); err != nil {
			return err
		}
	}
	opts.Logger = &logger
	back, err := parseColor(*bg)
	if err != nil {
		return err
	}
	op, err := ili9488.ParseRasterOp(*rop)
	if err != nil {
		return err
	}

	var src pixstream.Source
	switch {
	case *text != "":
		if flag.NArg() != 0 {
			return errors.New("-text and a file are mutually exclusive")
		}
		c, err := parseColor(*fg)
		if err != nil {
			return err
		}
		if src, err = pixstream.Label(*text, *size, rgb(c), color.Transparent); err != nil {
			return err
		}
	case flag.NArg() == 1:
		if src, err = open(flag.Arg(0), opts.W, opts.H); err != nil {
			return err
		}
	default:
		return errors.New("specify a file to draw or -text")
	}

	var panel *panelsim.Panel
	var dev *ili9488.Dev
	if *sim != "" {
		panel = panelsim.New(&panelsim.Opts{W: opts.W, H: opts.H, Logger: &logger})
		if dev, err = ili9488.New(panel, opts); err != nil {
			return err
		}
	} else {
		if _, err := host.Init(); err != nil {
			return err
		}
		p, err := spireg.Open(*spiID)
		if err != nil {
			return err
		}
		defer p.Close()
		dc := gpioreg.ByName(*dcName)
		if dc == nil {
			return fmt.Errorf("unknown pin %q", *dcName)
		}
		if opts.Reset, err = pin(*rstName); err != nil {
			return err
		}
		if opts.Backlight, err = pin(*blName); err != nil {
			return err
		}
		if dev, err = ili9488.NewSPI(p, dc, opts); err != nil {
			return err
		}
	}
	logger.Debug().Stringer("dev", dev).Stringer("image", src.Header()).Msg("drawing")
	if err := dev.DrawStream(src, image.Pt(*x, *y), back, op, src.Header().Bounds()); err != nil {
		return err
	}
	if panel == nil {
		return nil
	}
	if *preview {
		if err := panel.Preview(panelsim.Terminal(), nil); err != nil {
			return err
		}
	}
	logger.Info().Str("addr", *sim).Msg("serving the emulated panel, ^C to stop")
	errc := make(chan error, 1)
	go func() {
		errc <- http.ListenAndServe(*sim, panel)
	}()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	select {
	case err := <-errc:
		return err
	case <-sig:
	}
	return dev.Done()
}

// open returns a stream over an image file; SVG drawings are rendered to
// w x h.
func open(path string, w, h int) (pixstream.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return pixstream.RenderSVG(f, w, h)
	}
	src, _, err := pixstream.Decode(f)
	return src, err
}

func pin(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown pin %q", name)
	}
	return p, nil
}

func parseColor(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 24)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	return uint32(v), nil
}

func rgb(c uint32) color.NRGBA {
	return color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "paneldraw: %s.\n", err)
		os.Exit(1)
	}
}
