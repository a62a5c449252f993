// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488_test

import (
	"fmt"
	"image"
	"log"
	"os"

	"github.com/GermanBionicSystems/paneldrv/ili9488"
	"github.com/GermanBionicSystems/paneldrv/panelsim"
	"github.com/GermanBionicSystems/paneldrv/pixstream"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	// Use spireg SPI port registry to find the first available SPI bus.
	p, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	opts, err := ili9488.LoadOptsFile("/etc/panel.yaml")
	if err != nil {
		log.Fatal(err)
	}
	opts.Reset = gpioreg.ByName("GPIO27")
	opts.Backlight = gpioreg.ByName("GPIO18")
	dev, err := ili9488.NewSPI(p, gpioreg.ByName("GPIO25"), opts)
	if err != nil {
		log.Fatalf("failed to initialize display: %v", err)
	}
	defer dev.Halt()

	// Compose a frame and stream it to the panel.
	b := dev.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		log.Fatal(err)
	}
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 48}))
	dc.SetRGB(0, 0, 0.2)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored("Hello from periph!", float64(b.Dx())/2, float64(b.Dy())/2, 0.5, 0.5)
	if err := dev.DrawImage(dc.Image(), image.Point{}); err != nil {
		log.Fatal(err)
	}
}

func ExampleDev_DrawStream() {
	dev, err := ili9488.New(panelsim.New(nil), nil)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Open("logo.png")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	src, _, err := pixstream.Decode(f)
	if err != nil {
		log.Fatal(err)
	}
	// Center the upper left 64x64 tile over a dark blue background.
	at := dev.Bounds().Size().Sub(image.Pt(64, 64)).Div(2)
	if err := dev.DrawStream(src, at, 0x000033, ili9488.Copy, image.Rect(0, 0, 64, 64)); err != nil {
		log.Fatal(err)
	}
}

func ExampleNew() {
	// An emulated panel is handy to develop without the hardware.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	panel := panelsim.New(&panelsim.Opts{W: 480, H: 320, NoDMA: true})
	opts := ili9488.DefaultOpts
	opts.Logger = &logger
	dev, err := ili9488.New(panel, &opts)
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.FillRect(image.Rect(0, 0, 100, 100), 0xFF8000); err != nil {
		log.Fatal(err)
	}
	fmt.Println(dev)
	fmt.Println(dev.State(), dev.Config().Flags)
	fmt.Printf("%#06x\n", panel.Pixel(50, 50))
	// Output:
	// ili9488.Dev{panelsim.Panel{(480,320)}, (480,320)}
	// Active DMA|ReadBack|Safe
	// 0xfc8000
}
