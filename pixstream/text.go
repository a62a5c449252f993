// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pixstream

import (
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var goRegular = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// Label renders a single line of text in the Go Regular font and returns a
// stream over it. size is in points at 72 DPI.
//
// The image is exactly as wide as the text and as tall as the font extent.
// Pass color.Transparent as bg to let the drawing code pick the background.
func Label(text string, size float64, fg, bg color.Color) (Source, error) {
	f, err := goRegular()
	if err != nil {
		return nil, fmt.Errorf("pixstream: font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size})
	defer face.Close()
	m := face.Metrics()
	dc := gg.NewContext(1, 1)
	dc.SetFontFace(face)
	tw, _ := dc.MeasureString(text)
	w, h := int(math.Ceil(tw)), (m.Ascent + m.Descent).Ceil()
	if w <= 0 || h <= 0 {
		return nil, ErrEmpty
	}
	dc = gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetColor(fg)
	dc.DrawString(text, 0, float64(m.Ascent.Ceil()))
	return FromImage(dc.Image()), nil
}
