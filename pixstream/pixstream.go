// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pixstream defines the forward-only pixel stream consumed by the
// ili9488 blitter, and adapters producing such streams from decoded images,
// SVG drawings and text.
//
// A Source yields exactly Width*Height pixels in row-major order then
// returns io.EOF. Pixels with a zero alpha are transparent; the consumer
// replaces them with its own background color.
package pixstream

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	// Formats available to Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Header describes the image carried by a stream.
type Header struct {
	Width, Height int
	// Channels is 3 for opaque images and 4 when alpha is present.
	Channels int
}

// Bounds returns the natural bounds of the image, anchored at the origin.
func (h Header) Bounds() image.Rectangle {
	return image.Rect(0, 0, h.Width, h.Height)
}

func (h Header) String() string {
	return fmt.Sprintf("%dx%d/%d", h.Width, h.Height, h.Channels)
}

// Source is a single pass pixel iterator.
type Source interface {
	// Header returns the dimensions declared by the stream.
	Header() Header
	// Next returns the next pixel. It returns io.EOF once Width*Height pixels
	// were returned, or earlier if the underlying data is truncated.
	Next() (color.NRGBA, error)
}

// Transparent reports whether c is the transparency sentinel.
func Transparent(c color.NRGBA) bool {
	return c.A == 0
}

// ErrEmpty is returned for images without pixels.
var ErrEmpty = errors.New("pixstream: empty image")

// FromImage returns a Source iterating over the pixels of img.
func FromImage(img image.Image) Source {
	b := img.Bounds()
	ch := 4
	if opaque(img) {
		ch = 3
	}
	return &imageSource{
		img: img,
		h:   Header{Width: b.Dx(), Height: b.Dy(), Channels: ch},
		p:   b.Min,
	}
}

// Decode decodes an image in any registered format (PNG, JPEG, GIF, BMP,
// TIFF, WebP) and returns a stream over its pixels.
func Decode(r io.Reader) (Source, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, format, fmt.Errorf("pixstream: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmpty
	}
	return FromImage(img), format, nil
}

type imageSource struct {
	img image.Image
	h   Header
	p   image.Point
}

func (s *imageSource) Header() Header {
	return s.h
}

func (s *imageSource) Next() (color.NRGBA, error) {
	b := s.img.Bounds()
	if s.p.Y >= b.Max.Y || b.Empty() {
		return color.NRGBA{}, io.EOF
	}
	c := color.NRGBAModel.Convert(s.img.At(s.p.X, s.p.Y)).(color.NRGBA)
	if s.p.X++; s.p.X >= b.Max.X {
		s.p.X = b.Min.X
		s.p.Y++
	}
	return c, nil
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
