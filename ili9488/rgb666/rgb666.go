// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgb666 implements the 18 bit color format used by the ILI9488 on a
// serial interface.
//
// Each pixel travels as 3 bytes, one per channel, with the 6 significant bits
// in the high bits of each byte (mask 0xFC). Host colors are 24 bit 0xRRGGBB
// values. Packing swaps the red and blue lanes so that the little endian
// bytes of the packed value are the wire order: red first, blue last.
package rgb666

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Mask keeps the 6 significant bits of every byte lane.
const Mask = 0xFCFCFC

// BytesPerPixel is the size of a pixel on the wire.
const BytesPerPixel = 3

// Pack converts a 0xRRGGBB host color to the packed panel format.
//
// The 2 low bits of each channel are dropped.
func Pack(c uint32) uint32 {
	return ((c >> 16) & 0x00FC) | (c & 0xFC00) | ((c << 16) & 0xFC0000)
}

// Unpack converts a packed panel color back to 0xRRGGBB.
//
// Unpack(Pack(c)) == c & Mask.
func Unpack(c uint32) uint32 {
	return ((c >> 16) & 0x00FC) | (c & 0xFC00) | ((c << 16) & 0xFC0000)
}

// Put writes the packed color p into b in wire order.
func Put(b []byte, p uint32) {
	_ = b[2]
	b[0] = byte(p)
	b[1] = byte(p >> 8)
	b[2] = byte(p >> 16)
}

// Get reads a packed color from b in wire order.
func Get(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// Fill repeats the packed color p over b. A trailing partial pixel is left
// untouched.
func Fill(b []byte, p uint32) {
	if len(b) < BytesPerPixel {
		return
	}
	Put(b, p)
	n := len(b) - len(b)%BytesPerPixel
	for i := BytesPerPixel; i < n; i *= 2 {
		copy(b[i:n], b[:i])
	}
}

// Color is a pixel as stored by the panel. Only the high 6 bits of each
// channel are meaningful.
type Color struct {
	R, G, B uint8
}

// FromRGB returns the Color for a 0xRRGGBB host color.
func FromRGB(c uint32) Color {
	return Color{R: byte(c>>16) & 0xFC, G: byte(c>>8) & 0xFC, B: byte(c) & 0xFC}
}

// FromPacked returns the Color for a packed panel color.
func FromPacked(p uint32) Color {
	return Color{R: byte(p) & 0xFC, G: byte(p>>8) & 0xFC, B: byte(p>>16) & 0xFC}
}

// RGB returns the color as 0xRRGGBB.
func (c Color) RGB() uint32 {
	return uint32(c.R&0xFC)<<16 | uint32(c.G&0xFC)<<8 | uint32(c.B&0xFC)
}

// Packed returns the color in the packed panel format.
func (c Color) Packed() uint32 {
	return Pack(c.RGB())
}

// RGBA implements color.Color.
//
// The 6 bit channels are expanded by replicating their top bits so that
// full intensity maps to 0xFFFF.
func (c Color) RGBA() (r, g, b, a uint32) {
	return expand(c.R), expand(c.G), expand(c.B), 0xFFFF
}

func (c Color) String() string {
	return fmt.Sprintf("rgb666(#%06X)", c.RGB())
}

func expand(v uint8) uint32 {
	v6 := uint32(v >> 2)
	v8 := v6<<2 | v6>>4
	return v8 | v8<<8
}

func convert(c color.Color) color.Color {
	if c, ok := c.(Color); ok {
		return Color{R: c.R & 0xFC, G: c.G & 0xFC, B: c.B & 0xFC}
	}
	r, g, b, _ := c.RGBA()
	return Color{R: byte(r>>8) & 0xFC, G: byte(g>>8) & 0xFC, B: byte(b>>8) & 0xFC}
}

// Model converts any color to Color.
var Model = color.ModelFunc(convert)

// Image is an in-memory image in the panel's wire format, rows laid out one
// after another.
type Image struct {
	// Pix holds 3 bytes per pixel, wire order.
	Pix []byte
	// Stride is the number of bytes between vertically adjacent pixels.
	Stride int
	Rect   image.Rectangle
}

// NewImage returns an Image covering r.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return &Image{Rect: r}
	}
	return &Image{
		Pix:    make([]byte, w*h*BytesPerPixel),
		Stride: w * BytesPerPixel,
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return Model
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.Color666At(x, y)
}

// Color666At returns the color at (x, y).
func (i *Image) Color666At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(i.Rect)) {
		return Color{}
	}
	off := i.PixOffset(x, y)
	return Color{R: i.Pix[off], G: i.Pix[off+1], B: i.Pix[off+2]}
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetColor666(x, y, Model.Convert(c).(Color))
}

// SetColor666 sets the color at (x, y) without going through color.Model.
func (i *Image) SetColor666(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(i.Rect)) {
		return
	}
	off := i.PixOffset(x, y)
	i.Pix[off] = c.R & 0xFC
	i.Pix[off+1] = c.G & 0xFC
	i.Pix[off+2] = c.B & 0xFC
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (i *Image) PixOffset(x, y int) int {
	return (y-i.Rect.Min.Y)*i.Stride + (x-i.Rect.Min.X)*BytesPerPixel
}

var _ draw.Image = &Image{}
