// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ili9488 controls a 480x320 TFT panel via an ILI9488 controller on a
// 4-wire serial bus.
//
// On a serial bus the controller only accepts 18 bit pixels, 3 bytes each.
// Host colors are 0xRRGGBB and are converted on the fly; see package rgb666.
//
// The driver never holds a full frame. It owns a small buffer of a few panel
// rows, the Arena, and streams images through it chunk by chunk: each chunk
// is decoded, cropped, blended over a background color, combined with the
// panel content by a raster op, then sent while the caller waits. Transfers
// are asynchronous when the bus supports DMA and blocking otherwise; safe
// mode forces blocking transfers with a guard delay for boards where DMA is
// unreliable.
//
// The reset pin, if present, must normally be High. The driver pulses it Low
// on Init.
//
// # Transport
//
// NewSPI wires a periph SPI port and a D/C pin. New accepts any Transport,
// e.g. the emulated controller of package panelsim.
//
// # Datasheets
//
// https://www.hpinfotech.ro/ILI9488.pdf
package ili9488
