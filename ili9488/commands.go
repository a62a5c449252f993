// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

// Command set used by the driver. See the ILI9488 datasheet, section 5.
const (
	_NOP      = 0x00
	_SWRESET  = 0x01
	_RDMADCTL = 0x0B
	_SLPIN    = 0x10
	_SLPOUT   = 0x11
	_INVOFF   = 0x20
	_INVON    = 0x21
	_GAMMASET = 0x26
	_DISPOFF  = 0x28
	_DISPON   = 0x29
	_CASET    = 0x2A
	_PASET    = 0x2B
	_RAMWR    = 0x2C
	_RAMRD    = 0x2E
	_MADCTL   = 0x36
	_COLMOD   = 0x3A
	_WRDISBV  = 0x51
	_WRCTRLD  = 0x53
)

// Bits of the MADCTL register.
const (
	MADCtlMY  = 1 << 7 // Row address order.
	MADCtlMX  = 1 << 6 // Column address order.
	MADCtlMV  = 1 << 5 // Row/column exchange.
	MADCtlML  = 1 << 4 // Vertical refresh order.
	MADCtlBGR = 1 << 3 // Blue-green-red panel order.
	MADCtlMH  = 1 << 2 // Horizontal refresh order.
)

// Pixel formats accepted by COLMOD. Only the 18 bit format is supported on a
// serial bus.
const (
	ColMod666 = 0x66
)

// Bits of the WRCTRLD register.
const (
	ctrlBCTRL = 0x20 // Brightness control block on.
	ctrlBL    = 0x04 // Backlight on.
)

// gammaCurves is the ordered set of GAMMASET parameters, one per curve.
var gammaCurves = [...]byte{0x01, 0x02, 0x04, 0x08}
