// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package paneldrv is a container for the ILI9488 display driver and its
// support packages.
//
// ili9488 drives the controller over SPI or any Transport. pixstream turns
// images, SVG drawings and text into pixel streams the driver consumes row by
// row. panelsim emulates the controller in memory, with a terminal preview
// and an HTTP mirror, so programs can run without the hardware.
package paneldrv
