// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"fmt"
	"os"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// spiTransport drives a 4-wire SPI bus: a data/command pin selects whether
// the bytes on the bus are a command or its data.
//
// The periph SPI connection blocks until the transfer is done. Asynchronous
// transfers run the blocking call on a goroutine which then invokes the
// completion callback, the way a DMA interrupt would.
type spiTransport struct {
	c         conn.Conn
	dc        gpio.PinOut
	maxTxSize int
	probe     string

	tx, rx func(error)
}

func newSPITransport(c conn.Conn, dc gpio.PinOut, probe string) *spiTransport {
	// Get the maxTxSize from the conn if it implements the conn.Limits
	// interface, otherwise use 4096 bytes.
	maxTxSize := 0
	if limits, ok := c.(conn.Limits); ok {
		maxTxSize = limits.MaxTxSize()
	}
	if maxTxSize == 0 {
		maxTxSize = 4096
	}
	return &spiTransport{c: c, dc: dc, maxTxSize: maxTxSize, probe: probe}
}

func (s *spiTransport) String() string {
	return fmt.Sprintf("%s, %s", s.c, s.dc)
}

func (s *spiTransport) SetCompletion(tx, rx func(error)) {
	s.tx, s.rx = tx, rx
}

func (s *spiTransport) Command(cmd byte) error {
	if err := s.dc.Out(gpio.Low); err != nil {
		return err
	}
	return s.c.Tx([]byte{cmd}, nil)
}

func (s *spiTransport) Write(data []byte, async bool) error {
	if err := s.dc.Out(gpio.High); err != nil {
		return err
	}
	if !async {
		return s.send(data)
	}
	go func() {
		s.tx(s.send(data))
	}()
	return nil
}

func (s *spiTransport) Read(cmd byte, r []byte, async bool) error {
	if err := s.Command(cmd); err != nil {
		return err
	}
	if err := s.dc.Out(gpio.High); err != nil {
		return err
	}
	if !async {
		return s.recv(r)
	}
	go func() {
		s.rx(s.recv(r))
	}()
	return nil
}

// send splits data in chunks the bus accepts. The controller keeps writing
// memory across chip select toggles as long as no command is sent.
func (s *spiTransport) send(data []byte) error {
	for len(data) != 0 {
		n := min(len(data), s.maxTxSize)
		if err := s.c.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// recv reads in a single transaction since releasing chip select ends a read.
func (s *spiTransport) recv(r []byte) error {
	if len(r)+1 > s.maxTxSize {
		return fmt.Errorf("read of %d bytes exceeds the bus limit of %d", len(r), s.maxTxSize-1)
	}
	w := make([]byte, len(r)+1)
	in := make([]byte, len(r)+1)
	if err := s.c.Tx(w, in); err != nil {
		return err
	}
	copy(r, in[1:])
	return nil
}

// DMAAvailable reports whether the probe path exists.
func (s *spiTransport) DMAAvailable() bool {
	if s.probe == "" {
		return true
	}
	_, err := os.Stat(s.probe)
	return err == nil
}

// MaxTxSize implements conn.Limits.
func (s *spiTransport) MaxTxSize() int {
	return s.maxTxSize
}
