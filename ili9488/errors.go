// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by operations on a Dev that was never
	// initialized or was torn down by Done.
	ErrNotInitialized = errors.New("ili9488: not initialized")
	// ErrPoweredDown is returned by drawing operations after PowerDown.
	ErrPoweredDown = errors.New("ili9488: powered down")
	// ErrNoReadBack is returned by read operations when FlagReadBack is not
	// set.
	ErrNoReadBack = errors.New("ili9488: read back not enabled")
	// ErrTransfer is the category of every *TransferError.
	ErrTransfer = errors.New("ili9488: transfer failed")
	// ErrDecodeExhausted is returned when a pixel stream ends before its
	// declared dimensions are satisfied.
	ErrDecodeExhausted = errors.New("ili9488: pixel stream exhausted")
	// ErrBufferTooSmall is returned when a rectangle does not fit the arena.
	ErrBufferTooSmall = errors.New("ili9488: rectangle does not fit the buffer")
)

// TransferError is a failure reported by the transport.
//
// The transfer engine is back to Idle when it is returned.
type TransferError struct {
	// Op is the failed operation: "command", "write" or "read".
	Op string
	// Cmd is the command byte for command and read operations.
	Cmd byte
	Err error
}

func (e *TransferError) Error() string {
	if e.Op == "write" {
		return fmt.Sprintf("ili9488: write: %v", e.Err)
	}
	return fmt.Sprintf("ili9488: %s 0x%02X: %v", e.Op, e.Cmd, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransfer) true for every TransferError.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}
