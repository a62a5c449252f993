// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"fmt"
	"sync/atomic"
)

// Arena is the scratch buffer shared between the caller and the driver. It
// holds a few full panel rows in the wire format.
//
// At most one party holds the buffer at a time. The driver borrows it for
// every drawing operation, so the caller must return it before calling into
// the Dev. Borrowing twice or returning a buffer that is not borrowed is a
// programming error and panics.
//
// Arena is meant for the goroutine owning the Dev; it is not a lock.
type Arena struct {
	buf      []byte
	borrowed atomic.Bool
	borrows  atomic.Int64
}

func newArena(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// Borrow takes ownership of the buffer.
func (a *Arena) Borrow() []byte {
	if !a.borrowed.CompareAndSwap(false, true) {
		panic("ili9488: buffer already borrowed")
	}
	a.borrows.Add(1)
	return a.buf
}

// Return gives the buffer back. b must be the slice returned by Borrow, or a
// prefix of it.
func (a *Arena) Return(b []byte) {
	if cap(b) == 0 || &b[:1][0] != &a.buf[0] {
		panic(fmt.Sprintf("ili9488: returning a foreign buffer (%d bytes)", cap(b)))
	}
	if !a.borrowed.CompareAndSwap(true, false) {
		panic("ili9488: buffer returned twice")
	}
}

// Size returns the capacity of the buffer in bytes.
func (a *Arena) Size() int {
	return len(a.buf)
}

// Borrowed reports whether the buffer is currently out.
func (a *Arena) Borrowed() bool {
	return a.borrowed.Load()
}
