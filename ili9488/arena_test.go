// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"image"
	"testing"
)

func TestArena(t *testing.T) {
	a := newArena(12)
	if a.Size() != 12 || a.Borrowed() {
		t.Fatalf("new arena: size %d, borrowed %t", a.Size(), a.Borrowed())
	}
	b := a.Borrow()
	if len(b) != 12 || !a.Borrowed() {
		t.Fatalf("Borrow() returned %d bytes", len(b))
	}
	mustPanic(t, "already borrowed", func() { a.Borrow() })
	// A prefix is accepted.
	a.Return(b[:3])
	mustPanic(t, "returned twice", func() { a.Return(b) })
	mustPanic(t, "foreign buffer", func() { a.Return(make([]byte, 12)) })
	mustPanic(t, "foreign buffer", func() { a.Return(nil) })
	if got := a.borrows.Load(); got != 1 {
		t.Errorf("borrows = %d", got)
	}
}

func TestArenaHeldByCaller(t *testing.T) {
	d, p := newDev(t, nil)
	b := d.Buffer().Borrow()
	mustPanic(t, "already borrowed", func() { _ = d.FillRect(image.Rect(0, 0, 1, 1), 0) })
	d.Buffer().Return(b)
	if n := len(p.Transfers()); n != 0 {
		t.Errorf("%d transfers while the buffer was held", n)
	}
}
