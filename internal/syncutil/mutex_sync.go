// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !deadlock

// Package syncutil provides the mutex used to serialize access to a panel.
//
// By default it is a plain sync.Mutex. Build with -tags=deadlock to swap in
// github.com/sasha-s/go-deadlock, which reports lock-order inversions and
// locks held for too long.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
type Mutex struct {
	sync.Mutex
}
