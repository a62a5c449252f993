// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ili9488

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Transport moves bytes between the driver and the panel controller.
//
// Asynchronous operations return as soon as the transfer is started and
// report their outcome exactly once through the callbacks registered with
// SetCompletion, typically from an interrupt handler or the goroutine
// standing in for one. An operation returning an error must not invoke the
// callback.
type Transport interface {
	// Command sends a single command byte. It always blocks.
	Command(cmd byte) error
	// Write sends parameter or pixel data following a command.
	Write(data []byte, async bool) error
	// Read sends cmd and fills r with the response, without the dummy cycle
	// the controller inserts before read data.
	Read(cmd byte, r []byte, async bool) error
	// SetCompletion registers the transmit and receive completion callbacks.
	SetCompletion(tx, rx func(err error))
}

// Flags are the feature flags of a PanelConfig.
type Flags uint8

// Feature flags.
const (
	// FlagDMA enables asynchronous transfers.
	FlagDMA Flags = 0x08
	// FlagReadBack enables reads from the panel.
	FlagReadBack Flags = 0x10
	// FlagSafe forces blocking transfers. It is never cleared.
	FlagSafe Flags = 0x20
)

func (f Flags) String() string {
	s := ""
	for _, b := range []struct {
		f    Flags
		name string
	}{{FlagDMA, "DMA"}, {FlagReadBack, "ReadBack"}, {FlagSafe, "Safe"}} {
		if f&b.f != 0 {
			if s != "" {
				s += "|"
			}
			s += b.name
		}
	}
	if s == "" {
		return "0"
	}
	return s
}

// TransferState is the state of the transfer engine.
type TransferState uint8

// Transfer states.
const (
	Idle TransferState = iota
	SendingBlocking
	SendingAsync
)

func (s TransferState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SendingBlocking:
		return "SendingBlocking"
	case SendingAsync:
		return "SendingAsync"
	default:
		return fmt.Sprintf("TransferState(%d)", uint8(s))
	}
}

// Internal engine states. The direction of an asynchronous transfer is kept
// so that a receive completion cannot end a transmission.
const (
	stIdle int32 = iota
	stBlocking
	stAsyncTx
	stAsyncRx
)

func publicState(s int32) TransferState {
	switch s {
	case stBlocking:
		return SendingBlocking
	case stAsyncTx, stAsyncRx:
		return SendingAsync
	default:
		return Idle
	}
}

// engine runs one transfer at a time over a Transport.
//
// Callers are serialized by Dev.mu. The completion callbacks are the only
// code running concurrently with the owner; they touch st and post into the
// single slot channels, nothing else.
type engine struct {
	t         Transport
	cfg       *PanelConfig
	log       *zerolog.Logger
	safeDelay time.Duration
	onState   func(TransferState)

	st     atomic.Int32
	txDone chan error
	rxDone chan error
}

func newEngine(t Transport, cfg *PanelConfig, log *zerolog.Logger, opts *Opts) *engine {
	e := &engine{
		t:         t,
		cfg:       cfg,
		log:       log,
		safeDelay: opts.SafeDelay,
		onState:   opts.OnState,
		txDone:    make(chan error, 1),
		rxDone:    make(chan error, 1),
	}
	t.SetCompletion(e.onTxComplete, e.onRxComplete)
	return e
}

// state returns the current state.
func (e *engine) state() TransferState {
	return publicState(e.st.Load())
}

func (e *engine) async() bool {
	f := e.cfg.Flags
	return f&FlagDMA != 0 && f&FlagSafe == 0
}

func (e *engine) enter(to int32) {
	if !e.st.CompareAndSwap(stIdle, to) {
		panic(fmt.Sprintf("ili9488: transfer started while %s", e.state()))
	}
	e.notify(to)
}

func (e *engine) leave() {
	e.st.Store(stIdle)
	e.notify(stIdle)
}

func (e *engine) notify(s int32) {
	if e.onState != nil {
		e.onState(publicState(s))
	}
}

// blocking runs fn with the engine in SendingBlocking.
func (e *engine) blocking(fn func() error) error {
	e.enter(stBlocking)
	defer e.leave()
	if e.cfg.Flags&FlagSafe != 0 && e.safeDelay > 0 {
		sleep(e.safeDelay)
	}
	return fn()
}

// overlapped starts fn and waits for the completion posted on done.
func (e *engine) overlapped(st int32, done chan error, fn func() error) error {
	e.enter(st)
	if err := fn(); err != nil {
		e.leave()
		// Drop a completion the transport should not have sent.
		select {
		case <-done:
		default:
		}
		return err
	}
	return <-done
}

// command sends cmd followed by its parameters.
func (e *engine) command(cmd byte, params ...byte) error {
	err := e.blocking(func() error {
		if err := e.t.Command(cmd); err != nil {
			return err
		}
		if len(params) == 0 {
			return nil
		}
		return e.t.Write(params, false)
	})
	if err != nil {
		return &TransferError{Op: "command", Cmd: cmd, Err: err}
	}
	return nil
}

// write sends data, asynchronously when the configuration allows it.
func (e *engine) write(data []byte) error {
	var err error
	if e.async() {
		err = e.overlapped(stAsyncTx, e.txDone, func() error { return e.t.Write(data, true) })
	} else {
		err = e.blocking(func() error { return e.t.Write(data, false) })
	}
	if err != nil {
		return &TransferError{Op: "write", Err: err}
	}
	return nil
}

// read issues cmd and reads the response into r.
func (e *engine) read(cmd byte, r []byte) error {
	var err error
	if e.async() {
		err = e.overlapped(stAsyncRx, e.rxDone, func() error { return e.t.Read(cmd, r, true) })
	} else {
		err = e.blocking(func() error { return e.t.Read(cmd, r, false) })
	}
	if err != nil {
		return &TransferError{Op: "read", Cmd: cmd, Err: err}
	}
	return nil
}

func (e *engine) onTxComplete(err error) {
	e.complete(stAsyncTx, e.txDone, err)
}

func (e *engine) onRxComplete(err error) {
	e.complete(stAsyncRx, e.rxDone, err)
}

// complete runs in the transport's completion context and never blocks.
func (e *engine) complete(st int32, done chan error, err error) {
	if !e.st.CompareAndSwap(st, stIdle) {
		e.log.Warn().Stringer("state", e.state()).Msg("spurious transfer completion")
		return
	}
	e.notify(stIdle)
	select {
	case done <- err:
	default:
	}
}

// sleep is replaced in tests.
var sleep = time.Sleep
