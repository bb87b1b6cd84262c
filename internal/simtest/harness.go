// Package simtest drives a fake peripheral's stream interface directly,
// without a bus in between, for package-level protocol tests.
package simtest

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ramseymcgrath/guh/device"
	"github.com/ramseymcgrath/guh/usb"
)

// Quiet returns a logger that discards everything, for wiring into
// devices under test.
func Quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Harness clocks a device one Step per cycle and plays the peer side of
// the ready/valid handshake. It latches the signals the device drives
// each cycle, so bytes are sampled from the cycle they were offered and
// acknowledged on the following edge, the way the bus model consumes
// them.
type Harness struct {
	t   *testing.T
	dev device.Device
	out usb.StreamOut

	// Budget bounds the total number of cycles a harness may burn, so a
	// stuck state machine fails fast instead of hanging the test.
	Budget int

	cycles int
}

// New resets the device and runs one idle edge to latch its power-on
// outputs.
func New(t *testing.T, dev device.Device) *Harness {
	t.Helper()
	h := &Harness{t: t, dev: dev, Budget: 100_000}
	h.Reset()
	return h
}

// Reset restarts the device and re-latches its outputs.
func (h *Harness) Reset() {
	h.dev.Reset()
	h.out = h.dev.Step(usb.StreamIn{})
}

func (h *Harness) step(in usb.StreamIn) {
	h.cycles++
	if h.cycles > h.Budget {
		h.t.Fatalf("cycle budget of %d exhausted", h.Budget)
	}
	h.out = h.dev.Step(in)
}

// StepIdle runs n cycles with no handshake activity.
func (h *Harness) StepIdle(n int) {
	for i := 0; i < n; i++ {
		h.step(usb.StreamIn{})
	}
}

// Put delivers data to the device's receive lane, one byte per cycle
// the device is ready.
func (h *Harness) Put(data []byte) {
	h.t.Helper()
	for _, b := range data {
		for !h.out.RxReady {
			h.step(usb.StreamIn{})
		}
		h.step(usb.StreamIn{RxValid: true, RxData: b})
	}
}

// Get collects exactly n bytes from the device's transmit lane,
// acknowledging each offered byte.
func (h *Harness) Get(n int) []byte {
	h.t.Helper()
	buf := make([]byte, 0, n)
	for len(buf) < n {
		if !h.out.TxValid {
			h.step(usb.StreamIn{})
			continue
		}
		buf = append(buf, h.out.TxData)
		h.step(usb.StreamIn{TxReady: true})
	}
	return buf
}

// GetRecord collects bytes until the device marks one as the last of
// its record.
func (h *Harness) GetRecord() []byte {
	h.t.Helper()
	var buf []byte
	for {
		if !h.out.TxValid {
			h.step(usb.StreamIn{})
			continue
		}
		buf = append(buf, h.out.TxData)
		last := h.out.TxLast
		h.step(usb.StreamIn{TxReady: true})
		if last {
			return buf
		}
	}
}

// Quiescent reports whether the device offers nothing on its transmit
// lane for n consecutive cycles.
func (h *Harness) Quiescent(n int) bool {
	for i := 0; i < n; i++ {
		if h.out.TxValid {
			return false
		}
		h.step(usb.StreamIn{})
	}
	return true
}
