// Package simbus models the shared USB bus between a host and a device:
// it relays transmitted bytes in both directions and arbitrates which
// side drives the line state during reset and high-speed chirp
// negotiation. The model is purely combinational per cycle apart from the
// per-direction preamble counters; it never interprets payload bytes.
package simbus

import "github.com/ramseymcgrath/guh/usb"

// PreambleCycles is the number of cycles RxActive leads TxReady on a
// continuous transmit-valid streak. It stands in for the packet sync
// preamble arriving ahead of the first real data byte; acceptance begins
// on the cycle after the counter saturates (the 4th cycle of the streak).
const PreambleCycles = 3

// Bus connects a host-side and a device-side port. Callers drive each
// port's transmit signals and operating mode between calls to Step.
type Bus struct {
	Host *usb.Port
	Dev  *usb.Port

	hostPreamble uint8 // host -> device streak counter
	devPreamble  uint8 // device -> host streak counter
}

// New returns a Bus with fresh, idle ports on both sides.
func New() *Bus {
	return &Bus{Host: &usb.Port{}, Dev: &usb.Port{}}
}

// Step advances the bus one cycle: bytes are relayed host->device and
// device->host, the line state is arbitrated, and the active arbitration
// case is returned. Both ports observe the identical line state.
func (b *Bus) Step() Event {
	relay(b.Host, b.Dev, &b.hostPreamble)
	relay(b.Dev, b.Host, &b.devPreamble)

	state, event := arbitrate(b.Host, b.Dev)
	b.Host.LineState = state
	b.Dev.LineState = state
	return event
}

// relay forwards one direction of traffic. A byte is delivered the cycle
// the sender holds TxValid and the relay grants TxReady; the grant is
// withheld until the preamble counter has seen PreambleCycles cycles of
// uninterrupted TxValid. Dropping TxValid resets the counter.
func relay(src, snk *usb.Port, preamble *uint8) {
	src.TxReady = false
	snk.RxActive = false

	if src.TxValid {
		snk.RxActive = true
		if *preamble == PreambleCycles {
			src.TxReady = true
		} else {
			*preamble++
		}
	} else {
		*preamble = 0
	}

	snk.RxValid = src.TxValid && src.TxReady
	snk.RxData = src.TxData
}

// arbitrate computes the dominant bus condition as a pure function of the
// sampled port signals. The cases form a strict priority chain; the first
// match wins:
//
//  1. device chirp: TxData 0x00 maps to K, anything else to J
//  2. host chirp: same mapping
//  3. host raw drive (bus reset): SE0
//  4. ordinary packet transmission on either side: SE0
//  5. idle, connected: J
func arbitrate(hst, dev *usb.Port) (usb.LineState, Event) {
	switch {
	case dev.OpMode == usb.OpModeChirp && dev.TxValid:
		if dev.TxData == 0x00 {
			return usb.LineStateK, EventDevChirpK
		}
		return usb.LineStateJ, EventDevChirpJ

	case hst.OpMode == usb.OpModeChirp && hst.TxValid:
		if hst.TxData == 0x00 {
			return usb.LineStateK, EventHostChirpK
		}
		return usb.LineStateJ, EventHostChirpJ

	case hst.OpMode == usb.OpModeRawDrive:
		return usb.LineStateSE0, EventHostReset

	case dev.TxValid || hst.TxValid:
		// Packet framing no longer depends on the line-state encoding
		// once both cores are in normal transmission.
		return usb.LineStateSE0, EventIdle

	default:
		return usb.LineStateJ, EventIdle
	}
}
