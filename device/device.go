// Package device provides the common interface and construction options
// for the fake USB peripherals used to exercise a host stack.
package device

import "github.com/ramseymcgrath/guh/usb"

// Device is the minimal interface a fake peripheral must implement. A
// device is a synchronous state machine clocked by Step: each call is
// one clock edge, sampling in `in` the peer's handshake signals from
// the cycle just completed and returning the signals the device drives
// for the next cycle.
type Device interface {
	// Step advances the device one clock edge.
	Step(in usb.StreamIn) usb.StreamOut
	// Reset returns the device to its power-on state, as after a bus
	// reset. Scripted behavior (readiness counters and the like) starts
	// over for the new session.
	Reset()
	// Info returns the device's cosmetic identity. The protocol engines
	// never consume it.
	Info() Identity
}

// Identity carries the construction-time vendor/product identifiers and
// strings a real device would expose through its descriptors.
type Identity struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	SerialNumber string
}
