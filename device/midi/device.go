// Package midi implements a fake USB MIDI streaming device. Its bulk IN
// endpoint offers an upcounting byte every cycle, which is enough to
// verify that a host stack enumerates the device and polls its stream.
package midi

import (
	"github.com/ramseymcgrath/guh/device"
	"github.com/ramseymcgrath/guh/usb"
)

// Device streams an 8-bit counter on its IN endpoint. Bytes arriving on
// the OUT endpoint are accepted and discarded.
type Device struct {
	ident         device.Identity
	maxPacketSize int
	fullSpeedOnly bool

	counter byte
}

// New creates a MIDI streaming device. Zero option fields select the
// defaults of the original fixture (0x16d0:0x0f3b, 64-byte packets).
func New(o *device.Options) (*Device, error) {
	if o == nil {
		o = &device.Options{}
	}
	d := &Device{
		ident: device.Identity{
			VendorID:     0x16D0,
			ProductID:    0x0F3B,
			Manufacturer: "LUNA",
			Product:      "Test Device",
			SerialNumber: "1234",
		},
		maxPacketSize: 64,
		fullSpeedOnly: o.FullSpeedOnly,
	}
	if o.VendorID != 0 {
		d.ident.VendorID = o.VendorID
	}
	if o.ProductID != 0 {
		d.ident.ProductID = o.ProductID
	}
	if o.Manufacturer != "" {
		d.ident.Manufacturer = o.Manufacturer
	}
	if o.Product != "" {
		d.ident.Product = o.Product
	}
	if o.SerialNumber != "" {
		d.ident.SerialNumber = o.SerialNumber
	}
	if o.MaxPacketSize != 0 {
		d.maxPacketSize = o.MaxPacketSize
	}
	return d, nil
}

// Info returns the device identity.
func (d *Device) Info() device.Identity { return d.ident }

// Reset restarts the counter.
func (d *Device) Reset() { d.counter = 0 }

// Step offers the current counter value on the IN lane; the counter
// advances each time the peer accepted the previous cycle's byte.
func (d *Device) Step(in usb.StreamIn) usb.StreamOut {
	if in.TxReady {
		d.counter++
	}
	return usb.StreamOut{
		RxReady: true,
		TxValid: true,
		TxData:  d.counter,
	}
}

func init() {
	device.Register("midi", func(o *device.Options) (device.Device, error) {
		return New(o)
	})
}
