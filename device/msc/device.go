// Package msc implements a fake USB mass-storage device speaking SCSI
// over Bulk-Only Transport. It is a test fixture for exercising a host
// stack: data is generated synthetically rather than read from media, and
// the first two TEST_UNIT_READY polls fail on purpose, as thumbdrives
// tend to do while spinning up.
package msc

import (
	"fmt"
	"log/slog"

	"github.com/ramseymcgrath/guh/device"
	"github.com/ramseymcgrath/guh/usb"
)

type state uint8

const (
	stateRecvCBW state = iota
	stateProcessCBW
	stateSendCapacity
	stateSendData
	stateSendCSW
)

// Device is the BOT/SCSI protocol engine. One command is in flight at a
// time: a new CBW is not accepted until the CSW for the previous one has
// been sent (or the CBW was silently discarded).
type Device struct {
	ident         device.Identity
	logger        *slog.Logger
	maxPacketSize int
	fullSpeedOnly bool
	blockSize     int
	blockCount    int

	st    state
	rxBuf [CBWSize]byte
	rxIdx int
	cbw   CommandBlockWrapper

	txBuf [CSWSize]byte // staging for capacity and CSW records
	txLen int
	txIdx int

	readyPolls int
	ready      bool
	cswFail    bool
}

// New creates a mass-storage device. Zero option fields select the
// defaults of the original fixture (0x16d0:0x0f3c, 64-byte packets,
// 1024 blocks of 512 bytes).
func New(o *device.Options) (*Device, error) {
	if o == nil {
		o = &device.Options{}
	}
	d := &Device{
		ident: device.Identity{
			VendorID:     0x16D0,
			ProductID:    0x0F3C,
			Manufacturer: "Test",
			Product:      "MSC Device",
			SerialNumber: "1234",
		},
		logger:        o.Log(),
		maxPacketSize: 64,
		fullSpeedOnly: o.FullSpeedOnly,
		blockSize:     DefaultBlockSize,
		blockCount:    DefaultBlockCount,
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
	if o.BlockSize != 0 {
		if o.BlockSize < 0 {
			return nil, fmt.Errorf("block size must be positive, got %d", o.BlockSize)
		}
		d.blockSize = o.BlockSize
	}
	if o.BlockCount != 0 {
		if o.BlockCount < 0 {
			return nil, fmt.Errorf("block count must be positive, got %d", o.BlockCount)
		}
		d.blockCount = o.BlockCount
	}
	return d, nil
}

// Info returns the device identity.
func (d *Device) Info() device.Identity { return d.ident }

// BlockSize returns the configured block size in bytes.
func (d *Device) BlockSize() int { return d.blockSize }

// BlockCount returns the configured number of blocks.
func (d *Device) BlockCount() int { return d.blockCount }

// Reset returns the engine to its power-on state: waiting for a CBW,
// readiness cleared, scripted not-ready polls re-armed.
func (d *Device) Reset() {
	d.st = stateRecvCBW
	d.rxIdx = 0
	d.txIdx = 0
	d.txLen = 0
	d.readyPolls = 0
	d.ready = false
	d.cswFail = false
}

// Step advances the engine one clock edge. in carries the peer-side
// handshake signals observed during the cycle just completed; the
// returned signals are what the device drives for the next cycle.
func (d *Device) Step(in usb.StreamIn) usb.StreamOut {
	switch d.st {
	case stateRecvCBW:
		if in.RxValid {
			d.rxBuf[d.rxIdx] = in.RxData
			d.rxIdx++
			if d.rxIdx == CBWSize {
				d.rxIdx = 0
				d.txIdx = 0
				d.cbw = decodeCBW(&d.rxBuf)
				d.logger.Info("recv CBW", "opcode", fmt.Sprintf("%#02x", d.cbw.Opcode()))
				d.st = stateProcessCBW
			}
		}

	case stateProcessCBW:
		d.processCBW()

	case stateSendCapacity, stateSendCSW:
		d.ackRecord(in)

	case stateSendData:
		d.ackBlock(in)
	}

	return d.drive()
}

// drive computes the signals for the upcoming cycle from the current
// state. Transmit states hold valid high continuously, so a capacity
// record and its CSW ride a single preamble.
func (d *Device) drive() usb.StreamOut {
	switch d.st {
	case stateRecvCBW:
		return usb.StreamOut{RxReady: true}
	case stateSendCapacity, stateSendCSW:
		return usb.StreamOut{
			TxValid: true,
			TxData:  d.txBuf[d.txIdx],
			TxLast:  d.txIdx == d.txLen-1,
		}
	case stateSendData:
		return usb.StreamOut{
			TxValid: true,
			TxData:  byte(d.txIdx) ^ byte(d.cbw.LBA()),
			TxLast:  d.txIdx == d.blockSize-1,
		}
	}
	return usb.StreamOut{}
}

// processCBW dispatches a fully received CBW. Takes one cycle with no
// handshake activity on either lane.
func (d *Device) processCBW() {
	if d.cbw.Signature != CBWSignature {
		// No CSW for a malformed CBW; the host is expected to time out
		// and recover at a higher layer.
		d.st = stateRecvCBW
		return
	}

	switch d.cbw.Opcode() {
	case SCSITestUnitReady:
		if d.readyPolls < notReadyPolls {
			d.cswFail = true
			d.readyPolls++
		} else {
			d.ready = true
		}
		d.enterSendCSW()

	case SCSIReadCapacity10:
		if d.ready {
			d.enterSendCapacity()
		} else {
			d.cswFail = true
			d.enterSendCSW()
		}

	case SCSIRead10:
		if d.ready {
			d.st = stateSendData
		} else {
			d.cswFail = true
			d.enterSendCSW()
		}

	default:
		// Unrecognized commands are acknowledged with whatever status is
		// pending, a fixture simplification. A real BOT device would
		// raise CHECK CONDITION here.
		d.enterSendCSW()
	}
}

func (d *Device) enterSendCapacity() {
	resp := ReadCapacity10Response{
		LastLBA:     uint32(d.blockCount - 1),
		BlockLength: uint32(d.blockSize),
	}
	d.txLen = resp.MarshalTo(d.txBuf[:])
	d.txIdx = 0
	d.st = stateSendCapacity
}

func (d *Device) enterSendCSW() {
	status := uint8(CSWStatusPassed)
	if d.cswFail {
		status = CSWStatusFailed
	}
	csw := CommandStatusWrapper{
		Signature:   CSWSignature,
		Tag:         d.cbw.Tag,
		DataResidue: 0,
		Status:      status,
	}
	d.txLen = csw.MarshalTo(d.txBuf[:])
	d.txIdx = 0
	d.st = stateSendCSW
}

// ackRecord advances the staged capacity or CSW record when the byte
// offered last cycle was accepted, byte 0 first.
func (d *Device) ackRecord(in usb.StreamIn) {
	if !in.TxReady {
		return
	}
	if d.txIdx < d.txLen-1 {
		d.txIdx++
		return
	}
	d.txIdx = 0
	if d.st == stateSendCSW {
		d.logger.Info("sent CSW", "status", d.txBuf[CSWSize-1])
		d.cswFail = false
		d.st = stateRecvCBW
	} else {
		d.enterSendCSW()
	}
}

// ackBlock walks one block of synthetic data: byte i is the low byte of
// the transmit index XORed with the low byte of the active command's
// LBA. After the final byte the CSW follows.
func (d *Device) ackBlock(in usb.StreamIn) {
	if !in.TxReady {
		return
	}
	if d.txIdx == d.blockSize-1 {
		d.txIdx = 0
		d.enterSendCSW()
	} else {
		d.txIdx++
	}
}

func init() {
	device.Register("msc", func(o *device.Options) (device.Device, error) {
		return New(o)
	})
}
