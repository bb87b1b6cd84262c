// Package usb contains the wire-level types shared between the bus model
// and the fake devices: line-state encodings, PHY operating modes and the
// per-cycle byte handshake signal bundles.
package usb

// LineState is the 2-bit logical encoding of the differential data lines
// as sampled by each side of the bus.
type LineState uint8

const (
	LineStateSE0 LineState = 0b00 // single-ended zero (reset / packet framing)
	LineStateJ   LineState = 0b01 // idle
	LineStateK   LineState = 0b10 // chirp K / resume
)

// String returns the conventional name of the line state.
func (s LineState) String() string {
	switch s {
	case LineStateSE0:
		return "SE0"
	case LineStateJ:
		return "J"
	case LineStateK:
		return "K"
	default:
		return "SE1"
	}
}

// OpMode selects how a side drives the bus, mirroring the UTMI operating
// modes the host and device cores switch between during reset and chirp.
type OpMode uint8

const (
	// OpModeNormal is ordinary packet transmission.
	OpModeNormal OpMode = iota
	// OpModeChirp drives the chirp handshake: TxData selects K or J.
	OpModeChirp
	// OpModeRawDrive forces the line directly (host bus reset, SE0).
	OpModeRawDrive
)

// String returns the operating mode name.
func (m OpMode) String() string {
	switch m {
	case OpModeNormal:
		return "normal"
	case OpModeChirp:
		return "chirp"
	case OpModeRawDrive:
		return "raw-drive"
	default:
		return "unknown"
	}
}
