package device

import "log/slog"

// Options configures a fake device at construction time. It is not
// runtime-mutable; devices copy what they need in New. Zero values select
// per-device defaults.
type Options struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	SerialNumber string

	// MaxPacketSize is the endpoint packet size the device advertises.
	MaxPacketSize int
	// FullSpeedOnly disables the high-speed chirp handshake.
	FullSpeedOnly bool

	// BlockSize and BlockCount configure mass-storage capacity; ignored
	// by devices without storage semantics.
	BlockSize  int
	BlockCount int

	// Logger receives the device's diagnostic trace lines. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// Log returns the configured logger, falling back to slog.Default.
func (o *Options) Log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
