package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ramseymcgrath/guh/device"
	"github.com/ramseymcgrath/guh/internal/log"
	"github.com/ramseymcgrath/guh/internal/timing"
	"github.com/ramseymcgrath/guh/simbus"
)

// Sim runs a scripted host session against one fake device: speed
// negotiation over the bus model, then a device-specific exchange.
type Sim struct {
	Device        string `help:"Device kind to simulate" enum:"msc,midi" default:"msc" env:"GUH_SIM_DEVICE"`
	Cycles        int    `help:"Cycle budget for the whole session" default:"200000" env:"GUH_SIM_CYCLES"`
	LBA           uint32 `help:"Block address read by the mass-storage script" default:"42"`
	BlockSize     int    `help:"Mass-storage block size in bytes" default:"512"`
	BlockCount    int    `help:"Mass-storage block count" default:"1024"`
	MaxPacketSize int    `help:"Endpoint max packet size" default:"64"`
	FullSpeedOnly bool   `help:"Skip the high-speed chirp handshake"`
	MidiBytes     int    `help:"Stream bytes to collect in the MIDI script" default:"64"`
}

// Run is called by kong when the sim command is executed.
func (s *Sim) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	// Shrink the timing budgets before the session starts; guarded so it
	// can only happen once per process.
	timing.ApplySimulationScale()

	dev, err := device.New(s.Device, &device.Options{
		MaxPacketSize: s.MaxPacketSize,
		FullSpeedOnly: s.FullSpeedOnly,
		BlockSize:     s.BlockSize,
		BlockCount:    s.BlockCount,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}

	ident := dev.Info()
	logger.Info("starting session",
		"device", s.Device,
		"vid", fmt.Sprintf("%04x", ident.VendorID),
		"pid", fmt.Sprintf("%04x", ident.ProductID),
		"product", ident.Product)

	sess := newSession(simbus.New(), dev, logger, rawLogger, s.Cycles)
	if err := sess.negotiate(s.FullSpeedOnly); err != nil {
		return fmt.Errorf("negotiation: %w", err)
	}

	switch s.Device {
	case "msc":
		err = sess.runStorageScript(s.LBA)
	case "midi":
		err = sess.runStreamScript(s.MidiBytes)
	default:
		err = fmt.Errorf("no session script for device kind %q", s.Device)
	}
	if err != nil {
		return err
	}

	logger.Info("session complete", "cycles", sess.cycle)
	return nil
}
