package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ramseymcgrath/guh/device"
	"github.com/ramseymcgrath/guh/device/msc"
	"github.com/ramseymcgrath/guh/internal/log"
	"github.com/ramseymcgrath/guh/internal/timing"
	"github.com/ramseymcgrath/guh/simbus"
	"github.com/ramseymcgrath/guh/usb"
)

// session drives the host side of the bus cycle by cycle. The device's
// protocol engine is stepped every cycle while attached; during speed
// negotiation the device-side port is scripted directly, since chirp
// signaling belongs to the PHY layer the fake devices do not model.
type session struct {
	bus    *simbus.Bus
	dev    device.Device
	logger *slog.Logger
	raw    log.RawLogger

	budget   int
	cycle    int
	attached bool
	lastEvt  simbus.Event
}

func newSession(bus *simbus.Bus, dev device.Device, logger *slog.Logger, raw log.RawLogger, budget int) *session {
	dev.Reset()
	return &session{
		bus:    bus,
		dev:    dev,
		logger: logger,
		raw:    raw,
		budget: budget,
	}
}

// tick advances everything one cycle: the bus relays and arbitrates
// using the signals currently driven on its ports, then the device
// takes its clock edge and the port latches what it will drive next
// cycle. Bus event transitions are logged.
func (s *session) tick() simbus.Event {
	evt := s.bus.Step()
	s.cycle++
	if evt != s.lastEvt {
		s.logger.Info("bus event", "event", evt.String(), "cycle", s.cycle)
		s.lastEvt = evt
	}

	if s.attached {
		p := s.bus.Dev
		out := s.dev.Step(usb.StreamIn{
			RxValid: p.RxValid,
			RxData:  p.RxData,
			TxReady: p.TxReady,
		})
		p.OpMode = usb.OpModeNormal
		p.TxValid = out.TxValid
		p.TxData = out.TxData
	}
	return evt
}

func (s *session) run(cycles int) error {
	for i := 0; i < cycles; i++ {
		if s.cycle >= s.budget {
			return fmt.Errorf("cycle budget of %d exhausted", s.budget)
		}
		s.tick()
	}
	return nil
}

// negotiate scripts the reset/chirp sequence: host drives SE0, the
// device answers with chirp K, then the host alternates K/J chirp pairs
// before releasing the bus. With fullSpeedOnly the device stays quiet
// and the reset simply completes at full speed.
func (s *session) negotiate(fullSpeedOnly bool) error {
	h := s.bus.Host
	d := s.bus.Dev

	h.OpMode = usb.OpModeRawDrive
	h.TxValid = false
	if err := s.run(timing.MinResetBeforeChirp); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	if !fullSpeedOnly {
		d.OpMode = usb.OpModeChirp
		d.TxValid = true
		d.TxData = 0x00 // chirp K
		if err := s.run(timing.ChirpDuration); err != nil {
			return fmt.Errorf("device chirp: %w", err)
		}
		d.TxValid = false
		d.OpMode = usb.OpModeNormal

		h.OpMode = usb.OpModeChirp
		for i := 0; i < 3; i++ {
			h.TxValid = true
			h.TxData = 0x00 // K
			if err := s.run(timing.ChirpDuration); err != nil {
				return fmt.Errorf("host chirp: %w", err)
			}
			h.TxData = 0x01 // J
			if err := s.run(timing.ChirpDuration); err != nil {
				return fmt.Errorf("host chirp: %w", err)
			}
		}
		h.TxValid = false
	} else {
		if err := s.run(timing.MinResetBeforeChirp); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	h.OpMode = usb.OpModeNormal
	h.TxValid = false
	if err := s.run(timing.ChirpFilter); err != nil {
		return err
	}

	s.attached = true
	speed := "high"
	if fullSpeedOnly {
		speed = "full"
	}
	s.logger.Info("negotiation complete", "speed", speed)
	return nil
}

// sendBytes delivers data to the device, waiting out the preamble lead
// time before the first byte is accepted.
func (s *session) sendBytes(data []byte) error {
	h := s.bus.Host
	for _, b := range data {
		h.TxValid = true
		h.TxData = b
		for {
			if s.cycle >= s.budget {
				return fmt.Errorf("cycle budget exhausted while sending (%d cycles)", s.cycle)
			}
			s.tick()
			if h.TxReady {
				break
			}
		}
	}
	h.TxValid = false
	s.raw.Log(true, data)
	return nil
}

// recvBytes collects exactly n bytes from the device.
func (s *session) recvBytes(n int) ([]byte, error) {
	h := s.bus.Host
	h.TxValid = false
	buf := make([]byte, 0, n)
	for len(buf) < n {
		if s.cycle >= s.budget {
			return nil, fmt.Errorf("cycle budget exhausted after %d of %d bytes", len(buf), n)
		}
		s.tick()
		if h.RxValid {
			buf = append(buf, h.RxData)
		}
	}
	s.raw.Log(false, buf)
	return buf, nil
}

// command sends one CBW and returns the decoded CSW, collecting dataLen
// data-phase bytes first if the command has a data-in phase.
func (s *session) command(cbw *msc.CommandBlockWrapper, dataLen int) ([]byte, *msc.CommandStatusWrapper, error) {
	var wire [msc.CBWSize]byte
	cbw.MarshalTo(wire[:])
	if err := s.sendBytes(wire[:]); err != nil {
		return nil, nil, err
	}

	var data []byte
	if dataLen > 0 {
		var err error
		data, err = s.recvBytes(dataLen)
		if err != nil {
			return nil, nil, err
		}
	}

	raw, err := s.recvBytes(msc.CSWSize)
	if err != nil {
		return nil, nil, err
	}
	var csw msc.CommandStatusWrapper
	if err := csw.UnmarshalBinary(raw); err != nil {
		return nil, nil, err
	}
	if csw.Tag != cbw.Tag {
		return nil, nil, fmt.Errorf("CSW tag %#x does not match CBW tag %#x", csw.Tag, cbw.Tag)
	}
	return data, &csw, nil
}

// runStorageScript performs the canonical BOT bring-up: poll readiness
// until the device reports ready, read the capacity, then read one block
// and check the synthetic pattern.
func (s *session) runStorageScript(lba uint32) error {
	mscDev, ok := s.dev.(*msc.Device)
	if !ok {
		return fmt.Errorf("storage script requires an msc device")
	}

	tag := uint32(0x1000)
	nextTag := func() uint32 { tag++; return tag }

	// Poll TEST_UNIT_READY until the device comes up. Thumbdrive-style
	// fixtures fail the first attempts on purpose.
	for attempt := 1; ; attempt++ {
		_, csw, err := s.command(testUnitReadyCBW(nextTag()), 0)
		if err != nil {
			return fmt.Errorf("TEST_UNIT_READY %d: %w", attempt, err)
		}
		s.logger.Info("TEST_UNIT_READY", "attempt", attempt, "status", csw.Status)
		if csw.Status == msc.CSWStatusPassed {
			break
		}
		if attempt >= 10 {
			return fmt.Errorf("device never became ready after %d polls", attempt)
		}
	}

	data, csw, err := s.command(readCapacity10CBW(nextTag()), msc.ReadCapacity10Size)
	if err != nil {
		return fmt.Errorf("READ_CAPACITY(10): %w", err)
	}
	if csw.Status != msc.CSWStatusPassed {
		return fmt.Errorf("READ_CAPACITY(10) failed with status %d", csw.Status)
	}
	var capacity msc.ReadCapacity10Response
	if err := capacity.UnmarshalBinary(data); err != nil {
		return err
	}
	s.logger.Info("capacity",
		"blocks", capacity.LastLBA+1,
		"block_size", capacity.BlockLength)

	blockSize := mscDev.BlockSize()
	block, csw, err := s.command(read10CBW(nextTag(), lba, 1, uint32(blockSize)), blockSize)
	if err != nil {
		return fmt.Errorf("READ(10): %w", err)
	}
	if csw.Status != msc.CSWStatusPassed {
		return fmt.Errorf("READ(10) failed with status %d", csw.Status)
	}
	for i, b := range block {
		if want := byte(i) ^ byte(lba); b != want {
			return fmt.Errorf("block byte %d: got %#02x, want %#02x", i, b, want)
		}
	}
	s.logger.Info("block verified", "lba", lba, "bytes", len(block))
	return nil
}

// runStreamScript collects n bytes from a streaming device and checks
// that they count up.
func (s *session) runStreamScript(n int) error {
	if n <= 0 {
		return fmt.Errorf("stream script needs a positive byte count, got %d", n)
	}
	data, err := s.recvBytes(n)
	if err != nil {
		return err
	}
	for i := 1; i < len(data); i++ {
		if data[i] != data[i-1]+1 {
			return fmt.Errorf("stream byte %d: got %#02x after %#02x, want upcounting", i, data[i], data[i-1])
		}
	}
	s.logger.Info("stream verified", "bytes", len(data), "first", data[0])
	return nil
}

func testUnitReadyCBW(tag uint32) *msc.CommandBlockWrapper {
	cbw := &msc.CommandBlockWrapper{
		Signature: msc.CBWSignature,
		Tag:       tag,
		CBLength:  6,
	}
	cbw.CB[0] = msc.SCSITestUnitReady
	return cbw
}

func readCapacity10CBW(tag uint32) *msc.CommandBlockWrapper {
	cbw := &msc.CommandBlockWrapper{
		Signature:          msc.CBWSignature,
		Tag:                tag,
		DataTransferLength: msc.ReadCapacity10Size,
		Flags:              0x80, // data-in
		CBLength:           10,
	}
	cbw.CB[0] = msc.SCSIReadCapacity10
	return cbw
}

func read10CBW(tag, lba, blocks, blockSize uint32) *msc.CommandBlockWrapper {
	cbw := &msc.CommandBlockWrapper{
		Signature:          msc.CBWSignature,
		Tag:                tag,
		DataTransferLength: blocks * blockSize,
		Flags:              0x80, // data-in
		CBLength:           10,
	}
	cbw.CB[0] = msc.SCSIRead10
	cbw.CB[2] = byte(lba >> 24)
	cbw.CB[3] = byte(lba >> 16)
	cbw.CB[4] = byte(lba >> 8)
	cbw.CB[5] = byte(lba)
	cbw.CB[7] = byte(blocks >> 8)
	cbw.CB[8] = byte(blocks)
	return cbw
}
