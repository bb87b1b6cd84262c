package msc_test

import (
	"testing"

	"github.com/ramseymcgrath/guh/device"
	"github.com/ramseymcgrath/guh/device/msc"
	"github.com/ramseymcgrath/guh/internal/simtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T, o *device.Options) *msc.Device {
	t.Helper()
	if o == nil {
		o = &device.Options{}
	}
	o.Logger = simtest.Quiet()
	dev, err := msc.New(o)
	require.NoError(t, err)
	return dev
}

func cbwBytes(t *testing.T, cbw *msc.CommandBlockWrapper) []byte {
	t.Helper()
	wire := make([]byte, msc.CBWSize)
	require.Equal(t, msc.CBWSize, cbw.MarshalTo(wire))
	return wire
}

func testUnitReady(tag uint32) *msc.CommandBlockWrapper {
	cbw := &msc.CommandBlockWrapper{Signature: msc.CBWSignature, Tag: tag, CBLength: 6}
	cbw.CB[0] = msc.SCSITestUnitReady
	return cbw
}

func readCapacity10(tag uint32) *msc.CommandBlockWrapper {
	cbw := &msc.CommandBlockWrapper{
		Signature:          msc.CBWSignature,
		Tag:                tag,
		DataTransferLength: msc.ReadCapacity10Size,
		Flags:              0x80,
		CBLength:           10,
	}
	cbw.CB[0] = msc.SCSIReadCapacity10
	return cbw
}

func read10(tag, lba uint32) *msc.CommandBlockWrapper {
	cbw := &msc.CommandBlockWrapper{
		Signature:          msc.CBWSignature,
		Tag:                tag,
		DataTransferLength: msc.DefaultBlockSize,
		Flags:              0x80,
		CBLength:           10,
	}
	cbw.CB[0] = msc.SCSIRead10
	cbw.CB[2] = byte(lba >> 24)
	cbw.CB[3] = byte(lba >> 16)
	cbw.CB[4] = byte(lba >> 8)
	cbw.CB[5] = byte(lba)
	cbw.CB[8] = 1
	return cbw
}

// getCSW reads the next record off the IN lane and decodes it as a CSW.
func getCSW(t *testing.T, h *simtest.Harness) *msc.CommandStatusWrapper {
	t.Helper()
	raw := h.GetRecord()
	require.Len(t, raw, msc.CSWSize)
	var csw msc.CommandStatusWrapper
	require.NoError(t, csw.UnmarshalBinary(raw))
	assert.Equal(t, uint32(msc.CSWSignature), csw.Signature)
	assert.Zero(t, csw.DataResidue)
	return &csw
}

// bringUp polls TEST_UNIT_READY until the device latches ready.
func bringUp(t *testing.T, h *simtest.Harness) {
	t.Helper()
	for i := 0; i < 3; i++ {
		h.Put(cbwBytes(t, testUnitReady(uint32(0x100+i))))
		getCSW(t, h)
	}
}

func TestTestUnitReadyFailsFirstTwoPolls(t *testing.T) {
	dev := newDevice(t, nil)
	h := simtest.New(t, dev)

	want := []uint8{
		msc.CSWStatusFailed,
		msc.CSWStatusFailed,
		msc.CSWStatusPassed,
		msc.CSWStatusPassed, // latch never reverts
	}
	for i, status := range want {
		tag := uint32(0xA0 + i)
		h.Put(cbwBytes(t, testUnitReady(tag)))
		csw := getCSW(t, h)
		assert.Equal(t, status, csw.Status, "poll %d", i+1)
		assert.Equal(t, tag, csw.Tag, "poll %d tag echo", i+1)
	}
}

func TestCommandsRejectedBeforeReady(t *testing.T) {
	dev := newDevice(t, nil)
	h := simtest.New(t, dev)

	// READ_CAPACITY before any successful poll: CSW FAILED, and the only
	// record on the wire is the 13-byte CSW, not an 8-byte capacity.
	h.Put(cbwBytes(t, readCapacity10(0x31)))
	csw := getCSW(t, h)
	assert.Equal(t, uint8(msc.CSWStatusFailed), csw.Status)

	h.Put(cbwBytes(t, read10(0x32, 7)))
	csw = getCSW(t, h)
	assert.Equal(t, uint8(msc.CSWStatusFailed), csw.Status)
}

func TestReadCapacityAfterBringUp(t *testing.T) {
	dev := newDevice(t, nil)
	h := simtest.New(t, dev)
	bringUp(t, h)

	h.Put(cbwBytes(t, readCapacity10(0x77)))
	raw := h.GetRecord()
	require.Len(t, raw, msc.ReadCapacity10Size)

	var capacity msc.ReadCapacity10Response
	require.NoError(t, capacity.UnmarshalBinary(raw))
	assert.Equal(t, uint32(msc.DefaultBlockCount-1), capacity.LastLBA)
	assert.Equal(t, uint32(msc.DefaultBlockSize), capacity.BlockLength)

	csw := getCSW(t, h)
	assert.Equal(t, uint8(msc.CSWStatusPassed), csw.Status)
	assert.Equal(t, uint32(0x77), csw.Tag)
}

func TestReadCapacityHonorsGeometry(t *testing.T) {
	dev := newDevice(t, &device.Options{BlockSize: 4096, BlockCount: 64})
	h := simtest.New(t, dev)
	bringUp(t, h)

	h.Put(cbwBytes(t, readCapacity10(0x78)))
	var capacity msc.ReadCapacity10Response
	require.NoError(t, capacity.UnmarshalBinary(h.GetRecord()))
	assert.Equal(t, uint32(63), capacity.LastLBA)
	assert.Equal(t, uint32(4096), capacity.BlockLength)
	getCSW(t, h)
}

func TestRead10BlockPattern(t *testing.T) {
	dev := newDevice(t, nil)
	h := simtest.New(t, dev)
	bringUp(t, h)

	for _, lba := range []uint32{0, 42, 0x1FF} {
		h.Put(cbwBytes(t, read10(0x500+lba, lba)))
		block := h.GetRecord()
		require.Len(t, block, msc.DefaultBlockSize, "lba %d", lba)
		for i, b := range block {
			require.Equal(t, byte(i)^byte(lba), b, "lba %d byte %d", lba, i)
		}
		csw := getCSW(t, h)
		assert.Equal(t, uint8(msc.CSWStatusPassed), csw.Status, "lba %d", lba)
	}
}

func TestInvalidSignatureSilentlyDiscarded(t *testing.T) {
	dev := newDevice(t, nil)
	h := simtest.New(t, dev)

	bogus := testUnitReady(0x99)
	bogus.Signature = 0x12345678
	h.Put(cbwBytes(t, bogus))

	// No CSW is produced; the device goes straight back to waiting.
	assert.True(t, h.Quiescent(64))

	// The readiness counter was not touched: a fresh session still takes
	// exactly two failed polls.
	want := []uint8{msc.CSWStatusFailed, msc.CSWStatusFailed, msc.CSWStatusPassed}
	for i, status := range want {
		h.Put(cbwBytes(t, testUnitReady(uint32(i))))
		assert.Equal(t, status, getCSW(t, h).Status, "poll %d", i+1)
	}
}

func TestUnknownOpcodeAcknowledged(t *testing.T) {
	dev := newDevice(t, nil)
	h := simtest.New(t, dev)

	cbw := &msc.CommandBlockWrapper{Signature: msc.CBWSignature, Tag: 0x55, CBLength: 6}
	cbw.CB[0] = 0x12 // INQUIRY, not implemented by the fixture
	h.Put(cbwBytes(t, cbw))

	csw := getCSW(t, h)
	assert.Equal(t, uint8(msc.CSWStatusPassed), csw.Status)
	assert.Equal(t, uint32(0x55), csw.Tag)
}

func TestResetRearmsScriptedFailures(t *testing.T) {
	dev := newDevice(t, nil)
	h := simtest.New(t, dev)
	bringUp(t, h)

	h.Reset()
	h.Put(cbwBytes(t, testUnitReady(0x01)))
	assert.Equal(t, uint8(msc.CSWStatusFailed), getCSW(t, h).Status)
}

func TestNewOptionDefaultsAndOverrides(t *testing.T) {
	dev := newDevice(t, nil)
	ident := dev.Info()
	assert.Equal(t, uint16(0x16D0), ident.VendorID)
	assert.Equal(t, uint16(0x0F3C), ident.ProductID)
	assert.Equal(t, "MSC Device", ident.Product)
	assert.Equal(t, msc.DefaultBlockSize, dev.BlockSize())
	assert.Equal(t, msc.DefaultBlockCount, dev.BlockCount())

	dev = newDevice(t, &device.Options{
		VendorID:  0x1234,
		ProductID: 0x5678,
		Product:   "Fake Disk",
		BlockSize: 1024,
	})
	ident = dev.Info()
	assert.Equal(t, uint16(0x1234), ident.VendorID)
	assert.Equal(t, uint16(0x5678), ident.ProductID)
	assert.Equal(t, "Fake Disk", ident.Product)
	assert.Equal(t, 1024, dev.BlockSize())

	_, err := msc.New(&device.Options{BlockSize: -1})
	assert.Error(t, err)
	_, err = msc.New(&device.Options{BlockCount: -1})
	assert.Error(t, err)
}
