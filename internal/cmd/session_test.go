package cmd

import (
	"testing"

	"github.com/ramseymcgrath/guh/device"
	"github.com/ramseymcgrath/guh/device/midi"
	"github.com/ramseymcgrath/guh/device/msc"
	"github.com/ramseymcgrath/guh/internal/log"
	"github.com/ramseymcgrath/guh/internal/simtest"
	"github.com/ramseymcgrath/guh/internal/timing"
	"github.com/ramseymcgrath/guh/simbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietSession(t *testing.T, dev device.Device, budget int) *session {
	t.Helper()
	timing.ApplySimulationScale()
	return newSession(simbus.New(), dev, simtest.Quiet(), log.NewRaw(nil), budget)
}

func TestStorageSessionHighSpeed(t *testing.T) {
	dev, err := msc.New(&device.Options{Logger: simtest.Quiet()})
	require.NoError(t, err)

	s := quietSession(t, dev, 200_000)
	require.NoError(t, s.negotiate(false))
	require.NoError(t, s.runStorageScript(42))
}

func TestStorageSessionFullSpeed(t *testing.T) {
	dev, err := msc.New(&device.Options{
		Logger:        simtest.Quiet(),
		FullSpeedOnly: true,
		BlockSize:     256,
		BlockCount:    32,
	})
	require.NoError(t, err)

	s := quietSession(t, dev, 200_000)
	require.NoError(t, s.negotiate(true))
	require.NoError(t, s.runStorageScript(7))
}

func TestStreamSession(t *testing.T) {
	dev, err := midi.New(nil)
	require.NoError(t, err)

	s := quietSession(t, dev, 50_000)
	require.NoError(t, s.negotiate(true))
	require.NoError(t, s.runStreamScript(64))
}

func TestStorageScriptNeedsStorageDevice(t *testing.T) {
	dev, err := midi.New(nil)
	require.NoError(t, err)

	s := quietSession(t, dev, 50_000)
	require.NoError(t, s.negotiate(true))
	err = s.runStorageScript(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "msc device")
}

func TestStreamScriptRejectsEmptyCount(t *testing.T) {
	dev, err := midi.New(nil)
	require.NoError(t, err)

	s := quietSession(t, dev, 50_000)
	require.NoError(t, s.negotiate(true))

	for _, n := range []int{0, -1} {
		err := s.runStreamScript(n)
		require.Error(t, err, "n=%d", n)
		assert.Contains(t, err.Error(), "positive byte count")
	}
}

func TestNegotiationHonorsBudget(t *testing.T) {
	dev, err := midi.New(nil)
	require.NoError(t, err)

	// Far too few cycles for even the reset phase: the session must fail
	// promptly instead of burning the whole negotiation first.
	s := quietSession(t, dev, 100)
	err = s.negotiate(true)
	require.Error(t, err)
	assert.False(t, s.attached)
	assert.LessOrEqual(t, s.cycle, 101)
}

func TestRecvBytesHonorsBudget(t *testing.T) {
	dev, err := msc.New(&device.Options{Logger: simtest.Quiet()})
	require.NoError(t, err)

	// The device sends nothing until it gets a CBW, so a bare receive
	// must run out of cycles rather than spin forever.
	s := quietSession(t, dev, 60_000)
	require.NoError(t, s.negotiate(false))
	_, err = s.recvBytes(1)
	require.Error(t, err)
}
