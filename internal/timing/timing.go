// Package timing holds the bus timing budgets shared by session scripts
// and tests. Values are expressed as cycle counts at the nominal 60 MHz
// bus clock and may be shrunk once, process-wide, to keep simulations
// fast while preserving the negotiated speed.
package timing

import "sync"

var (
	// ResetSettle is the settle time after connect before reset may be
	// driven (~3 ms).
	ResetSettle = 180_000
	// MinResetBeforeChirp is how long SE0 must be held before the device
	// may answer with chirp K (~1 ms).
	MinResetBeforeChirp = 60_000
	// MaxReset bounds how long reset is asserted (~10 ms).
	MaxReset = 600_000
	// ChirpFilter is the line-state filter window applied to chirp
	// transitions (~2.5 us).
	ChirpFilter = 150
	// ChirpDuration is how long each chirp phase is driven (~1.1 ms).
	ChirpDuration = 66_000
	// SOFIntervalFS is the full-speed frame interval (1 ms).
	SOFIntervalFS = 60_000
	// SOFIntervalHS is the high-speed microframe interval (125 us).
	SOFIntervalHS = 7_500
)

var scaleOnce sync.Once

// ApplySimulationScale shrinks the timing budgets so a scripted session
// completes in a reasonable number of cycles while still negotiating the
// correct speed. It must run before any session starts and is guarded so
// repeated calls cannot compound the scaling.
func ApplySimulationScale() {
	scaleOnce.Do(func() {
		ResetSettle /= 10
		MinResetBeforeChirp /= 10
		MaxReset /= 200
		ChirpFilter /= 10
		ChirpDuration /= 10
		SOFIntervalFS /= 10
		SOFIntervalHS /= 10
	})
}
