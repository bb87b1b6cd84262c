package usb

// Port is one side's view of the shared bus. The owning side drives the
// transmit signals and its operating mode; the bus model drives TxReady,
// the receive signals and LineState. All fields are level-sensitive and
// sampled once per bus cycle.
type Port struct {
	// Transmit lane (side -> bus).
	TxValid bool
	TxData  byte
	TxReady bool // set by the bus when the byte is accepted this cycle

	// Receive lane (bus -> side). RxActive leads RxValid by the framing
	// preamble; consumers must tolerate that delay when sampling.
	RxValid  bool
	RxActive bool
	RxData   byte

	// Operating mode currently selected by the owning side.
	OpMode OpMode

	// Line state as computed by the bus arbitration this cycle. Both
	// ports always observe the identical value.
	LineState LineState
}
