package usb

// StreamIn carries the per-cycle signals a device endpoint samples: one
// incoming OUT byte lane and the peer's acceptance of the IN lane.
type StreamIn struct {
	RxValid bool // an OUT byte is offered this cycle
	RxData  byte // the offered byte
	TxReady bool // peer accepts the IN byte this cycle
}

// StreamOut carries the per-cycle signals a device endpoint drives.
type StreamOut struct {
	RxReady bool // device accepts the offered OUT byte this cycle
	TxValid bool // an IN byte is offered this cycle
	TxData  byte // the offered byte
	TxLast  bool // asserted on the final byte of a logical record
}
