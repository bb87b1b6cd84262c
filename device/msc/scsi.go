package msc

import (
	"encoding/binary"
	"fmt"
)

// ReadCapacity10Response is the READ CAPACITY (10) data-in record. Both
// fields are big-endian on the wire regardless of host byte order.
type ReadCapacity10Response struct {
	LastLBA     uint32 // address of the last valid block (blockCount - 1)
	BlockLength uint32 // block size in bytes
}

// MarshalTo writes the 8-byte wire form of the response to buf. Returns
// the number of bytes written, or 0 if buf is too small.
func (r *ReadCapacity10Response) MarshalTo(buf []byte) int {
	if len(buf) < ReadCapacity10Size {
		return 0
	}
	binary.BigEndian.PutUint32(buf[0:4], r.LastLBA)
	binary.BigEndian.PutUint32(buf[4:8], r.BlockLength)
	return ReadCapacity10Size
}

// UnmarshalBinary decodes an 8-byte READ CAPACITY (10) response.
func (r *ReadCapacity10Response) UnmarshalBinary(data []byte) error {
	if len(data) < ReadCapacity10Size {
		return fmt.Errorf("short capacity response: %d bytes", len(data))
	}
	r.LastLBA = binary.BigEndian.Uint32(data[0:4])
	r.BlockLength = binary.BigEndian.Uint32(data[4:8])
	return nil
}
