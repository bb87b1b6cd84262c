package msc

import (
	"encoding/binary"
	"fmt"
)

// CommandBlockWrapper is the Bulk-Only Transport request envelope. The
// outer fields are little-endian on the wire; the embedded command block
// carries SCSI's big-endian fields.
type CommandBlockWrapper struct {
	Signature          uint32   // must equal CBWSignature to be honored
	Tag                uint32   // opaque, echoed back in the CSW
	DataTransferLength uint32   // bytes expected in the data phase
	Flags              uint8    // bit 7: 0=OUT, 1=IN
	LUN                uint8    // logical unit number (bits 0-3)
	CBLength           uint8    // command block length (bits 0-4)
	CB                 [16]byte // SCSI command descriptor block
}

// UnmarshalBinary decodes a 31-byte CBW. The signature is decoded but not
// validated here; the protocol engine decides what to do with a bad one.
func (cbw *CommandBlockWrapper) UnmarshalBinary(data []byte) error {
	if len(data) < CBWSize {
		return fmt.Errorf("short CBW: %d bytes", len(data))
	}
	*cbw = decodeCBW((*[CBWSize]byte)(data))
	return nil
}

// decodeCBW decodes a full CBW buffer. Callers with a fixed-size buffer
// use it directly; there is no failure mode.
func decodeCBW(data *[CBWSize]byte) CommandBlockWrapper {
	cbw := CommandBlockWrapper{
		Signature:          binary.LittleEndian.Uint32(data[0:4]),
		Tag:                binary.LittleEndian.Uint32(data[4:8]),
		DataTransferLength: binary.LittleEndian.Uint32(data[8:12]),
		Flags:              data[12],
		LUN:                data[13] & 0x0F,
		CBLength:           data[14] & 0x1F,
	}
	copy(cbw.CB[:], data[15:31])
	return cbw
}

// MarshalTo writes the 31-byte wire form of the CBW to buf. Returns the
// number of bytes written, or 0 if buf is too small.
func (cbw *CommandBlockWrapper) MarshalTo(buf []byte) int {
	if len(buf) < CBWSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], cbw.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], cbw.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], cbw.DataTransferLength)
	buf[12] = cbw.Flags
	buf[13] = cbw.LUN & 0x0F
	buf[14] = cbw.CBLength & 0x1F
	copy(buf[15:31], cbw.CB[:])
	return CBWSize
}

// Opcode returns the SCSI operation code of the embedded command block.
func (cbw *CommandBlockWrapper) Opcode() uint8 {
	return cbw.CB[0]
}

// LBA returns the logical block address of a CDB10 command. SCSI carries
// it big-endian at bytes 2..5 of the command block.
func (cbw *CommandBlockWrapper) LBA() uint32 {
	return binary.BigEndian.Uint32(cbw.CB[2:6])
}

// CommandStatusWrapper is the Bulk-Only Transport response envelope,
// little-endian on the wire.
type CommandStatusWrapper struct {
	Signature   uint32 // always CSWSignature
	Tag         uint32 // copied from the triggering CBW
	DataResidue uint32 // expected minus actual data bytes
	Status      uint8  // CSWStatusPassed or CSWStatusFailed
}

// MarshalTo writes the 13-byte wire form of the CSW to buf. Returns the
// number of bytes written, or 0 if buf is too small.
func (csw *CommandStatusWrapper) MarshalTo(buf []byte) int {
	if len(buf) < CSWSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], csw.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], csw.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], csw.DataResidue)
	buf[12] = csw.Status
	return CSWSize
}

// UnmarshalBinary decodes a 13-byte CSW.
func (csw *CommandStatusWrapper) UnmarshalBinary(data []byte) error {
	if len(data) < CSWSize {
		return fmt.Errorf("short CSW: %d bytes", len(data))
	}
	csw.Signature = binary.LittleEndian.Uint32(data[0:4])
	csw.Tag = binary.LittleEndian.Uint32(data[4:8])
	csw.DataResidue = binary.LittleEndian.Uint32(data[8:12])
	csw.Status = data[12]
	return nil
}
