package msc

// Command Block Wrapper (CBW) constants.
const (
	CBWSignature = 0x43425355 // "USBC"
	CBWSize      = 31         // fixed CBW size in bytes
)

// Command Status Wrapper (CSW) constants.
const (
	CSWSignature    = 0x53425355 // "USBS"
	CSWSize         = 13         // fixed CSW size in bytes
	CSWStatusPassed = 0x00
	CSWStatusFailed = 0x01
)

// SCSI operation codes handled by the emulator.
const (
	SCSITestUnitReady  = 0x00
	SCSIReadCapacity10 = 0x25
	SCSIRead10         = 0x28
)

// READ CAPACITY (10) response size in bytes.
const ReadCapacity10Size = 8

// Default storage geometry (512 KiB total).
const (
	DefaultBlockSize  = 512
	DefaultBlockCount = 1024
)

// Number of TEST_UNIT_READY polls the emulator rejects before latching
// ready, mimicking thumbdrive spin-up behavior.
const notReadyPolls = 2
