package sata

import "fmt"

// Sequence numbers and NCQ tags

// SeqNum is the 16-bit wrapping transport sequence number carried by every
// captured frame.
type SeqNum uint16

// Next returns the sequence number expected after s.
func (s SeqNum) Next() SeqNum { return s + 1 }

// Before reports whether s precedes o using serial number arithmetic, so
// ordering survives the wrap from 0xFFFF to 0x0000.
func (s SeqNum) Before(o SeqNum) bool { return int16(s-o) < 0 }

// Distance returns how many sequence numbers lie from s forward to o.
func (s SeqNum) Distance(o SeqNum) uint16 { return uint16(o - s) }

const (
	// NCQSlotCount is the number of NCQ queue tags defined by SATA.
	NCQSlotCount = 32

	// BadTag is an invalid NCQ tag value.
	BadTag uint8 = 0xFF

	// DefaultSectorSize is the logical sector size used to size transfers.
	DefaultSectorSize = 512

	// MaxSectorSize keeps a full 65536 sector transfer within 32 bits.
	MaxSectorSize = 32768

	// DataCRCLength is the size of the CRC dword trailing every Data FIS payload.
	DataCRCLength = 4
)

// IsValidTag returns true if tag addresses an NCQ slot.
func IsValidTag(tag uint8) bool {
	return tag < NCQSlotCount
}

// Direction is the link direction a frame travelled in.
type Direction uint8

const (
	HostToDevice Direction = 0
	DeviceToHost Direction = 1
)

func (d Direction) String() string {
	switch d {
	case HostToDevice:
		return "H2D"
	case DeviceToHost:
		return "D2H"
	default:
		return "???"
	}
}

// XferDir is the data direction of a disk command.
type XferDir uint8

const (
	XferNone XferDir = iota
	XferRead
	XferWrite
)

func (x XferDir) String() string {
	switch x {
	case XferRead:
		return "Read"
	case XferWrite:
		return "Write"
	default:
		return "None"
	}
}

// DataSource returns the link direction data frames travel in for this
// transfer direction.
func (x XferDir) DataSource() Direction {
	if x == XferRead {
		return DeviceToHost
	}
	return HostToDevice
}

// FIS type bytes

// FISType is the first byte of every Frame Information Structure.
type FISType uint8

const (
	FISRegH2D       FISType = 0x27
	FISRegD2H       FISType = 0x34
	FISDMAActivate  FISType = 0x39
	FISDMASetup     FISType = 0x41
	FISData         FISType = 0x46
	FISBISTActivate FISType = 0x58
	FISPIOSetup     FISType = 0x5F
	FISSetDevBits   FISType = 0xA1
)

// Minimum on-wire sizes in bytes, header dwords only for Data.
const (
	RegH2DLen       = 20
	RegD2HLen       = 20
	DMAActivateLen  = 4
	DMASetupLen     = 28
	DataHdrLen      = 4
	BISTActivateLen = 12
	PIOSetupLen     = 20
	SetDevBitsLen   = 8
)

// Status and error register bits

const (
	StatusERR  uint8 = 0x01
	StatusDRQ  uint8 = 0x08
	StatusDF   uint8 = 0x20
	StatusDRDY uint8 = 0x40
	StatusBSY  uint8 = 0x80

	ErrorABRT uint8 = 0x04
)

// Frame header flag bits (byte 1 of the FIS).
const (
	FlagCommand   uint8 = 0x80 // Register H2D: register update is a command
	FlagNotify    uint8 = 0x80 // Set Device Bits: notification pending
	FlagInterrupt uint8 = 0x40 // D2H / SDB / PIO / DMA Setup
	FlagDirection uint8 = 0x20 // DMA / PIO Setup: transmitter is the device
	FlagAutoAct   uint8 = 0x80 // DMA Setup: auto-activate
	PMPortMask    uint8 = 0x0F
)

// ActAllTags is the SActive pattern used by the queued-error-log abort.
const ActAllTags uint32 = 0xFFFFFFFF

// General Library Return and Error Codes

// Err represents library error return type
type Err uint32

const (
	OK                     Err = 0x0000
	ErrFail                Err = 0x0001
	ErrInvalidParamVal     Err = 0x0002
	ErrNotInit             Err = 0x0003
	ErrFileError           Err = 0x0004
	ErrShortFrame          Err = 0x0010
	ErrUnknownFISType      Err = 0x0011
	ErrBadRecord           Err = 0x0012
	ErrSequenceGap         Err = 0x0102
	ErrUnexpectedFrame     Err = 0x0103
	ErrNCQAbort            Err = 0x0104
	ErrTagCollision        Err = 0x0105
	ErrLegacyOverlap       Err = 0x0106
	ErrOrphanData          Err = 0x0107
	ErrIncompleteDiscarded Err = 0x0108
)

// ErrSeverity used to indicate the severity of an error or logger verbosity
type ErrSeverity uint32

const (
	ErrSevNone  ErrSeverity = 0
	ErrSevError ErrSeverity = 1
	ErrSevWarn  ErrSeverity = 2
	ErrSevInfo  ErrSeverity = 3
	ErrSevDebug ErrSeverity = 4
)

func (s ErrSeverity) String() string {
	switch s {
	case ErrSevNone:
		return "NONE"
	case ErrSevError:
		return "ERROR"
	case ErrSevWarn:
		return "WARN"
	case ErrSevInfo:
		return "INFO"
	case ErrSevDebug:
		return "DEBUG"
	}
	return fmt.Sprintf("ErrSeverity(%d)", uint32(s))
}

// Component name prefixes

const (
	CmpnamePrefixCapture     = "CAPT"
	CmpnamePrefixReorder     = "RORD"
	CmpnamePrefixReconstruct = "RCON"
	CmpnamePrefixPipeline    = "PIPE"
)
