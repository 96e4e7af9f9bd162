// Package fis defines the typed SATA Frame Information Structure records that
// feed the reconstruction engine, and the byte-level decoder producing them.
package fis

import (
	"fmt"

	"satarecon/internal/sata"
)

// Kind is the closed set of FIS kinds understood by the engine.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindRegH2D
	KindRegD2H
	KindDMASetup
	KindData
	KindPIOSetup
	KindDMAActivate
	KindBISTActivate
	KindSetDevBits
)

var kindNames = [...]string{
	KindUnknown:      "UNKNOWN",
	KindRegH2D:       "REG_H2D",
	KindRegD2H:       "REG_D2H",
	KindDMASetup:     "DMA_SETUP",
	KindData:         "DATA",
	KindPIOSetup:     "PIO_SETUP",
	KindDMAActivate:  "DMA_ACTIVATE",
	KindBISTActivate: "BIST_ACTIVATE",
	KindSetDevBits:   "SET_DEV_BITS",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// KindOf maps a FIS type byte to its Kind.
func KindOf(t sata.FISType) Kind {
	switch t {
	case sata.FISRegH2D:
		return KindRegH2D
	case sata.FISRegD2H:
		return KindRegD2H
	case sata.FISDMAActivate:
		return KindDMAActivate
	case sata.FISDMASetup:
		return KindDMASetup
	case sata.FISData:
		return KindData
	case sata.FISBISTActivate:
		return KindBISTActivate
	case sata.FISPIOSetup:
		return KindPIOSetup
	case sata.FISSetDevBits:
		return KindSetDevBits
	default:
		return KindUnknown
	}
}

// Fields is implemented by the per-kind header structs.
type Fields interface {
	Kind() Kind
	String() string
}

// Frame is one decoded FIS together with its transport sequence number.
// Frames are immutable once decoded.
type Frame struct {
	Seq     sata.SeqNum
	Dir     sata.Direction
	Fields  Fields
	Payload []byte // Data FIS only: bytes after the header dword, CRC included
}

// SequenceNumber returns the transport sequence number.
func (f *Frame) SequenceNumber() sata.SeqNum { return f.Seq }

// Kind returns the frame kind.
func (f *Frame) Kind() Kind {
	if f.Fields == nil {
		return KindUnknown
	}
	return f.Fields.Kind()
}

func (f *Frame) String() string {
	str := fmt.Sprintf("Seq %5d; %s; %-13s", f.Seq, f.Dir, f.Kind())
	if f.Fields != nil {
		if s := f.Fields.String(); s != "" {
			str += "; " + s
		}
	}
	if f.Kind() == KindData {
		str += fmt.Sprintf("; %d bytes", len(f.Payload))
	}
	return str
}

// RegH2D is the Register - Host to Device FIS (0x27).
type RegH2D struct {
	PMPort    uint8
	IsCommand bool // C bit: clear for device control register updates
	Command   sata.Command
	Features  uint16
	LBA       uint64
	Device    uint8
	Count     uint16
	ICC       uint8
	Control   uint8
}

func (RegH2D) Kind() Kind { return KindRegH2D }

// NCQTag returns the queue tag carried in count bits 7:3 of a queued command.
func (r *RegH2D) NCQTag() uint8 {
	return uint8(r.Count&0xFF) >> 3
}

func (r RegH2D) String() string {
	if !r.IsCommand {
		return fmt.Sprintf("Control 0x%02X", r.Control)
	}
	if r.Command.IsNCQ() {
		return fmt.Sprintf("%s; Tag %d; LBA 0x%012X; Sectors %d", r.Command, r.NCQTag(), r.LBA, r.Features)
	}
	return fmt.Sprintf("%s; LBA 0x%012X; Count %d", r.Command, r.LBA, r.Count)
}

// RegD2H is the Register - Device to Host FIS (0x34).
type RegD2H struct {
	PMPort    uint8
	Interrupt bool
	Status    uint8
	Error     uint8
	LBA       uint64
	Device    uint8
	Count     uint16
}

func (RegD2H) Kind() Kind { return KindRegD2H }

// HasError returns true if the ERR status bit is set.
func (r *RegD2H) HasError() bool { return r.Status&sata.StatusERR != 0 }

func (r RegD2H) String() string {
	return fmt.Sprintf("Status 0x%02X; Error 0x%02X; I %t", r.Status, r.Error, r.Interrupt)
}

// DMASetup is the DMA Setup FIS (0x41), bidirectional.
type DMASetup struct {
	PMPort        uint8
	FromDevice    bool // D bit: the device transmits the data
	Interrupt     bool
	AutoActivate  bool
	BufferID      uint64
	BufferOffset  uint32
	TransferCount uint32
}

func (DMASetup) Kind() Kind { return KindDMASetup }

// Tag returns the NCQ tag held in the low bits of the DMA buffer identifier.
func (d *DMASetup) Tag() uint8 { return uint8(d.BufferID & 0x1F) }

// DataSource is the link direction the following Data frames travel in.
func (d *DMASetup) DataSource() sata.Direction {
	if d.FromDevice {
		return sata.DeviceToHost
	}
	return sata.HostToDevice
}

func (d DMASetup) String() string {
	return fmt.Sprintf("Tag %d; %s; Offset %d; Count %d", d.Tag(), d.DataSource(), d.BufferOffset, d.TransferCount)
}

// Data is the Data FIS (0x46); the payload lives on the Frame.
type Data struct {
	PMPort uint8
}

func (Data) Kind() Kind { return KindData }
func (Data) String() string { return "" }

// PIOSetup is the PIO Setup - Device to Host FIS (0x5F).
type PIOSetup struct {
	PMPort        uint8
	FromDevice    bool
	Interrupt     bool
	Status        uint8
	Error         uint8
	LBA           uint64
	Count         uint16
	EStatus       uint8
	TransferCount uint16
}

func (PIOSetup) Kind() Kind { return KindPIOSetup }

func (p PIOSetup) String() string {
	dir := sata.HostToDevice
	if p.FromDevice {
		dir = sata.DeviceToHost
	}
	return fmt.Sprintf("%s; Count %d; Status 0x%02X", dir, p.TransferCount, p.Status)
}

// DMAActivate is the DMA Activate FIS (0x39).
type DMAActivate struct {
	PMPort uint8
}

func (DMAActivate) Kind() Kind { return KindDMAActivate }
func (DMAActivate) String() string { return "" }

// BISTActivate is the BIST Activate FIS (0x58).
type BISTActivate struct {
	PMPort  uint8
	Pattern uint8
	Data    [2]uint32
}

func (BISTActivate) Kind() Kind { return KindBISTActivate }

func (b BISTActivate) String() string {
	return fmt.Sprintf("Pattern 0x%02X", b.Pattern)
}

// SetDevBits is the Set Device Bits FIS (0xA1).
type SetDevBits struct {
	PMPort       uint8
	Interrupt    bool
	Notification bool
	Status       uint8
	Error        uint8
	Act          uint32 // SActive completion bitmask
}

func (SetDevBits) Kind() Kind { return KindSetDevBits }

// HasError returns true if the ERR status bit is set.
func (s *SetDevBits) HasError() bool { return s.Status&sata.StatusERR != 0 }

func (s SetDevBits) String() string {
	return fmt.Sprintf("Status 0x%02X; Act 0x%08X; I %t; N %t", s.Status, s.Act, s.Interrupt, s.Notification)
}
