package fis

import (
	"encoding/binary"
	"fmt"

	"satarecon/internal/common"
	"satarecon/internal/sata"
)

var minLen = map[Kind]int{
	KindRegH2D:       sata.RegH2DLen,
	KindRegD2H:       sata.RegD2HLen,
	KindDMASetup:     sata.DMASetupLen,
	KindData:         sata.DataHdrLen,
	KindPIOSetup:     sata.PIOSetupLen,
	KindDMAActivate:  sata.DMAActivateLen,
	KindBISTActivate: sata.BISTActivateLen,
	KindSetDevBits:   sata.SetDevBitsLen,
}

// Decode parses a raw FIS buffer captured with sequence number seq travelling
// in direction dir. The Data FIS payload aliases raw.
func Decode(seq sata.SeqNum, dir sata.Direction, raw []byte) (*Frame, error) {
	if len(raw) == 0 {
		return nil, common.NewErrorWithSeqMsg(sata.ErrSevError, sata.ErrShortFrame, seq, "empty frame")
	}

	kind := KindOf(sata.FISType(raw[0]))
	if kind == KindUnknown {
		return nil, common.NewErrorWithSeqMsg(sata.ErrSevError, sata.ErrUnknownFISType, seq,
			fmt.Sprintf("type byte 0x%02X", raw[0]))
	}
	if len(raw) < minLen[kind] {
		return nil, common.NewErrorWithSeqMsg(sata.ErrSevError, sata.ErrShortFrame, seq,
			fmt.Sprintf("%s needs %d bytes, got %d", kind, minLen[kind], len(raw)))
	}

	f := &Frame{Seq: seq, Dir: dir}
	pm := raw[1] & sata.PMPortMask

	switch kind {
	case KindRegH2D:
		f.Fields = &RegH2D{
			PMPort:    pm,
			IsCommand: raw[1]&sata.FlagCommand != 0,
			Command:   sata.Command(raw[2]),
			Features:  uint16(raw[3]) | uint16(raw[11])<<8,
			LBA:       lba48(raw),
			Device:    raw[7],
			Count:     binary.LittleEndian.Uint16(raw[12:14]),
			ICC:       raw[14],
			Control:   raw[15],
		}

	case KindRegD2H:
		f.Fields = &RegD2H{
			PMPort:    pm,
			Interrupt: raw[1]&sata.FlagInterrupt != 0,
			Status:    raw[2],
			Error:     raw[3],
			LBA:       lba48(raw),
			Device:    raw[7],
			Count:     binary.LittleEndian.Uint16(raw[12:14]),
		}

	case KindDMASetup:
		f.Fields = &DMASetup{
			PMPort:        pm,
			FromDevice:    raw[1]&sata.FlagDirection != 0,
			Interrupt:     raw[1]&sata.FlagInterrupt != 0,
			AutoActivate:  raw[1]&sata.FlagAutoAct != 0,
			BufferID:      binary.LittleEndian.Uint64(raw[4:12]),
			BufferOffset:  binary.LittleEndian.Uint32(raw[16:20]),
			TransferCount: binary.LittleEndian.Uint32(raw[20:24]),
		}

	case KindData:
		f.Fields = &Data{PMPort: pm}
		f.Payload = raw[sata.DataHdrLen:]

	case KindPIOSetup:
		f.Fields = &PIOSetup{
			PMPort:        pm,
			FromDevice:    raw[1]&sata.FlagDirection != 0,
			Interrupt:     raw[1]&sata.FlagInterrupt != 0,
			Status:        raw[2],
			Error:         raw[3],
			LBA:           lba48(raw),
			Count:         binary.LittleEndian.Uint16(raw[12:14]),
			EStatus:       raw[15],
			TransferCount: binary.LittleEndian.Uint16(raw[16:18]),
		}

	case KindDMAActivate:
		f.Fields = &DMAActivate{PMPort: pm}

	case KindBISTActivate:
		f.Fields = &BISTActivate{
			PMPort:  pm,
			Pattern: raw[2],
			Data: [2]uint32{
				binary.LittleEndian.Uint32(raw[4:8]),
				binary.LittleEndian.Uint32(raw[8:12]),
			},
		}

	case KindSetDevBits:
		f.Fields = &SetDevBits{
			PMPort:       pm,
			Interrupt:    raw[1]&sata.FlagInterrupt != 0,
			Notification: raw[1]&sata.FlagNotify != 0,
			Status:       raw[2],
			Error:        raw[3],
			Act:          binary.LittleEndian.Uint32(raw[4:8]),
		}
	}
	return f, nil
}

// lba48 assembles LBA(23:0) from bytes 4..6 and LBA(47:24) from bytes 8..10.
func lba48(raw []byte) uint64 {
	return uint64(raw[4]) | uint64(raw[5])<<8 | uint64(raw[6])<<16 |
		uint64(raw[8])<<24 | uint64(raw[9])<<32 | uint64(raw[10])<<40
}

func putLBA48(raw []byte, lba uint64) {
	raw[4] = byte(lba)
	raw[5] = byte(lba >> 8)
	raw[6] = byte(lba >> 16)
	raw[8] = byte(lba >> 24)
	raw[9] = byte(lba >> 32)
	raw[10] = byte(lba >> 40)
}

func flag(set bool, bit uint8) uint8 {
	if set {
		return bit
	}
	return 0
}

// Encode renders the frame back into its on-wire FIS layout. It is the
// inverse of Decode and is used to write synthetic capture files.
func Encode(f *Frame) []byte {
	var raw []byte

	switch h := f.Fields.(type) {
	case *RegH2D:
		raw = make([]byte, sata.RegH2DLen)
		raw[0] = byte(sata.FISRegH2D)
		raw[1] = h.PMPort&sata.PMPortMask | flag(h.IsCommand, sata.FlagCommand)
		raw[2] = byte(h.Command)
		raw[3] = byte(h.Features)
		putLBA48(raw, h.LBA)
		raw[7] = h.Device
		raw[11] = byte(h.Features >> 8)
		binary.LittleEndian.PutUint16(raw[12:14], h.Count)
		raw[14] = h.ICC
		raw[15] = h.Control

	case *RegD2H:
		raw = make([]byte, sata.RegD2HLen)
		raw[0] = byte(sata.FISRegD2H)
		raw[1] = h.PMPort&sata.PMPortMask | flag(h.Interrupt, sata.FlagInterrupt)
		raw[2] = h.Status
		raw[3] = h.Error
		putLBA48(raw, h.LBA)
		raw[7] = h.Device
		binary.LittleEndian.PutUint16(raw[12:14], h.Count)

	case *DMASetup:
		raw = make([]byte, sata.DMASetupLen)
		raw[0] = byte(sata.FISDMASetup)
		raw[1] = h.PMPort&sata.PMPortMask | flag(h.FromDevice, sata.FlagDirection) |
			flag(h.Interrupt, sata.FlagInterrupt) | flag(h.AutoActivate, sata.FlagAutoAct)
		binary.LittleEndian.PutUint64(raw[4:12], h.BufferID)
		binary.LittleEndian.PutUint32(raw[16:20], h.BufferOffset)
		binary.LittleEndian.PutUint32(raw[20:24], h.TransferCount)

	case *Data:
		raw = make([]byte, sata.DataHdrLen, sata.DataHdrLen+len(f.Payload))
		raw[0] = byte(sata.FISData)
		raw[1] = h.PMPort & sata.PMPortMask
		raw = append(raw, f.Payload...)

	case *PIOSetup:
		raw = make([]byte, sata.PIOSetupLen)
		raw[0] = byte(sata.FISPIOSetup)
		raw[1] = h.PMPort&sata.PMPortMask | flag(h.FromDevice, sata.FlagDirection) |
			flag(h.Interrupt, sata.FlagInterrupt)
		raw[2] = h.Status
		raw[3] = h.Error
		putLBA48(raw, h.LBA)
		binary.LittleEndian.PutUint16(raw[12:14], h.Count)
		raw[15] = h.EStatus
		binary.LittleEndian.PutUint16(raw[16:18], h.TransferCount)

	case *DMAActivate:
		raw = make([]byte, sata.DMAActivateLen)
		raw[0] = byte(sata.FISDMAActivate)
		raw[1] = h.PMPort & sata.PMPortMask

	case *BISTActivate:
		raw = make([]byte, sata.BISTActivateLen)
		raw[0] = byte(sata.FISBISTActivate)
		raw[1] = h.PMPort & sata.PMPortMask
		raw[2] = h.Pattern
		binary.LittleEndian.PutUint32(raw[4:8], h.Data[0])
		binary.LittleEndian.PutUint32(raw[8:12], h.Data[1])

	case *SetDevBits:
		raw = make([]byte, sata.SetDevBitsLen)
		raw[0] = byte(sata.FISSetDevBits)
		raw[1] = h.PMPort&sata.PMPortMask | flag(h.Interrupt, sata.FlagInterrupt) |
			flag(h.Notification, sata.FlagNotify)
		raw[2] = h.Status
		raw[3] = h.Error
		binary.LittleEndian.PutUint32(raw[4:8], h.Act)
	}
	return raw
}
