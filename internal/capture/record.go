// Package capture reads and writes capture files: a magic string followed by
// length-prefixed records, each holding one raw FIS as seen on the tap.
package capture

import (
	"encoding/binary"
	"fmt"
	"io"

	"satarecon/internal/common"
	"satarecon/internal/sata"
)

// Magic opens every capture file.
const Magic = "SATACAP1"

const (
	recordHdrLen = 8

	// MaxFrameLen bounds a record body: an 8 KiB Data payload plus the
	// header and CRC dwords, with headroom for tap padding.
	MaxFrameLen = 16 * 1024

	flagDeviceToHost = 0x01
)

// Record is one captured frame before decoding.
type Record struct {
	Seq sata.SeqNum
	Dir sata.Direction
	Raw []byte
}

// MarshalBinary encodes the record header and body.
func (r *Record) MarshalBinary() ([]byte, error) {
	if len(r.Raw) > MaxFrameLen {
		return nil, common.NewErrorWithSeqMsg(sata.ErrSevError, sata.ErrBadRecord, r.Seq,
			fmt.Sprintf("frame of %d bytes exceeds %d", len(r.Raw), MaxFrameLen))
	}
	b := make([]byte, recordHdrLen+len(r.Raw))
	binary.LittleEndian.PutUint16(b[0:2], uint16(r.Seq))
	if r.Dir == sata.DeviceToHost {
		b[2] = flagDeviceToHost
	}
	binary.LittleEndian.PutUint32(b[4:8], uint32(len(r.Raw)))
	copy(b[recordHdrLen:], r.Raw)
	return b, nil
}

// UnmarshalBinary decodes one complete record. Raw aliases b.
//
// If b is shorter than the header or the length it declares,
// io.ErrUnexpectedEOF is returned.
func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) < recordHdrLen {
		return io.ErrUnexpectedEOF
	}
	n := binary.LittleEndian.Uint32(b[4:8])
	if uint64(len(b)-recordHdrLen) < uint64(n) {
		return io.ErrUnexpectedEOF
	}
	r.Seq = sata.SeqNum(binary.LittleEndian.Uint16(b[0:2]))
	r.Dir = directionOf(b[2])
	r.Raw = b[recordHdrLen : recordHdrLen+int(n)]
	return nil
}

func directionOf(flags uint8) sata.Direction {
	if flags&flagDeviceToHost != 0 {
		return sata.DeviceToHost
	}
	return sata.HostToDevice
}
