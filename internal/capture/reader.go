package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"satarecon/internal/common"
	"satarecon/internal/sata"
)

// Reader returns the records of a capture file in file order.
type Reader struct {
	r     *bufio.Reader
	count int
	hdr   [recordHdrLen]byte
}

// NewReader checks the file magic and returns a reader positioned on the
// first record.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("reading capture magic: %w",
			common.NewErrorMsg(sata.ErrSevError, sata.ErrBadRecord, err.Error()))
	}
	if string(magic) != Magic {
		return nil, common.NewErrorMsg(sata.ErrSevError, sata.ErrBadRecord,
			fmt.Sprintf("not a capture file, magic %q", magic))
	}
	return &Reader{r: br}, nil
}

// Next returns the next record, or io.EOF at a clean end of file. The
// record's Raw buffer is owned by the caller.
func (rd *Reader) Next() (Record, error) {
	if _, err := io.ReadFull(rd.r, rd.hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, rd.badRecord("truncated header", err)
	}

	n := binary.LittleEndian.Uint32(rd.hdr[4:8])
	if n > MaxFrameLen {
		return Record{}, rd.badRecord(fmt.Sprintf("length %d exceeds %d", n, MaxFrameLen), nil)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(rd.r, raw); err != nil {
		return Record{}, rd.badRecord("truncated frame", err)
	}

	rd.count++
	return Record{
		Seq: sata.SeqNum(binary.LittleEndian.Uint16(rd.hdr[0:2])),
		Dir: directionOf(rd.hdr[2]),
		Raw: raw,
	}, nil
}

// Count returns the number of records read so far.
func (rd *Reader) Count() int { return rd.count }

func (rd *Reader) badRecord(msg string, cause error) error {
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return fmt.Errorf("capture record %d: %w", rd.count,
		common.NewErrorMsg(sata.ErrSevError, sata.ErrBadRecord, msg))
}
