package reconstruct

import (
	"bytes"
	"testing"

	"satarecon/internal/config"
	"satarecon/internal/fis"
	"satarecon/internal/sata"
)

// frameStream builds a sequence of frames with consecutive sequence numbers.
type frameStream struct {
	next   sata.SeqNum
	frames []*fis.Frame
}

func newStream(start sata.SeqNum) *frameStream {
	return &frameStream{next: start}
}

func (s *frameStream) add(dir sata.Direction, fields fis.Fields, payload []byte) *frameStream {
	s.frames = append(s.frames, &fis.Frame{Seq: s.next, Dir: dir, Fields: fields, Payload: payload})
	s.next++
	return s
}

// skip leaves a hole of n sequence numbers.
func (s *frameStream) skip(n int) *frameStream {
	s.next += sata.SeqNum(n)
	return s
}

func (s *frameStream) ncq(cmd sata.Command, tag uint8, lba uint64, sectors uint16) *frameStream {
	return s.add(sata.HostToDevice, &fis.RegH2D{
		IsCommand: true,
		Command:   cmd,
		Features:  sectors,
		LBA:       lba,
		Device:    0x40,
		Count:     uint16(tag) << 3,
	}, nil)
}

func (s *frameStream) legacy(cmd sata.Command, lba uint64, device uint8, count uint16) *frameStream {
	return s.add(sata.HostToDevice, &fis.RegH2D{
		IsCommand: true,
		Command:   cmd,
		LBA:       lba,
		Device:    device,
		Count:     count,
	}, nil)
}

func (s *frameStream) dmaSetup(tag uint8, fromDevice bool, count uint32) *frameStream {
	return s.add(sata.DeviceToHost, &fis.DMASetup{
		FromDevice:    fromDevice,
		AutoActivate:  !fromDevice,
		BufferID:      uint64(tag),
		TransferCount: count,
	}, nil)
}

// data adds a Data frame carrying payload followed by a dummy CRC.
func (s *frameStream) data(dir sata.Direction, payload []byte) *frameStream {
	raw := append(append([]byte(nil), payload...), 0xCC, 0xCC, 0xCC, 0xCC)
	return s.add(dir, &fis.Data{}, raw)
}

func (s *frameStream) d2h(status uint8) *frameStream {
	return s.add(sata.DeviceToHost, &fis.RegD2H{Interrupt: true, Status: status}, nil)
}

func (s *frameStream) sdb(status uint8, interrupt bool, act uint32) *frameStream {
	return s.add(sata.DeviceToHost, &fis.SetDevBits{Interrupt: interrupt, Status: status, Act: act}, nil)
}

func (s *frameStream) pio(fromDevice bool, count uint16) *frameStream {
	return s.add(sata.DeviceToHost, &fis.PIOSetup{FromDevice: fromDevice, Status: 0x58, TransferCount: count}, nil)
}

func (s *frameStream) dmaActivate() *frameStream {
	return s.add(sata.DeviceToHost, &fis.DMAActivate{}, nil)
}

func (s *frameStream) bist() *frameStream {
	return s.add(sata.HostToDevice, &fis.BISTActivate{Pattern: 0x10}, nil)
}

func fill(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func newTestReconstructor(t *testing.T) *Reconstructor {
	t.Helper()
	r, err := NewReconstructor(config.NewConfig())
	if err != nil {
		t.Fatalf("NewReconstructor failed: %v", err)
	}
	return r
}

// run feeds every frame and collects the results.
func run(r *Reconstructor, frames []*fis.Frame) ([]*DiskOperation, []error) {
	var ops []*DiskOperation
	var errs []error
	for _, f := range frames {
		op, err := r.ProcessFrame(f)
		if op != nil {
			ops = append(ops, op)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return ops, errs
}

// runClean feeds frames that must not raise any anomaly.
func runClean(t *testing.T, r *Reconstructor, frames []*fis.Frame) []*DiskOperation {
	t.Helper()
	ops, errs := run(r, frames)
	for _, err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	return ops
}
