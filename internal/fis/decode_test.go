package fis

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"satarecon/internal/common"
	"satarecon/internal/sata"
)

func TestDecodeRegH2DNCQ(t *testing.T) {
	// WRITE FPDMA QUEUED, tag 3, 2 sectors at LBA 100
	raw := make([]byte, 20)
	raw[0] = 0x27
	raw[1] = 0x80 // C bit
	raw[2] = 0x61
	raw[3] = 0x02 // features(7:0) = sector count for NCQ
	raw[4] = 100
	raw[7] = 0x40
	raw[12] = 3 << 3 // tag in count(7:3)

	f, err := Decode(42, sata.HostToDevice, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	want := &RegH2D{
		IsCommand: true,
		Command:   sata.CmdWriteFPDMAQueued,
		Features:  2,
		LBA:       100,
		Device:    0x40,
		Count:     3 << 3,
	}
	if diff := cmp.Diff(want, f.Fields); diff != "" {
		t.Errorf("RegH2D mismatch (-want +got):\n%s", diff)
	}
	if f.Seq != 42 || f.Dir != sata.HostToDevice || f.Kind() != KindRegH2D {
		t.Errorf("frame header wrong: %v", f)
	}
	if tag := f.Fields.(*RegH2D).NCQTag(); tag != 3 {
		t.Errorf("NCQTag() = %d, want 3", tag)
	}
}

func TestDecodeLBA48(t *testing.T) {
	raw := make([]byte, 20)
	raw[0] = 0x27
	raw[1] = 0x80
	raw[2] = 0x25
	raw[4], raw[5], raw[6] = 0x11, 0x22, 0x33
	raw[8], raw[9], raw[10] = 0x44, 0x55, 0x66

	f, err := Decode(0, sata.HostToDevice, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if lba := f.Fields.(*RegH2D).LBA; lba != 0x665544332211 {
		t.Errorf("LBA = 0x%X, want 0x665544332211", lba)
	}
}

func TestDecodeDMASetupAndSDB(t *testing.T) {
	dma := make([]byte, 28)
	dma[0] = 0x41
	dma[1] = 0x20 | 0x80 // D bit, auto-activate
	dma[4] = 7
	dma[20] = 0x00
	dma[21] = 0x04 // 1024

	f, err := Decode(1, sata.DeviceToHost, dma)
	if err != nil {
		t.Fatalf("Decode DMA setup failed: %v", err)
	}
	ds := f.Fields.(*DMASetup)
	if ds.Tag() != 7 || ds.TransferCount != 1024 || ds.DataSource() != sata.DeviceToHost || !ds.AutoActivate {
		t.Errorf("DMA setup decoded wrong: %+v", ds)
	}

	sdb := []byte{0xA1, 0x40, 0x41, 0x04, 0x08, 0x00, 0x00, 0x80}
	f, err = Decode(2, sata.DeviceToHost, sdb)
	if err != nil {
		t.Fatalf("Decode SDB failed: %v", err)
	}
	sd := f.Fields.(*SetDevBits)
	if !sd.Interrupt || sd.Notification || !sd.HasError() || sd.Act != 0x80000008 {
		t.Errorf("SDB decoded wrong: %+v", sd)
	}
}

func TestDecodeData(t *testing.T) {
	raw := []byte{0x46, 0, 0, 0, 1, 2, 3, 4, 0xCC, 0xCC, 0xCC, 0xCC}
	f, err := Decode(9, sata.HostToDevice, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4, 0xCC, 0xCC, 0xCC, 0xCC}, f.Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, common.ErrShortFrame},
		{"unknown type", []byte{0x99, 0, 0, 0}, common.ErrUnknownFISType},
		{"short register", []byte{0x27, 0x80, 0x61}, common.ErrShortFrame},
		{"short dma setup", make28(0x41)[:20], common.ErrShortFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(0, sata.HostToDevice, tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func make28(typ byte) []byte {
	b := make([]byte, 28)
	b[0] = typ
	return b
}

func TestEncodeDecodeAllKinds(t *testing.T) {
	frames := []*Frame{
		{Seq: 1, Dir: sata.HostToDevice, Fields: &RegH2D{IsCommand: true, Command: sata.CmdReadFPDMAQueued, Features: 8, LBA: 0x123456789A, Count: 5 << 3}},
		{Seq: 2, Dir: sata.DeviceToHost, Fields: &RegD2H{Interrupt: true, Status: 0x41, Error: 0x04, LBA: 77, Count: 1}},
		{Seq: 3, Dir: sata.DeviceToHost, Fields: &DMASetup{FromDevice: true, AutoActivate: true, BufferID: 5, BufferOffset: 512, TransferCount: 4096}},
		{Seq: 4, Dir: sata.DeviceToHost, Fields: &Data{}, Payload: []byte{9, 8, 7, 6, 0, 0, 0, 0}},
		{Seq: 5, Dir: sata.DeviceToHost, Fields: &PIOSetup{FromDevice: true, Interrupt: true, Status: 0x58, LBA: 3, Count: 1, EStatus: 0x50, TransferCount: 512}},
		{Seq: 6, Dir: sata.DeviceToHost, Fields: &DMAActivate{}},
		{Seq: 7, Dir: sata.HostToDevice, Fields: &BISTActivate{Pattern: 0x10, Data: [2]uint32{1, 2}}},
		{Seq: 8, Dir: sata.DeviceToHost, Fields: &SetDevBits{Interrupt: true, Notification: true, Status: 0x40, Act: 0x0000F00F}},
	}

	for _, want := range frames {
		t.Run(want.Kind().String(), func(t *testing.T) {
			got, err := Decode(want.Seq, want.Dir, Encode(want))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if got.String() == "" {
				t.Errorf("empty frame string")
			}
		})
	}
}
