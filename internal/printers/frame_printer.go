package printers

import (
	"fmt"
	"io"
	"strings"

	"satarecon/internal/fis"
)

// FramePrinter prints decoded frames, one line each.
type FramePrinter struct {
	ItemPrinter
	dumpPayload bool
}

// NewFramePrinter creates a printer for decoded frames.
func NewFramePrinter(writer io.Writer) *FramePrinter {
	return &FramePrinter{
		ItemPrinter: *NewItemPrinter(writer),
	}
}

// SetDumpPayload enables a hex dump of Data frame payloads.
func (p *FramePrinter) SetDumpPayload(dump bool) { p.dumpPayload = dump }

// FrameIn prints one frame.
func (p *FramePrinter) FrameIn(f *fis.Frame) {
	if p.IsMuted() {
		return
	}

	var sb strings.Builder
	sb.WriteString("Frame; ")
	if p.SeqPrintMuted() {
		sb.WriteString(fmt.Sprintf("%s; %-13s", f.Dir, f.Kind()))
		if f.Fields != nil && f.Fields.String() != "" {
			sb.WriteString("; " + f.Fields.String())
		}
	} else {
		sb.WriteString(f.String())
	}
	sb.WriteString("\n")

	if p.dumpPayload && len(f.Payload) > 0 {
		writeHex(&sb, "    ", f.Payload)
	}
	p.ItemPrintLine(sb.String())
}
