package printers

import (
	"fmt"
	"io"
	"strings"

	"satarecon/internal/reconstruct"
	"satarecon/internal/sata"
)

// OpPrinter prints reconstructed disk operations.
type OpPrinter struct {
	ItemPrinter
	hexDump      bool
	collectStats bool
	opCounts     map[sata.XferDir]int
	byteCounts   map[sata.XferDir]uint64
}

// NewOpPrinter creates a disk operation printer.
func NewOpPrinter(writer io.Writer) *OpPrinter {
	return &OpPrinter{
		ItemPrinter: *NewItemPrinter(writer),
		opCounts:    make(map[sata.XferDir]int),
		byteCounts:  make(map[sata.XferDir]uint64),
	}
}

// SetHexDump enables a hex dump of each operation's data.
func (p *OpPrinter) SetHexDump(dump bool) { p.hexDump = dump }

// SetCollectStats turns on per-direction counting.
func (p *OpPrinter) SetCollectStats() { p.collectStats = true }

// OperationIn prints one operation. It never fails.
func (p *OpPrinter) OperationIn(op *reconstruct.DiskOperation) error {
	if p.collectStats {
		p.opCounts[op.Direction]++
		p.byteCounts[op.Direction] += uint64(op.SizeBytes)
	}

	if p.IsMuted() {
		return nil
	}

	var sb strings.Builder
	if !p.SeqPrintMuted() {
		sb.WriteString(fmt.Sprintf("Seq:%d; ", op.Seq))
	}
	tag := "--"
	if op.IsNCQ() {
		tag = fmt.Sprintf("%d", op.Tag)
	}
	sb.WriteString(fmt.Sprintf("DISK_OP(%s; LBA 0x%X; Sectors %d; Bytes %d; Tag %s; %s)\n",
		op.Direction, op.Sector, op.SectorCount, op.SizeBytes, tag, op.Command))

	if p.hexDump {
		writeHex(&sb, "    ", op.Data)
	}
	p.ItemPrintLine(sb.String())
	return nil
}

// PrintStats outputs the operation counts collected so far.
func (p *OpPrinter) PrintStats() {
	var sb strings.Builder

	sb.WriteString("Disk operations processed:-\n")
	for _, dir := range []sata.XferDir{sata.XferRead, sata.XferWrite} {
		sb.WriteString(fmt.Sprintf("%s : %d (%d bytes)\n", dir, p.opCounts[dir], p.byteCounts[dir]))
	}
	sb.WriteString("\n")

	p.ItemPrintLine(sb.String())
}
