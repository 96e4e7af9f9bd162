package reconstruct

import (
	"fmt"

	"satarecon/internal/sata"
)

// DiskOperation is one fully reassembled disk command. It is emitted exactly
// once and never modified afterwards.
type DiskOperation struct {
	Sector      uint64
	SectorCount uint32
	Direction   sata.XferDir
	SizeBytes   uint32
	Data        []byte

	Command sata.Command
	Tag     uint8       // NCQ tag, sata.BadTag for legacy commands
	Seq     sata.SeqNum // frame that completed the transfer
}

// IsNCQ returns true if the operation came from a queued command.
func (op *DiskOperation) IsNCQ() bool { return sata.IsValidTag(op.Tag) }

func (op *DiskOperation) String() string {
	tag := "--"
	if op.IsNCQ() {
		tag = fmt.Sprintf("%2d", op.Tag)
	}
	return fmt.Sprintf("Seq %5d; Tag %s; %-5s; LBA 0x%012X; Sectors %5d; Bytes %8d; %s",
		op.Seq, tag, op.Direction, op.Sector, op.SectorCount, op.SizeBytes, op.Command)
}
