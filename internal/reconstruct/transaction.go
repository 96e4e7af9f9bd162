package reconstruct

import (
	"math/bits"

	"satarecon/internal/fis"
	"satarecon/internal/sata"
)

// initial accumulator capacity is capped so a corrupt count cannot force a
// large allocation before any data has been seen.
const maxPrealloc = 1 << 20

// transaction is an outstanding command collecting its data.
type transaction struct {
	tag         uint8 // sata.BadTag for legacy
	register    *fis.RegH2D
	seq         sata.SeqNum // sequence number of the command frame
	sector      uint64
	sectorCount uint32
	dir         sata.XferDir
	expected    uint32
	accumulated []byte
}

func newTransaction(tag uint8, seq sata.SeqNum, reg *fis.RegH2D, sector uint64, count uint32, dir sata.XferDir, sectorSize uint32) *transaction {
	t := &transaction{
		tag:         tag,
		register:    reg,
		seq:         seq,
		sector:      sector,
		sectorCount: count,
		dir:         dir,
	}
	if dir != sata.XferNone {
		t.expected = count * sectorSize
		t.accumulated = make([]byte, 0, min(t.expected, maxPrealloc))
	}
	return t
}

func (t *transaction) append(data []byte) {
	t.accumulated = append(t.accumulated, data...)
}

func (t *transaction) complete() bool {
	return t.expected > 0 && uint32(len(t.accumulated)) >= t.expected
}

// operation builds the DiskOperation for a complete transaction. Bytes past
// the expected size are dropped.
func (t *transaction) operation(seq sata.SeqNum) *DiskOperation {
	return &DiskOperation{
		Sector:      t.sector,
		SectorCount: t.sectorCount,
		Direction:   t.dir,
		SizeBytes:   t.expected,
		Data:        t.accumulated[:t.expected:t.expected],
		Command:     t.register.Command,
		Tag:         t.tag,
		Seq:         seq,
	}
}

// ncqTable holds one optional transaction per queue tag.
type ncqTable [sata.NCQSlotCount]*transaction

func (n *ncqTable) get(tag uint8) *transaction {
	if !sata.IsValidTag(tag) {
		return nil
	}
	return n[tag]
}

// set installs t in its slot and returns the transaction it replaced.
func (n *ncqTable) set(t *transaction) *transaction {
	prev := n[t.tag]
	n[t.tag] = t
	return prev
}

func (n *ncqTable) clear(tag uint8) {
	if sata.IsValidTag(tag) {
		n[tag] = nil
	}
}

// clearAll empties every slot and returns how many were occupied.
func (n *ncqTable) clearAll() int {
	cleared := 0
	for i := range n {
		if n[i] != nil {
			n[i] = nil
			cleared++
		}
	}
	return cleared
}

// active returns the bitmask of occupied tags.
func (n *ncqTable) active() uint32 {
	var mask uint32
	for i, t := range n {
		if t != nil {
			mask |= 1 << i
		}
	}
	return mask
}

func (n *ncqTable) count() int {
	return bits.OnesCount32(n.active())
}

// dmaSetup is an outstanding DMA Setup and the data seen against it.
type dmaSetup struct {
	tag      uint8
	source   sata.Direction
	count    uint32
	received uint32
	seq      sata.SeqNum
}

func (d *dmaSetup) done() bool { return d.received >= d.count }

// setupStack correlates Data frames with the DMA Setup that announced them.
// Only the top entry is meaningful.
type setupStack []*dmaSetup

func (s *setupStack) push(d *dmaSetup) { *s = append(*s, d) }

func (s setupStack) top() *dmaSetup {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

func (s *setupStack) pop() {
	if n := len(*s); n > 0 {
		(*s)[n-1] = nil
		*s = (*s)[:n-1]
	}
}

func (s *setupStack) reset() {
	clear(*s)
	*s = (*s)[:0]
}

// legacyStack holds the non-queued command. Depth above one is an anomaly.
type legacyStack []*transaction

func (s *legacyStack) push(t *transaction) { *s = append(*s, t) }

func (s legacyStack) top() *transaction {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

func (s *legacyStack) pop() {
	if n := len(*s); n > 0 {
		(*s)[n-1] = nil
		*s = (*s)[:n-1]
	}
}

// dropStale removes every entry below the top and returns them.
func (s *legacyStack) dropStale() []*transaction {
	n := len(*s)
	if n <= 1 {
		return nil
	}
	stale := append([]*transaction(nil), (*s)[:n-1]...)
	(*s)[0] = (*s)[n-1]
	clear((*s)[1:])
	*s = (*s)[:1]
	return stale
}

func (s *legacyStack) reset() {
	clear(*s)
	*s = (*s)[:0]
}
