// Package reorder implements the arrival reorder buffer that compensates for
// transport-level reordering and loss on a sequenced frame stream.
package reorder

import (
	"container/heap"
	"fmt"

	"satarecon/internal/common"
	"satarecon/internal/sata"
)

// DefaultWindowDepth is the number of out-of-order items held before the
// oldest is forced out and the gap in front of it is written off as lost.
const DefaultWindowDepth = 20

// Sequenced is anything carrying a 16-bit wrapping sequence number.
type Sequenced interface {
	SequenceNumber() sata.SeqNum
}

// Stats counts buffer activity.
type Stats struct {
	Pushed    uint64 // items offered
	Delivered uint64 // items released in order
	Forced    uint64 // releases made without contiguity
	Lost      uint64 // sequence numbers skipped by forced releases
	Late      uint64 // items behind the delivery point, discarded
	Resyncs   uint64 // restarts of the sequence numbering
}

type seqHeap[T Sequenced] []T

func (h seqHeap[T]) Len() int { return len(h) }
func (h seqHeap[T]) Less(i, j int) bool {
	return h[i].SequenceNumber().Before(h[j].SequenceNumber())
}
func (h seqHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *seqHeap[T]) Push(x any)   { *h = append(*h, x.(T)) }
func (h *seqHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	var zero T
	old[n-1] = zero
	*h = old[:n-1]
	return item
}

// Buffer is a bounded min-heap keyed by sequence number. It releases items
// once their immediate predecessor has been delivered, or when the window
// overflows. It does not interpret the items.
type Buffer[T Sequenced] struct {
	common.Component

	depth  int
	items  seqHeap[T]
	last   sata.SeqNum // last delivered sequence number
	synced bool        // last is valid
	stats  Stats

	// start-up anchoring, see SetSyncGrace
	syncGrace int
	anchor    sata.SeqNum
	anchorRun int
}

// NewBuffer creates a reorder buffer holding at most depth out-of-order items.
func NewBuffer[T Sequenced](depth int) *Buffer[T] {
	if depth <= 0 {
		depth = DefaultWindowDepth
	}
	b := &Buffer[T]{
		depth: depth,
		items: make(seqHeap[T], 0, depth+1),
	}
	b.InitComponent(sata.CmpnamePrefixReorder + "_BUF")
	return b
}

// SetSyncGrace lets an unsynced buffer start delivering once its lowest item
// has stayed lowest for grace pushes, instead of waiting for the window to
// fill. An item older than the anchor that arrives afterwards is late.
// Zero restores the default.
func (b *Buffer[T]) SetSyncGrace(grace int) {
	b.syncGrace = max(grace, 0)
}

// Push offers an item and returns the items now safe to deliver, in
// sequence order.
func (b *Buffer[T]) Push(item T) []T {
	b.stats.Pushed++
	seq := item.SequenceNumber()

	var out []T
	if b.synced && !b.last.Before(seq) {
		// more than a window behind cannot be reordering: the sender
		// restarted its numbering or a long burst was lost
		if behind := int(seq.Distance(b.last)); behind <= b.depth {
			b.stats.Late++
			b.LogMessagef(sata.ErrSevWarn, "late or duplicate seq %d discarded (delivered up to %d)", seq, b.last)
			return nil
		}
		out = b.resync(seq)
	}

	heap.Push(&b.items, item)
	out = b.drainContiguous(out)
	out = b.anchorEarly(out)

	if len(b.items) > b.depth {
		out = b.forceOldest(out)
		out = b.drainContiguous(out)
	}
	return out
}

// Flush drains every buffered item in sequence order, used at stream end.
func (b *Buffer[T]) Flush() []T {
	var out []T
	for len(b.items) > 0 {
		out = b.forceOldest(out)
	}
	return out
}

// Reset discards buffered items and forgets the delivery point.
func (b *Buffer[T]) Reset() {
	clear(b.items)
	b.items = b.items[:0]
	b.synced = false
	b.last = 0
	b.anchorRun = 0
}

// resync releases what is held from the old numbering and starts over
// unsynced, so seq begins a new stream.
func (b *Buffer[T]) resync(seq sata.SeqNum) []T {
	b.stats.Resyncs++
	b.LogError(common.NewErrorWithSeqMsg(sata.ErrSevWarn, sata.ErrSequenceGap, seq,
		fmt.Sprintf("sequence restarted after seq %d; resynchronising", b.last)))
	out := b.Flush()
	b.Reset()
	return out
}

// anchorEarly delivers the lowest held item of an unsynced buffer once it
// has stayed lowest for the sync grace.
func (b *Buffer[T]) anchorEarly(out []T) []T {
	if b.synced || b.syncGrace == 0 || len(b.items) == 0 {
		return out
	}
	low := b.items[0].SequenceNumber()
	if len(b.items) == 1 || low != b.anchor {
		b.anchor = low
		b.anchorRun = 0
		return out
	}
	b.anchorRun++
	if b.anchorRun < b.syncGrace {
		return out
	}
	out = b.deliver(out)
	return b.drainContiguous(out)
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int { return len(b.items) }

// Depth returns the configured window depth.
func (b *Buffer[T]) Depth() int { return b.depth }

// Stats returns a copy of the activity counters.
func (b *Buffer[T]) Stats() Stats { return b.stats }

// drainContiguous pops while the minimum follows the last delivered item.
// Until the first delivery there is no reference, so nothing is contiguous.
func (b *Buffer[T]) drainContiguous(out []T) []T {
	for b.synced && len(b.items) > 0 {
		next := b.items[0].SequenceNumber()
		if next == b.last {
			// duplicate of the item just delivered
			heap.Pop(&b.items)
			b.stats.Late++
			continue
		}
		if next != b.last.Next() {
			break
		}
		out = b.deliver(out)
	}
	return out
}

// forceOldest releases the minimum regardless of contiguity.
func (b *Buffer[T]) forceOldest(out []T) []T {
	next := b.items[0].SequenceNumber()
	if b.synced {
		if next == b.last {
			heap.Pop(&b.items)
			b.stats.Late++
			return out
		}
		if gap := b.last.Distance(next) - 1; gap > 0 {
			b.stats.Forced++
			b.stats.Lost += uint64(gap)
			b.LogError(common.NewErrorWithSeqMsg(sata.ErrSevWarn, sata.ErrSequenceGap, next,
				fmt.Sprintf("window full, %d frame(s) after seq %d written off", gap, b.last)))
		}
	}
	return b.deliver(out)
}

func (b *Buffer[T]) deliver(out []T) []T {
	item := heap.Pop(&b.items).(T)
	b.last = item.SequenceNumber()
	b.synced = true
	b.stats.Delivered++
	return append(out, item)
}
