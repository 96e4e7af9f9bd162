package reorder

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"satarecon/internal/sata"
)

type item uint16

func (i item) SequenceNumber() sata.SeqNum { return sata.SeqNum(i) }

func seqs(start, n int) []item {
	out := make([]item, n)
	for i := range out {
		out[i] = item(uint16(start + i))
	}
	return out
}

func pushAll(b *Buffer[item], in []item) []item {
	var out []item
	for _, it := range in {
		out = append(out, b.Push(it)...)
	}
	return append(out, b.Flush()...)
}

func TestInOrderDelivery(t *testing.T) {
	b := NewBuffer[item](4)
	in := seqs(100, 12)

	var out []item
	for i, it := range in {
		out = append(out, b.Push(it)...)
		// the first window is held until the stream is anchored
		if i < 4 && len(out) != 0 {
			t.Fatalf("delivered %v before the window filled", out)
		}
	}
	if len(out) != len(in) {
		t.Errorf("delivered %d before flush, want %d", len(out), len(in))
	}
	out = append(out, b.Flush()...)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if st := b.Stats(); st.Forced != 0 || st.Lost != 0 || st.Late != 0 {
		t.Errorf("unexpected loss accounting: %+v", st)
	}
}

func TestPermutationWithinWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const depth = DefaultWindowDepth

	for trial := 0; trial < 50; trial++ {
		in := seqs(0xFFF0, 200) // crosses the 16-bit wrap
		// local shuffles that never move an item further than the window
		perm := append([]item(nil), in...)
		for i := 0; i+depth/2 <= len(perm); i += depth / 2 {
			blk := perm[i : i+depth/2]
			rng.Shuffle(len(blk), func(a, c int) { blk[a], blk[c] = blk[c], blk[a] })
		}

		b := NewBuffer[item](depth)
		out := pushAll(b, perm)
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("trial %d: order mismatch (-want +got):\n%s", trial, diff)
		}
		if st := b.Stats(); st.Lost != 0 || st.Forced != 0 {
			t.Fatalf("trial %d: unexpected loss accounting: %+v", trial, st)
		}
	}
}

func TestLostFrameForcedForward(t *testing.T) {
	b := NewBuffer[item](3)

	var out []item
	for _, it := range seqs(10, 5) { // 10..14
		out = append(out, b.Push(it)...)
	}
	// seq 15 never arrives
	for _, it := range seqs(16, 6) { // 16..21
		out = append(out, b.Push(it)...)
	}
	out = append(out, b.Flush()...)

	want := append(seqs(10, 5), seqs(16, 6)...)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	st := b.Stats()
	if st.Forced != 1 || st.Lost != 1 {
		t.Errorf("Forced/Lost = %d/%d, want 1/1", st.Forced, st.Lost)
	}
	if b.Len() != 0 {
		t.Errorf("buffer not empty after flush: %d", b.Len())
	}
}

func TestBoundedDepth(t *testing.T) {
	b := NewBuffer[item](5)

	// anchor the stream, then leave a hole that is never filled
	for _, it := range seqs(1000, 6) {
		b.Push(it)
	}
	b.Flush()
	for _, it := range seqs(1010, 50) {
		b.Push(it)
		if b.Len() > b.Depth() {
			t.Fatalf("buffer exceeded depth: %d > %d", b.Len(), b.Depth())
		}
	}
}

func TestLateAndDuplicate(t *testing.T) {
	b := NewBuffer[item](2)
	out := pushAll(b, []item{1, 2, 3})
	if diff := cmp.Diff([]item{1, 2, 3}, out); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	if got := b.Push(2); len(got) != 0 {
		t.Errorf("late item should be discarded, got %v", got)
	}
	if got := b.Push(3); len(got) != 0 {
		t.Errorf("duplicate item should be discarded, got %v", got)
	}
	if got := b.Push(4); len(got) != 1 || got[0] != 4 {
		t.Errorf("next item should pass straight through, got %v", got)
	}
	if st := b.Stats(); st.Late != 2 {
		t.Errorf("Late = %d, want 2", st.Late)
	}
}

func TestReset(t *testing.T) {
	b := NewBuffer[item](0)
	if b.Depth() != DefaultWindowDepth {
		t.Errorf("default depth = %d", b.Depth())
	}
	b.Push(5)
	b.Push(7)
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Reset left %d items", b.Len())
	}
	out := pushAll(b, []item{3, 2})
	if diff := cmp.Diff([]item{2, 3}, out); diff != "" {
		t.Errorf("after reset (-want +got):\n%s", diff)
	}
}

func TestSequenceRestart(t *testing.T) {
	b := NewBuffer[item](DefaultWindowDepth)

	first := pushAll(b, seqs(0, 5000))
	if len(first) != 5000 {
		t.Fatalf("first run delivered %d, want 5000", len(first))
	}

	// the sender starts numbering from zero again
	second := pushAll(b, seqs(0, 3000))
	if diff := cmp.Diff(seqs(0, 3000), second); diff != "" {
		t.Errorf("restarted stream mismatch (-want +got):\n%s", diff)
	}
	st := b.Stats()
	if st.Resyncs != 1 || st.Late != 0 || st.Delivered != 8000 {
		t.Errorf("restart accounting wrong: %+v", st)
	}
}

func TestRestartReleasesHeldItems(t *testing.T) {
	b := NewBuffer[item](4)

	var out []item
	for _, it := range append(seqs(100, 5), 106, 107) { // 105 missing
		out = append(out, b.Push(it)...)
	}
	if b.Len() != 2 {
		t.Fatalf("held %d items before restart, want 2", b.Len())
	}
	for _, it := range seqs(3, 6) {
		out = append(out, b.Push(it)...)
	}
	out = append(out, b.Flush()...)

	want := append(append(seqs(100, 5), 106, 107), seqs(3, 6)...)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if st := b.Stats(); st.Resyncs != 1 || st.Lost != 1 || st.Late != 0 {
		t.Errorf("restart accounting wrong: %+v", st)
	}
}

func TestSyncGrace(t *testing.T) {
	t.Run("in order", func(t *testing.T) {
		b := NewBuffer[item](DefaultWindowDepth)
		b.SetSyncGrace(4)

		var out []item
		for i, it := range seqs(0, 20) {
			out = append(out, b.Push(it)...)
			if i < 4 && len(out) != 0 {
				t.Fatalf("delivered %v after %d pushes", out, i+1)
			}
			if i == 4 && len(out) != 5 {
				t.Fatalf("delivered %v after 5 pushes, want 0..4", out)
			}
		}
		if diff := cmp.Diff(seqs(0, 20), out); diff != "" {
			t.Errorf("order mismatch before flush (-want +got):\n%s", diff)
		}
	})

	t.Run("lower item restarts the count", func(t *testing.T) {
		b := NewBuffer[item](DefaultWindowDepth)
		b.SetSyncGrace(2)

		var out []item
		for _, it := range []item{5, 6, 3, 4} {
			out = append(out, b.Push(it)...)
		}
		if len(out) != 0 {
			t.Fatalf("delivered %v before the anchor held", out)
		}
		out = append(out, b.Push(7)...)
		if diff := cmp.Diff([]item{3, 4, 5, 6, 7}, out); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}

		// older than the anchor
		if got := b.Push(2); len(got) != 0 {
			t.Errorf("item before the anchor delivered: %v", got)
		}
		if st := b.Stats(); st.Late != 1 || st.Forced != 0 {
			t.Errorf("accounting wrong: %+v", st)
		}
	})
}
