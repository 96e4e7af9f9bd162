package printers

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"satarecon/internal/pipeline"
)

// StatsPrinter writes the end of run summary with digit grouping.
type StatsPrinter struct {
	p *message.Printer
	w io.Writer
}

// NewStatsPrinter creates a summary printer using the conventions of tag.
func NewStatsPrinter(w io.Writer, tag language.Tag) *StatsPrinter {
	return &StatsPrinter{p: message.NewPrinter(tag), w: w}
}

// Print writes the summary of a pipeline run.
func (sp *StatsPrinter) Print(st pipeline.Stats) {
	p, w := sp.p, sp.w

	p.Fprintf(w, "Capture summary:-\n")
	p.Fprintf(w, "Records read         : %d\n", st.Records)
	p.Fprintf(w, "Decode errors        : %d\n", st.DecodeErrors)
	p.Fprintf(w, "\nReorder buffer:-\n")
	p.Fprintf(w, "Frames pushed        : %d\n", st.Reorder.Pushed)
	p.Fprintf(w, "Frames delivered     : %d\n", st.Reorder.Delivered)
	p.Fprintf(w, "Forced releases      : %d\n", st.Reorder.Forced)
	p.Fprintf(w, "Frames lost          : %d\n", st.Reorder.Lost)
	p.Fprintf(w, "Late frames dropped  : %d\n", st.Reorder.Late)
	p.Fprintf(w, "Sequence restarts    : %d\n", st.Reorder.Resyncs)

	e := st.Engine
	p.Fprintf(w, "\nReconstruction:-\n")
	p.Fprintf(w, "Frames processed     : %d\n", e.FrameCount)
	p.Fprintf(w, "Operations emitted   : %d\n", e.OperationsEmitted)
	p.Fprintf(w, "Bytes emitted        : %d\n", e.BytesEmitted)
	p.Fprintf(w, "Errors               : %d\n", e.ErrorCount)
	p.Fprintf(w, "  sequence gaps      : %d\n", e.SequenceGaps)
	p.Fprintf(w, "  unexpected frames  : %d\n", e.UnexpectedFrames)
	p.Fprintf(w, "  NCQ aborts         : %d\n", e.NCQAborts)
	p.Fprintf(w, "  tag collisions     : %d\n", e.TagCollisions)
	p.Fprintf(w, "  legacy overlaps    : %d\n", e.LegacyOverlaps)
	p.Fprintf(w, "  orphan data frames : %d\n", e.OrphanData)
	p.Fprintf(w, "Discarded commands   : %d (%d open at end of capture)\n", e.DiscardedTransactions, st.Discarded)
}
