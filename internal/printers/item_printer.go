package printers

import (
	"fmt"
	"io"

	"satarecon/internal/common"
	"satarecon/internal/sata"
)

// ItemPrinter is the base of the output sinks.
type ItemPrinter struct {
	writer       io.Writer
	errLog       common.ErrorLog
	muted        bool
	seqPrintMute bool
}

// NewItemPrinter constructs an ItemPrinter using the given io.Writer.
func NewItemPrinter(writer io.Writer) *ItemPrinter {
	return &ItemPrinter{
		writer: writer,
	}
}

// SetMessageLogger sets the optional logger that receives a copy of every line.
func (p *ItemPrinter) SetMessageLogger(logger common.ErrorLog) {
	p.errLog = logger
}

// ItemPrintLine writes the given message to the writer and optionally logs it.
func (p *ItemPrinter) ItemPrintLine(msg string) {
	if p.writer != nil {
		fmt.Fprint(p.writer, msg)
	}
	if p.errLog != nil {
		p.errLog.LogMessage(sata.ErrSevInfo, msg)
	}
}

// SetMute sets the printer to mute (avoids output).
func (p *ItemPrinter) SetMute(mute bool) { p.muted = mute }

// IsMuted returns true if the printer is muted.
func (p *ItemPrinter) IsMuted() bool { return p.muted }

// MuteSeqPrint mutes or unmutes the sequence number prefix of output lines.
func (p *ItemPrinter) MuteSeqPrint(mute bool) { p.seqPrintMute = mute }

// SeqPrintMuted returns whether sequence number printing is muted.
func (p *ItemPrinter) SeqPrintMuted() bool { return p.seqPrintMute }
