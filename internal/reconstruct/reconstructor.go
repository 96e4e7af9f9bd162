// Package reconstruct rebuilds completed disk operations from an ordered
// stream of SATA frames, tracking legacy and queued (NCQ) commands side by
// side.
package reconstruct

import (
	"errors"
	"fmt"

	"satarecon/internal/common"
	"satarecon/internal/config"
	"satarecon/internal/fis"
	"satarecon/internal/sata"
)

// Reconstructor is the SATA reconstruction state machine. It is not safe for
// concurrent use; one goroutine owns it for the life of a capture stream.
type Reconstructor struct {
	common.Component

	sectorSize uint32
	crcLen     int

	currMode Mode
	ncq      ncqTable
	legacy   legacyStack
	setups   setupStack

	lastSeq  sata.SeqNum
	haveLast bool

	stats Stats
}

// NewReconstructor creates a state machine in DeviceIdle.
func NewReconstructor(cfg config.Config) (*Reconstructor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Reconstructor{
		sectorSize: cfg.SectorSize,
		crcLen:     cfg.DataCRCLength,
		legacy:     make(legacyStack, 0, 2),
		setups:     make(setupStack, 0, 2),
	}
	r.InitComponent(sata.CmpnamePrefixReconstruct + "_SATA")
	return r, nil
}

// Mode returns the current state.
func (r *Reconstructor) Mode() Mode { return r.currMode }

// Stats returns a copy of the counters.
func (r *Reconstructor) Stats() Stats { return r.stats }

// ActiveTags returns the bitmask of NCQ tags with an outstanding transaction.
func (r *Reconstructor) ActiveTags() uint32 { return r.ncq.active() }

// LegacyDepth returns the number of outstanding legacy transactions.
func (r *Reconstructor) LegacyDepth() int { return len(r.legacy) }

// SetupDepth returns the number of outstanding DMA Setup frames.
func (r *Reconstructor) SetupDepth() int { return len(r.setups) }

// ProcessFrame consumes the next frame in sequence order and returns the disk
// operation it completed, if any. A non-nil error reports an anomaly that has
// already been recovered from; the machine stays usable after every error.
func (r *Reconstructor) ProcessFrame(f *fis.Frame) (*DiskOperation, error) {
	var errs errList

	r.stats.FrameCount++
	if f == nil || f.Fields == nil {
		r.stats.ErrorCount++
		r.stats.UnexpectedFrames++
		err := common.NewErrorMsg(sata.ErrSevWarn, sata.ErrUnexpectedFrame, "frame without fields")
		r.LogError(err)
		return nil, err
	}

	errs.add(r.checkSequence(f.Seq))
	r.LogMessagef(sata.ErrSevDebug, "[%s] %s", r.currMode, f)

	var op *DiskOperation
	switch h := f.Fields.(type) {
	case *fis.SetDevBits:
		errs.add(r.onSetDevBits(f.Seq, h))

	case *fis.RegH2D:
		errs.add(r.onRegH2D(f.Seq, h))

	case *fis.RegD2H:
		errs.add(r.onRegD2H(f.Seq, h))

	case *fis.PIOSetup:
		r.currMode = WaitNonNcqData

	case *fis.DMAActivate:
		// flow control only

	default:
		var err error
		op, err = r.dispatchByMode(f)
		errs.add(err)
	}
	return op, errs.err()
}

// Flush ends the stream. Incomplete transactions cannot be completed any
// more, so they are discarded and counted. It returns the number discarded.
func (r *Reconstructor) Flush() int {
	discarded := 0
	for tag, t := range r.ncq {
		if t != nil {
			r.discard(t, sata.ErrIncompleteDiscarded, "stream ended with NCQ transaction incomplete")
			r.ncq[tag] = nil
			discarded++
		}
	}
	for _, t := range r.legacy {
		r.discard(t, sata.ErrIncompleteDiscarded, "stream ended with legacy transaction incomplete")
		discarded++
	}
	r.legacy.reset()
	r.setups.reset()
	r.currMode = DeviceIdle
	return discarded
}

// Reset returns the machine to its initial state, keeping the counters.
func (r *Reconstructor) Reset() {
	r.resetState()
	r.haveLast = false
	r.lastSeq = 0
}

func (r *Reconstructor) resetState() {
	r.ncq.clearAll()
	r.legacy.reset()
	r.setups.reset()
	r.currMode = DeviceIdle
}

// checkSequence enforces strictly contiguous sequence numbers. A gap means
// frames are missing, so no outstanding state can be trusted.
func (r *Reconstructor) checkSequence(seq sata.SeqNum) error {
	defer func() {
		r.lastSeq = seq
		r.haveLast = true
	}()
	if !r.haveLast || seq == r.lastSeq.Next() {
		return nil
	}

	r.stats.ErrorCount++
	r.stats.SequenceGaps++
	lost := r.ncq.count() + len(r.legacy)
	err := common.NewErrorWithSeqMsg(sata.ErrSevWarn, sata.ErrSequenceGap, seq,
		fmt.Sprintf("expected %d; state reset, %d transaction(s) dropped", r.lastSeq.Next(), lost))
	r.LogError(err)
	r.stats.DiscardedTransactions += uint64(lost)
	r.resetState()
	return err
}

func (r *Reconstructor) dispatchByMode(f *fis.Frame) (*DiskOperation, error) {
	switch r.currMode {
	case DeviceIdle:
		switch h := f.Fields.(type) {
		case *fis.DMASetup:
			r.onDMASetup(f.Seq, h)
			return nil, nil
		case *fis.BISTActivate:
			r.LogMessagef(sata.ErrSevDebug, "BIST activate at seq %d ignored", f.Seq)
			return nil, nil
		}

	case WaitDmaDataFromDevice, WaitDmaDataFromHost:
		if f.Kind() == fis.KindData && f.Dir == r.waitSource() {
			return r.onDMAData(f)
		}

	case WaitNonNcqData:
		if f.Kind() == fis.KindData {
			return r.onLegacyData(f)
		}
	}
	return nil, r.onUnexpected(f)
}

func (r *Reconstructor) waitSource() sata.Direction {
	if r.currMode == WaitDmaDataFromDevice {
		return sata.DeviceToHost
	}
	return sata.HostToDevice
}

// onUnexpected recovers from a frame the current mode does not allow. Only
// the mode is reset; outstanding NCQ tags survive. A DMA Setup is often the
// first frame of a new transfer after lost sync, so it is handled again.
func (r *Reconstructor) onUnexpected(f *fis.Frame) error {
	r.stats.ErrorCount++
	r.stats.UnexpectedFrames++
	err := common.NewErrorWithSeqMsg(sata.ErrSevWarn, sata.ErrUnexpectedFrame, f.Seq,
		fmt.Sprintf("%s: expected %s, got %s %s", r.currMode, r.currMode.expecting(), f.Dir, f.Kind()))
	r.LogError(err)

	r.currMode = DeviceIdle
	if ds, ok := f.Fields.(*fis.DMASetup); ok {
		r.onDMASetup(f.Seq, ds)
	}
	return err
}

func (r *Reconstructor) onRegH2D(seq sata.SeqNum, reg *fis.RegH2D) error {
	if !reg.IsCommand {
		// control register update, e.g. software reset
		return nil
	}

	info := reg.Command.Info()
	switch info.Class {
	case sata.ClassNCQ:
		return r.newNCQ(seq, reg, info)
	case sata.ClassNCQQueueMgt:
		r.LogMessagef(sata.ErrSevDebug, "%s at seq %d creates no transaction", reg.Command, seq)
		return nil
	}
	return r.newLegacy(seq, reg, info)
}

func (r *Reconstructor) newNCQ(seq sata.SeqNum, reg *fis.RegH2D, info sata.CmdInfo) error {
	tag := reg.NCQTag()
	// NCQ moves the sector count into the features register
	count := uint32(reg.Features)
	if count == 0 {
		count = 65536
	}

	t := newTransaction(tag, seq, reg, reg.LBA, count, info.Dir, r.sectorSize)
	prev := r.ncq.set(t)
	if prev == nil {
		return nil
	}

	r.stats.ErrorCount++
	r.stats.TagCollisions++
	r.stats.DiscardedTransactions++
	err := common.NewErrorWithSeqTagMsg(sata.ErrSevWarn, sata.ErrTagCollision, seq, tag,
		fmt.Sprintf("tag already holds %s from seq %d (%d/%d bytes); overwritten",
			prev.register.Command, prev.seq, len(prev.accumulated), prev.expected))
	r.LogError(err)
	return err
}

func (r *Reconstructor) newLegacy(seq sata.SeqNum, reg *fis.RegH2D, info sata.CmdInfo) error {
	var sector uint64
	var count uint32
	if info.LBA48 {
		sector = reg.LBA
		count = uint32(reg.Count)
		if count == 0 {
			count = 65536
		}
	} else {
		sector = reg.LBA&0xFFFFFF | uint64(reg.Device&0x0F)<<24
		count = uint32(reg.Count & 0xFF)
		if count == 0 {
			count = 256
		}
	}

	r.legacy.push(newTransaction(sata.BadTag, seq, reg, sector, count, info.Dir, r.sectorSize))
	if info.IsData() {
		r.currMode = WaitNonNcqData
	} else {
		r.currMode = WaitRegisterAck
	}

	stale := r.legacy.dropStale()
	if len(stale) == 0 {
		return nil
	}
	r.stats.ErrorCount++
	r.stats.LegacyOverlaps++
	err := common.NewErrorWithSeqMsg(sata.ErrSevWarn, sata.ErrLegacyOverlap, seq,
		fmt.Sprintf("%s issued while %s from seq %d outstanding", reg.Command, stale[0].register.Command, stale[0].seq))
	r.LogError(err)
	for _, t := range stale {
		r.discard(t, sata.ErrLegacyOverlap, "superseded legacy transaction")
	}
	return err
}

func (r *Reconstructor) onRegD2H(seq sata.SeqNum, d2h *fis.RegD2H) error {
	if d2h.HasError() {
		if t := r.legacy.top(); t != nil {
			r.discard(t, sata.ErrIncompleteDiscarded, "command failed")
			r.legacy.reset()
			r.leaveLegacyMode()
		}
		return r.abortNCQ(seq, fmt.Sprintf("REG_D2H status 0x%02X error 0x%02X", d2h.Status, d2h.Error), false)
	}

	if t := r.legacy.top(); t != nil {
		if t.expected > 0 {
			r.discard(t, sata.ErrIncompleteDiscarded, "acknowledged before all data arrived")
		}
		r.legacy.reset()
	}
	r.leaveLegacyMode()
	return nil
}

func (r *Reconstructor) leaveLegacyMode() {
	if r.currMode == WaitRegisterAck || r.currMode == WaitNonNcqData {
		r.currMode = DeviceIdle
	}
}

func (r *Reconstructor) onSetDevBits(seq sata.SeqNum, sdb *fis.SetDevBits) error {
	switch {
	case sdb.HasError():
		return r.abortNCQ(seq, fmt.Sprintf("SET_DEV_BITS status 0x%02X error 0x%02X", sdb.Status, sdb.Error), false)

	case sdb.Interrupt && sdb.Act == sata.ActAllTags:
		return r.abortNCQ(seq, "queued error log abort pattern", true)

	case sdb.Interrupt && sdb.Act != 0:
		// completion is decided by byte counts, the notice only gets logged
		if pending := sdb.Act & r.ncq.active(); pending != 0 {
			r.LogMessagef(sata.ErrSevDebug, "seq %d: completion notice for tags 0x%08X still collecting data", seq, pending)
		}
	}
	return nil
}

// abortNCQ discards NCQ transactions after a device error. With a DMA Setup
// outstanding the failing command is known and only its tag is dropped.
// DMA Setup entries are kept so the rest of an aborted transfer is absorbed.
func (r *Reconstructor) abortNCQ(seq sata.SeqNum, reason string, all bool) error {
	r.stats.ErrorCount++
	r.stats.NCQAborts++

	tag := sata.BadTag
	if ds := r.setups.top(); ds != nil && !all {
		tag = ds.tag
	}

	var dropped int
	if sata.IsValidTag(tag) {
		if r.ncq.get(tag) != nil {
			r.ncq.clear(tag)
			dropped = 1
		}
	} else {
		dropped = r.ncq.clearAll()
	}
	r.stats.DiscardedTransactions += uint64(dropped)

	err := common.NewErrorWithSeqTagMsg(sata.ErrSevError, sata.ErrNCQAbort, seq, tag,
		fmt.Sprintf("%s; %d NCQ transaction(s) discarded", reason, dropped))
	r.LogError(err)
	return err
}

func (r *Reconstructor) onDMASetup(seq sata.SeqNum, ds *fis.DMASetup) {
	if stale := r.setups.top(); stale != nil {
		r.LogMessagef(sata.ErrSevWarn, "seq %d: DMA setup for tag %d replaces tag %d at %d/%d bytes",
			seq, ds.Tag(), stale.tag, stale.received, stale.count)
		r.setups.reset()
	}

	r.setups.push(&dmaSetup{
		tag:    ds.Tag(),
		source: ds.DataSource(),
		count:  ds.TransferCount,
		seq:    seq,
	})
	if ds.FromDevice {
		r.currMode = WaitDmaDataFromDevice
	} else {
		r.currMode = WaitDmaDataFromHost
	}
}

// payload strips the trailing CRC dword from a Data frame.
func (r *Reconstructor) payload(f *fis.Frame) []byte {
	n := len(f.Payload) - r.crcLen
	if n <= 0 {
		return nil
	}
	return f.Payload[:n]
}

func (r *Reconstructor) onDMAData(f *fis.Frame) (*DiskOperation, error) {
	ds := r.setups.top()
	if ds == nil {
		r.currMode = DeviceIdle
		return nil, r.orphan(f.Seq, sata.BadTag, "DMA data with no DMA setup")
	}

	data := r.payload(f)
	ds.received += uint32(len(data))
	if ds.done() {
		r.setups.pop()
		r.currMode = DeviceIdle
	}

	t := r.ncq.get(ds.tag)
	if t == nil {
		return nil, r.orphan(f.Seq, ds.tag, "DMA data for a tag with no transaction")
	}
	t.append(data)
	if !t.complete() {
		return nil, nil
	}
	r.ncq.clear(ds.tag)
	return r.emit(t, f.Seq), nil
}

func (r *Reconstructor) onLegacyData(f *fis.Frame) (*DiskOperation, error) {
	t := r.legacy.top()
	if t == nil {
		r.currMode = DeviceIdle
		return nil, r.orphan(f.Seq, sata.BadTag, "data with no legacy command")
	}

	if t.expected == 0 {
		// data phase of a command that addresses no sectors, e.g. IDENTIFY
		r.LogMessagef(sata.ErrSevDebug, "seq %d: %d bytes for %s not reported", f.Seq, len(r.payload(f)), t.register.Command)
		r.legacy.pop()
		r.currMode = DeviceIdle
		return nil, nil
	}

	t.append(r.payload(f))
	if !t.complete() {
		return nil, nil
	}
	r.legacy.pop()
	r.currMode = DeviceIdle
	return r.emit(t, f.Seq), nil
}

func (r *Reconstructor) emit(t *transaction, seq sata.SeqNum) *DiskOperation {
	op := t.operation(seq)
	r.stats.OperationsEmitted++
	r.stats.BytesEmitted += uint64(op.SizeBytes)
	r.LogMessagef(sata.ErrSevDebug, "emit %s", op)
	return op
}

func (r *Reconstructor) orphan(seq sata.SeqNum, tag uint8, msg string) error {
	r.stats.ErrorCount++
	r.stats.OrphanData++
	err := common.NewErrorWithSeqTagMsg(sata.ErrSevWarn, sata.ErrOrphanData, seq, tag, msg)
	r.LogError(err)
	return err
}

func (r *Reconstructor) discard(t *transaction, code sata.Err, msg string) {
	r.stats.DiscardedTransactions++
	r.LogError(common.NewErrorWithSeqTagMsg(sata.ErrSevError, code, t.seq, t.tag,
		fmt.Sprintf("%s: %s LBA 0x%X, %d/%d bytes", msg, t.register.Command, t.sector, len(t.accumulated), t.expected)))
}

// errList collects the errors raised while handling one frame.
type errList []error

func (l *errList) add(err error) {
	if err != nil {
		*l = append(*l, err)
	}
}

func (l errList) err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	}
	return errors.Join(l...)
}
