// Package pipeline wires capture records through decode, reordering and
// reconstruction to an operation sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	logcommon "satarecon/common"
	"satarecon/internal/capture"
	"satarecon/internal/common"
	"satarecon/internal/config"
	"satarecon/internal/fis"
	"satarecon/internal/reconstruct"
	"satarecon/internal/reorder"
	"satarecon/internal/sata"
)

// Source supplies capture records in arrival order. Next returns io.EOF at
// the end of the stream.
type Source interface {
	Next() (capture.Record, error)
}

// Sink consumes completed disk operations in completion order.
type Sink interface {
	OperationIn(op *reconstruct.DiskOperation) error
}

// FrameSink observes every frame in the order it reaches the state machine.
type FrameSink interface {
	FrameIn(f *fis.Frame)
}

// Stats summarises a run.
type Stats struct {
	Records      uint64
	DecodeErrors uint64
	Reorder      reorder.Stats
	Engine       reconstruct.Stats
	Discarded    int // transactions still open at end of stream
}

// Pipeline owns one reorder buffer and one state machine for a single
// capture stream.
type Pipeline struct {
	common.Component

	reorder   *reorder.Buffer[*fis.Frame]
	engine    *reconstruct.Reconstructor
	frameSink FrameSink

	records      uint64
	decodeErrors uint64
	discarded    int
}

// New builds the pipeline components from cfg.
func New(cfg config.Config) (*Pipeline, error) {
	engine, err := reconstruct.NewReconstructor(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		reorder: reorder.NewBuffer[*fis.Frame](cfg.ReorderWindowDepth),
		engine:  engine,
	}
	p.reorder.SetSyncGrace(cfg.ReorderSyncGrace)
	p.InitComponent(sata.CmpnamePrefixPipeline + "_CAP")
	return p, nil
}

// Components returns the named components of the pipeline in data flow order.
func (p *Pipeline) Components() []*common.Component {
	return []*common.Component{&p.Component, &p.reorder.Component, &p.engine.Component}
}

// SetLogger routes the log output of every component to logger at the
// given verbosity.
func (p *Pipeline) SetLogger(logger logcommon.Logger, level sata.ErrSeverity) {
	errLog := common.NewLoggerErrorLog(logger)
	for _, c := range p.Components() {
		c.ErrorLogAttachPt().ReplaceFirst(errLog)
		c.SetErrorLogLevel(level)
	}
}

// SetFrameSink attaches an observer for the ordered frame stream.
func (p *Pipeline) SetFrameSink(fs FrameSink) { p.frameSink = fs }

// Stats returns the counters of the last run.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Records:      p.records,
		DecodeErrors: p.decodeErrors,
		Reorder:      p.reorder.Stats(),
		Engine:       p.engine.Stats(),
		Discarded:    p.discarded,
	}
}

// Run drains src through the pipeline. A producer goroutine decodes and
// reorders frames and passes them over a single channel to the state
// machine, which runs on the calling goroutine. On cancellation the producer
// stops and whatever is already queued is still processed before the
// engine is flushed.
func (p *Pipeline) Run(ctx context.Context, src Source, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan *fis.Frame, p.reorder.Depth())
	var srcErr error
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(frames)
		srcErr = p.produce(ctx, src, frames)
	}()

	var sinkErr error
	for f := range frames {
		if p.frameSink != nil {
			p.frameSink.FrameIn(f)
		}
		op, _ := p.engine.ProcessFrame(f) // anomalies are logged and counted by the engine
		if op == nil || sink == nil || sinkErr != nil {
			continue
		}
		if err := sink.OperationIn(op); err != nil {
			sinkErr = fmt.Errorf("sink: %w", err)
			cancel()
		}
	}
	wg.Wait()

	p.discarded = p.engine.Flush()
	if sinkErr != nil && errors.Is(srcErr, context.Canceled) {
		// the producer was stopped because of the sink
		srcErr = nil
	}
	return errors.Join(srcErr, sinkErr)
}

func (p *Pipeline) produce(ctx context.Context, src Source, frames chan<- *fis.Frame) error {
	send := func(out []*fis.Frame) bool {
		for _, f := range out {
			select {
			case frames <- f:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			send(p.reorder.Flush())
			return fmt.Errorf("capture source: %w", err)
		}
		p.records++

		f, err := fis.Decode(rec.Seq, rec.Dir, rec.Raw)
		if err != nil {
			p.decodeErrors++
			var ce *common.Error
			if errors.As(err, &ce) {
				ce.Sev = sata.ErrSevWarn
				p.LogError(ce)
			}
			p.LogMessagef(sata.ErrSevWarn, "record seq %d skipped after decode failure; a sequence gap follows", rec.Seq)
			continue
		}
		if !send(p.reorder.Push(f)) {
			return ctx.Err()
		}
	}

	if !send(p.reorder.Flush()) {
		return ctx.Err()
	}
	return nil
}
