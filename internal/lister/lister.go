package lister

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/language"

	logcommon "satarecon/common"
	"satarecon/internal/capture"
	"satarecon/internal/config"
	"satarecon/internal/fis"
	"satarecon/internal/pipeline"
	"satarecon/internal/printers"
	"satarecon/internal/sata"
)

// Config mirrors the command line arguments of the satarecon tool.
type Config struct {
	CaptureFile  string
	Engine       config.Config
	Frames       bool // list decoded frames in arrival order instead of operations
	HexDump      bool
	NoSeqPrint   bool
	NoStats      bool
	Logger       logcommon.Logger
	LogLevel     sata.ErrSeverity
	OutputWriter io.Writer
}

// Run lists the content of one capture file.
func Run(ctx context.Context, cfg Config) error {
	w := cfg.OutputWriter
	if w == nil {
		w = os.Stdout
	}

	fmt.Fprintln(w, "SATA Capture Lister: frame reorder and command reconstruction")
	fmt.Fprintln(w, "-------------------------------------------------------------")
	fmt.Fprintf(w, "SATA Capture Lister : reading capture %s\n", cfg.CaptureFile)

	f, err := os.Open(cfg.CaptureFile)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	rd, err := capture.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	if cfg.Frames {
		return listFrames(ctx, rd, w, cfg)
	}
	return listOperations(ctx, rd, w, cfg)
}

func listOperations(ctx context.Context, rd *capture.Reader, w io.Writer, cfg Config) error {
	p, err := pipeline.New(cfg.Engine)
	if err != nil {
		return fmt.Errorf("error creating pipeline: %w", err)
	}
	if cfg.Logger != nil {
		p.SetLogger(cfg.Logger, cfg.LogLevel)
	}

	fmt.Fprintf(w, "Reorder window %d frames; sector size %d\n", cfg.Engine.ReorderWindowDepth, cfg.Engine.SectorSize)
	for _, c := range p.Components() {
		fmt.Fprintf(w, "Component %-9s : log level %s\n", c.ComponentName(), c.ErrorLogLevel())
	}
	fmt.Fprintln(w)

	op := printers.NewOpPrinter(w)
	op.SetHexDump(cfg.HexDump)
	op.MuteSeqPrint(cfg.NoSeqPrint)
	op.SetCollectStats()

	if err := p.Run(ctx, rd, op); err != nil {
		return fmt.Errorf("error processing capture: %w", err)
	}

	if !cfg.NoStats {
		fmt.Fprintln(w)
		op.PrintStats()
		printers.NewStatsPrinter(w, language.English).Print(p.Stats())
	}
	return nil
}

// listFrames prints every decodable record in file order, without
// reordering or reconstruction.
func listFrames(ctx context.Context, rd *capture.Reader, w io.Writer, cfg Config) error {
	fp := printers.NewFramePrinter(w)
	fp.SetDumpPayload(cfg.HexDump)
	fp.MuteSeqPrint(cfg.NoSeqPrint)

	for ctx.Err() == nil {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error processing capture: %w", err)
		}
		frame, err := fis.Decode(rec.Seq, rec.Dir, rec.Raw)
		if err != nil {
			fmt.Fprintf(w, "Frame; Seq %5d; %s; %v\n", rec.Seq, rec.Dir, err)
			continue
		}
		fp.FrameIn(frame)
	}
	if !cfg.NoStats {
		fmt.Fprintf(w, "\n%d records listed\n", rd.Count())
	}
	return ctx.Err()
}
