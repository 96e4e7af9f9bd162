// Command satarecon reorders a captured SATA frame stream and lists the disk
// operations reconstructed from it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logcommon "satarecon/common"
	"satarecon/internal/common"
	"satarecon/internal/config"
	"satarecon/internal/lister"
)

type options struct {
	configFile string
	window     int
	syncGrace  int
	sectorSize uint32
	crcBytes   int
	hexDump    bool
	noSeq      bool
	noStats    bool
	logLevel   string
	logFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "satarecon",
		Short:         "SATA capture reorder and command reconstruction",
		Long:          "Restore arrival order of captured SATA frames and rebuild the disk reads and writes they carry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "INI file with [reorder] and [engine] settings")
	pf.IntVar(&opts.window, "window", 0, "reorder window depth in frames (overrides config)")
	pf.IntVar(&opts.syncGrace, "sync-grace", -1, "start delivering once the lowest frame held for N pushes, 0 waits for a full window (overrides config)")
	pf.Uint32Var(&opts.sectorSize, "sector-size", 0, "sector size in bytes (overrides config)")
	pf.IntVar(&opts.crcBytes, "crc-bytes", -1, "trailing CRC bytes on Data frames (overrides config)")
	pf.BoolVar(&opts.hexDump, "hexdump", false, "dump payload bytes")
	pf.BoolVar(&opts.noSeq, "no-seq", false, "do not print sequence numbers")
	pf.BoolVar(&opts.noStats, "no-stats", false, "do not print the summary")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text, json or plain")

	listCmd := &cobra.Command{
		Use:   "list <capture>",
		Short: "List reconstructed disk operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLister(cmd.Context(), opts, args[0], false, stdout, stderr)
		},
	}

	framesCmd := &cobra.Command{
		Use:   "frames <capture>",
		Short: "List decoded frames in file order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLister(cmd.Context(), opts, args[0], true, stdout, stderr)
		},
	}

	root.AddCommand(listCmd, framesCmd)
	return root
}

// engineConfig loads the config file, if any, and applies flag overrides.
func engineConfig(opts *options) (config.Config, error) {
	cfg := config.NewConfig()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(opts.configFile); err != nil {
			return cfg, err
		}
	}
	if opts.window != 0 {
		cfg.ReorderWindowDepth = opts.window
	}
	if opts.syncGrace >= 0 {
		cfg.ReorderSyncGrace = opts.syncGrace
	}
	if opts.sectorSize != 0 {
		cfg.SectorSize = opts.sectorSize
	}
	if opts.crcBytes >= 0 {
		cfg.DataCRCLength = opts.crcBytes
	}
	return cfg, cfg.Validate()
}

func runLister(ctx context.Context, opts *options, file string, frames bool, stdout, stderr io.Writer) error {
	level, err := logcommon.ParseSeverity(opts.logLevel)
	if err != nil {
		return err
	}
	engine, err := engineConfig(opts)
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.logFormat, level, file, stderr)
	if err != nil {
		return err
	}

	return lister.Run(ctx, lister.Config{
		CaptureFile:  file,
		Engine:       engine,
		Frames:       frames,
		HexDump:      opts.hexDump,
		NoSeqPrint:   opts.noSeq,
		NoStats:      opts.noStats,
		Logger:       logger,
		LogLevel:     common.SeverityFor(level),
		OutputWriter: stdout,
	})
}

// newLogger builds the diagnostic logger. Text and JSON go through logrus;
// plain keeps the timestamped line format of the standard logger.
func newLogger(format string, level logcommon.Severity, file string, w io.Writer) (logcommon.Logger, error) {
	switch format {
	case "text", "":
		return logcommon.NewLogrusLogger(w, level, false).WithField("capture", file), nil
	case "json":
		return logcommon.NewLogrusLogger(w, level, true).WithField("capture", file), nil
	case "plain":
		return logcommon.NewStdLoggerWithWriter(w, w, level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
