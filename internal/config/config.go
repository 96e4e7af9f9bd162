// Package config holds the tunable settings of the reconstruction engine.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"satarecon/internal/common"
	"satarecon/internal/reorder"
	"satarecon/internal/sata"
)

// Config is the engine configuration.
type Config struct {
	// ReorderWindowDepth is the number of out-of-order frames buffered
	// before the oldest is forced forward.
	ReorderWindowDepth int
	// ReorderSyncGrace, when non-zero, anchors the start of the stream once
	// the lowest held frame has stayed lowest for that many pushes. Zero
	// waits for the window to fill, which tolerates any reordering within
	// the window at the cost of start-up latency.
	ReorderSyncGrace int
	// NCQSlotCount must equal the 32 tags defined by SATA.
	NCQSlotCount int
	// SectorSize is the logical sector size in bytes.
	SectorSize uint32
	// DataCRCLength is stripped from the tail of every Data FIS payload.
	DataCRCLength int
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		ReorderWindowDepth: reorder.DefaultWindowDepth,
		NCQSlotCount:       sata.NCQSlotCount,
		SectorSize:         sata.DefaultSectorSize,
		DataCRCLength:      sata.DataCRCLength,
	}
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	switch {
	case c.ReorderWindowDepth <= 0:
		return common.NewErrorMsg(sata.ErrSevError, sata.ErrInvalidParamVal,
			fmt.Sprintf("reorder window depth %d must be positive", c.ReorderWindowDepth))
	case c.ReorderSyncGrace < 0 || c.ReorderSyncGrace > c.ReorderWindowDepth:
		return common.NewErrorMsg(sata.ErrSevError, sata.ErrInvalidParamVal,
			fmt.Sprintf("reorder sync grace %d outside 0..%d", c.ReorderSyncGrace, c.ReorderWindowDepth))
	case c.NCQSlotCount != sata.NCQSlotCount:
		return common.NewErrorMsg(sata.ErrSevError, sata.ErrInvalidParamVal,
			fmt.Sprintf("NCQ slot count %d unsupported, SATA defines %d", c.NCQSlotCount, sata.NCQSlotCount))
	case c.SectorSize == 0 || c.SectorSize%512 != 0:
		return common.NewErrorMsg(sata.ErrSevError, sata.ErrInvalidParamVal,
			fmt.Sprintf("sector size %d is not a multiple of 512", c.SectorSize))
	case c.SectorSize > sata.MaxSectorSize:
		return common.NewErrorMsg(sata.ErrSevError, sata.ErrInvalidParamVal,
			fmt.Sprintf("sector size %d exceeds %d", c.SectorSize, sata.MaxSectorSize))
	case c.DataCRCLength < 0:
		return common.NewErrorMsg(sata.ErrSevError, sata.ErrInvalidParamVal,
			fmt.Sprintf("data CRC length %d is negative", c.DataCRCLength))
	}
	return nil
}

// Load reads INI text over the defaults and validates the result.
//
//	[reorder]
//	window_depth = 20
//	sync_grace = 0
//	[engine]
//	ncq_slots = 32
//	sector_size = 512
//	data_crc_bytes = 4
func Load(r io.Reader) (Config, error) {
	cfg := NewConfig()
	ini, err := parseIni(r)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if sec := ini.section("reorder"); sec != nil {
		if err := setInt(sec, "window_depth", &cfg.ReorderWindowDepth); err != nil {
			return cfg, err
		}
		if err := setInt(sec, "sync_grace", &cfg.ReorderSyncGrace); err != nil {
			return cfg, err
		}
	}
	if sec := ini.section("engine"); sec != nil {
		if err := setInt(sec, "ncq_slots", &cfg.NCQSlotCount); err != nil {
			return cfg, err
		}
		if err := setInt(sec, "data_crc_bytes", &cfg.DataCRCLength); err != nil {
			return cfg, err
		}
		if v, ok := sec["sector_size"]; ok {
			n, err := strconv.ParseUint(v, 0, 32)
			if err != nil {
				return cfg, badValue("sector_size", v, err)
			}
			cfg.SectorSize = uint32(n)
		}
	}
	return cfg, cfg.Validate()
}

// LoadFile reads a configuration file.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return NewConfig(), common.NewErrorMsg(sata.ErrSevError, sata.ErrFileError, err.Error())
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func setInt(sec map[string]string, key string, dst *int) error {
	v, ok := sec[key]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return badValue(key, v, err)
	}
	*dst = n
	return nil
}

func badValue(key, val string, err error) error {
	return fmt.Errorf("%w: %s = %q: %v", common.ErrInvalidParamVal, key, val, err)
}
