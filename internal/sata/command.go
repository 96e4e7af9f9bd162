package sata

import "fmt"

// Command is an ATA command opcode as carried in the Register H2D command field.
type Command uint8

// Command values recognized by the reconstruction engine.
const (
	CmdReadSectors      Command = 0x20
	CmdReadSectorsExt   Command = 0x24
	CmdReadDMAExt       Command = 0x25
	CmdReadMultipleExt  Command = 0x29
	CmdWriteSectors     Command = 0x30
	CmdWriteSectorsExt  Command = 0x34
	CmdWriteDMAExt      Command = 0x35
	CmdWriteMultipleExt Command = 0x39
	CmdReadFPDMAQueued  Command = 0x60
	CmdWriteFPDMAQueued Command = 0x61
	CmdNCQNonData       Command = 0x63
	CmdSendFPDMAQueued  Command = 0x64
	CmdRecvFPDMAQueued  Command = 0x65
	CmdReadMultiple     Command = 0xC4
	CmdWriteMultiple    Command = 0xC5
	CmdReadDMA          Command = 0xC8
	CmdWriteDMA         Command = 0xCA
	CmdCheckPower       Command = 0xE5
	CmdFlushCache       Command = 0xE7
	CmdFlushCacheExt    Command = 0xEA
	CmdIdentify         Command = 0xEC
	CmdSetFeatures      Command = 0xEF
)

// CmdClass groups commands by how the engine tracks them.
type CmdClass uint8

const (
	ClassLegacy      CmdClass = iota // non-queued, single outstanding
	ClassNCQ                         // first-party DMA queued, one per tag
	ClassNCQQueueMgt                 // queued but creates no data transaction
)

// CmdInfo describes an opcode.
type CmdInfo struct {
	Name  string
	Class CmdClass
	Dir   XferDir
	LBA48 bool
}

// IsData returns true if the command moves sector data.
func (ci CmdInfo) IsData() bool {
	return ci.Dir != XferNone
}

var cmdTable = map[Command]CmdInfo{
	CmdReadSectors:      {"READ SECTORS", ClassLegacy, XferRead, false},
	CmdReadSectorsExt:   {"READ SECTORS EXT", ClassLegacy, XferRead, true},
	CmdReadDMAExt:       {"READ DMA EXT", ClassLegacy, XferRead, true},
	CmdReadMultipleExt:  {"READ MULTIPLE EXT", ClassLegacy, XferRead, true},
	CmdWriteSectors:     {"WRITE SECTORS", ClassLegacy, XferWrite, false},
	CmdWriteSectorsExt:  {"WRITE SECTORS EXT", ClassLegacy, XferWrite, true},
	CmdWriteDMAExt:      {"WRITE DMA EXT", ClassLegacy, XferWrite, true},
	CmdWriteMultipleExt: {"WRITE MULTIPLE EXT", ClassLegacy, XferWrite, true},
	CmdReadFPDMAQueued:  {"READ FPDMA QUEUED", ClassNCQ, XferRead, true},
	CmdWriteFPDMAQueued: {"WRITE FPDMA QUEUED", ClassNCQ, XferWrite, true},
	CmdNCQNonData:       {"NCQ NON-DATA", ClassNCQQueueMgt, XferNone, true},
	CmdSendFPDMAQueued:  {"SEND FPDMA QUEUED", ClassNCQQueueMgt, XferNone, true},
	CmdRecvFPDMAQueued:  {"RECEIVE FPDMA QUEUED", ClassNCQQueueMgt, XferNone, true},
	CmdReadMultiple:     {"READ MULTIPLE", ClassLegacy, XferRead, false},
	CmdWriteMultiple:    {"WRITE MULTIPLE", ClassLegacy, XferWrite, false},
	CmdReadDMA:          {"READ DMA", ClassLegacy, XferRead, false},
	CmdWriteDMA:         {"WRITE DMA", ClassLegacy, XferWrite, false},
	CmdCheckPower:       {"CHECK POWER MODE", ClassLegacy, XferNone, false},
	CmdFlushCache:       {"FLUSH CACHE", ClassLegacy, XferNone, false},
	CmdFlushCacheExt:    {"FLUSH CACHE EXT", ClassLegacy, XferNone, true},
	CmdIdentify:         {"IDENTIFY DEVICE", ClassLegacy, XferNone, false},
	CmdSetFeatures:      {"SET FEATURES", ClassLegacy, XferNone, false},
}

// Info looks up the opcode. Unknown opcodes are legacy commands with no
// sector data.
func (c Command) Info() CmdInfo {
	if ci, ok := cmdTable[c]; ok {
		return ci
	}
	return CmdInfo{Name: fmt.Sprintf("CMD 0x%02X", uint8(c)), Class: ClassLegacy, Dir: XferNone}
}

// IsNCQ returns true for the FPDMA queued data commands.
func (c Command) IsNCQ() bool {
	return c.Info().Class == ClassNCQ
}

// IsQueueMgt returns true for queued commands that carry no sector data.
func (c Command) IsQueueMgt() bool {
	return c.Info().Class == ClassNCQQueueMgt
}

func (c Command) String() string {
	return c.Info().Name
}
