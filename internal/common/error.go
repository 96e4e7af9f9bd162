package common

import (
	"fmt"
	"strings"

	"satarecon/internal/sata"
)

// Error represents the library error object.
// Seq and Tag locate the error in the captured stream when known.
type Error struct {
	Code    sata.Err
	Sev     sata.ErrSeverity
	Seq     int32
	Tag     uint8
	Message string
}

// NoSeq marks an error not tied to a captured frame.
const NoSeq int32 = -1

// Sentinel errors for use with errors.Is. Matching is by code only.
var (
	ErrSequenceGap     = &Error{Code: sata.ErrSequenceGap}
	ErrUnexpectedFrame = &Error{Code: sata.ErrUnexpectedFrame}
	ErrNCQAbort        = &Error{Code: sata.ErrNCQAbort}
	ErrTagCollision    = &Error{Code: sata.ErrTagCollision}
	ErrLegacyOverlap   = &Error{Code: sata.ErrLegacyOverlap}
	ErrOrphanData      = &Error{Code: sata.ErrOrphanData}
	ErrShortFrame      = &Error{Code: sata.ErrShortFrame}
	ErrUnknownFISType  = &Error{Code: sata.ErrUnknownFISType}
	ErrBadRecord       = &Error{Code: sata.ErrBadRecord}
	ErrInvalidParamVal = &Error{Code: sata.ErrInvalidParamVal}
)

func NewError(sev sata.ErrSeverity, code sata.Err) *Error {
	return &Error{
		Code: code,
		Sev:  sev,
		Seq:  NoSeq,
		Tag:  sata.BadTag,
	}
}

func NewErrorMsg(sev sata.ErrSeverity, code sata.Err, msg string) *Error {
	return &Error{
		Code:    code,
		Sev:     sev,
		Seq:     NoSeq,
		Tag:     sata.BadTag,
		Message: msg,
	}
}

func NewErrorWithSeqMsg(sev sata.ErrSeverity, code sata.Err, seq sata.SeqNum, msg string) *Error {
	return &Error{
		Code:    code,
		Sev:     sev,
		Seq:     int32(seq),
		Tag:     sata.BadTag,
		Message: msg,
	}
}

func NewErrorWithSeqTagMsg(sev sata.ErrSeverity, code sata.Err, seq sata.SeqNum, tag uint8, msg string) *Error {
	return &Error{
		Code:    code,
		Sev:     sev,
		Seq:     int32(seq),
		Tag:     tag,
		Message: msg,
	}
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	switch e.Sev {
	case sata.ErrSevError:
		sb.WriteString("ERROR:")
	case sata.ErrSevWarn:
		sb.WriteString("WARN :")
	case sata.ErrSevInfo:
		sb.WriteString("INFO :")
	case sata.ErrSevDebug:
		sb.WriteString("DEBUG:")
	default:
		return "LIBRARY INTERNAL ERROR: Invalid Error Object"
	}

	sb.WriteString(fmt.Sprintf("0x%04x ", e.Code))

	if desc, ok := errorCodeDesc[e.Code]; ok {
		sb.WriteString(fmt.Sprintf("(%s) [%s]; ", desc.name, desc.msg))
	} else {
		sb.WriteString("(unknown); ")
	}

	if e.Seq != NoSeq {
		sb.WriteString(fmt.Sprintf("Seq=%d; ", e.Seq))
	}

	if sata.IsValidTag(e.Tag) {
		sb.WriteString(fmt.Sprintf("Tag=%d; ", e.Tag))
	}

	sb.WriteString(e.Message)
	return sb.String()
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeName returns the symbolic name of an error code.
func CodeName(code sata.Err) string {
	if desc, ok := errorCodeDesc[code]; ok {
		return desc.name
	}
	return "SATA_ERR_UNKNOWN"
}

type errDesc struct {
	name string
	msg  string
}

var errorCodeDesc = map[sata.Err]errDesc{
	sata.OK:                     {"SATA_OK", "No Error."},
	sata.ErrFail:                {"SATA_ERR_FAIL", "General failure."},
	sata.ErrInvalidParamVal:     {"SATA_ERR_INVALID_PARAM_VAL", "Invalid value parameter passed to component."},
	sata.ErrNotInit:             {"SATA_ERR_NOT_INIT", "Component not initialised."},
	sata.ErrFileError:           {"SATA_ERR_FILE_ERROR", "File access error"},
	sata.ErrShortFrame:          {"SATA_ERR_SHORT_FRAME", "Frame shorter than its FIS layout."},
	sata.ErrUnknownFISType:      {"SATA_ERR_UNKNOWN_FIS_TYPE", "Unknown FIS type byte."},
	sata.ErrBadRecord:           {"SATA_ERR_BAD_RECORD", "Malformed or truncated capture record."},
	sata.ErrSequenceGap:         {"SATA_ERR_SEQUENCE_GAP", "Non-contiguous frame sequence number."},
	sata.ErrUnexpectedFrame:     {"SATA_ERR_UNEXPECTED_FRAME", "Frame kind illegal in current state."},
	sata.ErrNCQAbort:            {"SATA_ERR_NCQ_ABORT", "Device reported error - queued commands aborted."},
	sata.ErrTagCollision:        {"SATA_ERR_TAG_COLLISION", "Queued command issued on an occupied tag."},
	sata.ErrLegacyOverlap:       {"SATA_ERR_LEGACY_OVERLAP", "Legacy command issued while another is outstanding."},
	sata.ErrOrphanData:          {"SATA_ERR_ORPHAN_DATA", "Data for a tag with no outstanding command."},
	sata.ErrIncompleteDiscarded: {"SATA_ERR_INCOMPLETE_DISCARDED", "Incomplete transaction discarded."},
}
