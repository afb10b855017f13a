package ifd

import (
	"fmt"
)

// A FormatError reports that the input does not carry a valid IFD
// container header. It is the only fatal error class: everything past
// the header degrades to warnings.
type FormatError string

func (e FormatError) Error() string {
	return fmt.Sprintf("ifd: invalid format: %s", string(e))
}

// An UnsupportedError reports that the input uses a valid but
// unimplemented feature.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("ifd: unsupported feature: %s", string(e))
}

// An InternalError reports that an internal error was encountered.
type InternalError string

func (e InternalError) Error() string {
	return fmt.Sprintf("ifd: internal error: %s", string(e))
}

// A TruncatedError reports a read extending past the end of the source.
type TruncatedError struct {
	Offset int64 // absolute position of the attempted read
	Need   int64 // number of bytes requested
}

func (e TruncatedError) Error() string {
	return fmt.Sprintf("ifd: truncated data: %d bytes at offset %d run past the end of the source", e.Need, e.Offset)
}

// An InvalidDirectoryError reports a directory whose stated entry count
// cannot fit in the remaining source.
type InvalidDirectoryError struct {
	Offset int64  // absolute position of the entry count
	Count  uint64 // stated number of entries
}

func (e InvalidDirectoryError) Error() string {
	return fmt.Sprintf("ifd: invalid directory at offset %d: %d entries exceed the source", e.Offset, e.Count)
}

// An UnavailableError reports an entry whose value pointer falls outside
// the source. Sibling entries are unaffected.
type UnavailableError struct {
	Tag    uint16
	Offset int64 // absolute position the pointer resolved to
	Length int64
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("ifd: value unavailable for tag %d: %d bytes at offset %d outside the source", e.Tag, e.Length, e.Offset)
}

// A SuspectError reports a subdirectory whose value layout could not be
// reconciled with any base-offset correction. Its entries are resolved
// with the uncorrected base and kept.
type SuspectError struct {
	Group string
}

func (e SuspectError) Error() string {
	return fmt.Sprintf("ifd: suspect offsets in %s: no base correction reconciles the value layout", e.Group)
}

// A CycleError reports a directory pointer that loops back onto a
// directory already being parsed.
type CycleError struct {
	Offset int64
}

func (e CycleError) Error() string {
	return fmt.Sprintf("ifd: cyclic reference to directory at offset %d", e.Offset)
}

// A LimitError reports that a parsing limit stopped the walk early.
// The parse result up to that point remains valid.
type LimitError struct {
	Limit string // "depth", "chain", "directories" or "deadline"
}

func (e LimitError) Error() string {
	return fmt.Sprintf("ifd: %s limit reached, walk stopped early", e.Limit)
}

func formatname(f Format) string {
	switch f {
	case FormatByte:
		return "BYTE"
	case FormatASCII:
		return "ASCII"
	case FormatShort:
		return "SHORT"
	case FormatLong:
		return "LONG"
	case FormatRational:
		return "RATIONAL"
	case FormatSByte:
		return "SBYTE"
	case FormatUndefined:
		return "UNDEFINED"
	case FormatSShort:
		return "SSHORT"
	case FormatSLong:
		return "SLONG"
	case FormatSRational:
		return "SRATIONAL"
	case FormatFloat:
		return "FLOAT"
	case FormatDouble:
		return "DOUBLE"
	case FormatIFD:
		return "IFD"
	case FormatLong8:
		return "LONG8"
	case FormatSLong8:
		return "SLONG8"
	case FormatIFD8:
		return "IFD8"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(f))
	}
}
