package ifd

// An IFD-style metadata block contains one or more directories. Each
// directory is an entry count followed by fixed-size entries and a
// pointer to the next directory (p. 13-16 of the TIFF 6.0 specification).
// An entry consists of
//
//  - a tag, which describes the signification of the entry,
//  - the format and count of the entry's value,
//  - the value itself or a pointer to it if it does not fit the field.
//
// Maker notes reuse this layout with manufacturer-specific headers and,
// frequently, value pointers computed against the wrong origin. The
// constants below cover the structural subset this package needs; tag
// semantics beyond structure belong to the caller.

const (
	leHeader = "II\x2A\x00" // Header for little-endian files.
	beHeader = "MM\x00\x2A" // Header for big-endian files.

	leHeaderBig = "II\x2B\x00" // Header for little-endian BigTIFF files.
	beHeaderBig = "MM\x00\x2B" // Header for big-endian BigTIFF files.

	ifdLen  = 12 // Length of a classic IFD entry in bytes.
	ifdLen8 = 20 // Length of a BigTIFF IFD entry in bytes.
)

// Format identifies the wire encoding of an entry's value
// (p. 14-16 of the TIFF 6.0 spec; 16-18 from the BigTIFF design).
// Unknown codes are carried through unchanged so that future or
// vendor-private formats survive a parse.
type Format uint16

const (
	FormatByte      Format = 1
	FormatASCII     Format = 2
	FormatShort     Format = 3
	FormatLong      Format = 4
	FormatRational  Format = 5
	FormatSByte     Format = 6
	FormatUndefined Format = 7
	FormatSShort    Format = 8
	FormatSLong     Format = 9
	FormatSRational Format = 10
	FormatFloat     Format = 11
	FormatDouble    Format = 12
	FormatIFD       Format = 13

	FormatLong8  Format = 16
	FormatSLong8 Format = 17
	FormatIFD8   Format = 18
)

// The length of one instance of each format in bytes.
// Zero marks the gaps and means the size is unknown.
var formatSizes = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8, 4, 0, 0, 8, 8, 8}

// Size returns the byte width of one value of the format, or 0 when the
// format code is unknown.
func (f Format) Size() uint32 {
	if int(f) < len(formatSizes) {
		return formatSizes[f]
	}
	return 0
}

// String implements Stringer.
func (f Format) String() string {
	return formatname(f)
}

// Tags with structural meaning to the walk (see p. 28-41 of the TIFF 6.0
// spec and the EXIF 2.32 tag tables). Every other tag passes through as
// plain data.
const (
	tImageWidth  = 256
	tImageLength = 257

	tMake        = 271
	tModel       = 272
	tOrientation = 274

	tSubIFDs = 330

	tJPEGInterchangeFormat       = 513
	tJPEGInterchangeFormatLength = 514

	tExifIFD    = 34665
	tGPSIFD     = 34853
	tInteropIFD = 40965

	tMakerNote = 37500
)

// Group path segments for the standard subdirectories. Top-level
// directories are named IFD0, IFD1, ... and children append to their
// parent's path, e.g. IFD0/Exif/MakerNote.
const (
	groupIFD       = "IFD"
	groupExif      = "Exif"
	groupGPS       = "GPS"
	groupInterop   = "Interop"
	groupMakerNote = "MakerNote"
	groupSubIFD    = "SubIFD"
)

// Default parsing limits, applied when Options leaves them zero.
const (
	DefaultMaxEntries = 4096 // entries per directory
	DefaultMaxDepth   = 10   // subdirectory nesting
	DefaultMaxChain   = 256  // top-level directories in one chain
)

// offsetBehavior states how much a maker note's declared value offsets
// can be trusted once its strategy has chosen a base.
type offsetBehavior int

const (
	offsetFixed offsetBehavior = iota // anchor known, no reconciliation needed
	offsetAuto                        // anchor uncertain, reconcile from the layout
)
