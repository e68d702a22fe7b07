package section

import "math"

// Sector geometry. The container only supports a single fixed sector size.
const (
	SectorShift = 11               // log2 of SectorSize
	SectorSize  = 1 << SectorShift // bytes per source sector
)

// Header fields and sizes.
const (
	Magic             = "CISO"     // format tag at byte offset 0
	Version           = 1          // format version written by this package
	HeaderSize        = 36         // fixed header size in bytes
	IndexEntrySize    = 4          // bytes per index entry
	IndexOffsetOffset = HeaderSize // byte offset where the index starts
)

// Index entry bit layout.
const (
	IndexUncompressed = 0x80000000    // set when the sector is stored raw
	IndexOffsetMask   = 0x7FFFFFFF    // shifted destination offset
	MaxIndexOffset    = math.MaxInt32 // largest representable shifted offset
)

// Shift bounds. Destination offsets are stored right-shifted so that the
// worst-case container size fits in 31 bits.
const (
	minShiftBits = 31
	maxShiftBits = 62
)
