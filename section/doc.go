// Package section defines the binary structures and layout planning of the CSO
// container format.
//
// This package owns the byte-level representation of a container: the fixed
// header, the 32-bit index entries and the Layout that decides where sector
// payloads go before any of them is written.
//
// # Container Structure
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Header (36 bytes, fixed)                                │
//	├─────────────────────────────────────────────────────────┤
//	│ Index ((N+1) × 4 bytes)                                 │
//	│  - one entry per source sector                          │
//	│  - entry N holds the end-of-data offset                 │
//	├─────────────────────────────────────────────────────────┤
//	│ Padding (0 to Align-1 bytes, zero filled)               │
//	├─────────────────────────────────────────────────────────┤
//	│ Sector payloads (variable)                              │
//	│  - compressed payload, or the raw 2048-byte sector      │
//	│  - each followed by zero padding up to Align            │
//	└─────────────────────────────────────────────────────────┘
//
// # Header Format
//
//	Bytes  | Field            | Type      | Description
//	-------|------------------|-----------|------------------------------
//	0-3    | Magic            | [4]byte   | "CISO"
//	4-7    | HeaderSize       | uint32    | 36
//	8-15   | UncompressedSize | int64     | source size in bytes
//	16-19  | SectorSize       | uint32    | 2048
//	20-23  | Version          | uint32    | 1
//	24-27  | IndexShift       | uint32    | see below
//	28-35  | Reserved         | [2]uint32 | zero
//
// All multi-byte fields are little-endian.
//
// # Index Entry Format
//
//	Bits   | Meaning
//	-------|------------------------------------------------------
//	0-30   | destination offset >> IndexShift
//	31     | set when the sector is stored raw (IndexUncompressed)
//
// The stored size of sector i is Offset(i+1) - Offset(i), padding included.
//
// # Index Shift
//
// Offsets must fit in 31 bits after the shift, so the shift is chosen up front
// from the worst case where nothing compresses:
//
//	worst = HeaderSize + 4*(N+1) + sourceSize
//	shift = (smallest i in [31, 62] with worst < 1<<i) - 31
//
// Every payload then starts on a multiple of Align = 1<<shift. A shift of 0
// covers sources just under 2 GiB; each increment doubles that.
//
// # Usage Examples
//
// Planning a container:
//
//	layout, err := section.NewLayout(size)
//	// layout.DataStart is where the first sector payload goes
//
// Encoding an index entry:
//
//	e := section.NewIndexEntry(dstPos, layout.IndexShift, compressed)
//
// Reading a container back:
//
//	header, err := section.ParseHeader(data)
//	index, err := section.ParseIndex(data[section.IndexOffsetOffset:], header.SectorCount()+1)
package section
