package section

import (
	"github.com/arloliu/cso/endian"
	"github.com/arloliu/cso/errs"
)

// IndexEntry is one 32-bit slot of the container index.
//
// Bits 0-30 hold the destination offset of the sector right-shifted by the
// header's IndexShift. Bit 31 is set when the sector payload is stored raw.
// The final entry of an index holds the end-of-data offset, so the stored size
// of sector i is Offset(i+1) - Offset(i), including any alignment padding.
type IndexEntry uint32

// NewIndexEntry encodes a destination offset and compression state.
//
// dstPos must be a multiple of 1<<shift; the low bits are discarded.
func NewIndexEntry(dstPos int64, shift uint32, compressed bool) IndexEntry {
	e := IndexEntry(uint32(dstPos>>shift) & IndexOffsetMask) //nolint: gosec
	if !compressed {
		e |= IndexUncompressed
	}

	return e
}

// Offset returns the absolute destination offset encoded in the entry.
func (e IndexEntry) Offset(shift uint32) int64 {
	return int64(e&IndexOffsetMask) << shift
}

// Uncompressed reports whether the sector payload is stored raw.
func (e IndexEntry) Uncompressed() bool {
	return e&IndexUncompressed != 0
}

// AppendIndex appends the little-endian encoding of index to b.
func AppendIndex(b []byte, index []uint32) []byte {
	engine := endian.GetLittleEndianEngine()
	for _, e := range index {
		b = engine.AppendUint32(b, e)
	}

	return b
}

// IndexBytes returns the little-endian encoding of index.
func IndexBytes(index []uint32) []byte {
	return AppendIndex(make([]byte, 0, len(index)*IndexEntrySize), index)
}

// ParseIndex parses count index entries from data.
//
// Returns:
//   - []IndexEntry: Parsed entries
//   - error: ErrInvalidIndexEntrySize if data is shorter than count entries
func ParseIndex(data []byte, count int) ([]IndexEntry, error) {
	if count < 0 || len(data) < count*IndexEntrySize {
		return nil, errs.ErrInvalidIndexEntrySize
	}

	engine := endian.GetLittleEndianEngine()
	entries := make([]IndexEntry, count)
	for i := range entries {
		entries[i] = IndexEntry(engine.Uint32(data[i*IndexEntrySize:]))
	}

	return entries, nil
}
