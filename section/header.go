package section

import (
	"fmt"

	"github.com/arloliu/cso/endian"
	"github.com/arloliu/cso/errs"
)

// Header represents the fixed-size header at the start of a CSO container.
//
// The header is written last, during finalization, over the placeholder region
// reserved for it when the session starts.
type Header struct {
	// Magic is the format tag, always "CISO".
	Magic [4]byte // byte offset 0-3
	// HeaderSize is the size of this record in bytes.
	HeaderSize uint32 // byte offset 4-7
	// UncompressedSize is the total size of the source image in bytes.
	UncompressedSize int64 // byte offset 8-15
	// SectorSize is the size of one source sector in bytes.
	SectorSize uint32 // byte offset 16-19
	// Version is the container format version.
	Version uint32 // byte offset 20-23
	// IndexShift is the number of bits index offsets are right-shifted by.
	IndexShift uint32 // byte offset 24-27
	// Reserved must be zero.
	Reserved [2]uint32 // byte offset 28-35
}

// NewHeader creates a Header describing a source of the given size whose index
// offsets are shifted by indexShift.
func NewHeader(uncompressedSize int64, indexShift uint32) *Header {
	h := &Header{
		HeaderSize:       HeaderSize,
		UncompressedSize: uncompressedSize,
		SectorSize:       SectorSize,
		Version:          Version,
		IndexShift:       indexShift,
	}
	copy(h.Magic[:], Magic)

	return h
}

// Bytes serializes the header into a new HeaderSize byte slice.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := endian.GetLittleEndianEngine()

	copy(b[0:4], h.Magic[:])
	engine.PutUint32(b[4:8], h.HeaderSize)
	engine.PutUint64(b[8:16], uint64(h.UncompressedSize)) //nolint: gosec
	engine.PutUint32(b[16:20], h.SectorSize)
	engine.PutUint32(b[20:24], h.Version)
	engine.PutUint32(b[24:28], h.IndexShift)
	engine.PutUint32(b[28:32], h.Reserved[0])
	engine.PutUint32(b[32:36], h.Reserved[1])

	return b
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the header (must be exactly HeaderSize bytes)
//
// Returns:
//   - error: ErrInvalidHeaderSize, ErrInvalidMagic, ErrInvalidVersion or ErrInvalidSectorSize
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	engine := endian.GetLittleEndianEngine()

	copy(h.Magic[:], data[0:4])
	h.HeaderSize = engine.Uint32(data[4:8])
	h.UncompressedSize = int64(engine.Uint64(data[8:16])) //nolint: gosec
	h.SectorSize = engine.Uint32(data[16:20])
	h.Version = engine.Uint32(data[20:24])
	h.IndexShift = engine.Uint32(data[24:28])
	h.Reserved[0] = engine.Uint32(data[28:32])
	h.Reserved[1] = engine.Uint32(data[32:36])

	return h.Validate()
}

// Validate checks that the header describes a container this package can produce.
func (h *Header) Validate() error {
	if string(h.Magic[:]) != Magic {
		return fmt.Errorf("%w: %q", errs.ErrInvalidMagic, h.Magic[:])
	}

	if h.HeaderSize != HeaderSize {
		return fmt.Errorf("%w: %d", errs.ErrInvalidHeaderSize, h.HeaderSize)
	}

	if h.Version != Version {
		return fmt.Errorf("%w: %d", errs.ErrInvalidVersion, h.Version)
	}

	if h.SectorSize != SectorSize {
		return fmt.Errorf("%w: %d", errs.ErrInvalidSectorSize, h.SectorSize)
	}

	return nil
}

// SectorCount returns the number of sectors the header describes.
func (h *Header) SectorCount() int {
	return int(h.UncompressedSize >> SectorShift)
}

// ParseHeader parses a Header from the start of a byte slice.
//
// Parameters:
//   - data: Byte slice containing the header (must be at least HeaderSize bytes)
//
// Returns:
//   - Header: Parsed header struct
//   - error: ErrInvalidHeaderSize or validation errors
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.ErrInvalidHeaderSize
	}

	h := Header{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}
