package section

import (
	"testing"

	"github.com/arloliu/cso/errs"
	"github.com/stretchr/testify/require"
)

func TestNewHeader(t *testing.T) {
	header := NewHeader(4*SectorSize, 2)

	require.NotNil(t, header)
	require.Equal(t, Magic, string(header.Magic[:]))
	require.Equal(t, uint32(HeaderSize), header.HeaderSize)
	require.Equal(t, int64(4*SectorSize), header.UncompressedSize)
	require.Equal(t, uint32(SectorSize), header.SectorSize)
	require.Equal(t, uint32(Version), header.Version)
	require.Equal(t, uint32(2), header.IndexShift)
	require.Equal(t, [2]uint32{}, header.Reserved)
	require.Equal(t, 4, header.SectorCount())
}

func TestHeader_Bytes(t *testing.T) {
	header := NewHeader(0x0102030405060708, 3)
	data := header.Bytes()

	require.Len(t, data, HeaderSize)
	require.Equal(t, []byte("CISO"), data[0:4])
	require.Equal(t, []byte{36, 0, 0, 0}, data[4:8])
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, data[8:16])
	require.Equal(t, []byte{0x00, 0x08, 0, 0}, data[16:20])
	require.Equal(t, []byte{1, 0, 0, 0}, data[20:24])
	require.Equal(t, []byte{3, 0, 0, 0}, data[24:28])
	require.Equal(t, make([]byte, 8), data[28:36])
}

func TestHeader_Parse(t *testing.T) {
	t.Run("Valid header", func(t *testing.T) {
		original := NewHeader(1<<33, 5)

		parsed := &Header{}
		err := parsed.Parse(original.Bytes())

		require.NoError(t, err)
		require.Equal(t, *original, *parsed)
	})

	t.Run("Invalid size", func(t *testing.T) {
		header := &Header{}
		err := header.Parse([]byte{1, 2, 3})

		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Invalid magic", func(t *testing.T) {
		data := NewHeader(SectorSize, 0).Bytes()
		copy(data[0:4], "ZISO")

		err := (&Header{}).Parse(data)
		require.ErrorIs(t, err, errs.ErrInvalidMagic)
	})

	t.Run("Invalid version", func(t *testing.T) {
		h := NewHeader(SectorSize, 0)
		h.Version = 2

		err := (&Header{}).Parse(h.Bytes())
		require.ErrorIs(t, err, errs.ErrInvalidVersion)
	})

	t.Run("Invalid sector size", func(t *testing.T) {
		h := NewHeader(SectorSize, 0)
		h.SectorSize = 4096

		err := (&Header{}).Parse(h.Bytes())
		require.ErrorIs(t, err, errs.ErrInvalidSectorSize)
	})
}

func TestParseHeader(t *testing.T) {
	original := NewHeader(8*SectorSize, 0)
	data := append(original.Bytes(), 0xAA, 0xBB)

	h, err := ParseHeader(data)
	require.NoError(t, err)
	require.Equal(t, *original, h)

	_, err = ParseHeader(data[:HeaderSize-1])
	require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
}
