package cso

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/arloliu/cso/compress"
	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/format"
	"github.com/arloliu/cso/section"
	"github.com/stretchr/testify/require"
)

func testImage(sectors int) []byte {
	r := rand.New(rand.NewPCG(9, 9)) //nolint: gosec
	img := make([]byte, sectors*section.SectorSize)
	for i := range sectors {
		sec := img[i*section.SectorSize : (i+1)*section.SectorSize]
		switch i % 4 {
		case 1:
			copy(sec, bytes.Repeat([]byte{0xAB, 0xCD}, section.SectorSize/2))
		case 3:
			for j := range sec {
				sec[j] = byte(r.Uint32())
			}
		}
	}

	return img
}

func createOutput(t *testing.T) *os.File {
	t.Helper()

	f, err := os.Create(filepath.Join(t.TempDir(), "out.cso"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}

// readBack decodes every sector of the container in f.
func readBack(t *testing.T, f *os.File, codec compress.Codec) ([]byte, []section.IndexEntry) {
	t.Helper()

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)

	header, err := section.ParseHeader(data)
	require.NoError(t, err)

	n := header.SectorCount()
	index, err := section.ParseIndex(data[section.IndexOffsetOffset:], n+1)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), index[n].Offset(header.IndexShift))

	img := make([]byte, 0, n*section.SectorSize)
	for i := range n {
		start, end := index[i].Offset(header.IndexShift), index[i+1].Offset(header.IndexShift)
		if index[i].Uncompressed() {
			img = append(img, data[start:start+section.SectorSize]...)
			continue
		}

		img, err = codec.Decompress(img, data[start:end])
		require.NoError(t, err)
	}

	return img, index
}

func TestConvert(t *testing.T) {
	for _, ct := range []format.CompressionType{format.CompressionDeflate, format.CompressionLZ4} {
		t.Run(ct.String(), func(t *testing.T) {
			img := testImage(41)
			dst := createOutput(t)

			var progress []float64
			var hashed bytes.Buffer
			stats, err := Convert(context.Background(), bytes.NewReader(img), int64(len(img)), dst,
				WithCodec(ct),
				WithPoolSize(4),
				WithMaxBatch(2),
				WithConcurrency(3),
				WithProgress(func(f float64) { progress = append(progress, f) }),
				WithSourceHash(&hashed),
			)
			require.NoError(t, err)
			require.Equal(t, 41, stats.Sectors)
			require.Equal(t, 31, stats.CompressedSectors)
			require.LessOrEqual(t, stats.MaxReorderDepth, 4)
			require.Equal(t, img, hashed.Bytes())

			require.NotEmpty(t, progress)
			require.IsIncreasing(t, progress)
			require.Equal(t, 1.0, progress[len(progress)-1])

			codec, err := compress.GetCodec(ct)
			require.NoError(t, err)
			got, index := readBack(t, dst, codec)
			require.Equal(t, img, got)

			for i := range 41 {
				require.Equal(t, i%4 == 3, index[i].Uncompressed(), "entry %d", i)
			}
		})
	}
}

func TestConvert_Raw(t *testing.T) {
	img := testImage(8)
	dst := createOutput(t)

	stats, err := Convert(context.Background(), bytes.NewReader(img), int64(len(img)), dst, WithCodec(format.CompressionNone))
	require.NoError(t, err)
	require.Zero(t, stats.CompressedSectors)
	require.Equal(t, int64(len(img)), stats.DataBytes)

	got, index := readBack(t, dst, compress.NewNoOpCompressor())
	require.Equal(t, img, got)
	for _, e := range index[:8] {
		require.True(t, e.Uncompressed())
	}
}

func TestConvert_Empty(t *testing.T) {
	dst := createOutput(t)

	stats, err := Convert(context.Background(), bytes.NewReader(nil), 0, dst)
	require.NoError(t, err)
	require.Zero(t, stats.Sectors)

	got, index := readBack(t, dst, compress.NewNoOpCompressor())
	require.Empty(t, got)
	require.Len(t, index, 1)
}

func TestConvert_InvalidOptions(t *testing.T) {
	dst := createOutput(t)
	src := bytes.NewReader(nil)

	_, err := Convert(context.Background(), src, 0, dst, WithCodec(format.CompressionType(0x9)))
	require.ErrorIs(t, err, errs.ErrInvalidCompression)

	_, err = Convert(context.Background(), src, 0, dst, WithPoolSize(0))
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	_, err = Convert(context.Background(), src, 0, dst, WithMaxBatch(0))
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	_, err = Convert(context.Background(), src, 0, dst, WithConcurrency(-1))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestConvert_BadSource(t *testing.T) {
	img := testImage(4)

	_, err := Convert(context.Background(), bytes.NewReader(img), int64(len(img))-10, createOutput(t))
	require.ErrorIs(t, err, errs.ErrUnalignedSourceSize)

	_, err = Convert(context.Background(), bytes.NewReader(img[:len(img)-10]), int64(len(img)), createOutput(t))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
