package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/arloliu/cso/compress"
	"github.com/arloliu/cso/format"
	"github.com/arloliu/cso/internal/hash"
	"github.com/arloliu/cso/section"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cmdInspect = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the header and index summary of a CSO container",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var flagInspect = struct {
	Verify bool
	Codec  string
}{}

func init() {
	cmdInspect.Flags().BoolVar(&flagInspect.Verify, "verify", false, "Decode every sector and print the digest of the decoded image")
	cmdInspect.Flags().StringVarP(&flagInspect.Codec, "codec", "c", format.CompressionDeflate.String(), "Codec the compressed sectors were written with")
}

func runInspect(c *cobra.Command, args []string) error {
	var codec compress.Codec
	if flagInspect.Verify {
		ct, ok := format.ParseCompressionType(flagInspect.Codec)
		if !ok {
			return fmt.Errorf("unknown codec %q", flagInspect.Codec)
		}

		var err error
		if codec, err = compress.GetCodec(ct); err != nil {
			return err
		}
	}

	info, err := inspect(args[0], codec)
	if err != nil {
		return err
	}

	info.print(c.OutOrStdout())

	return nil
}

type inspection struct {
	header     section.Header
	fileSize   int64
	dataStart  int64
	dataEnd    int64
	compressed int
	digest     *hash.Digest
}

func (i *inspection) print(w io.Writer) {
	h := i.header
	fmt.Fprintf(w, "magic:        %s (version %d)\n", h.Magic[:], h.Version)
	fmt.Fprintf(w, "source size:  %s (%s sectors of %d bytes)\n", humanize.IBytes(uint64(h.UncompressedSize)), humanize.Comma(int64(h.SectorCount())), h.SectorSize) //nolint: gosec
	fmt.Fprintf(w, "index shift:  %d (align %d)\n", h.IndexShift, 1<<h.IndexShift)
	fmt.Fprintf(w, "file size:    %s\n", humanize.IBytes(uint64(i.fileSize))) //nolint: gosec
	fmt.Fprintf(w, "data:         [%d, %d)\n", i.dataStart, i.dataEnd)
	fmt.Fprintf(w, "compressed:   %s of %s sectors\n", humanize.Comma(int64(i.compressed)), humanize.Comma(int64(h.SectorCount())))
	if i.digest != nil {
		fmt.Fprintf(w, "xxh64:        %s\n", i.digest)
	}
}

// inspect reads the header and index of the container at path and checks that
// the index describes a consistent layout. With a non-nil codec every sector is
// also decoded and the decoded image digested.
func inspect(path string, codec compress.Codec) (*inspection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, section.HeaderSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	header, err := section.ParseHeader(hdr)
	if err != nil {
		return nil, err
	}

	n := header.SectorCount()
	raw := make([]byte, (n+1)*section.IndexEntrySize)
	if _, err := f.ReadAt(raw, section.IndexOffsetOffset); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	index, err := section.ParseIndex(raw, n+1)
	if err != nil {
		return nil, err
	}

	shift := header.IndexShift
	info := &inspection{
		header:    header,
		fileSize:  st.Size(),
		dataStart: index[0].Offset(shift),
		dataEnd:   index[n].Offset(shift),
	}

	for i := range n {
		start, end := index[i].Offset(shift), index[i+1].Offset(shift)
		if end <= start {
			return nil, fmt.Errorf("index entry %d: offset %d does not precede %d", i, start, end)
		}
		if !index[i].Uncompressed() {
			info.compressed++
		}
	}

	if info.dataEnd > info.fileSize {
		return nil, fmt.Errorf("index ends at %d past end of file %d", info.dataEnd, info.fileSize)
	}

	if codec != nil {
		if info.digest, err = decodeAll(f, index, shift, codec); err != nil {
			return nil, err
		}
	}

	return info, nil
}

// decodeAll decodes every sector in source order into a digest.
func decodeAll(f *os.File, index []section.IndexEntry, shift uint32, codec compress.Codec) (*hash.Digest, error) {
	d := hash.NewDigest()

	var stored, decoded []byte
	for i := range len(index) - 1 {
		start, end := index[i].Offset(shift), index[i+1].Offset(shift)

		size := end - start
		if index[i].Uncompressed() {
			size = section.SectorSize
		}

		stored = slices.Grow(stored[:0], int(size))[:size]
		if _, err := f.ReadAt(stored, start); err != nil {
			return nil, fmt.Errorf("read sector %d: %w", i, err)
		}

		if index[i].Uncompressed() {
			_, _ = d.Write(stored)
			continue
		}

		var err error
		decoded, err = codec.Decompress(decoded[:0], stored)
		if err != nil {
			return nil, fmt.Errorf("decode sector %d: %w", i, err)
		}
		if len(decoded) != section.SectorSize {
			return nil, fmt.Errorf("decode sector %d: got %d bytes", i, len(decoded))
		}
		_, _ = d.Write(decoded)
	}

	return d, nil
}
