package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arloliu/cso"
	"github.com/arloliu/cso/format"
	"github.com/arloliu/cso/internal/hash"
	"github.com/arloliu/cso/output"
	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
	"github.com/rs/zerolog"
)

type convertConfig struct {
	codec       format.CompressionType
	poolSize    int
	maxBatch    int
	concurrency int
	digest      bool
	log         zerolog.Logger
}

type convertResult struct {
	input      string
	output     string
	sourceSize int64
	outputSize int64
	stats      output.Stats
	digest     *hash.Digest
	elapsed    time.Duration
}

func (r *convertResult) print(w io.Writer) {
	ratio := 0.0
	if r.sourceSize > 0 {
		ratio = float64(r.outputSize) / float64(r.sourceSize) * 100
	}

	fmt.Fprintf(w, "%s -> %s\n", r.input, r.output)
	fmt.Fprintf(w, "  size:       %s -> %s (%.1f%%)\n", humanize.IBytes(uint64(r.sourceSize)), humanize.IBytes(uint64(r.outputSize)), ratio) //nolint: gosec
	fmt.Fprintf(w, "  sectors:    %s (%s compressed)\n", humanize.Comma(int64(r.stats.Sectors)), humanize.Comma(int64(r.stats.CompressedSectors)))
	fmt.Fprintf(w, "  writes:     %s (reorder depth %d)\n", humanize.Comma(int64(r.stats.Batches)), r.stats.MaxReorderDepth)
	fmt.Fprintf(w, "  elapsed:    %s\n", r.elapsed.Round(time.Millisecond))
	if r.digest != nil {
		fmt.Fprintf(w, "  xxh64:      %s\n", r.digest)
	}
}

// convert maps the image at inputPath read-only and compresses it into a
// container at outputPath.
func convert(ctx context.Context, inputPath, outputPath string, cfg convertConfig) (*convertResult, error) {
	start := time.Now()

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()

	// Zero-length files cannot be mapped.
	var data mmap.MMap
	if size > 0 {
		data, err = mmap.Map(in, mmap.RDONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", inputPath, err)
		}
		defer data.Unmap() //nolint: errcheck
	}

	out, err := os.OpenFile(outputPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	reported := 0
	opts := []cso.Option{
		cso.WithCodec(cfg.codec),
		cso.WithPoolSize(cfg.poolSize),
		cso.WithMaxBatch(cfg.maxBatch),
		cso.WithConcurrency(cfg.concurrency),
		cso.WithLogger(cfg.log),
		cso.WithProgress(func(fraction float64) {
			if step := int(fraction * 10); step > reported {
				reported = step
				cfg.log.Info().Msgf("%3d%% done", step*10)
			}
		}),
	}

	var digest *hash.Digest
	if cfg.digest {
		digest = hash.NewDigest()
		opts = append(opts, cso.WithSourceHash(digest))
	}

	stats, err := cso.Convert(ctx, bytes.NewReader(data), size, out, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputPath, err)
	}

	if err := out.Sync(); err != nil {
		return nil, err
	}

	end, err := out.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	cfg.log.Debug().
		Int64("source_size", size).
		Int64("output_size", end).
		Int("sectors", stats.Sectors).
		Msg("conversion finished")

	return &convertResult{
		input:      inputPath,
		output:     outputPath,
		sourceSize: size,
		outputSize: end,
		stats:      stats,
		digest:     digest,
		elapsed:    time.Since(start),
	}, nil
}
