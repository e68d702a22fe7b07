// Command csopack converts a raw sector image into a CSO container.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arloliu/cso/format"
	"github.com/arloliu/cso/output"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cmd = &cobra.Command{
	Use:   "csopack [flags] <input> <output>",
	Short: "Compress a 2048-byte sector image into a CSO container",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

var flag = struct {
	Codec       string
	PoolSize    int
	Batch       int
	Concurrency int
	Digest      bool
	LogLevel    string
}{}

func init() {
	cmd.Flags().StringVarP(&flag.Codec, "codec", "c", format.CompressionDeflate.String(), "Sector codec: deflate, lz4 or none")
	cmd.Flags().IntVar(&flag.PoolSize, "pool-size", output.DefaultPoolSize, "Number of sectors in flight")
	cmd.Flags().IntVar(&flag.Batch, "batch", output.DefaultMaxBatch, "Maximum number of sectors per write")
	cmd.Flags().IntVarP(&flag.Concurrency, "concurrency", "j", 0, "Concurrent compressions (0 means GOMAXPROCS)")
	cmd.Flags().BoolVar(&flag.Digest, "digest", false, "Print the xxHash64 digest of the source image")
	cmd.PersistentFlags().StringVarP(&flag.LogLevel, "log-level", "l", "info", "Set the logging level")

	cmd.AddCommand(cmdInspect)
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to parse log level: %w", err)
	}

	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			if ll, ok := i.(string); ok {
				return strings.ToUpper(ll)
			}
			return "????"
		},
	}

	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}

func runConvert(c *cobra.Command, args []string) error {
	log, err := newLogger(flag.LogLevel)
	if err != nil {
		return err
	}

	codec, ok := format.ParseCompressionType(flag.Codec)
	if !ok {
		return fmt.Errorf("unknown codec %q", flag.Codec)
	}

	cfg := convertConfig{
		codec:       codec,
		poolSize:    flag.PoolSize,
		maxBatch:    flag.Batch,
		concurrency: flag.Concurrency,
		digest:      flag.Digest,
		log:         log,
	}

	res, err := convert(c.Context(), args[0], args[1], cfg)
	if err != nil {
		return err
	}

	res.print(c.OutOrStdout())

	return nil
}
