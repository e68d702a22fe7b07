package output

import (
	"fmt"

	"github.com/arloliu/cso/errs"
	"github.com/arloliu/cso/internal/options"
	"github.com/rs/zerolog"
)

// Defaults for a conversion session.
const (
	DefaultPoolSize = 128 // sectors in flight
	DefaultMaxBatch = 4   // sectors per write
)

type config struct {
	poolSize int
	maxBatch int
	logger   zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		poolSize: DefaultPoolSize,
		maxBatch: DefaultMaxBatch,
		logger:   zerolog.Nop(),
	}
}

// Option configures an Output.
type Option = options.Option[*config]

// WithPoolSize sets the number of sectors allocated for the session. It bounds
// both memory and how far the reader may run ahead of the write cursor.
func WithPoolSize(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: pool size %d", errs.ErrInvalidOption, n)
		}
		c.poolSize = n

		return nil
	})
}

// WithMaxBatch sets the maximum number of contiguous sectors merged into one write.
func WithMaxBatch(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: max batch %d", errs.ErrInvalidOption, n)
		}
		c.maxBatch = n

		return nil
	})
}

// WithLogger sets the logger. Batches are logged at debug level, the failure
// that ends a session at error level.
func WithLogger(logger zerolog.Logger) Option {
	return options.NoError(func(c *config) {
		c.logger = logger
	})
}
