// Package buffer implements the block-paged, write-back file buffer that
// sits between the engine and an arbitrary seekable byte stream, cutting
// I/O into fixed-size blocks and caching them with an LRU eviction policy.
package buffer

import (
	"log/slog"

	"github.com/ttocsneb/mbon/errs"
	"github.com/ttocsneb/mbon/internal/options"
)

const (
	defaultBlockSize = 512
	defaultMaxCache  = 1 << 30 // 1 GiB
)

// Config builds a FileBuffer via the functional-options idiom.
type Config struct {
	blockSize   uint64
	maxBlocks   int
	idealBlocks int

	maxBlocksSet   bool
	idealBlocksSet bool

	logger *slog.Logger
}

// Option configures a Config.
type Option = options.Option[*Config]

// NewConfig builds a Config from opts, applying defaults for anything the
// caller didn't set. max_blocks/max_cache are mutually exclusive; if
// neither is given, max_cache defaults to 1 GiB's worth of blocks.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{blockSize: defaultBlockSize}

	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	if !c.maxBlocksSet {
		c.maxBlocks = int(defaultMaxCache / c.blockSize)
	}
	if !c.idealBlocksSet {
		c.idealBlocks = idealFromMax(c.maxBlocks, c.blockSize)
	}
	if c.idealBlocks >= c.maxBlocks {
		return nil, errs.Internal("buffer: ideal_blocks must be less than max_blocks")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// idealFromMax picks a low-water mark below max: try shrinking by 1 MiB
// worth of blocks, falling back to 1 KiB worth and then max/5, whichever
// of those is the first that doesn't itself exceed max.
func idealFromMax(max int, blockSize uint64) int {
	headroom := int(1_048_576 / blockSize)
	if headroom > max {
		headroom = int(1024 / blockSize)
	}
	if headroom > max {
		headroom = max / 5
	}

	ideal := max - headroom
	if ideal < 1 {
		ideal = 1
	}
	if ideal >= max {
		ideal = max - 1
	}
	return ideal
}

// WithBlockSize sets the fixed block size in bytes.
func WithBlockSize(n uint64) Option {
	return options.New(func(c *Config) error {
		if n == 0 {
			return errs.Internal("buffer: block_size must be positive")
		}
		c.blockSize = n
		return nil
	})
}

// WithMaxBlocks sets the cache capacity as a block count. Mutually
// exclusive with WithMaxCache.
func WithMaxBlocks(n int) Option {
	return options.New(func(c *Config) error {
		if n <= 0 {
			return errs.Internal("buffer: max_blocks must be positive")
		}
		c.maxBlocks = n
		c.maxBlocksSet = true
		return nil
	})
}

// WithMaxCache sets the cache capacity as a byte budget, translated to a
// block count via the configured block size. Mutually exclusive with
// WithMaxBlocks.
func WithMaxCache(bytes uint64) Option {
	return options.New(func(c *Config) error {
		c.maxBlocks = int(bytes / c.blockSize)
		if c.maxBlocks < 1 {
			c.maxBlocks = 1
		}
		c.maxBlocksSet = true
		return nil
	})
}

// WithIdealBlocks sets the low-water mark the cache shrinks to once it
// overflows max_blocks.
func WithIdealBlocks(n int) Option {
	return options.New(func(c *Config) error {
		if n <= 0 {
			return errs.Internal("buffer: ideal_blocks must be positive")
		}
		c.idealBlocks = n
		c.idealBlocksSet = true
		return nil
	})
}

// WithIdealCache is WithIdealBlocks expressed as a byte budget.
func WithIdealCache(bytes uint64) Option {
	return options.New(func(c *Config) error {
		c.idealBlocks = int(bytes / c.blockSize)
		if c.idealBlocks < 1 {
			c.idealBlocks = 1
		}
		c.idealBlocksSet = true
		return nil
	})
}

// WithLogger sets the logger used for operationally interesting events
// (FileBuffer's large eviction passes; StepBuffer does not log). Defaults
// to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return options.New(func(c *Config) error {
		c.logger = l
		return nil
	})
}
