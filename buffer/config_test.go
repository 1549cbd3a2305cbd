package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The default low-water mark follows the documented fallback chain: try
// shrinking by 1 MiB worth of blocks, then 1 KiB worth, then max_blocks/5,
// whichever of those doesn't itself exceed max_blocks.

func TestDefaultIdealBlocksUsesOneMebibyteHeadroom(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	wantMax := int(defaultMaxCache / defaultBlockSize)
	wantIdeal := wantMax - int(1_048_576/defaultBlockSize)
	require.Equal(t, wantMax, cfg.maxBlocks)
	require.Equal(t, wantIdeal, cfg.idealBlocks)
}

func TestDefaultIdealBlocksFallsBackToOneKibibyteHeadroom(t *testing.T) {
	// 1 MiB worth of blocks (1_048_576/100 = 10485) exceeds max_blocks, so
	// this must fall back to 1 KiB worth (1024/100 = 10).
	cfg, err := NewConfig(WithBlockSize(100), WithMaxBlocks(50))
	require.NoError(t, err)
	require.Equal(t, 40, cfg.idealBlocks)
}

func TestDefaultIdealBlocksFallsBackToMaxBlocksOverFive(t *testing.T) {
	// Both the 1 MiB and 1 KiB headroom tiers exceed max_blocks here, so
	// this must fall back to max_blocks/5.
	cfg, err := NewConfig(WithBlockSize(1), WithMaxBlocks(10))
	require.NoError(t, err)
	require.Equal(t, 8, cfg.idealBlocks)
}
