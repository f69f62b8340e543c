package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesplatform/asset-catalog/internal/updatestream"
)

func TestFoldRunsMergesConsecutiveBlocks(t *testing.T) {
	updates := []updatestream.BlockchainUpdate{
		updatestream.Block{ID: "B1"},
		updatestream.Block{ID: "B2"},
		updatestream.Block{ID: "B3"},
	}
	runs := foldRuns(updates)
	require.Len(t, runs, 1)
	assert.Equal(t, runBlocks, runs[0].kind)
	assert.Len(t, runs[0].blocks, 3)
}

func TestFoldRunsBreaksOnMicroblockAndRollback(t *testing.T) {
	updates := []updatestream.BlockchainUpdate{
		updatestream.Block{ID: "B1"},
		updatestream.Microblock{ID: "M1"},
		updatestream.Block{ID: "B2"},
		updatestream.Block{ID: "B3"},
		updatestream.Rollback{BlockID: "B2"},
		updatestream.Block{ID: "B4"},
	}
	runs := foldRuns(updates)
	require.Len(t, runs, 5)
	assert.Equal(t, runBlocks, runs[0].kind)
	assert.Len(t, runs[0].blocks, 1)
	assert.Equal(t, runMicroblock, runs[1].kind)
	assert.Equal(t, "M1", runs[1].microblock.ID)
	assert.Equal(t, runBlocks, runs[2].kind)
	assert.Len(t, runs[2].blocks, 2)
	assert.Equal(t, runRollback, runs[3].kind)
	assert.Equal(t, "B2", runs[3].rollback.BlockID)
	assert.Equal(t, runBlocks, runs[4].kind)
}

func TestFoldRunsEmptyInput(t *testing.T) {
	assert.Empty(t, foldRuns(nil))
}
