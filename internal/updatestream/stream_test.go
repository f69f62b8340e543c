package updatestream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySourceReplaysThenCloses(t *testing.T) {
	batch := BatchWithLastHeight{
		LastHeight: 100,
		Updates: []BlockchainUpdate{
			Block{ID: "B100", Height: 100, TimeStamp: time.Unix(1000, 0)},
		},
	}
	src := NewMemorySource(batch)

	got, err := src.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, batch, got)

	_, err = src.Recv(context.Background())
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestWireBatchRoundTrip(t *testing.T) {
	ts := time.Unix(12345, 0).UTC()
	w := wireBatch{
		LastHeight: 101,
		Updates: []wireUpdate{
			{
				Type: wireTypeBlock,
				Block: &wireBlock{
					ID:        "B101",
					TimeStamp: &ts,
					Height:    101,
					StateUpdate: wireState{
						Assets: []wireAssetUpdate{{
							After: &wireAssetDescription{
								AssetID:     []byte{1, 2, 3},
								Issuer:      []byte{4, 5, 6},
								Name:        "Alpha",
								Decimals:    2,
								Reissuable:  true,
								Volume:      1000,
								Sponsorship: 0,
							},
						}},
						DataEntries: []wireDataEntry{{
							Address: []byte{9},
							Key:     "status_<abc>",
							Kind:    "int",
							Int:     2,
						}},
					},
				},
			},
			{Type: wireTypeMicroblock, Microblock: &wireBlock{ID: "M1", Height: 101}},
			{Type: wireTypeRollback, Rollback: &wireRollback{BlockID: "M1"}},
		},
	}

	got, err := fromWireBatch(w)
	require.NoError(t, err)
	require.Len(t, got.Updates, 3)

	block, ok := got.Updates[0].(Block)
	require.True(t, ok)
	assert.Equal(t, "B101", block.ID)
	assert.Equal(t, ts, block.TimeStamp)
	require.Len(t, block.StateUpdate.Assets, 1)
	assert.Equal(t, "Alpha", block.StateUpdate.Assets[0].After.Name)
	require.Len(t, block.StateUpdate.DataEntries, 1)
	assert.Equal(t, DataEntryInt, block.StateUpdate.DataEntries[0].DataEntry.Value.Kind)
	assert.Equal(t, int64(2), block.StateUpdate.DataEntries[0].DataEntry.Value.Int)

	mb, ok := got.Updates[1].(Microblock)
	require.True(t, ok)
	assert.Equal(t, "M1", mb.ID)
	assert.True(t, mb.StateUpdate.Assets == nil || len(mb.StateUpdate.Assets) == 0)

	rb, ok := got.Updates[2].(Rollback)
	require.True(t, ok)
	assert.Equal(t, "M1", rb.BlockID)
}

func TestWireBatchRejectsUnrecognizedDataEntryKind(t *testing.T) {
	w := wireBatch{
		Updates: []wireUpdate{{
			Type: wireTypeBlock,
			Block: &wireBlock{
				ID: "B1",
				StateUpdate: wireState{
					DataEntries: []wireDataEntry{{Key: "k", Kind: "unknown-kind"}},
				},
			},
		}},
	}

	_, err := fromWireBatch(w)
	assert.ErrorIs(t, err, ErrInvalidUpdate)
}
