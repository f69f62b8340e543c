package ingest

import (
	"time"

	"github.com/wavesplatform/asset-catalog/internal/updatestream"
)

// appendItem unifies Block and Microblock for apply-appends purposes (spec
// §4.2.3): both contribute a batch-level StateUpdate and per-tx overrides,
// and only differ in whether TimeStamp is set.
type appendItem struct {
	ID                      string
	Height                  int32
	TimeStamp               time.Time // zero for a microblock
	UpdatedNativeCoinAmount *int64
	StateUpdate             updatestream.StateUpdate
	Txs                     []updatestream.Tx
}

func itemsFromBlocks(blocks []updatestream.Block) []appendItem {
	items := make([]appendItem, len(blocks))
	for i, b := range blocks {
		items[i] = appendItem{
			ID:                      b.ID,
			Height:                  b.Height,
			TimeStamp:               b.TimeStamp,
			UpdatedNativeCoinAmount: b.UpdatedNativeCoinAmount,
			StateUpdate:             b.StateUpdate,
			Txs:                     b.Txs,
		}
	}
	return items
}

func itemFromMicroblock(m updatestream.Microblock) appendItem {
	return appendItem{
		ID:                      m.ID,
		Height:                  m.Height,
		UpdatedNativeCoinAmount: m.UpdatedNativeCoinAmount,
		StateUpdate:             m.StateUpdate,
		Txs:                     m.Txs,
	}
}
