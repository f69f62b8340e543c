package projection

import (
	"context"
	"fmt"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// RollbackStore is what RollbackTable needs from a concrete table adapter
// to undo everything introduced after a given block_uid (spec §4.4).
type RollbackStore[K comparable] interface {
	// DeleteFrom deletes every row whose block_uid > blockUID and returns
	// the distinct natural keys that were touched, so the caller can
	// re-open whatever they superseded.
	DeleteFrom(ctx context.Context, blockUID domain.UID) ([]K, error)

	// ReopenLatest sets superseded_by back to MaxUID for the row with the
	// greatest remaining uid among each of the given keys, one row per key
	// (spec §4.4 step 2: "minimize by natural key" — only the single
	// still-live predecessor is reopened, not every row for that key).
	ReopenLatest(ctx context.Context, keys []K) error
}

// RollbackTable undoes every row with block_uid > blockUID in one temporal
// table (spec §4.4): delete the rows the reorg discarded, then reopen
// whichever row is now the newest survivor for each affected key.
func RollbackTable[K comparable](ctx context.Context, store RollbackStore[K], blockUID domain.UID) error {
	keys, err := store.DeleteFrom(ctx, blockUID)
	if err != nil {
		return fmt.Errorf("projection: deleting rolled-back rows: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := store.ReopenLatest(ctx, keys); err != nil {
		return fmt.Errorf("projection: reopening superseded rows: %w", err)
	}
	return nil
}
