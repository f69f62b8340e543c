// Package projection is the transactional, ordered-key projection store
// (spec §2 item 2, §6.1): the five tables, the generic supersession
// algorithm shared by the four temporal ones, squash, and rollback.
package projection

import (
	"context"
	"fmt"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// pendingUID marks a freshly allocated row whose superseded_by hasn't been
// resolved yet within one call to ApplySupersession (spec §4.3 step 2).
const pendingUID domain.UID = -1

// TemporalStore is what ApplySupersession needs from a concrete table
// adapter (internal/projection's per-table files implement this against
// pgx). K is the natural-key type, R the row pointer type (e.g.
// *domain.AssetRow).
type TemporalStore[K comparable, R domain.Versioned[K]] interface {
	// NextUID returns the table sequence's current next value without
	// advancing it (spec §4.3 step 1).
	NextUID(ctx context.Context) (domain.UID, error)

	// AdvanceSequence sets the sequence's next value (spec §4.3 step 6).
	AdvanceSequence(ctx context.Context, next domain.UID) error

	// CloseLive closes the currently-live row for each key to the paired
	// first uid (spec §4.3 step 4), bulk-vectored with parallel arrays.
	CloseLive(ctx context.Context, keys []K, firstUIDs []domain.UID) error

	// InsertRows inserts all rows in uid order (spec §4.3 step 5).
	InsertRows(ctx context.Context, rows []R) error
}

// ApplySupersession runs the supersession algorithm of spec §4.3 against
// one temporal table. rows carry their natural key and payload already set;
// uid and superseded_by are assigned here. An empty updates list is a
// documented no-op that must not advance the sequence (spec §4.3 edge
// case); ApplySupersession returns nil immediately in that case.
func ApplySupersession[K comparable, R domain.Versioned[K]](ctx context.Context, store TemporalStore[K, R], rows []R) error {
	if len(rows) == 0 {
		return nil
	}

	nextUID, err := store.NextUID(ctx)
	if err != nil {
		return fmt.Errorf("projection: fetching next uid: %w", err)
	}

	// Step 1-2: allocate uids sequentially in arrival order, superseded_by
	// temporarily pending.
	for i, r := range rows {
		r.SetUID(nextUID + domain.UID(i))
		r.SetSupersededBy(pendingUID)
	}

	// Step 3: group by natural key, preserving first-occurrence order so the
	// CloseLive vectors below are deterministic; rows already sorted by uid
	// ascending within a group because uids were assigned in arrival order.
	order := make([]K, 0, len(rows))
	groups := make(map[K][]int, len(rows))
	for i, r := range rows {
		k := r.NaturalKey()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	closeKeys := make([]K, 0, len(order))
	closeFirstUIDs := make([]domain.UID, 0, len(order))
	for _, k := range order {
		indices := groups[k]
		for j := 0; j < len(indices)-1; j++ {
			rows[indices[j]].SetSupersededBy(rows[indices[j+1]].GetUID())
		}
		// The first uid in the chain is what must replace any currently-live
		// row for this key (step 4); the last retains the pending sentinel,
		// finalized to MaxUID below.
		closeKeys = append(closeKeys, k)
		closeFirstUIDs = append(closeFirstUIDs, rows[indices[0]].GetUID())
	}
	for _, r := range rows {
		if r.GetSupersededBy() == pendingUID {
			r.SetSupersededBy(domain.MaxUID)
		}
	}

	// Step 4: close whichever row was live before this batch, per key.
	if err := store.CloseLive(ctx, closeKeys, closeFirstUIDs); err != nil {
		return fmt.Errorf("projection: closing superseded rows: %w", err)
	}

	// Step 5: insert all new rows in uid order (rows is already in that
	// order since uids were assigned by index).
	if err := store.InsertRows(ctx, rows); err != nil {
		return fmt.Errorf("projection: inserting rows: %w", err)
	}

	// Step 6: advance the sequence past every uid just consumed.
	if err := store.AdvanceSequence(ctx, nextUID+domain.UID(len(rows))); err != nil {
		return fmt.Errorf("projection: advancing sequence: %w", err)
	}

	return nil
}
