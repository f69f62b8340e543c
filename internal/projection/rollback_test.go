package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// fakeAssetRollbackStore is an in-memory RollbackStore[domain.AssetKey] used
// to exercise RollbackTable without a real Postgres connection.
type fakeAssetRollbackStore struct {
	rows     []fakeRollbackRow
	reopened map[domain.AssetKey]domain.UID
}

type fakeRollbackRow struct {
	key domain.AssetKey
	uid domain.UID
}

func (s *fakeAssetRollbackStore) DeleteFrom(ctx context.Context, blockUID domain.UID) ([]domain.AssetKey, error) {
	var kept []fakeRollbackRow
	seen := make(map[domain.AssetKey]bool)
	for _, r := range s.rows {
		if r.uid > blockUID {
			seen[r.key] = true
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	keys := make([]domain.AssetKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *fakeAssetRollbackStore) ReopenLatest(ctx context.Context, keys []domain.AssetKey) error {
	for _, key := range keys {
		var best *fakeRollbackRow
		for i := range s.rows {
			if s.rows[i].key != key {
				continue
			}
			if best == nil || s.rows[i].uid > best.uid {
				best = &s.rows[i]
			}
		}
		if best != nil {
			if s.reopened == nil {
				s.reopened = make(map[domain.AssetKey]domain.UID)
			}
			s.reopened[key] = best.uid
		}
	}
	return nil
}

func TestRollbackTableDeletesAboveBlockUIDAndReopensSurvivor(t *testing.T) {
	store := &fakeAssetRollbackStore{rows: []fakeRollbackRow{
		{key: "A", uid: 1},
		{key: "A", uid: 2},
		{key: "A", uid: 3}, // rolled back
		{key: "B", uid: 4}, // rolled back, no survivor left
	}}

	err := RollbackTable[domain.AssetKey](context.Background(), store, 2)
	require.NoError(t, err)

	remainingKeys := make(map[domain.AssetKey]int)
	for _, r := range store.rows {
		remainingKeys[r.key]++
	}
	assert.Equal(t, 2, remainingKeys["A"])
	assert.Equal(t, 0, remainingKeys["B"])
	assert.Equal(t, map[domain.AssetKey]domain.UID{"A": 2}, store.reopened, "A's newest survivor is reopened; B has none")
}

func TestRollbackTableAssetKeyNoOpWhenNothingAboveBlockUID(t *testing.T) {
	store := &fakeAssetRollbackStore{rows: []fakeRollbackRow{{key: "A", uid: 1}}}
	err := RollbackTable[domain.AssetKey](context.Background(), store, 5)
	require.NoError(t, err)
	assert.Len(t, store.rows, 1)
}
