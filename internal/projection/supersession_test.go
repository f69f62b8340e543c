package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// fakeTemporalStore is an in-memory TemporalStore[string, *fakeRow] used to
// exercise ApplySupersession without a real Postgres connection.
type fakeTemporalStore struct {
	seq      domain.UID
	rows     []*fakeRow
	closedTo map[string]domain.UID
}

type fakeRow struct {
	key          string
	supersededBy domain.UID
	uid          domain.UID
	value        int
}

func (r *fakeRow) NaturalKey() string           { return r.key }
func (r *fakeRow) GetUID() domain.UID           { return r.uid }
func (r *fakeRow) SetUID(u domain.UID)          { r.uid = u }
func (r *fakeRow) GetSupersededBy() domain.UID  { return r.supersededBy }
func (r *fakeRow) SetSupersededBy(u domain.UID) { r.supersededBy = u }

var _ domain.Versioned[string] = (*fakeRow)(nil)

func newFakeTemporalStore() *fakeTemporalStore {
	return &fakeTemporalStore{closedTo: make(map[string]domain.UID)}
}

func (s *fakeTemporalStore) NextUID(ctx context.Context) (domain.UID, error) { return s.seq, nil }

func (s *fakeTemporalStore) AdvanceSequence(ctx context.Context, next domain.UID) error {
	s.seq = next
	return nil
}

func (s *fakeTemporalStore) CloseLive(ctx context.Context, keys []string, firstUIDs []domain.UID) error {
	for i, k := range keys {
		for _, r := range s.rows {
			if r.key == k && r.supersededBy == domain.MaxUID {
				r.supersededBy = firstUIDs[i]
			}
		}
		s.closedTo[k] = firstUIDs[i]
	}
	return nil
}

func (s *fakeTemporalStore) InsertRows(ctx context.Context, rows []*fakeRow) error {
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *fakeTemporalStore) liveRow(key string) *fakeRow {
	for _, r := range s.rows {
		if r.key == key && r.supersededBy == domain.MaxUID {
			return r
		}
	}
	return nil
}

func TestApplySupersessionEmptyIsNoOp(t *testing.T) {
	store := newFakeTemporalStore()
	store.seq = 42

	err := ApplySupersession[string](context.Background(), store, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.UID(42), store.seq)
	assert.Empty(t, store.rows)
}

func TestApplySupersessionSingleUpdateGoesLive(t *testing.T) {
	store := newFakeTemporalStore()

	err := ApplySupersession[string](context.Background(), store, []*fakeRow{{key: "A", value: 1}})
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	assert.Equal(t, domain.UID(0), store.rows[0].uid)
	assert.Equal(t, domain.MaxUID, store.rows[0].supersededBy)
	assert.Equal(t, domain.UID(1), store.seq)
}

func TestApplySupersessionClosesPreviousLiveRow(t *testing.T) {
	store := newFakeTemporalStore()
	store.rows = []*fakeRow{{key: "A", uid: 0, supersededBy: domain.MaxUID, value: 1}}
	store.seq = 1

	err := ApplySupersession[string](context.Background(), store, []*fakeRow{{key: "A", value: 2}})
	require.NoError(t, err)

	require.Len(t, store.rows, 2)
	assert.Equal(t, domain.UID(1), store.rows[0].supersededBy, "original row now points at the new one")
	assert.Equal(t, domain.MaxUID, store.rows[1].supersededBy)
	assert.Equal(t, 2, store.liveRow("A").value)
}

func TestApplySupersessionChainsMultipleUpdatesForSameKey(t *testing.T) {
	store := newFakeTemporalStore()

	rows := []*fakeRow{{key: "A", value: 1}, {key: "A", value: 2}, {key: "B", value: 9}}
	err := ApplySupersession[string](context.Background(), store, rows)
	require.NoError(t, err)

	require.Len(t, store.rows, 3)
	// A's chain: uid 0 -> uid 1 (live); B stands alone, live immediately.
	assert.Equal(t, domain.UID(1), store.rows[0].supersededBy)
	assert.Equal(t, domain.MaxUID, store.rows[1].supersededBy)
	assert.Equal(t, domain.MaxUID, store.rows[2].supersededBy)
	assert.Equal(t, 2, store.liveRow("A").value)
	assert.Equal(t, 9, store.liveRow("B").value)
	assert.Equal(t, domain.UID(3), store.seq)
}

// fakeRollbackStore is an in-memory RollbackStore[string] for rollback tests.
type fakeRollbackStore struct {
	rows     []*fakeRow
	reopened []string
}

func (s *fakeRollbackStore) DeleteFrom(ctx context.Context, blockUID domain.UID) ([]string, error) {
	var kept []*fakeRow
	keys := map[string]struct{}{}
	var order []string
	for _, r := range s.rows {
		if domain.UID(r.value) > blockUID { // value doubles as block_uid in this fake
			if _, ok := keys[r.key]; !ok {
				keys[r.key] = struct{}{}
				order = append(order, r.key)
			}
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return order, nil
}

func (s *fakeRollbackStore) ReopenLatest(ctx context.Context, keys []string) error {
	s.reopened = append(s.reopened, keys...)
	for _, k := range keys {
		var best *fakeRow
		for _, r := range s.rows {
			if r.key == k && (best == nil || r.uid > best.uid) {
				best = r
			}
		}
		if best != nil {
			best.supersededBy = domain.MaxUID
		}
	}
	return nil
}

func TestRollbackTableReopensSurvivingRow(t *testing.T) {
	store := &fakeRollbackStore{rows: []*fakeRow{
		{key: "A", uid: 0, supersededBy: 1, value: 100},
		{key: "A", uid: 1, supersededBy: domain.MaxUID, value: 200},
	}}

	err := RollbackTable[string](context.Background(), store, 150)
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	assert.Equal(t, domain.MaxUID, store.rows[0].supersededBy)
	assert.Equal(t, []string{"A"}, store.reopened)
}

func TestRollbackTableNoOpWhenNothingAboveBlockUID(t *testing.T) {
	store := &fakeRollbackStore{rows: []*fakeRow{{key: "A", uid: 0, supersededBy: domain.MaxUID, value: 50}}}

	err := RollbackTable[string](context.Background(), store, 100)
	require.NoError(t, err)
	assert.Len(t, store.rows, 1)
	assert.Nil(t, store.reopened)
}
