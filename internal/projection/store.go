package projection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// temporalTables lists the four supersession tables in the write order the
// concurrency model mandates (spec §5: "blocks → assets → data_entries →
// issuer_balances → out_leasings"), used by Squash's retargeting pass.
var temporalTables = []string{"assets", "data_entries", "issuer_balances", "out_leasings"}

// Store is the projection store (spec §2 item 2): a pgxpool-backed handle
// that runs every mutating operation inside one transaction, matching the
// "exactly one transaction per batch" rule of spec §5.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an already-connected pool. Callers obtain the pool from
// pgxpool.New against the configured DSN and run Migrate beforehand.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error (spec §4.6: any write failure aborts the batch).
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("projection: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("projection: committing transaction: %w", err)
	}
	return nil
}

// PreviousHandledHeight reports the uid and height of the first row at the
// height just below the highest one the projection recorded, for the
// defensive startup rollback of spec §4.2.1. ok is false if the projection
// has no history yet.
func (s *Store) PreviousHandledHeight(ctx context.Context, tx pgx.Tx) (domain.UID, int32, bool, error) {
	return NewBlocksStore(tx).PreviousHandledHeight(ctx)
}

// SquashMicroblocks implements spec §4.2.4, run before applying a new run
// of key blocks.
func (s *Store) SquashMicroblocks(ctx context.Context, tx pgx.Tx) error {
	blocks := NewBlocksStore(tx)

	totalBlockID, ok, err := blocks.LatestMicroblockID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	keyBlockUID, err := blocks.KeyBlockUID(ctx)
	if err != nil {
		return err
	}

	for _, table := range temporalTables {
		if err := blocks.RetargetBlockUID(ctx, table, keyBlockUID); err != nil {
			return err
		}
	}
	if err := blocks.DeleteMicroblocks(ctx); err != nil {
		return err
	}
	if err := blocks.RenameID(ctx, keyBlockUID, totalBlockID); err != nil {
		return err
	}
	return nil
}

// RollbackByBlockID implements spec §4.4 against an already-open
// transaction: resolving blockID, snapshotting affected assets, and
// deleting all rows above it. Callers run this inside the same
// transaction as any cache refresh the rollback triggers, so the two
// never split across separate commits (spec §5: one transaction per
// batch covers both the projection writes and the cache writes they
// cause). It returns the asset ids touched above the resolved uid
// (step 1's snapshot) and the resolved uid for logging.
func (s *Store) RollbackByBlockID(ctx context.Context, tx pgx.Tx, blockID string) ([]string, domain.UID, error) {
	blockUID, err := s.ResolveBlockID(ctx, tx, blockID)
	if err != nil {
		return nil, 0, err
	}
	affected, err := s.RollbackToUID(ctx, tx, blockUID)
	if err != nil {
		return nil, 0, err
	}
	return affected, blockUID, nil
}

// RollbackToUID is RollbackByBlockID for a caller that already knows the
// target uid (spec §4.2.1's defensive startup rollback, which resolves the
// uid from PreviousHandledHeight rather than a wire Rollback.BlockID).
func (s *Store) RollbackToUID(ctx context.Context, tx pgx.Tx, blockUID domain.UID) ([]string, error) {
	affected, err := s.AssetsWithChangesSince(ctx, tx, blockUID)
	if err != nil {
		return nil, err
	}
	if err := s.rollbackTx(ctx, tx, blockUID); err != nil {
		return nil, err
	}
	return affected, nil
}

func (s *Store) rollbackTx(ctx context.Context, tx pgx.Tx, blockUID domain.UID) error {
	if err := RollbackTable[domain.AssetKey](ctx, NewAssetsStore(tx), blockUID); err != nil {
		return err
	}
	if err := RollbackTable[domain.DataEntryKey](ctx, NewDataEntriesStore(tx), blockUID); err != nil {
		return err
	}
	if err := RollbackTable[domain.AddressKey](ctx, NewIssuerBalancesStore(tx), blockUID); err != nil {
		return err
	}
	if err := RollbackTable[domain.AddressKey](ctx, NewOutLeasingsStore(tx), blockUID); err != nil {
		return err
	}
	return NewBlocksStore(tx).DeleteFromUID(ctx, blockUID)
}

// ResolveBlockID resolves a Rollback(block_id) request to the uid it
// targets (spec §4.2.2 step 3); an unknown id is fatal per spec §4.6.
func (s *Store) ResolveBlockID(ctx context.Context, tx pgx.Tx, blockID string) (domain.UID, error) {
	uid, ok, err := NewBlocksStore(tx).ResolveIDToUID(ctx, blockID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("projection: rollback references unknown block id %q", blockID)
	}
	return uid, nil
}

// AssetsWithChangesSince returns the distinct asset ids with rows whose
// block_uid is above blockUID, used by Rollback callers to know which cache entries need
// recomputation (spec §4.4 step 1).
func (s *Store) AssetsWithChangesSince(ctx context.Context, tx pgx.Tx, blockUID domain.UID) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT DISTINCT id FROM assets WHERE block_uid > $1`, int64(blockUID))
	if err != nil {
		return nil, fmt.Errorf("projection: AssetsWithChangesSince: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("projection: AssetsWithChangesSince scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
