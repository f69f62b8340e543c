package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// BlocksStore wraps the blocks_microblocks table (spec §3.2, §4.2.1,
// §4.2.4). Unlike the four temporal tables it isn't superseded/versioned;
// it is an append log with its own squash and rollback-by-height rules.
type BlocksStore struct {
	tx pgx.Tx
}

// NewBlocksStore binds a BlocksStore to tx.
func NewBlocksStore(tx pgx.Tx) *BlocksStore { return &BlocksStore{tx: tx} }

// Insert appends one block or microblock row and returns its uid.
// TimeStamp.IsZero marks a microblock (spec §3.2).
func (s *BlocksStore) Insert(ctx context.Context, b domain.BlockMicroblock) (domain.UID, error) {
	uid, err := nextSeqValue(ctx, s.tx, "blocks_microblocks_uid_seq")
	if err != nil {
		return 0, err
	}
	var ts *int64
	if !b.TimeStamp.IsZero() {
		millis := b.TimeStamp.UnixMilli()
		ts = &millis
	}
	_, err = s.tx.Exec(ctx, `INSERT INTO blocks_microblocks (uid, id, height, time_stamp) VALUES ($1,$2,$3,$4)`,
		int64(uid), b.ID, b.Height, ts)
	if err != nil {
		return 0, fmt.Errorf("projection: blocks_microblocks Insert: %w", err)
	}
	if err := setSeqValue(ctx, s.tx, "blocks_microblocks_uid_seq", uid+1); err != nil {
		return 0, err
	}
	return uid, nil
}

// ResolveIDToUID looks up the uid of a block or microblock row by id, for
// resolving a Rollback(block_id) request (spec §4.2.2 step 3).
func (s *BlocksStore) ResolveIDToUID(ctx context.Context, id string) (domain.UID, bool, error) {
	var uid int64
	err := s.tx.QueryRow(ctx, `SELECT uid FROM blocks_microblocks WHERE id = $1`, id).Scan(&uid)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("projection: blocks_microblocks ResolveIDToUID: %w", err)
	}
	return domain.UID(uid), true, nil
}

// LatestMicroblockID returns the id of the most recent microblock row, and
// false if there is none (spec §4.2.4 step 1: "total block id").
func (s *BlocksStore) LatestMicroblockID(ctx context.Context) (string, bool, error) {
	var id string
	err := s.tx.QueryRow(ctx, `
		SELECT id FROM blocks_microblocks WHERE time_stamp IS NULL ORDER BY uid DESC LIMIT 1`).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("projection: blocks_microblocks LatestMicroblockID: %w", err)
	}
	return id, true, nil
}

// KeyBlockUID returns the uid of the latest confirmed key block (non-null
// timestamp), i.e. the microblock run's enclosing block (spec §4.2.4 step 2).
func (s *BlocksStore) KeyBlockUID(ctx context.Context) (domain.UID, error) {
	var uid int64
	err := s.tx.QueryRow(ctx, `
		SELECT uid FROM blocks_microblocks WHERE time_stamp IS NOT NULL ORDER BY uid DESC LIMIT 1`).Scan(&uid)
	if err != nil {
		return 0, fmt.Errorf("projection: blocks_microblocks KeyBlockUID: %w", err)
	}
	return domain.UID(uid), nil
}

// RetargetBlockUID rewrites block_uid on every row of one temporal table
// from above keyBlockUID onto keyBlockUID, collapsing microblock-owned rows
// onto their enclosing key block (spec §4.2.4 step 3).
func (s *BlocksStore) RetargetBlockUID(ctx context.Context, table string, keyBlockUID domain.UID) error {
	_, err := s.tx.Exec(ctx,
		`UPDATE `+pgx.Identifier{table}.Sanitize()+` SET block_uid = $1 WHERE block_uid > $1`,
		int64(keyBlockUID))
	if err != nil {
		return fmt.Errorf("projection: retargeting block_uid on %s: %w", table, err)
	}
	return nil
}

// DeleteMicroblocks removes every microblock row (spec §4.2.4 step 4).
func (s *BlocksStore) DeleteMicroblocks(ctx context.Context) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM blocks_microblocks WHERE time_stamp IS NULL`)
	if err != nil {
		return fmt.Errorf("projection: blocks_microblocks DeleteMicroblocks: %w", err)
	}
	return nil
}

// RenameID renames the key block's id to totalBlockID, so a later rollback
// that names any subsumed microblock id still resolves (spec §4.2.4 step 5).
func (s *BlocksStore) RenameID(ctx context.Context, keyBlockUID domain.UID, totalBlockID string) error {
	_, err := s.tx.Exec(ctx, `UPDATE blocks_microblocks SET id = $1 WHERE uid = $2`, totalBlockID, int64(keyBlockUID))
	if err != nil {
		return fmt.Errorf("projection: blocks_microblocks RenameID: %w", err)
	}
	return nil
}

// DeleteFromUID removes every row with uid > uid (spec §4.4 step 3).
func (s *BlocksStore) DeleteFromUID(ctx context.Context, uid domain.UID) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM blocks_microblocks WHERE uid > $1`, int64(uid))
	if err != nil {
		return fmt.Errorf("projection: blocks_microblocks DeleteFromUID: %w", err)
	}
	return nil
}

// PreviousHandledHeight returns the uid of the block at max(height)-1, for
// startup's defensive rollback (spec §4.2.1 step 1). ok is false when the
// table is empty (fresh start).
func (s *BlocksStore) PreviousHandledHeight(ctx context.Context) (uid domain.UID, height int32, ok bool, err error) {
	var maxHeight *int32
	if err := s.tx.QueryRow(ctx, `SELECT max(height) FROM blocks_microblocks`).Scan(&maxHeight); err != nil {
		if err == pgx.ErrNoRows {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("projection: blocks_microblocks max height: %w", err)
	}
	if maxHeight == nil {
		return 0, 0, false, nil
	}
	var u int64
	var h int32
	row := s.tx.QueryRow(ctx, `
		SELECT uid, height FROM blocks_microblocks WHERE height = $1 ORDER BY uid ASC LIMIT 1`, *maxHeight-1)
	if err := row.Scan(&u, &h); err != nil {
		if err == pgx.ErrNoRows {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("projection: blocks_microblocks previous handled height: %w", err)
	}
	return domain.UID(u), h, true, nil
}

// ReadByUID returns a single row by uid, used when re-deriving a block's
// timestamp/height for squash and rollback bookkeeping.
func (s *BlocksStore) ReadByUID(ctx context.Context, uid domain.UID) (domain.BlockMicroblock, error) {
	var b domain.BlockMicroblock
	var u int64
	var ts *int64
	row := s.tx.QueryRow(ctx, `SELECT uid, id, height, time_stamp FROM blocks_microblocks WHERE uid = $1`, int64(uid))
	if err := row.Scan(&u, &b.ID, &b.Height, &ts); err != nil {
		return domain.BlockMicroblock{}, fmt.Errorf("projection: blocks_microblocks ReadByUID: %w", err)
	}
	b.UID = domain.UID(u)
	if ts != nil {
		b.TimeStamp = time.UnixMilli(*ts).UTC()
	}
	return b, nil
}
