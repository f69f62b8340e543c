package projection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// AssetsStore is the pgx-backed TemporalStore[AssetKey, *domain.AssetRow]
// and RollbackStore[AssetKey] over the assets table (spec §6.1). One
// instance is bound to a single in-flight transaction so several tables'
// writes can be composed into one commit by the ingest orchestrator.
type AssetsStore struct {
	tx pgx.Tx
}

// NewAssetsStore binds an AssetsStore to tx.
func NewAssetsStore(tx pgx.Tx) *AssetsStore { return &AssetsStore{tx: tx} }

func (s *AssetsStore) NextUID(ctx context.Context) (domain.UID, error) {
	return nextSeqValue(ctx, s.tx, "assets_uid_seq")
}

func (s *AssetsStore) AdvanceSequence(ctx context.Context, next domain.UID) error {
	return setSeqValue(ctx, s.tx, "assets_uid_seq", next)
}

func (s *AssetsStore) CloseLive(ctx context.Context, keys []domain.AssetKey, firstUIDs []domain.UID) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE assets SET superseded_by = u.first_uid
		FROM unnest($1::text[], $2::bigint[]) AS u(id, first_uid)
		WHERE assets.id = u.id AND assets.superseded_by = $3`,
		keysToStrings(keys), uidsToInt64s(firstUIDs), int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: assets CloseLive: %w", err)
	}
	return nil
}

func (s *AssetsStore) InsertRows(ctx context.Context, rows []*domain.AssetRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO assets (uid, superseded_by, block_uid, id, name, description, time_stamp,
				issuer, precision, smart, nft, quantity, reissuable, min_sponsored_fee)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			int64(r.UID), int64(r.SupersededBy), int64(r.BlockUID), string(r.Key),
			domain.EscapeNulls(r.Payload.Name), domain.EscapeNulls(r.Payload.Description), r.Payload.TimeStamp,
			domain.EscapeNulls(r.Payload.Issuer), r.Payload.Precision, r.Payload.Smart, r.Payload.NFT,
			r.Payload.Quantity, r.Payload.Reissuable, r.Payload.MinSponsoredFee)
	}
	return execBatch(ctx, s.tx, batch, "assets InsertRows")
}

// DeleteFrom implements RollbackStore[AssetKey].
func (s *AssetsStore) DeleteFrom(ctx context.Context, blockUID domain.UID) ([]domain.AssetKey, error) {
	rows, err := s.tx.Query(ctx, `DELETE FROM assets WHERE block_uid > $1 RETURNING id`, int64(blockUID))
	if err != nil {
		return nil, fmt.Errorf("projection: assets DeleteFrom: %w", err)
	}
	defer rows.Close()
	return scanDistinctKeys(rows, func(id string) domain.AssetKey { return domain.AssetKey(id) })
}

func (s *AssetsStore) ReopenLatest(ctx context.Context, keys []domain.AssetKey) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE assets SET superseded_by = $2
		FROM (
			SELECT DISTINCT ON (id) id, uid FROM assets
			WHERE id = ANY($1::text[])
			ORDER BY id, uid DESC
		) latest
		WHERE assets.id = latest.id AND assets.uid = latest.uid`,
		keysToStrings(keys), int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: assets ReopenLatest: %w", err)
	}
	return nil
}

// ReadByID returns the live row for an asset id, or nil if none exists
// (spec §4.2.3: looking up an asset's current state to fold an update onto).
func (s *AssetsStore) ReadByID(ctx context.Context, id string) (*domain.AssetRow, error) {
	row := s.tx.QueryRow(ctx, `
		SELECT uid, superseded_by, block_uid, id, name, description, time_stamp, issuer,
			precision, smart, nft, quantity, reissuable, min_sponsored_fee
		FROM assets WHERE id = $1 AND superseded_by = $2`, id, int64(domain.MaxUID))
	var r domain.AssetRow
	var uid, superseded, blockUID int64
	var key string
	err := row.Scan(&uid, &superseded, &blockUID, &key, &r.Payload.Name, &r.Payload.Description,
		&r.Payload.TimeStamp, &r.Payload.Issuer, &r.Payload.Precision, &r.Payload.Smart,
		&r.Payload.NFT, &r.Payload.Quantity, &r.Payload.Reissuable, &r.Payload.MinSponsoredFee)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("projection: assets ReadByID: %w", err)
	}
	r.UID, r.SupersededBy, r.BlockUID, r.Key = domain.UID(uid), domain.UID(superseded), domain.UID(blockUID), domain.AssetKey(key)
	return &r, nil
}

// ReadLiveSponsoredByIssuer returns the live, non-NFT, sponsored assets
// issued by issuer — the set a changed native balance or out-leasing total
// must be attributed to (spec §4.2.3 step 3).
func (s *AssetsStore) ReadLiveSponsoredByIssuer(ctx context.Context, issuer string) ([]domain.AssetKey, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT id FROM assets
		WHERE issuer = $1 AND superseded_by = $2 AND min_sponsored_fee IS NOT NULL AND NOT nft`,
		issuer, int64(domain.MaxUID))
	if err != nil {
		return nil, fmt.Errorf("projection: assets ReadLiveSponsoredByIssuer: %w", err)
	}
	defer rows.Close()
	var out []domain.AssetKey
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("projection: assets ReadLiveSponsoredByIssuer scan: %w", err)
		}
		out = append(out, domain.AssetKey(id))
	}
	return out, rows.Err()
}

var (
	_ TemporalStore[domain.AssetKey, *domain.AssetRow] = (*AssetsStore)(nil)
	_ RollbackStore[domain.AssetKey]                    = (*AssetsStore)(nil)
)
