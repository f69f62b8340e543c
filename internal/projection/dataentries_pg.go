package projection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// DataEntriesStore is the pgx-backed TemporalStore[DataEntryKey, *domain.DataEntryRow]
// and RollbackStore[DataEntryKey] over the data_entries table (spec §6.1).
// The natural key is the pair (address, key), so unlike the other three
// temporal tables it can't reuse the ~string key helpers in pgxutil.go.
type DataEntriesStore struct {
	tx pgx.Tx
}

// NewDataEntriesStore binds a DataEntriesStore to tx.
func NewDataEntriesStore(tx pgx.Tx) *DataEntriesStore { return &DataEntriesStore{tx: tx} }

func (s *DataEntriesStore) NextUID(ctx context.Context) (domain.UID, error) {
	return nextSeqValue(ctx, s.tx, "data_entries_uid_seq")
}

func (s *DataEntriesStore) AdvanceSequence(ctx context.Context, next domain.UID) error {
	return setSeqValue(ctx, s.tx, "data_entries_uid_seq", next)
}

func (s *DataEntriesStore) CloseLive(ctx context.Context, keys []domain.DataEntryKey, firstUIDs []domain.UID) error {
	addresses, dataKeys := splitDataEntryKeys(keys)
	_, err := s.tx.Exec(ctx, `
		UPDATE data_entries SET superseded_by = u.first_uid
		FROM unnest($1::text[], $2::text[], $3::bigint[]) AS u(address, key, first_uid)
		WHERE data_entries.address = u.address AND data_entries.key = u.key
			AND data_entries.superseded_by = $4`,
		addresses, dataKeys, uidsToInt64s(firstUIDs), int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: data_entries CloseLive: %w", err)
	}
	return nil
}

func (s *DataEntriesStore) InsertRows(ctx context.Context, rows []*domain.DataEntryRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		p := r.Payload
		batch.Queue(`
			INSERT INTO data_entries (uid, superseded_by, block_uid, address, key,
				data_type, bin_val, bool_val, int_val, str_val, related_asset_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			int64(r.UID), int64(r.SupersededBy), int64(r.BlockUID),
			domain.EscapeNulls(r.Key.Address), domain.EscapeNulls(r.Key.Key),
			p.DataType, p.BinVal, p.BoolVal, p.IntVal, escapedStrVal(p.StrVal), p.RelatedAssetID)
	}
	return execBatch(ctx, s.tx, batch, "data_entries InsertRows")
}

// DeleteFrom implements RollbackStore[DataEntryKey].
func (s *DataEntriesStore) DeleteFrom(ctx context.Context, blockUID domain.UID) ([]domain.DataEntryKey, error) {
	rows, err := s.tx.Query(ctx, `DELETE FROM data_entries WHERE block_uid > $1 RETURNING address, key`, int64(blockUID))
	if err != nil {
		return nil, fmt.Errorf("projection: data_entries DeleteFrom: %w", err)
	}
	defer rows.Close()

	seen := make(map[domain.DataEntryKey]struct{})
	var out []domain.DataEntryKey
	for rows.Next() {
		var k domain.DataEntryKey
		if err := rows.Scan(&k.Address, &k.Key); err != nil {
			return nil, fmt.Errorf("projection: data_entries DeleteFrom scan: %w", err)
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projection: data_entries DeleteFrom iterate: %w", err)
	}
	return out, nil
}

func (s *DataEntriesStore) ReopenLatest(ctx context.Context, keys []domain.DataEntryKey) error {
	addresses, dataKeys := splitDataEntryKeys(keys)
	_, err := s.tx.Exec(ctx, `
		UPDATE data_entries SET superseded_by = $3
		FROM (
			SELECT DISTINCT ON (address, key) address, key, uid FROM data_entries
			WHERE (address, key) IN (SELECT * FROM unnest($1::text[], $2::text[]))
			ORDER BY address, key, uid DESC
		) latest
		WHERE data_entries.address = latest.address AND data_entries.key = latest.key
			AND data_entries.uid = latest.uid`,
		addresses, dataKeys, int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: data_entries ReopenLatest: %w", err)
	}
	return nil
}

// ReadLiveByAddress reads every live entry at a given address, whatever its
// key, for label extraction and asset association (spec §4.5, §6.5).
func (s *DataEntriesStore) ReadLiveByAddress(ctx context.Context, address string) ([]*domain.DataEntryRow, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT uid, superseded_by, block_uid, address, key, data_type, bin_val, bool_val,
			int_val, str_val, related_asset_id
		FROM data_entries WHERE address = $1 AND superseded_by = $2`,
		address, int64(domain.MaxUID))
	if err != nil {
		return nil, fmt.Errorf("projection: data_entries ReadLiveByAddress: %w", err)
	}
	defer rows.Close()

	var out []*domain.DataEntryRow
	for rows.Next() {
		var r domain.DataEntryRow
		var uid, superseded, blockUID int64
		if err := rows.Scan(&uid, &superseded, &blockUID, &r.Key.Address, &r.Key.Key,
			&r.Payload.DataType, &r.Payload.BinVal, &r.Payload.BoolVal, &r.Payload.IntVal,
			&r.Payload.StrVal, &r.Payload.RelatedAssetID); err != nil {
			return nil, fmt.Errorf("projection: data_entries ReadLiveByAddress scan: %w", err)
		}
		r.UID, r.SupersededBy, r.BlockUID = domain.UID(uid), domain.UID(superseded), domain.UID(blockUID)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projection: data_entries ReadLiveByAddress iterate: %w", err)
	}
	return out, nil
}

func splitDataEntryKeys(keys []domain.DataEntryKey) (addresses, dataKeys []string) {
	addresses = make([]string, len(keys))
	dataKeys = make([]string, len(keys))
	for i, k := range keys {
		addresses[i] = k.Address
		dataKeys[i] = k.Key
	}
	return addresses, dataKeys
}

func escapedStrVal(v *string) *string {
	if v == nil {
		return nil
	}
	escaped := domain.EscapeNulls(*v)
	return &escaped
}

var (
	_ TemporalStore[domain.DataEntryKey, *domain.DataEntryRow] = (*DataEntriesStore)(nil)
	_ RollbackStore[domain.DataEntryKey]                        = (*DataEntriesStore)(nil)
)
