package projection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// IssuerBalancesStore is the pgx-backed TemporalStore[AddressKey,
// *domain.IssuerBalanceRow] and RollbackStore[AddressKey] over the
// issuer_balances table (spec §3.4, §6.1).
type IssuerBalancesStore struct {
	tx pgx.Tx
}

func NewIssuerBalancesStore(tx pgx.Tx) *IssuerBalancesStore { return &IssuerBalancesStore{tx: tx} }

func (s *IssuerBalancesStore) NextUID(ctx context.Context) (domain.UID, error) {
	return nextSeqValue(ctx, s.tx, "issuer_balances_uid_seq")
}

func (s *IssuerBalancesStore) AdvanceSequence(ctx context.Context, next domain.UID) error {
	return setSeqValue(ctx, s.tx, "issuer_balances_uid_seq", next)
}

func (s *IssuerBalancesStore) CloseLive(ctx context.Context, keys []domain.AddressKey, firstUIDs []domain.UID) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE issuer_balances SET superseded_by = u.first_uid
		FROM unnest($1::text[], $2::bigint[]) AS u(address, first_uid)
		WHERE issuer_balances.address = u.address AND issuer_balances.superseded_by = $3`,
		keysToStrings(keys), uidsToInt64s(firstUIDs), int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: issuer_balances CloseLive: %w", err)
	}
	return nil
}

func (s *IssuerBalancesStore) InsertRows(ctx context.Context, rows []*domain.IssuerBalanceRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO issuer_balances (uid, superseded_by, block_uid, address, regular_balance)
			VALUES ($1,$2,$3,$4,$5)`,
			int64(r.UID), int64(r.SupersededBy), int64(r.BlockUID),
			domain.EscapeNulls(string(r.Key)), r.Payload.RegularBalance)
	}
	return execBatch(ctx, s.tx, batch, "issuer_balances InsertRows")
}

func (s *IssuerBalancesStore) DeleteFrom(ctx context.Context, blockUID domain.UID) ([]domain.AddressKey, error) {
	rows, err := s.tx.Query(ctx, `DELETE FROM issuer_balances WHERE block_uid > $1 RETURNING address`, int64(blockUID))
	if err != nil {
		return nil, fmt.Errorf("projection: issuer_balances DeleteFrom: %w", err)
	}
	defer rows.Close()
	return scanDistinctKeys(rows, func(a string) domain.AddressKey { return domain.AddressKey(a) })
}

func (s *IssuerBalancesStore) ReopenLatest(ctx context.Context, keys []domain.AddressKey) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE issuer_balances SET superseded_by = $2
		FROM (
			SELECT DISTINCT ON (address) address, uid FROM issuer_balances
			WHERE address = ANY($1::text[])
			ORDER BY address, uid DESC
		) latest
		WHERE issuer_balances.address = latest.address AND issuer_balances.uid = latest.uid`,
		keysToStrings(keys), int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: issuer_balances ReopenLatest: %w", err)
	}
	return nil
}

// ReadByAddress returns the live regular balance for address, or nil if
// this address has no recorded balance yet (spec §4.2.3 step 4: sponsor
// balance attribution needs the issuer's current balance).
func (s *IssuerBalancesStore) ReadByAddress(ctx context.Context, address string) (*domain.IssuerBalanceRow, error) {
	row := s.tx.QueryRow(ctx, `
		SELECT uid, superseded_by, block_uid, address, regular_balance
		FROM issuer_balances WHERE address = $1 AND superseded_by = $2`, address, int64(domain.MaxUID))
	var r domain.IssuerBalanceRow
	var uid, superseded, blockUID int64
	var addr string
	if err := row.Scan(&uid, &superseded, &blockUID, &addr, &r.Payload.RegularBalance); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("projection: issuer_balances ReadByAddress: %w", err)
	}
	r.UID, r.SupersededBy, r.BlockUID, r.Key = domain.UID(uid), domain.UID(superseded), domain.UID(blockUID), domain.AddressKey(addr)
	return &r, nil
}

// KnownIssuer reports whether address already has a live issuer_balances
// row (spec §4.2.3 step 2: the "current set of known issuers" that, unioned
// with issuers appearing in this batch's own asset updates, gates which
// balance changes get written).
func (s *IssuerBalancesStore) KnownIssuer(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM issuer_balances WHERE address = $1 AND superseded_by = $2)`,
		address, int64(domain.MaxUID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("projection: issuer_balances KnownIssuer: %w", err)
	}
	return exists, nil
}

// OutLeasingsStore is the pgx-backed TemporalStore[AddressKey,
// *domain.OutLeasingRow] and RollbackStore[AddressKey] over the
// out_leasings table (spec §3.4, §6.1).
type OutLeasingsStore struct {
	tx pgx.Tx
}

func NewOutLeasingsStore(tx pgx.Tx) *OutLeasingsStore { return &OutLeasingsStore{tx: tx} }

func (s *OutLeasingsStore) NextUID(ctx context.Context) (domain.UID, error) {
	return nextSeqValue(ctx, s.tx, "out_leasings_uid_seq")
}

func (s *OutLeasingsStore) AdvanceSequence(ctx context.Context, next domain.UID) error {
	return setSeqValue(ctx, s.tx, "out_leasings_uid_seq", next)
}

func (s *OutLeasingsStore) CloseLive(ctx context.Context, keys []domain.AddressKey, firstUIDs []domain.UID) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE out_leasings SET superseded_by = u.first_uid
		FROM unnest($1::text[], $2::bigint[]) AS u(address, first_uid)
		WHERE out_leasings.address = u.address AND out_leasings.superseded_by = $3`,
		keysToStrings(keys), uidsToInt64s(firstUIDs), int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: out_leasings CloseLive: %w", err)
	}
	return nil
}

func (s *OutLeasingsStore) InsertRows(ctx context.Context, rows []*domain.OutLeasingRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO out_leasings (uid, superseded_by, block_uid, address, amount)
			VALUES ($1,$2,$3,$4,$5)`,
			int64(r.UID), int64(r.SupersededBy), int64(r.BlockUID),
			domain.EscapeNulls(string(r.Key)), r.Payload.Amount)
	}
	return execBatch(ctx, s.tx, batch, "out_leasings InsertRows")
}

func (s *OutLeasingsStore) DeleteFrom(ctx context.Context, blockUID domain.UID) ([]domain.AddressKey, error) {
	rows, err := s.tx.Query(ctx, `DELETE FROM out_leasings WHERE block_uid > $1 RETURNING address`, int64(blockUID))
	if err != nil {
		return nil, fmt.Errorf("projection: out_leasings DeleteFrom: %w", err)
	}
	defer rows.Close()
	return scanDistinctKeys(rows, func(a string) domain.AddressKey { return domain.AddressKey(a) })
}

func (s *OutLeasingsStore) ReopenLatest(ctx context.Context, keys []domain.AddressKey) error {
	_, err := s.tx.Exec(ctx, `
		UPDATE out_leasings SET superseded_by = $2
		FROM (
			SELECT DISTINCT ON (address) address, uid FROM out_leasings
			WHERE address = ANY($1::text[])
			ORDER BY address, uid DESC
		) latest
		WHERE out_leasings.address = latest.address AND out_leasings.uid = latest.uid`,
		keysToStrings(keys), int64(domain.MaxUID))
	if err != nil {
		return fmt.Errorf("projection: out_leasings ReopenLatest: %w", err)
	}
	return nil
}

// ReadByAddress returns the live out-leasing total for address, or nil.
func (s *OutLeasingsStore) ReadByAddress(ctx context.Context, address string) (*domain.OutLeasingRow, error) {
	row := s.tx.QueryRow(ctx, `
		SELECT uid, superseded_by, block_uid, address, amount
		FROM out_leasings WHERE address = $1 AND superseded_by = $2`, address, int64(domain.MaxUID))
	var r domain.OutLeasingRow
	var uid, superseded, blockUID int64
	var addr string
	if err := row.Scan(&uid, &superseded, &blockUID, &addr, &r.Payload.Amount); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("projection: out_leasings ReadByAddress: %w", err)
	}
	r.UID, r.SupersededBy, r.BlockUID, r.Key = domain.UID(uid), domain.UID(superseded), domain.UID(blockUID), domain.AddressKey(addr)
	return &r, nil
}

var (
	_ TemporalStore[domain.AddressKey, *domain.IssuerBalanceRow] = (*IssuerBalancesStore)(nil)
	_ RollbackStore[domain.AddressKey]                            = (*IssuerBalancesStore)(nil)
	_ TemporalStore[domain.AddressKey, *domain.OutLeasingRow]    = (*OutLeasingsStore)(nil)
	_ RollbackStore[domain.AddressKey]                            = (*OutLeasingsStore)(nil)
)
