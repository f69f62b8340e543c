package projection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

// nextSeqValue reads a sequence's next value without consuming it, so
// ApplySupersession can assign uids to rows it hasn't inserted yet and
// advance the sequence itself afterwards (spec §4.3 steps 1 and 6).
func nextSeqValue(ctx context.Context, tx pgx.Tx, seqName string) (domain.UID, error) {
	var next int64
	err := tx.QueryRow(ctx, `SELECT last_value + CASE WHEN is_called THEN 1 ELSE 0 END FROM `+pgx.Identifier{seqName}.Sanitize()).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("reading sequence %s: %w", seqName, err)
	}
	return domain.UID(next), nil
}

// setSeqValue advances seqName so its next value is exactly next.
func setSeqValue(ctx context.Context, tx pgx.Tx, seqName string, next domain.UID) error {
	_, err := tx.Exec(ctx, `SELECT setval($1, $2, false)`, seqName, int64(next))
	if err != nil {
		return fmt.Errorf("advancing sequence %s: %w", seqName, err)
	}
	return nil
}

// execBatch runs a batch and surfaces the first failing statement's error.
func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, label string) error {
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s: statement %d: %w", label, i, err)
		}
	}
	return nil
}

func keysToStrings[K ~string](keys []K) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func uidsToInt64s(uids []domain.UID) []int64 {
	out := make([]int64, len(uids))
	for i, u := range uids {
		out[i] = int64(u)
	}
	return out
}

// scanDistinctKeys drains a single-column text result set into the distinct
// set of keys it names, via conv, preserving first-seen order.
func scanDistinctKeys[K comparable](rows pgx.Rows, conv func(string) K) ([]K, error) {
	seen := make(map[K]struct{})
	var out []K
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		k := conv(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return out, nil
}
