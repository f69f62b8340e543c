package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/cache"
	"github.com/wavesplatform/asset-catalog/internal/projection"
	"github.com/wavesplatform/asset-catalog/internal/updatestream"
)

// ErrUnknownRollbackBlock is returned when a Rollback update names a block
// id the projection store has no record of (spec §4.6: fatal, desync).
var ErrUnknownRollbackBlock = errors.New("ingest: rollback references unknown block id")

// ErrInconsistentSponsor is returned when a sponsoring asset's issuer
// balance is required but absent (spec §7 consistency kind).
var ErrInconsistentSponsor = errors.New("ingest: sponsoring asset missing issuer balance")

// Consumer is the Consumer Orchestrator of spec §4.2: drives the main
// loop over a Source, writing through the projection Store and keeping
// both cache tiers coherent within the same transaction.
type Consumer struct {
	Source        updatestream.Source
	Store         *projection.Store
	Caches        *cache.Tiers
	OracleAddress string
	ChainID       byte
}

// Run executes spec §4.2.2's main loop until the source closes or ctx is
// canceled. The returned error is the process's terminal condition; there
// is no in-process retry (spec §4.6 — restart is external). Each batch is
// applied inside exactly one transaction (spec §4.2.2 steps 3/4, §5): every
// run in the batch — Blocks, Microblock, or Rollback — shares the same
// pgx.Tx, and the cache writes a Rollback triggers happen before that
// transaction commits.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		batch, err := c.Source.Recv(ctx)
		if err != nil {
			if errors.Is(err, updatestream.ErrStreamClosed) {
				return fmt.Errorf("ingest: update source closed: %w", err)
			}
			return fmt.Errorf("ingest: receiving batch: %w", err)
		}

		runs := foldRuns(batch.Updates)
		err = c.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			for _, r := range runs {
				if err := c.applyRun(ctx, tx, r); err != nil {
					return err
				}
				runsAppliedCounter.Inc(1)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("ingest: applying batch at height %d: %w", batch.LastHeight, err)
		}
		batchesAppliedCounter.Inc(1)
		log.Info("Applied batch", "lastHeight", batch.LastHeight, "updates", len(batch.Updates))
	}
}

func (c *Consumer) applyRun(ctx context.Context, tx pgx.Tx, r run) error {
	switch r.kind {
	case runBlocks:
		defer func(start time.Time) { appendTimer.UpdateSince(start) }(time.Now())
		if err := c.Store.SquashMicroblocks(ctx, tx); err != nil {
			return err
		}
		squashCounter.Inc(1)
		return c.applyAppends(ctx, tx, itemsFromBlocks(r.blocks))
	case runMicroblock:
		defer func(start time.Time) { appendTimer.UpdateSince(start) }(time.Now())
		return c.applyAppends(ctx, tx, []appendItem{itemFromMicroblock(r.microblock)})
	case runRollback:
		return c.applyRollback(ctx, tx, r.rollback)
	default:
		return fmt.Errorf("ingest: unknown run kind %d", r.kind)
	}
}

func (c *Consumer) applyRollback(ctx context.Context, tx pgx.Tx, rb updatestream.Rollback) error {
	defer func(start time.Time) { rollbackTimer.UpdateSince(start) }(time.Now())
	rollbackCounter.Inc(1)

	affected, blockUID, err := c.Store.RollbackByBlockID(ctx, tx, rb.BlockID)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnknownRollbackBlock, rb.BlockID, err)
	}

	log.Info("Rolled back", "blockId", rb.BlockID, "blockUid", blockUID, "assetsAffected", len(affected))
	return c.refreshAssetCaches(ctx, tx, affected)
}

// StartupResumeHeight implements spec §4.2.1's defensive startup rollback:
// if the projection has any history, roll it back to the previously
// handled height and refresh the caches for every asset that rollback
// touches, all inside the one transaction that also performs the DB
// rollback (spec §5), matching applyRollback. Returns the height to
// resume streaming from.
func (c *Consumer) StartupResumeHeight(ctx context.Context, startingHeight int32) (int32, error) {
	resume := startingHeight
	err := c.Store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		uid, height, ok, err := c.Store.PreviousHandledHeight(ctx, tx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		log.Info("Defensive rollback on startup", "height", height, "uid", uid)
		affected, err := c.Store.RollbackToUID(ctx, tx, uid)
		if err != nil {
			return err
		}
		if err := c.refreshAssetCaches(ctx, tx, affected); err != nil {
			return err
		}
		resume = height + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return resume, nil
}
