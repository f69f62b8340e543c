package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/domain"
	"github.com/wavesplatform/asset-catalog/internal/projection"
)

// applyCacheUpdates is spec §4.2.3 step 4: for every asset touched by this
// run's update streams, fold its AssetInfoUpdate deltas onto the cached
// record (or build one from scratch) and write both cache tiers back.
func (c *Consumer) applyCacheUpdates(ctx context.Context, assetUpdates map[string][]domain.AssetInfoUpdate) error {
	if len(assetUpdates) == 0 {
		return nil
	}

	ids := make([]string, 0, len(assetUpdates))
	for id := range assetUpdates {
		ids = append(ids, id)
	}

	cached, err := c.Caches.BlockchainData.MGet(ctx, ids)
	if err != nil {
		return fmt.Errorf("ingest: reading cached blockchain data: %w", err)
	}
	userDefined, err := c.Caches.UserDefined.MGet(ctx, ids)
	if err != nil {
		return fmt.Errorf("ingest: reading cached user-defined data: %w", err)
	}

	for _, id := range ids {
		var existing *domain.AssetBlockchainData
		if v, ok := cached[id]; ok {
			existing = &v
		}
		folded := foldAssetBlockchainData(id, existing, assetUpdates[id])
		if err := c.Caches.BlockchainData.Set(ctx, id, folded); err != nil {
			return fmt.Errorf("ingest: writing cached blockchain data for %s: %w", id, err)
		}

		if err := c.applyLabelDelta(ctx, id, folded.OraclesData, userDefined); err != nil {
			return err
		}
	}
	return nil
}

// foldAssetBlockchainData applies updates onto existing (or a fresh record
// if existing is nil) in order, per spec §4.2.3 step 4.
func foldAssetBlockchainData(assetID string, existing *domain.AssetBlockchainData, updates []domain.AssetInfoUpdate) domain.AssetBlockchainData {
	var data domain.AssetBlockchainData
	if existing != nil {
		data = *existing
	} else {
		data.ID = assetID
	}
	if data.OraclesData == nil {
		data.OraclesData = make(map[string][]domain.OracleDataEntry)
	}

	for _, u := range updates {
		if u.Base != nil {
			b := u.Base
			data.Name = b.Name
			data.Description = b.Description
			if b.Height != 0 {
				data.Height = b.Height
			}
			if !b.TimeStamp.IsZero() {
				data.TimeStamp = b.TimeStamp
			}
			data.Issuer = b.Issuer
			data.Precision = b.Precision
			data.Quantity = b.Quantity
			data.Reissuable = b.Reissuable
			data.Smart = b.Smart
			data.NFT = b.NFT
			data.MinSponsoredFee = b.MinSponsoredFee
		}
		if u.HasOraclesData() {
			data.OraclesData[u.OraclesDataOracle] = u.OraclesDataEntries
		}
		if u.SponsorRegularBalance != nil || u.SponsorOutLeasing != nil {
			if data.SponsorBalance == nil {
				data.SponsorBalance = &domain.SponsorBalance{}
			}
			if u.SponsorRegularBalance != nil {
				data.SponsorBalance.RegularBalance = *u.SponsorRegularBalance
			}
			if u.SponsorOutLeasing != nil {
				data.SponsorBalance.OutLeasing = *u.SponsorOutLeasing
			}
		}
	}
	return data
}

// applyLabelDelta re-derives the community-verified label from oraclesData
// and writes the user-defined cache entry if it changed (spec §4.5).
func (c *Consumer) applyLabelDelta(ctx context.Context, assetID string, oraclesData map[string][]domain.OracleDataEntry, userDefined map[string]domain.AssetUserDefinedData) error {
	delta := domain.ExtractCommunityVerifiedLabel(assetID, oraclesData)
	if delta.Op == domain.LabelOpNone {
		return nil
	}
	ud, ok := userDefined[assetID]
	if !ok {
		ud = domain.AssetUserDefinedData{AssetID: assetID}
	}
	ud.Apply(delta)
	if err := c.Caches.UserDefined.Set(ctx, assetID, ud); err != nil {
		return fmt.Errorf("ingest: writing cached user-defined data for %s: %w", assetID, err)
	}
	return nil
}

// refreshAssetCaches is spec §4.4 step 4: after a rollback, reconstruct
// AssetBlockchainData for each affected asset from the now-rolled-back
// projection state (rather than folding deltas, since the batch that
// produced them no longer exists) and re-derive its label. tx must be the
// same transaction the rollback's DB delete/reopen ran in, so a failure
// here aborts that rollback too (spec §5: one transaction covers both).
func (c *Consumer) refreshAssetCaches(ctx context.Context, tx pgx.Tx, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}
	assets := projection.NewAssetsStore(tx)
	entries := projection.NewDataEntriesStore(tx)
	balances := projection.NewIssuerBalancesStore(tx)
	leasings := projection.NewOutLeasingsStore(tx)
	blocks := projection.NewBlocksStore(tx)

	oraclesDataByAsset, err := readOraclesDataByAsset(ctx, entries, c.OracleAddress)
	if err != nil {
		return fmt.Errorf("ingest: reading oracle data: %w", err)
	}

	for _, id := range assetIDs {
		row, err := assets.ReadByID(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			// The asset itself no longer exists post-rollback; nothing to
			// recompute, and whoever reads the stale cache entry next will
			// see it corrected the moment the asset is reissued.
			continue
		}
		block, err := blocks.ReadByUID(ctx, row.BlockUID)
		if err != nil {
			return fmt.Errorf("ingest: resolving height for asset %s: %w", id, err)
		}

		data := domain.AssetBlockchainData{
			ID:              id,
			Name:            row.Payload.Name,
			Precision:       row.Payload.Precision,
			Description:     row.Payload.Description,
			Height:          block.Height,
			TimeStamp:       row.Payload.TimeStamp,
			Issuer:          row.Payload.Issuer,
			Quantity:        row.Payload.Quantity,
			Reissuable:      row.Payload.Reissuable,
			MinSponsoredFee: row.Payload.MinSponsoredFee,
			Smart:           row.Payload.Smart,
			NFT:             row.Payload.NFT,
			OraclesData:     oraclesDataByAsset[id],
		}
		if existing, ok, err := c.Caches.BlockchainData.Get(ctx, id); err == nil && ok {
			data.Ticker = existing.Ticker
		}

		if row.Payload.IsSponsored() {
			bal, err := balances.ReadByAddress(ctx, row.Payload.Issuer)
			if err != nil {
				return err
			}
			if bal == nil {
				return fmt.Errorf("%w: asset %s issuer %s", ErrInconsistentSponsor, id, row.Payload.Issuer)
			}
			lease, err := leasings.ReadByAddress(ctx, row.Payload.Issuer)
			if err != nil {
				return err
			}
			sponsor := &domain.SponsorBalance{RegularBalance: bal.Payload.RegularBalance}
			if lease != nil {
				sponsor.OutLeasing = lease.Payload.Amount
			}
			data.SponsorBalance = sponsor
		}

		if err := c.Caches.BlockchainData.Set(ctx, id, data); err != nil {
			return fmt.Errorf("ingest: writing cached blockchain data for %s: %w", id, err)
		}

		ud, ok, err := c.Caches.UserDefined.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("ingest: reading cached user-defined data for %s: %w", id, err)
		}
		if !ok {
			ud = domain.AssetUserDefinedData{AssetID: id}
		}
		ud.Apply(domain.ExtractCommunityVerifiedLabel(id, data.OraclesData))
		if err := c.Caches.UserDefined.Set(ctx, id, ud); err != nil {
			return fmt.Errorf("ingest: writing cached user-defined data for %s: %w", id, err)
		}
	}
	return nil
}
