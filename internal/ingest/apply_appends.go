package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wavesplatform/asset-catalog/internal/domain"
	"github.com/wavesplatform/asset-catalog/internal/projection"
)

// applyAppends is spec §4.2.3: insert the run's block/microblock rows,
// resolve and write the four update streams through the shared
// supersession algorithm, derive the per-asset AssetInfoUpdate deltas, and
// keep both cache tiers coherent.
func (c *Consumer) applyAppends(ctx context.Context, tx pgx.Tx, items []appendItem) error {
	blockUIDs, err := c.insertBlocks(ctx, tx, items)
	if err != nil {
		return err
	}

	assets := projection.NewAssetsStore(tx)
	entries := projection.NewDataEntriesStore(tx)
	issuerBalances := projection.NewIssuerBalancesStore(tx)
	outLeasings := projection.NewOutLeasingsStore(tx)

	assetRows, baseUpdates, err := c.resolveAssetRows(ctx, assets, items, blockUIDs)
	if err != nil {
		return fmt.Errorf("ingest: resolving asset updates: %w", err)
	}
	if err := projection.ApplySupersession[domain.AssetKey](ctx, assets, assetRows); err != nil {
		return err
	}

	dataEntryRows := c.resolveDataEntryRows(items, blockUIDs)
	if err := projection.ApplySupersession[domain.DataEntryKey](ctx, entries, dataEntryRows); err != nil {
		return err
	}
	oraclesDataByAsset, err := readOraclesDataByAsset(ctx, entries, c.OracleAddress)
	if err != nil {
		return fmt.Errorf("ingest: reading oracle data: %w", err)
	}

	issuersInBatch := make(map[string]struct{}, len(baseUpdates))
	for _, u := range baseUpdates {
		issuersInBatch[u.Issuer] = struct{}{}
	}
	balanceRows, sponsoredBalanceOccs, err := c.resolveIssuerBalanceRows(ctx, issuerBalances, items, blockUIDs, issuersInBatch)
	if err != nil {
		return fmt.Errorf("ingest: resolving issuer balance updates: %w", err)
	}
	if err := projection.ApplySupersession[domain.AddressKey](ctx, issuerBalances, balanceRows); err != nil {
		return err
	}

	leasingRows, leasingOccs := resolveOutLeasingRows(items, blockUIDs)
	if err := projection.ApplySupersession[domain.AddressKey](ctx, outLeasings, leasingRows); err != nil {
		return err
	}

	assetUpdates := make(map[string][]domain.AssetInfoUpdate)
	for key, u := range baseUpdates {
		update := u
		assetUpdates[string(key)] = append(assetUpdates[string(key)], domain.AssetInfoUpdate{Base: &update})
	}
	for assetID, oracleEntries := range oraclesDataByAsset {
		assetUpdates[assetID] = append(assetUpdates[assetID], domain.NewOraclesDataUpdate(c.OracleAddress, oracleEntries))
	}
	if err := c.attributeSponsorUpdates(ctx, assets, assetUpdates, sponsoredBalanceOccs, leasingOccs); err != nil {
		return err
	}

	return c.applyCacheUpdates(ctx, assetUpdates)
}

// insertBlocks writes one blocks_microblocks row per item and returns the
// resulting uids in item order (spec §4.2.3 step 1).
func (c *Consumer) insertBlocks(ctx context.Context, tx pgx.Tx, items []appendItem) ([]domain.UID, error) {
	blocks := projection.NewBlocksStore(tx)
	uids := make([]domain.UID, len(items))
	for i, item := range items {
		uid, err := blocks.Insert(ctx, domain.BlockMicroblock{ID: item.ID, Height: item.Height, TimeStamp: item.TimeStamp})
		if err != nil {
			return nil, fmt.Errorf("ingest: inserting block/microblock row: %w", err)
		}
		uids[i] = uid
	}
	return uids, nil
}

// resolveAssetRows resolves each assetUpdateSource against the
// transaction's in-flight view of the assets table, carrying a synthetic
// native-coin update's unchanged fields forward from the current (or
// batch-prior) payload. It returns the insertable rows, in arrival order
// for ApplySupersession, plus the last-write-wins base update per asset
// (spec §4.2.3 steps 2-3).
func (c *Consumer) resolveAssetRows(ctx context.Context, assets *projection.AssetsStore, items []appendItem, blockUIDs []domain.UID) ([]*domain.AssetRow, map[domain.AssetKey]domain.AssetBaseUpdate, error) {
	sources := extractBaseAssetUpdates(items)
	rows := make([]*domain.AssetRow, 0, len(sources))
	current := make(map[domain.AssetKey]domain.AssetPayload, len(sources))

	for _, src := range sources {
		payload, ok := current[src.Key]
		if !ok {
			existing, err := assets.ReadByID(ctx, string(src.Key))
			if err != nil {
				return nil, nil, err
			}
			switch {
			case existing != nil:
				payload = existing.Payload
			case src.Key == domain.AssetKey(domain.WavesAssetID):
				payload = domain.AssetPayload{Name: domain.WavesName, Precision: domain.WavesPrecision}
			}
		}

		switch {
		case src.Full != nil:
			payload = assetPayloadFromDescription(src.Full, src.TimeStamp, c.ChainID)
		case src.Synthetic != nil:
			payload.Quantity = *src.Synthetic
			payload.TimeStamp = src.TimeStamp
		}
		current[src.Key] = payload

		rows = append(rows, &domain.AssetRow{Key: src.Key, Payload: payload, BlockUID: blockUIDs[src.ItemIndex]})
	}

	lastHeight := make(map[domain.AssetKey]int32, len(sources))
	for _, src := range sources {
		lastHeight[src.Key] = src.Height
	}

	baseUpdates := make(map[domain.AssetKey]domain.AssetBaseUpdate, len(current))
	for key, payload := range current {
		baseUpdates[key] = domain.AssetBaseUpdate{
			Name:            payload.Name,
			Description:     payload.Description,
			Height:          lastHeight[key],
			TimeStamp:       payload.TimeStamp,
			Issuer:          payload.Issuer,
			Precision:       payload.Precision,
			Quantity:        payload.Quantity,
			Reissuable:      payload.Reissuable,
			Smart:           payload.Smart,
			NFT:             payload.NFT,
			MinSponsoredFee: payload.MinSponsoredFee,
		}
	}
	return rows, baseUpdates, nil
}

// resolveDataEntryRows attaches each extracted oracle data-entry write to
// its item's block_uid.
func (c *Consumer) resolveDataEntryRows(items []appendItem, blockUIDs []domain.UID) []*domain.DataEntryRow {
	rows, itemIndexes := extractDataEntryUpdates(items, c.OracleAddress)
	for i, row := range rows {
		row.BlockUID = blockUIDs[itemIndexes[i]]
	}
	return rows
}

// readOraclesDataByAsset reads the oracle's full live entry set and groups
// it by related asset id (spec §4.2.3 step 3: "for each asset touched by
// data entries, build oracles_data"). Reading the live set rather than just
// this batch's writes keeps the replacement wholesale and correct even
// when only some of an asset's entries changed.
func readOraclesDataByAsset(ctx context.Context, entries *projection.DataEntriesStore, oracleAddress string) (map[string][]domain.OracleDataEntry, error) {
	rows, err := entries.ReadLiveByAddress(ctx, oracleAddress)
	if err != nil {
		return nil, err
	}
	return groupOracleEntriesByAsset(oracleAddress, rows), nil
}

func groupOracleEntriesByAsset(oracleAddress string, rows []*domain.DataEntryRow) map[string][]domain.OracleDataEntry {
	byAsset := make(map[string][]domain.OracleDataEntry)
	for _, r := range rows {
		if r.Payload.RelatedAssetID == nil {
			continue
		}
		assetID := *r.Payload.RelatedAssetID
		entry := domain.OracleDataEntry{
			AssetID:       assetID,
			OracleAddress: oracleAddress,
			Key:           r.Key.Key,
		}
		if r.Payload.DataType != nil {
			entry.DataType = *r.Payload.DataType
		}
		if r.Payload.BinVal != nil {
			entry.BinVal = r.Payload.BinVal
		}
		if r.Payload.BoolVal != nil {
			entry.BoolVal = *r.Payload.BoolVal
		}
		if r.Payload.IntVal != nil {
			entry.IntVal = *r.Payload.IntVal
		}
		if r.Payload.StrVal != nil {
			entry.StrVal = *r.Payload.StrVal
		}
		byAsset[assetID] = append(byAsset[assetID], entry)
	}
	return byAsset
}

// resolveIssuerBalanceRows keeps only native-coin balance changes for
// addresses already known as issuers — either by a live issuer_balances
// row or by issuing an asset touched in this very batch — collapsed to
// last-write-wins per address (spec §4.2.3 step 2). It also returns the
// (filtered, collapsed) occurrences for sponsor attribution.
func (c *Consumer) resolveIssuerBalanceRows(ctx context.Context, store *projection.IssuerBalancesStore, items []appendItem, blockUIDs []domain.UID, issuersInBatch map[string]struct{}) ([]*domain.IssuerBalanceRow, []balanceOccurrence, error) {
	collapsed := collapseLastWriteWins(extractIssuerBalanceOccurrences(items))

	var kept []balanceOccurrence
	for _, occ := range collapsed {
		if _, known := issuersInBatch[string(occ.Address)]; known {
			kept = append(kept, occ)
			continue
		}
		ok, err := store.KnownIssuer(ctx, string(occ.Address))
		if err != nil {
			return nil, nil, err
		}
		if ok {
			kept = append(kept, occ)
		}
	}

	rows := make([]*domain.IssuerBalanceRow, 0, len(kept))
	for _, occ := range kept {
		rows = append(rows, &domain.IssuerBalanceRow{
			Key:      occ.Address,
			Payload:  domain.IssuerBalancePayload{RegularBalance: occ.Amount},
			BlockUID: blockUIDs[occ.ItemIndex],
		})
	}
	return rows, kept, nil
}

func resolveOutLeasingRows(items []appendItem, blockUIDs []domain.UID) ([]*domain.OutLeasingRow, []balanceOccurrence) {
	collapsed := collapseLastWriteWins(extractOutLeasingOccurrences(items))
	rows := make([]*domain.OutLeasingRow, 0, len(collapsed))
	for _, occ := range collapsed {
		rows = append(rows, &domain.OutLeasingRow{
			Key:      occ.Address,
			Payload:  domain.OutLeasingPayload{Amount: occ.Amount},
			BlockUID: blockUIDs[occ.ItemIndex],
		})
	}
	return rows, collapsed
}

// attributeSponsorUpdates finds, for every changed issuer balance and
// out-leasing total, that address's live non-NFT sponsored assets and
// appends the attributed delta (spec §4.2.3 step 3, bullets 3-4).
func (c *Consumer) attributeSponsorUpdates(ctx context.Context, assets *projection.AssetsStore, assetUpdates map[string][]domain.AssetInfoUpdate, balanceOccs, leasingOccs []balanceOccurrence) error {
	for _, occ := range balanceOccs {
		sponsored, err := assets.ReadLiveSponsoredByIssuer(ctx, string(occ.Address))
		if err != nil {
			return err
		}
		amount := occ.Amount
		for _, assetID := range sponsored {
			assetUpdates[string(assetID)] = append(assetUpdates[string(assetID)], domain.AssetInfoUpdate{SponsorRegularBalance: &amount})
		}
	}
	for _, occ := range leasingOccs {
		sponsored, err := assets.ReadLiveSponsoredByIssuer(ctx, string(occ.Address))
		if err != nil {
			return err
		}
		amount := occ.Amount
		for _, assetID := range sponsored {
			assetUpdates[string(assetID)] = append(assetUpdates[string(assetID)], domain.AssetInfoUpdate{SponsorOutLeasing: &amount})
		}
	}
	return nil
}
