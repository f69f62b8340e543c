package ingest

import (
	"time"

	"github.com/wavesplatform/asset-catalog/internal/domain"
	"github.com/wavesplatform/asset-catalog/internal/updatestream"
)

// assetUpdateSource is one occurrence of an asset being touched within a
// run, before it's resolved against the current live row (spec §4.2.3 step
// 2: "from synthetic native-coin quantity change ... and from each tx's
// state_update.assets[*].after"). A synthetic update only carries a new
// quantity; a tx-derived update carries the full chain description.
// ItemIndex identifies which block/microblock in the run produced it, so
// the caller can attach the right block_uid once rows are inserted.
type assetUpdateSource struct {
	ItemIndex int
	Key       domain.AssetKey
	Height    int32
	TimeStamp time.Time
	Synthetic *int64
	Full      *updatestream.AssetDescription
}

// balanceOccurrence is one raw balance or leasing write, before collapsing
// by last-write-wins (spec §4.2.3 step 2).
type balanceOccurrence struct {
	ItemIndex int
	Address   domain.AddressKey
	Amount    int64
}

// extractBaseAssetUpdates walks each item's synthetic native-coin amount
// (if any) followed by each tx's asset updates, in arrival order — the
// order the supersession algorithm will chain on (spec §4.3).
func extractBaseAssetUpdates(items []appendItem) []assetUpdateSource {
	var out []assetUpdateSource
	for i, item := range items {
		ts := itemTimeStamp(item)
		if item.UpdatedNativeCoinAmount != nil {
			out = append(out, assetUpdateSource{
				ItemIndex: i,
				Key:       domain.AssetKey(domain.WavesAssetID),
				Height:    item.Height,
				TimeStamp: ts,
				Synthetic: item.UpdatedNativeCoinAmount,
			})
		}
		for _, tx := range item.Txs {
			for _, a := range tx.StateUpdate.Assets {
				if a.After == nil {
					continue
				}
				out = append(out, assetUpdateSource{
					ItemIndex: i,
					Key:       domain.AssetKey(domain.AssetIDToString(a.After.AssetID)),
					Height:    item.Height,
					TimeStamp: tx.TimeStamp,
					Full:      a.After,
				})
			}
		}
	}
	return out
}

// itemTimeStamp is the item's own timestamp if it has one (a key block
// always does), or — for a microblock carrying only a synthetic update and
// no tx to borrow a timestamp from — the time the update was observed.
func itemTimeStamp(item appendItem) time.Time {
	if !item.TimeStamp.IsZero() {
		return item.TimeStamp
	}
	if len(item.Txs) > 0 {
		return item.Txs[0].TimeStamp
	}
	return time.Now().UTC()
}

// assetPayloadFromDescription maps the raw chain description to the
// projection's asset payload (spec §4.2.3 step 2): issuer address is
// derived from the raw public-key bytes, min_sponsored_fee is set only
// when sponsorship > 0, and text fields are null-escaped.
func assetPayloadFromDescription(d *updatestream.AssetDescription, ts time.Time, chainID byte) domain.AssetPayload {
	var minSponsoredFee *int64
	if d.Sponsorship > 0 {
		fee := d.Sponsorship
		minSponsoredFee = &fee
	}
	return domain.AssetPayload{
		Name:            domain.EscapeNulls(d.Name),
		Description:     domain.EscapeNulls(d.Description),
		TimeStamp:       ts,
		Issuer:          domain.DeriveAddress(d.Issuer, chainID),
		Precision:       d.Decimals,
		Smart:           d.ScriptInfo != nil,
		NFT:             d.NFT,
		Quantity:        d.Volume,
		Reissuable:      d.Reissuable,
		MinSponsoredFee: minSponsoredFee,
	}
}

// extractDataEntryUpdates walks each item's batch-level data entries
// followed by each tx's, keeping only writes at the configured oracle
// address (spec §4.2.3 step 2). Each write becomes its own supersession
// row — no in-batch collapsing, matching spec §4.3's chain-building over
// multiple updates to the same key. ItemIndex is carried in a parallel
// slice so the caller can attach block_uid once block rows are inserted.
func extractDataEntryUpdates(items []appendItem, oracleAddress string) ([]*domain.DataEntryRow, []int) {
	var rows []*domain.DataEntryRow
	var itemIndexes []int
	appendMatching := func(itemIdx int, address []byte, entry *updatestream.DataEntryPayload) {
		if entry == nil {
			return
		}
		if domain.EncodeAddressBytes(address) != oracleAddress {
			return
		}
		rows = append(rows, &domain.DataEntryRow{
			Key:     domain.DataEntryKey{Address: oracleAddress, Key: domain.EscapeNulls(entry.Key)},
			Payload: dataEntryPayload(entry),
		})
		itemIndexes = append(itemIndexes, itemIdx)
	}
	for i, item := range items {
		for _, e := range item.StateUpdate.DataEntries {
			appendMatching(i, e.Address, e.DataEntry)
		}
		for _, tx := range item.Txs {
			for _, e := range tx.StateUpdate.DataEntries {
				appendMatching(i, e.Address, e.DataEntry)
			}
		}
	}
	return rows, itemIndexes
}

func dataEntryPayload(entry *updatestream.DataEntryPayload) domain.DataEntryPayload {
	var dt domain.DataType
	p := domain.DataEntryPayload{}
	switch entry.Value.Kind {
	case updatestream.DataEntryBinary:
		dt = domain.DataTypeBin
		p.BinVal = entry.Value.Binary
	case updatestream.DataEntryBool:
		dt = domain.DataTypeBool
		b := entry.Value.Bool
		p.BoolVal = &b
	case updatestream.DataEntryInt:
		dt = domain.DataTypeInt
		i := entry.Value.Int
		p.IntVal = &i
	default:
		dt = domain.DataTypeStr
		s := domain.EscapeNulls(entry.Value.String)
		p.StrVal = &s
	}
	p.DataType = &dt
	if assetID, ok := domain.ParseRelatedAssetID(entry.Key); ok {
		p.RelatedAssetID = &assetID
	}
	return p
}

// extractIssuerBalanceOccurrences lists batch-level then per-tx
// native-coin balance changes in arrival order, keeping only changes where
// before != after (spec §4.2.3 step 2). Collapsing to last-write-wins per
// address happens in the orchestrator, once block_uids are known.
func extractIssuerBalanceOccurrences(items []appendItem) []balanceOccurrence {
	var out []balanceOccurrence
	for i, item := range items {
		consider := func(b updatestream.BalanceUpdate) {
			if b.AmountAfter == nil || !domain.IsWavesAssetID(domain.AssetIDToString(b.AmountAfter.AssetID)) {
				return
			}
			if b.AmountAfter.Amount == b.AmountBefore {
				return
			}
			out = append(out, balanceOccurrence{
				ItemIndex: i,
				Address:   domain.AddressKey(domain.EncodeAddressBytes(b.Address)),
				Amount:    b.AmountAfter.Amount,
			})
		}
		for _, b := range item.StateUpdate.Balances {
			consider(b)
		}
		for _, tx := range item.Txs {
			for _, b := range tx.StateUpdate.Balances {
				consider(b)
			}
		}
	}
	return out
}

// extractOutLeasingOccurrences lists batch-level then per-tx leasing
// changes in arrival order, keeping only out_after != out_before.
func extractOutLeasingOccurrences(items []appendItem) []balanceOccurrence {
	var out []balanceOccurrence
	for i, item := range items {
		consider := func(l updatestream.LeasingUpdate) {
			if l.OutAfter == l.OutBefore {
				return
			}
			out = append(out, balanceOccurrence{
				ItemIndex: i,
				Address:   domain.AddressKey(domain.EncodeAddressBytes(l.Address)),
				Amount:    l.OutAfter,
			})
		}
		for _, l := range item.StateUpdate.LeasingForAddress {
			consider(l)
		}
		for _, tx := range item.Txs {
			for _, l := range tx.StateUpdate.LeasingForAddress {
				consider(l)
			}
		}
	}
	return out
}

// collapseLastWriteWins keeps only the last occurrence per address,
// preserving the order in which each address was first superseded so the
// resulting writes stay deterministic (spec §4.2.3 step 2, §9).
func collapseLastWriteWins(occurrences []balanceOccurrence) []balanceOccurrence {
	latest := make(map[domain.AddressKey]balanceOccurrence, len(occurrences))
	var order []domain.AddressKey
	for _, occ := range occurrences {
		if _, seen := latest[occ.Address]; !seen {
			order = append(order, occ.Address)
		}
		latest[occ.Address] = occ
	}
	out := make([]balanceOccurrence, len(order))
	for i, addr := range order {
		out[i] = latest[addr]
	}
	return out
}
