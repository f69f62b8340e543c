package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesplatform/asset-catalog/internal/domain"
	"github.com/wavesplatform/asset-catalog/internal/updatestream"
)

func TestExtractBaseAssetUpdatesSyntheticAndFull(t *testing.T) {
	qty := int64(42)
	items := []appendItem{
		{
			ID:                      "B1",
			Height:                  100,
			TimeStamp:               time.Unix(1000, 0),
			UpdatedNativeCoinAmount: &qty,
			Txs: []updatestream.Tx{
				{
					ID:        "tx1",
					TimeStamp: time.Unix(1001, 0),
					StateUpdate: updatestream.StateUpdate{
						Assets: []updatestream.AssetStateUpdate{
							{After: &updatestream.AssetDescription{AssetID: []byte{1, 2, 3}, Name: "Alpha"}},
							{After: nil}, // before-only change, no After: must be skipped
						},
					},
				},
			},
		},
	}

	sources := extractBaseAssetUpdates(items)
	require.Len(t, sources, 2)
	assert.Equal(t, domain.AssetKey(domain.WavesAssetID), sources[0].Key)
	assert.Equal(t, &qty, sources[0].Synthetic)
	assert.Equal(t, int32(100), sources[0].Height)

	assert.Nil(t, sources[1].Synthetic)
	require.NotNil(t, sources[1].Full)
	assert.Equal(t, "Alpha", sources[1].Full.Name)
}

func TestItemTimeStampFallsBackToTxThenNow(t *testing.T) {
	withOwnStamp := appendItem{TimeStamp: time.Unix(5, 0)}
	assert.Equal(t, time.Unix(5, 0), itemTimeStamp(withOwnStamp))

	withTxStamp := appendItem{Txs: []updatestream.Tx{{TimeStamp: time.Unix(7, 0)}}}
	assert.Equal(t, time.Unix(7, 0), itemTimeStamp(withTxStamp))

	bare := appendItem{}
	assert.False(t, itemTimeStamp(bare).IsZero())
}

func TestAssetPayloadFromDescriptionSponsorshipAndIssuer(t *testing.T) {
	pk := []byte("a deterministic fake public key.")
	d := &updatestream.AssetDescription{
		Name:        "Alpha\x00",
		Description: "desc",
		Issuer:      pk,
		Decimals:    8,
		Reissuable:  true,
		Volume:      1000,
		Sponsorship: 0,
	}
	ts := time.Unix(1, 0)
	p := assetPayloadFromDescription(d, ts, 'W')
	assert.Equal(t, `Alpha\0`, p.Name)
	assert.Nil(t, p.MinSponsoredFee)
	assert.Equal(t, domain.DeriveAddress(pk, 'W'), p.Issuer)

	d.Sponsorship = 5
	p = assetPayloadFromDescription(d, ts, 'W')
	require.NotNil(t, p.MinSponsoredFee)
	assert.Equal(t, int64(5), *p.MinSponsoredFee)
}

func TestExtractDataEntryUpdatesFiltersToOracleAddress(t *testing.T) {
	oraclePK := []byte("oracle-address-bytes-0123456789")
	otherAddr := []byte("someone-else-address-bytes-xxxx")
	oracleAddress := domain.EncodeAddressBytes(oraclePK)

	items := []appendItem{
		{
			StateUpdate: updatestream.StateUpdate{
				DataEntries: []updatestream.DataEntryChange{
					{Address: oraclePK, DataEntry: &updatestream.DataEntryPayload{
						Key:   "status_<assetA>",
						Value: updatestream.DataEntryValue{Kind: updatestream.DataEntryInt, Int: 2},
					}},
					{Address: otherAddr, DataEntry: &updatestream.DataEntryPayload{
						Key:   "status_<assetB>",
						Value: updatestream.DataEntryValue{Kind: updatestream.DataEntryInt, Int: 2},
					}},
				},
			},
		},
	}

	rows, itemIndexes := extractDataEntryUpdates(items, oracleAddress)
	require.Len(t, rows, 1)
	require.Len(t, itemIndexes, 1)
	assert.Equal(t, 0, itemIndexes[0])
	assert.Equal(t, oracleAddress, rows[0].Key.Address)
	assert.Equal(t, "status_<assetA>", rows[0].Key.Key)
	require.NotNil(t, rows[0].Payload.RelatedAssetID)
	assert.Equal(t, "assetA", *rows[0].Payload.RelatedAssetID)
	require.NotNil(t, rows[0].Payload.IntVal)
	assert.Equal(t, int64(2), *rows[0].Payload.IntVal)
}

func TestExtractIssuerBalanceOccurrencesSkipsNonWavesAndUnchanged(t *testing.T) {
	addr := []byte("addr-bytes-0000000000000000000a")
	items := []appendItem{
		{
			StateUpdate: updatestream.StateUpdate{
				Balances: []updatestream.BalanceUpdate{
					{Address: addr, AmountBefore: 100, AmountAfter: &updatestream.AssetAmount{Amount: 100}}, // unchanged
					{Address: addr, AmountBefore: 100, AmountAfter: &updatestream.AssetAmount{AssetID: []byte{9}, Amount: 200}}, // non-waves
					{Address: addr, AmountBefore: 100, AmountAfter: &updatestream.AssetAmount{Amount: 300}},
				},
			},
		},
	}
	occs := extractIssuerBalanceOccurrences(items)
	require.Len(t, occs, 1)
	assert.Equal(t, int64(300), occs[0].Amount)
}

func TestCollapseLastWriteWinsKeepsLastPerAddressInOrder(t *testing.T) {
	occs := []balanceOccurrence{
		{ItemIndex: 0, Address: "A", Amount: 1},
		{ItemIndex: 1, Address: "B", Amount: 2},
		{ItemIndex: 2, Address: "A", Amount: 3},
	}
	collapsed := collapseLastWriteWins(occs)
	require.Len(t, collapsed, 2)
	assert.Equal(t, domain.AddressKey("A"), collapsed[0].Address)
	assert.Equal(t, int64(3), collapsed[0].Amount)
	assert.Equal(t, domain.AddressKey("B"), collapsed[1].Address)
}

func TestExtractOutLeasingOccurrencesKeepsOnlyChanged(t *testing.T) {
	addr := []byte("addr-bytes-0000000000000000000b")
	items := []appendItem{
		{
			StateUpdate: updatestream.StateUpdate{
				LeasingForAddress: []updatestream.LeasingUpdate{
					{Address: addr, OutBefore: 10, OutAfter: 10},
					{Address: addr, OutBefore: 10, OutAfter: 20},
				},
			},
		},
	}
	occs := extractOutLeasingOccurrences(items)
	require.Len(t, occs, 1)
	assert.Equal(t, int64(20), occs[0].Amount)
}
