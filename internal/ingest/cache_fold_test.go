package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesplatform/asset-catalog/internal/domain"
)

func TestFoldAssetBlockchainDataFromScratch(t *testing.T) {
	base := domain.AssetBaseUpdate{Name: "Alpha", Height: 100, Quantity: 1000, Reissuable: true}
	data := foldAssetBlockchainData("A", nil, []domain.AssetInfoUpdate{{Base: &base}})

	assert.Equal(t, "A", data.ID)
	assert.Equal(t, "Alpha", data.Name)
	assert.Equal(t, int32(100), data.Height)
	assert.Equal(t, int64(1000), data.Quantity)
	assert.NotNil(t, data.OraclesData)
	assert.Nil(t, data.SponsorBalance)
}

func TestFoldAssetBlockchainDataPreservesTickerAndUnsetFields(t *testing.T) {
	existing := &domain.AssetBlockchainData{ID: "A", Ticker: "ALPHA", Name: "Old", Height: 90, TimeStamp: time.Unix(9, 0)}
	base := domain.AssetBaseUpdate{Name: "New", Quantity: 5}
	data := foldAssetBlockchainData("A", existing, []domain.AssetInfoUpdate{{Base: &base}})

	assert.Equal(t, "ALPHA", data.Ticker, "ticker is out of ingest scope and must be carried through")
	assert.Equal(t, "New", data.Name)
	assert.Equal(t, int32(90), data.Height, "a zero Height in the update leaves the existing height in place")
	assert.Equal(t, time.Unix(9, 0), data.TimeStamp, "a zero TimeStamp in the update leaves the existing timestamp in place")
}

func TestFoldAssetBlockchainDataOraclesDataReplacesWholesale(t *testing.T) {
	existing := &domain.AssetBlockchainData{
		ID: "A",
		OraclesData: map[string][]domain.OracleDataEntry{
			"oracle1": {{Key: "status_<A>", DataType: domain.DataTypeInt, IntVal: 2}},
		},
	}
	update := domain.NewOraclesDataUpdate("oracle1", []domain.OracleDataEntry{
		{Key: "ticker_<A>", DataType: domain.DataTypeStr, StrVal: "ALPHA"},
	})
	data := foldAssetBlockchainData("A", existing, []domain.AssetInfoUpdate{update})

	require.Len(t, data.OraclesData["oracle1"], 1)
	assert.Equal(t, "ticker_<A>", data.OraclesData["oracle1"][0].Key)
}

func TestFoldAssetBlockchainDataSponsorBalanceMergesIndependently(t *testing.T) {
	regular := int64(700)
	data := foldAssetBlockchainData("A", nil, []domain.AssetInfoUpdate{{SponsorRegularBalance: &regular}})
	require.NotNil(t, data.SponsorBalance)
	assert.Equal(t, int64(700), data.SponsorBalance.RegularBalance)
	assert.Equal(t, int64(0), data.SponsorBalance.OutLeasing)

	leasing := int64(50)
	data = foldAssetBlockchainData("A", &data, []domain.AssetInfoUpdate{{SponsorOutLeasing: &leasing}})
	assert.Equal(t, int64(700), data.SponsorBalance.RegularBalance, "an out-leasing-only update must not clobber the regular balance")
	assert.Equal(t, int64(50), data.SponsorBalance.OutLeasing)
}

func TestFoldAssetBlockchainDataAppliesInOrderLastWriteWins(t *testing.T) {
	first := domain.AssetBaseUpdate{Name: "First", TimeStamp: time.Unix(1, 0)}
	second := domain.AssetBaseUpdate{Name: "Second", TimeStamp: time.Unix(2, 0)}
	data := foldAssetBlockchainData("A", nil, []domain.AssetInfoUpdate{{Base: &first}, {Base: &second}})
	assert.Equal(t, "Second", data.Name)
}
