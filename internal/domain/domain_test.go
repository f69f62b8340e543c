package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetIDToString(t *testing.T) {
	assert.Equal(t, WavesAssetID, AssetIDToString(nil))
	assert.Equal(t, WavesAssetID, AssetIDToString([]byte{}))
	assert.NotEqual(t, "", AssetIDToString([]byte{1, 2, 3}))
}

func TestIsWavesAssetID(t *testing.T) {
	assert.True(t, IsWavesAssetID("WAVES"))
	assert.False(t, IsWavesAssetID("3P8..."))
}

func TestDeriveAddressIsDeterministicAndChainScoped(t *testing.T) {
	pk := []byte("a deterministic fake public key.")

	mainnet := DeriveAddress(pk, 'W')
	testnet := DeriveAddress(pk, 'T')

	require.NotEmpty(t, mainnet)
	require.NotEmpty(t, testnet)
	assert.NotEqual(t, mainnet, testnet, "chain id must scope the derived address")
	assert.Equal(t, mainnet, DeriveAddress(pk, 'W'), "derivation must be pure")
}

func TestEscapeNulls(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"no nulls here", "no nulls here"},
		{"a\x00b", `a\0b`},
		{"\x00\x00", `\0\0`},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, EscapeNulls(c.in))
	}
}

func TestParseRelatedAssetID(t *testing.T) {
	id, ok := ParseRelatedAssetID("status_<abc123>")
	require.True(t, ok)
	assert.Equal(t, "abc123", id)

	id, ok = ParseRelatedAssetID("ticker_<abc123>")
	require.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = ParseRelatedAssetID("unrelated_key")
	assert.False(t, ok)

	_, ok = ParseRelatedAssetID("status_<>")
	assert.False(t, ok, "empty asset id inside the template is not a match")
}

func TestIsLabelSignalKey(t *testing.T) {
	assert.True(t, IsLabelSignalKey("status_<A>", "A"))
	assert.False(t, IsLabelSignalKey("status_<A>", "B"))
	assert.False(t, IsLabelSignalKey("ticker_<A>", "A"))
}

func TestExtractCommunityVerifiedLabel(t *testing.T) {
	t.Run("verified signal sets the label", func(t *testing.T) {
		snapshot := map[string][]OracleDataEntry{
			"oracle1": {{Key: "status_<A>", DataType: DataTypeInt, IntVal: 2}},
		}
		delta := ExtractCommunityVerifiedLabel("A", snapshot)
		assert.Equal(t, LabelOpSet, delta.Op)
	})

	t.Run("other int value clears the label", func(t *testing.T) {
		snapshot := map[string][]OracleDataEntry{
			"oracle1": {{Key: "status_<A>", DataType: DataTypeInt, IntVal: 3}},
		}
		delta := ExtractCommunityVerifiedLabel("A", snapshot)
		assert.Equal(t, LabelOpDelete, delta.Op)
	})

	t.Run("absent signal is a no-op", func(t *testing.T) {
		snapshot := map[string][]OracleDataEntry{
			"oracle1": {{Key: "unrelated", DataType: DataTypeStr, StrVal: "x"}},
		}
		delta := ExtractCommunityVerifiedLabel("A", snapshot)
		assert.Equal(t, LabelOpNone, delta.Op)
	})

	t.Run("non-int signal is a no-op", func(t *testing.T) {
		snapshot := map[string][]OracleDataEntry{
			"oracle1": {{Key: "status_<A>", DataType: DataTypeStr, StrVal: "2"}},
		}
		delta := ExtractCommunityVerifiedLabel("A", snapshot)
		assert.Equal(t, LabelOpNone, delta.Op)
	})

	t.Run("last oracle in sorted order wins", func(t *testing.T) {
		snapshot := map[string][]OracleDataEntry{
			"oracleB": {{Key: "status_<A>", DataType: DataTypeInt, IntVal: 2}},
			"oracleA": {{Key: "status_<A>", DataType: DataTypeInt, IntVal: 5}},
		}
		// sorted order is oracleA, oracleB; oracleB's Set should win since it
		// is encountered last.
		delta := ExtractCommunityVerifiedLabel("A", snapshot)
		assert.Equal(t, LabelOpSet, delta.Op)
	})
}

func TestAssetUserDefinedDataApply(t *testing.T) {
	d := AssetUserDefinedData{AssetID: "A"}
	d.Apply(LabelDelta{Label: LabelCommunityVerified, Op: LabelOpSet})
	_, ok := d.Labels[LabelCommunityVerified]
	assert.True(t, ok)

	d.Apply(LabelDelta{Label: LabelCommunityVerified, Op: LabelOpDelete})
	_, ok = d.Labels[LabelCommunityVerified]
	assert.False(t, ok)
}
