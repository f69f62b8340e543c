package domain

// DataType is the tagged-union discriminant of a data entry value
// (spec §3.3, §6.1).
type DataType string

const (
	DataTypeBin  DataType = "Bin"
	DataTypeBool DataType = "Bool"
	DataTypeInt  DataType = "Int"
	DataTypeStr  DataType = "Str"
)

// DataEntryKey is the natural key of the data_entries temporal table:
// (address, key) (spec §3.1).
type DataEntryKey struct {
	Address string
	Key     string
}

// DataEntryPayload is the tagged-union value of one data entry version plus
// the related-asset resolution (spec §6.1, §6.5).
type DataEntryPayload struct {
	DataType       *DataType
	BinVal         []byte
	BoolVal        *bool
	IntVal         *int64
	StrVal         *string
	RelatedAssetID *string
}

// DataEntryRow is one persisted version of a data entry (spec §3.1).
type DataEntryRow struct {
	UID          UID
	SupersededBy UID
	BlockUID     UID
	Key          DataEntryKey
	Payload      DataEntryPayload
}

// OracleDataEntry is the derived, cached shape of a data entry attributed to
// an asset (spec §3.3): asset_id, oracle_address, key, data_type, and
// exactly one populated value slot.
type OracleDataEntry struct {
	AssetID       string
	OracleAddress string
	Key           string
	DataType      DataType
	BinVal        []byte
	BoolVal       bool
	IntVal        int64
	StrVal        string
}
