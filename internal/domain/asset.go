package domain

import "time"

// AssetKey is the natural key of the assets temporal table (spec §3.1).
type AssetKey string

// AssetPayload is the mutable facts carried by one version of an asset row
// (spec §6.1 assets table, minus the temporal bookkeeping columns).
type AssetPayload struct {
	Name            string
	Description     string
	TimeStamp       time.Time
	Issuer          string
	Precision       int32
	Smart           bool
	NFT             bool
	Quantity        int64
	Reissuable      bool
	MinSponsoredFee *int64 // nil unless sponsorship > 0 (spec §4.2.3)
}

// IsSponsored reports whether this asset version declares sponsorship.
func (p AssetPayload) IsSponsored() bool {
	return p.MinSponsoredFee != nil
}

// AssetRow is one persisted version of an asset (spec §3.1 temporal
// discipline): uid/block_uid/superseded_by plus the natural key and payload.
type AssetRow struct {
	UID          UID
	SupersededBy UID
	BlockUID     UID
	Key          AssetKey
	Payload      AssetPayload
}

// SponsorBalance is the sponsor's native-coin financial state attributed to
// a sponsoring asset (spec §3.3).
type SponsorBalance struct {
	RegularBalance int64
	OutLeasing     int64
}

// AssetBlockchainData is the derived, cached catalog record for an asset:
// all deterministic facts at the latest ingested height (spec §3.3).
type AssetBlockchainData struct {
	ID                string
	Name              string
	Ticker            string // predefined, out of ingest scope; carried through if already set
	Precision         int32
	Description       string
	Height            int32
	TimeStamp         time.Time
	Issuer            string
	Quantity          int64
	Reissuable        bool
	MinSponsoredFee   *int64
	Smart             bool
	NFT               bool
	OraclesData       map[string][]OracleDataEntry // oracle_address -> entries
	SponsorBalance    *SponsorBalance               // nil unless sponsored and balance known
}

// AssetInfoUpdate is one field-level delta derived from the four update
// streams of spec §4.2.3 step 3 and folded onto a cached AssetBlockchainData
// record (or used to construct one from scratch).
type AssetInfoUpdate struct {
	// Base fields, set when this update originates from an asset state
	// update. A zero Height/TimeStamp means "not touched by this update".
	Base *AssetBaseUpdate

	// OraclesData is set when this update originates from data entries for
	// this asset; it replaces the named oracle's entry list wholesale
	// (the caller has already collapsed duplicates within the batch).
	OraclesDataOracle string
	OraclesDataEntries []OracleDataEntry
	hasOraclesData     bool

	// SponsorRegularBalance / SponsorOutLeasing are set when this update
	// originates from an issuer balance or out-leasing change attributed to
	// this (sponsoring) asset's issuer.
	SponsorRegularBalance *int64
	SponsorOutLeasing     *int64
}

// HasOraclesData reports whether this update carries an oracle-data replacement.
func (u AssetInfoUpdate) HasOraclesData() bool { return u.hasOraclesData }

// NewOraclesDataUpdate builds an AssetInfoUpdate carrying a replacement
// entry list for one oracle address.
func NewOraclesDataUpdate(oracle string, entries []OracleDataEntry) AssetInfoUpdate {
	return AssetInfoUpdate{
		OraclesDataOracle:  oracle,
		OraclesDataEntries: entries,
		hasOraclesData:     true,
	}
}

// AssetBaseUpdate carries the mutable fields derived from a base asset
// state update (spec §4.2.3 step 3, "last-write-wins on mutable fields").
type AssetBaseUpdate struct {
	Name            string
	Description     string
	Height          int32
	TimeStamp       time.Time
	Issuer          string
	Precision       int32
	Quantity        int64
	Reissuable      bool
	Smart           bool
	NFT             bool
	MinSponsoredFee *int64
}
