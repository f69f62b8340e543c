package domain

// Versioned is the shape the generic supersession and rollback algorithms
// (internal/projection) operate over: any temporal row exposes its natural
// key and lets the algorithm assign uid/superseded_by before insertion
// (spec §3.1, §4.3). K is the row's natural-key type.
type Versioned[K comparable] interface {
	NaturalKey() K
	GetUID() UID
	SetUID(UID)
	GetSupersededBy() UID
	SetSupersededBy(UID)
}

func (r *AssetRow) NaturalKey() AssetKey      { return r.Key }
func (r *AssetRow) GetUID() UID               { return r.UID }
func (r *AssetRow) SetUID(u UID)              { r.UID = u }
func (r *AssetRow) GetSupersededBy() UID      { return r.SupersededBy }
func (r *AssetRow) SetSupersededBy(u UID)     { r.SupersededBy = u }

func (r *DataEntryRow) NaturalKey() DataEntryKey { return r.Key }
func (r *DataEntryRow) GetUID() UID              { return r.UID }
func (r *DataEntryRow) SetUID(u UID)             { r.UID = u }
func (r *DataEntryRow) GetSupersededBy() UID     { return r.SupersededBy }
func (r *DataEntryRow) SetSupersededBy(u UID)    { r.SupersededBy = u }

func (r *IssuerBalanceRow) NaturalKey() AddressKey { return r.Key }
func (r *IssuerBalanceRow) GetUID() UID            { return r.UID }
func (r *IssuerBalanceRow) SetUID(u UID)           { r.UID = u }
func (r *IssuerBalanceRow) GetSupersededBy() UID   { return r.SupersededBy }
func (r *IssuerBalanceRow) SetSupersededBy(u UID)  { r.SupersededBy = u }

func (r *OutLeasingRow) NaturalKey() AddressKey { return r.Key }
func (r *OutLeasingRow) GetUID() UID            { return r.UID }
func (r *OutLeasingRow) SetUID(u UID)           { r.UID = u }
func (r *OutLeasingRow) GetSupersededBy() UID   { return r.SupersededBy }
func (r *OutLeasingRow) SetSupersededBy(u UID)  { r.SupersededBy = u }

var (
	_ Versioned[AssetKey]      = (*AssetRow)(nil)
	_ Versioned[DataEntryKey]  = (*DataEntryRow)(nil)
	_ Versioned[AddressKey]    = (*IssuerBalanceRow)(nil)
	_ Versioned[AddressKey]    = (*OutLeasingRow)(nil)
)
