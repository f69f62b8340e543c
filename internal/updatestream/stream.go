// Package updatestream defines the abstract blockchain-updates stream the
// consumer reads from (spec §4.1, §6.3) and a concrete binding of it over
// gRPC (SPEC_FULL.md §D.1). The core ingest logic only depends on the
// Source interface in this file; nothing downstream cares whether a batch
// arrived over the wire or was synthesized by a test.
package updatestream

import (
	"context"
	"errors"
	"time"
)

// ErrStreamClosed is returned by Source.Recv when the upstream transport
// ends (spec §4.1). The caller treats this as fatal and terminates the
// ingest loop; restart is external (spec §4.6).
var ErrStreamClosed = errors.New("updatestream: upstream closed the blockchain-updates stream")

// ErrInvalidUpdate is returned by Source.Recv when a batch carries a
// well-formed envelope but an ill-formed field inside it — e.g. a data
// entry value tagged with a kind this codec doesn't recognize (spec §7:
// fatal, not recoverable in-process).
var ErrInvalidUpdate = errors.New("updatestream: invalid update field")

// Source is the consumed interface of spec §4.1: a restartable
// asynchronous pull returning batches in strict chain order, resumable
// from any height the caller has persisted.
type Source interface {
	// Recv blocks until the next batch is available, ctx is canceled, or the
	// upstream transport ends (ErrStreamClosed).
	Recv(ctx context.Context) (BatchWithLastHeight, error)

	// Close releases the underlying transport.
	Close() error
}

// SubscribeOptions parameterizes a Source per spec §4.1: from_height,
// batch_max_size, batch_max_time.
type SubscribeOptions struct {
	FromHeight   int32
	BatchMaxSize int
	BatchMaxTime time.Duration
}

// BatchWithLastHeight is one unit of work handed to the consumer: a run of
// updates plus the chain height the upstream had reached when it cut the
// batch (spec §4.1).
type BatchWithLastHeight struct {
	LastHeight int32
	Updates    []BlockchainUpdate
}

// BlockchainUpdate is the sum type of spec §4.1: Block, Microblock, or
// Rollback. Implementations are the concrete structs below; Kind reports
// which one without a type assertion at every call site.
type BlockchainUpdate interface {
	Kind() UpdateKind
}

// UpdateKind discriminates the BlockchainUpdate sum type.
type UpdateKind int

const (
	KindBlock UpdateKind = iota
	KindMicroblock
	KindRollback
)

// Block is a confirmed key block (spec §4.1). TimeStamp is always set.
type Block struct {
	ID                      string
	TimeStamp               time.Time
	Height                  int32
	UpdatedNativeCoinAmount *int64 // synthetic native-coin quantity update, if any
	StateUpdate             StateUpdate
	Txs                     []Tx
}

func (Block) Kind() UpdateKind { return KindBlock }

// Microblock is a provisional append to the last key block (spec §4.1).
// It has the same shape as Block but is never timestamped.
type Microblock struct {
	ID                      string
	Height                  int32
	UpdatedNativeCoinAmount *int64
	StateUpdate             StateUpdate
	Txs                     []Tx
}

func (Microblock) Kind() UpdateKind { return KindMicroblock }

// Rollback requests reverting the projection to the state as of the given
// block (spec §4.1, §4.4).
type Rollback struct {
	BlockID string
}

func (Rollback) Kind() UpdateKind { return KindRollback }

// Tx is one transaction's state update within a Block or Microblock
// (spec §6.3): per-tx asset/balance/leasing/data-entry changes that
// override the batch-level ones.
type Tx struct {
	ID          string
	TimeStamp   time.Time
	StateUpdate StateUpdate
}

// StateUpdate carries the raw facts extracted from a block, microblock, or
// transaction (spec §6.3).
type StateUpdate struct {
	Assets            []AssetStateUpdate
	Balances          []BalanceUpdate
	LeasingForAddress []LeasingUpdate
	DataEntries       []DataEntryChange
}

// AssetStateUpdate is one asset's before/after description (spec §6.3).
type AssetStateUpdate struct {
	Before *AssetDescription
	After  *AssetDescription
}

// AssetDescription is the raw, on-chain asset description (spec §6.3).
type AssetDescription struct {
	AssetID     []byte
	Issuer      []byte // raw public key bytes
	Name        string
	Description string
	Decimals    int32
	Reissuable  bool
	Volume      int64
	Sponsorship int64
	NFT         bool
	ScriptInfo  *ScriptInfo
}

// ScriptInfo carries a smart-asset's script bytes, if any.
type ScriptInfo struct {
	Script []byte
}

// BalanceUpdate is one address's native-coin balance change (spec §6.3).
type BalanceUpdate struct {
	Address      []byte
	AmountBefore int64
	AmountAfter  *AssetAmount // nil if the change wasn't for the native coin
}

// AssetAmount pairs a raw asset id with an amount.
type AssetAmount struct {
	AssetID []byte
	Amount  int64
}

// LeasingUpdate is one address's leasing totals change (spec §6.3).
type LeasingUpdate struct {
	Address   []byte
	OutBefore int64
	OutAfter  int64
	InBefore  int64
	InAfter   int64
}

// DataEntryChange is one data-entry write (spec §6.3).
type DataEntryChange struct {
	Address     []byte
	DataEntry   *DataEntryPayload
}

// DataEntryPayload is a key paired with a tagged-union value.
type DataEntryPayload struct {
	Key   string
	Value DataEntryValue
}

// DataEntryValue is the tagged union of a data entry's value
// (spec §6.3: Binary|Bool|Int|String).
type DataEntryValue struct {
	Kind   DataEntryValueKind
	Binary []byte
	Bool   bool
	Int    int64
	String string
}

type DataEntryValueKind int

const (
	DataEntryBinary DataEntryValueKind = iota
	DataEntryBool
	DataEntryInt
	DataEntryString
)
