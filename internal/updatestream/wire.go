package updatestream

import (
	"fmt"
	"time"
)

// Wire types mirror the logical schema of spec §6.3 in a JSON-friendly
// shape (see codec.go): a discriminated union for BlockchainUpdate, plain
// structs everywhere else. Converting to/from the domain-facing types in
// stream.go happens once, at the client boundary, so the rest of the
// codebase never sees the wire shape.

type wireBatch struct {
	LastHeight int32         `json:"lastHeight"`
	Updates    []wireUpdate  `json:"updates"`
}

type wireUpdateType string

const (
	wireTypeBlock      wireUpdateType = "block"
	wireTypeMicroblock wireUpdateType = "microblock"
	wireTypeRollback   wireUpdateType = "rollback"
)

type wireUpdate struct {
	Type       wireUpdateType  `json:"type"`
	Block      *wireBlock      `json:"block,omitempty"`
	Microblock *wireBlock      `json:"microblock,omitempty"`
	Rollback   *wireRollback   `json:"rollback,omitempty"`
}

type wireBlock struct {
	ID                      string        `json:"id"`
	TimeStamp               *time.Time    `json:"timeStamp,omitempty"`
	Height                  int32         `json:"height"`
	UpdatedNativeCoinAmount *int64        `json:"updatedNativeCoinAmount,omitempty"`
	StateUpdate             wireState     `json:"stateUpdate"`
	Txs                     []wireTx      `json:"txs,omitempty"`
}

type wireRollback struct {
	BlockID string `json:"blockId"`
}

type wireTx struct {
	ID          string    `json:"id"`
	TimeStamp   time.Time `json:"timeStamp"`
	StateUpdate wireState `json:"stateUpdate"`
}

type wireState struct {
	Assets            []wireAssetUpdate    `json:"assets,omitempty"`
	Balances          []wireBalanceUpdate  `json:"balances,omitempty"`
	LeasingForAddress []wireLeasingUpdate  `json:"leasingForAddress,omitempty"`
	DataEntries       []wireDataEntry      `json:"dataEntries,omitempty"`
}

type wireAssetUpdate struct {
	Before *wireAssetDescription `json:"before,omitempty"`
	After  *wireAssetDescription `json:"after,omitempty"`
}

type wireAssetDescription struct {
	AssetID     []byte  `json:"assetId"`
	Issuer      []byte  `json:"issuer"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Decimals    int32   `json:"decimals"`
	Reissuable  bool    `json:"reissuable"`
	Volume      int64   `json:"volume"`
	Sponsorship int64   `json:"sponsorship"`
	NFT         bool    `json:"nft"`
	Script      []byte  `json:"script,omitempty"`
}

type wireBalanceUpdate struct {
	Address      []byte         `json:"address"`
	AmountBefore int64          `json:"amountBefore"`
	AmountAfter  *wireAssetAmount `json:"amountAfter,omitempty"`
}

type wireAssetAmount struct {
	AssetID []byte `json:"assetId"`
	Amount  int64  `json:"amount"`
}

type wireLeasingUpdate struct {
	Address   []byte `json:"address"`
	OutBefore int64  `json:"outBefore"`
	OutAfter  int64  `json:"outAfter"`
	InBefore  int64  `json:"inBefore"`
	InAfter   int64  `json:"inAfter"`
}

type wireDataEntry struct {
	Address []byte        `json:"address"`
	Key     string        `json:"key"`
	Kind    string        `json:"kind"` // "binary" | "bool" | "int" | "string"
	Binary  []byte        `json:"binary,omitempty"`
	Bool    bool          `json:"bool,omitempty"`
	Int     int64         `json:"int,omitempty"`
	String  string        `json:"string,omitempty"`
}

func fromWireBatch(w wireBatch) (BatchWithLastHeight, error) {
	updates := make([]BlockchainUpdate, 0, len(w.Updates))
	for _, u := range w.Updates {
		switch u.Type {
		case wireTypeBlock:
			b, err := fromWireBlock(*u.Block)
			if err != nil {
				return BatchWithLastHeight{}, err
			}
			updates = append(updates, b)
		case wireTypeMicroblock:
			mb, err := fromWireBlock(*u.Microblock)
			if err != nil {
				return BatchWithLastHeight{}, err
			}
			updates = append(updates, Microblock{
				ID:                      mb.ID,
				Height:                  mb.Height,
				UpdatedNativeCoinAmount: mb.UpdatedNativeCoinAmount,
				StateUpdate:             mb.StateUpdate,
				Txs:                     mb.Txs,
			})
		case wireTypeRollback:
			updates = append(updates, Rollback{BlockID: u.Rollback.BlockID})
		}
	}
	return BatchWithLastHeight{LastHeight: w.LastHeight, Updates: updates}, nil
}

func fromWireBlock(w wireBlock) (Block, error) {
	var ts time.Time
	if w.TimeStamp != nil {
		ts = *w.TimeStamp
	}
	txs := make([]Tx, 0, len(w.Txs))
	for _, t := range w.Txs {
		state, err := fromWireState(t.StateUpdate)
		if err != nil {
			return Block{}, err
		}
		txs = append(txs, Tx{ID: t.ID, TimeStamp: t.TimeStamp, StateUpdate: state})
	}
	state, err := fromWireState(w.StateUpdate)
	if err != nil {
		return Block{}, err
	}
	return Block{
		ID:                      w.ID,
		TimeStamp:               ts,
		Height:                  w.Height,
		UpdatedNativeCoinAmount: w.UpdatedNativeCoinAmount,
		StateUpdate:             state,
		Txs:                     txs,
	}, nil
}

func fromWireState(w wireState) (StateUpdate, error) {
	assets := make([]AssetStateUpdate, 0, len(w.Assets))
	for _, a := range w.Assets {
		assets = append(assets, AssetStateUpdate{Before: fromWireAsset(a.Before), After: fromWireAsset(a.After)})
	}
	balances := make([]BalanceUpdate, 0, len(w.Balances))
	for _, b := range w.Balances {
		var after *AssetAmount
		if b.AmountAfter != nil {
			after = &AssetAmount{AssetID: b.AmountAfter.AssetID, Amount: b.AmountAfter.Amount}
		}
		balances = append(balances, BalanceUpdate{Address: b.Address, AmountBefore: b.AmountBefore, AmountAfter: after})
	}
	leasing := make([]LeasingUpdate, 0, len(w.LeasingForAddress))
	for _, l := range w.LeasingForAddress {
		leasing = append(leasing, LeasingUpdate(l))
	}
	entries := make([]DataEntryChange, 0, len(w.DataEntries))
	for _, e := range w.DataEntries {
		value, err := fromWireValue(e)
		if err != nil {
			return StateUpdate{}, err
		}
		entries = append(entries, DataEntryChange{
			Address: e.Address,
			DataEntry: &DataEntryPayload{
				Key:   e.Key,
				Value: value,
			},
		})
	}
	return StateUpdate{Assets: assets, Balances: balances, LeasingForAddress: leasing, DataEntries: entries}, nil
}

func fromWireAsset(w *wireAssetDescription) *AssetDescription {
	if w == nil {
		return nil
	}
	var script *ScriptInfo
	if len(w.Script) > 0 {
		script = &ScriptInfo{Script: w.Script}
	}
	return &AssetDescription{
		AssetID:     w.AssetID,
		Issuer:      w.Issuer,
		Name:        w.Name,
		Description: w.Description,
		Decimals:    w.Decimals,
		Reissuable:  w.Reissuable,
		Volume:      w.Volume,
		Sponsorship: w.Sponsorship,
		NFT:         w.NFT,
		ScriptInfo:  script,
	}
}

func fromWireValue(e wireDataEntry) (DataEntryValue, error) {
	switch e.Kind {
	case "binary":
		return DataEntryValue{Kind: DataEntryBinary, Binary: e.Binary}, nil
	case "bool":
		return DataEntryValue{Kind: DataEntryBool, Bool: e.Bool}, nil
	case "int":
		return DataEntryValue{Kind: DataEntryInt, Int: e.Int}, nil
	case "string":
		return DataEntryValue{Kind: DataEntryString, String: e.String}, nil
	default:
		return DataEntryValue{}, fmt.Errorf("%w: data entry %q has unrecognized kind %q", ErrInvalidUpdate, e.Key, e.Kind)
	}
}
