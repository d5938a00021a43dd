package escrow

// Stage marks the lifecycle position of an escrow record. ReadyExchange is the
// sole non-terminal stage; the stage check is the engine's only replay and
// double-spend defense, since records are never deleted.
type Stage uint8

const (
	StageReadyExchange Stage = 1
	StageExchanged     Stage = 2
	StageCancelTrade   Stage = 3
)

// StageFromCode decodes a stored stage code. Unknown codes are rejected as
// ErrInvalidStage.
func StageFromCode(code uint8) (Stage, error) {
	s := Stage(code)
	if !s.Valid() {
		return 0, ErrInvalidStage
	}
	return s, nil
}

// Code returns the persisted representation of the stage.
func (s Stage) Code() uint8 { return uint8(s) }

// Valid reports whether the stage value is within the supported range.
func (s Stage) Valid() bool {
	switch s {
	case StageReadyExchange, StageExchanged, StageCancelTrade:
		return true
	default:
		return false
	}
}

func (s Stage) String() string {
	switch s {
	case StageReadyExchange:
		return "ready_exchange"
	case StageExchanged:
		return "exchanged"
	case StageCancelTrade:
		return "cancel_trade"
	default:
		return "unknown"
	}
}

// TradeType classifies which legs of a trade are tokenized assets and which
// are native currency. It is resolved once at creation, purely from the shapes
// of the supplied accounts, and frozen into the record.
type TradeType uint8

const (
	// TradeAssetAsset swaps one tokenized asset for another.
	TradeAssetAsset TradeType = 1
	// TradeAssetNative locks a tokenized asset and receives native currency.
	TradeAssetNative TradeType = 2
	// TradeNativeAsset locks native currency and receives a tokenized asset.
	TradeNativeAsset TradeType = 3
)

// TradeTypeFromCode decodes a stored trade-type code. Unknown codes are
// rejected as ErrInvalidStage, matching the stage decoder.
func TradeTypeFromCode(code uint8) (TradeType, error) {
	t := TradeType(code)
	if !t.Valid() {
		return 0, ErrInvalidStage
	}
	return t, nil
}

// Code returns the persisted representation of the trade type.
func (t TradeType) Code() uint8 { return uint8(t) }

// Valid reports whether the trade type value is within the supported range.
func (t TradeType) Valid() bool {
	switch t {
	case TradeAssetAsset, TradeAssetNative, TradeNativeAsset:
		return true
	default:
		return false
	}
}

func (t TradeType) String() string {
	switch t {
	case TradeAssetAsset:
		return "asset_asset"
	case TradeAssetNative:
		return "asset_native"
	case TradeNativeAsset:
		return "native_asset"
	default:
		return "unknown"
	}
}

// EscrowRecord is the persisted definition of a single trade: its terms, the
// custody linkage needed to reconstruct authority proofs, the resolved trade
// type and the current stage. One record exists per (creator, order id) and is
// never deleted; the custody account, not the record, is closed on exit from
// ReadyExchange.
type EscrowRecord struct {
	Creator               [20]byte
	Partner               [20]byte
	SpecifyPartner        *[20]byte
	FeeAccount            [20]byte
	TradeMint             [20]byte
	ReceiveMint           [20]byte
	Vault                 [20]byte
	CreatorSendAccount    [20]byte
	CreatorReceiveAccount [20]byte
	CreatorSendMint       *[20]byte
	CreatorReceiveMint    *[20]byte
	TradeValue            uint64
	ReceiveValue          uint64
	Timestamp             uint64
	OrderID               uint64
	RecordBump            uint8
	VaultBump             uint8
	TradeType             TradeType
	Stage                 Stage
}

// Clone returns a deep copy of the record so callers can safely mutate the
// copy without affecting the stored instance.
func (r *EscrowRecord) Clone() *EscrowRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.SpecifyPartner != nil {
		v := *r.SpecifyPartner
		clone.SpecifyPartner = &v
	}
	if r.CreatorSendMint != nil {
		v := *r.CreatorSendMint
		clone.CreatorSendMint = &v
	}
	if r.CreatorReceiveMint != nil {
		v := *r.CreatorReceiveMint
		clone.CreatorReceiveMint = &v
	}
	return &clone
}

// SanitizeRecord validates the supplied record and returns a cloned instance.
// The function does not mutate the original value.
func SanitizeRecord(r *EscrowRecord) (*EscrowRecord, error) {
	if r == nil {
		return nil, ErrRecordNotFound
	}
	clone := r.Clone()
	if !clone.Stage.Valid() {
		return nil, ErrInvalidStage
	}
	if !clone.TradeType.Valid() {
		return nil, ErrInvalidStage
	}
	if clone.TradeValue == 0 || clone.ReceiveValue == 0 {
		return nil, ErrZeroValue
	}
	return clone, nil
}
