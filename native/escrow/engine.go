package escrow

import (
	"tradep2p/core/events"
	"tradep2p/core/types"
	nativecommon "tradep2p/native/common"
)

const tradeModuleName = "trade"

// engineState is the persistence surface the engine mutates. The trie-backed
// state manager implements it; tests substitute an in-memory mock.
type engineState interface {
	EscrowPut(*EscrowRecord) error
	EscrowGet(creator [20]byte, orderID uint64) (*EscrowRecord, bool, error)
	AccountGet(addr [20]byte) (*types.Account, error)
	AccountPut(addr [20]byte, acc *types.Account) error
	AccountDelete(addr [20]byte) error
	TokenAccountGet(addr [20]byte) (*types.TokenAccount, bool, error)
	TokenAccountPut(addr [20]byte, acc *types.TokenAccount) error
	TokenAccountDelete(addr [20]byte) error
	MintGet(addr [20]byte) (*types.TokenMint, bool, error)
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine drives the escrow lifecycle: Create locks the creator's deposit into
// a derived custody account, Exchange settles both legs atomically and closes
// custody, Cancel returns the deposit to the creator. The engine performs all
// validation before the first write of an operation; the surrounding unit of
// work (see core.Ledger) guarantees that a failed operation leaves no partial
// state.
type Engine struct {
	state   engineState
	ledger  *ledger
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates an escrow engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.ledger = &ledger{state: state}
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause view consulted before every operation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: evt})
}

// CreateParams carries the creator-signed request to open a trade.
type CreateParams struct {
	// OrderID is chosen by the creator and must be unique per creator.
	OrderID uint64
	// SpecifyPartner optionally restricts who may exchange.
	SpecifyPartner *[20]byte
	// TradeValue is the amount the creator deposits into custody.
	TradeValue uint64
	// ReceiveValue is the amount the creator expects back.
	ReceiveValue uint64
	Timestamp    uint64
	// SendAccount funds the deposit: a token account for tokenized send legs,
	// the creator's own address for native send legs.
	SendAccount [20]byte
	// ReceiveAccount receives the counter-leg at exchange time.
	ReceiveAccount [20]byte
	// FeeAccount is carried on the record for off-engine fee handling.
	FeeAccount [20]byte
	// MintA describes the tokenized leg: the send leg when it is tokenized,
	// otherwise the receive leg. MintB is only consumed for asset-asset
	// trades and describes the receive leg.
	MintA *[20]byte
	MintB *[20]byte
}

// ExchangeAccounts carries the partner-signed accounts for Exchange.
type ExchangeAccounts struct {
	// CreatorReceiveAccount must match the account recorded at creation.
	CreatorReceiveAccount [20]byte
	// PartnerSendAccount funds the counter-leg: a token account for tokenized
	// receive legs, ignored for native receive legs (the partner's own
	// balance funds those).
	PartnerSendAccount [20]byte
	// PartnerReceiveAccount receives the custody balance for tokenized send
	// legs; native send legs pay out to the partner identity directly.
	PartnerReceiveAccount [20]byte
}

// Create resolves the trade type, derives and funds the custody account and
// persists the record in stage ReadyExchange. It fails if a record already
// exists for (creator, order id); records are never overwritten.
func (e *Engine) Create(creator [20]byte, params CreateParams) (*EscrowRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, tradeModuleName); err != nil {
		return nil, err
	}
	if params.TradeValue == 0 || params.ReceiveValue == 0 {
		return nil, ErrZeroValue
	}
	if creator == ([20]byte{}) || params.FeeAccount == ([20]byte{}) {
		return nil, ErrMissingParams
	}
	if _, exists, err := e.state.EscrowGet(creator, params.OrderID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrRecordExists
	}

	tradeType, err := resolveTradeType(e.state, creator, params.SendAccount, params.ReceiveAccount, params.MintA, params.MintB, params.TradeValue)
	if err != nil {
		return nil, err
	}

	recordAuth, err := DeriveCustody(RoleRecord, creator, params.OrderID)
	if err != nil {
		return nil, err
	}
	vaultAuth, err := DeriveCustody(RoleVault, creator, params.OrderID)
	if err != nil {
		return nil, err
	}

	record := &EscrowRecord{
		Creator:               creator,
		SpecifyPartner:        cloneOptional(params.SpecifyPartner),
		FeeAccount:            params.FeeAccount,
		Vault:                 vaultAuth.Address(),
		CreatorSendAccount:    params.SendAccount,
		CreatorReceiveAccount: params.ReceiveAccount,
		TradeValue:            params.TradeValue,
		ReceiveValue:          params.ReceiveValue,
		Timestamp:             params.Timestamp,
		OrderID:               params.OrderID,
		RecordBump:            recordAuth.Bump(),
		VaultBump:             vaultAuth.Bump(),
		TradeType:             tradeType,
		Stage:                 StageReadyExchange,
	}

	switch tradeType {
	case TradeAssetAsset:
		record.CreatorSendMint = cloneOptional(params.MintA)
		record.CreatorReceiveMint = cloneOptional(params.MintB)
		record.TradeMint = *params.MintA
		record.ReceiveMint = *params.MintB
		if err := e.createTokenVault(vaultAuth, recordAuth, *params.MintA); err != nil {
			return nil, err
		}
		if err := e.ledger.Transfer(AssetToken, params.SendAccount, vaultAuth.Address(), params.TradeValue, SignedBy(creator)); err != nil {
			return nil, err
		}
	case TradeAssetNative:
		record.CreatorSendMint = cloneOptional(params.MintA)
		record.TradeMint = *params.MintA
		if err := e.createTokenVault(vaultAuth, recordAuth, *params.MintA); err != nil {
			return nil, err
		}
		if err := e.ledger.Transfer(AssetToken, params.SendAccount, vaultAuth.Address(), params.TradeValue, SignedBy(creator)); err != nil {
			return nil, err
		}
	case TradeNativeAsset:
		record.CreatorReceiveMint = cloneOptional(params.MintA)
		record.ReceiveMint = *params.MintA
		if err := e.createNativeVault(vaultAuth); err != nil {
			return nil, err
		}
		if err := e.ledger.Transfer(AssetNative, creator, vaultAuth.Address(), params.TradeValue, SignedBy(creator)); err != nil {
			return nil, err
		}
	}

	if err := e.state.EscrowPut(record); err != nil {
		return nil, err
	}
	e.emit(NewTradeCreatedEvent(record))
	return record.Clone(), nil
}

// Exchange settles the trade: the partner's counter-accounts are re-validated
// against the frozen trade type, the custody balance moves to the partner, the
// partner's payment moves to the creator, and the custody account is closed
// with any residual refunded to the creator. Both legs must complete before
// the stage flips.
func (e *Engine) Exchange(creator [20]byte, orderID uint64, partner [20]byte, accounts ExchangeAccounts) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, tradeModuleName); err != nil {
		return err
	}
	if partner == ([20]byte{}) {
		return ErrMissingParams
	}
	record, err := e.loadRecord(creator, orderID)
	if err != nil {
		return err
	}
	if record.Stage != StageReadyExchange {
		return ErrInvalidStage
	}
	if record.SpecifyPartner != nil && *record.SpecifyPartner != partner {
		return ErrInvalidPartner
	}
	if accounts.CreatorReceiveAccount != record.CreatorReceiveAccount {
		return ErrInvalidAccount
	}

	recordAuth := CustodyAuthority(RoleRecord, creator, orderID, record.RecordBump)
	vaultAuth := CustodyAuthority(RoleVault, creator, orderID, record.VaultBump)

	switch record.TradeType {
	case TradeAssetAsset:
		if err := e.exchangeAssetAsset(record, partner, accounts, recordAuth); err != nil {
			return err
		}
	case TradeAssetNative:
		if err := e.exchangeAssetNative(record, partner, accounts, recordAuth); err != nil {
			return err
		}
	case TradeNativeAsset:
		if err := e.exchangeNativeAsset(record, partner, accounts, vaultAuth); err != nil {
			return err
		}
	default:
		return ErrInvalidTradeType
	}

	record.Partner = partner
	record.SpecifyPartner = &partner
	record.Stage = StageExchanged
	if err := e.state.EscrowPut(record); err != nil {
		return err
	}
	e.emit(NewTradeExchangedEvent(record))
	return nil
}

func (e *Engine) exchangeAssetAsset(record *EscrowRecord, partner [20]byte, accounts ExchangeAccounts, recordAuth Authority) error {
	partnerSend, ok, err := e.state.TokenAccountGet(accounts.PartnerSendAccount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAccount
	}
	partnerReceive, ok, err := e.state.TokenAccountGet(accounts.PartnerReceiveAccount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAccount
	}
	if !covers(partnerSend.Balance, record.ReceiveValue) {
		return ErrInsufficientFunds
	}
	if record.CreatorReceiveMint == nil || partnerSend.Mint != *record.CreatorReceiveMint {
		return ErrInvalidAccount
	}
	if record.CreatorSendMint == nil || partnerReceive.Mint != *record.CreatorSendMint {
		return ErrInvalidAccount
	}
	if partnerReceive.Owner != partner || partnerSend.Owner != partner {
		return ErrInvalidOwner
	}
	if err := e.ledger.Transfer(AssetToken, record.Vault, accounts.PartnerReceiveAccount, record.TradeValue, recordAuth); err != nil {
		return err
	}
	if err := e.ledger.Transfer(AssetToken, accounts.PartnerSendAccount, record.CreatorReceiveAccount, record.ReceiveValue, SignedBy(partner)); err != nil {
		return err
	}
	return e.ledger.Close(AssetToken, record.Vault, record.Creator, recordAuth)
}

func (e *Engine) exchangeAssetNative(record *EscrowRecord, partner [20]byte, accounts ExchangeAccounts, recordAuth Authority) error {
	partnerReceive, ok, err := e.state.TokenAccountGet(accounts.PartnerReceiveAccount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAccount
	}
	if record.CreatorSendMint == nil || partnerReceive.Mint != *record.CreatorSendMint {
		return ErrInvalidAccount
	}
	if partnerReceive.Owner != partner {
		return ErrInvalidOwner
	}
	partnerAcc, err := e.state.AccountGet(partner)
	if err != nil {
		return err
	}
	if partnerAcc == nil || !covers(partnerAcc.Balance, record.ReceiveValue) {
		return ErrInsufficientFunds
	}
	if err := e.ledger.Transfer(AssetToken, record.Vault, accounts.PartnerReceiveAccount, record.TradeValue, recordAuth); err != nil {
		return err
	}
	if err := e.ledger.Transfer(AssetNative, partner, record.Creator, record.ReceiveValue, SignedBy(partner)); err != nil {
		return err
	}
	return e.ledger.Close(AssetToken, record.Vault, record.Creator, recordAuth)
}

func (e *Engine) exchangeNativeAsset(record *EscrowRecord, partner [20]byte, accounts ExchangeAccounts, vaultAuth Authority) error {
	partnerSend, ok, err := e.state.TokenAccountGet(accounts.PartnerSendAccount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAccount
	}
	if record.CreatorReceiveMint == nil || partnerSend.Mint != *record.CreatorReceiveMint {
		return ErrInvalidMint
	}
	if partnerSend.Owner != partner {
		return ErrInvalidOwner
	}
	if !covers(partnerSend.Balance, record.ReceiveValue) {
		return ErrInsufficientFunds
	}
	if err := e.ledger.Transfer(AssetNative, record.Vault, partner, record.TradeValue, vaultAuth); err != nil {
		return err
	}
	if err := e.ledger.Transfer(AssetToken, accounts.PartnerSendAccount, record.CreatorReceiveAccount, record.ReceiveValue, SignedBy(partner)); err != nil {
		return err
	}
	return e.ledger.Close(AssetNative, record.Vault, record.Creator, vaultAuth)
}

// Cancel withdraws the custody balance back to the account that funded it and
// closes the custody account. Only the creator can cancel, and only while the
// record is in stage ReadyExchange.
func (e *Engine) Cancel(creator [20]byte, orderID uint64, sendAccount [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, tradeModuleName); err != nil {
		return err
	}
	record, err := e.loadRecord(creator, orderID)
	if err != nil {
		return err
	}
	if record.Stage != StageReadyExchange {
		return ErrInvalidStage
	}

	recordAuth := CustodyAuthority(RoleRecord, creator, orderID, record.RecordBump)
	vaultAuth := CustodyAuthority(RoleVault, creator, orderID, record.VaultBump)

	switch record.TradeType {
	case TradeNativeAsset:
		if record.CreatorSendAccount != creator {
			return ErrInvalidOwner
		}
		if err := e.ledger.Transfer(AssetNative, record.Vault, creator, record.TradeValue, vaultAuth); err != nil {
			return err
		}
		if err := e.ledger.Close(AssetNative, record.Vault, creator, vaultAuth); err != nil {
			return err
		}
	case TradeAssetAsset, TradeAssetNative:
		if record.CreatorSendAccount != sendAccount {
			return ErrInvalidOwner
		}
		if err := e.ledger.Transfer(AssetToken, record.Vault, sendAccount, record.TradeValue, recordAuth); err != nil {
			return err
		}
		if err := e.ledger.Close(AssetToken, record.Vault, creator, recordAuth); err != nil {
			return err
		}
	default:
		return ErrInvalidTradeType
	}

	record.Stage = StageCancelTrade
	if err := e.state.EscrowPut(record); err != nil {
		return err
	}
	e.emit(NewTradeCancelledEvent(record))
	return nil
}

func (e *Engine) loadRecord(creator [20]byte, orderID uint64) (*EscrowRecord, error) {
	record, ok, err := e.state.EscrowGet(creator, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRecordNotFound
	}
	return SanitizeRecord(record)
}

// createTokenVault materializes the tokenized custody account at the vault
// address. Its owner is the record identity, which is why token-leg custody
// transfers and closes are authorized by the record authority.
func (e *Engine) createTokenVault(vaultAuth, recordAuth Authority, mint [20]byte) error {
	if _, exists, err := e.state.TokenAccountGet(vaultAuth.Address()); err != nil {
		return err
	} else if exists {
		return ErrInvalidAccount
	}
	return e.state.TokenAccountPut(vaultAuth.Address(), &types.TokenAccount{
		Mint:  mint,
		Owner: recordAuth.Address(),
	})
}

// createNativeVault materializes the native custody account, controlled by
// the vault authority itself.
func (e *Engine) createNativeVault(vaultAuth Authority) error {
	acc, err := e.state.AccountGet(vaultAuth.Address())
	if err != nil {
		return err
	}
	return e.state.AccountPut(vaultAuth.Address(), ensureAccount(acc))
}

func cloneOptional(v *[20]byte) *[20]byte {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}
