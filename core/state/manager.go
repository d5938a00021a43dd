package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"tradep2p/core/types"
	"tradep2p/native/escrow"
	"tradep2p/storage/trie"
)

var (
	accountPrefix      = []byte("account:")
	tokenAccountPrefix = []byte("token-account:")
	mintPrefix         = []byte("mint:")
	escrowRecordPrefix = []byte("escrow/record:")
)

// Manager reads and writes ledger state on a trie. It implements the escrow
// engine's state interface; every key is keccak-hashed before insertion.
type Manager struct {
	trie *trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

func accountKey(addr [20]byte) []byte {
	return prefixedKey(accountPrefix, addr[:])
}

func tokenAccountKey(addr [20]byte) []byte {
	return prefixedKey(tokenAccountPrefix, addr[:])
}

func mintKey(addr [20]byte) []byte {
	return prefixedKey(mintPrefix, addr[:])
}

func escrowRecordKey(creator [20]byte, orderID uint64) []byte {
	buf := make([]byte, 0, len(escrowRecordPrefix)+len(creator)+8)
	buf = append(buf, escrowRecordPrefix...)
	buf = append(buf, creator[:]...)
	var order [8]byte
	binary.LittleEndian.PutUint64(order[:], orderID)
	buf = append(buf, order[:]...)
	return ethcrypto.Keccak256(buf)
}

func prefixedKey(prefix, payload []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(payload))
	buf = append(buf, prefix...)
	buf = append(buf, payload...)
	return ethcrypto.Keccak256(buf)
}

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

type storedTokenAccount struct {
	Mint    [20]byte
	Owner   [20]byte
	Balance *big.Int
}

type storedMint struct {
	Symbol   string
	Decimals uint8
}

type storedRecord struct {
	Creator               [20]byte
	Partner               [20]byte
	SpecifySet            bool
	SpecifyPartner        [20]byte
	FeeAccount            [20]byte
	TradeMint             [20]byte
	ReceiveMint           [20]byte
	Vault                 [20]byte
	CreatorSendAccount    [20]byte
	CreatorReceiveAccount [20]byte
	SendMintSet           bool
	CreatorSendMint       [20]byte
	ReceiveMintSet        bool
	CreatorReceiveMint    [20]byte
	TradeValue            uint64
	ReceiveValue          uint64
	Timestamp             uint64
	OrderID               uint64
	RecordBump            uint8
	VaultBump             uint8
	TradeType             uint8
	Stage                 uint8
}

// AccountGet loads the native account at addr. Missing accounts materialize
// as zero-balance accounts, mirroring a ledger where any address may receive
// funds.
func (m *Manager) AccountGet(addr [20]byte) (*types.Account, error) {
	raw, err := m.trie.Get(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	balance := big.NewInt(0)
	if stored.Balance != nil {
		balance = new(big.Int).Set(stored.Balance)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: balance}, nil
}

// AccountPut persists the native account at addr.
func (m *Manager) AccountPut(addr [20]byte, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	balance := big.NewInt(0)
	if acc.Balance != nil {
		if acc.Balance.Sign() < 0 {
			return fmt.Errorf("state: negative account balance")
		}
		balance = new(big.Int).Set(acc.Balance)
	}
	raw, err := rlp.EncodeToBytes(&storedAccount{Nonce: acc.Nonce, Balance: balance})
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.trie.Update(accountKey(addr), raw)
}

// AccountDelete removes the native account at addr, if present.
func (m *Manager) AccountDelete(addr [20]byte) error {
	return m.trie.Delete(accountKey(addr))
}

// TokenAccountGet loads the token account at addr. The boolean reports
// whether one exists, which is how the resolver decides whether an address
// "parses as" a token account.
func (m *Manager) TokenAccountGet(addr [20]byte) (*types.TokenAccount, bool, error) {
	raw, err := m.trie.Get(tokenAccountKey(addr))
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	var stored storedTokenAccount
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode token account: %w", err)
	}
	balance := big.NewInt(0)
	if stored.Balance != nil {
		balance = new(big.Int).Set(stored.Balance)
	}
	return &types.TokenAccount{Mint: stored.Mint, Owner: stored.Owner, Balance: balance}, true, nil
}

// TokenAccountPut persists the token account at addr.
func (m *Manager) TokenAccountPut(addr [20]byte, acc *types.TokenAccount) error {
	if acc == nil {
		return fmt.Errorf("state: nil token account")
	}
	balance := big.NewInt(0)
	if acc.Balance != nil {
		if acc.Balance.Sign() < 0 {
			return fmt.Errorf("state: negative token balance")
		}
		balance = new(big.Int).Set(acc.Balance)
	}
	raw, err := rlp.EncodeToBytes(&storedTokenAccount{Mint: acc.Mint, Owner: acc.Owner, Balance: balance})
	if err != nil {
		return fmt.Errorf("state: encode token account: %w", err)
	}
	return m.trie.Update(tokenAccountKey(addr), raw)
}

// TokenAccountDelete removes the token account at addr, if present.
func (m *Manager) TokenAccountDelete(addr [20]byte) error {
	return m.trie.Delete(tokenAccountKey(addr))
}

// MintRegister records an asset-type descriptor under its address. Accounts
// only "parse as" mints once registered.
func (m *Manager) MintRegister(addr [20]byte, mint *types.TokenMint) error {
	if mint == nil {
		return fmt.Errorf("state: nil mint")
	}
	raw, err := rlp.EncodeToBytes(&storedMint{Symbol: mint.Symbol, Decimals: mint.Decimals})
	if err != nil {
		return fmt.Errorf("state: encode mint: %w", err)
	}
	return m.trie.Update(mintKey(addr), raw)
}

// MintGet loads the asset-type descriptor registered at addr.
func (m *Manager) MintGet(addr [20]byte) (*types.TokenMint, bool, error) {
	raw, err := m.trie.Get(mintKey(addr))
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	var stored storedMint
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode mint: %w", err)
	}
	return &types.TokenMint{Symbol: stored.Symbol, Decimals: stored.Decimals}, true, nil
}

// EscrowPut persists the escrow record under its (creator, order id) key.
func (m *Manager) EscrowPut(r *escrow.EscrowRecord) error {
	sanitized, err := escrow.SanitizeRecord(r)
	if err != nil {
		return err
	}
	stored := &storedRecord{
		Creator:               sanitized.Creator,
		Partner:               sanitized.Partner,
		FeeAccount:            sanitized.FeeAccount,
		TradeMint:             sanitized.TradeMint,
		ReceiveMint:           sanitized.ReceiveMint,
		Vault:                 sanitized.Vault,
		CreatorSendAccount:    sanitized.CreatorSendAccount,
		CreatorReceiveAccount: sanitized.CreatorReceiveAccount,
		TradeValue:            sanitized.TradeValue,
		ReceiveValue:          sanitized.ReceiveValue,
		Timestamp:             sanitized.Timestamp,
		OrderID:               sanitized.OrderID,
		RecordBump:            sanitized.RecordBump,
		VaultBump:             sanitized.VaultBump,
		TradeType:             sanitized.TradeType.Code(),
		Stage:                 sanitized.Stage.Code(),
	}
	if sanitized.SpecifyPartner != nil {
		stored.SpecifySet = true
		stored.SpecifyPartner = *sanitized.SpecifyPartner
	}
	if sanitized.CreatorSendMint != nil {
		stored.SendMintSet = true
		stored.CreatorSendMint = *sanitized.CreatorSendMint
	}
	if sanitized.CreatorReceiveMint != nil {
		stored.ReceiveMintSet = true
		stored.CreatorReceiveMint = *sanitized.CreatorReceiveMint
	}
	raw, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("state: encode escrow record: %w", err)
	}
	return m.trie.Update(escrowRecordKey(sanitized.Creator, sanitized.OrderID), raw)
}

// EscrowGet loads the escrow record for (creator, order id).
func (m *Manager) EscrowGet(creator [20]byte, orderID uint64) (*escrow.EscrowRecord, bool, error) {
	raw, err := m.trie.Get(escrowRecordKey(creator, orderID))
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	var stored storedRecord
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("state: decode escrow record: %w", err)
	}
	record := &escrow.EscrowRecord{
		Creator:               stored.Creator,
		Partner:               stored.Partner,
		FeeAccount:            stored.FeeAccount,
		TradeMint:             stored.TradeMint,
		ReceiveMint:           stored.ReceiveMint,
		Vault:                 stored.Vault,
		CreatorSendAccount:    stored.CreatorSendAccount,
		CreatorReceiveAccount: stored.CreatorReceiveAccount,
		TradeValue:            stored.TradeValue,
		ReceiveValue:          stored.ReceiveValue,
		Timestamp:             stored.Timestamp,
		OrderID:               stored.OrderID,
		RecordBump:            stored.RecordBump,
		VaultBump:             stored.VaultBump,
		TradeType:             escrow.TradeType(stored.TradeType),
		Stage:                 escrow.Stage(stored.Stage),
	}
	if stored.SpecifySet {
		v := stored.SpecifyPartner
		record.SpecifyPartner = &v
	}
	if stored.SendMintSet {
		v := stored.CreatorSendMint
		record.CreatorSendMint = &v
	}
	if stored.ReceiveMintSet {
		v := stored.CreatorReceiveMint
		record.CreatorReceiveMint = &v
	}
	sanitized, err := escrow.SanitizeRecord(record)
	if err != nil {
		return nil, false, err
	}
	return sanitized, true, nil
}
