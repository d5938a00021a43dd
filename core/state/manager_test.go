package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"tradep2p/core/types"
	"tradep2p/native/escrow"
	"tradep2p/storage"
	"tradep2p/storage/trie"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	require.NoError(t, err)
	return NewManager(tr)
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestAccountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(0x01)

	missing, err := manager.AccountGet(owner)
	require.NoError(t, err)
	require.Equal(t, int64(0), missing.Balance.Int64())

	require.NoError(t, manager.AccountPut(owner, &types.Account{Nonce: 3, Balance: big.NewInt(500)}))
	loaded, err := manager.AccountGet(owner)
	require.NoError(t, err)
	require.Equal(t, uint64(3), loaded.Nonce)
	require.Equal(t, int64(500), loaded.Balance.Int64())

	require.NoError(t, manager.AccountDelete(owner))
	deleted, err := manager.AccountGet(owner)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted.Balance.Int64())
}

func TestAccountPutRejectsNegativeBalance(t *testing.T) {
	manager := newTestManager(t)
	err := manager.AccountPut(addr(0x01), &types.Account{Balance: big.NewInt(-1)})
	require.Error(t, err)
}

func TestTokenAccountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	account := addr(0x11)
	mint := addr(0xA1)
	owner := addr(0x01)

	_, ok, err := manager.TokenAccountGet(account)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.TokenAccountPut(account, &types.TokenAccount{
		Mint:    mint,
		Owner:   owner,
		Balance: big.NewInt(42),
	}))
	loaded, ok, err := manager.TokenAccountGet(account)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, mint, loaded.Mint)
	require.Equal(t, owner, loaded.Owner)
	require.Equal(t, int64(42), loaded.Balance.Int64())

	require.NoError(t, manager.TokenAccountDelete(account))
	_, ok, err = manager.TokenAccountGet(account)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMintRegistry(t *testing.T) {
	manager := newTestManager(t)
	mintAddr := addr(0xA1)

	_, ok, err := manager.MintGet(mintAddr)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.MintRegister(mintAddr, &types.TokenMint{Symbol: "XTK", Decimals: 9}))
	mint, ok, err := manager.MintGet(mintAddr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "XTK", mint.Symbol)
	require.Equal(t, uint8(9), mint.Decimals)
}

func TestEscrowRecordRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	creator := addr(0x01)
	partner := addr(0x02)
	sendMint := addr(0xA1)

	record := &escrow.EscrowRecord{
		Creator:               creator,
		SpecifyPartner:        &partner,
		FeeAccount:            addr(0xFE),
		TradeMint:             sendMint,
		Vault:                 addr(0x33),
		CreatorSendAccount:    addr(0x11),
		CreatorReceiveAccount: addr(0x12),
		CreatorSendMint:       &sendMint,
		TradeValue:            100,
		ReceiveValue:          50,
		Timestamp:             1_700_000_000,
		OrderID:               7,
		RecordBump:            254,
		VaultBump:             251,
		TradeType:             escrow.TradeAssetNative,
		Stage:                 escrow.StageReadyExchange,
	}
	require.NoError(t, manager.EscrowPut(record))

	loaded, ok, err := manager.EscrowGet(creator, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.Creator, loaded.Creator)
	require.NotNil(t, loaded.SpecifyPartner)
	require.Equal(t, partner, *loaded.SpecifyPartner)
	require.NotNil(t, loaded.CreatorSendMint)
	require.Equal(t, sendMint, *loaded.CreatorSendMint)
	require.Nil(t, loaded.CreatorReceiveMint)
	require.Equal(t, record.TradeValue, loaded.TradeValue)
	require.Equal(t, record.RecordBump, loaded.RecordBump)
	require.Equal(t, record.VaultBump, loaded.VaultBump)
	require.Equal(t, escrow.TradeAssetNative, loaded.TradeType)
	require.Equal(t, escrow.StageReadyExchange, loaded.Stage)

	_, ok, err = manager.EscrowGet(creator, 8)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = manager.EscrowGet(partner, 7)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEscrowPutRejectsInvalidRecord(t *testing.T) {
	manager := newTestManager(t)
	record := &escrow.EscrowRecord{
		Creator:      addr(0x01),
		TradeValue:   100,
		ReceiveValue: 50,
		OrderID:      1,
		TradeType:    escrow.TradeAssetAsset,
		Stage:        escrow.Stage(9),
	}
	require.ErrorIs(t, manager.EscrowPut(record), escrow.ErrInvalidStage)
}
