package escrow

import (
	"math/big"

	"tradep2p/core/types"
)

// resolveTradeType classifies a trade from the shapes of the creator's send
// and receive accounts and the supplied asset-type descriptors. A leg is
// tokenized when a token account exists at the supplied address; otherwise it
// is native currency. The descriptors are positional: the first describes the
// tokenized leg (the send leg when it is tokenized, else the receive leg), the
// second is only consumed for asset-asset trades. The classification is
// computed once, at creation, and frozen into the record.
func resolveTradeType(st engineState, creator [20]byte, sendAccount, receiveAccount [20]byte, mintA, mintB *[20]byte, tradeValue uint64) (TradeType, error) {
	sendToken, sendOK, err := st.TokenAccountGet(sendAccount)
	if err != nil {
		return 0, err
	}
	receiveToken, receiveOK, err := st.TokenAccountGet(receiveAccount)
	if err != nil {
		return 0, err
	}
	switch {
	case sendOK && receiveOK:
		return resolveAssetAsset(st, creator, sendToken, receiveToken, mintA, mintB, tradeValue)
	case sendOK:
		return resolveAssetNative(st, creator, sendToken, mintA, mintB, tradeValue)
	case receiveOK:
		return resolveNativeAsset(st, creator, receiveToken, mintA, mintB, tradeValue)
	default:
		return 0, ErrInvalidTradeType
	}
}

// Both legs are tokenized: both descriptors are required and must match their
// accounts, the two mints must differ, and the send leg must cover the trade
// value.
func resolveAssetAsset(st engineState, creator [20]byte, sendToken, receiveToken *types.TokenAccount, mintA, mintB *[20]byte, tradeValue uint64) (TradeType, error) {
	if mintA == nil || mintB == nil {
		return 0, ErrMissingMint
	}
	if err := requireMint(st, *mintA); err != nil {
		return 0, err
	}
	if err := requireMint(st, *mintB); err != nil {
		return 0, err
	}
	if sendToken.Mint != *mintA || receiveToken.Mint != *mintB {
		return 0, ErrInvalidMint
	}
	if sendToken.Owner != creator || receiveToken.Owner != creator {
		return 0, ErrInvalidOwner
	}
	if *mintA == *mintB {
		return 0, ErrDuplicateMint
	}
	if !covers(sendToken.Balance, tradeValue) {
		return 0, ErrInsufficientFunds
	}
	return TradeAssetAsset, nil
}

// Tokenized send leg, native receive leg: exactly one descriptor, matching the
// send account.
func resolveAssetNative(st engineState, creator [20]byte, sendToken *types.TokenAccount, mintA, mintB *[20]byte, tradeValue uint64) (TradeType, error) {
	if mintA == nil {
		return 0, ErrMissingMint
	}
	if mintB != nil {
		return 0, ErrInvalidMint
	}
	if err := requireMint(st, *mintA); err != nil {
		return 0, err
	}
	if sendToken.Mint != *mintA {
		return 0, ErrInvalidMint
	}
	if sendToken.Owner != creator {
		return 0, ErrInvalidOwner
	}
	if !covers(sendToken.Balance, tradeValue) {
		return 0, ErrInsufficientFunds
	}
	return TradeAssetNative, nil
}

// Native send leg, tokenized receive leg: exactly one descriptor, matching the
// receive account; the creator's native balance must cover the deposit.
func resolveNativeAsset(st engineState, creator [20]byte, receiveToken *types.TokenAccount, mintA, mintB *[20]byte, tradeValue uint64) (TradeType, error) {
	if mintA == nil {
		return 0, ErrMissingMint
	}
	if mintB != nil {
		return 0, ErrInvalidMint
	}
	if err := requireMint(st, *mintA); err != nil {
		return 0, err
	}
	if receiveToken.Mint != *mintA {
		return 0, ErrInvalidMint
	}
	if receiveToken.Owner != creator {
		return 0, ErrInvalidOwner
	}
	creatorAcc, err := st.AccountGet(creator)
	if err != nil {
		return 0, err
	}
	if creatorAcc == nil || !covers(creatorAcc.Balance, tradeValue) {
		return 0, ErrInsufficientFunds
	}
	return TradeNativeAsset, nil
}

func requireMint(st engineState, mint [20]byte) error {
	_, ok, err := st.MintGet(mint)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidMint
	}
	return nil
}

func covers(balance *big.Int, amount uint64) bool {
	if balance == nil {
		return amount == 0
	}
	return balance.Cmp(new(big.Int).SetUint64(amount)) >= 0
}
