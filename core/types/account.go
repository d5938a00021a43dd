package types

import "math/big"

// Account is a native-currency ledger account. The balance is denominated in
// the smallest native unit.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce, Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}

// TokenAccount holds a balance of a single tokenized asset on behalf of an
// owner. An address "parses as a token account" exactly when a TokenAccount
// exists at that address.
type TokenAccount struct {
	Mint    [20]byte `json:"mint"`
	Owner   [20]byte `json:"owner"`
	Balance *big.Int `json:"balance"`
}

// Clone returns a deep copy of the token account.
func (t *TokenAccount) Clone() *TokenAccount {
	if t == nil {
		return nil
	}
	clone := &TokenAccount{Mint: t.Mint, Owner: t.Owner, Balance: big.NewInt(0)}
	if t.Balance != nil {
		clone.Balance = new(big.Int).Set(t.Balance)
	}
	return clone
}

// TokenMint describes a registered tokenized asset. A mint reference supplied
// to the resolver "parses as a mint" exactly when a TokenMint is registered at
// that address.
type TokenMint struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}
