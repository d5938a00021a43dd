package escrow

import (
	"math/big"

	"tradep2p/core/types"
)

// AssetKind distinguishes the two asset kinds a leg may hold.
type AssetKind uint8

const (
	AssetNative AssetKind = iota + 1
	AssetToken
)

// TransferAuthority proves the right to move funds out of an account. Two
// kinds exist: an ownership signature (the caller's identity) and a derived
// custody proof (Authority). The ledger honors a custody proof only when it
// re-derives to the moving account for native funds, or to the token account's
// owner for tokenized funds; the role asymmetry between vault and record
// authorities therefore falls out of the account layout rather than being
// special-cased.
type TransferAuthority interface {
	authorityAddress() [20]byte
}

type signerAuthority struct {
	addr [20]byte
}

func (s signerAuthority) authorityAddress() [20]byte { return s.addr }

// SignedBy wraps a caller identity as a transfer authority. The surrounding
// host is responsible for having verified the signature; within the engine the
// identity stands in for it.
func SignedBy(addr [20]byte) TransferAuthority { return signerAuthority{addr: addr} }

func (a Authority) authorityAddress() [20]byte { return a.address }

// ledger is the uniform move/close primitive over native and tokenized funds.
// It performs no staging of its own: each call either fully applies or returns
// an error having written nothing.
type ledger struct {
	state engineState
}

// Transfer moves amount from one account to another. Native transfers are
// authorized by the holding account itself; token transfers by the token
// account's owner.
func (l *ledger) Transfer(kind AssetKind, from, to [20]byte, amount uint64, auth TransferAuthority) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == 0 {
		return nil
	}
	switch kind {
	case AssetNative:
		return l.transferNative(from, to, amount, auth)
	case AssetToken:
		return l.transferToken(from, to, amount, auth)
	default:
		return ErrInvalidTradeType
	}
}

// Close removes a custody account. A token account must have been fully
// drained by the preceding transfer; a native account's residual balance (its
// storage allowance) is swept to the beneficiary.
func (l *ledger) Close(kind AssetKind, account, beneficiary [20]byte, auth TransferAuthority) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	switch kind {
	case AssetNative:
		return l.closeNative(account, beneficiary, auth)
	case AssetToken:
		return l.closeToken(account, auth)
	default:
		return ErrInvalidTradeType
	}
}

func (l *ledger) transferNative(from, to [20]byte, amount uint64, auth TransferAuthority) error {
	if auth == nil || auth.authorityAddress() != from {
		return ErrInvalidOwner
	}
	amt := new(big.Int).SetUint64(amount)
	fromAcc, err := l.state.AccountGet(from)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	toAcc, err := l.state.AccountGet(to)
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.state.AccountPut(from, fromAcc); err != nil {
		return err
	}
	return l.state.AccountPut(to, toAcc)
}

func (l *ledger) transferToken(from, to [20]byte, amount uint64, auth TransferAuthority) error {
	fromAcc, ok, err := l.state.TokenAccountGet(from)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAccount
	}
	if auth == nil || auth.authorityAddress() != fromAcc.Owner {
		return ErrInvalidOwner
	}
	toAcc, ok, err := l.state.TokenAccountGet(to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAccount
	}
	if fromAcc.Mint != toAcc.Mint {
		return ErrInvalidAccount
	}
	amt := new(big.Int).SetUint64(amount)
	if fromAcc.Balance == nil || fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	if toAcc.Balance == nil {
		toAcc.Balance = big.NewInt(0)
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.state.TokenAccountPut(from, fromAcc); err != nil {
		return err
	}
	return l.state.TokenAccountPut(to, toAcc)
}

func (l *ledger) closeNative(account, beneficiary [20]byte, auth TransferAuthority) error {
	if auth == nil || auth.authorityAddress() != account {
		return ErrInvalidOwner
	}
	acc, err := l.state.AccountGet(account)
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	if acc.Balance.Sign() > 0 {
		benAcc, err := l.state.AccountGet(beneficiary)
		if err != nil {
			return err
		}
		benAcc = ensureAccount(benAcc)
		benAcc.Balance = new(big.Int).Add(benAcc.Balance, acc.Balance)
		if err := l.state.AccountPut(beneficiary, benAcc); err != nil {
			return err
		}
	}
	return l.state.AccountDelete(account)
}

func (l *ledger) closeToken(account [20]byte, auth TransferAuthority) error {
	acc, ok, err := l.state.TokenAccountGet(account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidAccount
	}
	if auth == nil || auth.authorityAddress() != acc.Owner {
		return ErrInvalidOwner
	}
	if acc.Balance != nil && acc.Balance.Sign() > 0 {
		return ErrInsufficientFunds
	}
	return l.state.TokenAccountDelete(account)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}
