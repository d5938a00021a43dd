package escrow

import "errors"

// Typed rejections surfaced by the engine. Every failure aborts the enclosing
// operation with no side effects; the surrounding atomic unit of work rolls
// back any attempted mutation.
var (
	// ErrInvalidStage is returned when exchange or cancel is attempted outside
	// the ReadyExchange stage, or when a stored stage or trade-type code is
	// unrecognized.
	ErrInvalidStage = errors.New("escrow: invalid stage for exchange or cancel")
	// ErrInsufficientFunds is returned when a leg's balance cannot cover the
	// required amount.
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
	// ErrInvalidMint is returned when an asset-type descriptor does not match
	// the account it is supposed to describe, or an unexpected descriptor is
	// supplied.
	ErrInvalidMint = errors.New("escrow: invalid mint account for trade")
	// ErrMissingMint is returned when a required asset-type descriptor is
	// absent.
	ErrMissingMint = errors.New("escrow: missing mint for trade")
	// ErrInvalidTradeType is returned when no trade type can be resolved from
	// the supplied accounts.
	ErrInvalidTradeType = errors.New("escrow: invalid trade type, possibly missing all mint addresses")
	// ErrInvalidAccount is returned on cross-field consistency failures, e.g.
	// a wrong mint pairing at exchange time.
	ErrInvalidAccount = errors.New("escrow: invalid mint between two token accounts")
	// ErrDuplicateMint is returned when both legs of an asset-asset trade name
	// the same mint.
	ErrDuplicateMint = errors.New("escrow: duplicate mint between two legs")
	// ErrInvalidOwner is returned when an account is not owned by the expected
	// identity.
	ErrInvalidOwner = errors.New("escrow: account does not have valid owner")
	// ErrInvalidPartner is returned when the exchanging caller does not match
	// the partner specified at creation.
	ErrInvalidPartner = errors.New("escrow: partner does not match specified partner")
	// ErrZeroValue is returned when trade value or receive value is zero.
	ErrZeroValue = errors.New("escrow: trade value and receive value must be larger than zero")
	// ErrMissingParams is returned when required identities are absent from
	// the request.
	ErrMissingParams = errors.New("escrow: missing params")
	// ErrRecordExists is returned when a record already exists for the same
	// creator and order id. Records are never overwritten.
	ErrRecordExists = errors.New("escrow: record already exists for creator and order id")
	// ErrRecordNotFound is returned when no record exists for the creator and
	// order id.
	ErrRecordNotFound = errors.New("escrow: record not found")

	errNilState = errors.New("escrow engine: state not configured")
)
