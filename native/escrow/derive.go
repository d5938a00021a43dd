package escrow

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Authority is the capability to move funds out of a derived custody account
// or to close it. No private key exists for a derived address; a valid
// Authority can only be produced by re-supplying the same derivation inputs,
// so only the engine, which knows the record's creator, order id and salts,
// can authorize outgoing custody transfers.
type Authority struct {
	role    Role
	creator [20]byte
	orderID uint64
	bump    uint8
	address [20]byte
}

// Address returns the derived account address the authority controls.
func (a Authority) Address() [20]byte { return a.address }

// Role returns the derivation role the authority was built for.
func (a Authority) Role() Role { return a.role }

// Bump returns the derivation salt, persisted in the record so the authority
// can be reconstructed later.
func (a Authority) Bump() uint8 { return a.bump }

func deriveAddress(role Role, creator [20]byte, orderID uint64, bump uint8) [20]byte {
	hash := ethcrypto.Keccak256(seedBytes(role, creator, orderID, bump))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// DeriveCustody derives the custody address for the given role, creator and
// order id, scanning bump salts downward from 255 until the derived address is
// usable. The result is a pure function of its inputs: identical inputs always
// yield the identical address and salt.
func DeriveCustody(role Role, creator [20]byte, orderID uint64) (Authority, error) {
	if role.tag() == nil {
		return Authority{}, fmt.Errorf("escrow: unknown derivation role %d", role)
	}
	for bump := 255; bump >= 0; bump-- {
		addr := deriveAddress(role, creator, orderID, uint8(bump))
		if addr == ([20]byte{}) || addr == creator {
			continue
		}
		return Authority{
			role:    role,
			creator: creator,
			orderID: orderID,
			bump:    uint8(bump),
			address: addr,
		}, nil
	}
	return Authority{}, fmt.Errorf("escrow: no usable custody address for order %d", orderID)
}

// CustodyAuthority reconstructs an authority from a previously persisted salt.
// The proof is only honored if the reconstructed address matches the account
// being moved, so a wrong role, creator, order id or salt yields a credential
// that authorizes nothing.
func CustodyAuthority(role Role, creator [20]byte, orderID uint64, bump uint8) Authority {
	return Authority{
		role:    role,
		creator: creator,
		orderID: orderID,
		bump:    bump,
		address: deriveAddress(role, creator, orderID, bump),
	}
}
