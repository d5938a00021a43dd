package escrow

import "encoding/binary"

// Role names one of the two derivation roles used per trade. The vault role
// addresses the holding account for the locked deposit; the record role
// addresses the escrow record, which also acts as the owner of tokenized
// custody accounts. The two roles are never interchangeable.
type Role uint8

const (
	RoleVault Role = iota + 1
	RoleRecord
)

var (
	vaultSeedTag  = []byte("vault")
	recordSeedTag = []byte("state")
)

func (r Role) tag() []byte {
	switch r {
	case RoleVault:
		return vaultSeedTag
	case RoleRecord:
		return recordSeedTag
	default:
		return nil
	}
}

func (r Role) String() string {
	switch r {
	case RoleVault:
		return "vault"
	case RoleRecord:
		return "record"
	default:
		return "unknown"
	}
}

// seedBytes produces the domain-separated byte sequence hashed during custody
// derivation: role tag, creator, order id in little-endian, then the bump
// byte. The layout is fixed; changing it breaks every previously derived
// custody address.
func seedBytes(role Role, creator [20]byte, orderID uint64, bump uint8) []byte {
	tag := role.tag()
	buf := make([]byte, 0, len(tag)+len(creator)+9)
	buf = append(buf, tag...)
	buf = append(buf, creator[:]...)
	var order [8]byte
	binary.LittleEndian.PutUint64(order[:], orderID)
	buf = append(buf, order[:]...)
	buf = append(buf, bump)
	return buf
}
