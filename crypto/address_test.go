package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, 20)
	addr := NewAddress(P2PPrefix, raw)

	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(P2PPrefix)+"1") {
		t.Fatalf("encoded address has wrong prefix: %s", encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Prefix() != P2PPrefix {
		t.Fatalf("prefix did not round-trip: %s", decoded.Prefix())
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("bytes did not round-trip: %x", decoded.Bytes())
	}
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on short input")
		}
	}()
	NewAddress(P2PPrefix, []byte{0x01})
}

func TestNewAddressCopiesInput(t *testing.T) {
	raw := bytes.Repeat([]byte{0x01}, 20)
	addr := NewAddress(P2PPrefix, raw)
	raw[0] = 0xFF
	if addr.Bytes()[0] == 0xFF {
		t.Fatalf("address must not alias caller memory")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-bech32"); err == nil {
		t.Fatalf("expected decode failure")
	}
}
