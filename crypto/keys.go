package crypto

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part used for ledger identities.
type AddressPrefix string

const (
	// AccountPrefix marks depositors, beneficiaries, arbiters and operators.
	AccountPrefix AddressPrefix = "sf"
	// AssetPrefix marks fungible token identifiers.
	AssetPrefix AddressPrefix = "sfa"
)

// Address represents a 20-byte ledger identity with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [20]byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != 20 {
		panic("address must be 20 bytes long")
	}
	var raw [20]byte
	copy(raw[:], b)
	return Address{prefix: prefix, bytes: raw}
}

// MustNewAddress is NewAddress for fixed-size input.
func MustNewAddress(prefix AddressPrefix, b [20]byte) Address {
	return Address{prefix: prefix, bytes: b}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() [20]byte {
	return a.bytes
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != 20 {
		return Address{}, fmt.Errorf("address must decode to 20 bytes, got %d", len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// ParseAddress accepts a bech32 identity or a 0x-prefixed hex address.
func ParseAddress(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		if !common.IsHexAddress(trimmed) {
			return [20]byte{}, fmt.Errorf("invalid hex address %q", raw)
		}
		return common.HexToAddress(trimmed), nil
	}
	addr, err := DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes(), nil
}

// ParseAsset resolves an asset identifier. "native" (or an empty string)
// selects the native currency, represented by the zero address.
func ParseAsset(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "native") {
		return [20]byte{}, nil
	}
	return ParseAddress(trimmed)
}

// LabelAddress derives a deterministic identity from a free-form label. The
// CLI uses it so operators can address local test accounts by name.
func LabelAddress(label string) [20]byte {
	digest := crypto.Keccak256([]byte(strings.ToLower(strings.TrimSpace(label))))
	var out [20]byte
	copy(out[:], digest[12:])
	return out
}

// FormatAccount renders raw account bytes as bech32. The zero address renders
// as an empty string.
func FormatAccount(raw [20]byte) string {
	if raw == ([20]byte{}) {
		return ""
	}
	return MustNewAddress(AccountPrefix, raw).String()
}

// FormatAsset renders an asset identifier, using "native" for the zero value.
func FormatAsset(raw [20]byte) string {
	if raw == ([20]byte{}) {
		return "native"
	}
	return MustNewAddress(AssetPrefix, raw).String()
}
