package crypto

import (
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := LabelAddress("alice")
	encoded := FormatAccount(raw)
	if !strings.HasPrefix(encoded, "sf1") {
		t.Fatalf("expected sf prefix, got %s", encoded)
	}
	decoded, err := ParseAddress(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded != raw {
		t.Fatalf("round trip mismatch")
	}
}

func TestParseAddressHex(t *testing.T) {
	got, err := ParseAddress("0x00000000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if got[19] != 0xaa {
		t.Fatalf("unexpected bytes %x", got)
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Fatalf("expected short hex address to fail")
	}
	if _, err := ParseAddress(""); err == nil {
		t.Fatalf("expected empty address to fail")
	}
}

func TestParseAssetNative(t *testing.T) {
	for _, in := range []string{"", "native", "NATIVE"} {
		got, err := ParseAsset(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != ([20]byte{}) {
			t.Fatalf("expected zero asset for %q", in)
		}
	}
	if FormatAsset([20]byte{}) != "native" {
		t.Fatalf("expected native label")
	}
}

func TestLabelAddressIsCaseInsensitive(t *testing.T) {
	if LabelAddress("Bob") != LabelAddress(" bob ") {
		t.Fatalf("expected label derivation to normalise case and whitespace")
	}
	if LabelAddress("bob") == LabelAddress("carol") {
		t.Fatalf("expected distinct labels to differ")
	}
}
