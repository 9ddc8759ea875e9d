package encoding

import (
	"errors"
	"strings"
	"testing"
)

func TestNewEncoder(t *testing.T) {
	// Any key length works (short keys are stretched)
	_, err := NewEncoder([]byte("short"))
	if err != nil {
		t.Fatalf("NewEncoder with short key failed: %v", err)
	}

	_, err = NewEncoder([]byte("this-is-a-32-byte-key-for-aes!!!"))
	if err != nil {
		t.Fatalf("NewEncoder with 32-byte key failed: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	original := Claims{Nonce: "0b3f", IssuedAt: 1700000000, Subject: "user-7"}

	for _, sensitive := range []bool{false, true} {
		token, err := enc.Encode(original, sensitive)
		if err != nil {
			t.Fatalf("Encode(sensitive=%v) failed: %v", sensitive, err)
		}
		if token == "" {
			t.Fatalf("Encode(sensitive=%v) returned empty token", sensitive)
		}

		decoded, err := enc.Decode(token, sensitive)
		if err != nil {
			t.Fatalf("Decode(sensitive=%v) failed: %v", sensitive, err)
		}
		if decoded != original {
			t.Errorf("Decode(sensitive=%v) = %+v, want %+v", sensitive, decoded, original)
		}
	}
}

func TestSignedTokenHasSeparator(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	token, err := enc.Encode(Claims{Nonce: "n"}, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Count(token, ".") != 1 {
		t.Errorf("signed token %q should contain exactly one separator", token)
	}
}

func TestSignatureVerificationFailure(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	token, err := enc.Encode(Claims{Nonce: "n", IssuedAt: 1}, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Flip the first signature character
	dot := strings.Index(token, ".")
	sig := []byte(token[dot+1:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := token[:dot+1] + string(sig)

	_, err = enc.Decode(tampered, false)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Decode(tampered) error = %v, want ErrSignatureInvalid", err)
	}
}

func TestDecryptionFailure(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	token, err := enc.Encode(Claims{Nonce: "n"}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	other, _ := NewEncoder([]byte("other-key"))
	_, err = other.Decode(token, true)
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Decode with wrong key error = %v, want ErrDecryptFailed", err)
	}
}

func TestInvalidFormat(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))

	tests := []struct {
		name      string
		token     string
		sensitive bool
	}{
		{"missing separator", "invalidbase64withoutseparator", false},
		{"bad base64 payload", "!!!.AAAA", false},
		{"short ciphertext", "AAAA", true},
		{"bad base64 ciphertext", "%%%", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decode(tt.token, tt.sensitive)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidFormat", tt.token, err)
			}
		})
	}
}

func TestDifferentKeysCannotVerify(t *testing.T) {
	enc1, _ := NewEncoder([]byte("key-one"))
	enc2, _ := NewEncoder([]byte("key-two"))

	token, err := enc1.Encode(Claims{Nonce: "n"}, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := enc2.Decode(token, false); err == nil {
		t.Error("expected error when verifying with a different key")
	}
}
