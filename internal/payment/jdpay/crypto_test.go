package jdpay

import (
	"errors"
	"strings"
	"testing"
)

func newTestCipher(t *testing.T) *TripleDESCipher {
	t.Helper()
	key, err := decodeDESKey(buildTestConfig(t).DESKey)
	if err != nil {
		t.Fatalf("decode des key failed: %v", err)
	}
	c, err := NewTripleDESCipher(key)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}
	return c
}

func TestTripleDESCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t)
	values := []string{
		"",
		"a",
		"hello",
		"1234",
		"12345678",
		"ORDER-20260101-0001",
		"测试商品 & <note>",
		strings.Repeat("x", 255),
		strings.Repeat("支付", 100),
	}
	for i := 0; i < 40; i++ {
		values = append(values, strings.Repeat("k", i))
	}
	for _, v := range values {
		ciphertext, err := c.Encrypt(v)
		if err != nil {
			t.Fatalf("encrypt %q failed: %v", v, err)
		}
		if ciphertext != strings.ToLower(ciphertext) {
			t.Fatalf("ciphertext should be lowercase hex: %s", ciphertext)
		}
		if len(ciphertext)%(desBlockSize*2) != 0 {
			t.Fatalf("ciphertext length %d not block aligned", len(ciphertext))
		}
		plain, err := c.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("decrypt %q failed: %v", v, err)
		}
		if plain != v {
			t.Fatalf("round trip mismatch: want %q got %q", v, plain)
		}
	}
}

func TestTripleDESCipherDeterministic(t *testing.T) {
	c := newTestCipher(t)
	first, err := c.Encrypt("hello")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := c.Encrypt("hello")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if first != second {
		t.Fatalf("ecb encryption should be deterministic")
	}
}

func TestTripleDESCipherRejectsMalformed(t *testing.T) {
	c := newTestCipher(t)
	valid, err := c.Encrypt("hello world")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	cases := map[string]string{
		"empty":       "",
		"not hex":     "zz" + valid[2:],
		"odd length":  valid[1:],
		"not aligned": valid[:len(valid)-2],
		"uppercase":   strings.ToUpper(valid),
		"whitespace":  " " + valid,
	}
	for name, input := range cases {
		if _, err := c.Decrypt(input); err == nil {
			t.Fatalf("%s: expected decrypt error", name)
		}
	}
}

func TestTripleDESCipherWrongKey(t *testing.T) {
	c := newTestCipher(t)
	ciphertext, err := c.Encrypt("wrong key payload")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	otherKey := make([]byte, desKeySize)
	for i := range otherKey {
		otherKey[i] = byte(255 - i)
	}
	other, err := NewTripleDESCipher(otherKey)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}
	if plain, err := other.Decrypt(ciphertext); err == nil && plain == "wrong key payload" {
		t.Fatalf("decrypt with wrong key must not recover plaintext")
	}
}

func TestNewTripleDESCipherKeySize(t *testing.T) {
	_, err := NewTripleDESCipher([]byte("short"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestUnframe(t *testing.T) {
	framed := frame([]byte("abc"))
	if len(framed) != desBlockSize {
		t.Fatalf("unexpected frame length %d", len(framed))
	}
	got, err := unframe(framed)
	if err != nil || string(got) != "abc" {
		t.Fatalf("unframe failed: %q %v", got, err)
	}

	bad := append([]byte(nil), framed...)
	bad[len(bad)-1] = 0x01
	if _, err := unframe(bad); err == nil {
		t.Fatalf("expected error for non-zero padding")
	}
	bad = append([]byte(nil), framed...)
	bad[3] = 0x40
	if _, err := unframe(bad); err == nil {
		t.Fatalf("expected error for oversized length prefix")
	}
	if _, err := unframe([]byte{0, 0}); err == nil {
		t.Fatalf("expected error for short block")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	c := newTestCipher(t)
	sealed, err := sealEnvelope(c, "<jdpay><a>1</a></jdpay>")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	opened, err := openEnvelope(c, sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if opened != "<jdpay><a>1</a></jdpay>" {
		t.Fatalf("unexpected envelope content %q", opened)
	}

	_, err = openEnvelope(c, "%%%")
	var notifyErr *Error
	if !errors.As(err, &notifyErr) || !errors.Is(err, ErrDecryptionFailed) || notifyErr.Field != envelopeField {
		t.Fatalf("expected decryption error on encrypt field, got %v", err)
	}
}
