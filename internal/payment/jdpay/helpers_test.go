package jdpay

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"sync/atomic"
	"testing"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

func loadTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if testKeyErr != nil {
		t.Fatalf("generate rsa key failed: %v", testKeyErr)
	}
	return testKey
}

func buildTestConfig(t *testing.T) *Config {
	t.Helper()
	key := loadTestKey(t)
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private key failed: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	desKey := make([]byte, desKeySize)
	for i := range desKey {
		desKey[i] = byte(i*7 + 3)
	}
	return &Config{
		Merchant:      "110000000001",
		RSAPrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		RSAPublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		DESKey:        base64.StdEncoding.EncodeToString(desKey),
	}
}

func buildTestClient(t *testing.T, opts ...Option) *NotifyClient {
	t.Helper()
	client, err := NewNotifyClient(buildTestConfig(t), opts...)
	if err != nil {
		t.Fatalf("new notify client failed: %v", err)
	}
	return client
}

// countingCipher 记录解密调用次数
type countingCipher struct {
	inner    Cipher
	decrypts atomic.Int64
}

func (c *countingCipher) Encrypt(plaintext string) (string, error) {
	return c.inner.Encrypt(plaintext)
}

func (c *countingCipher) Decrypt(ciphertext string) (string, error) {
	c.decrypts.Add(1)
	return c.inner.Decrypt(ciphertext)
}

func newCountingCipher(t *testing.T, cfg *Config) *countingCipher {
	t.Helper()
	key, err := decodeDESKey(cfg.DESKey)
	if err != nil {
		t.Fatalf("decode des key failed: %v", err)
	}
	inner, err := NewTripleDESCipher(key)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}
	return &countingCipher{inner: inner}
}

func tradeFields() []Field {
	return []Field{
		{Name: "version", Value: "V2.0"},
		{Name: "merchant", Value: "110000000001"},
		{Name: "result.code", Value: ResultCodeSuccess},
		{Name: "result.desc", Value: "success"},
		{Name: "tradeNum", Value: "ORDER-20260101-0001"},
		{Name: "tradeType", Value: "0"},
		{Name: "amount", Value: "1990"},
		{Name: "currency", Value: "CNY"},
		{Name: "note", Value: "测试 & <商品>"},
		{Name: "status", Value: "2"},
	}
}
