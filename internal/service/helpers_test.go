package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/paynotify/internal/payment/jdpay"
)

var (
	testClientOnce sync.Once
	testClient     *jdpay.NotifyClient
	testClientErr  error
)

func newTestNotifyClient(t *testing.T) *jdpay.NotifyClient {
	t.Helper()
	testClientOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			testClientErr = err
			return
		}
		privDER, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			testClientErr = err
			return
		}
		pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			testClientErr = err
			return
		}
		desKey := make([]byte, 24)
		if _, err := rand.Read(desKey); err != nil {
			testClientErr = err
			return
		}
		testClient, testClientErr = jdpay.NewNotifyClient(&jdpay.Config{
			Merchant:      "110000000001",
			RSAPrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
			RSAPublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
			DESKey:        base64.StdEncoding.EncodeToString(desKey),
		})
	})
	if testClientErr != nil {
		t.Fatalf("build notify client failed: %v", testClientErr)
	}
	return testClient
}
