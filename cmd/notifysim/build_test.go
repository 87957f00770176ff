package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/paynotify/internal/payment/jdpay"
)

func newTestConfig(t *testing.T) *jdpay.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private key failed: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key failed: %v", err)
	}
	desKey := make([]byte, 24)
	if _, err := rand.Read(desKey); err != nil {
		t.Fatalf("generate des key failed: %v", err)
	}
	return &jdpay.Config{
		Merchant:      "110000000001",
		RSAPrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		RSAPublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		DESKey:        base64.StdEncoding.EncodeToString(desKey),
	}
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"tradeNum=ORDER-1", "note=a=b", "empty="})
	if err != nil {
		t.Fatalf("parse fields failed: %v", err)
	}
	if len(fields) != 3 || fields[1].Value != "a=b" || fields[2].Value != "" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	for _, bad := range []string{"novalue", "=x", " =x"} {
		if _, err := parseFields([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestBuildNotificationVerifies(t *testing.T) {
	cfg := newTestConfig(t)
	client, err := jdpay.NewNotifyClient(cfg)
	if err != nil {
		t.Fatalf("build client failed: %v", err)
	}
	fields := []fieldArg{{Name: "tradeNum", Value: "ORDER-SIM"}, {Name: "amount", Value: "500"}, {Name: "status", Value: "2"}}

	contentType, body, err := buildNotification(client.Builder(), jdpay.PayloadForm, fields)
	if err != nil || contentType != contentTypeForm {
		t.Fatalf("build form failed: %v %s", err, contentType)
	}
	form, err := url.ParseQuery(body)
	if err != nil {
		t.Fatalf("parse form body failed: %v", err)
	}
	result, err := client.ExecuteForm(context.Background(), form)
	if err != nil || result.TradeNum() != "ORDER-SIM" {
		t.Fatalf("form should verify: %v", err)
	}

	contentType, body, err = buildNotification(client.Builder(), jdpay.PayloadXML, fields)
	if err != nil || contentType != contentTypeXML {
		t.Fatalf("build xml failed: %v %s", err, contentType)
	}
	result, err = client.ExecuteXML(context.Background(), body)
	if err != nil || result.Get("amount") != "500" {
		t.Fatalf("xml should verify: %v", err)
	}
}

func TestPostNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("Content-Type") != contentTypeXML || string(body) != "<jdpay/>" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("fail"))
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer srv.Close()

	status, ack, err := postNotification(srv.URL, contentTypeXML, "<jdpay/>", time.Second)
	if err != nil || status != http.StatusOK || ack != "success" {
		t.Fatalf("unexpected post result: %d %q %v", status, ack, err)
	}
}
