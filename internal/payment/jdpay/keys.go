package jdpay

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
)

var errKeyMalformed = errors.New("rsa key malformed")

// 支持 PEM 与裸 base64 两种写法，以及配置文件中转义的 \n
func parseRSAPrivateKey(raw string) (*rsa.PrivateKey, error) {
	normalized := normalizeKeyText(raw)
	der := pemBody(normalized)
	if der == nil {
		decoded, err := decodeKeyBody(normalized)
		if err != nil {
			return nil, err
		}
		der = decoded
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errKeyMalformed
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errKeyMalformed
}

func parseRSAPublicKey(raw string) (*rsa.PublicKey, error) {
	normalized := normalizeKeyText(raw)
	der := pemBody(normalized)
	if der == nil {
		decoded, err := decodeKeyBody(normalized)
		if err != nil {
			return nil, err
		}
		der = decoded
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		if rsaKey, ok := key.(*rsa.PublicKey); ok {
			return rsaKey, nil
		}
		return nil, errKeyMalformed
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return key, nil
	}
	if cert, err := x509.ParseCertificate(der); err == nil {
		if rsaKey, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			return rsaKey, nil
		}
	}
	return nil, errKeyMalformed
}

func normalizeKeyText(raw string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "\\n", "\n")
	return strings.ReplaceAll(normalized, "\r\n", "\n")
}

func pemBody(normalized string) []byte {
	block, _ := pem.Decode([]byte(normalized))
	if block == nil {
		return nil
	}
	return block.Bytes
}

func decodeKeyBody(raw string) ([]byte, error) {
	lines := strings.Split(raw, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-----BEGIN ") || strings.HasPrefix(trimmed, "-----END ") {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return nil, errKeyMalformed
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(parts, ""))
	if err != nil {
		return nil, errKeyMalformed
	}
	return decoded, nil
}
