package jdpay

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gitee.com/golang-module/dongle"
)

const (
	desBlockSize   = 8
	lengthPrefix   = 4
	envelopeField  = "encrypt"
	signatureField = "sign"
)

var errFrameInvalid = errors.New("plaintext frame invalid")

// Cipher 单字段对称加解密，密文为文本形式
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TripleDESCipher 京东支付 3DES-ECB 字段加解密。
// 明文帧：4 字节大端长度 + 原文 + 0 填充至 8 字节整数倍，密文为小写十六进制。
type TripleDESCipher struct {
	cipher *dongle.Cipher
}

// NewTripleDESCipher 使用 24 字节密钥创建字段加解密器
func NewTripleDESCipher(key []byte) (*TripleDESCipher, error) {
	if len(key) != desKeySize {
		return nil, newError(ErrConfiguration, "des_key", fmt.Errorf("key must be %d bytes, got %d", desKeySize, len(key)))
	}
	c := dongle.NewCipher()
	c.SetMode(dongle.ECB)
	c.SetPadding(dongle.No)
	c.SetKey(append([]byte(nil), key...))
	c.SetIV(make([]byte, desBlockSize))
	return &TripleDESCipher{cipher: c}, nil
}

// Encrypt 加密单个字段
func (c *TripleDESCipher) Encrypt(plaintext string) (string, error) {
	enc := dongle.Encrypt.FromBytes(frame([]byte(plaintext))).By3Des(c.cipher)
	if enc.Error != nil {
		return "", enc.Error
	}
	return hex.EncodeToString(enc.ToRawBytes()), nil
}

// Decrypt 解密单个字段
func (c *TripleDESCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	// 大小写不同的十六进制会解出相同密文，只接受小写
	if hex.EncodeToString(raw) != ciphertext {
		return "", errors.New("ciphertext must be lowercase hex")
	}
	if len(raw) == 0 || len(raw)%desBlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of %d", len(raw), desBlockSize)
	}
	dec := dongle.Decrypt.FromRawBytes(raw).By3Des(c.cipher)
	if dec.Error != nil {
		return "", dec.Error
	}
	plain, err := unframe(dec.ToBytes())
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", errors.New("plaintext is not utf-8")
	}
	return string(plain), nil
}

func frame(data []byte) []byte {
	total := len(data) + lengthPrefix
	if rem := total % desBlockSize; rem != 0 {
		total += desBlockSize - rem
	}
	out := make([]byte, total)
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[lengthPrefix:], data)
	return out
}

func unframe(block []byte) ([]byte, error) {
	if len(block) < lengthPrefix {
		return nil, errFrameInvalid
	}
	size := int(binary.BigEndian.Uint32(block[:lengthPrefix]))
	body := block[lengthPrefix:]
	if size > len(body) || len(body)-size >= desBlockSize {
		return nil, errFrameInvalid
	}
	if len(bytes.Trim(body[size:], "\x00")) != 0 {
		return nil, errFrameInvalid
	}
	return body[:size], nil
}

// decryptField 解密表单字段，失败时携带字段名
func decryptField(c Cipher, field, value string) (string, error) {
	plain, err := c.Decrypt(value)
	if err != nil {
		return "", newError(ErrDecryptionFailed, field, err)
	}
	return plain, nil
}

// openEnvelope 外层 base64 为传输编码，内层为 3DES 密文文本
func openEnvelope(c Cipher, encrypt string) (string, error) {
	inner, err := base64.StdEncoding.Strict().DecodeString(stripSpaces(encrypt))
	if err != nil {
		return "", newError(ErrDecryptionFailed, envelopeField, err)
	}
	return decryptField(c, envelopeField, string(inner))
}

// sealEnvelope 与 openEnvelope 相反
func sealEnvelope(c Cipher, plaintext string) (string, error) {
	ciphertext, err := c.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(ciphertext)), nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
