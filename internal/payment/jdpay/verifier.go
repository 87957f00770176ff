package jdpay

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/beevik/etree"
)

const minPKCS1PaddingLen = 8

var (
	errSignatureEmpty    = errors.New("signature is empty")
	errSignatureRepeated = errors.New("signature element repeated")
	errSignatureMismatch = errors.New("check sign and data failed")
	errSignatureBlock    = errors.New("recovered signature block invalid")
)

// Verifier 回调签名校验，签名串规则由 Canonicalizer 决定
type Verifier struct {
	publicKey *rsa.PublicKey
	canon     Canonicalizer
}

// NewVerifier 创建签名校验器，canon 为空时使用京东规则
func NewVerifier(publicKey *rsa.PublicKey, canon Canonicalizer) *Verifier {
	if canon == nil {
		canon = JDCanonicalizer{}
	}
	return &Verifier{publicKey: publicKey, canon: canon}
}

// VerifyParams 标准校验：SHA256withRSA（PKCS#1 v1.5）
func (v *Verifier) VerifyParams(params Params) error {
	sign, ok := params[signatureField]
	if !ok || sign == "" {
		return newError(ErrSignatureVerificationFailed, signatureField, errSignatureEmpty)
	}
	return v.verifyStandard(v.canon.Params(params), sign)
}

// VerifyDocument 还原比对校验：公钥直接解出签名中的摘要，与签名串的 SHA256 十六进制摘要逐字节比较
func (v *Verifier) VerifyDocument(doc *etree.Document, header string) error {
	if doc == nil || doc.Root() == nil {
		return newError(ErrSignatureVerificationFailed, "", errDocumentEmpty)
	}
	signs := doc.Root().SelectElements(signatureField)
	if len(signs) > 1 {
		return newError(ErrSignatureVerificationFailed, signatureField, errSignatureRepeated)
	}
	if len(signs) == 0 || signs[0].Text() == "" {
		return newError(ErrSignatureVerificationFailed, signatureField, errSignatureEmpty)
	}
	signElem := signs[0]
	content, err := v.canon.Document(doc, header)
	if err != nil {
		return newError(ErrSignatureVerificationFailed, "", err)
	}
	return v.recoverCompare(content, signElem.Text())
}

func (v *Verifier) verifyStandard(content, sign string) error {
	if v == nil || v.publicKey == nil {
		return newError(ErrSignatureVerificationFailed, "", ErrConfiguration)
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(sign)
	if err != nil {
		return newError(ErrSignatureVerificationFailed, signatureField, err)
	}
	hashed := sha256.Sum256([]byte(content))
	if err := rsa.VerifyPKCS1v15(v.publicKey, crypto.SHA256, hashed[:], raw); err != nil {
		return newError(ErrSignatureVerificationFailed, signatureField, err)
	}
	return nil
}

func (v *Verifier) recoverCompare(content, sign string) error {
	if v == nil || v.publicKey == nil {
		return newError(ErrSignatureVerificationFailed, "", ErrConfiguration)
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(stripSpaces(sign))
	if err != nil {
		return newError(ErrSignatureVerificationFailed, signatureField, err)
	}
	recovered, err := recoverDigest(v.publicKey, raw)
	if err != nil {
		return newError(ErrSignatureVerificationFailed, signatureField, err)
	}
	expected := Digest(content)
	if subtle.ConstantTimeCompare(recovered, []byte(expected)) != 1 {
		return newError(ErrSignatureVerificationFailed, signatureField, errSignatureMismatch)
	}
	return nil
}

// Digest 签名串摘要：SHA256 小写十六进制
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// recoverDigest 对签名做公钥原始运算 s^e mod n，并剥离 PKCS#1 type 1 填充：
// 0x00 0x01 0xFF... 0x00 || data
func recoverDigest(pub *rsa.PublicKey, sig []byte) ([]byte, error) {
	k := pub.Size()
	if len(sig) != k {
		return nil, errSignatureBlock
	}
	c := new(big.Int).SetBytes(sig)
	if c.Cmp(pub.N) >= 0 {
		return nil, errSignatureBlock
	}
	m := new(big.Int).Exp(c, big.NewInt(int64(pub.E)), pub.N)
	em := m.FillBytes(make([]byte, k))
	if em[0] != 0x00 || em[1] != 0x01 {
		return nil, errSignatureBlock
	}
	i := 2
	for i < k && em[i] == 0xff {
		i++
	}
	if i-2 < minPKCS1PaddingLen || i >= k || em[i] != 0x00 {
		return nil, errSignatureBlock
	}
	return em[i+1:], nil
}
