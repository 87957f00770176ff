package jdpay

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

const notifyVersion = "V2.0"

var errPrivateKeyMissing = errors.New("private key missing")

// Field 有序的 XML 字段，Name 支持点号路径（result.code）
type Field struct {
	Name  string
	Value string
}

// NotifyBuilder 按网关规则构造回调报文，用于联调与测试
type NotifyBuilder struct {
	merchant   string
	privateKey *rsa.PrivateKey
	cipher     Cipher
	canon      Canonicalizer
}

// NewNotifyBuilder 使用完整配置创建报文构造器
func NewNotifyBuilder(cfg *Config) (*NotifyBuilder, error) {
	client, err := NewNotifyClient(cfg)
	if err != nil {
		return nil, err
	}
	return client.Builder(), nil
}

// BuildForm 构造表单回调：明文签名，各字段独立加密
func (b *NotifyBuilder) BuildForm(fields map[string]string) (url.Values, error) {
	params := make(Params, len(fields))
	for k, v := range fields {
		if k == signatureField || v == "" {
			continue
		}
		params[k] = v
	}
	sign, err := b.signStandard(b.canon.Params(params))
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	for k, v := range params {
		ciphertext, err := b.cipher.Encrypt(v)
		if err != nil {
			return nil, fmt.Errorf("encrypt field %s: %w", k, err)
		}
		values.Set(k, ciphertext)
	}
	values.Set(signatureField, sign)
	return values, nil
}

// BuildXML 构造 XML 回调：内层报文签名后整体加密放入外层 encrypt
func (b *NotifyBuilder) BuildXML(fields []Field) (string, error) {
	inner := etree.NewDocument()
	root := inner.CreateElement(rootElement)
	for _, f := range fields {
		if f.Name == "" || f.Name == signatureField {
			continue
		}
		setPath(root, f.Name, f.Value)
	}

	content, err := b.canon.Document(inner, defaultXMLHeader)
	if err != nil {
		return "", err
	}
	sign, err := b.signRecoverable(Digest(content))
	if err != nil {
		return "", err
	}
	root.CreateElement(signatureField).SetText(sign)

	innerBody, err := serializeElement(root.Copy())
	if err != nil {
		return "", err
	}
	encrypt, err := sealEnvelope(b.cipher, defaultXMLHeader+innerBody)
	if err != nil {
		return "", err
	}

	outer := etree.NewDocument()
	outerRoot := outer.CreateElement(rootElement)
	outerRoot.CreateElement("version").SetText(notifyVersion)
	outerRoot.CreateElement("merchant").SetText(b.merchant)
	result := outerRoot.CreateElement("result")
	result.CreateElement("code").SetText(ResultCodeSuccess)
	result.CreateElement("desc").SetText("success")
	outerRoot.CreateElement(envelopeField).SetText(encrypt)
	outerBody, err := serializeElement(outerRoot.Copy())
	if err != nil {
		return "", err
	}
	return defaultXMLHeader + outerBody, nil
}

func setPath(root *etree.Element, path, value string) {
	segments := strings.Split(path, ".")
	parent := root
	for _, seg := range segments[:len(segments)-1] {
		next := parent.SelectElement(seg)
		if next == nil {
			next = parent.CreateElement(seg)
		}
		parent = next
	}
	parent.CreateElement(segments[len(segments)-1]).SetText(value)
}

func (b *NotifyBuilder) signStandard(content string) (string, error) {
	if b.privateKey == nil {
		return "", errPrivateKeyMissing
	}
	hashed := sha256.Sum256([]byte(content))
	sig, err := rsa.SignPKCS1v15(rand.Reader, b.privateKey, crypto.SHA256, hashed[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// signRecoverable 私钥对摘要文本做 PKCS#1 type 1 运算，不带 DigestInfo，
// 公钥可直接还原出摘要文本
func (b *NotifyBuilder) signRecoverable(digest string) (string, error) {
	if b.privateKey == nil {
		return "", errPrivateKeyMissing
	}
	sig, err := rsa.SignPKCS1v15(nil, b.privateKey, crypto.Hash(0), []byte(digest))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
