package jdpay

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

const logValueLimit = 512

// NotifyClient 京东支付异步通知校验入口。
// 构造后只读，可在任意数量的并发请求间共享。
type NotifyClient struct {
	merchant   string
	privateKey *rsa.PrivateKey
	cipher     Cipher
	canon      Canonicalizer
	verifier   *Verifier
	maxBody    int64
	log        *zap.SugaredLogger
}

// Option NotifyClient 构造选项
type Option func(*NotifyClient)

// WithLogger 设置调试日志
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *NotifyClient) {
		if log != nil {
			c.log = log
		}
	}
}

// WithCipher 替换字段加解密实现
func WithCipher(cipher Cipher) Option {
	return func(c *NotifyClient) {
		if cipher != nil {
			c.cipher = cipher
		}
	}
}

// WithCanonicalizer 替换签名串规则
func WithCanonicalizer(canon Canonicalizer) Option {
	return func(c *NotifyClient) {
		if canon != nil {
			c.canon = canon
		}
	}
}

// WithMaxBodyBytes 设置报文大小上限
func WithMaxBodyBytes(n int64) Option {
	return func(c *NotifyClient) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewNotifyClient 校验配置并解析密钥，任何字段缺失或非法都返回 ErrConfiguration
func NewNotifyClient(cfg *Config, opts ...Option) (*NotifyClient, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	privateKey, err := parseRSAPrivateKey(cfg.RSAPrivateKey)
	if err != nil {
		return nil, newError(ErrConfiguration, "rsa_private_key", err)
	}
	publicKey, err := parseRSAPublicKey(cfg.RSAPublicKey)
	if err != nil {
		return nil, newError(ErrConfiguration, "rsa_public_key", err)
	}
	desKey, err := decodeDESKey(cfg.DESKey)
	if err != nil {
		return nil, err
	}
	cipher, err := NewTripleDESCipher(desKey)
	if err != nil {
		return nil, err
	}

	c := &NotifyClient{
		merchant:   cfg.Merchant,
		privateKey: privateKey,
		cipher:     cipher,
		canon:      JDCanonicalizer{},
		maxBody:    DefaultMaxBodyBytes,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.verifier = NewVerifier(publicKey, c.canon)
	return c, nil
}

// Merchant 商户号
func (c *NotifyClient) Merchant() string {
	return c.merchant
}

// Execute 读取并校验一次回调请求。成功返回已验签结果，失败时结果恒为 nil。
func (c *NotifyClient) Execute(ctx context.Context, r *http.Request) (*NotifyResult, error) {
	payload, err := DecodeRequest(ctx, r, c.maxBody)
	if err != nil {
		return nil, err
	}
	switch payload.Kind {
	case PayloadForm:
		return c.ExecuteParams(ctx, payload.Params)
	case PayloadXML:
		return c.ExecuteXML(ctx, payload.Body)
	default:
		return nil, newError(ErrUnsupportedContentType, "", errors.New("unknown payload kind"))
	}
}

// ExecuteForm 表单回调
func (c *NotifyClient) ExecuteForm(ctx context.Context, form url.Values) (*NotifyResult, error) {
	return c.ExecuteParams(ctx, ParamsFromValues(form))
}

// ExecuteParams 表单回调：逐字段解密（sign 除外）后做标准验签
func (c *NotifyClient) ExecuteParams(_ context.Context, raw Params) (*NotifyResult, error) {
	if len(raw) == 0 {
		return nil, newError(ErrEmptyParameters, "", nil)
	}
	sign, ok := raw[signatureField]
	if !ok || sign == "" {
		return nil, newError(ErrMissingSignature, signatureField, nil)
	}
	c.log.Debugw("jdpay_notify_form_received", "fields", len(raw))

	params := make(Params, len(raw))
	for key, value := range raw {
		if value == "" {
			continue
		}
		if key == signatureField {
			params[key] = value
			continue
		}
		plain, err := decryptField(c.cipher, key, value)
		if err != nil {
			return nil, err
		}
		params[key] = plain
	}

	if err := c.verifier.VerifyParams(params); err != nil {
		return nil, err
	}
	return newFormResult(params), nil
}

// ExecuteXML XML 回调：解开 encrypt 信封，还原比对验签后重新解析内层报文
func (c *NotifyClient) ExecuteXML(_ context.Context, body string) (*NotifyResult, error) {
	c.log.Debugw("jdpay_notify_xml_received", "body", truncate(body))

	outer := etree.NewDocument()
	if err := outer.ReadFromString(body); err != nil {
		return nil, newError(ErrPayloadInvalid, "", err)
	}
	if outer.Root() == nil {
		return nil, newError(ErrPayloadInvalid, "", errDocumentEmpty)
	}
	encryptElem := outer.Root().SelectElement(envelopeField)
	if encryptElem == nil || encryptElem.Text() == "" {
		return nil, newError(ErrEmptyEncryptedPayload, envelopeField, nil)
	}
	encrypt := encryptElem.Text()

	innerBody, err := openEnvelope(c.cipher, encrypt)
	if err != nil {
		return nil, err
	}
	c.log.Debugw("jdpay_notify_envelope_decrypted", "body", truncate(innerBody))

	inner := etree.NewDocument()
	if err := inner.ReadFromString(innerBody); err != nil || inner.Root() == nil {
		return nil, newError(ErrDecryptionFailed, envelopeField, err)
	}
	if tag := inner.Root().Tag; tag != rootElement {
		return nil, newError(ErrDecryptionFailed, envelopeField, fmt.Errorf("unexpected inner root <%s>", tag))
	}
	if err := c.verifier.VerifyDocument(inner, xmlHeader(body)); err != nil {
		return nil, err
	}
	return newXMLResult(inner, encrypt), nil
}

// Builder 使用同一套密钥构造回调报文
func (c *NotifyClient) Builder() *NotifyBuilder {
	return &NotifyBuilder{
		merchant:   c.merchant,
		privateKey: c.privateKey,
		cipher:     c.cipher,
		canon:      c.canon,
	}
}

func truncate(raw string) string {
	if len(raw) <= logValueLimit {
		return raw
	}
	return raw[:logValueLimit] + "...(truncated)"
}
