package jdpay

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const desKeySize = 24

// Config 京东支付回调配置
type Config struct {
	Merchant      string `json:"merchant" mapstructure:"merchant"`               // 商户号
	RSAPrivateKey string `json:"rsa_private_key" mapstructure:"rsa_private_key"` // 商户私钥
	RSAPublicKey  string `json:"rsa_public_key" mapstructure:"rsa_public_key"`   // 京东支付公钥
	DESKey        string `json:"des_key" mapstructure:"des_key"`                 // 3DES 密钥（base64）
}

// ParseConfig 解析配置
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfiguration)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfiguration)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfiguration)
	}
	cfg.normalize()
	return &cfg, nil
}

// ValidateConfig 校验配置完整性，缺失字段时返回带字段名的错误
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return newError(ErrConfiguration, "", fmt.Errorf("config is nil"))
	}
	required := []struct {
		name  string
		value string
	}{
		{"merchant", cfg.Merchant},
		{"rsa_private_key", cfg.RSAPrivateKey},
		{"rsa_public_key", cfg.RSAPublicKey},
		{"des_key", cfg.DESKey},
	}
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			return newError(ErrConfiguration, item.name, fmt.Errorf("%s is required", item.name))
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Merchant = strings.TrimSpace(c.Merchant)
	c.DESKey = strings.TrimSpace(c.DESKey)
}

func decodeDESKey(raw string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, newError(ErrConfiguration, "des_key", err)
	}
	if len(key) != desKeySize {
		return nil, newError(ErrConfiguration, "des_key", fmt.Errorf("key must be %d bytes, got %d", desKeySize, len(key)))
	}
	return key, nil
}
