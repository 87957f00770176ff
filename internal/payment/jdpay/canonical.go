package jdpay

import (
	"errors"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

const (
	rootElement       = "jdpay"
	defaultXMLHeader  = `<?xml version="1.0" encoding="UTF-8"?>`
	paramPairJoiner   = "&"
	paramKeyValueSign = "="
)

var errDocumentEmpty = errors.New("xml document has no root element")

// Params 回调参数集合
type Params map[string]string

// Canonicalizer 构造待签名串。不同网关的排序、拼接规则不同，由调用方注入。
type Canonicalizer interface {
	// Params 表单参数待签名串，必须排除 sign 与空值
	Params(params Params) string
	// Document XML 待签名串，header 为原始报文根元素之前的声明
	Document(doc *etree.Document, header string) (string, error)
}

// JDCanonicalizer 京东支付签名串规则
type JDCanonicalizer struct{}

// Params 按 key 升序拼接 k=v，以 & 连接
func (JDCanonicalizer) Params(params Params) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == signatureField || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+paramKeyValueSign+params[k])
	}
	return strings.Join(pairs, paramPairJoiner)
}

// Document 移除根节点下的 sign 后重新序列化，并以原始声明替换默认声明。
// 入参文档不会被修改。
func (JDCanonicalizer) Document(doc *etree.Document, header string) (string, error) {
	if doc == nil || doc.Root() == nil {
		return "", errDocumentEmpty
	}
	root := doc.Root().Copy()
	for _, sign := range root.SelectElements(signatureField) {
		root.RemoveChild(sign)
	}
	body, err := serializeElement(root)
	if err != nil {
		return "", err
	}
	if header == "" {
		header = defaultXMLHeader
	}
	return header + body, nil
}

func serializeElement(root *etree.Element) (string, error) {
	out := etree.NewDocument()
	out.WriteSettings.CanonicalText = true
	out.WriteSettings.CanonicalAttrVal = true
	out.SetRoot(root)
	out.Indent(etree.NoIndent)
	return out.WriteToString()
}

// xmlHeader 取根元素 <jdpay> 之前的文本
func xmlHeader(body string) string {
	idx := strings.Index(body, "<"+rootElement+">")
	if idx <= 0 {
		return ""
	}
	return strings.TrimSpace(body[:idx])
}
