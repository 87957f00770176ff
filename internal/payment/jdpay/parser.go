package jdpay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// NotifyKind 回调类型，取值封闭
type NotifyKind string

const (
	KindTrade  NotifyKind = "trade"
	KindRefund NotifyKind = "refund"
)

const (
	ResultCodeSuccess = "000000"

	fieldTradeNum  = "tradeNum"
	fieldOTradeNum = "oTradeNum"
	fieldAmount    = "amount"
	fieldCurrency  = "currency"
	fieldStatus    = "status"
	fieldResult    = "result.code"
	fieldDesc      = "result.desc"
)

// NotifyResult 已通过验签的回调结果。只能由 NotifyClient 构造。
type NotifyResult struct {
	Kind    NotifyKind
	Sign    string
	Encrypt string
	Fields  map[string]string
}

func newFormResult(params Params) *NotifyResult {
	fields := make(map[string]string, len(params))
	for k, v := range params {
		if k == signatureField {
			continue
		}
		fields[k] = v
	}
	return &NotifyResult{
		Kind:   resolveKind(fields),
		Sign:   params[signatureField],
		Fields: fields,
	}
}

// newXMLResult 以解密后的内层报文构造结果，并带上原始 encrypt
func newXMLResult(inner *etree.Document, encrypt string) *NotifyResult {
	fields := make(map[string]string)
	sign := ""
	if root := inner.Root(); root != nil {
		// 与验签取同一个 sign 节点
		if elem := root.SelectElement(signatureField); elem != nil {
			sign = elem.Text()
		}
		flattenElement(root, "", fields)
	}
	delete(fields, signatureField)
	return &NotifyResult{
		Kind:    resolveKind(fields),
		Sign:    sign,
		Encrypt: encrypt,
		Fields:  fields,
	}
}

// 嵌套节点以点号连接，同名兄弟节点追加下标，如 payList.pay[1].payType
func flattenElement(elem *etree.Element, prefix string, out map[string]string) {
	children := elem.ChildElements()
	counts := make(map[string]int, len(children))
	for _, child := range children {
		counts[child.Tag]++
	}
	seen := make(map[string]int, len(children))
	for _, child := range children {
		name := child.Tag
		if counts[name] > 1 {
			name = fmt.Sprintf("%s[%d]", name, seen[child.Tag])
			seen[child.Tag]++
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if len(child.ChildElements()) > 0 {
			flattenElement(child, name, out)
			continue
		}
		if text := child.Text(); text != "" {
			out[name] = text
		}
	}
}

func resolveKind(fields map[string]string) NotifyKind {
	if fields[fieldOTradeNum] != "" {
		return KindRefund
	}
	return KindTrade
}

// Get 读取业务字段
func (r *NotifyResult) Get(name string) string {
	if r == nil {
		return ""
	}
	return r.Fields[name]
}

// TradeNum 商户订单号
func (r *NotifyResult) TradeNum() string { return r.Get(fieldTradeNum) }

// OriginalTradeNum 退款对应的原交易号
func (r *NotifyResult) OriginalTradeNum() string { return r.Get(fieldOTradeNum) }

func (r *NotifyResult) Status() string { return r.Get(fieldStatus) }

func (r *NotifyResult) Currency() string { return r.Get(fieldCurrency) }

func (r *NotifyResult) ResultCode() string { return r.Get(fieldResult) }

func (r *NotifyResult) ResultDesc() string { return r.Get(fieldDesc) }

// Succeeded 网关返回码为成功。表单回调不带 result 节点时视为成功。
func (r *NotifyResult) Succeeded() bool {
	code := strings.TrimSpace(r.ResultCode())
	return code == "" || code == ResultCodeSuccess
}

// Amount 金额，单位分
func (r *NotifyResult) Amount() (int64, error) {
	raw := strings.TrimSpace(r.Get(fieldAmount))
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// AmountYuan 金额，单位元
func (r *NotifyResult) AmountYuan() (decimal.Decimal, error) {
	fen, err := r.Amount()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(fen, -2), nil
}
