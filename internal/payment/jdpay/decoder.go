package jdpay

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxBodyBytes 回调报文默认大小上限
const DefaultMaxBodyBytes int64 = 1 << 20

// PayloadKind 回调报文形态
type PayloadKind int

const (
	PayloadForm PayloadKind = iota + 1
	PayloadXML
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadForm:
		return "form"
	case PayloadXML:
		return "xml"
	default:
		return "unknown"
	}
}

// Payload 解码后的原始报文，Form 时为 Params，XML 时为 Body
type Payload struct {
	Kind   PayloadKind
	Params Params
	Body   string
}

// ClassifyContentType 根据 Content-Type 判断报文形态，不读取报文体
func ClassifyContentType(contentType string) (PayloadKind, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return 0, newError(ErrUnsupportedContentType, "", fmt.Errorf("content type %q", contentType))
	}
	switch strings.ToLower(mediaType) {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return PayloadForm, nil
	case "text/xml", "application/xml":
		return PayloadXML, nil
	default:
		return 0, newError(ErrUnsupportedContentType, "", fmt.Errorf("content type %q", mediaType))
	}
}

// DecodeRequest 读取回调请求。这里是整个流程中唯一的 I/O 等待点。
func DecodeRequest(ctx context.Context, r *http.Request, maxBytes int64) (*Payload, error) {
	if r == nil {
		return nil, newError(ErrPayloadInvalid, "", fmt.Errorf("request is nil"))
	}
	kind, err := ClassifyContentType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, newError(ErrPayloadInvalid, "", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}

	switch kind {
	case PayloadForm:
		form, err := readForm(r, maxBytes)
		if err != nil {
			return nil, newError(ErrPayloadInvalid, "", err)
		}
		return &Payload{Kind: PayloadForm, Params: ParamsFromValues(form)}, nil
	default:
		if r.Body == nil {
			return &Payload{Kind: PayloadXML}, nil
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, newError(ErrPayloadInvalid, "", err)
		}
		return &Payload{Kind: PayloadXML, Body: string(body)}, nil
	}
}

func readForm(r *http.Request, maxBytes int64) (url.Values, error) {
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/") {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}
	if len(r.PostForm) > 0 {
		return r.PostForm, nil
	}
	return r.Form, nil
}

// ParamsFromValues 转换表单值，跳过空值，重复 key 取第一个
func ParamsFromValues(values url.Values) Params {
	params := make(Params, len(values))
	for key, list := range values {
		if len(list) == 0 || list[0] == "" {
			continue
		}
		params[key] = list[0]
	}
	return params
}
