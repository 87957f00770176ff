package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/paynotify/internal/payment/jdpay"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeXML  = "text/xml; charset=utf-8"
)

// formCmd 构造表单回调
var formCmd = &cobra.Command{
	Use:   "form",
	Short: "构造表单回调",
	Long:  "各字段独立 3DES 加密，sign 为明文字段的 SHA256withRSA 签名",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, jdpay.PayloadForm)
	},
}

// xmlCmd 构造 XML 回调
var xmlCmd = &cobra.Command{
	Use:   "xml",
	Short: "构造 XML 回调",
	Long:  "内层报文签名后整体加密放入外层 <encrypt>，字段名支持点号路径如 result.code",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd, jdpay.PayloadXML)
	},
}

func runBuild(cmd *cobra.Command, kind jdpay.PayloadKind) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fields, err := parseFields(fieldArgs)
	if err != nil {
		return err
	}
	builder, err := jdpay.NewNotifyBuilder(&cfg.JDPay)
	if err != nil {
		return err
	}
	contentType, body, err := buildNotification(builder, kind, fields)
	if err != nil {
		return err
	}
	if postURL == "" {
		fmt.Fprintln(cmd.OutOrStdout(), body)
		return nil
	}
	status, ack, err := postNotification(postURL, contentType, body, time.Duration(timeoutMS)*time.Millisecond)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, ack)
	return nil
}

func buildNotification(builder *jdpay.NotifyBuilder, kind jdpay.PayloadKind, fields []fieldArg) (string, string, error) {
	switch kind {
	case jdpay.PayloadForm:
		values := make(map[string]string, len(fields))
		for _, f := range fields {
			if _, exists := values[f.Name]; !exists {
				values[f.Name] = f.Value
			}
		}
		form, err := builder.BuildForm(values)
		if err != nil {
			return "", "", err
		}
		return contentTypeForm, form.Encode(), nil
	case jdpay.PayloadXML:
		ordered := make([]jdpay.Field, 0, len(fields))
		for _, f := range fields {
			ordered = append(ordered, jdpay.Field{Name: f.Name, Value: f.Value})
		}
		body, err := builder.BuildXML(ordered)
		if err != nil {
			return "", "", err
		}
		return contentTypeXML, body, nil
	default:
		return "", "", fmt.Errorf("unsupported payload kind %s", kind)
	}
}

func postNotification(url, contentType, body string, timeout time.Duration) (int, string, error) {
	resp, err := resty.New().
		SetTimeout(timeout).
		R().
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(url)
	if err != nil {
		return 0, "", fmt.Errorf("post notify: %w", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return resp.StatusCode(), resp.String(), fmt.Errorf("notify endpoint returned %d", resp.StatusCode())
	}
	return resp.StatusCode(), resp.String(), nil
}
