package main

import (
	"fmt"
	"strings"

	"github.com/paynotify/internal/config"
	"github.com/paynotify/internal/logger"

	"github.com/spf13/cobra"
)

var (
	// 全局标志
	configPath string
	fieldArgs  []string
	postURL    string
	timeoutMS  int
)

// rootCmd 联调用的回调报文模拟器
var rootCmd = &cobra.Command{
	Use:   "notifysim",
	Short: "京东支付回调报文模拟器",
	Long:  "使用商户配置构造已签名、已加密的京东支付异步通知，输出报文或直接投递到回调地址",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init("debug", logger.Options{})
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，默认查找 ./config.yml")
	rootCmd.PersistentFlags().StringArrayVarP(&fieldArgs, "field", "f", nil, "报文字段 key=value，可重复")
	rootCmd.PersistentFlags().StringVar(&postURL, "post", "", "直接 POST 到该回调地址")
	rootCmd.PersistentFlags().IntVar(&timeoutMS, "timeout-ms", 5000, "POST 超时(毫秒)")

	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(xmlCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.JDPay.RSAPrivateKey) == "" {
		return nil, fmt.Errorf("jdpay.rsa_private_key 未配置，无法签名")
	}
	return cfg, nil
}

// parseFields 解析 key=value，保持命令行顺序
func parseFields(raw []string) ([]fieldArg, error) {
	fields := make([]fieldArg, 0, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("字段格式错误: %q，应为 key=value", item)
		}
		fields = append(fields, fieldArg{Name: key, Value: value})
	}
	return fields, nil
}

type fieldArg struct {
	Name  string
	Value string
}
