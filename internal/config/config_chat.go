package config

import (
	"strings"
	"time"
)

type Chat struct {
	HistoryLimit   int    `yaml:"history_limit" json:"history_limit"`
	WithdrawWindow string `yaml:"withdraw_window" json:"withdraw_window"`
}

// WithdrawWindowDuration 消息可撤回的时间窗口，默认 5 分钟
func (c Chat) WithdrawWindowDuration() time.Duration {
	const defaultWindow = 5 * time.Minute
	if strings.TrimSpace(c.WithdrawWindow) == "" {
		return defaultWindow
	}
	if d, err := time.ParseDuration(strings.TrimSpace(c.WithdrawWindow)); err == nil && d > 0 {
		return d
	}
	return defaultWindow
}

type Danmu struct {
	MaxLength int `yaml:"max_length" json:"max_length"`
}

// MaxLengthOrDefault 弹幕内容最大长度（与数据库 VARCHAR(100) 保持一致）
func (d Danmu) MaxLengthOrDefault() int {
	if d.MaxLength <= 0 {
		return 100
	}
	return d.MaxLength
}

// MQ 弹幕审核事件的 RabbitMQ 配置；URL 为空时不启用发布
type MQ struct {
	URL      string `yaml:"url" json:"url"`
	Exchange string `yaml:"exchange" json:"exchange"`
}

func (m MQ) ExchangeOrDefault() string {
	if strings.TrimSpace(m.Exchange) == "" {
		return "clipwave.danmu.review"
	}
	return m.Exchange
}
