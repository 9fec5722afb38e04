package binance

import "time"

// Config 描述 Binance 数据源运行所需的参数。
type Config struct {
	BaseURL      string
	HTTPTimeout  time.Duration
	RequestDelay time.Duration
	MaxRetries   int
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "https://api.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 30 * time.Second
	}
	if out.RequestDelay <= 0 {
		out.RequestDelay = 500 * time.Millisecond
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	return out
}
