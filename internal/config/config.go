package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config 是整个服务的 TOML 配置。缺省值向原始的 ETHUSDT/4h/HMA45
// 分析习惯看齐。
type Config struct {
	LogLevel string         `toml:"log_level"`
	Binance  BinanceConfig  `toml:"binance"`
	Analysis AnalysisConfig `toml:"analysis"`
	Storage  StorageConfig  `toml:"storage"`
	HTTP     HTTPConfig     `toml:"http"`
	Report   ReportConfig   `toml:"report"`
}

type BinanceConfig struct {
	BaseURL            string `toml:"base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	RequestDelayMillis int    `toml:"request_delay_millis"`
	MaxRetries         int    `toml:"max_retries"`
}

func (c BinanceConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c BinanceConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMillis) * time.Millisecond
}

type AnalysisConfig struct {
	Symbol              string  `toml:"symbol"`
	Interval            string  `toml:"interval"`
	HistoryLimit        int     `toml:"history_limit"`
	HMAPeriod           int     `toml:"hma_period"`
	SlopeThreshold      float64 `toml:"slope_threshold"`
	EventWindowBefore   int     `toml:"event_window_before"`
	EventWindowAfter    int     `toml:"event_window_after"`
	AnnualizationFactor float64 `toml:"annualization_factor"`
	Parallelism         int     `toml:"parallelism"`
}

type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"`
	MaxCached  int    `toml:"max_cached"`
}

type HTTPConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

type ReportConfig struct {
	OutputDir string `toml:"output_dir"`
	ChartDir  string `toml:"chart_dir"`
	// SnapshotPNG 为 true 时用无头浏览器把图表页面截成 PNG。
	SnapshotPNG bool `toml:"snapshot_png"`
}

// Load 读取并解析配置文件，随后补齐缺省值。文件不存在时返回纯缺省配置。
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out := cfg.withDefaults()
			return &out, nil
		}
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	out := cfg.withDefaults()
	return &out, nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.Binance.BaseURL == "" {
		out.Binance.BaseURL = "https://api.binance.com"
	}
	if out.Binance.HTTPTimeoutSeconds <= 0 {
		out.Binance.HTTPTimeoutSeconds = 30
	}
	if out.Binance.RequestDelayMillis <= 0 {
		out.Binance.RequestDelayMillis = 500
	}
	if out.Binance.MaxRetries <= 0 {
		out.Binance.MaxRetries = 3
	}
	if out.Analysis.Symbol == "" {
		out.Analysis.Symbol = "ETHUSDT"
	}
	if out.Analysis.Interval == "" {
		out.Analysis.Interval = "4h"
	}
	if out.Analysis.HistoryLimit <= 0 {
		out.Analysis.HistoryLimit = 1000
	}
	if out.Analysis.HMAPeriod <= 0 {
		out.Analysis.HMAPeriod = 45
	}
	if out.Analysis.EventWindowBefore <= 0 {
		out.Analysis.EventWindowBefore = 5
	}
	if out.Analysis.EventWindowAfter <= 0 {
		out.Analysis.EventWindowAfter = 5
	}
	if out.Analysis.AnnualizationFactor <= 0 {
		// 4h bar：一年 365*6 根。
		out.Analysis.AnnualizationFactor = 2190
	}
	if out.Analysis.Parallelism <= 0 {
		out.Analysis.Parallelism = 4
	}
	if out.Storage.SQLitePath == "" {
		out.Storage.SQLitePath = "data/hmatrend.db"
	}
	if out.Storage.MaxCached <= 0 {
		out.Storage.MaxCached = 5000
	}
	if out.HTTP.ListenAddr == "" {
		out.HTTP.ListenAddr = ":8080"
	}
	if out.Report.OutputDir == "" {
		out.Report.OutputDir = "assets/reports"
	}
	if out.Report.ChartDir == "" {
		out.Report.ChartDir = "assets/charts"
	}
	return out
}
