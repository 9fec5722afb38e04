package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("缺失文件应回落默认配置: %v", err)
	}
	if cfg.Analysis.Symbol != "ETHUSDT" || cfg.Analysis.Interval != "4h" {
		t.Fatalf("默认交易对应为 ETHUSDT/4h, 实际=%s/%s", cfg.Analysis.Symbol, cfg.Analysis.Interval)
	}
	if cfg.Analysis.HMAPeriod != 45 {
		t.Fatalf("默认 HMA 周期应为 45, 实际=%d", cfg.Analysis.HMAPeriod)
	}
	if cfg.Analysis.AnnualizationFactor != 2190 {
		t.Fatalf("默认年化因子应为 2190, 实际=%v", cfg.Analysis.AnnualizationFactor)
	}
	if cfg.HTTP.ListenAddr != ":8080" {
		t.Fatalf("默认监听地址应为 :8080, 实际=%s", cfg.HTTP.ListenAddr)
	}
}

func TestLoadOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
log_level = "debug"

[analysis]
symbol = "BTCUSDT"
hma_period = 21

[binance]
max_retries = 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写测试配置失败: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Analysis.Symbol != "BTCUSDT" || cfg.Analysis.HMAPeriod != 21 {
		t.Fatalf("显式配置应生效, 实际=%+v", cfg.Analysis)
	}
	if cfg.Binance.MaxRetries != 5 {
		t.Fatalf("max_retries 应为 5, 实际=%d", cfg.Binance.MaxRetries)
	}
	// 未配置的字段补默认值。
	if cfg.Analysis.Interval != "4h" || cfg.Storage.SQLitePath == "" {
		t.Fatalf("缺省字段应回填, 实际=%+v", cfg)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("not = [valid"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("非法 TOML 应报错")
	}
}
