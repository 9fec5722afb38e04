package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"hmatrend/internal/config"
	"hmatrend/internal/config/writer"
	"hmatrend/internal/market"
	"hmatrend/internal/store"
)

// fakeSource 以合成正弦价格伪造 market.Source，方便验证编排逻辑。
type fakeSource struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("synthetic failure")
	}
	out := make([]market.Candle, limit)
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)/5)
		out[i] = market.Candle{
			OpenTime:  int64(i) * 3_600_000,
			CloseTime: int64(i)*3_600_000 + 3_599_999,
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 1,
		}
	}
	return out, nil
}

func (f *fakeSource) FetchRange(ctx context.Context, symbol, interval string, start, end int64) ([]market.Candle, error) {
	return f.FetchHistory(ctx, symbol, interval, 100)
}

func (f *fakeSource) Stats() market.SourceStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return market.SourceStats{Requests: f.calls}
}

func testServiceConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			Symbol:              "ETHUSDT",
			Interval:            "1h",
			HistoryLimit:        120,
			HMAPeriod:           9,
			EventWindowBefore:   3,
			EventWindowAfter:    3,
			AnnualizationFactor: 8760,
			Parallelism:         2,
		},
	}
}

func TestParamsFromJobFallsBackToGlobal(t *testing.T) {
	svc := New(testServiceConfig(), &fakeSource{}, nil, nil)

	p := svc.ParamsFromJob(writer.JobEntry{})
	if p.Symbol != "ETHUSDT" || p.Interval != "1h" || p.Trend.HMAPeriod != 9 {
		t.Fatalf("空任务应全部回落全局配置, 实际=%+v", p)
	}
	// 1h 粒度可解析，年化因子从粒度推导。
	if p.Trend.AnnualizationFactor != 8760 {
		t.Fatalf("年化因子应为 8760, 实际=%v", p.Trend.AnnualizationFactor)
	}

	p = svc.ParamsFromJob(writer.JobEntry{Symbol: "BTCUSDT", Interval: "4h", HMAPeriod: 21})
	if p.Symbol != "BTCUSDT" || p.Trend.HMAPeriod != 21 {
		t.Fatalf("任务覆盖字段应生效, 实际=%+v", p)
	}
	if p.Trend.AnnualizationFactor != 2190 {
		t.Fatalf("4h 年化因子应为 2190, 实际=%v", p.Trend.AnnualizationFactor)
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	src := &fakeSource{}
	svc := New(testServiceConfig(), src, nil, store.NewMemoryKlineStore())

	out, err := svc.Analyze(context.Background(), svc.DefaultParams())
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if out.Result.Report.Symbol != "ETHUSDT" || out.Result.Report.Interval != "1h" {
		t.Fatalf("报告标识错误: %+v", out.Result.Report)
	}
	if len(out.Candles) != 120 {
		t.Fatalf("应拉取 120 根, 实际=%d", len(out.Candles))
	}
	// 正弦价格必然产生拐点与区间。
	if out.Result.Report.Summary.TotalIntervals == 0 {
		t.Fatal("正弦序列应产出至少一个区间")
	}
	if !out.Integrity.Complete() {
		t.Fatalf("连续序列应完整, 实际=%+v", out.Integrity)
	}
	// 没接数据库时不产生报告 ID。
	if out.ReportID != "" {
		t.Fatalf("无数据库时 ReportID 应为空, 实际=%s", out.ReportID)
	}
}

func TestLoadCandlesPrefersCache(t *testing.T) {
	src := &fakeSource{}
	cache := store.NewMemoryKlineStore()
	svc := New(testServiceConfig(), src, nil, cache)
	ctx := context.Background()

	// 第一次回源并写缓存。
	if _, err := svc.LoadCandles(ctx, "ETHUSDT", "1h", 120); err != nil {
		t.Fatalf("首次加载失败: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("应回源 1 次, 实际=%d", src.calls)
	}
	// 第二次命中缓存，不再回源。
	if _, err := svc.LoadCandles(ctx, "ETHUSDT", "1h", 120); err != nil {
		t.Fatalf("二次加载失败: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("缓存命中后不应回源, 实际=%d", src.calls)
	}
}

func TestRunJobsSkipsDisabled(t *testing.T) {
	svc := New(testServiceConfig(), &fakeSource{}, nil, store.NewMemoryKlineStore())
	jobs := map[string]writer.JobEntry{
		"eth": {Symbol: "ETHUSDT", Interval: "1h"},
		"btc": {Symbol: "BTCUSDT", Interval: "1h"},
		"off": {Symbol: "SOLUSDT", Interval: "1h", Disabled: true},
	}
	outcomes, err := svc.RunJobs(context.Background(), jobs)
	if err != nil {
		t.Fatalf("批量任务失败: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("应产出 2 份结果, 实际=%d", len(outcomes))
	}
	if _, ok := outcomes["off"]; ok {
		t.Fatal("禁用任务不应执行")
	}
}

func TestRunJobsPropagatesFailure(t *testing.T) {
	svc := New(testServiceConfig(), &fakeSource{fail: true}, nil, nil)
	jobs := map[string]writer.JobEntry{
		"eth": {Symbol: "ETHUSDT", Interval: "1h"},
	}
	if _, err := svc.RunJobs(context.Background(), jobs); err == nil {
		t.Fatal("数据源失败应向上传播")
	}
}
