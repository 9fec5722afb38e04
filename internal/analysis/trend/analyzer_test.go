package trend

import (
	"math"
	"reflect"
	"testing"
)

func TestAnalyzerEndToEnd(t *testing.T) {
	// 单峰后回升的收盘序列，HMA(3) 的根号窗为 1，平滑后在 4 处
	// 出现下拐、8 处出现上拐，两者之间是一个下行区间。
	closes := []float64{100, 101, 103, 106, 105, 103, 100, 98, 99, 101}
	candles := candlesFromCloses(closes)

	analyzer, err := NewAnalyzer(Config{
		HMAPeriod:           3,
		SlopeThreshold:      0,
		EventWindowBefore:   2,
		EventWindowAfter:    2,
		AnnualizationFactor: 8760,
	})
	if err != nil {
		t.Fatalf("构造分析器失败: %v", err)
	}

	res, err := analyzer.Run("ETHUSDT", "1h", candles)
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}

	tps := res.Slope.TurningPoints
	if len(tps) != 2 {
		t.Fatalf("应识别 2 个拐点, 实际=%d", len(tps))
	}
	if tps[0].Index != 4 || tps[0].Direction != DirectionDown {
		t.Fatalf("第一个拐点应为 4/down, 实际=%+v", tps[0])
	}
	if tps[1].Index != 8 || tps[1].Direction != DirectionUp {
		t.Fatalf("第二个拐点应为 8/up, 实际=%+v", tps[1])
	}

	if len(res.Intervals) != 1 {
		t.Fatalf("应产出 1 个区间, 实际=%d", len(res.Intervals))
	}
	iv := res.Intervals[0].Interval
	if iv.Direction != DirectionDown || iv.StartIndex != 4 || iv.EndIndex != 8 {
		t.Fatalf("区间应为 down[4,8], 实际=%+v", iv)
	}
	if iv.StartPrice != 105 || iv.EndPrice != 99 {
		t.Fatalf("端点价格应为 105/99, 实际=%.2f/%.2f", iv.StartPrice, iv.EndPrice)
	}
	if iv.HighPrice != 106 || iv.LowPrice != 98 {
		t.Fatalf("区间极值应为 106/98, 实际=%.2f/%.2f", iv.HighPrice, iv.LowPrice)
	}
	if iv.Duration != 4 {
		t.Fatalf("持续长度应为 4 根, 实际=%d", iv.Duration)
	}

	ex := res.Intervals[0].Excursion
	wantIdeal := (105.0/98.0 - 1) * 100
	wantActual := (105.0/99.0 - 1) * 100
	wantRisk := (106.0/105.0 - 1) * 100
	if math.Abs(ex.IdealProfitPct-wantIdeal) > 1e-9 {
		t.Fatalf("理想收益应为 %.6f, 实际=%.6f", wantIdeal, ex.IdealProfitPct)
	}
	if math.Abs(ex.ActualProfitPct-wantActual) > 1e-9 {
		t.Fatalf("实际收益应为 %.6f, 实际=%.6f", wantActual, ex.ActualProfitPct)
	}
	if math.Abs(ex.RiskLossPct-wantRisk) > 1e-9 {
		t.Fatalf("风险损失应为 %.6f, 实际=%.6f", wantRisk, ex.RiskLossPct)
	}
	if math.Abs(ex.RiskRewardRatio-7.5) > 1e-9 {
		t.Fatalf("盈亏比应为 7.5, 实际=%.6f", ex.RiskRewardRatio)
	}

	rep := res.Report
	if rep.Symbol != "ETHUSDT" || rep.Interval != "1h" {
		t.Fatalf("报告标识错误: %s %s", rep.Symbol, rep.Interval)
	}
	if rep.Summary.TotalIntervals != 1 || rep.Summary.DownIntervals != 1 {
		t.Fatalf("汇总计数错误: %+v", rep.Summary)
	}
	if rep.Summary.TotalEvents != 2 || rep.Summary.UpEvents != 1 || rep.Summary.DownEvents != 1 {
		t.Fatalf("事件计数错误: %+v", rep.Summary)
	}
	if rep.DownTrends.WinRate != 1 {
		t.Fatalf("唯一下行区间确实下跌, 胜率应为 1, 实际=%.4f", rep.DownTrends.WinRate)
	}
	// 没有盈利的上行区间，分子为 0。
	if rep.ProfitLossRatio != 0 {
		t.Fatalf("盈亏比应为 0, 实际=%v", rep.ProfitLossRatio)
	}
}

func TestAnalyzerDeterministic(t *testing.T) {
	closes := []float64{100, 101, 103, 106, 105, 103, 100, 98, 99, 101}
	candles := candlesFromCloses(closes)
	analyzer, err := NewAnalyzer(Config{
		HMAPeriod: 3, EventWindowBefore: 2, EventWindowAfter: 2, AnnualizationFactor: 8760,
	})
	if err != nil {
		t.Fatalf("构造分析器失败: %v", err)
	}
	first, err := analyzer.Run("BTCUSDT", "4h", candles)
	if err != nil {
		t.Fatalf("第一次运行失败: %v", err)
	}
	second, err := analyzer.Run("BTCUSDT", "4h", candles)
	if err != nil {
		t.Fatalf("第二次运行失败: %v", err)
	}
	// 报告刻意不含时间戳：同输入同配置必须产出完全一致的报告。
	if !reflect.DeepEqual(first.Report, second.Report) {
		t.Fatalf("重复运行的报告应逐字段一致:\n%+v\n%+v", first.Report, second.Report)
	}
	// 平滑序列逐点一致（NaN 视为相等）。
	for i := range first.Smoothed {
		a, b := first.Smoothed[i], second.Smoothed[i]
		if math.IsNaN(a) && math.IsNaN(b) {
			continue
		}
		if a != b {
			t.Fatalf("平滑序列位置 %d 不一致: %v vs %v", i, a, b)
		}
	}
}

func TestAnalyzerShortSeriesDegrades(t *testing.T) {
	candles := candlesFromCloses([]float64{100, 101})
	analyzer, err := NewAnalyzer(Config{
		HMAPeriod: 45, EventWindowBefore: 5, EventWindowAfter: 5, AnnualizationFactor: 2190,
	})
	if err != nil {
		t.Fatalf("构造分析器失败: %v", err)
	}
	res, err := analyzer.Run("ETHUSDT", "4h", candles)
	if err != nil {
		t.Fatalf("短序列是正常输入, 不应报错: %v", err)
	}
	if len(res.Intervals) != 0 || len(res.Events) != 0 {
		t.Fatalf("短序列应退化为空结果, 实际=%d/%d", len(res.Intervals), len(res.Events))
	}
}

func TestAnalyzerRejectsBadSeries(t *testing.T) {
	candles := candlesFromCloses([]float64{100, 101, 102})
	candles[1].High = candles[1].Low - 1
	analyzer, err := NewAnalyzer(Config{
		HMAPeriod: 3, AnnualizationFactor: 8760,
	})
	if err != nil {
		t.Fatalf("构造分析器失败: %v", err)
	}
	if _, err := analyzer.Run("ETHUSDT", "4h", candles); err == nil {
		t.Fatal("非法序列应被拒绝")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"零周期", Config{HMAPeriod: 0, AnnualizationFactor: 1}},
		{"负阈值", Config{HMAPeriod: 3, SlopeThreshold: -1, AnnualizationFactor: 1}},
		{"负窗口", Config{HMAPeriod: 3, EventWindowAfter: -1, AnnualizationFactor: 1}},
		{"零年化", Config{HMAPeriod: 3}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("%s 应校验失败", tc.name)
		}
	}
	ok := Config{HMAPeriod: 45, EventWindowBefore: 5, EventWindowAfter: 5, AnnualizationFactor: 2190}
	if err := ok.Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}
}
