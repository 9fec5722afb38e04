package market

import (
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	cases := []struct {
		label string
		step  time.Duration
	}{
		{"1m", time.Minute},
		{"15m", 15 * time.Minute},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		tf, err := ParseTimeframe(tc.label)
		if err != nil {
			t.Fatalf("解析 %s 失败: %v", tc.label, err)
		}
		if tf.Step != tc.step {
			t.Fatalf("%s 步长应为 %v, 实际=%v", tc.label, tc.step, tf.Step)
		}
	}
	for _, bad := range []string{"", "h", "0h", "-1h", "3x"} {
		if _, err := ParseTimeframe(bad); err == nil {
			t.Fatalf("%q 应解析失败", bad)
		}
	}
}

func TestAnnualizationFactor(t *testing.T) {
	tf, _ := ParseTimeframe("4h")
	if got := tf.AnnualizationFactor(); got != 2190 {
		t.Fatalf("4h 年化因子应为 2190, 实际=%v", got)
	}
	tf, _ = ParseTimeframe("1h")
	if got := tf.AnnualizationFactor(); got != 8760 {
		t.Fatalf("1h 年化因子应为 8760, 实际=%v", got)
	}
}

func hourlyCandles(openTimes ...int64) []Candle {
	out := make([]Candle, len(openTimes))
	for i, ts := range openTimes {
		out[i] = Candle{OpenTime: ts, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
	}
	return out
}

func TestCheckIntegrityComplete(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	const h = 3_600_000
	rep := CheckIntegrity(hourlyCandles(0, h, 2*h, 3*h), tf)
	if !rep.Complete() {
		t.Fatalf("连续序列应完整, 实际=%+v", rep)
	}
	if rep.Expected != 4 || rep.Present != 4 {
		t.Fatalf("期望/实有应为 4/4, 实际=%d/%d", rep.Expected, rep.Present)
	}
}

func TestCheckIntegrityGap(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	const h = 3_600_000
	// 缺第 2、3 根。
	rep := CheckIntegrity(hourlyCandles(0, h, 4*h, 5*h), tf)
	if rep.Complete() {
		t.Fatal("缺口序列不应报告完整")
	}
	if len(rep.Gaps) != 1 {
		t.Fatalf("应识别 1 处缺口, 实际=%d", len(rep.Gaps))
	}
	gap := rep.Gaps[0]
	if gap.From != 2*h || gap.To != 3*h || gap.Count != 2 {
		t.Fatalf("缺口应为 [2h,3h]/2 根, 实际=%+v", gap)
	}
	if rep.Expected != 6 || rep.Present != 4 {
		t.Fatalf("期望/实有应为 6/4, 实际=%d/%d", rep.Expected, rep.Present)
	}
}

func TestCheckIntegrityEmpty(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	rep := CheckIntegrity(nil, tf)
	if !rep.Complete() || rep.Present != 0 {
		t.Fatalf("空序列应完整且实有为 0, 实际=%+v", rep)
	}
}
