package hma

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestWMABasic(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	got := WMA(values, 2)
	if len(got) != len(values) {
		t.Fatalf("输出长度应与输入一致, 实际=%d", len(got))
	}
	if !math.IsNaN(got[0]) {
		t.Fatalf("暖机位应为 NaN, 实际=%v", got[0])
	}
	// 权重 1,2 归一化: (1*1+2*2)/3
	want := []float64{5.0 / 3, 8.0 / 3, 11.0 / 3}
	for i, w := range want {
		if !approx(got[i+1], w) {
			t.Fatalf("WMA[%d] 应为 %.6f, 实际=%.6f", i+1, w, got[i+1])
		}
	}
}

func TestWMAShortSeries(t *testing.T) {
	got := WMA([]float64{1, 2}, 5)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Fatalf("序列短于窗口时应整条 NaN, 位置 %d 实际=%v", i, v)
		}
	}
}

func TestWMANaNContaminatesWindow(t *testing.T) {
	values := []float64{1, 2, math.NaN(), 4, 5, 6}
	got := WMA(values, 2)
	// 含 NaN 的窗口输出 NaN，之后窗口恢复。
	if !math.IsNaN(got[2]) || !math.IsNaN(got[3]) {
		t.Fatalf("含 NaN 的窗口应输出 NaN, 实际=%v %v", got[2], got[3])
	}
	if math.IsNaN(got[4]) || math.IsNaN(got[5]) {
		t.Fatalf("NaN 离开窗口后应恢复有效值, 实际=%v %v", got[4], got[5])
	}
}

func TestHMASqrtWindowTruncated(t *testing.T) {
	// period=3 时根号窗是 int(sqrt(3))=1 而不是 round(sqrt(3))=2，
	// 此时 HMA 等于 raw = 2*WMA(1) - WMA(3)。
	values := []float64{100, 101, 103, 106, 105, 103, 100, 98, 99, 101}
	got := HMA(values, 3)
	want := []float64{
		math.NaN(), math.NaN(),
		625.0 / 6, 647.0 / 6, 105, 611.0 / 6, 589.0 / 6, 96.5, 595.0 / 6, 613.0 / 6,
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Fatalf("HMA[%d] 应为 NaN, 实际=%v", i, got[i])
			}
			continue
		}
		if !approx(got[i], want[i]) {
			t.Fatalf("HMA[%d] 应为 %.6f, 实际=%.6f", i, want[i], got[i])
		}
	}
}

func TestHMALengthAndWarmup(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	got := HMA(values, 9)
	if len(got) != len(values) {
		t.Fatalf("输出长度应与输入一致, 实际=%d", len(got))
	}
	// 暖机长度 = (period-1) + (sqrtLen-1) = 8 + 2
	warm := 10
	for i := 0; i < warm; i++ {
		if !math.IsNaN(got[i]) {
			t.Fatalf("位置 %d 应在暖机段, 实际=%v", i, got[i])
		}
	}
	for i := warm; i < len(got); i++ {
		if math.IsNaN(got[i]) {
			t.Fatalf("位置 %d 应已出暖机段, 实际=NaN", i)
		}
	}
}

func TestHMAShortSeriesAllNaN(t *testing.T) {
	got := HMA([]float64{1, 2, 3}, 10)
	if ValidCount(got) != 0 {
		t.Fatalf("序列短于周期时应整条 NaN, 有效数=%d", ValidCount(got))
	}
}

func TestValidCount(t *testing.T) {
	vs := []float64{1, math.NaN(), 2, math.Inf(1), 3}
	if n := ValidCount(vs); n != 3 {
		t.Fatalf("有效样本数应为 3, 实际=%d", n)
	}
}
