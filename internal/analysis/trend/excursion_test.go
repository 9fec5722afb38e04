package trend

import (
	"errors"
	"math"
	"testing"
)

func TestLongExcursion(t *testing.T) {
	iv := Interval{
		Direction:  DirectionUp,
		StartPrice: 100, EndPrice: 110,
		HighPrice: 120, LowPrice: 95,
	}
	res, err := ComputeExcursion(iv)
	if err != nil {
		t.Fatalf("合法区间不应报错: %v", err)
	}
	if math.Abs(res.IdealProfitPct-20) > 1e-9 {
		t.Fatalf("多头理想收益应为 20, 实际=%.6f", res.IdealProfitPct)
	}
	if math.Abs(res.ActualProfitPct-10) > 1e-9 {
		t.Fatalf("多头实际收益应为 10, 实际=%.6f", res.ActualProfitPct)
	}
	wantRisk := (100.0/95.0 - 1) * 100
	if math.Abs(res.RiskLossPct-wantRisk) > 1e-9 {
		t.Fatalf("多头风险损失应为 %.6f, 实际=%.6f", wantRisk, res.RiskLossPct)
	}
	if math.Abs(res.RiskRewardRatio-20/wantRisk) > 1e-9 {
		t.Fatalf("盈亏比应为 %.6f, 实际=%.6f", 20/wantRisk, res.RiskRewardRatio)
	}
}

func TestShortExcursion(t *testing.T) {
	iv := Interval{
		Direction:  DirectionDown,
		StartPrice: 100, EndPrice: 90,
		HighPrice: 105, LowPrice: 80,
	}
	res, err := ComputeExcursion(iv)
	if err != nil {
		t.Fatalf("合法区间不应报错: %v", err)
	}
	// 空头公式与多头不对称：理想收益用最低点，风险用最高点。
	if math.Abs(res.IdealProfitPct-25) > 1e-9 {
		t.Fatalf("空头理想收益应为 25, 实际=%.6f", res.IdealProfitPct)
	}
	wantActual := (100.0/90.0 - 1) * 100
	if math.Abs(res.ActualProfitPct-wantActual) > 1e-9 {
		t.Fatalf("空头实际收益应为 %.6f, 实际=%.6f", wantActual, res.ActualProfitPct)
	}
	if math.Abs(res.RiskLossPct-5) > 1e-9 {
		t.Fatalf("空头风险损失应为 5, 实际=%.6f", res.RiskLossPct)
	}
	if math.Abs(res.RiskRewardRatio-5) > 1e-9 {
		t.Fatalf("盈亏比应为 5, 实际=%.6f", res.RiskRewardRatio)
	}
}

func TestZeroRiskSentinel(t *testing.T) {
	// 零回撤区间：多头建仓后从未跌破起点，盈亏比取 +Inf 哨兵。
	iv := Interval{
		Direction:  DirectionUp,
		StartPrice: 100, EndPrice: 110,
		HighPrice: 115, LowPrice: 100,
	}
	res, err := ComputeExcursion(iv)
	if err != nil {
		t.Fatalf("零回撤区间不应报错: %v", err)
	}
	if res.RiskLossPct != 0 {
		t.Fatalf("风险损失应为 0, 实际=%.6f", res.RiskLossPct)
	}
	if !math.IsInf(res.RiskRewardRatio, 1) {
		t.Fatalf("盈亏比应为 +Inf 哨兵, 实际=%v", res.RiskRewardRatio)
	}
}

func TestInvalidIntervalPrice(t *testing.T) {
	iv := Interval{
		Direction:  DirectionUp,
		StartPrice: 0, EndPrice: 110,
		HighPrice: 115, LowPrice: 100,
	}
	_, err := ComputeExcursion(iv)
	if !errors.Is(err, ErrInvalidIntervalPrice) {
		t.Fatalf("非正价格应返回 ErrInvalidIntervalPrice, 实际=%v", err)
	}
}

func TestUnknownDirection(t *testing.T) {
	iv := Interval{
		Direction:  Direction("sideways"),
		StartPrice: 100, EndPrice: 110,
		HighPrice: 115, LowPrice: 95,
	}
	if _, err := ComputeExcursion(iv); err == nil {
		t.Fatal("未知方向应报错")
	}
}
