package trend

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidIntervalPrice 表示区间价格非正，相关百分比无意义。
// 这类区间被排除出汇总并计数，不中断整个分析。
var ErrInvalidIntervalPrice = errors.New("invalid interval price")

// ExcursionResult 是单个区间上假想方向交易的收益/风险测算。
// RiskLossPct 为 0（零回撤）时 RiskRewardRatio 取 +Inf 哨兵，
// 汇总时会把它从均值里剔除。
type ExcursionResult struct {
	IdealProfitPct  float64 `json:"ideal_profit_pct"`
	ActualProfitPct float64 `json:"actual_profit_pct"`
	RiskLossPct     float64 `json:"risk_loss_pct"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// ComputeExcursion 对区间做方向相关的偏移测算。
// 多头和空头公式刻意不对称（模拟的是方向交易者，不是对称统计量），
// 各自走独立分支，避免把符号翻转埋进算式里。
func ComputeExcursion(iv Interval) (ExcursionResult, error) {
	if iv.StartPrice <= 0 || iv.EndPrice <= 0 || iv.HighPrice <= 0 || iv.LowPrice <= 0 {
		return ExcursionResult{}, fmt.Errorf("%w: start=%.8f end=%.8f high=%.8f low=%.8f",
			ErrInvalidIntervalPrice, iv.StartPrice, iv.EndPrice, iv.HighPrice, iv.LowPrice)
	}
	var res ExcursionResult
	switch iv.Direction {
	case DirectionUp:
		res = longExcursion(iv)
	case DirectionDown:
		res = shortExcursion(iv)
	default:
		return ExcursionResult{}, fmt.Errorf("unknown direction %q", iv.Direction)
	}
	if res.RiskLossPct > 0 {
		res.RiskRewardRatio = res.IdealProfitPct / res.RiskLossPct
	} else {
		res.RiskRewardRatio = math.Inf(1)
	}
	return res, nil
}

// longExcursion 多头视角：在起点买入。
// 理想收益 = 卖在区间最高点；实际收益 = 持有到下一个拐点；
// 风险损失 = 建仓后经历的最大回撤。
func longExcursion(iv Interval) ExcursionResult {
	return ExcursionResult{
		IdealProfitPct:  (iv.HighPrice/iv.StartPrice - 1) * 100,
		ActualProfitPct: (iv.EndPrice/iv.StartPrice - 1) * 100,
		RiskLossPct:     (iv.StartPrice/iv.LowPrice - 1) * 100,
	}
}

// shortExcursion 空头视角：在起点卖出。
// 理想收益 = 回补在区间最低点；风险损失 = 建仓后的最大反弹。
func shortExcursion(iv Interval) ExcursionResult {
	return ExcursionResult{
		IdealProfitPct:  (iv.StartPrice/iv.LowPrice - 1) * 100,
		ActualProfitPct: (iv.StartPrice/iv.EndPrice - 1) * 100,
		RiskLossPct:     (iv.HighPrice/iv.StartPrice - 1) * 100,
	}
}
