package trend

import (
	"math"

	"hmatrend/internal/market"
)

// EventSample 记录单个拐点的事件研究结果：拐点价格、之后
// 1..windowAfter 根 bar 的涨跌幅、窗口内年化波动率和方向一致性。
type EventSample struct {
	Index        int       `json:"index"`
	Time         int64     `json:"time"`
	Direction    Direction `json:"direction"`
	PriceAtEvent float64   `json:"price_at_event"`
	PriceChanges []float64 `json:"price_changes"`
	Volatility   float64   `json:"volatility"`
	Consistency  float64   `json:"consistency"`
}

// StudyEvent 对单个拐点做事件研究。靠近序列两端的拐点照常产出样本，
// 前瞻序列在数据用尽处截断；截断到空时一致性记 0，从不越界。
// annualization 是该粒度下一年的 bar 数，波动率按 sqrt(annualization) 年化。
func StudyEvent(tp TurningPoint, candles []market.Candle, windowBefore, windowAfter int, annualization float64) EventSample {
	sample := EventSample{
		Index:        tp.Index,
		Time:         candles[tp.Index].OpenTime,
		Direction:    tp.Direction,
		PriceAtEvent: candles[tp.Index].Close,
		PriceChanges: make([]float64, 0, windowAfter),
	}

	for j := 1; j <= windowAfter && tp.Index+j < len(candles); j++ {
		future := candles[tp.Index+j].Close
		sample.PriceChanges = append(sample.PriceChanges, (future/sample.PriceAtEvent-1)*100)
	}

	lo := tp.Index - windowBefore
	if lo < 0 {
		lo = 0
	}
	hi := tp.Index + windowAfter
	if hi > len(candles)-1 {
		hi = len(candles) - 1
	}
	sample.Volatility = annualizedVolatility(candles[lo:hi+1], annualization)

	if len(sample.PriceChanges) > 0 {
		matched := 0
		for _, change := range sample.PriceChanges {
			if (tp.Direction == DirectionUp && change > 0) || (tp.Direction == DirectionDown && change < 0) {
				matched++
			}
		}
		sample.Consistency = float64(matched) / float64(len(sample.PriceChanges))
	}
	return sample
}

// annualizedVolatility 计算窗口内简单收益率的样本标准差并年化。
// 收益率不足两个时记 0。
func annualizedVolatility(window []market.Candle, annualization float64) float64 {
	returns := make([]float64, 0, len(window))
	for i := 1; i < len(window); i++ {
		prev := window[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, window[i].Close/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance) * math.Sqrt(annualization)
}
