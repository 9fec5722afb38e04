package market

import "github.com/shopspring/decimal"

// FlowMetrics 是主动成交量累计差（CVD）的切面，作为趋势报告的
// 资金流背景。累加用 decimal 做，长窗口下浮点误差会吃掉小额差值。
type FlowMetrics struct {
	CVD        decimal.Decimal `json:"cvd"`
	Momentum   decimal.Decimal `json:"momentum"`
	Normalized decimal.Decimal `json:"normalized"`
	Divergence string          `json:"divergence"`
	PeakFlip   string          `json:"peak_flip"`
}

const flowLookback = 6

// ComputeFlow 从主动买量序列计算 CVD 指标。
//   - CVD: (主动买 - 主动卖) 的累计和，主动卖 = 总量 - 主动买。
//   - Momentum: 最新值减 6 根前的值，数据不足记 0。
//   - Normalized: (last-min)/(max-min)，序列无波动时记 0.5。
//   - Divergence: 价升量降为 "down"，价降量升为 "up"，否则 "neutral"。
//   - PeakFlip: 最近三点构成局部顶/底时标记 "local_top"/"local_bottom"。
//
// 第二个返回值在序列为空时为 false。
func ComputeFlow(candles []Candle) (FlowMetrics, bool) {
	if len(candles) == 0 {
		return FlowMetrics{}, false
	}
	cvd := make([]decimal.Decimal, 0, len(candles))
	closes := make([]decimal.Decimal, 0, len(candles))
	cumulative := decimal.Zero
	for _, c := range candles {
		buy := decimal.NewFromFloat(c.TakerBuyVolume)
		sell := decimal.NewFromFloat(c.Volume).Sub(buy)
		cumulative = cumulative.Add(buy.Sub(sell))
		cvd = append(cvd, cumulative)
		closes = append(closes, decimal.NewFromFloat(c.Close))
	}

	last := cvd[len(cvd)-1]
	momentum := decimal.Zero
	if len(cvd) > flowLookback {
		momentum = last.Sub(cvd[len(cvd)-flowLookback])
	}

	minVal, maxVal := cvd[0], cvd[0]
	for _, v := range cvd[1:] {
		if v.LessThan(minVal) {
			minVal = v
		}
		if v.GreaterThan(maxVal) {
			maxVal = v
		}
	}
	norm := decimal.NewFromFloat(0.5)
	if maxVal.GreaterThan(minVal) {
		norm = last.Sub(minVal).Div(maxVal.Sub(minVal))
	}

	priceNow := closes[len(closes)-1]
	pricePrev, cvdPrev := closes[0], cvd[0]
	if len(closes) > flowLookback {
		pricePrev = closes[len(closes)-flowLookback]
		cvdPrev = cvd[len(cvd)-flowLookback]
	}
	divergence := "neutral"
	if priceNow.GreaterThan(pricePrev) && last.LessThan(cvdPrev) {
		divergence = "down"
	} else if priceNow.LessThan(pricePrev) && last.GreaterThan(cvdPrev) {
		divergence = "up"
	}

	peakFlip := "none"
	if len(cvd) > 3 {
		a, b, c := cvd[len(cvd)-1], cvd[len(cvd)-2], cvd[len(cvd)-3]
		if a.LessThan(b) && b.GreaterThan(c) {
			peakFlip = "local_top"
		} else if a.GreaterThan(b) && b.LessThan(c) {
			peakFlip = "local_bottom"
		}
	}

	return FlowMetrics{
		CVD:        last,
		Momentum:   momentum,
		Normalized: norm,
		Divergence: divergence,
		PeakFlip:   peakFlip,
	}, true
}
