package trend

import (
	"math"

	"hmatrend/internal/market"
)

// DiagInsufficientTurningPoints 表示拐点不足两个，无法切分区间。
// 短序列属于正常输入，调用方据此继续而不是报错。
const DiagInsufficientTurningPoints = "insufficient_turning_points"

// Interval 是相邻两个拐点之间的趋势区间。
// 端点价格取拐点所在 bar 的收盘价；区间高低点取闭区间
// [StartIndex, EndIndex] 内所有 bar 的最高/最低价——偏移测算
// 需要的是整个通道的极值，不只是端点。
type Interval struct {
	StartIndex     int       `json:"start_index"`
	EndIndex       int       `json:"end_index"`
	StartTime      int64     `json:"start_time"`
	EndTime        int64     `json:"end_time"`
	Direction      Direction `json:"direction"`
	StartPrice     float64   `json:"start_price"`
	EndPrice       float64   `json:"end_price"`
	HighPrice      float64   `json:"high_price"`
	LowPrice       float64   `json:"low_price"`
	Duration       int       `json:"duration"`
	DurationMillis int64     `json:"duration_millis"`
	PriceChange    float64   `json:"price_change"`
	PriceChangePct float64   `json:"price_change_pct"`
	PFEPct         float64   `json:"pfe_pct"`
	MAEPct         float64   `json:"mae_pct"`
}

// PartitionResult 携带区间列表和可能的诊断标记。
type PartitionResult struct {
	Intervals  []Interval
	Diagnostic string
}

// PartitionIntervals 把有序拐点序列切分为趋势区间：每对相邻拐点产出
// 一个区间，方向由起点拐点决定。拐点不足两个时返回空列表和诊断标记。
//
// 过滤阈值可能产生连续同向拐点，此时区间原样透传（方向仍取起点），
// 报告里的分组计数可以暴露这种情况。索引重合的退化区间照常产出，
// Duration 为 0，由调用方自行过滤。
func PartitionIntervals(tps []TurningPoint, candles []market.Candle) PartitionResult {
	if len(tps) < 2 {
		return PartitionResult{Diagnostic: DiagInsufficientTurningPoints}
	}
	out := make([]Interval, 0, len(tps)-1)
	for k := 0; k+1 < len(tps); k++ {
		start, end := tps[k], tps[k+1]
		iv := Interval{
			StartIndex: start.Index,
			EndIndex:   end.Index,
			StartTime:  candles[start.Index].OpenTime,
			EndTime:    candles[end.Index].OpenTime,
			Direction:  start.Direction,
			StartPrice: candles[start.Index].Close,
			EndPrice:   candles[end.Index].Close,
			Duration:   end.Index - start.Index,
		}
		iv.DurationMillis = iv.EndTime - iv.StartTime
		iv.HighPrice, iv.LowPrice = rangeExtremes(candles[start.Index : end.Index+1])
		iv.PriceChange = iv.EndPrice - iv.StartPrice
		iv.PriceChangePct = (iv.EndPrice/iv.StartPrice - 1) * 100
		iv.PFEPct, iv.MAEPct = favorableAdverse(iv)
		out = append(out, iv)
	}
	return PartitionResult{Intervals: out}
}

func rangeExtremes(candles []market.Candle) (high, low float64) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, c := range candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// favorableAdverse 按方向返回 (PFE%, MAE%)。价格非正时返回 NaN，
// 留给偏移计算器判定并剔除。
func favorableAdverse(iv Interval) (float64, float64) {
	if iv.StartPrice <= 0 || iv.LowPrice <= 0 {
		return math.NaN(), math.NaN()
	}
	if iv.Direction == DirectionUp {
		return (iv.HighPrice/iv.StartPrice - 1) * 100, (iv.StartPrice/iv.LowPrice - 1) * 100
	}
	return (iv.StartPrice/iv.LowPrice - 1) * 100, (iv.HighPrice/iv.StartPrice - 1) * 100
}
