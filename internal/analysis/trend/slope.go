// Package trend 基于平滑均线斜率的趋势区间分析：
// 斜率/拐点识别、区间切分、超额偏移测算、事件研究与汇总报告。
package trend

import "math"

// Direction 标记趋势方向，由区间起点的拐点类型决定。
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// TurningPoint 是平滑均线斜率符号翻转的位置。
type TurningPoint struct {
	Index     int       `json:"index"`
	Direction Direction `json:"direction"`
	Slope     float64   `json:"slope"`
}

// SlopeResult 包含一阶差分序列、符号序列和识别出的拐点。
// Slope 与输入等长，i=0 或操作数未定义处为 NaN；Sign 用 0 表示零斜率或未定义。
type SlopeResult struct {
	Slope         []float64
	Sign          []int
	TurningPoints []TurningPoint
}

// DetectSlope 对平滑序列做一阶差分并识别拐点。
// 拐点定义：相邻已定义符号的差恰为 ±2，即 -1→+1（上拐）或 +1→-1（下拐）；
// 经过 0 的渐变（-1→0→+1）不算拐点。
//
// minSlope > 0 时过滤掉 |slope| 低于阈值的拐点。过滤是纯删除，
// 不会修复方向交替性，下游不得假设过滤后仍严格交替。
func DetectSlope(smoothed []float64, minSlope float64) SlopeResult {
	n := len(smoothed)
	res := SlopeResult{
		Slope: make([]float64, n),
		Sign:  make([]int, n),
	}
	for i := 0; i < n; i++ {
		if i == 0 || math.IsNaN(smoothed[i]) || math.IsNaN(smoothed[i-1]) {
			res.Slope[i] = math.NaN()
			continue
		}
		res.Slope[i] = smoothed[i] - smoothed[i-1]
		switch {
		case res.Slope[i] > 0:
			res.Sign[i] = 1
		case res.Slope[i] < 0:
			res.Sign[i] = -1
		}
	}
	for i := 1; i < n; i++ {
		if math.IsNaN(res.Slope[i]) || math.IsNaN(res.Slope[i-1]) {
			continue
		}
		var dir Direction
		switch res.Sign[i] - res.Sign[i-1] {
		case 2:
			dir = DirectionUp
		case -2:
			dir = DirectionDown
		default:
			continue
		}
		if minSlope > 0 && math.Abs(res.Slope[i]) < minSlope {
			continue
		}
		res.TurningPoints = append(res.TurningPoints, TurningPoint{
			Index:     i,
			Direction: dir,
			Slope:     res.Slope[i],
		})
	}
	return res
}
