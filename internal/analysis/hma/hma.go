// Package hma 实现 Hull 移动平均（Hull Moving Average）。
//
// HMA 通过两层加权平均的组合来压缩滞后：
//
//	raw = 2*WMA(close, period/2) - WMA(close, period)
//	hma = WMA(raw, sqrt(period))
//
// 序列中的暖机区间用 NaN 表示，长度不足时整条序列都是 NaN，不报错。
package hma

import "math"

// WMA 计算线性加权移动平均：窗口内权重 1..n，最近一根权重最高，
// 权重做归一化使结果仍是价格量纲。窗口未满或窗口内含 NaN 时输出 NaN。
func WMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}
	// 权重和 = n(n+1)/2
	weightSum := float64(period*(period+1)) / 2
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		valid := true
		for j := 0; j < period; j++ {
			v := values[i-period+1+j]
			if math.IsNaN(v) {
				valid = false
				break
			}
			sum += v * float64(j+1)
		}
		if valid {
			out[i] = sum / weightSum
		}
	}
	return out
}

// HMA 计算 Hull 移动平均。半窗和根号窗都向下取整并保底为 1，
// 根号窗用截断而不是四舍五入，保持和历史数据对齐。
func HMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < period {
		return out
	}

	half := period / 2
	if half < 1 {
		half = 1
	}
	sqrtLen := int(math.Sqrt(float64(period)))
	if sqrtLen < 1 {
		sqrtLen = 1
	}

	wmaHalf := WMA(values, half)
	wmaFull := WMA(values, period)

	raw := make([]float64, len(values))
	for i := range raw {
		if math.IsNaN(wmaHalf[i]) || math.IsNaN(wmaFull[i]) {
			raw[i] = math.NaN()
			continue
		}
		raw[i] = 2*wmaHalf[i] - wmaFull[i]
	}
	// raw 的 NaN 前缀会让未满窗口自然输出 NaN。
	return WMA(raw, sqrtLen)
}

// ValidCount 统计有效（非 NaN/Inf）样本数。
func ValidCount(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
