package market

import (
	"errors"
	"fmt"
	"time"
)

// Candle 表示一根已收盘的 K 线，时间戳为毫秒。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades,omitempty"`
	// TakerBuyVolume 主动买量，资金流指标用；没有逐笔数据的来源可为 0。
	TakerBuyVolume float64 `json:"taker_buy_volume,omitempty"`
}

// Time 返回该 K 线的开盘时刻（UTC）。
func (c Candle) Time() time.Time { return time.UnixMilli(c.OpenTime).UTC() }

// 序列校验失败时返回的具名错误，调用方可用 errors.Is 区分。
var (
	ErrEmptySeries      = errors.New("empty candle series")
	ErrHighBelowLow     = errors.New("high below low")
	ErrNonPositiveClose = errors.New("non-positive close")
	ErrNonMonotonic     = errors.New("non-monotonic open time")
)

// ValidateSeries 校验序列是否满足分析前提：非空、时间戳严格递增且唯一、
// high>=low、close>0、volume>=0。只拒绝，不修补。
func ValidateSeries(candles []Candle) error {
	if len(candles) == 0 {
		return ErrEmptySeries
	}
	for i, c := range candles {
		if c.High < c.Low {
			return fmt.Errorf("%w: index %d high=%.8f low=%.8f", ErrHighBelowLow, i, c.High, c.Low)
		}
		if c.Close <= 0 {
			return fmt.Errorf("%w: index %d close=%.8f", ErrNonPositiveClose, i, c.Close)
		}
		if c.Volume < 0 {
			return fmt.Errorf("negative volume: index %d volume=%.8f", i, c.Volume)
		}
		if i > 0 && c.OpenTime <= candles[i-1].OpenTime {
			return fmt.Errorf("%w: index %d open_time=%d prev=%d", ErrNonMonotonic, i, c.OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}

// Closes 提取收盘价序列。
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs 提取最高价序列。
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows 提取最低价序列。
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Volumes 提取成交量序列。
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
