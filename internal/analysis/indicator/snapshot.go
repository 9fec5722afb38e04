// Package indicator 提供常规技术指标的最新值快照，作为趋势报告的
// 市场背景信息，不参与拐点判定。
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"hmatrend/internal/market"
)

type Settings struct {
	EMAFast   int
	EMASlow   int
	RSIPeriod int
	ATRPeriod int
}

func (s Settings) withDefaults() Settings {
	out := s
	if out.EMAFast <= 0 {
		out.EMAFast = 21
	}
	if out.EMASlow <= 0 {
		out.EMASlow = 55
	}
	if out.RSIPeriod <= 0 {
		out.RSIPeriod = 14
	}
	if out.ATRPeriod <= 0 {
		out.ATRPeriod = 14
	}
	return out
}

// Snapshot 是分析末根 bar 时刻的指标切面。
type Snapshot struct {
	LastClose float64 `json:"last_close"`
	EMAFast   float64 `json:"ema_fast"`
	EMASlow   float64 `json:"ema_slow"`
	RSI       float64 `json:"rsi"`
	RSIState  string  `json:"rsi_state"`
	ATR       float64 `json:"atr"`
}

// Compute 在序列末端取各指标的最新有效值。
func Compute(candles []market.Candle, cfg Settings) (Snapshot, error) {
	if len(candles) == 0 {
		return Snapshot{}, fmt.Errorf("no candles")
	}
	cfg = cfg.withDefaults()
	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)

	snap := Snapshot{
		LastClose: closes[len(closes)-1],
		EMAFast:   lastValid(talib.Ema(closes, cfg.EMAFast)),
		EMASlow:   lastValid(talib.Ema(closes, cfg.EMASlow)),
		RSI:       lastValid(talib.Rsi(closes, cfg.RSIPeriod)),
		ATR:       lastValid(talib.Atr(highs, lows, closes, cfg.ATRPeriod)),
	}
	switch {
	case snap.RSI >= 70:
		snap.RSIState = "overbought"
	case snap.RSI <= 30 && snap.RSI > 0:
		snap.RSIState = "oversold"
	default:
		snap.RSIState = "neutral"
	}
	return snap, nil
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) && series[i] != 0 {
			return series[i]
		}
	}
	return 0
}
