package trend

import (
	"fmt"

	"hmatrend/internal/analysis/hma"
	"hmatrend/internal/logger"
	"hmatrend/internal/market"
)

// Config 是一次分析运行的全部参数，由调用方显式给出。
type Config struct {
	// HMAPeriod 平滑周期，惯用值 45。
	HMAPeriod int `json:"hma_period"`
	// SlopeThreshold 拐点的最小斜率幅度，0 表示不过滤。
	SlopeThreshold float64 `json:"slope_threshold"`
	// EventWindowBefore/After 事件研究的前后窗口（bar 数）。
	EventWindowBefore int `json:"event_window_before"`
	EventWindowAfter  int `json:"event_window_after"`
	// AnnualizationFactor 波动率年化因子（该粒度下一年的 bar 数），
	// 例如 1h 取 8760、4h 取 2190。
	AnnualizationFactor float64 `json:"annualization_factor"`
}

// Validate 拒绝无效参数。核心不做静默兜底，默认值由配置层给出。
func (c Config) Validate() error {
	if c.HMAPeriod <= 0 {
		return fmt.Errorf("hma_period must be positive, got %d", c.HMAPeriod)
	}
	if c.SlopeThreshold < 0 {
		return fmt.Errorf("slope_threshold must be non-negative, got %f", c.SlopeThreshold)
	}
	if c.EventWindowBefore < 0 || c.EventWindowAfter < 0 {
		return fmt.Errorf("event windows must be non-negative, got %d/%d", c.EventWindowBefore, c.EventWindowAfter)
	}
	if c.AnnualizationFactor <= 0 {
		return fmt.Errorf("annualization_factor must be positive, got %f", c.AnnualizationFactor)
	}
	return nil
}

// RunResult 是一次完整分析的产出，归属于本次运行，运行之间互不共享。
type RunResult struct {
	Smoothed  []float64
	Slope     SlopeResult
	Intervals []ScoredInterval
	Excluded  int
	Events    []EventSample
	Report    AnalysisReport
}

// Analyzer 驱动整条流水线：校验 → 平滑 → 斜率/拐点 → 区间/偏移 →
// 事件研究 → 汇总。各阶段都是输入完备的纯函数，单次运行单线程；
// 不同 symbol/粒度的运行之间没有共享状态，可以并行。
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg}, nil
}

// Run 对一条已排序的 K 线序列做完整分析。
// 序列校验失败立即返回具名错误；数据不足（短于周期、拐点不足）
// 不是错误，结果自然退化为空区间/空事件。
func (a *Analyzer) Run(symbol, interval string, candles []market.Candle) (*RunResult, error) {
	if err := market.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("candle series rejected: %w", err)
	}

	closes := market.Closes(candles)
	smoothed := hma.HMA(closes, a.cfg.HMAPeriod)
	if hma.ValidCount(smoothed) == 0 {
		logger.Warnf("[trend] %s %s 数据长度 %d 不足以计算 HMA(%d)", symbol, interval, len(candles), a.cfg.HMAPeriod)
	}

	slope := DetectSlope(smoothed, a.cfg.SlopeThreshold)
	partition := PartitionIntervals(slope.TurningPoints, candles)
	if partition.Diagnostic != "" {
		logger.Infof("[trend] %s %s: %s (turning_points=%d)", symbol, interval, partition.Diagnostic, len(slope.TurningPoints))
	}

	result := &RunResult{Smoothed: smoothed, Slope: slope}
	for _, iv := range partition.Intervals {
		ex, err := ComputeExcursion(iv)
		if err != nil {
			// 单个坏区间不拖垮整次运行，剔除并计数。
			result.Excluded++
			logger.Warnf("[trend] %s %s 区间 [%d,%d] 被剔除: %v", symbol, interval, iv.StartIndex, iv.EndIndex, err)
			continue
		}
		result.Intervals = append(result.Intervals, ScoredInterval{Interval: iv, Excursion: ex})
	}

	for _, tp := range slope.TurningPoints {
		result.Events = append(result.Events,
			StudyEvent(tp, candles, a.cfg.EventWindowBefore, a.cfg.EventWindowAfter, a.cfg.AnnualizationFactor))
	}

	result.Report = Aggregate(result.Intervals, result.Events, result.Excluded, a.cfg)
	result.Report.Symbol = symbol
	result.Report.Interval = interval
	logger.Debugf("[trend] %s %s: intervals=%d excluded=%d events=%d",
		symbol, interval, len(result.Intervals), result.Excluded, len(result.Events))
	return result, nil
}
