package trend

import "math"

// ScoredInterval 把区间和它的偏移测算绑在一起。
type ScoredInterval struct {
	Interval  Interval        `json:"interval"`
	Excursion ExcursionResult `json:"excursion"`
}

// IntervalStats 是单个方向分组的区间统计。分组为空时各项为零值。
type IntervalStats struct {
	Count             int     `json:"count"`
	AvgDuration       float64 `json:"avg_duration"`
	AvgPriceChangePct float64 `json:"avg_price_change_pct"`
	MaxPriceChangePct float64 `json:"max_price_change_pct"`
	MinPriceChangePct float64 `json:"min_price_change_pct"`
	AvgIdealProfitPct float64 `json:"avg_ideal_profit_pct"`
	MaxIdealProfitPct float64 `json:"max_ideal_profit_pct"`
	AvgRiskLossPct    float64 `json:"avg_risk_loss_pct"`
	MaxRiskLossPct    float64 `json:"max_risk_loss_pct"`
	// AvgRiskReward 只对有限值求均值，+Inf 哨兵被剔除并计入 Summary.DegenerateRatios。
	AvgRiskReward float64 `json:"avg_risk_reward"`
	WinRate       float64 `json:"win_rate"`
}

// EventStats 是单个方向分组的拐点事件统计。
type EventStats struct {
	Count             int     `json:"count"`
	AvgVolatility     float64 `json:"avg_volatility"`
	AvgConsistency    float64 `json:"avg_consistency"`
	AvgChangeFirstBar float64 `json:"avg_change_first_bar"`
	AvgChangeLastBar  float64 `json:"avg_change_last_bar"`
}

// Summary 汇总计数。ExcludedIntervals/DegenerateRatios 让下游
// 能够判断结果的可靠程度。
type Summary struct {
	TotalIntervals    int `json:"total_intervals"`
	UpIntervals       int `json:"up_intervals"`
	DownIntervals     int `json:"down_intervals"`
	TotalEvents       int `json:"total_events"`
	UpEvents          int `json:"up_events"`
	DownEvents        int `json:"down_events"`
	ExcludedIntervals int `json:"excluded_intervals"`
	DegenerateRatios  int `json:"degenerate_ratios"`
}

// AnalysisReport 是一次分析运行的只读汇总，每次运行整体重建。
// 刻意不含时间戳等运行期信息：同样的输入和配置必须产出完全一致的报告。
type AnalysisReport struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Config   Config `json:"config"`

	Summary    Summary       `json:"summary"`
	UpTrends   IntervalStats `json:"up_trends"`
	DownTrends IntervalStats `json:"down_trends"`
	UpTurns    EventStats    `json:"up_turns"`
	DownTurns  EventStats    `json:"down_turns"`

	// ProfitLossRatio = mean(上行区间正收益) / |mean(下行区间负收益)|，
	// 分母为 0 时取 +Inf 哨兵。
	ProfitLossRatio float64 `json:"-"`
}

// Aggregate 把区间和事件结果折叠为一份报告。任一方向分组为空都是
// 合法输入（单边市场），对应统计为零值而不是错误。
func Aggregate(scored []ScoredInterval, events []EventSample, excluded int, cfg Config) AnalysisReport {
	rep := AnalysisReport{Config: cfg}

	var up, down []ScoredInterval
	for _, s := range scored {
		if s.Interval.Direction == DirectionUp {
			up = append(up, s)
		} else {
			down = append(down, s)
		}
	}
	var upEvents, downEvents []EventSample
	for _, e := range events {
		if e.Direction == DirectionUp {
			upEvents = append(upEvents, e)
		} else {
			downEvents = append(downEvents, e)
		}
	}

	var degenerate int
	rep.UpTrends = intervalStats(up, DirectionUp, &degenerate)
	rep.DownTrends = intervalStats(down, DirectionDown, &degenerate)
	rep.UpTurns = eventStats(upEvents)
	rep.DownTurns = eventStats(downEvents)

	rep.Summary = Summary{
		TotalIntervals:    len(scored),
		UpIntervals:       len(up),
		DownIntervals:     len(down),
		TotalEvents:       len(events),
		UpEvents:          len(upEvents),
		DownEvents:        len(downEvents),
		ExcludedIntervals: excluded,
		DegenerateRatios:  degenerate,
	}
	rep.ProfitLossRatio = profitLossRatio(up, down)
	return rep
}

func intervalStats(group []ScoredInterval, dir Direction, degenerate *int) IntervalStats {
	stats := IntervalStats{Count: len(group)}
	if len(group) == 0 {
		return stats
	}
	stats.MaxPriceChangePct = math.Inf(-1)
	stats.MinPriceChangePct = math.Inf(1)
	stats.MaxIdealProfitPct = math.Inf(-1)
	stats.MaxRiskLossPct = math.Inf(-1)

	var wins, finiteRatios int
	var ratioSum float64
	for _, s := range group {
		iv, ex := s.Interval, s.Excursion
		stats.AvgDuration += float64(iv.Duration)
		stats.AvgPriceChangePct += iv.PriceChangePct
		stats.MaxPriceChangePct = math.Max(stats.MaxPriceChangePct, iv.PriceChangePct)
		stats.MinPriceChangePct = math.Min(stats.MinPriceChangePct, iv.PriceChangePct)
		stats.AvgIdealProfitPct += ex.IdealProfitPct
		stats.MaxIdealProfitPct = math.Max(stats.MaxIdealProfitPct, ex.IdealProfitPct)
		stats.AvgRiskLossPct += ex.RiskLossPct
		stats.MaxRiskLossPct = math.Max(stats.MaxRiskLossPct, ex.RiskLossPct)
		if math.IsInf(ex.RiskRewardRatio, 1) {
			*degenerate++
		} else {
			ratioSum += ex.RiskRewardRatio
			finiteRatios++
		}
		if (dir == DirectionUp && iv.PriceChangePct > 0) || (dir == DirectionDown && iv.PriceChangePct < 0) {
			wins++
		}
	}
	n := float64(len(group))
	stats.AvgDuration /= n
	stats.AvgPriceChangePct /= n
	stats.AvgIdealProfitPct /= n
	stats.AvgRiskLossPct /= n
	if finiteRatios > 0 {
		stats.AvgRiskReward = ratioSum / float64(finiteRatios)
	}
	stats.WinRate = float64(wins) / n
	return stats
}

func eventStats(group []EventSample) EventStats {
	stats := EventStats{Count: len(group)}
	if len(group) == 0 {
		return stats
	}
	var firstCount, lastCount int
	for _, e := range group {
		stats.AvgVolatility += e.Volatility
		stats.AvgConsistency += e.Consistency
		if len(e.PriceChanges) > 0 {
			stats.AvgChangeFirstBar += e.PriceChanges[0]
			firstCount++
		}
		if len(e.PriceChanges) > 0 {
			stats.AvgChangeLastBar += e.PriceChanges[len(e.PriceChanges)-1]
			lastCount++
		}
	}
	n := float64(len(group))
	stats.AvgVolatility /= n
	stats.AvgConsistency /= n
	if firstCount > 0 {
		stats.AvgChangeFirstBar /= float64(firstCount)
	}
	if lastCount > 0 {
		stats.AvgChangeLastBar /= float64(lastCount)
	}
	return stats
}

// profitLossRatio 衡量做多盈利区间与做空亏损区间的力度对比。
func profitLossRatio(up, down []ScoredInterval) float64 {
	if len(up) == 0 && len(down) == 0 {
		return 0
	}
	var posSum float64
	var posCount int
	for _, s := range up {
		if s.Interval.PriceChangePct > 0 {
			posSum += s.Interval.PriceChangePct
			posCount++
		}
	}
	var negSum float64
	var negCount int
	for _, s := range down {
		if s.Interval.PriceChangePct < 0 {
			negSum += s.Interval.PriceChangePct
			negCount++
		}
	}
	avgProfit := 0.0
	if posCount > 0 {
		avgProfit = posSum / float64(posCount)
	}
	if negCount == 0 {
		return math.Inf(1)
	}
	avgLoss := math.Abs(negSum / float64(negCount))
	if avgLoss == 0 {
		return math.Inf(1)
	}
	return avgProfit / avgLoss
}
