// Package reporter 把分析报告渲染成人类可读的形式：
// 终端摘要表和 Markdown 策略报告。核心结构本身不做任何序列化。
package reporter

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"

	"hmatrend/internal/analysis/trend"
)

// RenderConsole 渲染终端摘要表。
func RenderConsole(rep trend.AnalysisReport) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s %s · HMA%d · 阈值 %.4f",
		rep.Symbol, rep.Interval, rep.Config.HMAPeriod, rep.Config.SlopeThreshold))
	t.AppendHeader(table.Row{"方向", "区间", "胜率", "均值涨跌%", "均值理想%", "均值风险%", "均值盈亏比"})
	t.AppendRow(intervalRow("上行(做多)", rep.UpTrends))
	t.AppendRow(intervalRow("下行(做空)", rep.DownTrends))
	t.AppendFooter(table.Row{
		"合计",
		rep.Summary.TotalIntervals,
		"",
		"",
		"",
		"",
		fmt.Sprintf("盈亏比 %s", formatRatio(rep.ProfitLossRatio)),
	})
	summary := t.Render()

	e := table.NewWriter()
	e.SetStyle(table.StyleLight)
	e.AppendHeader(table.Row{"事件", "次数", "均值波动率", "一致性", "1根后%", "末根后%"})
	e.AppendRow(eventRow("上拐点", rep.UpTurns))
	e.AppendRow(eventRow("下拐点", rep.DownTurns))
	events := e.Render()

	tail := ""
	if rep.Summary.ExcludedIntervals > 0 || rep.Summary.DegenerateRatios > 0 {
		tail = fmt.Sprintf("\n注: 剔除区间 %d 个, 零回撤哨兵 %d 个",
			rep.Summary.ExcludedIntervals, rep.Summary.DegenerateRatios)
	}
	return summary + "\n" + events + tail
}

func intervalRow(label string, s trend.IntervalStats) table.Row {
	return table.Row{
		label,
		s.Count,
		fmt.Sprintf("%.1f%%", s.WinRate*100),
		fmt.Sprintf("%.2f", s.AvgPriceChangePct),
		fmt.Sprintf("%.2f", s.AvgIdealProfitPct),
		fmt.Sprintf("%.2f", s.AvgRiskLossPct),
		fmt.Sprintf("%.2f", s.AvgRiskReward),
	}
}

func eventRow(label string, s trend.EventStats) table.Row {
	return table.Row{
		label,
		s.Count,
		fmt.Sprintf("%.4f", s.AvgVolatility),
		fmt.Sprintf("%.1f%%", s.AvgConsistency*100),
		fmt.Sprintf("%.2f", s.AvgChangeFirstBar),
		fmt.Sprintf("%.2f", s.AvgChangeLastBar),
	}
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}
