package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hmatrend/internal/analysis/indicator"
	"hmatrend/internal/analysis/trend"
	"hmatrend/internal/market"
)

// MarkdownWriter 把报告写成 Markdown 策略文档。
type MarkdownWriter struct {
	outputDir string
}

func NewMarkdownWriter(outputDir string) *MarkdownWriter {
	return &MarkdownWriter{outputDir: outputDir}
}

// Context 是报告正文之外的市场背景信息。
type Context struct {
	Integrity market.IntegrityReport
	Snapshot  indicator.Snapshot
	Flow      market.FlowMetrics
}

// Write 渲染并落盘，返回文件路径。
func (w *MarkdownWriter) Write(rep trend.AnalysisReport, bctx Context) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}
	name := fmt.Sprintf("%s_%s_trend_%s.md", rep.Symbol, rep.Interval, time.Now().Format("20060102_150405"))
	path := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(path, []byte(Render(rep, bctx)), 0644); err != nil {
		return "", fmt.Errorf("写入报告失败: %w", err)
	}
	return path, nil
}

// Render 生成完整的 Markdown 文本。
func Render(rep trend.AnalysisReport, bctx Context) string {
	integ, snap, flow := bctx.Integrity, bctx.Snapshot, bctx.Flow
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s 趋势区间分析\n\n", rep.Symbol, rep.Interval)
	fmt.Fprintf(&b, "- HMA 周期: %d\n", rep.Config.HMAPeriod)
	fmt.Fprintf(&b, "- 斜率阈值: %.6f\n", rep.Config.SlopeThreshold)
	fmt.Fprintf(&b, "- 事件窗口: 前 %d / 后 %d\n", rep.Config.EventWindowBefore, rep.Config.EventWindowAfter)
	fmt.Fprintf(&b, "- 年化因子: %.0f\n\n", rep.Config.AnnualizationFactor)

	b.WriteString("## 执行摘要\n\n")
	fmt.Fprintf(&b, "共识别 %d 个趋势区间（上行 %d / 下行 %d），%d 个拐点事件。\n",
		rep.Summary.TotalIntervals, rep.Summary.UpIntervals, rep.Summary.DownIntervals, rep.Summary.TotalEvents)
	if rep.Summary.ExcludedIntervals > 0 {
		fmt.Fprintf(&b, "有 %d 个区间因价格异常被剔除，结论请谨慎采信。\n", rep.Summary.ExcludedIntervals)
	}
	fmt.Fprintf(&b, "整体盈亏比: %s。\n\n", formatRatio(rep.ProfitLossRatio))

	b.WriteString("## 区间统计\n\n")
	b.WriteString("| 指标 | 上行(做多) | 下行(做空) |\n|---|---|---|\n")
	writeStatRow(&b, "区间数", "%d", rep.UpTrends.Count, rep.DownTrends.Count)
	writeStatRow(&b, "胜率", "%.1f%%", rep.UpTrends.WinRate*100, rep.DownTrends.WinRate*100)
	writeStatRow(&b, "平均持续(bar)", "%.1f", rep.UpTrends.AvgDuration, rep.DownTrends.AvgDuration)
	writeStatRow(&b, "平均涨跌幅%", "%.2f", rep.UpTrends.AvgPriceChangePct, rep.DownTrends.AvgPriceChangePct)
	writeStatRow(&b, "最大涨跌幅%", "%.2f", rep.UpTrends.MaxPriceChangePct, rep.DownTrends.MaxPriceChangePct)
	writeStatRow(&b, "平均理想收益%", "%.2f", rep.UpTrends.AvgIdealProfitPct, rep.DownTrends.AvgIdealProfitPct)
	writeStatRow(&b, "最大理想收益%", "%.2f", rep.UpTrends.MaxIdealProfitPct, rep.DownTrends.MaxIdealProfitPct)
	writeStatRow(&b, "平均风险损失%", "%.2f", rep.UpTrends.AvgRiskLossPct, rep.DownTrends.AvgRiskLossPct)
	writeStatRow(&b, "平均风险收益比", "%.2f", rep.UpTrends.AvgRiskReward, rep.DownTrends.AvgRiskReward)
	b.WriteString("\n")

	b.WriteString("## 拐点事件\n\n")
	b.WriteString("| 指标 | 上拐点 | 下拐点 |\n|---|---|---|\n")
	writeStatRow(&b, "事件数", "%d", rep.UpTurns.Count, rep.DownTurns.Count)
	writeStatRow(&b, "平均年化波动率", "%.4f", rep.UpTurns.AvgVolatility, rep.DownTurns.AvgVolatility)
	writeStatRow(&b, "方向一致性", "%.1f%%", rep.UpTurns.AvgConsistency*100, rep.DownTurns.AvgConsistency*100)
	writeStatRow(&b, "1 根后平均变化%", "%.2f", rep.UpTurns.AvgChangeFirstBar, rep.DownTurns.AvgChangeFirstBar)
	b.WriteString("\n")

	b.WriteString("## 市场背景\n\n")
	fmt.Fprintf(&b, "- 最新收盘: %.4f\n", snap.LastClose)
	fmt.Fprintf(&b, "- EMA 快/慢: %.4f / %.4f\n", snap.EMAFast, snap.EMASlow)
	fmt.Fprintf(&b, "- RSI: %.1f (%s)\n", snap.RSI, snap.RSIState)
	fmt.Fprintf(&b, "- ATR: %.4f\n", snap.ATR)
	fmt.Fprintf(&b, "- CVD: %s (动量 %s, 分位 %s, 背离 %s)\n\n",
		flow.CVD.StringFixed(2), flow.Momentum.StringFixed(2), flow.Normalized.StringFixed(2), flow.Divergence)

	b.WriteString("## 数据完整性\n\n")
	if integ.Complete() {
		fmt.Fprintf(&b, "序列连续，共 %d 根。\n", integ.Present)
	} else {
		fmt.Fprintf(&b, "序列存在 %d 处缺口（期望 %d 根，实有 %d 根）；bar 计数与挂钟时长会出现偏差。\n",
			len(integ.Gaps), integ.Expected, integ.Present)
	}
	return b.String()
}

func writeStatRow[T any](b *strings.Builder, label, format string, up, down T) {
	fmt.Fprintf(b, "| %s | "+format+" | "+format+" |\n", label, up, down)
}
