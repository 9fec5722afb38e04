// Package chart 用 go-echarts 绘制 K 线 + HMA 叠加图，
// 并标注拐点，输出 HTML（可选再截成 PNG）。
package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"hmatrend/internal/analysis/trend"
	"hmatrend/internal/market"
)

// Input 是绘图所需的全部数据。Smoothed 与 Candles 等长，
// 暖机段为 NaN 的点不会画出来。
type Input struct {
	Symbol        string
	Interval      string
	Candles       []market.Candle
	Smoothed      []float64
	TurningPoints []trend.TurningPoint
}

// BuildKLine 组装 K 线图对象，调用方决定渲染到哪里。
func BuildKLine(in Input) (*charts.Kline, error) {
	if len(in.Candles) == 0 {
		return nil, fmt.Errorf("没有可绘制的 K 线")
	}
	if len(in.Smoothed) != 0 && len(in.Smoothed) != len(in.Candles) {
		return nil, fmt.Errorf("平滑序列长度 %d 与 K 线数 %d 不一致", len(in.Smoothed), len(in.Candles))
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s %s · HMA 趋势区间", in.Symbol, in.Interval),
		}),
		charts.WithXAxisOpts(opts.XAxis{SplitNumber: 20}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "700px"}),
	)

	x := make([]string, 0, len(in.Candles))
	bars := make([]opts.KlineData, 0, len(in.Candles))
	for _, c := range in.Candles {
		x = append(x, time.UnixMilli(c.OpenTime).UTC().Format("2006-01-02 15:04"))
		// echarts K 线数据顺序为 [open, close, low, high]。
		bars = append(bars, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	kline.SetXAxis(x).AddSeries("kline", bars)

	if len(in.Smoothed) > 0 {
		line := charts.NewLine()
		pts := make([]opts.LineData, 0, len(in.Smoothed))
		for _, v := range in.Smoothed {
			if v != v { // NaN 暖机段留空
				pts = append(pts, opts.LineData{Value: nil})
				continue
			}
			pts = append(pts, opts.LineData{Value: v})
		}
		line.SetXAxis(x).AddSeries("HMA", pts,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)
		kline.Overlap(line)
	}

	if len(in.TurningPoints) > 0 {
		scatter := charts.NewScatter()
		up := make([]opts.ScatterData, 0)
		down := make([]opts.ScatterData, 0)
		for _, tp := range in.TurningPoints {
			if tp.Index < 0 || tp.Index >= len(in.Smoothed) {
				continue
			}
			d := opts.ScatterData{
				Value:      []any{x[tp.Index], in.Smoothed[tp.Index]},
				Symbol:     "triangle",
				SymbolSize: 14,
			}
			if tp.Direction == trend.DirectionUp {
				up = append(up, d)
			} else {
				d.SymbolRotate = 180
				down = append(down, d)
			}
		}
		scatter.SetXAxis(x).
			AddSeries("上拐点", up).
			AddSeries("下拐点", down)
		kline.Overlap(scatter)
	}
	return kline, nil
}

// Render 渲染 HTML 到 w。
func Render(in Input, w io.Writer) error {
	kline, err := BuildKLine(in)
	if err != nil {
		return err
	}
	return kline.Render(w)
}

// WriteHTML 渲染 HTML 文件并返回路径。
func WriteHTML(in Input, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建图表目录失败: %w", err)
	}
	name := fmt.Sprintf("%s_%s_chart.html", in.Symbol, in.Interval)
	path := filepath.Join(outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建图表文件失败: %w", err)
	}
	defer f.Close()
	if err := Render(in, f); err != nil {
		return "", err
	}
	return path, nil
}
