package reporter

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hmatrend/internal/analysis/trend"
	"hmatrend/internal/market"
)

// CandleCSVOptions 控制 CSV 数据行的时间格式与精度。
type CandleCSVOptions struct {
	DateOnly       bool
	Location       *time.Location
	PricePrecision int
}

const (
	// PrecisionAuto 根据 K 线价格区间自动决定精度。
	PrecisionAuto = math.MinInt32
	// PrecisionRaw 表示保留原始精度（等价于 strconv.FormatFloat(..., -1, 64)）
	PrecisionRaw = -1
)

// BuildCandleCSV 生成 K 线 CSV，首行包含列头。
func BuildCandleCSV(candles []market.Candle, opts CandleCSVOptions) string {
	if len(candles) == 0 {
		return ""
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	precision := opts.PricePrecision
	if precision == PrecisionAuto {
		precision = autoPrecisionFromCandles(candles)
	}
	header := "Time"
	if opts.DateOnly {
		header = "Date"
	}
	var b strings.Builder
	b.WriteString(header + ",O,H,L,C,V\n")
	for _, c := range candles {
		ts := time.UnixMilli(c.OpenTime).In(loc)
		label := ts.Format("01-02 15:04")
		if opts.DateOnly {
			label = ts.Format("06-01-02")
		}
		b.WriteString(label)
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Open, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.High, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Low, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(c.Close, precision))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Volume, 'f', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

// BuildIntervalCSV 把趋势区间列表渲染为 CSV，价格列沿用 K 线的精度规则。
func BuildIntervalCSV(intervals []trend.Interval, opts CandleCSVOptions) string {
	if len(intervals) == 0 {
		return ""
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	precision := opts.PricePrecision
	if precision == PrecisionAuto {
		precision = autoPrecisionFromIntervals(intervals)
	}
	var b strings.Builder
	b.WriteString("Start,End,Dir,StartPx,EndPx,High,Low,Bars,ChangePct,PFEPct,MAEPct\n")
	for _, iv := range intervals {
		b.WriteString(time.UnixMilli(iv.StartTime).In(loc).Format("01-02 15:04"))
		b.WriteByte(',')
		b.WriteString(time.UnixMilli(iv.EndTime).In(loc).Format("01-02 15:04"))
		b.WriteByte(',')
		b.WriteString(string(iv.Direction))
		b.WriteByte(',')
		b.WriteString(formatPrice(iv.StartPrice, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(iv.EndPrice, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(iv.HighPrice, precision))
		b.WriteByte(',')
		b.WriteString(formatPrice(iv.LowPrice, precision))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(iv.Duration))
		b.WriteByte(',')
		b.WriteString(formatPct(iv.PriceChangePct))
		b.WriteByte(',')
		b.WriteString(formatPct(iv.PFEPct))
		b.WriteByte(',')
		b.WriteString(formatPct(iv.MAEPct))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteIntervalCSV 把区间 CSV 落到 dir 下，文件名 {symbol}_{interval}_intervals.csv。
func WriteIntervalCSV(symbol, interval string, scored []trend.ScoredInterval, dir string) (string, error) {
	intervals := make([]trend.Interval, 0, len(scored))
	for _, s := range scored {
		intervals = append(intervals, s.Interval)
	}
	data := BuildIntervalCSV(intervals, CandleCSVOptions{PricePrecision: PrecisionAuto})
	if data == "" {
		return "", fmt.Errorf("没有可导出的区间")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	name := fmt.Sprintf("%s_%s_intervals.csv", strings.ToLower(symbol), interval)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return "", fmt.Errorf("写 CSV 失败: %w", err)
	}
	return path, nil
}

func autoPrecisionFromCandles(candles []market.Candle) int {
	maxVal := 0.0
	for _, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
			if abs := math.Abs(v); abs > maxVal {
				maxVal = abs
			}
		}
	}
	return precisionForScale(maxVal)
}

func autoPrecisionFromIntervals(intervals []trend.Interval) int {
	maxVal := 0.0
	for _, iv := range intervals {
		for _, v := range []float64{iv.StartPrice, iv.EndPrice, iv.HighPrice, iv.LowPrice} {
			if abs := math.Abs(v); abs > maxVal {
				maxVal = abs
			}
		}
	}
	return precisionForScale(maxVal)
}

func precisionForScale(maxVal float64) int {
	switch {
	case maxVal >= 1000:
		return 1
	case maxVal >= 100:
		return 2
	default:
		return PrecisionRaw
	}
}

func formatPrice(value float64, precision int) string {
	if precision == PrecisionRaw {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	s := strconv.FormatFloat(value, 'f', precision, 64)
	if precision > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

func formatPct(value float64) string {
	if math.IsNaN(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'f', 4, 64)
}
