package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeframe 描述 K 线粒度，例如 1h / 4h / 1d。
type Timeframe struct {
	Label string
	Step  time.Duration
}

// ParseTimeframe 解析形如 "1m"/"4h"/"1d" 的粒度标签。
func ParseTimeframe(label string) (Timeframe, error) {
	s := strings.ToLower(strings.TrimSpace(label))
	if len(s) < 2 {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q", label)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Timeframe{}, fmt.Errorf("invalid timeframe %q", label)
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return Timeframe{}, fmt.Errorf("invalid timeframe %q", label)
	}
	return Timeframe{Label: s, Step: time.Duration(n) * unit}, nil
}

func (tf Timeframe) stepMillis() int64 { return tf.Step.Milliseconds() }

// AnnualizationFactor 返回该粒度下的年化因子（一年内的 bar 数），
// 供波动率年化使用。调用方也可以在配置里直接覆盖。
func (tf Timeframe) AnnualizationFactor() float64 {
	if tf.Step <= 0 {
		return 0
	}
	return float64((365 * 24 * time.Hour) / tf.Step)
}

// Gap 表示缺失的连续 K 线区间。
type Gap struct {
	From  int64 `json:"from"`
	To    int64 `json:"to"`
	Count int64 `json:"count"`
}

// IntegrityReport 描述序列相对于标称粒度的覆盖情况。
// 交易所停机会产生空洞，这里只如实报告，不做修补。
type IntegrityReport struct {
	Start    int64 `json:"start"`
	End      int64 `json:"end"`
	Expected int64 `json:"expected"`
	Present  int64 `json:"present"`
	Gaps     []Gap `json:"gaps,omitempty"`
}

func (r IntegrityReport) Complete() bool { return len(r.Gaps) == 0 }

// CheckIntegrity 按 tf 步长走查已排序序列，找出缺失区间。
func CheckIntegrity(candles []Candle, tf Timeframe) IntegrityReport {
	report := IntegrityReport{Present: int64(len(candles))}
	if len(candles) == 0 || tf.Step <= 0 {
		return report
	}
	step := tf.stepMillis()
	report.Start = candles[0].OpenTime
	report.End = candles[len(candles)-1].OpenTime
	report.Expected = (report.End-report.Start)/step + 1

	cursor := report.Start
	idx := 0
	var gaps []Gap
	for cursor <= report.End {
		if idx < len(candles) && candles[idx].OpenTime == cursor {
			idx++
			cursor += step
			continue
		}
		gapStart := cursor
		var missing int64
		for cursor <= report.End {
			if idx < len(candles) && candles[idx].OpenTime == cursor {
				break
			}
			// 非对齐的时间戳直接跳过，当作缺口的一部分。
			for idx < len(candles) && candles[idx].OpenTime < cursor {
				idx++
			}
			if idx < len(candles) && candles[idx].OpenTime == cursor {
				break
			}
			cursor += step
			missing++
		}
		gapEnd := cursor - step
		if gapEnd < gapStart {
			gapEnd = gapStart
		}
		if missing > 0 {
			gaps = append(gaps, Gap{From: gapStart, To: gapEnd, Count: missing})
		}
		if cursor == gapStart {
			cursor += step
		}
	}
	report.Gaps = gaps
	return report
}
