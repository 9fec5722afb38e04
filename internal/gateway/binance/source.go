package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gobinance "github.com/adshao/go-binance/v2"

	"hmatrend/internal/logger"
	"hmatrend/internal/market"
)

// 现货接口单次最多返回 1000 根。
const maxKlinesPerRequest = 1000

// Source 实现了 market.Source，通过币安现货 REST 接口拉取历史 K 线。
type Source struct {
	cfg    Config
	client *gobinance.Client

	mu    sync.Mutex
	stats market.SourceStats
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	client := gobinance.NewClient("", "")
	client.BaseURL = final.BaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}
}

// FetchHistory 拉取最近 limit 根 K 线并按时间升序返回。
func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	symbol, interval, err := normalizeArgs(symbol, interval)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}
	if limit > maxKlinesPerRequest {
		limit = maxKlinesPerRequest
	}
	return s.fetchPage(ctx, symbol, interval, 0, 0, limit)
}

// FetchRange 按毫秒时间范围分页拉取 [start, end) 内的全部 K 线。
// 每页之间按配置的间隔停顿，避免触发交易所限频。
func (s *Source) FetchRange(ctx context.Context, symbol, interval string, start, end int64) ([]market.Candle, error) {
	symbol, interval, err := normalizeArgs(symbol, interval)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("invalid range: start=%d end=%d", start, end)
	}
	var out []market.Candle
	cursor := start
	for cursor < end {
		page, err := s.fetchPage(ctx, symbol, interval, cursor, end, maxKlinesPerRequest)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		next := page[len(page)-1].OpenTime + 1
		if next <= cursor {
			break
		}
		cursor = next
		logger.Debugf("[binance] %s %s 已拉取 %d 根，游标 %d", symbol, interval, len(out), cursor)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.RequestDelay):
		}
	}
	return out, nil
}

func (s *Source) fetchPage(ctx context.Context, symbol, interval string, start, end int64, limit int) ([]market.Candle, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			s.recordRetry()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.RequestDelay * time.Duration(attempt)):
			}
		}
		svc := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
		if start > 0 {
			svc = svc.StartTime(start)
		}
		if end > 0 {
			svc = svc.EndTime(end - 1)
		}
		s.recordRequest()
		ks, err := svc.Do(ctx)
		if err != nil {
			lastErr = err
			s.recordError(err)
			logger.Warnf("[binance] 拉取失败 (尝试 %d/%d): %v", attempt+1, s.cfg.MaxRetries, err)
			continue
		}
		out := make([]market.Candle, 0, len(ks))
		for _, k := range ks {
			out = append(out, market.Candle{
				OpenTime:       k.OpenTime,
				CloseTime:      k.CloseTime,
				Open:           toFloat(k.Open),
				High:           toFloat(k.High),
				Low:            toFloat(k.Low),
				Close:          toFloat(k.Close),
				Volume:         toFloat(k.Volume),
				Trades:         k.TradeNum,
				TakerBuyVolume: toFloat(k.TakerBuyBaseAssetVolume),
			})
		}
		return out, nil
	}
	return nil, fmt.Errorf("binance klines failed after %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

func (s *Source) Stats() market.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Source) recordRequest() {
	s.mu.Lock()
	s.stats.Requests++
	s.mu.Unlock()
}

func (s *Source) recordRetry() {
	s.mu.Lock()
	s.stats.Retries++
	s.mu.Unlock()
}

func (s *Source) recordError(err error) {
	s.mu.Lock()
	s.stats.LastError = err.Error()
	s.mu.Unlock()
}

func normalizeArgs(symbol, interval string) (string, string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", "", fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return "", "", fmt.Errorf("interval is required")
	}
	return symbol, interval, nil
}

func toFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
