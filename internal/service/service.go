// Package service 把数据获取、缓存、分析与持久化串成一条可复用的流水线。
package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hmatrend/internal/analysis/indicator"
	"hmatrend/internal/analysis/trend"
	"hmatrend/internal/config"
	"hmatrend/internal/config/writer"
	"hmatrend/internal/gateway/database"
	"hmatrend/internal/logger"
	"hmatrend/internal/market"
	"hmatrend/internal/store"
)

// Service 聚合一次分析运行需要的所有依赖。
type Service struct {
	cfg    *config.Config
	source market.Source
	db     *database.AnalysisStore
	cache  store.KlineStore
}

func New(cfg *config.Config, source market.Source, db *database.AnalysisStore, cache store.KlineStore) *Service {
	return &Service{cfg: cfg, source: source, db: db, cache: cache}
}

// AnalysisParams 是一次运行的有效参数；零值字段已在构造时回落到全局配置。
type AnalysisParams struct {
	Symbol       string
	Interval     string
	HistoryLimit int
	Trend        trend.Config
}

// ParamsFromJob 把任务条目与全局配置合并成有效参数。
func (s *Service) ParamsFromJob(job writer.JobEntry) AnalysisParams {
	base := s.cfg.Analysis
	p := AnalysisParams{
		Symbol:       job.Symbol,
		Interval:     job.Interval,
		HistoryLimit: job.HistoryLimit,
		Trend: trend.Config{
			HMAPeriod:           job.HMAPeriod,
			SlopeThreshold:      job.SlopeThreshold,
			EventWindowBefore:   job.EventWindowBefore,
			EventWindowAfter:    job.EventWindowAfter,
			AnnualizationFactor: job.AnnualizationFactor,
		},
	}
	if p.Symbol == "" {
		p.Symbol = base.Symbol
	}
	if p.Interval == "" {
		p.Interval = base.Interval
	}
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = base.HistoryLimit
	}
	if p.Trend.HMAPeriod <= 0 {
		p.Trend.HMAPeriod = base.HMAPeriod
	}
	if p.Trend.SlopeThreshold <= 0 {
		p.Trend.SlopeThreshold = base.SlopeThreshold
	}
	if p.Trend.EventWindowBefore <= 0 {
		p.Trend.EventWindowBefore = base.EventWindowBefore
	}
	if p.Trend.EventWindowAfter <= 0 {
		p.Trend.EventWindowAfter = base.EventWindowAfter
	}
	if p.Trend.AnnualizationFactor <= 0 {
		// 优先用粒度推导的年化因子，解析不了再回落全局配置。
		if tf, err := market.ParseTimeframe(p.Interval); err == nil {
			p.Trend.AnnualizationFactor = tf.AnnualizationFactor()
		} else {
			p.Trend.AnnualizationFactor = base.AnnualizationFactor
		}
	}
	return p
}

// DefaultParams 返回只用全局配置的参数。
func (s *Service) DefaultParams() AnalysisParams {
	return s.ParamsFromJob(writer.JobEntry{})
}

// FetchCandles 拉取最近 limit 根 K 线，写缓存与 SQLite 后返回。
func (s *Service) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	candles, err := s.source.FetchHistory(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("拉取 %s %s K 线失败: %w", symbol, interval, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s %s 没有返回任何 K 线", symbol, interval)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, symbol, interval, candles); err != nil {
			logger.Warnf("[service] 写入内存缓存失败: %v", err)
		}
	}
	if s.db != nil {
		if err := s.db.SaveKlines(ctx, symbol, interval, candles); err != nil {
			logger.Warnf("[service] K 线落盘失败: %v", err)
		}
	}
	return candles, nil
}

// LoadCandles 优先读内存缓存，其次 SQLite，最后才回源。
func (s *Service) LoadCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, symbol, interval); err == nil && len(cached) >= limit {
			return cached[len(cached)-limit:], nil
		}
	}
	if s.db != nil {
		stored, err := s.db.LoadKlines(ctx, symbol, interval, 0, 0)
		if err != nil {
			logger.Warnf("[service] 读取本地 K 线失败: %v", err)
		} else if len(stored) >= limit {
			return stored[len(stored)-limit:], nil
		}
	}
	return s.FetchCandles(ctx, symbol, interval, limit)
}

// RunOutcome 是单次任务的完整产物。
type RunOutcome struct {
	Params    AnalysisParams
	Candles   []market.Candle
	Result    *trend.RunResult
	Integrity market.IntegrityReport
	Snapshot  indicator.Snapshot
	Flow      market.FlowMetrics
	ReportID  string
}

// Analyze 执行一次完整的趋势区间分析并持久化报告。
func (s *Service) Analyze(ctx context.Context, p AnalysisParams) (*RunOutcome, error) {
	analyzer, err := trend.NewAnalyzer(p.Trend)
	if err != nil {
		return nil, err
	}
	candles, err := s.LoadCandles(ctx, p.Symbol, p.Interval, p.HistoryLimit)
	if err != nil {
		return nil, err
	}

	res, err := analyzer.Run(p.Symbol, p.Interval, candles)
	if err != nil {
		return nil, err
	}

	out := &RunOutcome{Params: p, Candles: candles, Result: res}
	if tf, err := market.ParseTimeframe(p.Interval); err == nil {
		out.Integrity = market.CheckIntegrity(candles, tf)
		if !out.Integrity.Complete() {
			logger.Warnf("[service] %s %s 序列存在 %d 处缺口", p.Symbol, p.Interval, len(out.Integrity.Gaps))
		}
	}
	if snap, err := indicator.Compute(candles, indicator.Settings{}); err == nil {
		out.Snapshot = snap
	}
	if flow, ok := market.ComputeFlow(candles); ok {
		out.Flow = flow
	}

	if s.db != nil {
		id, err := s.db.SaveReport(ctx, res.Report)
		if err != nil {
			logger.Errorf("[service] 报告落盘失败: %v", err)
		} else {
			out.ReportID = id
		}
	}
	logger.Infof("[service] %s %s 分析完成: 区间 %d / 事件 %d / 报告 %s",
		p.Symbol, p.Interval, res.Report.Summary.TotalIntervals, res.Report.Summary.TotalEvents, out.ReportID)
	return out, nil
}

// RunJobs 并行执行一批任务，单个任务失败会取消其余任务。
// 并行度来自配置；任务之间没有共享可变状态。
func (s *Service) RunJobs(ctx context.Context, jobs map[string]writer.JobEntry) (map[string]*RunOutcome, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Analysis.Parallelism)

	type keyed struct {
		name string
		out  *RunOutcome
	}
	results := make(chan keyed, len(jobs))
	for name, job := range jobs {
		if job.Disabled {
			logger.Debugf("[service] 跳过已禁用任务 %s", name)
			continue
		}
		name, job := name, job
		g.Go(func() error {
			out, err := s.Analyze(ctx, s.ParamsFromJob(job))
			if err != nil {
				return fmt.Errorf("任务 %s: %w", name, err)
			}
			results <- keyed{name: name, out: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)
	outcomes := make(map[string]*RunOutcome, len(jobs))
	for r := range results {
		outcomes[r.name] = r.out
	}
	return outcomes, nil
}
