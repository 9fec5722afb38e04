package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hmatrend/internal/chart"
	"hmatrend/internal/config"
	"hmatrend/internal/config/writer"
	"hmatrend/internal/gateway/binance"
	"hmatrend/internal/gateway/database"
	"hmatrend/internal/logger"
	"hmatrend/internal/reporter"
	"hmatrend/internal/service"
	"hmatrend/internal/store"
	transport "hmatrend/internal/transport/http"
)

func main() {
	var (
		cfgPath  = flag.String("config", "configs/config.toml", "配置文件路径")
		jobsPath = flag.String("jobs", "configs/jobs.yaml", "任务文件路径")
		mode     = flag.String("mode", "analyze", "运行模式: fetch | analyze | jobs | serve")
		symbol   = flag.String("symbol", "", "覆盖配置中的交易对")
		interval = flag.String("interval", "", "覆盖配置中的 K 线粒度")
		withPNG  = flag.Bool("png", false, "分析后用无头浏览器截图表 PNG")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if *symbol != "" {
		cfg.Analysis.Symbol = *symbol
	}
	if *interval != "" {
		cfg.Analysis.Interval = *interval
	}

	source := binance.New(binance.Config{
		BaseURL:      cfg.Binance.BaseURL,
		HTTPTimeout:  cfg.Binance.HTTPTimeout(),
		RequestDelay: cfg.Binance.RequestDelay(),
		MaxRetries:   cfg.Binance.MaxRetries,
	})

	db, err := database.Open(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Errorf("打开数据库失败: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := service.New(cfg, source, db, store.NewMemoryKlineStore())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "fetch":
		err = runFetch(ctx, svc, cfg)
	case "analyze":
		err = runAnalyze(ctx, svc, cfg, *withPNG)
	case "jobs":
		err = runJobs(ctx, svc, *jobsPath)
	case "serve":
		err = runServe(ctx, svc, db, cfg, *jobsPath)
	default:
		err = fmt.Errorf("未知模式 %q", *mode)
	}
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func runFetch(ctx context.Context, svc *service.Service, cfg *config.Config) error {
	candles, err := svc.FetchCandles(ctx, cfg.Analysis.Symbol, cfg.Analysis.Interval, cfg.Analysis.HistoryLimit)
	if err != nil {
		return err
	}
	logger.Infof("已拉取并落盘 %s %s K 线 %d 根", cfg.Analysis.Symbol, cfg.Analysis.Interval, len(candles))
	return nil
}

func runAnalyze(ctx context.Context, svc *service.Service, cfg *config.Config, withPNG bool) error {
	out, err := svc.Analyze(ctx, svc.DefaultParams())
	if err != nil {
		return err
	}

	fmt.Println(reporter.RenderConsole(out.Result.Report))

	mdPath, err := reporter.NewMarkdownWriter(cfg.Report.OutputDir).Write(out.Result.Report, reporter.Context{
		Integrity: out.Integrity,
		Snapshot:  out.Snapshot,
		Flow:      out.Flow,
	})
	if err != nil {
		logger.Warnf("生成 Markdown 报告失败: %v", err)
	} else {
		logger.Infof("Markdown 报告: %s", mdPath)
	}

	if csvPath, err := reporter.WriteIntervalCSV(out.Params.Symbol, out.Params.Interval, out.Result.Intervals, cfg.Report.OutputDir); err != nil {
		logger.Warnf("导出区间 CSV 失败: %v", err)
	} else {
		logger.Infof("区间 CSV: %s", csvPath)
	}

	htmlPath, err := chart.WriteHTML(chart.Input{
		Symbol:        out.Params.Symbol,
		Interval:      out.Params.Interval,
		Candles:       out.Candles,
		Smoothed:      out.Result.Smoothed,
		TurningPoints: out.Result.Slope.TurningPoints,
	}, cfg.Report.ChartDir)
	if err != nil {
		logger.Warnf("生成图表失败: %v", err)
		return nil
	}
	logger.Infof("图表: %s", htmlPath)

	if withPNG || cfg.Report.SnapshotPNG {
		pngPath := htmlPath[:len(htmlPath)-len(".html")] + ".png"
		if err := chart.SnapshotPNG(ctx, htmlPath, pngPath, 0); err != nil {
			logger.Warnf("图表截图失败: %v", err)
		}
	}
	return nil
}

func runJobs(ctx context.Context, svc *service.Service, jobsPath string) error {
	jw := writer.NewJobsWriter(jobsPath)
	jobsCfg, err := jw.Read()
	if err != nil {
		return err
	}
	if len(jobsCfg.Jobs) == 0 {
		return fmt.Errorf("%s 中没有配置任何任务", jobsPath)
	}
	outcomes, err := svc.RunJobs(ctx, jobsCfg.Jobs)
	if err != nil {
		return err
	}
	for name, out := range outcomes {
		fmt.Printf("\n=== 任务 %s ===\n%s\n", name, reporter.RenderConsole(out.Result.Report))
	}
	return nil
}

func runServe(ctx context.Context, svc *service.Service, db *database.AnalysisStore, cfg *config.Config, jobsPath string) error {
	srv, err := transport.NewServer(transport.ServerConfig{
		Addr: cfg.HTTP.ListenAddr,
		Svc:  svc,
		DB:   db,
		Jobs: writer.NewJobsWriter(jobsPath),
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
