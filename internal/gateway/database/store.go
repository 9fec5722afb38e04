// Package database 提供 K 线与分析报告的 SQLite 持久化。
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"hmatrend/internal/analysis/trend"
	"hmatrend/internal/market"
)

// AnalysisStore 负责 klines / analysis_reports 两张表的读写。
type AnalysisStore struct {
	mu sync.Mutex
	db *sql.DB
}

// Open 打开（必要时创建）数据库并执行建表。
func Open(path string) (*AnalysisStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	s := &AnalysisStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *AnalysisStore) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

func (s *AnalysisStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("analysis store 未初始化")
	}
	return db, nil
}

func (s *AnalysisStore) migrate() error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS klines (
            symbol     TEXT NOT NULL,
            interval   TEXT NOT NULL,
            open_time  INTEGER NOT NULL,
            close_time INTEGER NOT NULL,
            open       REAL NOT NULL,
            high       REAL NOT NULL,
            low        REAL NOT NULL,
            close      REAL NOT NULL,
            volume     REAL NOT NULL,
            trades     INTEGER NOT NULL DEFAULT 0,
            taker_buy  REAL NOT NULL DEFAULT 0,
            PRIMARY KEY (symbol, interval, open_time)
        )`,
		`CREATE TABLE IF NOT EXISTS analysis_reports (
            id                TEXT PRIMARY KEY,
            symbol            TEXT NOT NULL,
            interval          TEXT NOT NULL,
            hma_period        INTEGER NOT NULL,
            slope_threshold   REAL NOT NULL,
            total_intervals   INTEGER NOT NULL,
            up_intervals      INTEGER NOT NULL,
            down_intervals    INTEGER NOT NULL,
            excluded          INTEGER NOT NULL,
            up_win_rate       REAL NOT NULL,
            down_win_rate     REAL NOT NULL,
            profit_loss_ratio REAL,
            report_json       TEXT NOT NULL,
            created_at        INTEGER NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_reports_symbol ON analysis_reports (symbol, interval, created_at)`,
	}
	for _, q := range queries {
		if _, err := db.ExecContext(context.Background(), q); err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
	}
	return nil
}

// SaveKlines 以 upsert 方式落盘一批 K 线。
func (s *AnalysisStore) SaveKlines(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if symbol == "" || interval == "" {
		return fmt.Errorf("symbol/interval 不能为空")
	}
	if len(candles) == 0 {
		return nil
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO klines (symbol, interval, open_time, close_time, open, high, low, close, volume, trades, taker_buy)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
            close_time=excluded.close_time, open=excluded.open, high=excluded.high,
            low=excluded.low, close=excluded.close, volume=excluded.volume,
            trades=excluded.trades, taker_buy=excluded.taker_buy`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, interval, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.Trades, c.TakerBuyVolume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadKlines 按时间升序读出 [start, end] 内的 K 线；start/end 为 0 表示不限。
func (s *AnalysisStore) LoadKlines(ctx context.Context, symbol, interval string, start, end int64) ([]market.Candle, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if end <= 0 {
		end = math.MaxInt64
	}
	rows, err := db.QueryContext(ctx, `
        SELECT open_time, close_time, open, high, low, close, volume, trades, taker_buy
        FROM klines
        WHERE symbol=? AND interval=? AND open_time>=? AND open_time<=?
        ORDER BY open_time ASC`, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades, &c.TakerBuyVolume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReportRecord 是一条已持久化的分析报告。
type ReportRecord struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Report    trend.AnalysisReport `json:"report"`
	// ProfitLossRatio 单独携带：+Inf 哨兵入库时转为 NULL，读出时还原。
	ProfitLossRatio *float64 `json:"profit_loss_ratio,omitempty"`
}

// SaveReport 持久化一份报告，返回生成的 ID。
func (s *AnalysisStore) SaveReport(ctx context.Context, rep trend.AnalysisReport) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("序列化报告失败: %w", err)
	}
	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
        INSERT INTO analysis_reports
            (id, symbol, interval, hma_period, slope_threshold, total_intervals, up_intervals,
             down_intervals, excluded, up_win_rate, down_win_rate, profit_loss_ratio, report_json, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rep.Symbol, rep.Interval, rep.Config.HMAPeriod, rep.Config.SlopeThreshold,
		rep.Summary.TotalIntervals, rep.Summary.UpIntervals, rep.Summary.DownIntervals,
		rep.Summary.ExcludedIntervals, rep.UpTrends.WinRate, rep.DownTrends.WinRate,
		nullIfInf(rep.ProfitLossRatio), string(payload), time.Now().UnixMilli())
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetReport 按 ID 读出报告。
func (s *AnalysisStore) GetReport(ctx context.Context, id string) (*ReportRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `
        SELECT id, profit_loss_ratio, report_json, created_at
        FROM analysis_reports WHERE id=?`, id)
	return scanReport(row)
}

// ListReports 返回某 symbol+interval 最近的 limit 份报告（新的在前）。
func (s *AnalysisStore) ListReports(ctx context.Context, symbol, interval string, limit int) ([]ReportRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
        SELECT id, profit_loss_ratio, report_json, created_at
        FROM analysis_reports
        WHERE symbol=? AND interval=?
        ORDER BY created_at DESC LIMIT ?`, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*ReportRecord, error) {
	var rec ReportRecord
	var ratio sql.NullFloat64
	var payload string
	var createdAt int64
	if err := row.Scan(&rec.ID, &ratio, &payload, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("报告不存在")
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &rec.Report); err != nil {
		return nil, fmt.Errorf("解析报告失败: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	if ratio.Valid {
		rec.ProfitLossRatio = &ratio.Float64
		rec.Report.ProfitLossRatio = ratio.Float64
	} else {
		rec.Report.ProfitLossRatio = math.Inf(1)
	}
	return &rec, nil
}

// nullIfInf 把 ±Inf/NaN 转成 NULL，避免驱动层报错。
func nullIfInf(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}
