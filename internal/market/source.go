package market

import "context"

// SourceStats 记录数据源运行期的一些指标。
type SourceStats struct {
	Requests  int
	Retries   int
	LastError string
}

// Source 统一对接外部行情供应商。核心分析只消费已落地的 []Candle，
// 拉取细节（分页、重试、限频）都收在实现里。
type Source interface {
	// FetchHistory 拉取最近 limit 根 K 线并按时间升序返回。
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	// FetchRange 按毫秒时间范围分页拉取 [start, end) 内的全部 K 线。
	FetchRange(ctx context.Context, symbol, interval string, start, end int64) ([]Candle, error)
	// Stats 返回当前运行状态（若实现不支持则返回零值）。
	Stats() SourceStats
}
