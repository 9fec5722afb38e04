package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hmatrend/internal/logger"
	"hmatrend/internal/market"
)

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
	JobStatusPartial = "partial"
)

// BackfillParams 描述一次历史回填的请求参数。
type BackfillParams struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
}

// BackfillJob 在内存中跟踪回填进度。Missing 记录交易所侧缺失的
// K 线区间，回填结束后状态为 partial 而不是 failed。
type BackfillJob struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Params    BackfillParams `json:"params"`
	Total     int64          `json:"total"`
	Completed int64          `json:"completed"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Message   string         `json:"message"`
	Missing   []market.Gap   `json:"missing,omitempty"`
}

func (j *BackfillJob) copy() BackfillJob {
	if j == nil {
		return BackfillJob{}
	}
	out := *j
	out.Missing = append([]market.Gap{}, j.Missing...)
	return out
}

// Backfiller 管理异步回填任务，任务结果落到 SQLite，进度只存内存。
type Backfiller struct {
	svc *Service

	mu   sync.Mutex
	jobs map[string]*BackfillJob
}

func NewBackfiller(svc *Service) *Backfiller {
	return &Backfiller{svc: svc, jobs: make(map[string]*BackfillJob)}
}

// Submit 校验参数并异步启动回填，立即返回任务快照。
func (b *Backfiller) Submit(ctx context.Context, params BackfillParams) (BackfillJob, error) {
	params.Symbol = strings.ToUpper(strings.TrimSpace(params.Symbol))
	params.Interval = strings.ToLower(strings.TrimSpace(params.Interval))
	if params.Symbol == "" || params.Interval == "" {
		return BackfillJob{}, fmt.Errorf("symbol/interval 必填")
	}
	tf, err := market.ParseTimeframe(params.Interval)
	if err != nil {
		return BackfillJob{}, err
	}
	if params.End <= params.Start || params.Start < 0 {
		return BackfillJob{}, fmt.Errorf("非法时间范围: start=%d end=%d", params.Start, params.End)
	}

	job := &BackfillJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		Params:    params,
		Total:     (params.End - params.Start) / tf.Step.Milliseconds(),
		StartedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	b.mu.Lock()
	b.jobs[job.ID] = job
	b.mu.Unlock()

	go b.run(ctx, job.ID, params, tf)
	return job.copy(), nil
}

func (b *Backfiller) run(ctx context.Context, id string, params BackfillParams, tf market.Timeframe) {
	b.update(id, func(j *BackfillJob) { j.Status = JobStatusRunning })

	candles, err := b.svc.source.FetchRange(ctx, params.Symbol, params.Interval, params.Start, params.End)
	if err != nil {
		logger.Errorf("[backfill] %s %s 拉取失败: %v", params.Symbol, params.Interval, err)
		b.update(id, func(j *BackfillJob) {
			j.Status = JobStatusFailed
			j.Message = err.Error()
		})
		return
	}

	if b.svc.db != nil {
		if err := b.svc.db.SaveKlines(ctx, params.Symbol, params.Interval, candles); err != nil {
			b.update(id, func(j *BackfillJob) {
				j.Status = JobStatusFailed
				j.Message = fmt.Sprintf("落盘失败: %v", err)
			})
			return
		}
	}

	integ := market.CheckIntegrity(candles, tf)
	b.update(id, func(j *BackfillJob) {
		j.Completed = int64(len(candles))
		j.Missing = integ.Gaps
		if integ.Complete() {
			j.Status = JobStatusDone
		} else {
			j.Status = JobStatusPartial
			j.Message = fmt.Sprintf("交易所侧缺失 %d 处", len(integ.Gaps))
		}
	})
	logger.Infof("[backfill] %s %s 完成: %d 根, 缺口 %d 处", params.Symbol, params.Interval, len(candles), len(integ.Gaps))
}

func (b *Backfiller) update(id string, fn func(*BackfillJob)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if j, ok := b.jobs[id]; ok {
		fn(j)
		j.UpdatedAt = time.Now()
	}
}

// Job 返回单个任务的快照。
func (b *Backfiller) Job(id string) (BackfillJob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return BackfillJob{}, false
	}
	return j.copy(), true
}

// Jobs 按启动时间倒序返回全部任务快照。
func (b *Backfiller) Jobs() []BackfillJob {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BackfillJob, 0, len(b.jobs))
	for _, j := range b.jobs {
		out = append(out, j.copy())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out
}
