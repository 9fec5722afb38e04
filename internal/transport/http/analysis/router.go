// Package analysis 暴露趋势分析的 HTTP 接口。
package analysis

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hmatrend/internal/analysis/trend"
	"hmatrend/internal/config/writer"
	"hmatrend/internal/gateway/database"
	"hmatrend/internal/logger"
	"hmatrend/internal/service"
)

// Router handles analysis API endpoints
type Router struct {
	svc      *service.Service
	db       *database.AnalysisStore
	jobs     *writer.JobsWriter
	backfill *service.Backfiller
}

// NewRouter creates a new analysis API router
func NewRouter(svc *service.Service, db *database.AnalysisStore, jobs *writer.JobsWriter) *Router {
	return &Router{svc: svc, db: db, jobs: jobs, backfill: service.NewBackfiller(svc)}
}

// Register registers the analysis API routes
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/run", r.handleRun)
	group.GET("/reports", r.handleListReports)
	group.GET("/reports/:id", r.handleGetReport)
	group.GET("/jobs", r.handleListJobs)
	group.PUT("/jobs/:name", r.handleUpdateJob)
	group.DELETE("/jobs/:name", r.handleDeleteJob)
	group.POST("/jobs/run", r.handleRunJobs)
	group.POST("/backfill", r.handleBackfill)
	group.GET("/backfill", r.handleBackfillJobs)
	group.GET("/backfill/:id", r.handleBackfillStatus)
}

// RunRequest is the request body for a one-off analysis run
type RunRequest struct {
	Symbol              string  `json:"symbol" binding:"required"`
	Interval            string  `json:"interval" binding:"required"`
	HistoryLimit        int     `json:"history_limit,omitempty"`
	HMAPeriod           int     `json:"hma_period,omitempty"`
	SlopeThreshold      float64 `json:"slope_threshold,omitempty"`
	EventWindowBefore   int     `json:"event_window_before,omitempty"`
	EventWindowAfter    int     `json:"event_window_after,omitempty"`
	AnnualizationFactor float64 `json:"annualization_factor,omitempty"`
}

// ReportResponse 是报告的 API 形态。盈亏比用指针携带：
// +Inf 哨兵（没有亏损样本）序列化为 null。
type ReportResponse struct {
	ID              string               `json:"id,omitempty"`
	CreatedAt       int64                `json:"created_at,omitempty"`
	Report          trend.AnalysisReport `json:"report"`
	ProfitLossRatio *float64             `json:"profit_loss_ratio"`
}

func toResponse(id string, createdAt int64, rep trend.AnalysisReport) ReportResponse {
	out := ReportResponse{ID: id, CreatedAt: createdAt, Report: rep}
	if !math.IsInf(rep.ProfitLossRatio, 0) && !math.IsNaN(rep.ProfitLossRatio) {
		v := rep.ProfitLossRatio
		out.ProfitLossRatio = &v
	}
	return out
}

func (r *Router) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	params := r.svc.ParamsFromJob(writer.JobEntry{
		Symbol:              strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Interval:            strings.ToLower(strings.TrimSpace(req.Interval)),
		HistoryLimit:        req.HistoryLimit,
		HMAPeriod:           req.HMAPeriod,
		SlopeThreshold:      req.SlopeThreshold,
		EventWindowBefore:   req.EventWindowBefore,
		EventWindowAfter:    req.EventWindowAfter,
		AnnualizationFactor: req.AnnualizationFactor,
	})
	out, err := r.svc.Analyze(c.Request.Context(), params)
	if err != nil {
		logger.Errorf("[analysis-api] run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":    toResponse(out.ReportID, 0, out.Result.Report),
		"integrity": out.Integrity,
		"snapshot":  out.Snapshot,
	})
}

func (r *Router) handleListReports(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	interval := strings.ToLower(strings.TrimSpace(c.Query("interval")))
	if symbol == "" || interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol/interval 必填"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := r.db.ListReports(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		logger.Errorf("[analysis-api] list reports failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]ReportResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toResponse(rec.ID, rec.CreatedAt.UnixMilli(), rec.Report))
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

func (r *Router) handleGetReport(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少报告 ID"})
		return
	}
	rec, err := r.db.GetReport(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(rec.ID, rec.CreatedAt.UnixMilli(), rec.Report))
}

func (r *Router) handleListJobs(c *gin.Context) {
	cfg, err := r.jobs.Read()
	if err != nil {
		logger.Errorf("[analysis-api] list jobs failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": cfg.Jobs})
}

func (r *Router) handleUpdateJob(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少任务名称"})
		return
	}
	for _, ch := range name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_') {
			c.JSON(http.StatusBadRequest, gin.H{"error": "任务名称只能包含字母、数字和下划线"})
			return
		}
	}
	var job writer.JobEntry
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if err := r.jobs.UpdateJob(name, job); err != nil {
		logger.Errorf("[analysis-api] update job failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[analysis-api] job '%s' updated by %s", name, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "任务已更新"})
}

func (r *Router) handleDeleteJob(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少任务名称"})
		return
	}
	if err := r.jobs.DeleteJob(name); err != nil {
		if strings.Contains(err.Error(), "不存在") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	logger.Infof("[analysis-api] job '%s' deleted by %s", name, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "任务已删除"})
}

func (r *Router) handleBackfill(c *gin.Context) {
	var params service.BackfillParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	// 回填在后台跑完，不绑定请求上下文。
	job, err := r.backfill.Submit(context.Background(), params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (r *Router) handleBackfillStatus(c *gin.Context) {
	job, ok := r.backfill.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (r *Router) handleBackfillJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": r.backfill.Jobs()})
}

func (r *Router) handleRunJobs(c *gin.Context) {
	cfg, err := r.jobs.Read()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(cfg.Jobs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "没有配置任何任务"})
		return
	}
	outcomes, err := r.svc.RunJobs(c.Request.Context(), cfg.Jobs)
	if err != nil {
		logger.Errorf("[analysis-api] run jobs failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	results := make(map[string]ReportResponse, len(outcomes))
	for name, out := range outcomes {
		results[name] = toResponse(out.ReportID, 0, out.Result.Report)
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
