package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// JobsYAML represents the structure of jobs.yaml
type JobsYAML struct {
	Jobs map[string]JobEntry `yaml:"jobs"`
}

// JobEntry 描述一项分析任务：某个 symbol+粒度下的一组分析参数。
// 留空的参数在服务层回落到全局配置。
type JobEntry struct {
	Symbol              string  `yaml:"symbol" json:"symbol"`
	Interval            string  `yaml:"interval" json:"interval"`
	HistoryLimit        int     `yaml:"history_limit,omitempty" json:"history_limit,omitempty"`
	HMAPeriod           int     `yaml:"hma_period,omitempty" json:"hma_period,omitempty"`
	SlopeThreshold      float64 `yaml:"slope_threshold,omitempty" json:"slope_threshold,omitempty"`
	EventWindowBefore   int     `yaml:"event_window_before,omitempty" json:"event_window_before,omitempty"`
	EventWindowAfter    int     `yaml:"event_window_after,omitempty" json:"event_window_after,omitempty"`
	AnnualizationFactor float64 `yaml:"annualization_factor,omitempty" json:"annualization_factor,omitempty"`
	Disabled            bool    `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// JobsWriter handles reading and writing jobs.yaml
type JobsWriter struct {
	path string
	mu   sync.RWMutex
}

// NewJobsWriter creates a new JobsWriter for the given path
func NewJobsWriter(path string) *JobsWriter {
	return &JobsWriter{path: path}
}

// Read reads the current jobs.yaml content.
// 文件不存在视为空任务表，首次 UpdateJob 即可建档。
func (w *JobsWriter) Read() (*JobsYAML, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &JobsYAML{Jobs: make(map[string]JobEntry)}, nil
		}
		return nil, fmt.Errorf("读取 jobs.yaml 失败: %w", err)
	}

	var cfg JobsYAML
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 jobs.yaml 失败: %w", err)
	}

	if cfg.Jobs == nil {
		cfg.Jobs = make(map[string]JobEntry)
	}

	return &cfg, nil
}

// Write writes the jobs to jobs.yaml with backup
func (w *JobsWriter) Write(cfg *JobsYAML) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.backup(); err != nil {
		return fmt.Errorf("备份失败: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化 jobs 失败: %w", err)
	}

	// Write to temp file first, then rename for atomic write
	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("替换任务文件失败: %w", err)
	}

	return nil
}

// UpdateJob updates or creates a job
func (w *JobsWriter) UpdateJob(name string, job JobEntry) error {
	cfg, err := w.Read()
	if err != nil {
		return err
	}
	cfg.Jobs[name] = job
	return w.Write(cfg)
}

// DeleteJob deletes a job by name
func (w *JobsWriter) DeleteJob(name string) error {
	cfg, err := w.Read()
	if err != nil {
		return err
	}
	if _, ok := cfg.Jobs[name]; !ok {
		return fmt.Errorf("job '%s' 不存在", name)
	}
	delete(cfg.Jobs, name)
	return w.Write(cfg)
}

// backup creates a backup of the current jobs.yaml
func (w *JobsWriter) backup() error {
	src, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No file to backup
		}
		return err
	}
	defer src.Close()

	backupDir := filepath.Join(filepath.Dir(w.path), "backups")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(backupDir, fmt.Sprintf("jobs_%s.yaml", timestamp))

	dst, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	// Clean old backups, keep last 10
	w.cleanOldBackups(backupDir, 10)

	return nil
}

func (w *JobsWriter) cleanOldBackups(dir string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var backups []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "jobs_") && strings.HasSuffix(e.Name(), ".yaml") {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}

	if len(backups) <= keep {
		return
	}

	for i := 0; i < len(backups)-keep; i++ {
		os.Remove(backups[i])
	}
}

// Path returns the path to jobs.yaml
func (w *JobsWriter) Path() string {
	return w.path
}
