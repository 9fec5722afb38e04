package writer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestJobsWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	w := NewJobsWriter(path)

	if err := w.Write(&JobsYAML{Jobs: map[string]JobEntry{
		"eth_4h": {Symbol: "ETHUSDT", Interval: "4h", HMAPeriod: 45},
	}}); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	cfg, err := w.Read()
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	job, ok := cfg.Jobs["eth_4h"]
	if !ok {
		t.Fatal("应能读回 eth_4h 任务")
	}
	if job.Symbol != "ETHUSDT" || job.HMAPeriod != 45 {
		t.Fatalf("任务字段错误: %+v", job)
	}
}

func TestJobsWriterUpdateAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	w := NewJobsWriter(path)
	w.Write(&JobsYAML{Jobs: map[string]JobEntry{}})

	if err := w.UpdateJob("btc_1h", JobEntry{Symbol: "BTCUSDT", Interval: "1h"}); err != nil {
		t.Fatalf("新增任务失败: %v", err)
	}
	if err := w.UpdateJob("btc_1h", JobEntry{Symbol: "BTCUSDT", Interval: "1h", Disabled: true}); err != nil {
		t.Fatalf("更新任务失败: %v", err)
	}
	cfg, _ := w.Read()
	if !cfg.Jobs["btc_1h"].Disabled {
		t.Fatal("更新后 disabled 应为 true")
	}

	if err := w.DeleteJob("btc_1h"); err != nil {
		t.Fatalf("删除任务失败: %v", err)
	}
	if err := w.DeleteJob("btc_1h"); err == nil {
		t.Fatal("删除不存在的任务应报错")
	}
}

func TestJobsWriterBackupOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	w := NewJobsWriter(path)

	w.Write(&JobsYAML{Jobs: map[string]JobEntry{"a": {Symbol: "ETHUSDT", Interval: "4h"}}})
	w.Write(&JobsYAML{Jobs: map[string]JobEntry{"b": {Symbol: "BTCUSDT", Interval: "1h"}}})

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("备份目录应存在: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("二次写入前应留下备份")
	}
}

func TestJobsWriterReadMissingIsEmpty(t *testing.T) {
	w := NewJobsWriter(filepath.Join(t.TempDir(), "nope.yaml"))
	cfg, err := w.Read()
	if err != nil {
		t.Fatalf("缺失文件应视为空任务表: %v", err)
	}
	if len(cfg.Jobs) != 0 {
		t.Fatalf("任务表应为空, 实际=%d", len(cfg.Jobs))
	}
}
