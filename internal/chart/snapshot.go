package chart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"hmatrend/internal/logger"
)

// SnapshotPNG 用无头浏览器打开已渲染的 HTML 图表并截成 PNG。
// 机器上没有 Chrome 时直接返回错误，HTML 产物不受影响。
func SnapshotPNG(ctx context.Context, htmlPath, pngPath string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	info, err := os.Stat(htmlPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("图表文件不可读: %s", htmlPath)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	url := htmlPath
	if !strings.HasPrefix(url, "file://") {
		if abs, err := filepath.Abs(htmlPath); err == nil {
			url = "file://" + abs
		} else {
			url = "file://" + url
		}
	}

	var buf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate(url),
		// 等 echarts 初始化完画布。
		chromedp.WaitVisible("canvas", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.FullScreenshot(&buf, 95),
	)
	if err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}
	if err := os.WriteFile(pngPath, buf, 0644); err != nil {
		return fmt.Errorf("写入 PNG 失败: %w", err)
	}
	logger.Infof("[chart] 已生成快照 %s", pngPath)
	return nil
}
