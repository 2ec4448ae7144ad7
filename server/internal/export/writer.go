package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ccs-probe/server/internal/oracle"
)

// Writer 把会话文档落盘成 JSON，供下游分析工具消费。
//
// 可恢复性契约：任何一步失败都只向调用方报错，内存里的历史原封不动，
// 随时可以重试导出。
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter 创建导出器。now 可注入固定时钟便于测试文件名。
func NewWriter(dir string, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{dir: dir, now: now}
}

// Write 序列化文档并写入导出目录，返回落盘路径。
// 文件名带时间戳，同一个运行可以多次导出而互不覆盖。
func (w *Writer) Write(runID string, doc *oracle.Document) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir %q: %w", w.dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session document: %w", err)
	}

	name := fmt.Sprintf("ccs_test_session_%s_%s.json", runID, w.now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write session document %q: %w", path, err)
	}
	return path, nil
}
