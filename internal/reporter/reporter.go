package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"fixture_replay/internal/model"
)

const (
	// Excel 相关
	sheetNameFormat    = "%s_%s"
	timeFormat         = "2006-01-02_15-04-05"
	maxSheetNameLength = 31
	minColumn          = 'A'
	maxColumn          = 'H'
	defaultColumnWidth = 16
	wideColumnWidth    = 48
	defaultSheet       = "Sheet1"
)

// 表头定义
var excelHeaders = []string{
	"Fixture", "请求方法", "请求URL", "状态码",
	"请求体", "响应体", "耗时(ms)", "请求ID",
}

// Console 把回放过程输出到终端
type Console struct {
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// PrintFixture 输出解析后的 fixture 原始内容，包括未知字段
func (c *Console) PrintFixture(path string, fx *model.Fixture) error {
	var doc any = fx
	if fx.Raw != nil {
		doc = fx.Raw
	}
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "%s: %s\n", path, data)
	return err
}

// PrintStatus 输出请求方法、最终URL和状态码
func (c *Console) PrintStatus(result model.Result) error {
	_, err := fmt.Fprintf(c.out, "Response for %s %s: %d\n", result.Method, result.URL, result.Status)
	return err
}

// PrintBody 输出解析后的响应体
func (c *Console) PrintBody(result model.Result) error {
	body, err := marshal(result.ResponseBody)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "%s\n", body)
	return err
}

// Transcript 把回放记录写入 Excel 文件的新工作表
type Transcript struct {
	path      string
	sheetName string
	now       func() time.Time
}

func NewTranscript(path, sheetName string) *Transcript {
	return &Transcript{path: path, sheetName: sheetName, now: time.Now}
}

// Write 已存在的文件追加一个工作表，否则新建文件。保存是原子的。
func (t *Transcript) Write(results []model.Result) (string, error) {
	f, fresh, err := t.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	sheetName, err := uniqueSheetName(f, fmt.Sprintf(sheetNameFormat, t.sheetName, t.now().Format(timeFormat)))
	if err != nil {
		return "", err
	}
	if fresh {
		// 新文件直接重命名默认工作表
		if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
			return "", fmt.Errorf("创建工作表失败: %w", err)
		}
	} else if _, err := f.NewSheet(sheetName); err != nil {
		return "", fmt.Errorf("创建工作表失败: %w", err)
	}
	index, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return "", fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(index)

	// 设置列宽，URL 和请求/响应体使用宽列
	if err := f.SetColWidth(sheetName, string(minColumn), string(maxColumn), defaultColumnWidth); err != nil {
		return "", fmt.Errorf("设置列宽失败: %w", err)
	}
	for _, col := range []string{"C", "E", "F"} {
		if err := f.SetColWidth(sheetName, col, col, wideColumnWidth); err != nil {
			return "", fmt.Errorf("设置列宽失败: %w", err)
		}
	}

	for i, header := range excelHeaders {
		cell := fmt.Sprintf("%c1", minColumn+i)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return "", fmt.Errorf("写入表头失败: %w", err)
		}
	}

	for i, result := range results {
		if err := writeResult(f, sheetName, i+2, result); err != nil {
			return "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("生成回放记录失败: %w", err)
	}
	if err := atomic.WriteFile(t.path, buf); err != nil {
		return "", fmt.Errorf("保存回放记录失败: %w", err)
	}
	return sheetName, nil
}

// uniqueSheetName 同一秒内多次写入时追加 _2、_3 后缀，避免写进旧的工作表
func uniqueSheetName(f *excelize.File, base string) (string, error) {
	for n := 1; ; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		if runes := []rune(name); len(runes) > maxSheetNameLength {
			name = string(runes[len(runes)-maxSheetNameLength:])
		}
		index, err := f.GetSheetIndex(name)
		if err != nil {
			return "", fmt.Errorf("检查工作表失败: %w", err)
		}
		if index == -1 {
			return name, nil
		}
	}
}

// marshal 编码为单行 JSON，不转义 URL 中的 &
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (t *Transcript) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(t.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("打开Excel文件失败: %w", err)
}

func writeResult(f *excelize.File, sheet string, row int, result model.Result) error {
	responseBody, err := marshal(result.ResponseBody)
	if err != nil {
		return fmt.Errorf("编码响应体失败: %w", err)
	}

	cells := []any{
		result.Fixture,
		result.Method,
		result.URL,
		result.Status,
		result.RequestBody,
		string(responseBody),
		float64(result.Duration.Microseconds()) / 1000,
		result.RequestID,
	}
	for i, cell := range cells {
		cellName := fmt.Sprintf("%c%d", minColumn+i, row)
		if err := f.SetCellValue(sheet, cellName, cell); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", row, err)
		}
	}
	return nil
}
