package fixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fixture_replay/internal/model"
)

// ErrParse 表示 fixture 内容不是合法的 JSON
var ErrParse = errors.New("invalid fixture")

// ParseError 携带出错的 fixture 路径
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("解析 fixture %s 失败: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Discover 返回 root 下一级子目录中所有扩展名为 ext 的文件。
// root 下的文件和更深层的目录都会被忽略，顺序与目录列表一致。
func Discover(root, ext string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("读取 fixture 根目录 %s: %w", root, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		subEntries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("读取 fixture 目录 %s: %w", dir, err)
		}
		for _, sub := range subEntries {
			if sub.IsDir() || !strings.HasSuffix(sub.Name(), ext) {
				continue
			}
			paths = append(paths, filepath.Join(dir, sub.Name()))
		}
	}
	return paths, nil
}

// Load 读取并解析一个 fixture 文件
func Load(path string) (*model.Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 fixture %s: %w", path, err)
	}
	fx, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return fx, nil
}

// Parse 解析 fixture 内容。顶层必须是对象，缺失的字段保持零值，数字保留原始文本。
func Parse(data []byte) (*model.Fixture, error) {
	var raw any
	if err := decode(data, &raw); err != nil {
		return nil, err
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, fmt.Errorf("fixture 顶层必须是 JSON 对象，实际为 %T", raw)
	}

	var fx model.Fixture
	if err := decode(data, &fx); err != nil {
		return nil, err
	}
	fx.Raw = raw
	if fx.Request == nil {
		fx.Request = []model.RequestSpec{}
	}
	if fx.Response == nil {
		fx.Response = []any{}
	}
	return &fx, nil
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}
	// 文件末尾只允许空白
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("fixture 末尾存在多余内容")
	}
	return nil
}
