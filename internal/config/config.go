package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath 默认配置文件，不存在时使用默认值
	DefaultPath = "config.json"

	defaultRootDir   = "testing"
	defaultExtension = ".json"
	defaultTimeout   = 30 * time.Second
	defaultSheetName = "replay"
)

// 配置文件的原始结构，timeout 以字符串形式书写
type fileConfig struct {
	RootDir        string            `json:"root_dir" yaml:"root_dir"`
	Extension      string            `json:"extension" yaml:"extension"`
	Timeout        string            `json:"timeout" yaml:"timeout"`
	Authorization  string            `json:"authorization" yaml:"authorization"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	RateLimit      float64           `json:"rate_limit" yaml:"rate_limit"`
	AccumulateURL  *bool             `json:"accumulate_url" yaml:"accumulate_url"`
	TranscriptPath string            `json:"transcript_path" yaml:"transcript_path"`
	SheetName      string            `json:"sheet_name" yaml:"sheet_name"`
	Verbose        bool              `json:"verbose" yaml:"verbose"`
}

type Config struct {
	RootDir        string
	Extension      string
	Timeout        time.Duration
	Authorization  string
	Headers        map[string]string
	RateLimit      float64 // 每秒请求数，0 表示不限速
	AccumulateURL  bool
	TranscriptPath string
	SheetName      string
	Verbose        bool
}

// Default 返回全部使用默认值的配置
func Default() *Config {
	return &Config{
		RootDir:       defaultRootDir,
		Extension:     defaultExtension,
		Timeout:       defaultTimeout,
		Headers:       map[string]string{},
		AccumulateURL: true,
		SheetName:     defaultSheetName,
	}
}

// Load 读取配置文件。mustExist 为 false 时文件不存在返回默认配置。
// .yaml/.yml 按 YAML 解析，其他按 JSONC 解析。
func Load(path string, mustExist bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return Default(), nil
		}
		return nil, fmt.Errorf("读取配置文件 %s: %w", path, err)
	}

	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s: %w", path, err)
		}
	default:
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("解析配置文件 %s: invalid JSONC: %w", path, err)
		}
		if err := json.Unmarshal(standardized, &raw); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s: %w", path, err)
		}
	}

	return raw.resolve(), nil
}

func (fc fileConfig) resolve() *Config {
	cfg := Default()

	if fc.RootDir != "" {
		cfg.RootDir = fc.RootDir
	}
	if fc.Extension != "" {
		cfg.Extension = normalizeExtension(fc.Extension)
	}
	// 与 excel 版本一致：无法解析的 timeout 回退到默认值
	if timeout, err := time.ParseDuration(fc.Timeout); err == nil && timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.Authorization = fc.Authorization
	for k, v := range fc.Headers {
		cfg.Headers[k] = v
	}
	if fc.RateLimit > 0 {
		cfg.RateLimit = fc.RateLimit
	}
	if fc.AccumulateURL != nil {
		cfg.AccumulateURL = *fc.AccumulateURL
	}
	cfg.TranscriptPath = fc.TranscriptPath
	if fc.SheetName != "" {
		cfg.SheetName = fc.SheetName
	}
	cfg.Verbose = fc.Verbose

	return cfg
}

func normalizeExtension(ext string) string {
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// RegisterFlags 注册可以覆盖配置文件的命令行参数
func RegisterFlags(fs *flag.FlagSet) {
	fs.String("config", DefaultPath, "配置文件路径 (.json/.jsonc/.yaml)")
	fs.StringP("root", "r", defaultRootDir, "fixture 根目录")
	fs.Duration("timeout", defaultTimeout, "单个请求超时时间")
	fs.Float64("rate", 0, "每秒最多请求数，0 表示不限速")
	fs.StringP("transcript", "o", "", "将回放记录写入该 Excel 文件")
	fs.Bool("no-accumulate", false, "每个请求都从 fixture 的基础 url 开始拼接")
	fs.BoolP("verbose", "v", false, "输出调试日志")
}

// ApplyFlags 用显式设置过的命令行参数覆盖配置
func (c *Config) ApplyFlags(fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "root":
			c.RootDir, err = fs.GetString("root")
		case "timeout":
			c.Timeout, err = fs.GetDuration("timeout")
		case "rate":
			c.RateLimit, err = fs.GetFloat64("rate")
		case "transcript":
			c.TranscriptPath, err = fs.GetString("transcript")
		case "no-accumulate":
			var noAccumulate bool
			noAccumulate, err = fs.GetBool("no-accumulate")
			c.AccumulateURL = !noAccumulate
		case "verbose":
			c.Verbose, err = fs.GetBool("verbose")
		}
	})
	if err != nil {
		return fmt.Errorf("读取命令行参数: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout 必须大于 0，当前为 %s", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate 不能为负数，当前为 %g", c.RateLimit)
	}
	return nil
}
