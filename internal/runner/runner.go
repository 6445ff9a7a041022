package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fixture_replay/internal/config"
	"fixture_replay/internal/fixture"
	"fixture_replay/internal/model"
)

// Printer 接收回放过程中需要展示的内容
type Printer interface {
	PrintFixture(path string, fx *model.Fixture) error
	// PrintStatus 在解析响应体之前调用，响应体非法时状态码也会输出
	PrintStatus(result model.Result) error
	PrintBody(result model.Result) error
}

type Runner struct {
	config  *config.Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
	printer Printer
}

func New(cfg *config.Config, logger *zap.SugaredLogger, printer Printer) *Runner {
	r := &Runner{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		printer: printer,
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// Run 依次回放根目录下的所有 fixture。遇到第一个错误立即停止，
// 返回值包含出错前已完成的请求。
func (r *Runner) Run(ctx context.Context) ([]model.Result, error) {
	paths, err := fixture.Discover(r.config.RootDir, r.config.Extension)
	if err != nil {
		return nil, err
	}
	r.logger.Debugw("发现 fixture", "root", r.config.RootDir, "count", len(paths))

	var results []model.Result
	for _, path := range paths {
		fixtureResults, err := r.runFixture(ctx, path)
		results = append(results, fixtureResults...)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) runFixture(ctx context.Context, path string) ([]model.Result, error) {
	fx, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	if err := r.printer.PrintFixture(path, fx); err != nil {
		return nil, fmt.Errorf("输出 fixture: %w", err)
	}

	results := make([]model.Result, 0, len(fx.Request))
	url := fx.URL
	for _, step := range fx.Request {
		// 默认在上一次的URL上继续追加
		if r.config.AccumulateURL {
			url += step.URL
		} else {
			url = fx.URL + step.URL
		}

		result, raw, err := r.execute(ctx, path, step, url)
		if err != nil {
			return results, err
		}
		if err := r.printer.PrintStatus(result); err != nil {
			return results, fmt.Errorf("输出响应: %w", err)
		}

		parsed, err := decodeJSON(raw)
		if err != nil {
			return results, &ResponseFormatError{
				Method: result.Method,
				URL:    result.URL,
				Status: result.Status,
				Body:   snippet(raw),
				Err:    err,
			}
		}
		result.ResponseBody = parsed
		results = append(results, result)

		if err := r.printer.PrintBody(result); err != nil {
			return results, fmt.Errorf("输出响应: %w", err)
		}
	}
	return results, nil
}

// execute 发送请求并返回未解析的响应体
func (r *Runner) execute(ctx context.Context, path string, step model.RequestSpec, url string) (model.Result, []byte, error) {
	method := step.Method
	if method == "" {
		method = http.MethodGet
	}
	netErr := func(err error) error {
		return &NetworkError{Method: method, URL: url, Err: err}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return model.Result{}, nil, netErr(err)
		}
	}

	var (
		body   string
		reader io.Reader
	)
	if step.Body != nil {
		data, err := json.Marshal(step.Body)
		if err != nil {
			return model.Result{}, nil, fmt.Errorf("编码请求体 %s: %w", path, err)
		}
		body = string(data)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return model.Result{}, nil, netErr(err)
	}

	requestID := uuid.NewString()
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.config.Authorization != "" {
		req.Header.Set("Authorization", r.config.Authorization)
	}
	for key, value := range r.config.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("X-Request-Id", requestID)

	r.logger.Debugw("发送请求", "fixture", path, "request_id", requestID, "curl", toCurl(req, body))

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return model.Result{}, nil, netErr(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		return model.Result{}, nil, netErr(fmt.Errorf("读取响应: %w", err))
	}

	r.logger.Debugw("收到响应",
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", duration,
	)

	return model.Result{
		Fixture:     path,
		Method:      method,
		URL:         url,
		Status:      resp.StatusCode,
		RequestBody: body,
		Duration:    duration,
		RequestID:   requestID,
	}, raw, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("响应末尾存在多余内容")
	}
	return v, nil
}
