package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork 请求没有完成：连接失败、超时、被取消或URL非法
	ErrNetwork = errors.New("request failed")
	// ErrResponseFormat 响应体不是合法的 JSON
	ErrResponseFormat = errors.New("response is not JSON")
)

const maxBodySnippet = 200

type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("执行请求 %s %s 失败: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

type ResponseFormatError struct {
	Method string
	URL    string
	Status int
	Body   string // 截断后的响应体
	Err    error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("解析响应 %s %s (状态码 %d) 失败: %v, 响应体: %q", e.Method, e.URL, e.Status, e.Err, e.Body)
}

func (e *ResponseFormatError) Unwrap() []error {
	return []error{ErrResponseFormat, e.Err}
}

func snippet(body []byte) string {
	if len(body) > maxBodySnippet {
		return string(body[:maxBodySnippet]) + "..."
	}
	return string(body)
}
