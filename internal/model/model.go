package model

import "time"

// Fixture 对应一个 fixture 文件
type Fixture struct {
	URL      string        `json:"url"`      // 基础URL
	Request  []RequestSpec `json:"request"`  // 按顺序执行的请求
	Response []any         `json:"response"` // 录制的响应，只读取不比较
	Raw      any           `json:"-"`        // 文件解析后的完整内容，用于原样输出
}

type RequestSpec struct {
	Method string `json:"method"`         // HTTP方法
	URL    string `json:"url"`            // 追加到基础URL后的路径
	Body   any    `json:"body,omitempty"` // 请求体，nil 表示不发送
}

// Result 记录一次已完成的请求
type Result struct {
	Fixture      string // fixture 文件路径
	Method       string
	URL          string // 实际请求的完整URL
	Status       int
	RequestBody  string
	ResponseBody any
	Duration     time.Duration
	RequestID    string
}
