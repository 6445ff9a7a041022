package runner

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// toCurl 将请求转换为 curl 命令，便于手动复现
func toCurl(req *http.Request, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s", req.Method)

	// 按名称排序，保证输出稳定
	keys := make([]string, 0, len(req.Header))
	for key := range req.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " -H '%s: %s'", key, req.Header.Get(key))
	}

	if body != "" {
		fmt.Fprintf(&b, " -d '%s'", body)
	}

	fmt.Fprintf(&b, " '%s'", req.URL.String())
	return b.String()
}
