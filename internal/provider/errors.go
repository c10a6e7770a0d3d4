package provider

import (
	"fmt"
	"strings"
)

// 错误分类约定：
// - 整页抓取失败（网络 / 超时 / 非 2xx）用下面的类型化错误向上传播
// - 逐字段解析失败一律就地降级为默认值，绝不以 error 形态冒出
// - ParseError 只保留给"整页 HTML 无法读取"的灾难场景

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// 上层（api 层）据此映射为 502，并保持该 key 的缓存不被污染。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
}

// TimeoutError 表示请求超过了配置的截止时间（client 总超时或 ctx 截止）。
// 等待别人 in-flight 抓取的请求者本地超时时也返回该类型（不取消共享抓取）。
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return "timeout"
	}
	if strings.TrimSpace(e.URL) == "" {
		return "timeout"
	}
	return "timeout url=" + e.URL
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NetworkError 表示网络层失败（DNS、连接拒绝、连接重置）。
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "network error"
	}
	return fmt.Sprintf("network error url=%s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError 表示整页 HTML 无法解析（与逐字段容错降级不同，这是灾难性结构变化）。
// 注意：页面解析成功但找不到任何重复块不是错误——返回空序列，由调用方决定怎么看待。
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "parse error"
	}
	return fmt.Sprintf("parse error url=%s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
