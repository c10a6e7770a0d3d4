package provider

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
)

// FetchURL 通过共享 client 发出单次 GET 并读取整页 HTML。
//
// 约束：
// - 本层无缓存、无重试循环（重试在 httpx transport 内有界完成）、每次调用无状态
// - 失败必须落入类型化分类：TimeoutError / NetworkError / HTTPStatusError
func FetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, classify(u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(u, err)
	}
	return b, nil
}

// classify 把底层传输错误归入类型化分类。
// 判定顺序：先超时（ctx 截止 / net.Error.Timeout），其余一律算网络层失败。
func classify(u string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: u, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{URL: u, Err: err}
	}
	return &NetworkError{URL: u, Err: err}
}
