package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// ErrCodeInvalid 表示环境变量存在但无法解析，或取值不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultCacheTTL 是缓存有效期的内置默认值。
	DefaultCacheTTL = 600 * time.Second
	// DefaultRequestTimeout 是单次抓取请求的总超时默认值。
	DefaultRequestTimeout = 8 * time.Second
	// DefaultMaxWorkers 是预热等后台任务的并发默认值。
	DefaultMaxWorkers = 2
	// DefaultMaxItems 是单次响应的记录条数上限默认值（trending 与 stories 共用）。
	DefaultMaxItems = 15
)

// Config 是合并默认值并做最小规范化后的最终配置
// （实现层直接消费，不再做二次默认/范围判断）。
type Config struct {
	Host string
	Port int

	CacheTTL       time.Duration
	MaxWorkers     int
	RequestTimeout time.Duration

	MaxRepositories int
	MaxStories      int

	// 连接池参数（对应 httpx 的 transport 配置）。
	PoolConnections int
	PoolMaxSize     int
	MaxRetries      int
	PoolBlock       bool
}

// Error 是配置阶段的结构化错误（带 error_code 与出错的变量名）。
type Error struct {
	Code string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：环境变量 %s 无效：%v", e.Code, e.Key, e.Err)
	}
	return fmt.Sprintf("%s：环境变量 %s 无效", e.Code, e.Key)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load 从环境变量读取配置并合并默认值。
//
// 规则（固定）：
// - 变量未设置或为空：使用默认值
// - 变量存在但解析失败：返回 config_invalid（不允许静默回退，错误要尽早暴露）
// - 范围约束：TTL >= 1s；workers 截断到 [1, 32]；条数上限截断到 [1, 50]
func Load() (Config, error) {
	return load(os.Getenv)
}

// load 以 getenv 为注入点，便于测试不污染进程环境。
func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Host:            "0.0.0.0",
		Port:            8000,
		CacheTTL:        DefaultCacheTTL,
		MaxWorkers:      DefaultMaxWorkers,
		RequestTimeout:  DefaultRequestTimeout,
		MaxRepositories: DefaultMaxItems,
		MaxStories:      DefaultMaxItems,
		PoolConnections: 10,
		PoolMaxSize:     10,
		MaxRetries:      0,
		PoolBlock:       false,
	}

	if v := strings.TrimSpace(getenv("HOST")); v != "" {
		cfg.Host = v
	}

	var err error
	if cfg.Port, err = intVar(getenv, "PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = secondsVar(getenv, "CACHE_TIMEOUT", cfg.CacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = secondsVar(getenv, "REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxWorkers, err = intVar(getenv, "MAX_WORKERS", cfg.MaxWorkers); err != nil {
		return Config{}, err
	}
	if cfg.MaxRepositories, err = intVar(getenv, "MAX_REPOSITORIES", cfg.MaxRepositories); err != nil {
		return Config{}, err
	}
	if cfg.MaxStories, err = intVar(getenv, "MAX_STORIES", cfg.MaxStories); err != nil {
		return Config{}, err
	}
	if cfg.PoolConnections, err = intVar(getenv, "POOL_CONNECTIONS", cfg.PoolConnections); err != nil {
		return Config{}, err
	}
	if cfg.PoolMaxSize, err = intVar(getenv, "POOL_MAXSIZE", cfg.PoolMaxSize); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries, err = intVar(getenv, "MAX_RETRIES", cfg.MaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.PoolBlock, err = boolVar(getenv, "POOL_BLOCK", cfg.PoolBlock); err != nil {
		return Config{}, err
	}

	// 范围约束：超出截断，不报错（文档约定）。
	if cfg.CacheTTL < time.Second {
		cfg.CacheTTL = time.Second
	}
	cfg.MaxWorkers = clamp(cfg.MaxWorkers, 1, 32)
	cfg.MaxRepositories = clamp(cfg.MaxRepositories, 1, 50)
	cfg.MaxStories = clamp(cfg.MaxStories, 1, 50)
	if cfg.PoolConnections < 1 {
		cfg.PoolConnections = 1
	}
	if cfg.PoolMaxSize < 1 {
		cfg.PoolMaxSize = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, &Error{Code: ErrCodeInvalid, Key: "PORT", Err: fmt.Errorf("端口超出范围：%d", cfg.Port)}
	}

	return cfg, nil
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &Error{Code: ErrCodeInvalid, Key: key, Err: err}
	}
	return n, nil
}

func secondsVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &Error{Code: ErrCodeInvalid, Key: key, Err: err}
	}
	return time.Duration(n) * time.Second, nil
}

func boolVar(getenv func(string) string, key string, def bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(getenv(key)))
	if v == "" {
		return def, nil
	}
	switch v {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, &Error{Code: ErrCodeInvalid, Key: key, Err: fmt.Errorf("布尔值只接受 true/false/1/0/yes/no，实际是 %q", v)}
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
