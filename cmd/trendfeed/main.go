package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/John-Robertt/trendfeed/internal/api"
	"github.com/John-Robertt/trendfeed/internal/config"
	"github.com/John-Robertt/trendfeed/internal/infra/httpx"
	"github.com/John-Robertt/trendfeed/internal/service"
)

const version = "1.0.0"

// shutdownGrace 是收到退出信号后等待在途请求完成的上限。
const shutdownGrace = 10 * time.Second

func main() {
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

func run() int {
	logger := log.New(os.Stderr, "trendfeed ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取配置失败：%v\n", err)
		return 2
	}

	client := httpx.NewClient(httpx.Options{
		PoolConnections: cfg.PoolConnections,
		PoolMaxSize:     cfg.PoolMaxSize,
		RetryMax:        cfg.MaxRetries,
		Block:           cfg.PoolBlock,
		Timeout:         cfg.RequestTimeout,
	})
	// 进程退出前释放连接池内的 socket。
	defer client.CloseIdleConnections()

	svc := service.New(cfg, client, logger)

	// 预热不阻塞启动：服务先可用，热门键在后台逐步填充。
	warmCtx, warmCancel := context.WithCancel(context.Background())
	defer warmCancel()
	go svc.Warm(warmCtx)

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.New(svc, cfg, version, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("启动服务：addr=%s ttl=%s timeout=%s", addr, cfg.CacheTTL, cfg.RequestTimeout)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "服务异常退出：%v\n", err)
			return 1
		}
		return 0
	case sig := <-sigCh:
		logger.Printf("收到信号 %v，开始优雅关停", sig)
	}

	warmCancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "关停超时：%v\n", err)
		return 1
	}
	logger.Printf("已退出")
	return 0
}
