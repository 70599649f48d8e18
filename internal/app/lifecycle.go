package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultStopTimeout 优雅停止的默认超时
const DefaultStopTimeout = 30 * time.Second

// Service 可启动、停止的组件
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Run 启动服务，阻塞到收到退出信号或 ctx 结束，然后在 stopTimeout 内停止
//
// 示例:
//
//	if err := app.Run(ctx, host, 0); err != nil {
//	    log.Fatal(err)
//	}
func Run(ctx context.Context, svc Service, stopTimeout time.Duration) error {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("正在退出", "cause", context.Cause(ctx))

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	if err := svc.Stop(stopCtx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}
