// Package main 提供独立的远程清单服务
//
// 为一个内置远程提供清单（gzip 压缩），宿主通过清单地址解析远程。
//
// 使用方法:
//
//	remote-server -name remoteApp1 -addr :5001 -path /remoteEntry1.json
//	remote-server -name remoteApp2 -addr :5002 -path /remoteEntry2.json
//	remote-server -name sharedUtils -addr :5003 -path /sharedEntry1.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/dep2p/go-fedhost/internal/remotes"
	"github.com/dep2p/go-fedhost/internal/util/logger"
)

var log = logger.Logger("fedhost/remote-server")

func main() {
	if err := run(); err != nil {
		fmt.Printf("❌ 错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	name := flag.String("name", remotes.RemoteApp1, "远程名 (remoteApp1/remoteApp2/sharedUtils)")
	addr := flag.String("addr", ":5001", "监听地址")
	path := flag.String("path", "/remoteEntry1.json", "清单路径")
	publicURL := flag.String("public-url", "", "清单中的入口地址（默认 http://<addr><path>）")
	flag.Parse()

	c, err := remotes.New(*name)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", *addr, err)
	}

	entry := *publicURL
	if entry == "" {
		entry = "http://" + ln.Addr().String() + *path
	}
	h, err := remotes.Handler(c, entry)
	if err != nil {
		ln.Close()
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(*path, gzhttp.GzipHandler(h))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	fmt.Printf("📦 %s 清单: %s\n", *name, entry)
	fmt.Printf("   暴露: %v\n", c.Exposes())
	fmt.Println("按 Ctrl+C 停止")
	log.Info("清单服务已启动", "remote", *name, "addr", ln.Addr().String(), "entry", entry)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Println("\n正在关闭清单服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
