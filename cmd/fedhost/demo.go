package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/multierr"

	"github.com/dep2p/go-fedhost/internal/remotes"
)

// demoServers 本进程内的清单服务，每个内置远程一个端口
type demoServers struct {
	servers []*http.Server
	entries map[string]string
}

func startDemoServers() (*demoServers, error) {
	d := &demoServers{entries: make(map[string]string)}
	for _, name := range remotes.Names() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			d.Close()
			return nil, err
		}
		entry := fmt.Sprintf("http://%s/%s.json", ln.Addr(), name)

		c, err := remotes.New(name)
		if err != nil {
			ln.Close()
			d.Close()
			return nil, err
		}
		h, err := remotes.Handler(c, entry)
		if err != nil {
			ln.Close()
			d.Close()
			return nil, err
		}

		mux := http.NewServeMux()
		mux.Handle("/"+name+".json", gzhttp.GzipHandler(h))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		name := name // per-iteration copy (pre-Go 1.22 loop semantics)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("演示清单服务异常退出", "remote", name, "err", err)
			}
		}()

		d.servers = append(d.servers, srv)
		d.entries[name] = entry
		log.Debug("演示清单服务已启动", "remote", name, "entry", entry)
	}
	return d, nil
}

// Close 关闭全部清单服务
func (d *demoServers) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	for _, srv := range d.servers {
		err = multierr.Append(err, srv.Shutdown(ctx))
	}
	return err
}
