package remotes

import (
	"net/http"

	"github.com/dep2p/go-fedhost/internal/core/federation"
)

// Manifest 返回容器在 entryURL 处的清单
func Manifest(c *federation.StaticContainer, entryURL string) ([]byte, error) {
	return federation.EncodeManifest(c.Descriptor(entryURL))
}

// Handler 返回提供容器清单的 HTTP 处理器
//
// 清单在创建时编码一次；只接受 GET 和 HEAD。
func Handler(c *federation.StaticContainer, entryURL string) (http.Handler, error) {
	body, err := Manifest(c, entryURL)
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write(body); err != nil {
			log.Debug("写入清单失败", "remote", c.Name(), "err", err)
		}
	}), nil
}
