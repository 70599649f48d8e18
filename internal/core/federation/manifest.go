package federation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dep2p/go-fedhost/pkg/types"
)

// ErrMalformedManifest 清单缺少必需字段或格式错误
var ErrMalformedManifest = errors.New("malformed manifest")

// manifestDoc 清单的线上格式
//
//	{
//	  "name": "remoteApp1",
//	  "entry": "http://localhost:5001/remoteEntry1.js",
//	  "exposes": ["./Button", "./Header"],
//	  "shared": {"react": {"version": "18.3.1", "singleton": true, "requiredVersion": "^18.0.0"}}
//	}
//
// exposes 也接受对象形式 {"./Button": "./src/components/Button"}，只取键。
type manifestDoc struct {
	Name    string                      `json:"name"`
	Entry   string                      `json:"entry"`
	Exposes json.RawMessage             `json:"exposes"`
	Shared  map[string]types.SharedSpec `json:"shared"`
}

// ParseManifest 防御性地解析远程清单
//
// remote 是远程表里的名字，清单中的 name 必须与之一致。
// 任何缺失或格式错误的字段都返回 ErrMalformedManifest。
func ParseManifest(remote string, data []byte) (*types.RemoteDescriptor, error) {
	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedManifest)
	}
	if remote != "" && name != remote {
		return nil, fmt.Errorf("%w: name %q does not match remote %q", ErrMalformedManifest, name, remote)
	}
	if strings.TrimSpace(doc.Entry) == "" {
		return nil, fmt.Errorf("%w: missing entry", ErrMalformedManifest)
	}

	exposes, err := parseExposes(doc.Exposes)
	if err != nil {
		return nil, err
	}

	for lib, spec := range doc.Shared {
		if strings.TrimSpace(lib) == "" {
			return nil, fmt.Errorf("%w: shared library with empty name", ErrMalformedManifest)
		}
		if spec.Version != "" && !ValidVersion(spec.Version) {
			return nil, fmt.Errorf("%w: shared %s: invalid version %q", ErrMalformedManifest, lib, spec.Version)
		}
		if spec.RequiredVersion != "" {
			if _, err := ParseRange(spec.RequiredVersion); err != nil {
				return nil, fmt.Errorf("%w: shared %s: %v", ErrMalformedManifest, lib, err)
			}
		}
	}

	return &types.RemoteDescriptor{
		Name:     name,
		EntryURL: strings.TrimSpace(doc.Entry),
		Exposes:  exposes,
		Shared:   doc.Shared,
	}, nil
}

func parseExposes(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing exposes", ErrMalformedManifest)
	}

	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil {
		var table map[string]string
		if err2 := json.Unmarshal(raw, &table); err2 != nil {
			return nil, fmt.Errorf("%w: exposes must be a list or an object", ErrMalformedManifest)
		}
		for k := range table {
			paths = append(paths, k)
		}
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		norm := types.NormalizeExposedPath(p)
		if norm == "" {
			return nil, fmt.Errorf("%w: empty exposed path", ErrMalformedManifest)
		}
		out = append(out, norm)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no exposed modules", ErrMalformedManifest)
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}

// EncodeManifest 把描述编码为清单文档（远程服务端使用）
func EncodeManifest(desc *types.RemoteDescriptor) ([]byte, error) {
	exposes := make([]string, len(desc.Exposes))
	for i, p := range desc.Exposes {
		exposes[i] = "./" + types.NormalizeExposedPath(p)
	}
	raw, err := json.Marshal(exposes)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(manifestDoc{
		Name:    desc.Name,
		Entry:   desc.EntryURL,
		Exposes: raw,
		Shared:  desc.Shared,
	}, "", "  ")
}
