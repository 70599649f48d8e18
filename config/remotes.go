package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/mod/semver"
)

// RemoteConfig 一个远程片段的入口
type RemoteConfig struct {
	// Name 远程名，即模块引用 "<name>/<path>" 的前半部分
	Name string `json:"name" yaml:"name" toml:"name"`

	// Entry 远程清单地址
	Entry string `json:"entry" yaml:"entry" toml:"entry"`
}

// ParseRemoteSpec 解析 "name@url" 形式的远程声明
//
//	remoteApp1@http://localhost:5001/remoteEntry1.json
func ParseRemoteSpec(spec string) (RemoteConfig, error) {
	name, entry, found := strings.Cut(strings.TrimSpace(spec), "@")
	if !found || name == "" || entry == "" {
		return RemoteConfig{}, fmt.Errorf("remote spec %q: want <name>@<url>", spec)
	}
	rc := RemoteConfig{Name: name, Entry: entry}
	if err := rc.Validate(); err != nil {
		return RemoteConfig{}, err
	}
	return rc, nil
}

// Validate 验证单个远程
func (c *RemoteConfig) Validate() error {
	if c.Name == "" {
		return errors.New("remotes: name cannot be empty")
	}
	if strings.Contains(c.Name, "/") {
		return fmt.Errorf("remotes: name %q cannot contain '/'", c.Name)
	}
	u, err := url.Parse(c.Entry)
	if err != nil {
		return fmt.Errorf("remotes: %s: invalid entry %q: %w", c.Name, c.Entry, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("remotes: %s: entry must be http(s), got %q", c.Name, c.Entry)
	}
	return nil
}

func validateRemotes(remotes []RemoteConfig) error {
	seen := make(map[string]struct{}, len(remotes))
	var errs []error
	for i := range remotes {
		if err := remotes[i].Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[remotes[i].Name]; dup {
			errs = append(errs, fmt.Errorf("remotes: duplicate name %q", remotes[i].Name))
		}
		seen[remotes[i].Name] = struct{}{}
	}
	return multierr.Combine(errs...)
}

// SharedConfig 宿主提供的一个共享依赖
type SharedConfig struct {
	Version         string `json:"version" yaml:"version" toml:"version"`
	Singleton       bool   `json:"singleton" yaml:"singleton" toml:"singleton"`
	RequiredVersion string `json:"required_version,omitempty" yaml:"required_version,omitempty" toml:"required_version,omitempty"`
}

// Validate 验证共享依赖声明
func (c *SharedConfig) Validate(name string) error {
	if name == "" {
		return errors.New("shared: library name cannot be empty")
	}
	if !semver.IsValid("v" + strings.TrimPrefix(c.Version, "v")) {
		return fmt.Errorf("shared: %s: invalid version %q", name, c.Version)
	}
	return nil
}
