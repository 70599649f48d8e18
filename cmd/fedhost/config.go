package main

import (
	"github.com/dep2p/go-fedhost"
	"github.com/dep2p/go-fedhost/config"
	"github.com/dep2p/go-fedhost/internal/remotes"
)

// buildOptions 由命令行参数构建宿主选项
//
// 配置文件和 -remote 都没有给出远程时，使用内置远程的默认地址。
func buildOptions(servers *demoServers) ([]fedhost.Option, error) {
	var opts []fedhost.Option

	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cfg.Shared == nil {
		cfg.Shared = map[string]config.SharedConfig{}
	}
	if len(cfg.Shared) == 0 {
		cfg.Shared["react"] = config.SharedConfig{Version: remotes.ReactVersion, Singleton: true}
	}
	opts = append(opts, fedhost.WithConfig(cfg))

	declared := make(map[string]bool, len(cfg.Remotes))
	for _, r := range cfg.Remotes {
		declared[r.Name] = true
	}
	for _, spec := range remoteSpecs {
		rc, err := config.ParseRemoteSpec(spec)
		if err != nil {
			return nil, err
		}
		declared[rc.Name] = true
		opts = append(opts, fedhost.WithRemote(rc.Name, rc.Entry))
	}

	switch {
	case servers != nil:
		for name, entry := range servers.entries {
			if !declared[name] {
				opts = append(opts, fedhost.WithRemote(name, entry))
			}
		}
	case len(declared) == 0:
		for name, entry := range remotes.DefaultEntries {
			opts = append(opts, fedhost.WithRemote(name, entry))
		}
	}

	if *builtin {
		opts = append(opts, fedhost.WithBuiltinRemotes())
	}
	if *diagnostics != "" {
		opts = append(opts, fedhost.WithDiagnostics(*diagnostics, *stream))
	}
	if *devLogging {
		opts = append(opts, fedhost.WithDevLogging(true))
	}
	if *policy != "" {
		opts = append(opts, fedhost.WithVersionPolicy(*policy))
	}
	if *logFile != "" {
		opts = append(opts, fedhost.WithLogFile(*logFile))
	}
	if *verboseFx {
		opts = append(opts, fedhost.WithVerboseFx())
	}
	return opts, nil
}
