// Package main 提供 fedhost 命令行入口
//
// 启动宿主：加载配置，预加载远程，加载 remoteApp1/Button 与 remoteApp2/Cart，
// 通过事件总线驱动宿主状态，按配置提供诊断服务。
//
// 使用方法:
//
//	fedhost -demo -diagnostics 127.0.0.1:6060
//	fedhost -config fedhost.yaml
//	fedhost -remote remoteApp1@http://localhost:5001/remoteEntry1.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dep2p/go-fedhost"
	"github.com/dep2p/go-fedhost/internal/app"
	"github.com/dep2p/go-fedhost/internal/util/logger"
)

var log = logger.Logger("fedhost/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//	命令行参数：运行时覆盖 / 快速测试
//	配置文件：远程表、共享依赖等固定配置
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径（.json / .yaml / .toml）")
	demo        = flag.Bool("demo", false, "在本进程内为内置远程提供清单，无需单独启动 remote-server")
	builtin     = flag.Bool("builtin", true, "使用内置远程容器")
	diagnostics = flag.String("diagnostics", "", "诊断服务监听地址（为空时按配置）")
	stream      = flag.Bool("stream", true, "诊断服务提供 websocket 事件流")
	devLogging  = flag.Bool("dev-logging", false, "记录每一次事件发射")
	policy      = flag.String("policy", "", "共享单例版本冲突策略 (strict/warn)")
	logFile     = flag.String("log", "", "日志文件路径")
	verboseFx   = flag.Bool("verbose-fx", false, "输出 Fx 事件日志")
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")

	remoteSpecs []string
)

func init() {
	flag.Func("remote", "远程声明 <name>@<url>，可重复", func(s string) error {
		remoteSpecs = append(remoteSpecs, s)
		return nil
	})
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("fedhost %s\n", fedhost.Version)
		return nil
	}
	if *showHelp {
		printHelp()
		return nil
	}

	ctx := context.Background()

	var servers *demoServers
	if *demo {
		var err error
		servers, err = startDemoServers()
		if err != nil {
			return fmt.Errorf("启动演示清单服务失败: %w", err)
		}
		defer servers.Close()
	}

	opts, err := buildOptions(servers)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	host, err := fedhost.New(opts...)
	if err != nil {
		return fmt.Errorf("创建宿主失败: %w", err)
	}

	shell := newShell(host)
	fmt.Printf("📦 fedhost %s\n", fedhost.Version)
	fmt.Println("宿主已启动，按 Ctrl+C 退出")
	return app.Run(ctx, shell, 0)
}

func printHelp() {
	fmt.Println("fedhost - 运行时联邦宿主")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  fedhost [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  " + logger.EnvLevel + "    日志级别，例如 eventbus=debug,info")
	fmt.Println("  " + logger.EnvFormat + "   text 或 json")
	fmt.Println()
	fmt.Println("配置文件示例 (fedhost.yaml):")
	fmt.Println()
	fmt.Println(strings.TrimSpace(`
  remotes:
    - name: remoteApp1
      entry: http://localhost:5001/remoteEntry1.json
    - name: remoteApp2
      entry: http://localhost:5002/remoteEntry2.json
    - name: sharedUtils
      entry: http://localhost:5003/sharedEntry1.json
  shared:
    react:
      version: 18.3.1
      singleton: true
  federation:
    version_policy: strict
  diagnostics:
    enabled: true
    addr: 127.0.0.1:6060`))
}
