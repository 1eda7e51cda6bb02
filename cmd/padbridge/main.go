package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/pad-bridge/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/logging"
	"github.com/taoyao-code/pad-bridge/internal/serialport"
)

func main() {
	// 1) 命令行参数：padbridge [flags] [serial-device]
	fs := pflag.NewFlagSet("padbridge", pflag.ExitOnError)
	cfgpkg.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: padbridge [flags] [serial-device]\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() > 0 && !fs.Changed("device") {
		_ = fs.Set("device", fs.Arg(0))
	}
	configPath, _ := fs.GetString("config")

	// 2) 加载配置
	cfg, err := cfgpkg.Load(configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "padbridge: %v\n", err)
		os.Exit(2)
	}

	// 3) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "padbridge: init logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 4) 信号处理：取消后转发循环在两个数据报之间退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx, cfg, log); err != nil {
		if serialport.IsLinkLost(err) {
			log.Error("serial link lost, check that the controller device is connected and accessible",
				zap.String("device", cfg.Serial.Device), zap.Error(err))
		} else {
			log.Error("pad bridge exited with error", zap.Error(err))
		}
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}
