package main

import (
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/novastar-ctl/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
	"github.com/taoyao-code/novastar-ctl/internal/logging"
)

func main() {
	configPath := pflag.String("config", "", "config file (yaml)")
	pflag.String("addr", ":8080", "http listen address")
	pflag.String("port", "/dev/ttyUSB0", "serial device")
	pflag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.LoadWithFlags(*configPath, pflag.CommandLine, map[string]string{
		"http.addr":     "addr",
		"serial.device": "port",
	})
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 启动
	if err := bootstrap.Run(cfg, log); err != nil {
		log.Fatal("novastar daemon exited", zap.Error(err))
	}
}
