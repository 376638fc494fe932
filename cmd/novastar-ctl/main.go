// Command novastar-ctl 通过串口调节 NovaStar 控制器亮度、切换测试画面
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/novastar-ctl/internal/app"
	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
	"github.com/taoyao-code/novastar-ctl/internal/logging"
	"github.com/taoyao-code/novastar-ctl/internal/protocol/novastar"
	"github.com/taoyao-code/novastar-ctl/internal/serialport"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// openTransport 打开串口（测试中替换）
var openTransport = func(cfg cfgpkg.SerialConfig) (io.WriteCloser, error) {
	return serialport.Open(cfg)
}

// flagBindings 配置键 → 命令行参数
var flagBindings = map[string]string{
	"serial.device":         "port",
	"controller.outputPort": "output",
	"logging.level":         "log-level",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("novastar-ctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("port", "/dev/ttyUSB0", "serial device")
	fs.Int("output", 1, "controller output port (1-256)")
	brightness := fs.Int("brightness", 0, "global brightness 0-255")
	testName := fs.String("test", "", "test pattern: "+patternNames())
	configPath := fs.String("config", "", "config file (yaml)")
	dryRun := fs.Bool("dry-run", false, "print frames as YAML instead of writing to the serial port")
	fs.String("log-level", "info", "log level")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: novastar-ctl [--port DEV] [--output N] [--brightness 0-255] [--test PATTERN]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	setBrightness := fs.Changed("brightness")
	if !setBrightness && *testName == "" {
		fmt.Fprintln(stderr, "novastar-ctl: nothing to do, give --brightness and/or --test")
		fs.Usage()
		return exitUsage
	}

	cfg, err := cfgpkg.LoadWithFlags(*configPath, fs, flagBindings)
	if err != nil {
		fmt.Fprintf(stderr, "novastar-ctl: %v\n", err)
		return exitError
	}

	logger, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "novastar-ctl: init logger: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	// 参数先于打开串口校验
	var pattern novastar.Pattern
	if *testName != "" {
		if pattern, err = novastar.ParsePattern(*testName); err != nil {
			logger.Error("invalid test pattern", zap.Error(err))
			return exitError
		}
	}
	if err := novastar.CheckRange("port", cfg.Controller.OutputPort, 1, novastar.MaxPort); err != nil {
		logger.Error("invalid output port", zap.Error(err))
		return exitError
	}
	if setBrightness {
		if err := novastar.CheckRange("brightness", *brightness, 0, 255); err != nil {
			logger.Error("invalid brightness", zap.Error(err))
			return exitError
		}
	}

	var w io.Writer
	if *dryRun {
		w = &frameDumper{w: stdout}
	} else {
		port, err := openTransport(cfg.Serial)
		if err != nil {
			logger.Error("open serial port failed", zap.Error(err))
			return exitError
		}
		defer func() { _ = port.Close() }()
		w = port
	}

	client, err := app.NewControllerClient(cfg.Controller, w, logger, nil)
	if err != nil {
		logger.Error("init controller client failed", zap.Error(err))
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 亮度先于测试画面下发；动作行在写出前记录，写失败时仍能看到尝试的动作
	if setBrightness {
		logger.Info(fmt.Sprintf("Set brightness to %d", *brightness), zap.Int("output", client.Port()))
		if err := client.SetBrightness(ctx, *brightness); err != nil {
			logger.Error("set brightness failed", zap.Int("level", *brightness), zap.Error(err))
			return exitError
		}
	}

	if *testName != "" {
		if pattern == novastar.PatternNormal {
			logger.Info("Hide test pattern", zap.Int("output", client.Port()))
		} else {
			logger.Info("Show test pattern "+pattern.String(), zap.Int("output", client.Port()))
		}
		if err := client.ShowPattern(ctx, pattern); err != nil {
			logger.Error("set test pattern failed", zap.Stringer("pattern", pattern), zap.Error(err))
			return exitError
		}
	}

	return exitOK
}

func patternNames() string {
	var s string
	for i, p := range novastar.Patterns() {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s
}
