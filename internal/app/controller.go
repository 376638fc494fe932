package app

import (
	"io"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
	"github.com/taoyao-code/novastar-ctl/internal/controller"
	"github.com/taoyao-code/novastar-ctl/internal/metrics"
	"github.com/taoyao-code/novastar-ctl/internal/protocol/novastar"
	"github.com/taoyao-code/novastar-ctl/internal/throttle"
)

// NewControllerClient 按配置组装控制器客户端
// appm 可为空（CLI 不暴露指标）；recorders 中的 nil 会被忽略
func NewControllerClient(
	cfg cfgpkg.ControllerConfig,
	w io.Writer,
	log *zap.Logger,
	appm *metrics.AppMetrics,
	recorders ...controller.Recorder,
) (*controller.Client, error) {
	enc, err := novastar.ParseLengthEncoding(cfg.LengthEncoding)
	if err != nil {
		return nil, err
	}

	opts := []controller.Option{
		controller.WithLogger(log),
		controller.WithLengthEncoding(enc),
	}
	if appm != nil {
		opts = append(opts, controller.WithMetrics(appm))
	}
	if cfg.IncrementSequence {
		opts = append(opts, controller.WithIncrementingSequence())
	}
	if cfg.RateLimit.PerSecond > 0 {
		opts = append(opts, controller.WithThrottle(throttle.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)))
		log.Info("frame throttle enabled",
			zap.Int("per_second", cfg.RateLimit.PerSecond),
			zap.Int("burst", cfg.RateLimit.Burst))
	}
	for _, r := range recorders {
		opts = append(opts, controller.WithRecorder(r))
	}

	return controller.New(cfg.OutputPort, w, opts...)
}
