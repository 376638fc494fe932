package app

import (
	"context"
	"net/http"

	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
	"github.com/taoyao-code/novastar-ctl/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, readyFn func(context.Context) bool) *httpserver.Server {
	return httpserver.New(cfg, metricsPath, metricsHandler, readyFn)
}
