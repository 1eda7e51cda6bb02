package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/pad-bridge/internal/bridge"
	cfgpkg "github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, readyFn func() bool) *httpserver.Server {
	return httpserver.New(cfg, metricsPath, metricsHandler, readyFn)
}

// RegisterStatusRoutes 注册转发状态路由
// GET /status
func RegisterStatusRoutes(r gin.IRoutes, b *bridge.Bridge) {
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, b.Status())
	})
}
