package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册健康检查HTTP路由
func RegisterHTTPRoutes(r gin.IRoutes, aggregator *Aggregator) {
	// 1. Readiness：链路丢失或监听关闭时不就绪
	// GET /health/ready
	r.GET("/health/ready", func(c *gin.Context) {
		if !aggregator.Ready(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"ready":  false,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"ready":  true,
		})
	})

	// 2. Liveness：转发循环是否仍在运行
	// GET /health/live
	r.GET("/health/live", func(c *gin.Context) {
		if !aggregator.Alive() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"alive": false,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"alive": true,
		})
	})

	// 3. 详细健康检查
	// GET /health
	r.GET("/health", func(c *gin.Context) {
		report := aggregator.Report(c.Request.Context())

		// Degraded（未同步）仍返回200，表示可以接收数据报
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	})
}
