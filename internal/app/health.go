package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/pad-bridge/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器（串口链路 + UDP 监听）
func NewHealthAggregator(link health.LinkProbe, engine health.SyncProbe, udp health.UDPProbe) *health.Aggregator {
	return health.NewAggregator(
		health.NewSerialChecker(link, engine),
		health.NewUDPChecker(udp),
	)
}

// NewReady 创建就绪状态
func NewReady() *health.Readiness { return health.New() }

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
