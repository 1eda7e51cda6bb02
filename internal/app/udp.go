package app

import (
	cfgpkg "github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/metrics"
	"github.com/taoyao-code/pad-bridge/internal/udpserver"
)

// NewUDPServer 根据配置绑定入站 UDP 监听
func NewUDPServer(cfg cfgpkg.UDPConfig, appm *metrics.AppMetrics) (*udpserver.Server, error) {
	srv, err := udpserver.Listen(cfg)
	if err != nil {
		return nil, err
	}
	if appm != nil {
		srv.SetMetricsCallbacks(func(n int) { appm.UDPBytesReceived.Add(float64(n)) })
	}
	return srv, nil
}
