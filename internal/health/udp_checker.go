package health

import (
	"context"
	"net"
	"time"
)

// UDPProbe 入站监听探针（udpserver.Server 实现）
type UDPProbe interface {
	Bound() bool
	LocalAddr() *net.UDPAddr
}

// UDPChecker UDP 监听健康检查器
type UDPChecker struct {
	server UDPProbe
}

// NewUDPChecker 创建 UDP 健康检查器
func NewUDPChecker(server UDPProbe) *UDPChecker {
	return &UDPChecker{server: server}
}

func (c *UDPChecker) Name() string { return "udp" }

func (c *UDPChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if !c.server.Bound() {
		return newResult(start, StatusUnhealthy, "listener closed", nil)
	}
	return newResult(start, StatusHealthy, "ok", Details{"addr": c.server.LocalAddr().String()})
}
