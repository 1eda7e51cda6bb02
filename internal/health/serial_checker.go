package health

import (
	"context"
	"time"

	"github.com/taoyao-code/pad-bridge/internal/syncengine"
)

// LinkProbe 串口链路错误探针（serialport.Channel 实现）
type LinkProbe interface {
	Err() error
}

// SyncProbe 同步状态探针（syncengine.Engine 实现）
type SyncProbe interface {
	State() syncengine.State
	Stats() syncengine.Stats
}

// SerialChecker 串口链路健康检查器
type SerialChecker struct {
	link   LinkProbe
	engine SyncProbe
}

// NewSerialChecker 创建串口健康检查器
func NewSerialChecker(link LinkProbe, engine SyncProbe) *SerialChecker {
	return &SerialChecker{link: link, engine: engine}
}

func (c *SerialChecker) Name() string { return "serial" }

// Check 链路错误 → Unhealthy；未同步 → Degraded
func (c *SerialChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	state := c.engine.State()
	stats := c.engine.Stats()
	details := Details{
		"sync_state":       state.String(),
		"frames_sent":      stats.FramesSent,
		"resync_attempts":  stats.ResyncAttempts,
		"resync_successes": stats.ResyncSuccesses,
	}

	if err := c.link.Err(); err != nil {
		return newResult(start, StatusUnhealthy, err.Error(), details)
	}

	status, message := StatusHealthy, "ok"
	if state != syncengine.StateSynchronized {
		status, message = StatusDegraded, "link not synchronized"
	}
	return newResult(start, status, message, details)
}
