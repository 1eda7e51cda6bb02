package health

import (
	"context"
	"time"
)

// Status 组件健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"  // 链路未同步，转发前会重新同步
	StatusUnhealthy Status = "unhealthy" // 串口丢失或监听关闭，无法转发
)

// Serving 降级仍可接收数据报
func (s Status) Serving() bool { return s != StatusUnhealthy }

// Details 检查附带的诊断字段（同步状态、监听地址等）
type Details map[string]any

// CheckResult 单个组件的检查结果
type CheckResult struct {
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Details Details       `json:"details,omitempty"`
	Latency time.Duration `json:"latency"`
}

func newResult(start time.Time, status Status, message string, details Details) CheckResult {
	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}

// Checker 组件检查器（serial、udp）
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}
