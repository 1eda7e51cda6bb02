package health

import (
	"context"
	"sync"
	"time"
)

// defaultCheckTimeout 单个检查的超时
const defaultCheckTimeout = 2 * time.Second

// Aggregator 健康检查聚合器
type Aggregator struct {
	checkers []Checker
	alive    func() bool
	mu       sync.RWMutex
}

// NewAggregator 创建聚合器
func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{
		checkers: checkers,
	}
}

// AddChecker 添加检查器
func (a *Aggregator) AddChecker(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// SetLiveness 设置存活判定（例如转发循环是否仍在运行）
func (a *Aggregator) SetLiveness(fn func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alive = fn
}

// CheckAll 执行所有健康检查（并发，单个检查受 defaultCheckTimeout 约束）
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultCheckTimeout)
	defer cancel()

	results := make(map[string]CheckResult)
	resultsMu := sync.Mutex{}
	wg := sync.WaitGroup{}

	for _, checker := range a.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			result := c.Check(ctx)

			resultsMu.Lock()
			results[c.Name()] = result
			resultsMu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// OverallStatus 计算总体健康状态
func (a *Aggregator) OverallStatus(ctx context.Context) Status {
	return overall(a.CheckAll(ctx))
}

// overall 任一 Unhealthy 则 Unhealthy，否则任一 Degraded 则 Degraded
func overall(results map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Ready 判断系统是否可以接收数据报
// Degraded（链路未同步）仍视为就绪：转发循环会在发送前重新同步
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.OverallStatus(ctx).Serving()
}

// Alive 判断进程是否存活；未设置存活判定时恒为 true
func (a *Aggregator) Alive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.alive == nil {
		return true
	}
	return a.alive()
}

// HealthReport 生成健康报告
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Report 执行全部检查并生成报告
func (a *Aggregator) Report(ctx context.Context) HealthReport {
	checks := a.CheckAll(ctx)
	return HealthReport{
		Status:    overall(checks),
		Timestamp: time.Now(),
		Checks:    checks,
	}
}
