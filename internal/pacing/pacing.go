// Package pacing 提供转发节奏控制所需的两种等待方式。
package pacing

import (
	"runtime"
	"time"
)

// Spin 忙等直到经过 d（基于单调时钟），不会提前返回。
// 用于毫秒级、对调度延迟敏感的稳定间隔。
func Spin(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
		runtime.Gosched()
	}
}

// Sleep 让出调度的等待，适用于可以接受少量延后的较长间隔
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}
