package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/metrics"
	"github.com/taoyao-code/pad-bridge/internal/serialport"
)

// OpenSerial 打开串口链路，接收字节数计入指标
func OpenSerial(cfg cfgpkg.SerialConfig, log *zap.Logger, appm *metrics.AppMetrics) (*serialport.Channel, error) {
	opts := []serialport.Option{serialport.WithLogger(log)}
	if appm != nil {
		opts = append(opts, serialport.WithRecvCallback(func(n int) { appm.SerialBytesReceived.Add(float64(n)) }))
	}
	return serialport.Open(cfg, opts...)
}
