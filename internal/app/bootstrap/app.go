package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/pad-bridge/internal/app"
	"github.com/taoyao-code/pad-bridge/internal/bridge"
	cfgpkg "github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/httpserver"
	"github.com/taoyao-code/pad-bridge/internal/metrics"
	"github.com/taoyao-code/pad-bridge/internal/syncengine"
)

// Run 统一启动流程：串口 → UDP → HTTP → 转发循环。
// ctx 取消后转发循环在两个数据报之间退出；链路致命错误以 error 返回。
func Run(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	instanceID := app.GenerateInstanceID()
	log = log.With(zap.String("instance", instanceID))
	log.Info("starting pad bridge",
		zap.String("device", cfg.Serial.Device),
		zap.String("driver", cfg.Serial.Driver),
		zap.String("udp", cfg.UDP.Addr))

	// ========== 阶段1: 初始化基础组件 ==========
	reg, appm := app.NewMetrics()
	ready := app.NewReady()

	// ========== 阶段2: 打开串口（失败直接返回）==========
	link, err := app.OpenSerial(cfg.Serial, log, appm)
	if err != nil {
		log.Error("open serial failed", zap.Error(err))
		return fmt.Errorf("open serial %s: %w", cfg.Serial.Device, err)
	}
	ready.SetSerialReady(true)
	log.Info("serial opened", zap.Int("baud", cfg.Serial.BaudRate))

	// ========== 阶段3: 绑定 UDP ==========
	udp, err := app.NewUDPServer(cfg.UDP, appm)
	if err != nil {
		_ = link.Close()
		log.Error("udp listen failed", zap.Error(err))
		return fmt.Errorf("listen udp %s: %w", cfg.UDP.Addr, err)
	}
	ready.SetUDPReady(true)
	log.Info("udp listening", zap.Stringer("addr", udp.LocalAddr()))

	// ========== 阶段4: 组装转发循环（接管串口与 UDP）==========
	b := bridge.New(cfg.Bridge, udp, link,
		bridge.WithLogger(log),
		bridge.WithMetrics(appm),
		bridge.WithInstanceID(instanceID),
		bridge.WithEngineOptions(
			syncengine.WithAckTimeout(cfg.Serial.ReadTimeout),
			syncengine.WithSyncSettle(cfg.Serial.SyncSettle),
			syncengine.WithStateChange(func(_, to syncengine.State) {
				ready.SetSynchronized(to == syncengine.StateSynchronized)
			}),
		),
	)

	// ========== 阶段5: HTTP 服务（非阻塞）==========
	var httpSrv *httpserver.Server
	if cfg.HTTP.Enable {
		var metricsHandler = metrics.Handler(reg)
		if !cfg.Metrics.Enable {
			metricsHandler = nil
		}
		httpSrv = app.NewHTTPServer(cfg.HTTP, cfg.Metrics.Path, metricsHandler, ready.Ready)

		healthAgg := app.NewHealthAggregator(link, b.Engine(), udp)
		healthAgg.SetLiveness(b.Running)
		httpSrv.Register(func(r *gin.Engine) {
			app.RegisterHealthRoutes(r, healthAgg)
			app.RegisterStatusRoutes(r, b)
		})

		go func() {
			if err := httpSrv.Start(); err != nil {
				log.Error("http server error", zap.Error(err))
			}
		}()
		log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
	}

	// ========== 阶段6: 转发循环（阻塞）==========
	runErr := b.Run(ctx)

	if httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
		log.Info("http server stopped")
	}

	if runErr != nil {
		return runErr
	}
	log.Info("shutdown complete")
	return nil
}
