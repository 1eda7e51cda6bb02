// Package bridge 实现 UDP → 串口的转发循环：
// 校验入站数据报，发送命令帧并等待确认，保持一段时间后发送中性帧释放输入。
// 数据报严格逐个处理；同步失败时进入可观测的降级状态，并在下一次发送前重新同步。
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/metrics"
	"github.com/taoyao-code/pad-bridge/internal/pacing"
	"github.com/taoyao-code/pad-bridge/internal/protocol/pad"
	"github.com/taoyao-code/pad-bridge/internal/syncengine"
	"github.com/taoyao-code/pad-bridge/internal/udpserver"
)

// Listener 入站数据报来源（udpserver.Server 实现）
type Listener interface {
	ReadDatagram(ctx context.Context) (udpserver.Datagram, error)
	Allow() bool
	LimiterStats() (udpserver.RateLimiterStats, bool)
	Close() error
}

// Link 串口链路（serialport.Channel 实现）
type Link interface {
	syncengine.Transport
	Err() error
	Dropped() uint64
	Close() error
}

// readErrorBackoff 非致命 UDP 读错误后的重试间隔
const readErrorBackoff = 50 * time.Millisecond

// Bridge 转发循环，独占 Listener 与 Link，Run 退出时关闭二者
type Bridge struct {
	cfg      cfgpkg.BridgeConfig
	listener Listener
	link     Link
	engine   *syncengine.Engine
	logger   *zap.Logger
	metrics  *metrics.AppMetrics
	instance string

	engineOpts []syncengine.Option

	running   atomic.Bool
	closeOnce sync.Once
	counters  counters

	mu        sync.RWMutex
	startedAt time.Time
	lastErr   string
	lastRecv  time.Time
}

type counters struct {
	received        atomic.Uint64
	forwarded       atomic.Uint64
	malformed       atomic.Uint64
	rateLimited     atomic.Uint64
	droppedUnsynced atomic.Uint64
	sendFailed      atomic.Uint64
	releaseFailed   atomic.Uint64
	readErrors      atomic.Uint64
}

// Option Bridge 可选项
type Option func(*Bridge)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics 记录数据报结果，并作为同步引擎的 Recorder
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithInstanceID 实例标识，出现在日志与状态中
func WithInstanceID(id string) Option {
	return func(b *Bridge) { b.instance = id }
}

// WithEngineOptions 透传同步引擎选项（应答超时、同步等待等）
func WithEngineOptions(opts ...syncengine.Option) Option {
	return func(b *Bridge) { b.engineOpts = append(b.engineOpts, opts...) }
}

// New 创建转发循环，接管 listener 与 link 的所有权
func New(cfg cfgpkg.BridgeConfig, listener Listener, link Link, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:      cfg,
		listener: listener,
		link:     link,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.instance != "" {
		b.logger = b.logger.With(zap.String("instance", b.instance))
	}

	engineOpts := []syncengine.Option{syncengine.WithLogger(b.logger)}
	if b.metrics != nil {
		engineOpts = append(engineOpts, syncengine.WithRecorder(b.metrics))
	}
	engineOpts = append(engineOpts, b.engineOpts...)
	b.engine = syncengine.New(link, engineOpts...)
	return b
}

// Engine 同步引擎（只读用途：状态与统计）
func (b *Bridge) Engine() *syncengine.Engine { return b.engine }

// Running 是否处于转发循环中
func (b *Bridge) Running() bool { return b.running.Load() }

// Degraded 链路未处于已同步状态
func (b *Bridge) Degraded() bool { return !b.engine.Synchronized() }

// Run 启动同步并进入转发循环，直到 ctx 取消或链路致命错误。
// ctx 只在两个数据报之间检查，进行中的发送/保持/释放周期会完整执行。
func (b *Bridge) Run(ctx context.Context) error {
	defer b.close()

	b.mu.Lock()
	b.startedAt = time.Now()
	b.mu.Unlock()
	b.running.Store(true)
	defer b.running.Store(false)

	ok, err := b.engine.EnsureSynchronized()
	if err != nil {
		return b.fatal(err)
	}
	if !ok {
		b.logger.Warn("initial sync failed, bridge starts degraded")
	}
	b.refreshDegraded()

	pacing.Sleep(b.cfg.StartupDelay)
	if ok, err := b.engine.SendNeutral(); err != nil {
		return b.fatal(err)
	} else if !ok {
		b.logger.Warn("startup neutral frame not acknowledged")
	}
	b.refreshDegraded()
	b.logger.Info("bridge running", zap.Stringer("state", b.engine.State()))

	for {
		if ctx.Err() != nil {
			b.logger.Info("bridge stopped")
			return nil
		}
		dg, err := b.listener.ReadDatagram(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				b.logger.Info("bridge stopped")
				return nil
			}
			if errors.Is(err, udpserver.ErrClosed) {
				return b.fatal(err)
			}
			b.counters.readErrors.Add(1)
			b.logger.Warn("udp read failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(readErrorBackoff):
			}
			continue
		}
		if err := b.handle(dg); err != nil {
			return b.fatal(err)
		}
	}
}

// handle 处理一个数据报；仅在链路致命错误时返回 error
func (b *Bridge) handle(dg udpserver.Datagram) error {
	b.counters.received.Add(1)
	b.mu.Lock()
	b.lastRecv = dg.At
	b.mu.Unlock()

	log := b.logger.With(zap.Int("len", len(dg.Payload)), zap.Stringer("addr", dg.From))

	if !b.listener.Allow() {
		b.counters.rateLimited.Add(1)
		b.observe(metrics.DatagramRateLimited)
		log.Debug("datagram rate limited")
		return nil
	}

	cmd, err := pad.ParseDatagram(dg.Payload)
	if err != nil {
		b.counters.malformed.Add(1)
		b.observe(metrics.DatagramMalformed)
		log.Warn("malformed datagram dropped", zap.Error(err))
		return nil
	}

	// 降级状态：先重新同步再发送
	if !b.engine.Synchronized() {
		ok, err := b.engine.EnsureSynchronized()
		b.refreshDegraded()
		if err != nil {
			return err
		}
		if !ok {
			b.counters.droppedUnsynced.Add(1)
			b.observe(metrics.DatagramUnsynced)
			log.Warn("link not synchronized, datagram dropped", zap.Stringer("frame", cmd))
			return nil
		}
	}

	ok, err := b.engine.SendFrame(cmd)
	if err != nil {
		return err
	}
	if !ok {
		b.counters.sendFailed.Add(1)
		b.observe(metrics.DatagramFailed)
		log.Warn("command frame failed, resynchronizing", zap.Stringer("frame", cmd))
		// 立即重新同步（同时发送中性帧释放可能已生效的输入），跳过保持
		_, err := b.recover(log)
		return err
	}

	pacing.Sleep(b.cfg.HoldInterval)

	ok, err = b.engine.SendNeutral()
	if err != nil {
		return err
	}
	if !ok {
		log.Warn("neutral frame failed, resynchronizing")
		released, err := b.recover(log)
		if err != nil {
			return err
		}
		if !released {
			pacing.Spin(b.cfg.SettleInterval)
			b.counters.releaseFailed.Add(1)
			b.observe(metrics.DatagramReleaseFailed)
			log.Error("input may still be held on the device", zap.Stringer("frame", cmd))
			return nil
		}
	}

	pacing.Spin(b.cfg.SettleInterval)
	b.counters.forwarded.Add(1)
	b.observe(metrics.DatagramForwarded)
	b.refreshDegraded()
	return nil
}

// recover 立即重新同步；成功时设备已收到中性帧
func (b *Bridge) recover(log *zap.Logger) (bool, error) {
	ok, err := b.engine.EnsureSynchronized()
	b.refreshDegraded()
	if err != nil {
		return false, err
	}
	if !ok {
		log.Warn("resync failed, bridge degraded")
	}
	return ok, nil
}

func (b *Bridge) observe(result string) {
	if b.metrics != nil {
		b.metrics.ObserveDatagram(result)
	}
}

func (b *Bridge) refreshDegraded() {
	if b.metrics != nil {
		b.metrics.SetDegraded(b.Degraded())
	}
}

func (b *Bridge) fatal(err error) error {
	b.mu.Lock()
	b.lastErr = err.Error()
	b.mu.Unlock()
	b.logger.Error("bridge terminated", zap.Error(err))
	return fmt.Errorf("bridge: %w", err)
}

// close 关闭 listener 与 link，可重复调用
func (b *Bridge) close() {
	b.closeOnce.Do(func() {
		if err := b.listener.Close(); err != nil {
			b.logger.Warn("close udp listener", zap.Error(err))
		}
		if err := b.link.Close(); err != nil {
			b.logger.Warn("close serial link", zap.Error(err))
		}
	})
}
