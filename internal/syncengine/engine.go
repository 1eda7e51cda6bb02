// Package syncengine 实现主机与手柄仿真单片机之间的同步协议：
// 带 CRC 的帧发送与应答确认、冲刷加三步握手的重新同步，以及显式的同步状态机。
package syncengine

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/pad-bridge/internal/protocol/pad"
)

// Transport 同步引擎依赖的字节传输（serialport.Channel 实现该接口）。
// 返回的 error 一律视为链路致命错误。
type Transport interface {
	Write(p []byte) error
	RecvByte(timeout time.Duration) (byte, bool, error)
	RecvLatest() (byte, error)
	WaitForData(minWait, maxWait time.Duration) (bool, error)
	Flush()
}

// Recorder 指标记录钩子
type Recorder interface {
	ObserveFrame(kind, result string, latency time.Duration)
	ObserveResync(ok bool)
	SetSyncState(s State)
}

// 帧发送结果
const (
	ResultAck        = "ack"
	ResultNack       = "nack"
	ResultTimeout    = "timeout"
	ResultUnexpected = "unexpected"
)

// 帧类型
const (
	KindCommand = "command"
	KindNeutral = "neutral"
)

const (
	DefaultAckTimeout = time.Second
	DefaultSyncSettle = 100 * time.Millisecond
)

// Stats 同步引擎统计
type Stats struct {
	FramesSent      uint64    `json:"frames_sent"`
	Acks            uint64    `json:"acks"`
	Nacks           uint64    `json:"nacks"`
	Timeouts        uint64    `json:"timeouts"`
	UnexpectedReply uint64    `json:"unexpected_replies"`
	ResyncAttempts  uint64    `json:"resync_attempts"`
	ResyncSuccesses uint64    `json:"resync_successes"`
	LastReply       string    `json:"last_reply,omitempty"`
	LastStateChange time.Time `json:"last_state_change"`
}

// Engine 同步引擎
//
// Engine 不支持并发调用，由转发循环独占；State/Stats 可在其他协程读取。
type Engine struct {
	t          Transport
	logger     *zap.Logger
	recorder   Recorder
	ackTimeout time.Duration
	settle     time.Duration
	onChange   func(from, to State)

	state atomic.Int32

	mu    sync.Mutex
	stats Stats
}

// Option Engine 可选项
type Option func(*Engine)

// WithAckTimeout 等待单字节应答的上限
func WithAckTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.ackTimeout = d
		}
	}
}

// WithSyncSettle 冲刷后等待设备回应的最短时间
func WithSyncSettle(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.settle = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithStateChange 状态变化回调（同步调用，回调中不得再调用 Engine 的发送方法）
func WithStateChange(fn func(from, to State)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// New 创建处于未同步状态的引擎
func New(t Transport, opts ...Option) *Engine {
	e := &Engine{
		t:          t,
		logger:     zap.NewNop(),
		ackTimeout: DefaultAckTimeout,
		settle:     DefaultSyncSettle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state.Store(int32(StateOutOfSync))
	e.stats.LastStateChange = time.Now()
	if e.recorder != nil {
		e.recorder.SetSyncState(StateOutOfSync)
	}
	return e
}

// State 当前同步状态
func (e *Engine) State() State { return State(e.state.Load()) }

// Synchronized 是否处于已同步状态
func (e *Engine) Synchronized() bool { return e.State() == StateSynchronized }

// Stats 统计快照
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// transitionTo 状态转换
func (e *Engine) transitionTo(to State) {
	from := e.State()
	if from == to {
		return
	}
	mustTransition(from, to)
	e.state.Store(int32(to))

	e.mu.Lock()
	e.stats.LastStateChange = time.Now()
	e.mu.Unlock()

	e.logger.Debug("sync state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if e.recorder != nil {
		e.recorder.SetSyncState(to)
	}
	if e.onChange != nil {
		e.onChange(from, to)
	}
}

func (e *Engine) count(fn func(s *Stats)) {
	e.mu.Lock()
	fn(&e.stats)
	e.mu.Unlock()
}

// SendFrame 发送一帧（命令 + CRC）并读取一个应答字节。
// ok 表示收到 0x90；超时、NACK 或其他字节均返回 ok=false 并将状态置为未同步，不自动重发。
// err 仅在链路致命错误时非 nil。
func (e *Engine) SendFrame(cmd pad.Command) (bool, error) {
	kind := KindCommand
	if cmd == pad.NeutralCommand {
		kind = KindNeutral
	}

	// 丢弃此前残留的应答，保证读到的是本帧的回复
	e.t.Flush()

	frame := pad.WithChecksum(cmd)
	start := time.Now()
	if err := e.t.Write(frame[:]); err != nil {
		e.transitionTo(StateOutOfSync)
		return false, err
	}
	e.count(func(s *Stats) { s.FramesSent++ })

	b, got, err := e.t.RecvByte(e.ackTimeout)
	if err != nil {
		e.transitionTo(StateOutOfSync)
		return false, err
	}
	latency := time.Since(start)

	if !got {
		e.count(func(s *Stats) { s.Timeouts++ })
		e.observe(kind, ResultTimeout, latency)
		e.logger.Warn("frame not acknowledged",
			zap.String("kind", kind),
			zap.Stringer("frame", cmd),
			zap.Duration("timeout", e.ackTimeout))
		e.transitionTo(StateOutOfSync)
		return false, nil
	}

	reply := pad.Response(b)
	e.count(func(s *Stats) { s.LastReply = reply.String() })

	if reply == pad.RespUSBAck {
		e.count(func(s *Stats) { s.Acks++ })
		e.observe(kind, ResultAck, latency)
		e.transitionTo(StateSynchronized)
		return true, nil
	}

	result := ResultUnexpected
	if reply == pad.RespUpdateNack {
		result = ResultNack
		e.count(func(s *Stats) { s.Nacks++ })
	} else {
		e.count(func(s *Stats) { s.UnexpectedReply++ })
	}
	e.observe(kind, result, latency)
	e.logger.Warn("frame rejected",
		zap.String("kind", kind),
		zap.Stringer("frame", cmd),
		zap.Stringer("reply", reply))
	e.transitionTo(StateOutOfSync)
	return false, nil
}

// SendNeutral 发送中性帧（释放全部输入）
func (e *Engine) SendNeutral() (bool, error) {
	return e.SendFrame(pad.NeutralCommand)
}

// ForceResync 冲刷并执行三步握手：
// 写入 9 个 0xFF → 仅保留最新应答且必须为 0xFF → 写 0x33 期望 0xCC → 写 0xCC 期望 0x33。
// 任一步不匹配即整体失败并回到未同步状态。
func (e *Engine) ForceResync() (ok bool, err error) {
	e.count(func(s *Stats) { s.ResyncAttempts++ })
	defer func() {
		if err != nil {
			e.transitionTo(StateOutOfSync)
			return
		}
		if ok {
			e.count(func(s *Stats) { s.ResyncSuccesses++ })
		} else {
			e.transitionTo(StateOutOfSync)
		}
		if e.recorder != nil {
			e.recorder.ObserveResync(ok)
		}
	}()

	e.transitionTo(StateAwaitingSyncStart)
	flush := bytes.Repeat([]byte{pad.CmdSyncStart}, pad.FrameSize)
	if err := e.t.Write(flush); err != nil {
		return false, err
	}
	if _, err := e.t.WaitForData(e.settle, e.ackTimeout); err != nil {
		return false, err
	}
	latest, err := e.t.RecvLatest()
	if err != nil {
		return false, err
	}
	if pad.Response(latest) != pad.RespSyncStart {
		e.handshakeFailed("sync_start", pad.RespSyncStart, latest, true)
		return false, nil
	}

	e.transitionTo(StateAwaitingSync1Ack)
	if ok, err := e.handshakeStep("sync_1", pad.CmdSync1, pad.RespSync1); !ok || err != nil {
		return false, err
	}

	e.transitionTo(StateAwaitingSync2Ack)
	if ok, err := e.handshakeStep("sync_2", pad.CmdSync2, pad.RespSyncOK); !ok || err != nil {
		return false, err
	}

	e.transitionTo(StateSynchronized)
	e.logger.Info("serial link synchronized")
	return true, nil
}

func (e *Engine) handshakeStep(step string, cmd byte, want pad.Response) (bool, error) {
	if err := e.t.Write([]byte{cmd}); err != nil {
		return false, err
	}
	b, got, err := e.t.RecvByte(e.ackTimeout)
	if err != nil {
		return false, err
	}
	if !got || pad.Response(b) != want {
		e.handshakeFailed(step, want, b, got)
		return false, nil
	}
	return true, nil
}

func (e *Engine) handshakeFailed(step string, want pad.Response, got byte, received bool) {
	if !received {
		e.logger.Warn("sync handshake timed out", zap.String("step", step), zap.Stringer("want", want))
		return
	}
	e.logger.Warn("sync handshake mismatch",
		zap.String("step", step),
		zap.Stringer("want", want),
		zap.Stringer("reply", pad.Response(got)))
}

// EnsureSynchronized 先发送中性帧；失败则强制重新同步，成功后再发送一次中性帧。
// 不做更多重试，返回值是唯一的成功信号。
func (e *Engine) EnsureSynchronized() (bool, error) {
	ok, err := e.SendNeutral()
	if err != nil || ok {
		return ok, err
	}
	ok, err = e.ForceResync()
	if err != nil || !ok {
		return false, err
	}
	return e.SendNeutral()
}

func (e *Engine) observe(kind, result string, latency time.Duration) {
	if e.recorder != nil {
		e.recorder.ObserveFrame(kind, result, latency)
	}
}
