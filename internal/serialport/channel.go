package serialport

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/pad-bridge/internal/config"
)

const (
	defaultBufferSize  = 4096
	defaultReadTimeout = time.Second
	waitPollInterval   = time.Millisecond
	closeWait          = time.Second
)

// Channel 串口字节通道
//
// 一个接收协程持续从 Port 读取并写入有界缓冲（满时丢弃最旧字节），
// 读取方法全部带超时，任何调用都不会无限期阻塞。
// 链路致命错误只记录一次，之后所有调用返回包装了 ErrLinkLost 的错误。
type Channel struct {
	port        Port
	logger      *zap.Logger
	readTimeout time.Duration
	onRecv      func(n int)

	rx       chan byte
	lost     chan struct{}
	done     chan struct{}
	pumpDone chan struct{}

	mu        sync.Mutex
	err       error
	lostOnce  sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Uint64
}

// Option Channel 可选项
type Option func(*Channel)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReadTimeout 设置 RecvLatest 的默认等待时长
func WithReadTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithBufferSize 设置接收缓冲容量
func WithBufferSize(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.rx = make(chan byte, n)
		}
	}
}

// WithRecvCallback 每次从端口读到数据时回调（用于指标统计）
func WithRecvCallback(fn func(n int)) Option {
	return func(c *Channel) { c.onRecv = fn }
}

// Open 按配置打开串口并启动接收协程
func Open(cfg config.SerialConfig, opts ...Option) (*Channel, error) {
	port, err := OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{WithReadTimeout(cfg.ReadTimeout), WithBufferSize(cfg.BufferSize)}
	return NewChannel(port, append(base, opts...)...), nil
}

// NewChannel 包装已打开的 Port，Channel 接管其生命周期
func NewChannel(port Port, opts ...Option) *Channel {
	c := &Channel{
		port:        port,
		logger:      zap.NewNop(),
		readTimeout: defaultReadTimeout,
		rx:          make(chan byte, defaultBufferSize),
		lost:        make(chan struct{}),
		done:        make(chan struct{}),
		pumpDone:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.pump()
	return c
}

func (c *Channel) pump() {
	defer close(c.pumpDone)
	buf := make([]byte, 256)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := c.port.Read(buf)
		if n > 0 {
			c.push(buf[:n])
			if c.onRecv != nil {
				c.onRecv(n)
			}
		}
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.fail(&LinkError{Op: "read", Err: err})
			return
		}
	}
}

func (c *Channel) push(p []byte) {
	for _, b := range p {
		select {
		case c.rx <- b:
			continue
		default:
		}
		// 缓冲已满：丢弃最旧字节
		select {
		case <-c.rx:
			c.dropped.Add(1)
		default:
		}
		select {
		case c.rx <- b:
		default:
		}
	}
}

func (c *Channel) fail(err error) {
	c.lostOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.lost)
		c.logger.Error("serial link lost", zap.Error(err))
	})
}

// Err 返回已记录的链路致命错误；链路正常时为 nil
func (c *Channel) Err() error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// RecvByte 在 timeout 内读取一个字节；超时返回 ok=false
func (c *Channel) RecvByte(timeout time.Duration) (byte, bool, error) {
	select {
	case b := <-c.rx:
		return b, true, nil
	default:
	}
	if err := c.Err(); err != nil {
		return 0, false, err
	}
	if timeout <= 0 {
		return 0, false, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b := <-c.rx:
		return b, true, nil
	case <-c.lost:
		return 0, false, c.Err()
	case <-c.done:
		return 0, false, ErrClosed
	case <-timer.C:
		return 0, false, nil
	}
}

// RecvLatest 丢弃缓冲中的全部字节并返回最后一个；
// 缓冲为空时最多等待 readTimeout，仍无数据返回 0
func (c *Channel) RecvLatest() (byte, error) {
	var (
		last byte
		got  bool
	)
	for drained := false; !drained; {
		select {
		case b := <-c.rx:
			last, got = b, true
		default:
			drained = true
		}
	}
	if got {
		return last, nil
	}
	b, _, err := c.RecvByte(c.readTimeout)
	return b, err
}

// WaitForData 先等待 minWait，再轮询直到缓冲中有数据或自调用起经过 maxWait
func (c *Channel) WaitForData(minWait, maxWait time.Duration) (bool, error) {
	start := time.Now()
	if minWait > 0 {
		time.Sleep(minWait)
	}
	for {
		if len(c.rx) > 0 {
			return true, nil
		}
		if err := c.Err(); err != nil {
			return false, err
		}
		if time.Since(start) >= maxWait {
			return false, nil
		}
		time.Sleep(waitPollInterval)
	}
}

// Write 写入全部字节；端口写失败视为链路致命错误
func (c *Channel) Write(p []byte) error {
	if err := c.Err(); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := c.port.Write(p)
		if err != nil {
			lerr := &LinkError{Op: "write", Err: err}
			c.fail(lerr)
			return lerr
		}
		p = p[n:]
	}
	return nil
}

// Available 缓冲中待读字节数
func (c *Channel) Available() int { return len(c.rx) }

// Dropped 因缓冲已满被丢弃的字节数
func (c *Channel) Dropped() uint64 { return c.dropped.Load() }

// Flush 丢弃缓冲中的全部输入
func (c *Channel) Flush() {
	for {
		select {
		case <-c.rx:
		default:
			return
		}
	}
}

// Close 关闭端口并等待接收协程退出（有上限）
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.port.Close()
		select {
		case <-c.pumpDone:
		case <-time.After(closeWait):
			c.logger.Warn("serial receive loop did not exit in time")
		}
	})
	return err
}
