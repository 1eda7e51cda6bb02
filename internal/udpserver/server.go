// Package udpserver 持有入站 UDP 套接字，逐个交付控制状态数据报。
package udpserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	cfgpkg "github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/protocol/pad"
)

// ErrClosed 监听已关闭
var ErrClosed = errors.New("udp listener closed")

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultReadBuffer   = 1024
	// MinReadBuffer 读缓冲区下限：超长数据报截断后仍长于一帧，校验时必然被拒绝
	MinReadBuffer = pad.FrameSize + 1
)

// Datagram 一个入站数据报
type Datagram struct {
	Payload []byte
	From    *net.UDPAddr
	At      time.Time
}

// Server UDP 监听（单生产者、逐个读取）
type Server struct {
	cfg     cfgpkg.UDPConfig
	conn    *net.UDPConn
	buf     []byte
	limiter *RateLimiter
	closed  atomic.Bool
	// 可选指标回调
	onRecvBytes func(n int)
}

// Listen 绑定本地地址
func Listen(cfg cfgpkg.UDPConfig) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	size := cfg.ReadBuffer
	if size <= 0 {
		size = defaultReadBuffer
	}
	if size < MinReadBuffer {
		size = MinReadBuffer
	}
	s := &Server{cfg: cfg, conn: conn, buf: make([]byte, size)}
	if cfg.RatePerSec > 0 {
		s.limiter = NewRateLimiter(cfg.RatePerSec, cfg.Burst)
	}
	return s, nil
}

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onRecvBytes func(int)) { s.onRecvBytes = onRecvBytes }

// LocalAddr 实际绑定的地址（端口为 0 时由系统分配）
func (s *Server) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Bound 监听是否仍然有效
func (s *Server) Bound() bool { return !s.closed.Load() }

// Allow 按令牌桶判断是否放行；未配置限速时总是放行
func (s *Server) Allow() bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

// LimiterStats 限流统计；未配置限速时 ok 为 false
func (s *Server) LimiterStats() (stats RateLimiterStats, ok bool) {
	if s.limiter == nil {
		return RateLimiterStats{}, false
	}
	return s.limiter.Stats(), true
}

// ReadDatagram 阻塞读取下一个数据报。
// 以 pollInterval 为粒度检查 ctx，返回的 Payload 为独立副本。
func (s *Server) ReadDatagram(ctx context.Context) (Datagram, error) {
	poll := s.cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	for {
		if err := ctx.Err(); err != nil {
			return Datagram{}, err
		}
		if s.closed.Load() {
			return Datagram{}, ErrClosed
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(poll))
		n, from, err := s.conn.ReadFromUDP(s.buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) || s.closed.Load() {
				return Datagram{}, ErrClosed
			}
			return Datagram{}, err
		}
		if s.onRecvBytes != nil {
			s.onRecvBytes(n)
		}
		payload := make([]byte, n)
		copy(payload, s.buf[:n])
		return Datagram{Payload: payload, From: from, At: time.Now()}, nil
	}
}

// Close 关闭监听，可重复调用
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}
