// Package devicesim 模拟串口另一端的手柄仿真单片机固件。
//
// Device 实现 io.ReadWriteCloser，可直接作为 serialport 的 Port 使用：
// 主机写入的字节逐个驱动固件状态机，应答字节进入接收队列供 Read 读取。
// 支持错误注入（替换应答、丢弃应答、模拟断开），用于同步握手与转发流程的测试。
package devicesim

import (
	"errors"
	"sync"
	"time"

	"github.com/taoyao-code/pad-bridge/internal/protocol/pad"
)

// State 固件同步状态
type State int

const (
	StateOutOfSync State = iota
	StateSyncStart
	StateSync1
	StateSyncOK
)

func (s State) String() string {
	switch s {
	case StateOutOfSync:
		return "out_of_sync"
	case StateSyncStart:
		return "sync_start"
	case StateSync1:
		return "sync_1"
	case StateSyncOK:
		return "sync_ok"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed 设备已关闭
	ErrClosed = errors.New("devicesim: port closed")
	// ErrDisconnected 模拟设备被拔出
	ErrDisconnected = errors.New("devicesim: device disconnected")
)

// DefaultReadTimeout Read 在无数据时的最长等待
const DefaultReadTimeout = 20 * time.Millisecond

// substitution 应答替换规则
type substitution struct {
	from  pad.Response
	to    byte
	count int // <0 表示不限次数
}

// Device 模拟单片机
type Device struct {
	mu   sync.Mutex
	cond *sync.Cond

	state  State
	buf    []byte
	rx     []byte // 待主机读取的应答
	closed bool
	lost   bool

	readTimeout time.Duration
	subs        []*substitution
	mute        int // 丢弃的应答数，<0 表示一直丢弃
	muteSkip    int // 开始丢弃前放行的应答数

	// 统计
	written    []byte
	reports    []pad.Command
	reportedAt []time.Time
}

// New 创建处于未同步状态的模拟设备
func New() *Device {
	d := &Device{readTimeout: DefaultReadTimeout}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// NewSynchronized 创建已完成同步的模拟设备
func NewSynchronized() *Device {
	d := New()
	d.state = StateSyncOK
	return d
}

// SetReadTimeout 设置 Read 的等待上限
func (d *Device) SetReadTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readTimeout = timeout
}

// Substitute 将应答 from 替换为 to，count<0 表示一直替换
func (d *Device) Substitute(from pad.Response, to byte, count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, &substitution{from: from, to: to, count: count})
}

// Mute 丢弃接下来的 n 个应答（模拟超时）
func (d *Device) Mute(n int) { d.MuteAfter(0, n) }

// MuteAfter 先正常应答 skip 次，再丢弃 n 个应答；n<0 表示此后一直不应答
func (d *Device) MuteAfter(skip, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.muteSkip = skip
	d.mute = n
}

// Disconnect 模拟设备被拔出：之后的读写均返回 ErrDisconnected
func (d *Device) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
	d.cond.Broadcast()
}

// Desync 强制固件回到未同步状态（模拟单片机复位）
func (d *Device) Desync() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateOutOfSync
	d.buf = d.buf[:0]
}

// State 当前固件状态
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reports 已被固件接受（CRC 正确）的命令
func (d *Device) Reports() []pad.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]pad.Command, len(d.reports))
	copy(out, d.reports)
	return out
}

// ReportTimes 每条命令被固件接受的时刻，与 Reports 一一对应
func (d *Device) ReportTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Time, len(d.reportedAt))
	copy(out, d.reportedAt)
	return out
}

// Written 主机写入的全部原始字节
func (d *Device) Written() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.written))
	copy(out, d.written)
	return out
}

// Write 主机 → 设备
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if d.lost {
		return 0, ErrDisconnected
	}
	d.written = append(d.written, p...)
	for _, b := range p {
		d.feed(b)
	}
	d.cond.Broadcast()
	return len(p), nil
}

// Read 设备 → 主机；无数据时最多等待 readTimeout 并返回 (0, nil)
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	deadline := time.Now().Add(d.readTimeout)
	for len(d.rx) == 0 && !d.closed && !d.lost {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}
		t := time.AfterFunc(remaining, func() {
			d.mu.Lock()
			d.cond.Broadcast()
			d.mu.Unlock()
		})
		d.cond.Wait()
		t.Stop()
	}
	if d.closed {
		return 0, ErrClosed
	}
	if d.lost {
		return 0, ErrDisconnected
	}
	n := copy(p, d.rx)
	d.rx = d.rx[n:]
	return n, nil
}

// Close 关闭设备
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.cond.Broadcast()
	return nil
}

// feed 固件状态机，调用方持有锁
func (d *Device) feed(b byte) {
	switch d.state {
	case StateOutOfSync:
		if b == pad.CmdSyncStart {
			d.state = StateSyncStart
			d.reply(pad.RespSyncStart)
		}
	case StateSyncStart:
		switch b {
		case pad.CmdSyncStart:
			d.reply(pad.RespSyncStart)
		case pad.CmdSync1:
			d.state = StateSync1
			d.reply(pad.RespSync1)
		default:
			d.state = StateOutOfSync
		}
	case StateSync1:
		if b == pad.CmdSync2 {
			d.state = StateSyncOK
			d.reply(pad.RespSyncOK)
			return
		}
		d.state = StateOutOfSync
	case StateSyncOK:
		d.buf = append(d.buf, b)
		if len(d.buf) < pad.FrameSize {
			return
		}
		frame := d.buf
		d.buf = nil
		if pad.VerifyChecksum(frame) == nil {
			var c pad.Command
			copy(c[:], frame[:pad.CommandSize])
			d.reports = append(d.reports, c)
			d.reportedAt = append(d.reportedAt, time.Now())
			d.reply(pad.RespUSBAck)
			return
		}
		// 整帧 0xFF 视为主机发起的冲刷，直接进入同步起始
		if allFF(frame) {
			d.state = StateSyncStart
			d.reply(pad.RespSyncStart)
			return
		}
		d.state = StateOutOfSync
		d.reply(pad.RespUpdateNack)
	}
}

func (d *Device) reply(r pad.Response) {
	if d.muteSkip > 0 {
		d.muteSkip--
	} else if d.mute != 0 {
		if d.mute > 0 {
			d.mute--
		}
		return
	}
	out := byte(r)
	for _, s := range d.subs {
		if s.from == r && s.count != 0 {
			out = s.to
			if s.count > 0 {
				s.count--
			}
			break
		}
	}
	d.rx = append(d.rx, out)
}

func allFF(b []byte) bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}
