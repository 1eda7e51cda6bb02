package serialport

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/devicesim"
	"github.com/taoyao-code/pad-bridge/internal/protocol/pad"
)

// scriptPort 按脚本输出字节的测试端口
type scriptPort struct {
	mu      sync.Mutex
	pending []byte
	readErr error
	closed  bool
	written []byte
}

func (p *scriptPort) feed(b ...byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, b...)
}

func (p *scriptPort) breakWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

func (p *scriptPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, errors.New("closed")
	}
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (p *scriptPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *scriptPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func waitAvailable(t *testing.T, c *Channel, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.Available() >= n }, time.Second, time.Millisecond)
}

func TestChannelRecvByte(t *testing.T) {
	t.Run("超时返回false", func(t *testing.T) {
		c := NewChannel(&scriptPort{})
		defer c.Close()

		start := time.Now()
		_, ok, err := c.RecvByte(30 * time.Millisecond)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("与模拟设备完成同步起始", func(t *testing.T) {
		c := NewChannel(devicesim.New())
		defer c.Close()

		require.NoError(t, c.Write([]byte{pad.CmdSyncStart}))
		b, ok, err := c.RecvByte(time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, byte(pad.RespSyncStart), b)
	})
}

func TestChannelRecvLatest(t *testing.T) {
	t.Run("返回最后一个字节并清空缓冲", func(t *testing.T) {
		p := &scriptPort{}
		c := NewChannel(p)
		defer c.Close()

		p.feed(0x01, 0x02, 0xFF)
		waitAvailable(t, c, 3)

		b, err := c.RecvLatest()
		require.NoError(t, err)
		assert.Equal(t, byte(0xFF), b)
		assert.Equal(t, 0, c.Available())
	})

	t.Run("无数据时超时返回0", func(t *testing.T) {
		c := NewChannel(&scriptPort{}, WithReadTimeout(20*time.Millisecond))
		defer c.Close()

		b, err := c.RecvLatest()
		require.NoError(t, err)
		assert.Equal(t, byte(0), b)
	})
}

func TestChannelWaitForData(t *testing.T) {
	t.Run("有数据", func(t *testing.T) {
		p := &scriptPort{}
		c := NewChannel(p)
		defer c.Close()

		p.feed(0x33)
		ok, err := c.WaitForData(5*time.Millisecond, time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("有上限的等待", func(t *testing.T) {
		c := NewChannel(&scriptPort{})
		defer c.Close()

		start := time.Now()
		ok, err := c.WaitForData(5*time.Millisecond, 40*time.Millisecond)
		elapsed := time.Since(start)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
		assert.Less(t, elapsed, time.Second)
	})
}

func TestChannelBufferOverflowDropsOldest(t *testing.T) {
	p := &scriptPort{}
	c := NewChannel(p, WithBufferSize(2))
	defer c.Close()

	p.feed(0x01, 0x02, 0x03)
	require.Eventually(t, func() bool { return c.Dropped() == 1 }, time.Second, time.Millisecond)

	b, ok, _ := c.RecvByte(0)
	require.True(t, ok)
	assert.Equal(t, byte(0x02), b)
	b, ok, _ = c.RecvByte(0)
	require.True(t, ok)
	assert.Equal(t, byte(0x03), b)
}

func TestChannelLinkLost(t *testing.T) {
	t.Run("设备断开", func(t *testing.T) {
		dev := devicesim.New()
		c := NewChannel(dev)
		defer c.Close()

		dev.Disconnect()
		require.Eventually(t, func() bool { return c.Err() != nil }, time.Second, time.Millisecond)

		_, _, err := c.RecvByte(10 * time.Millisecond)
		assert.True(t, IsLinkLost(err))
		assert.True(t, IsLinkLost(c.Write([]byte{0x00})))
		_, err = c.WaitForData(0, 10*time.Millisecond)
		assert.True(t, IsLinkLost(err))
		assert.Contains(t, err.Error(), "device disconnected")
	})

	t.Run("等待中的读取被唤醒", func(t *testing.T) {
		p := &scriptPort{}
		c := NewChannel(p)
		defer c.Close()

		go func() {
			time.Sleep(20 * time.Millisecond)
			p.breakWith(errors.New("input/output error"))
		}()
		start := time.Now()
		_, ok, err := c.RecvByte(5 * time.Second)
		assert.False(t, ok)
		assert.True(t, IsLinkLost(err))
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestChannelClose(t *testing.T) {
	p := &scriptPort{}
	c := NewChannel(p)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Err(), ErrClosed)
	assert.ErrorIs(t, c.Write([]byte{0x00}), ErrClosed)
	assert.False(t, IsLinkLost(c.Err()))
}

func TestRecvCallback(t *testing.T) {
	p := &scriptPort{}
	var (
		mu    sync.Mutex
		total int
	)
	c := NewChannel(p, WithRecvCallback(func(n int) {
		mu.Lock()
		total += n
		mu.Unlock()
	}))
	defer c.Close()

	p.feed(0x90, 0x90)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return total == 2
	}, time.Second, time.Millisecond)
}

func TestOpen(t *testing.T) {
	t.Run("未知驱动", func(t *testing.T) {
		_, err := Open(config.SerialConfig{Driver: "usb-hid", BaudRate: 19200})
		assert.ErrorIs(t, err, ErrUnknownDriver)
	})

	t.Run("模拟驱动", func(t *testing.T) {
		c, err := Open(config.SerialConfig{
			Driver:       config.DriverSim,
			BaudRate:     19200,
			ReadTimeout:  100 * time.Millisecond,
			PollInterval: 5 * time.Millisecond,
		})
		require.NoError(t, err)
		defer c.Close()

		require.NoError(t, c.Write([]byte{pad.CmdSyncStart}))
		b, ok, err := c.RecvByte(time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, byte(0xFF), b)
	})

	t.Run("设备不存在", func(t *testing.T) {
		_, err := Open(config.SerialConfig{Driver: config.DriverBugst, Device: "/dev/padbridge-missing", BaudRate: 19200})
		assert.Error(t, err)
	})
}

func TestIsDisconnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"空错误", nil, false},
		{"设备拔出", errors.New("read /dev/ttyUSB0: input/output error"), true},
		{"macOS设备消失", errors.New("device not configured"), true},
		{"无此设备", errors.New("open /dev/ttyACM0: no such device"), true},
		{"模拟设备断开", devicesim.ErrDisconnected, true},
		{"普通错误", errors.New("resource temporarily unavailable"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDisconnection(tt.err))
		})
	}
}

func TestLinkError(t *testing.T) {
	err := &LinkError{Op: "write", Err: devicesim.ErrDisconnected}
	assert.True(t, IsLinkLost(err))
	assert.ErrorIs(t, err, devicesim.ErrDisconnected)
	assert.Contains(t, err.Error(), "serial write failed (device disconnected)")

	var le *LinkError
	assert.True(t, errors.As(error(err), &le))
	assert.Equal(t, "write", le.Op)
}
