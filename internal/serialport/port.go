// Package serialport 提供到手柄仿真单片机的串口链路：
// 可插拔的底层驱动（Port）与带接收协程、有界等待的字节通道（Channel）。
package serialport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/taoyao-code/pad-bridge/internal/config"
	"github.com/taoyao-code/pad-bridge/internal/devicesim"
)

// Port 底层串口。驱动须将“读超时且无数据”统一为 (0, nil)。
type Port io.ReadWriteCloser

// OpenPort 按 cfg.Driver 打开底层串口
func OpenPort(cfg config.SerialConfig) (Port, error) {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	var (
		p   Port
		err error
	)
	switch cfg.Driver {
	case config.DriverBugst, "":
		p, err = openBugst(cfg.Device, cfg.BaudRate, poll)
	case config.DriverTarm:
		p, err = openTarm(cfg.Device, cfg.BaudRate, poll)
	case config.DriverTerm:
		p, err = openTerm(cfg.Device, cfg.BaudRate, poll)
	case config.DriverSim:
		d := devicesim.New()
		d.SetReadTimeout(poll)
		p = d
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		if IsDisconnection(err) || IsPermissionDenied(err) {
			return nil, &LinkError{Op: "open", Err: err}
		}
		return nil, fmt.Errorf("open serial %s (%s): %w", cfg.Device, cfg.Driver, err)
	}
	return p, nil
}

// timeoutReader 将 io.EOF（tarm/term 在读超时时返回）转换为 (0, nil)
type timeoutReader struct {
	io.ReadWriteCloser
}

func (r timeoutReader) Read(p []byte) (int, error) {
	n, err := r.ReadWriteCloser.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}
