package serialport

import (
	"time"

	bugst "go.bug.st/serial"
)

// openBugst 以 8N1 打开串口（go.bug.st/serial，默认驱动）
func openBugst(device string, baud int, poll time.Duration) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	port, err := bugst.Open(device, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(poll); err != nil {
		_ = port.Close()
		return nil, err
	}
	// 丢弃打开前残留在驱动缓冲区中的字节
	_ = port.ResetInputBuffer()
	return port, nil
}
