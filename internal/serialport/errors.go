package serialport

import (
	"errors"
	"fmt"
	"strings"

	bugst "go.bug.st/serial"
)

var (
	// ErrLinkLost 串口链路不可用（设备拔出、权限被拒、端口异常关闭等），协议层重试无法恢复
	ErrLinkLost = errors.New("serial link lost")
	// ErrClosed 通道已被本端关闭
	ErrClosed = errors.New("serial channel closed")
	// ErrUnknownDriver 未知的串口驱动名称
	ErrUnknownDriver = errors.New("unknown serial driver")
)

// LinkError 串口链路致命错误
type LinkError struct {
	Op  string // open | read | write
	Err error
}

func (e *LinkError) Error() string {
	reason := "i/o error"
	if IsDisconnection(e.Err) {
		reason = "device disconnected"
	}
	return fmt.Sprintf("serial %s failed (%s): %v", e.Op, reason, e.Err)
}

func (e *LinkError) Unwrap() []error { return []error{ErrLinkLost, e.Err} }

// IsLinkLost 是否为链路致命错误
func IsLinkLost(err error) bool {
	return errors.Is(err, ErrLinkLost)
}

// IsDisconnection 判断底层错误是否表示设备已断开
func IsDisconnection(err error) bool {
	if err == nil {
		return false
	}

	if code, ok := portErrorCode(err); ok {
		switch code {
		case bugst.PortNotFound, bugst.PortClosed, bugst.InvalidSerialPort:
			return true
		default:
			return false
		}
	}

	// 未包装的系统错误按错误文本判断
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "device not configured") ||
		strings.Contains(errStr, "input/output error") ||
		strings.Contains(errStr, "no such device") ||
		strings.Contains(errStr, "device not found") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "device disconnected")
}

// IsPermissionDenied 打开串口时权限不足
func IsPermissionDenied(err error) bool {
	if code, ok := portErrorCode(err); ok {
		return code == bugst.PermissionDenied
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "permission denied")
}

// portErrorCode 提取 go.bug.st/serial 的错误码（兼容指针与值两种返回形式）
func portErrorCode(err error) (bugst.PortErrorCode, bool) {
	var ptr *bugst.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}
	var val bugst.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}
	return 0, false
}
