package pad

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch 校验和不匹配
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrTooShort 数据不足以校验
	ErrTooShort = errors.New("data too short for checksum verification")
	// ErrUnknownButton 按键字段包含未定义的位
	ErrUnknownButton = errors.New("unknown button bits")
	// ErrInvalidDPad 十字键取值超出 0..8
	ErrInvalidDPad = errors.New("invalid dpad value")
	// ErrMalformedDatagram 入站报文不符合命令格式
	ErrMalformedDatagram = errors.New("malformed datagram")
)

// DatagramError 入站报文被拒绝的原因
type DatagramError struct {
	Len    int
	Reason error
}

func (e *DatagramError) Error() string {
	return fmt.Sprintf("malformed datagram (len=%d): %v", e.Len, e.Reason)
}

func (e *DatagramError) Unwrap() []error {
	return []error{ErrMalformedDatagram, e.Reason}
}
