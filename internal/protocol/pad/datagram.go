package pad

import "fmt"

// ParseDatagram 校验入站 UDP 报文并转换为命令
//
// 接受两种形式：
//   - 8 字节：原始命令
//   - 9 字节：命令 + CRC-8，校验通过后去掉校验和
//
// 其他长度、校验失败或字段取值非法均返回 *DatagramError，调用方应丢弃该报文
func ParseDatagram(payload []byte) (Command, error) {
	var c Command
	switch len(payload) {
	case CommandSize:
	case FrameSize:
		if err := VerifyChecksum(payload); err != nil {
			return c, &DatagramError{Len: len(payload), Reason: err}
		}
	default:
		return c, &DatagramError{
			Len:    len(payload),
			Reason: fmt.Errorf("want %d or %d bytes", CommandSize, FrameSize),
		}
	}
	copy(c[:], payload[:CommandSize])
	if err := c.Validate(); err != nil {
		return Command{}, &DatagramError{Len: len(payload), Reason: err}
	}
	return c, nil
}
