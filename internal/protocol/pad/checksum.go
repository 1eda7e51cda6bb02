package pad

import "github.com/sigurn/crc8"

// crcTable CRC-8：多项式 0x07，初值 0x00，不反射，无异或输出
// 与单片机端逐位计算的 _crc8_ccitt_update 链式结果一致
var crcTable = crc8.MakeTable(crc8.CRC8)

// Checksum 计算 CRC-8 校验和
func Checksum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// WithChecksum 生成串口帧：命令 + 校验和
func WithChecksum(c Command) [FrameSize]byte {
	var f [FrameSize]byte
	copy(f[:], c[:])
	f[CommandSize] = Checksum(c[:])
	return f
}

// VerifyChecksum 验证最后一个字节是否为前面数据的校验和
func VerifyChecksum(dataWithChecksum []byte) error {
	if len(dataWithChecksum) < 1 {
		return ErrTooShort
	}
	pos := len(dataWithChecksum) - 1
	if Checksum(dataWithChecksum[:pos]) != dataWithChecksum[pos] {
		return ErrChecksumMismatch
	}
	return nil
}
