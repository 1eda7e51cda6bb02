package pad

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// Command 编码后的原始控制命令（不含校验和）
type Command [CommandSize]byte

// NeutralCommand 中性帧的编码：00 00 08 7F 7F 7F 7F 00
var NeutralCommand = Encode(Neutral())

// String 十六进制表示，便于日志输出
func (c Command) String() string { return hex.EncodeToString(c[:]) }

// Bytes 返回命令字节切片副本
func (c Command) Bytes() []byte {
	b := make([]byte, CommandSize)
	copy(b, c[:])
	return b
}

// axisEpsilon 吸收浮点误差，保证 ScaleAxis(UnscaleAxis(b)) == b
const axisEpsilon = 1e-9

// ScaleAxis 将 [-1.0, 1.0] 映射到 [0, 255]
// 取整规则：向下取整（与生产端一致），因此 0.0 -> 127，-1.0 -> 0，1.0 -> 255
// 超出范围的输入被钳位，NaN 视为中位
func ScaleAxis(v float64) byte {
	if math.IsNaN(v) {
		v = StickCenter
	}
	x := math.Floor((v+1.0)/2.0*255 + axisEpsilon)
	switch {
	case x < 0:
		return 0
	case x > 255:
		return 255
	}
	return byte(x)
}

// UnscaleAxis ScaleAxis 的逆映射（用于诊断与测试）
func UnscaleAxis(b byte) float64 {
	return float64(b)/255*2 - 1.0
}

// Encode 将手柄状态编码为 8 字节命令
// 布局：buttons(BE16) dpad lx ly rx ry vendor
func Encode(f Frame) Command {
	var c Command
	binary.BigEndian.PutUint16(c[0:2], uint16(f.Buttons))
	c[2] = byte(f.DPad)
	c[3] = ScaleAxis(f.Left.X)
	c[4] = ScaleAxis(f.Left.Y)
	c[5] = ScaleAxis(f.Right.X)
	c[6] = ScaleAxis(f.Right.Y)
	c[7] = f.Vendor
	return c
}

// Encode 方法形式
func (f Frame) Encode() Command { return Encode(f) }

// Decode 将 8 字节命令还原为手柄状态
// 轴值还原为量化网格上的点，摇杆 Y 保持存储方向（不再取反）
func Decode(c Command) (Frame, error) {
	if err := c.Validate(); err != nil {
		return Frame{}, err
	}
	return Frame{
		Buttons: Button(binary.BigEndian.Uint16(c[0:2])),
		DPad:    DPad(c[2]),
		Left:    Stick{X: UnscaleAxis(c[3]), Y: UnscaleAxis(c[4])},
		Right:   Stick{X: UnscaleAxis(c[5]), Y: UnscaleAxis(c[6])},
		Vendor:  c[7],
	}, nil
}

// Validate 检查字段取值是否有意义：未定义按键位与非法方向值均拒绝
func (c Command) Validate() error {
	buttons := Button(binary.BigEndian.Uint16(c[0:2]))
	if buttons&^ButtonMask != 0 {
		return fmt.Errorf("%w: buttons=0x%04X", ErrUnknownButton, uint16(buttons))
	}
	if !DPad(c[2]).Valid() {
		return fmt.Errorf("%w: dpad=0x%02X", ErrInvalidDPad, c[2])
	}
	return nil
}
