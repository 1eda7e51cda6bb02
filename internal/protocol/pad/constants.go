package pad

import "fmt"

// 帧长度
const (
	CommandSize = 8               // 原始控制命令：buttons(2) + dpad(1) + 4轴(4) + vendor(1)
	FrameSize   = CommandSize + 1 // 串口帧：命令 + CRC-8
)

// Button 按键位掩码，多个按键按位或组合
type Button uint16

const (
	ButtonNone    Button = 0x0000
	ButtonY       Button = 0x0001
	ButtonB       Button = 0x0002
	ButtonA       Button = 0x0004
	ButtonX       Button = 0x0008
	ButtonL       Button = 0x0010
	ButtonR       Button = 0x0020
	ButtonZL      Button = 0x0040
	ButtonZR      Button = 0x0080
	ButtonMinus   Button = 0x0100
	ButtonPlus    Button = 0x0200
	ButtonLClick  Button = 0x0400
	ButtonRClick  Button = 0x0800
	ButtonHome    Button = 0x1000
	ButtonCapture Button = 0x2000

	// ButtonMask 全部合法按键位
	ButtonMask Button = 0x3FFF
)

// AllButtons 按位值升序排列的全部按键
var AllButtons = []Button{
	ButtonY, ButtonB, ButtonA, ButtonX,
	ButtonL, ButtonR, ButtonZL, ButtonZR,
	ButtonMinus, ButtonPlus, ButtonLClick, ButtonRClick,
	ButtonHome, ButtonCapture,
}

var buttonNames = map[Button]string{
	ButtonY: "Y", ButtonB: "B", ButtonA: "A", ButtonX: "X",
	ButtonL: "L", ButtonR: "R", ButtonZL: "ZL", ButtonZR: "ZR",
	ButtonMinus: "MINUS", ButtonPlus: "PLUS", ButtonLClick: "LCLICK", ButtonRClick: "RCLICK",
	ButtonHome: "HOME", ButtonCapture: "CAPTURE",
}

// Names 返回按下按键的名称（按位值升序）
func (b Button) Names() []string {
	var names []string
	for _, btn := range AllButtons {
		if b&btn != 0 {
			names = append(names, buttonNames[btn])
		}
	}
	return names
}

// DPad 十字键方向
type DPad uint8

const (
	DPadUp        DPad = 0x00
	DPadUpRight   DPad = 0x01
	DPadRight     DPad = 0x02
	DPadDownRight DPad = 0x03
	DPadDown      DPad = 0x04
	DPadDownLeft  DPad = 0x05
	DPadLeft      DPad = 0x06
	DPadUpLeft    DPad = 0x07
	DPadCenter    DPad = 0x08
)

// Valid 是否为合法方向值（0..8）
func (d DPad) Valid() bool { return d <= DPadCenter }

func (d DPad) String() string {
	switch d {
	case DPadUp:
		return "UP"
	case DPadUpRight:
		return "UP_RIGHT"
	case DPadRight:
		return "RIGHT"
	case DPadDownRight:
		return "DOWN_RIGHT"
	case DPadDown:
		return "DOWN"
	case DPadDownLeft:
		return "DOWN_LEFT"
	case DPadLeft:
		return "LEFT"
	case DPadUpLeft:
		return "UP_LEFT"
	case DPadCenter:
		return "CENTER"
	default:
		return "INVALID"
	}
}

// 摇杆取值范围
const (
	StickMin    = -1.0
	StickCenter = 0.0
	StickMax    = 1.0
)

// 主机 → 单片机 命令字节
const (
	CmdNop       byte = 0x00
	CmdSyncStart byte = 0xFF // 冲刷/同步起始探测
	CmdSync1     byte = 0x33
	CmdSync2     byte = 0xCC
)

// Response 单片机 → 主机 应答字节
type Response byte

const (
	RespUSBAck     Response = 0x90 // 命令已被接受
	RespUpdateAck  Response = 0x91
	RespUpdateNack Response = 0x92
	RespSyncStart  Response = 0xFF // 准备同步
	RespSync1      Response = 0xCC
	RespSyncOK     Response = 0x33
)

func (r Response) String() string {
	switch r {
	case RespUSBAck:
		return "usb_ack"
	case RespUpdateAck:
		return "update_ack"
	case RespUpdateNack:
		return "update_nack"
	case RespSyncStart:
		return "sync_start"
	case RespSync1:
		return "sync_1"
	case RespSyncOK:
		return "sync_ok"
	default:
		return fmt.Sprintf("0x%02X", byte(r))
	}
}
