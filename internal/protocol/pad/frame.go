package pad

// Stick 单个摇杆的两轴取值，范围 [-1.0, 1.0]
// Y 轴按硬件方向存储：输入"向上"为正，存储时取反
type Stick struct {
	X float64
	Y float64
}

// Centered 摇杆是否处于中位
func (s Stick) Centered() bool { return s.X == StickCenter && s.Y == StickCenter }

// Frame 一帧完整的手柄状态
type Frame struct {
	Buttons Button
	DPad    DPad
	Left    Stick
	Right   Stick
	Vendor  byte
}

// Neutral 返回全部释放、摇杆居中的中性帧
func Neutral() Frame {
	return Frame{DPad: DPadCenter}
}

// NewFrame 等价于 Neutral，用于链式构造
func NewFrame() *Frame {
	f := Neutral()
	return &f
}

// PressButton 按下一个或多个按键（重复按下幂等）
func (f *Frame) PressButton(buttons ...Button) *Frame {
	for _, b := range buttons {
		f.Buttons |= b
	}
	return f
}

// ReleaseButton 释放按键
func (f *Frame) ReleaseButton(buttons ...Button) *Frame {
	for _, b := range buttons {
		f.Buttons &^= b
	}
	return f
}

// PressDPad 设置十字键方向
func (f *Frame) PressDPad(d DPad) *Frame {
	f.DPad = d
	return f
}

// MoveLeftStick 设置左摇杆，y 为输入约定（向上为正）
func (f *Frame) MoveLeftStick(x, y float64) *Frame {
	f.Left = Stick{X: x, Y: -y}
	return f
}

// MoveRightStick 设置右摇杆，y 为输入约定（向上为正）
func (f *Frame) MoveRightStick(x, y float64) *Frame {
	f.Right = Stick{X: x, Y: -y}
	return f
}

// IsNeutral 是否为中性帧
func (f Frame) IsNeutral() bool {
	return f.Buttons == ButtonNone &&
		f.DPad == DPadCenter &&
		f.Left.Centered() &&
		f.Right.Centered() &&
		f.Vendor == 0x00
}
