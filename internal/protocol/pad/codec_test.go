package pad

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleAxis(t *testing.T) {
	t.Run("端点与中位", func(t *testing.T) {
		assert.Equal(t, byte(0), ScaleAxis(-1.0))
		assert.Equal(t, byte(255), ScaleAxis(1.0))
		// 127.5 向下取整
		assert.Equal(t, byte(127), ScaleAxis(0.0))
	})

	t.Run("取整规则为向下取整", func(t *testing.T) {
		// (0.5+1)/2*255 = 191.25
		assert.Equal(t, byte(191), ScaleAxis(0.5))
		// (-0.5+1)/2*255 = 63.75
		assert.Equal(t, byte(63), ScaleAxis(-0.5))
	})

	t.Run("超出范围钳位", func(t *testing.T) {
		assert.Equal(t, byte(0), ScaleAxis(-3))
		assert.Equal(t, byte(255), ScaleAxis(7))
		assert.Equal(t, byte(0), ScaleAxis(math.Inf(-1)))
		assert.Equal(t, byte(255), ScaleAxis(math.Inf(1)))
		assert.Equal(t, byte(127), ScaleAxis(math.NaN()))
	})

	t.Run("单调不减", func(t *testing.T) {
		prev := ScaleAxis(-1.0)
		for i := 1; i <= 20000; i++ {
			v := -1.0 + 2.0*float64(i)/20000
			cur := ScaleAxis(v)
			require.GreaterOrEqual(t, cur, prev, "v=%f", v)
			prev = cur
		}
	})

	t.Run("量化网格往返", func(t *testing.T) {
		for b := 0; b < 256; b++ {
			require.Equal(t, byte(b), ScaleAxis(UnscaleAxis(byte(b))))
		}
	})
}

func TestEncode(t *testing.T) {
	t.Run("中性帧", func(t *testing.T) {
		assert.Equal(t, Command{0x00, 0x00, 0x08, 0x7F, 0x7F, 0x7F, 0x7F, 0x00}, NeutralCommand)
		assert.True(t, Neutral().IsNeutral())
	})

	t.Run("按下A", func(t *testing.T) {
		c := NewFrame().PressButton(ButtonA).Encode()
		assert.Equal(t, Command{0x00, 0x04, 0x08, 0x7F, 0x7F, 0x7F, 0x7F, 0x00}, c)
	})

	t.Run("按键大端序", func(t *testing.T) {
		c := NewFrame().PressButton(ButtonCapture, ButtonY).Encode()
		assert.Equal(t, byte(0x20), c[0])
		assert.Equal(t, byte(0x01), c[1])
	})

	t.Run("摇杆Y轴取反", func(t *testing.T) {
		f := NewFrame().MoveLeftStick(0, 1.0).MoveRightStick(1.0, -1.0)
		c := f.Encode()
		assert.Equal(t, byte(0x7F), c[3])
		assert.Equal(t, byte(0x00), c[4], "向上推对应最小存储值")
		assert.Equal(t, byte(0xFF), c[5])
		assert.Equal(t, byte(0xFF), c[6])
	})

	t.Run("确定性", func(t *testing.T) {
		f := NewFrame().PressButton(ButtonL, ButtonZR).PressDPad(DPadDownLeft).MoveLeftStick(0.3, -0.7)
		assert.Equal(t, f.Encode(), f.Encode())
	})
}

func TestButtonsCombination(t *testing.T) {
	t.Run("按下顺序无关", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 200; i++ {
			var want Button
			var pressed []Button
			for _, b := range AllButtons {
				if rng.Intn(2) == 1 {
					want |= b
					pressed = append(pressed, b)
				}
			}
			rng.Shuffle(len(pressed), func(a, b int) { pressed[a], pressed[b] = pressed[b], pressed[a] })
			f := NewFrame().PressButton(pressed...)
			require.Equal(t, want, f.Buttons)
		}
	})

	t.Run("重复按下幂等", func(t *testing.T) {
		for _, b := range AllButtons {
			f := NewFrame().PressButton(b).PressButton(b)
			assert.Equal(t, b, f.Buttons)
		}
		f := NewFrame().PressButton(ButtonA, ButtonA, ButtonB)
		assert.Equal(t, ButtonA|ButtonB, f.Buttons)
	})

	t.Run("全部按键", func(t *testing.T) {
		f := NewFrame().PressButton(AllButtons...)
		assert.Equal(t, ButtonMask, f.Buttons)
		assert.Len(t, f.Buttons.Names(), 14)
	})

	t.Run("释放按键", func(t *testing.T) {
		f := NewFrame().PressButton(ButtonA, ButtonB).ReleaseButton(ButtonA)
		assert.Equal(t, ButtonB, f.Buttons)
		assert.Equal(t, []string{"B"}, f.Buttons.Names())
	})
}

func TestDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	axis := func() float64 { return UnscaleAxis(byte(rng.Intn(256))) }

	for i := 0; i < 2000; i++ {
		f := Frame{
			Buttons: Button(rng.Intn(int(ButtonMask) + 1)),
			DPad:    DPad(rng.Intn(int(DPadCenter) + 1)),
			Left:    Stick{X: axis(), Y: axis()},
			Right:   Stick{X: axis(), Y: axis()},
			Vendor:  byte(rng.Intn(256)),
		}
		got, err := Decode(Encode(f))
		require.NoError(t, err)
		require.Equal(t, f, got)
	}
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode(Command{0x40, 0x00, 0x08, 0x7F, 0x7F, 0x7F, 0x7F, 0x00})
	assert.True(t, errors.Is(err, ErrUnknownButton))

	_, err = Decode(Command{0x00, 0x00, 0x09, 0x7F, 0x7F, 0x7F, 0x7F, 0x00})
	assert.True(t, errors.Is(err, ErrInvalidDPad))
}

func TestDPadString(t *testing.T) {
	assert.Equal(t, "CENTER", DPadCenter.String())
	assert.Equal(t, "UP_LEFT", DPadUpLeft.String())
	assert.Equal(t, "INVALID", DPad(9).String())
	assert.False(t, DPad(9).Valid())
}
