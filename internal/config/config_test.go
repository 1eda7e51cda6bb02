package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "padbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "serial:\n  device: /dev/ttyUSB0\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, DriverBugst, cfg.Serial.Driver)
	assert.Equal(t, 19200, cfg.Serial.BaudRate)
	assert.Equal(t, time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.SyncSettle)
	assert.Equal(t, "127.0.0.1:5005", cfg.UDP.Addr)
	assert.Equal(t, 1024, cfg.UDP.ReadBuffer)
	assert.Equal(t, 100*time.Millisecond, cfg.Bridge.HoldInterval)
	assert.Equal(t, time.Millisecond, cfg.Bridge.SettleInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Bridge.StartupDelay)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "serial:\n  device: /dev/ttyUSB0\n")
	t.Setenv("PADBRIDGE_UDP_ADDR", "127.0.0.1:6006")
	t.Setenv("PADBRIDGE_BRIDGE_HOLDINTERVAL", "250ms")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6006", cfg.UDP.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Bridge.HoldInterval)
}

func TestLoadFlagsOverride(t *testing.T) {
	path := writeConfig(t, "serial:\n  device: /dev/ttyUSB0\n  baudRate: 9600\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--device", "/dev/ttyACM1", "--baud", "115200"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.Serial.Device)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	// 未设置的参数不覆盖默认值
	assert.Equal(t, "127.0.0.1:5005", cfg.UDP.Addr)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Serial: SerialConfig{Device: "/dev/ttyUSB0", Driver: DriverBugst, BaudRate: 19200, ReadTimeout: time.Second, PollInterval: 100 * time.Millisecond},
			UDP:    UDPConfig{Addr: "127.0.0.1:5005", ReadBuffer: 1024},
			Bridge: BridgeConfig{HoldInterval: 100 * time.Millisecond, SettleInterval: time.Millisecond},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"模拟驱动无需设备路径", func(c *Config) { c.Serial.Driver = DriverSim; c.Serial.Device = "" }, false},
		{"缺少设备路径", func(c *Config) { c.Serial.Device = "" }, true},
		{"未知驱动", func(c *Config) { c.Serial.Driver = "usb-hid" }, true},
		{"非正波特率", func(c *Config) { c.Serial.BaudRate = 0 }, true},
		{"负的保持时长", func(c *Config) { c.Bridge.HoldInterval = -time.Millisecond }, true},
		{"负的限速", func(c *Config) { c.UDP.RatePerSec = -1 }, true},
		{"缺少UDP地址", func(c *Config) { c.UDP.Addr = "" }, true},
		{"读缓冲区等于命令长度", func(c *Config) { c.UDP.ReadBuffer = 8 }, true},
		{"读缓冲区等于帧长度", func(c *Config) { c.UDP.ReadBuffer = 9 }, true},
		{"读缓冲区刚好超过帧长度", func(c *Config) { c.UDP.ReadBuffer = 10 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
