package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/taoyao-code/pad-bridge/internal/protocol/pad"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置（健康检查、指标、状态）
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// SerialConfig 串口链路配置
type SerialConfig struct {
	Device       string        `mapstructure:"device"`
	Driver       string        `mapstructure:"driver"` // bugst | tarm | term | sim
	BaudRate     int           `mapstructure:"baudRate"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`  // 等待单字节应答的上限
	PollInterval time.Duration `mapstructure:"pollInterval"` // 底层端口读超时，决定接收协程的唤醒粒度
	SyncSettle   time.Duration `mapstructure:"syncSettle"`   // 冲刷后等待设备回应的最短时间
	BufferSize   int           `mapstructure:"bufferSize"`
}

// UDPConfig 入站 UDP 配置
type UDPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadBuffer   int           `mapstructure:"readBuffer"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	RatePerSec   int           `mapstructure:"ratePerSec"` // 0 表示不限速
	Burst        int           `mapstructure:"burst"`
}

// BridgeConfig 转发节奏配置
type BridgeConfig struct {
	HoldInterval   time.Duration `mapstructure:"holdInterval"`   // 命令保持时长（让出调度的睡眠）
	SettleInterval time.Duration `mapstructure:"settleInterval"` // 释放后的稳定时长（忙等）
	StartupDelay   time.Duration `mapstructure:"startupDelay"`   // 启动同步后到首个中性帧的间隔
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Serial  SerialConfig  `mapstructure:"serial"`
	UDP     UDPConfig     `mapstructure:"udp"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// 支持的串口驱动
const (
	DriverBugst = "bugst"
	DriverTarm  = "tarm"
	DriverTerm  = "term"
	DriverSim   = "sim"
)

// Load 从 YAML/TOML/JSON 文件、环境变量与命令行参数加载配置。
// 若 path 为空，则尝试从环境变量 PADBRIDGE_CONFIG 读取；否则回退到 ./configs/padbridge.yaml（可缺省）。
// flags 可为 nil；非 nil 时已设置的参数覆盖文件与环境变量。
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 PADBRIDGE_，并将点号替换为下划线
	v.SetEnvPrefix("PADBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("padbridge")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKeys 命令行参数名 → 配置键
var flagKeys = map[string]string{
	"device": "serial.device",
	"driver": "serial.driver",
	"baud":   "serial.baudRate",
	"udp":    "udp.addr",
	"http":   "http.addr",
	"log":    "logging.level",
}

// RegisterFlags 在 FlagSet 上注册可覆盖配置的参数
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file path (yaml/json/toml)")
	fs.String("device", "", "serial device path, e.g. /dev/ttyUSB0")
	fs.String("driver", "", "serial driver: bugst|tarm|term|sim")
	fs.Int("baud", 0, "serial baud rate")
	fs.String("udp", "", "UDP listen address, e.g. 127.0.0.1:5005")
	fs.String("http", "", "HTTP status/metrics listen address")
	fs.String("log", "", "log level: debug|info|warn|error")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	s := c.Serial
	switch s.Driver {
	case DriverBugst, DriverTarm, DriverTerm:
		if s.Device == "" {
			return errors.New("config: serial.device is required")
		}
	case DriverSim:
	default:
		return fmt.Errorf("config: unknown serial.driver %q", s.Driver)
	}
	if s.BaudRate <= 0 {
		return fmt.Errorf("config: serial.baudRate must be positive, got %d", s.BaudRate)
	}
	if s.ReadTimeout <= 0 {
		return errors.New("config: serial.readTimeout must be positive")
	}
	if s.PollInterval <= 0 {
		return errors.New("config: serial.pollInterval must be positive")
	}
	if s.SyncSettle < 0 {
		return errors.New("config: serial.syncSettle must not be negative")
	}
	if c.UDP.Addr == "" {
		return errors.New("config: udp.addr is required")
	}
	// 缓冲区必须大于最长合法数据报，否则超长数据报会被截断成合法长度
	if c.UDP.ReadBuffer <= pad.FrameSize {
		return fmt.Errorf("config: udp.readBuffer must exceed %d bytes, got %d", pad.FrameSize, c.UDP.ReadBuffer)
	}
	if c.UDP.RatePerSec < 0 || c.UDP.Burst < 0 {
		return errors.New("config: udp.ratePerSec and udp.burst must not be negative")
	}
	b := c.Bridge
	if b.HoldInterval < 0 || b.SettleInterval < 0 || b.StartupDelay < 0 {
		return errors.New("config: bridge intervals must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "padbridge")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.enable", true)
	v.SetDefault("http.addr", "127.0.0.1:8089")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("serial.device", "")
	v.SetDefault("serial.driver", DriverBugst)
	v.SetDefault("serial.baudRate", 19200)
	v.SetDefault("serial.readTimeout", "1s")
	v.SetDefault("serial.pollInterval", "100ms")
	v.SetDefault("serial.syncSettle", "100ms")
	v.SetDefault("serial.bufferSize", 4096)

	v.SetDefault("udp.addr", "127.0.0.1:5005")
	v.SetDefault("udp.readBuffer", 1024)
	v.SetDefault("udp.pollInterval", "500ms")
	v.SetDefault("udp.ratePerSec", 0)
	v.SetDefault("udp.burst", 0)

	v.SetDefault("bridge.holdInterval", "100ms")
	v.SetDefault("bridge.settleInterval", "1ms")
	v.SetDefault("bridge.startupDelay", "50ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/padbridge.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
