package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/viper"
)

const EnvPrefix = "HUDDLE"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type WSConfig struct {
	WriteWait       time.Duration `mapstructure:"write_wait"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
	SendBuffer      int           `mapstructure:"send_buffer"`
}

// LogRelayConfig bounds how fast one connection may relay log lines.
// A Rate of zero disables the limit.
type LogRelayConfig struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

type ICEServerConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	StaticDir       string            `mapstructure:"static_dir"`
	AllowedOrigins  []string          `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	InboxSize       int               `mapstructure:"inbox_size"`
	Log             LogConfig         `mapstructure:"log"`
	WS              WSConfig          `mapstructure:"ws"`
	LogRelay        LogRelayConfig    `mapstructure:"log_relay"`
	ICE             []ICEServerConfig `mapstructure:"ice_servers"`

	// ICEServers is ICE validated and converted for the browser.
	ICEServers []webrtc.ICEServer `mapstructure:"-"`

	// File is the config file actually read, empty when running on defaults.
	File string `mapstructure:"-"`
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", 3000)
	v.SetDefault("static_dir", "public")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("shutdown_timeout", 5*time.Second)
	v.SetDefault("inbox_size", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("ws.write_wait", 10*time.Second)
	v.SetDefault("ws.pong_wait", 60*time.Second)
	v.SetDefault("ws.ping_interval", 54*time.Second)
	v.SetDefault("ws.max_message_bytes", 64*1024)
	v.SetDefault("ws.send_buffer", 64)

	v.SetDefault("log_relay.rate", 10)
	v.SetDefault("log_relay.burst", 20)

	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing priority. A missing file is not an error.
func Load(configFilePath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Plain PORT is what most hosting platforms set.
	if err := v.BindEnv("port", EnvPrefix+"_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	var cfg Config
	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config %q: %w", configFilePath, err)
			}
		} else {
			cfg.File = v.ConfigFileUsed()
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	iceServers, err := ParseICEServers(cfg.ICE)
	if err != nil {
		return Config{}, err
	}
	cfg.ICEServers = iceServers

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.WS.WriteWait <= 0 {
		return errors.New("ws.write_wait must be positive")
	}
	if c.WS.PongWait <= 0 {
		return errors.New("ws.pong_wait must be positive")
	}
	if c.WS.PingInterval <= 0 || c.WS.PingInterval >= c.WS.PongWait {
		return fmt.Errorf("ws.ping_interval (%s) must be positive and below ws.pong_wait (%s)", c.WS.PingInterval, c.WS.PongWait)
	}
	if c.WS.MaxMessageBytes <= 0 {
		return errors.New("ws.max_message_bytes must be positive")
	}
	if c.WS.SendBuffer <= 0 {
		return errors.New("ws.send_buffer must be positive")
	}
	if c.LogRelay.Rate < 0 {
		return errors.New("log_relay.rate cannot be negative")
	}
	if c.LogRelay.Rate > 0 && c.LogRelay.Burst <= 0 {
		return errors.New("log_relay.burst must be positive when log_relay.rate is set")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q: expected console or json", c.Log.Format)
	}
	return nil
}
