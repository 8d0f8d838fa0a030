package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Directory DirectoryConfig `mapstructure:"directory"`
	RTC       RTCConfig       `mapstructure:"rtc"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Input     InputConfig     `mapstructure:"input"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type GatewayConfig struct {
	URL         string        `mapstructure:"url"`
	Path        string        `mapstructure:"path"`
	StreamHost  string        `mapstructure:"stream_host"`
	CaptureType int           `mapstructure:"capture_type"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// Overrides maps a device id to its own gateway base url.
	Overrides map[string]string `mapstructure:"overrides"`
}

type DirectoryConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RTCConfig struct {
	ICEServers   []string `mapstructure:"ice_servers"`
	ChannelLabel string   `mapstructure:"channel_label"`
}

type StatsConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type InputConfig struct {
	Forwarding  bool          `mapstructure:"forwarding"`
	StartLimit  int           `mapstructure:"start_limit"`
	StartWindow time.Duration `mapstructure:"start_window"`
}

type SinkConfig struct {
	VideoForward string `mapstructure:"video_forward"`
	AudioForward string `mapstructure:"audio_forward"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("log_level", "info")

	v.SetDefault("gateway.url", "http://192.168.9.172:8001")
	v.SetDefault("gateway.path", "/rtc/play")
	v.SetDefault("gateway.stream_host", "127.0.0.1")
	v.SetDefault("gateway.capture_type", 1)
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.overrides", map[string]string{})

	v.SetDefault("directory.url", "http://192.168.9.172:5000/api/v1")
	v.SetDefault("directory.token", "")
	v.SetDefault("directory.timeout", "10s")

	v.SetDefault("rtc.ice_servers", []string{})
	v.SetDefault("rtc.channel_label", "control")

	v.SetDefault("stats.interval", "2s")

	v.SetDefault("input.forwarding", false)
	v.SetDefault("input.start_limit", 5)
	v.SetDefault("input.start_window", "10s")

	v.SetDefault("sink.video_forward", "")
	v.SetDefault("sink.audio_forward", "")

	v.SetDefault("metrics.enabled", true)
}

// Load reads config.<CONFIG_ENV>.yaml from the working directory, ./config
// or the user config dir, unless path names a file. DESK_* variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config." + env)
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "desk"))
	}

	v.SetEnvPrefix("DESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		log.Warn().Str("module", "config").Str("env", env).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("gateway", cfg.Gateway.URL).
		Msg("config ready")
	return &cfg, nil
}

// Level is the zerolog level named by log_level, info when unknown.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
