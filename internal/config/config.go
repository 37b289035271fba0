// Package config provides configuration management for the VMC bridge
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/normanking/vmcbridge/internal/lipsync"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Audio   AudioConfig   `mapstructure:"audio"`
	LipSync LipSyncConfig `mapstructure:"lipsync"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP boundary server
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AudioConfig configures the playback device and test tone
type AudioConfig struct {
	OutputDevice  string        `mapstructure:"output_device"` // substring match, empty = auto
	SampleRate    int           `mapstructure:"sample_rate"`
	ToneFrequency float64       `mapstructure:"tone_frequency"`
	ToneDuration  time.Duration `mapstructure:"tone_duration"`
}

// LipSyncConfig configures the VMC target and the envelope/viseme tuning.
// The threshold values encode perceptual tuning, not correctness; they are
// configuration on purpose.
type LipSyncConfig struct {
	Host           string  `mapstructure:"host"`
	Port           int     `mapstructure:"port"`
	Enabled        bool    `mapstructure:"enabled"`
	Gain           float64 `mapstructure:"gain"`
	MaxOpen        float64 `mapstructure:"max_open"`
	Attack         float64 `mapstructure:"attack"`
	Release        float64 `mapstructure:"release"`
	VowelSpeed     float64 `mapstructure:"vowel_speed"`
	TickRate       int     `mapstructure:"tick_rate"`
	SpeakThreshold float64 `mapstructure:"speak_threshold"`
	SnapThreshold  float64 `mapstructure:"snap_threshold"`
}

// Tuning converts the config surface into the lipsync package's tuning struct.
func (c LipSyncConfig) Tuning() lipsync.Config {
	return lipsync.Config{
		Gain:           c.Gain,
		MaxOpen:        c.MaxOpen,
		Attack:         c.Attack,
		Release:        c.Release,
		VowelSpeed:     c.VowelSpeed,
		TickRate:       c.TickRate,
		SpeakThreshold: c.SpeakThreshold,
		SnapThreshold:  c.SnapThreshold,
	}
}

// LogConfig configures logging output
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	tuning := lipsync.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8765,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Audio: AudioConfig{
			OutputDevice:  "",
			SampleRate:    24000,
			ToneFrequency: 440.0,
			ToneDuration:  2 * time.Second,
		},
		LipSync: LipSyncConfig{
			Host:           "127.0.0.1",
			Port:           39540,
			Enabled:        true,
			Gain:           tuning.Gain,
			MaxOpen:        tuning.MaxOpen,
			Attack:         tuning.Attack,
			Release:        tuning.Release,
			VowelSpeed:     tuning.VowelSpeed,
			TickRate:       tuning.TickRate,
			SpeakThreshold: tuning.SpeakThreshold,
			SnapThreshold:  tuning.SnapThreshold,
		},
		Log: LogConfig{
			Level:   "info",
			Dir:     filepath.Join(home, ".vmcbridge", "logs"),
			Console: true,
		},
	}
}

// Load reads configuration from file and environment. dir overrides the
// config directory when non-empty (used by tests); the default is
// ~/.vmcbridge with the working directory as fallback.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}
		dir = filepath.Join(home, ".vmcbridge")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("VMCBRIDGE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// No config file yet; write the defaults so there is something to edit.
		if err := Save(cfg, dir); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to dir/config.yaml.
func Save(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", map[string]any{
		"host":          cfg.Server.Host,
		"port":          cfg.Server.Port,
		"read_timeout":  cfg.Server.ReadTimeout,
		"write_timeout": cfg.Server.WriteTimeout,
	})
	v.Set("audio", map[string]any{
		"output_device":  cfg.Audio.OutputDevice,
		"sample_rate":    cfg.Audio.SampleRate,
		"tone_frequency": cfg.Audio.ToneFrequency,
		"tone_duration":  cfg.Audio.ToneDuration,
	})
	v.Set("lipsync", map[string]any{
		"host":            cfg.LipSync.Host,
		"port":            cfg.LipSync.Port,
		"enabled":         cfg.LipSync.Enabled,
		"gain":            cfg.LipSync.Gain,
		"max_open":        cfg.LipSync.MaxOpen,
		"attack":          cfg.LipSync.Attack,
		"release":         cfg.LipSync.Release,
		"vowel_speed":     cfg.LipSync.VowelSpeed,
		"tick_rate":       cfg.LipSync.TickRate,
		"speak_threshold": cfg.LipSync.SpeakThreshold,
		"snap_threshold":  cfg.LipSync.SnapThreshold,
	})
	v.Set("log", map[string]any{
		"level":   cfg.Log.Level,
		"dir":     cfg.Log.Dir,
		"console": cfg.Log.Console,
	})

	return v.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}
