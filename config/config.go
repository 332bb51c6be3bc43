package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Service struct {
	URL string `mapstructure:"url"`
}

type Services struct {
	Inference     Service `mapstructure:"inference"`
	Visualization Service `mapstructure:"visualization"`
}

type Upload struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Backoff        time.Duration `mapstructure:"backoff"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	MaxClipMB      int64         `mapstructure:"max_clip_mb"`
}

type Session struct {
	Window          int     `mapstructure:"window"`
	SampleRate      float64 `mapstructure:"sample_rate"`
	PointsPerSecond float64 `mapstructure:"points_per_second"`
}

type Root struct {
	Pipeline struct {
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
		LogLvl  string `mapstructure:"log_level"`
	} `mapstructure:"pipeline"`
	Services Services `mapstructure:"services"`
	Upload   Upload   `mapstructure:"upload"`
	Session  Session  `mapstructure:"session"`
	Paths    struct {
		Outputs string `mapstructure:"outputs"`
	} `mapstructure:"paths"`
}

// Load reads config.yaml for the current CONFIG_ENV (falling back to the
// bundled default locations), applies EVOLVISENSE_* environment
// overrides and fills in defaults. A missing file is not an error:
// defaults plus environment are enough to run against a live service.
func Load(explicit string) (*Root, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("pipeline.name", "evolvisense-pipeline")
	v.SetDefault("pipeline.version", "0.1.0")
	v.SetDefault("pipeline.log_level", "info")
	// Empty defaults so AutomaticEnv can bind these keys too.
	v.SetDefault("services.inference.url", "")
	v.SetDefault("services.visualization.url", "")
	v.SetDefault("upload.max_attempts", 3)
	v.SetDefault("upload.backoff", "5s")
	v.SetDefault("upload.attempt_timeout", "300s")
	v.SetDefault("upload.max_clip_mb", 100)
	v.SetDefault("session.window", 15)
	v.SetDefault("session.sample_rate", 30)
	v.SetDefault("session.points_per_second", 10)
	v.SetDefault("paths.outputs", "outputs")

	v.SetEnvPrefix("EVOLVISENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", explicit, err)
		}
	} else {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		guess := []string{
			filepath.Join("config", env, "config.yaml"),
			"config.yaml",
		}
		for _, p := range guess {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			v.SetConfigFile(p)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", p, err)
			}
			break
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// MaxClipBytes converts the configured cap from megabytes.
func (u Upload) MaxClipBytes() int64 { return u.MaxClipMB << 20 }
