package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Worker struct {
	PythonPath  string        `mapstructure:"python_path"`
	PlateScript string        `mapstructure:"plate_script"`
	TrackScript string        `mapstructure:"track_script"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxProcs    int64         `mapstructure:"max_procs"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	RedisURL   string        `mapstructure:"redis_url"`
	Worker     Worker        `mapstructure:"worker"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3001)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("redis_url", "")
	v.SetDefault("worker.python_path", "")
	v.SetDefault("worker.plate_script", "./worker/plate_detect.py")
	v.SetDefault("worker.track_script", "./worker/object_track.py")
	v.SetDefault("worker.timeout", "30s")
	v.SetDefault("worker.max_procs", 4)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Workers: %d\n", cfg.Mode, cfg.Port, cfg.Worker.MaxProcs)
	return &cfg, nil
}
