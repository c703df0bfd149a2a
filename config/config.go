package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// MaxUploadSize 选中图片的默认大小上限（4 MiB）
const MaxUploadSize = 4 * 1024 * 1024

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Removal RemovalConfig `mapstructure:"removal"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Surface SurfaceConfig `mapstructure:"surface"`
	Export  ExportConfig  `mapstructure:"export"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

// RemovalConfig 抠图服务，URL 和 Key 缺失时不在加载阶段报错，而是在调用时失败
type RemovalConfig struct {
	APIURL  string        `mapstructure:"api_url" validate:"omitempty,url"`
	APIKey  string        `mapstructure:"api_key"`
	Size    string        `mapstructure:"size" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio" validate:"gte=0,lte=1"`
}

type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size" validate:"gt=0"`
}

type SurfaceConfig struct {
	Width       int    `mapstructure:"width" validate:"gt=0"`
	Height      int    `mapstructure:"height" validate:"gt=0"`
	OverlayPath string `mapstructure:"overlay_path"`

	// 抠图结果最长边上限（0 不限制）；TrimCutout 裁掉四周透明区域后再按宽度的 1/3 缩放
	MaxCutoutSide int     `mapstructure:"max_cutout_side" validate:"gte=0"`
	TrimCutout    bool    `mapstructure:"trim_cutout"`
	TrimThreshold float64 `mapstructure:"trim_threshold" validate:"gte=0,lt=1"`

	// Interpolation 绘制缩放旋转图层时的插值方式
	Interpolation string `mapstructure:"interpolation" validate:"oneof=nearest bilinear catmullrom"`
}

type ExportConfig struct {
	Prefix     string `mapstructure:"prefix" validate:"required"`
	Dir        string `mapstructure:"dir"`
	PreviewMax int    `mapstructure:"preview_max" validate:"gt=0"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	SweepSpec string        `mapstructure:"sweep_spec"`
}

// Load 从 YAML 文件加载配置，configPath 为空时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New 使用默认配置路径加载配置，失败时退回默认配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		cfg, err = Load("")
		if err != nil {
			return Default()
		}
	}
	return cfg
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)

	v.SetDefault("removal.api_url", d.Removal.APIURL)
	v.SetDefault("removal.api_key", d.Removal.APIKey)
	v.SetDefault("removal.size", d.Removal.Size)
	v.SetDefault("removal.timeout", d.Removal.Timeout)

	v.SetDefault("breaker.enabled", d.Breaker.Enabled)
	v.SetDefault("breaker.max_requests", d.Breaker.MaxRequests)
	v.SetDefault("breaker.interval", d.Breaker.Interval)
	v.SetDefault("breaker.timeout", d.Breaker.Timeout)
	v.SetDefault("breaker.min_requests", d.Breaker.MinRequests)
	v.SetDefault("breaker.failure_ratio", d.Breaker.FailureRatio)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)

	v.SetDefault("surface.width", d.Surface.Width)
	v.SetDefault("surface.height", d.Surface.Height)
	v.SetDefault("surface.overlay_path", d.Surface.OverlayPath)
	v.SetDefault("surface.max_cutout_side", d.Surface.MaxCutoutSide)
	v.SetDefault("surface.trim_cutout", d.Surface.TrimCutout)
	v.SetDefault("surface.trim_threshold", d.Surface.TrimThreshold)
	v.SetDefault("surface.interpolation", d.Surface.Interpolation)

	v.SetDefault("export.prefix", d.Export.Prefix)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.preview_max", d.Export.PreviewMax)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("session.idle_ttl", d.Session.IdleTTL)
	v.SetDefault("session.sweep_spec", d.Session.SweepSpec)
}

// bindEnv YEEZY_REMOVAL_API_URL 这类变量覆盖配置；API_URL/API_KEY 直接对应抠图服务
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("YEEZY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("removal.api_url", "YEEZY_REMOVAL_API_URL", "API_URL")
	_ = v.BindEnv("removal.api_key", "YEEZY_REMOVAL_API_KEY", "API_KEY")
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: ":8080",
			Mode: "debug",
		},
		Removal: RemovalConfig{
			Size:    "auto",
			Timeout: 30 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			MinRequests:  5,
			FailureRatio: 0.8,
		},
		Upload: UploadConfig{
			MaxSize: MaxUploadSize,
		},
		Surface: SurfaceConfig{
			Width:         800,
			Height:        600,
			MaxCutoutSide: 2048,
			TrimThreshold: 0.5,
			Interpolation: "catmullrom",
		},
		Export: ExportConfig{
			Prefix:     "Yeezy",
			Dir:        "./output",
			PreviewMax: 400,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
		Session: SessionConfig{
			IdleTTL:   30 * time.Minute,
			SweepSpec: "@every 1m",
		},
	}
}
