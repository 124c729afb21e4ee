package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/setanarut/inksep"
)

// EnvPrefix prefixes environment overrides: INKSEP_ORACLE_API_KEY sets
// oracle.api_key.
const EnvPrefix = "INKSEP"

type Config struct {
	Separation SeparationConfig `mapstructure:"separation"`
	Hybrid     HybridConfig     `mapstructure:"hybrid"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Server     ServerConfig     `mapstructure:"server"`
}

type SeparationConfig struct {
	Method    string  `mapstructure:"method"`
	Tolerance float64 `mapstructure:"tolerance"`
	Dither    string  `mapstructure:"dither"`
	Halftone  string  `mapstructure:"halftone"`
}

type HybridConfig struct {
	MinRegionSize   int               `mapstructure:"min_region_size"`
	EdgeSensitivity float64           `mapstructure:"edge_sensitivity"`
	BlendEdges      bool              `mapstructure:"blend_edges"`
	BlendRadius     int               `mapstructure:"blend_radius"`
	DetailLevel     string            `mapstructure:"detail_level"`
	Workers         int               `mapstructure:"workers"`
	RegionMethods   map[string]string `mapstructure:"region_methods"`
}

type OracleConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether an oracle endpoint is configured.
func (o OracleConfig) Enabled() bool { return o.Endpoint != "" }

type CacheConfig struct {
	// none, memory or redis
	Backend string `mapstructure:"backend"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	Mode          string        `mapstructure:"mode"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
}

// Load reads a YAML file when configPath is non-empty, then applies
// INKSEP_ environment overrides on top of the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	return &cfg, nil
}

// New loads configPath and falls back to defaults plus environment when the
// file is missing or invalid.
func New(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		cfg, err = Load("")
		if err != nil {
			return Default()
		}
	}
	return cfg
}

// Default returns the built-in configuration without reading the
// environment.
func Default() *Config {
	d := inksep.DefaultOptions()
	return &Config{
		Separation: SeparationConfig{
			Method:    inksep.MethodSpotColor.String(),
			Tolerance: d.Tolerance,
			Dither:    string(d.Dither),
			Halftone:  string(d.Halftone),
		},
		Hybrid: HybridConfig{
			MinRegionSize:   d.MinRegionSize,
			EdgeSensitivity: d.EdgeSensitivity,
			BlendEdges:      d.BlendEdges,
			BlendRadius:     d.BlendRadius,
			DetailLevel:     string(d.DetailLevel),
		},
		Oracle: OracleConfig{Timeout: 30 * time.Second},
		Cache:  CacheConfig{Backend: "memory"},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			TTL:    24 * time.Hour,
			Prefix: "inksep:",
		},
		Server: ServerConfig{
			Port:          ":8080",
			Mode:          "debug",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  120 * time.Second,
			MaxUploadSize: 20 * 1024 * 1024,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("separation.method", d.Separation.Method)
	v.SetDefault("separation.tolerance", d.Separation.Tolerance)
	v.SetDefault("separation.dither", d.Separation.Dither)
	v.SetDefault("separation.halftone", d.Separation.Halftone)

	v.SetDefault("hybrid.min_region_size", d.Hybrid.MinRegionSize)
	v.SetDefault("hybrid.edge_sensitivity", d.Hybrid.EdgeSensitivity)
	v.SetDefault("hybrid.blend_edges", d.Hybrid.BlendEdges)
	v.SetDefault("hybrid.blend_radius", d.Hybrid.BlendRadius)
	v.SetDefault("hybrid.detail_level", d.Hybrid.DetailLevel)
	v.SetDefault("hybrid.workers", d.Hybrid.Workers)
	v.SetDefault("hybrid.region_methods", map[string]string{})

	v.SetDefault("oracle.endpoint", d.Oracle.Endpoint)
	v.SetDefault("oracle.api_key", d.Oracle.APIKey)
	v.SetDefault("oracle.model", d.Oracle.Model)
	v.SetDefault("oracle.timeout", d.Oracle.Timeout)

	v.SetDefault("cache.backend", d.Cache.Backend)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("redis.prefix", d.Redis.Prefix)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_upload_size", d.Server.MaxUploadSize)
}

// Method returns the configured default separation method.
func (c *Config) Method() (inksep.Method, error) {
	return inksep.ParseMethod(c.Separation.Method)
}

// Options maps the separation and hybrid sections onto inksep.Options.
func (c *Config) Options() (inksep.Options, error) {
	opt := inksep.Options{
		Tolerance:       c.Separation.Tolerance,
		Dither:          inksep.Dither(c.Separation.Dither),
		Halftone:        inksep.Halftone(c.Separation.Halftone),
		MinRegionSize:   c.Hybrid.MinRegionSize,
		EdgeSensitivity: c.Hybrid.EdgeSensitivity,
		DetailLevel:     inksep.DetailLevel(c.Hybrid.DetailLevel),
		BlendEdges:      c.Hybrid.BlendEdges,
		BlendRadius:     c.Hybrid.BlendRadius,
		Workers:         c.Hybrid.Workers,
	}
	if len(c.Hybrid.RegionMethods) > 0 {
		opt.RegionMethods = make(map[string]inksep.Method, len(c.Hybrid.RegionMethods))
		for id, name := range c.Hybrid.RegionMethods {
			m, err := inksep.ParseMethod(name)
			if err != nil {
				return opt, fmt.Errorf("hybrid.region_methods.%s: %w", id, err)
			}
			opt.RegionMethods[id] = m
		}
	}
	return opt, opt.Validate()
}
