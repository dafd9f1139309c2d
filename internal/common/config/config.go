// Package config loads the YAML configuration shared by the attestation
// binaries. Every field has a default so an empty or absent file yields a
// working configuration.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	LogLevel   string           `yaml:"logLevel" mapstructure:"logLevel"`
	Proxy      ProxyConfig      `yaml:"proxy" mapstructure:"proxy"`
	Collateral CollateralConfig `yaml:"collateral" mapstructure:"collateral"`
	Devices    DevicesConfig    `yaml:"devices" mapstructure:"devices"`
}

// ProxyConfig configures the RA proxy HTTP service.
type ProxyConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	EnableCORS     bool          `yaml:"enableCORS" mapstructure:"enableCORS"`
	RatePerSecond  float64       `yaml:"ratePerSecond" mapstructure:"ratePerSecond"`
	RateBurst      int           `yaml:"rateBurst" mapstructure:"rateBurst"`
	CacheSize      int           `yaml:"cacheSize" mapstructure:"cacheSize"`
	CacheTTL       time.Duration `yaml:"cacheTTL" mapstructure:"cacheTTL"`
	RequestTimeout time.Duration `yaml:"requestTimeout" mapstructure:"requestTimeout"`
}

// CollateralConfig configures collateral fetching.
type CollateralConfig struct {
	HygonBaseURL string        `yaml:"hygonBaseURL" mapstructure:"hygonBaseURL"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DevicesConfig configures the TEE kernel interfaces used by generation.
type DevicesConfig struct {
	Csv    string `yaml:"csv" mapstructure:"csv"`
	Sgx    string `yaml:"sgx" mapstructure:"sgx"`
	TdxTsm string `yaml:"tdxTsm" mapstructure:"tdxTsm"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("proxy.host", "0.0.0.0")
	v.SetDefault("proxy.port", 8530)
	v.SetDefault("proxy.enableCORS", true)
	v.SetDefault("proxy.ratePerSecond", 100.0)
	v.SetDefault("proxy.rateBurst", 20)
	v.SetDefault("proxy.cacheSize", 1024)
	v.SetDefault("proxy.cacheTTL", time.Hour)
	v.SetDefault("proxy.requestTimeout", 30*time.Second)
	v.SetDefault("collateral.hygonBaseURL", "https://cert.hygon.cn")
	v.SetDefault("collateral.timeout", 30*time.Second)
	v.SetDefault("devices.csv", "/dev/csv-guest")
	v.SetDefault("devices.sgx", "/dev/sgx")
	v.SetDefault("devices.tdxTsm", "/sys/kernel/config/tsm/report")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always unmarshal.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads a YAML configuration file. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}
