package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type GitHubConfig struct {
	APIBase       string `mapstructure:"api_base"`        // 默认 https://api.github.com
	UserAgent     string `mapstructure:"user_agent"`      // 请求 UA
	PageDelayMs   int    `mapstructure:"page_delay_ms"`   // 翻页间隔
	DetailDelayMs int    `mapstructure:"detail_delay_ms"` // 用户详情请求间隔
}

type GeocodingConfig struct {
	APIBase       string `mapstructure:"api_base"`
	APIKey        string `mapstructure:"api_key"`
	LookupDelayMs int    `mapstructure:"lookup_delay_ms"` // 地理解析请求间隔
}

type AnalysisConfig struct {
	DefaultMaxStargazers int `mapstructure:"default_max_stargazers"`
	MaxStargazersLimit   int `mapstructure:"max_stargazers_limit"`
	FreshnessHours       int `mapstructure:"freshness_hours"`
}

type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

type RetentionConfig struct {
	TaskMaxAgeDays int `mapstructure:"task_max_age_days"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("github.api_base", "https://api.github.com")
	viper.SetDefault("github.user_agent", "GitHub-Stargazers-Map")
	viper.SetDefault("github.page_delay_ms", 1000)
	viper.SetDefault("github.detail_delay_ms", 100)
	viper.SetDefault("geocoding.api_base", "https://maps.googleapis.com")
	viper.SetDefault("geocoding.lookup_delay_ms", 50)
	viper.SetDefault("analysis.default_max_stargazers", 1000)
	viper.SetDefault("analysis.max_stargazers_limit", 10000)
	viper.SetDefault("analysis.freshness_hours", 24)
	viper.SetDefault("worker.pool_size", 4)
	viper.SetDefault("worker.queue_size", 64)
	viper.SetDefault("retention.task_max_age_days", 30)
}
