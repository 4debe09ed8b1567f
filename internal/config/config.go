package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env       string
	AppSecret string
	Port      string
	SiteName  string
	SiteUrl   string

	// 远程电影 API
	APIBaseURL string
	APITimeout time.Duration

	// 会话状态容器与提示消息
	SessionTTL      time.Duration
	NoticeTTL       time.Duration
	NoticeCapacity  int
	CleanupInterval time.Duration

	LogLevel  string
	LogFormat string
	LogPath   string
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load 加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{
		Env:             v.GetString("app_env"),
		AppSecret:       v.GetString("app_secret"),
		Port:            v.GetString("port"),
		SiteName:        v.GetString("site_name"),
		SiteUrl:         v.GetString("site_url"),
		APIBaseURL:      strings.TrimRight(v.GetString("api_base_url"), "/"),
		APITimeout:      time.Duration(v.GetInt("api_timeout_secs")) * time.Second,
		SessionTTL:      time.Duration(v.GetInt("session_ttl_minutes")) * time.Minute,
		NoticeTTL:       time.Duration(v.GetInt("notice_ttl_seconds")) * time.Second,
		NoticeCapacity:  v.GetInt("notice_capacity"),
		CleanupInterval: time.Duration(v.GetInt("cleanup_interval_minutes")) * time.Minute,
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		LogPath:         v.GetString("log_path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() && cfg.AppSecret == defaultSecret {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return cfg, nil
}

// Validate 校验必填项与取值范围
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL 未设置")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL 无效: %q", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return errors.New("API_TIMEOUT_SECS 必须大于 0")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL_MINUTES 必须大于 0")
	}
	if c.NoticeTTL <= 0 {
		return errors.New("NOTICE_TTL_SECONDS 必须大于 0")
	}
	if c.NoticeCapacity <= 0 {
		return errors.New("NOTICE_CAPACITY 必须大于 0")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("CLEANUP_INTERVAL_MINUTES 必须大于 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("app_secret", defaultSecret)
	v.SetDefault("port", "5005")
	v.SetDefault("site_name", "O'Movies")
	v.SetDefault("site_url", "http://localhost:5005")

	v.SetDefault("api_base_url", "")
	v.SetDefault("api_timeout_secs", 30)

	v.SetDefault("session_ttl_minutes", 120)
	v.SetDefault("notice_ttl_seconds", 30)
	v.SetDefault("notice_capacity", 1024)
	v.SetDefault("cleanup_interval_minutes", 10)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_path", "")
}
