package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置。
type Config struct {
	Server ServerConfig `yaml:"server"`
	Export ExportConfig `yaml:"export"`
	Watch  WatchConfig  `yaml:"watch"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// AllowedOrigins 允许跨域/建立 watch 连接的宿主来源。
	// 开发期默认放行本地 Streamlit；线上应改成白名单。
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ExportConfig struct {
	// Dir 会话文档的导出目录。
	Dir string `yaml:"dir"`
}

type WatchConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default 返回本地可跑的默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8642,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			AllowedOrigins: []string{
				"http://localhost:8501", // Streamlit 默认端口
				"http://127.0.0.1:8501",
			},
		},
		Export: ExportConfig{Dir: "sessions"},
		Watch:  WatchConfig{WriteTimeout: 10 * time.Second},
	}
}

// Load 从文件加载配置；path 为空时直接用默认值。
// 导出目录可用环境变量 CCSPROBE_EXPORT_DIR 覆盖，方便 CI 重定向。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if dir := os.Getenv("CCSPROBE_EXPORT_DIR"); dir != "" {
		cfg.Export.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Export.Dir == "" {
		return fmt.Errorf("export dir is required")
	}
	return nil
}

// Addr 返回监听地址。
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
