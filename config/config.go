package config

import (
	"context"
	"strings"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "KEYSTONE"

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名（不含扩展名），默认 "config"
	Paths     []string // 搜索路径，默认 [".", "./config"]
	FileType  string   // 文件类型，默认 "yaml"
	EnvPrefix string   // 环境变量前缀，默认 "KEYSTONE"
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = DefaultEnvPrefix
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// New 创建加载器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.setDefaults()
	return newLoader(&c, opts...), nil
}

// MustLoad 创建并加载，失败时 panic，适合 main 中使用
func MustLoad(cfg *Config, opts ...Option) Loader {
	l, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}
