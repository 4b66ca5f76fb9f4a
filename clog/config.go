package clog

import (
	"fmt"
	"strings"
)

// Config 日志配置
//
//	Level:     debug|info|warn|error|fatal
//	Format:    json|console
//	Output:    stdout|stderr|<文件路径>
//	AddSource: 是否输出调用位置
type Config struct {
	Level     string `json:"level" yaml:"level" mapstructure:"level"`
	Format    string `json:"format" yaml:"format" mapstructure:"format"`
	Output    string `json:"output" yaml:"output" mapstructure:"output"`
	AddSource bool   `json:"addSource" yaml:"addSource" mapstructure:"add_source"`
}

// NewDevDefaultConfig 开发环境默认配置：debug 级别、console 格式
func NewDevDefaultConfig(_ string) *Config {
	return &Config{
		Level:     "debug",
		Format:    "console",
		Output:    "stdout",
		AddSource: true,
	}
}

// NewProdDefaultConfig 生产环境默认配置：info 级别、json 格式
func NewProdDefaultConfig(_ string) *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// validate 填充默认值并校验
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	format := strings.ToLower(c.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("invalid format: %s, must be json or console", c.Format)
	}
	return nil
}
