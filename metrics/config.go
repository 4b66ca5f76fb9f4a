package metrics

// Config 指标配置
//
//	metrics:
//	  enabled: true
//	  service_name: "keystone"
//	  version: "v0.1.0"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 作为 service.version
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动 Prometheus HTTP 服务
	Port int `mapstructure:"port"`

	// Path Prometheus 采集路径，必须以 "/" 开头
	Path string `mapstructure:"path"`
}

// NewDevDefaultConfig 启用指标但不暴露 HTTP 端口，适合开发与测试
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
	}
}
