// Package config 基于 Viper 加载 keystone 的配置。
//
// 优先级从高到低：环境变量 > .env 文件 > <name>.<env>.yaml > <name>.yaml。
// 环境由 <PREFIX>_ENV 指定，如 KEYSTONE_ENV=prod 会合并 config.prod.yaml。
//
//	loader, err := config.New(&config.Config{Name: "config", Paths: []string{"./config"}},
//		config.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	var cfg AppConfig
//	_ = loader.Unmarshal(&cfg)
//
//	ch, _ := loader.Watch(ctx, "clog.level")
//	for event := range ch {
//		if lvl, err := clog.ParseLevel(fmt.Sprint(event.Value)); err == nil {
//			_ = logger.SetLevel(lvl)
//		}
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 读取全部来源并开始监听配置文件
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体（使用 mapstructure 标签）
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
