package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/keystone/clog"
	"github.com/ceyewan/keystone/xerrors"
)

type loader struct {
	v      *viper.Viper
	cfg    *Config
	logger clog.Logger

	mu        sync.Mutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(cfg *Config, opts ...Option) *loader {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return &loader{
		v:         viper.New(),
		cfg:       cfg,
		logger:    o.logger,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

func (l *loader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, path := range l.cfg.Paths {
		l.v.AddConfigPath(path)
	}

	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	// .env 写入进程环境变量，不覆盖已有值
	if loaded := l.loadDotEnv(); len(loaded) > 0 {
		l.logger.DebugContext(ctx, "loaded .env files", clog.Any("files", loaded))
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(xerrors.ErrInvalidInput, "read config %s: %v", l.cfg.Name, err)
		}
		l.logger.WarnContext(ctx, "no configuration file found", clog.Any("paths", l.cfg.Paths))
	} else {
		l.logger.InfoContext(ctx, "configuration loaded", clog.String("file", l.v.ConfigFileUsed()))
	}

	if err := l.mergeEnvironmentConfig(); err != nil {
		return err
	}

	if err := l.Validate(); err != nil {
		return err
	}

	if l.v.ConfigFileUsed() != "" {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			if err := l.mergeEnvironmentConfig(); err != nil {
				l.logger.Error("failed to reload environment config", clog.Error(err))
			}
			l.notifyWatches(e)
		})
		l.v.WatchConfig()
	}
	return nil
}

// loadDotEnv 依次尝试工作目录和各搜索路径下的 .env
func (l *loader) loadDotEnv() []string {
	var loaded []string
	candidates := []string{".env"}
	for _, path := range l.cfg.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}
	seen := make(map[string]bool)
	for _, file := range candidates {
		file = filepath.Clean(file)
		if seen[file] {
			continue
		}
		seen[file] = true
		if err := godotenv.Load(file); err == nil {
			loaded = append(loaded, file)
		}
	}
	return loaded
}

// mergeEnvironmentConfig 合并 <name>.<env> 配置
func (l *loader) mergeEnvironmentConfig() error {
	env := os.Getenv(l.cfg.EnvPrefix + "_ENV")
	if env == "" {
		return nil
	}

	// SetConfigName 会清空已定位的文件，合并后要恢复，否则 WatchConfig 找不到基础文件
	used := l.v.ConfigFileUsed()
	name := l.cfg.Name + "." + env
	l.v.SetConfigName(name)
	defer func() {
		if used != "" {
			l.v.SetConfigFile(used)
		} else {
			l.v.SetConfigName(l.cfg.Name)
		}
	}()

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(xerrors.ErrInvalidInput, "merge config %s: %v", name, err)
		}
		l.logger.Info("no environment configuration file", clog.String("env", env))
		return nil
	}
	l.logger.Info("environment configuration merged", clog.String("env", env))
	return nil
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

func (l *loader) Unmarshal(v any) error {
	if err := l.v.Unmarshal(v); err != nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unmarshal config: %v", err)
	}
	return nil
}

func (l *loader) UnmarshalKey(key string, v any) error {
	if err := l.v.UnmarshalKey(key, v); err != nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unmarshal %s: %v", key, err)
	}
	return nil
}

func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "config: watch key is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	if _, ok := l.oldValues[key]; !ok {
		l.oldValues[key] = l.v.Get(key)
	}

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()
	return ch, nil
}

func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	}
	close(ch)
}

func (l *loader) Validate() error {
	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "configuration is empty")
	}
	return nil
}

func (l *loader) notifyWatches(_ fsnotify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, channels := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		l.oldValues[key] = newValue

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Source:    "file",
			Timestamp: time.Now(),
		}
		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.logger.Warn("watch channel is full, event dropped", clog.String("key", key))
			}
		}
	}
}
