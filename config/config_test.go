package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keystone/xerrors"
)

const baseYAML = `
app:
  name: keystone
  port: 8773
component:
  local: false
  host: 10.0.0.1
netprobe:
  timeout: 2s
`

type appConfig struct {
	App struct {
		Name string `mapstructure:"name"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"app"`
	Component struct {
		Local bool   `mapstructure:"local"`
		Host  string `mapstructure:"host"`
	} `mapstructure:"component"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestLoader(t *testing.T, dir string) Loader {
	t.Helper()
	l, err := New(&Config{Name: "config", Paths: []string{dir}})
	require.NoError(t, err)
	return l
}

func TestNew_Defaults(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)

	impl := l.(*loader)
	assert.Equal(t, "config", impl.cfg.Name)
	assert.Equal(t, "yaml", impl.cfg.FileType)
	assert.Equal(t, DefaultEnvPrefix, impl.cfg.EnvPrefix)
	assert.Equal(t, []string{".", "./config"}, impl.cfg.Paths)
}

func TestNew_DoesNotMutateConfig(t *testing.T) {
	cfg := &Config{EnvPrefix: "app"}
	l, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.EnvPrefix)
	assert.Empty(t, cfg.Name)
	assert.Equal(t, "APP", l.(*loader).cfg.EnvPrefix)
}

func TestLoad_FileAndUnmarshal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(t.Context()))

	assert.Equal(t, "keystone", l.Get("app.name"))

	var cfg appConfig
	require.NoError(t, l.Unmarshal(&cfg))
	assert.Equal(t, "keystone", cfg.App.Name)
	assert.Equal(t, 8773, cfg.App.Port)
	assert.Equal(t, "10.0.0.1", cfg.Component.Host)

	var probe struct {
		Timeout time.Duration `mapstructure:"timeout"`
	}
	require.NoError(t, l.UnmarshalKey("netprobe", &probe))
	assert.Equal(t, 2*time.Second, probe.Timeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	t.Setenv("KEYSTONE_COMPONENT_HOST", "10.9.9.9")
	t.Setenv("KEYSTONE_COMPONENT_LOCAL", "true")

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(t.Context()))

	var cfg appConfig
	require.NoError(t, l.Unmarshal(&cfg))
	assert.Equal(t, "10.9.9.9", cfg.Component.Host)
	assert.True(t, cfg.Component.Local)
}

func TestLoad_EnvironmentFileMerged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	writeFile(t, dir, "config.prod.yaml", "app:\n  port: 9000\n")
	t.Setenv("KEYSTONE_ENV", "prod")

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(t.Context()))

	assert.Equal(t, 9000, l.(*loader).v.GetInt("app.port"))
	assert.Equal(t, "keystone", l.Get("app.name"))
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)
	writeFile(t, dir, ".env", "KEYSTONE_APP_NAME=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("KEYSTONE_APP_NAME") })

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(t.Context()))

	assert.Equal(t, "from-dotenv", l.Get("app.name"))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	l := newTestLoader(t, t.TempDir())

	err := l.Load(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.True(t, IsInvalidInput(err))
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "app: [unterminated\n")

	err := newTestLoader(t, dir).Load(t.Context())
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
}

func TestWatch_EmptyKey(t *testing.T) {
	l := newTestLoader(t, t.TempDir())
	_, err := l.Watch(t.Context(), "")
	assert.True(t, IsInvalidInput(err))
}

func TestWatch_ClosedOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	ch, err := l.Watch(ctx, "app.name")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestWatch_FileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", baseYAML)

	l := newTestLoader(t, dir)
	require.NoError(t, l.Load(t.Context()))

	ch, err := l.Watch(t.Context(), "app.name")
	require.NoError(t, err)

	// fsnotify 需要一点时间注册监听
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: renamed\n  port: 8773\n"), 0o600))

	select {
	case event := <-ch:
		assert.Equal(t, "app.name", event.Key)
		assert.Equal(t, "renamed", event.Value)
		assert.Equal(t, "keystone", event.OldValue)
		assert.Equal(t, "file", event.Source)
	case <-time.After(5 * time.Second):
		t.Skip("file change event not delivered, fsnotify may be unavailable")
	}
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad(&Config{Paths: []string{t.TempDir()}})
	})
}
