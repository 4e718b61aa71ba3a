package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/xylem/pkg/engine"
	"github.com/chazu/xylem/pkg/paver"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Zero(t, cfg.Fuzzy)
	assert.False(t, cfg.Parallel)
	assert.Equal(t, "off", cfg.Glue)
	assert.True(t, cfg.CheckInverted)
	assert.Equal(t, engine.EvalTimeout, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XYLEM_FUZZY", "0.001")
	t.Setenv("XYLEM_PARALLEL", "true")
	t.Setenv("XYLEM_GLUE", "shift")
	t.Setenv("XYLEM_TIMEOUT", "250ms")

	v := viper.New()
	v.SetEnvPrefix("XYLEM")
	v.AutomaticEnv()
	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 0.001, cfg.Fuzzy)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, "shift", cfg.Glue)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)

	opts := cfg.PaverOptions(nil)
	assert.Equal(t, paver.GlueShift, opts.Glue)
	assert.True(t, opts.RunParallel)
	assert.Equal(t, 0.001, opts.Fuzzy)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".xylem.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 3\nuse_obb = true\nlog_format = \"json\"\n"), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.UseOBB)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"negative fuzzy", "fuzzy", -1.0},
		{"negative workers", "workers", -2},
		{"bad glue", "glue", "sticky"},
		{"bad level", "log_level", "loud"},
		{"bad format", "log_format", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := LoadFrom(v)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := Config{LogLevel: "warn", LogFormat: "json"}.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	Config{LogLevel: "debug"}.NewLogger(&buf).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestAppOptions(t *testing.T) {
	cfg := Config{Timeout: time.Second, Fuzzy: 0.5, Glue: "full"}
	opts := cfg.AppOptions(nil)
	assert.Equal(t, time.Second, opts.Engine.Timeout)
	assert.Equal(t, paver.GlueFull, opts.Paver.Glue)
	assert.Equal(t, 0.5, opts.Paver.Fuzzy)
}
