package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 登记cleanup后清掉, 让godotenv可以写入, 测试结束自动还原
func unsetEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestDefaults(t *testing.T) {
	unsetEnv(t, EnvPrefix+"TARGET", EnvPrefix+"ENDPOINT")
	conf, err := LoadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, "/home/groups", conf.Endpoint)
	assert.Equal(t, "group-list", conf.Target)
	assert.Equal(t, "info", conf.LogLevel)
}

func TestLoadOrder(t *testing.T) {
	dir := t.TempDir()
	jsonFile := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{
		"base_url": "http://groups.local:8000",
		"target": "from-json",
		"request_timeout_ms": 3000,
		"log_level": "debug"
	}`), 0644))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"GROUPREFRESH_TARGET=from-dotenv\nGROUPREFRESH_ENDPOINT=/partials/groups\nGROUPREFRESH_TIME_OFFSET_MS=-1500\n"), 0644))

	unsetEnv(t, EnvPrefix+"TARGET", EnvPrefix+"ENDPOINT", EnvPrefix+"TIME_OFFSET_MS")
	t.Setenv(EnvPrefix+"TARGET", "from-env")
	t.Setenv(EnvPrefix+"LOG_STD_OUT", "false")

	conf, err := LoadConfig(jsonFile, envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://groups.local:8000", conf.BaseURL)
	assert.Equal(t, "from-env", conf.Target)
	assert.Equal(t, "/partials/groups", conf.Endpoint)
	assert.Equal(t, int64(-1500), conf.TimeOffsetMs)
	assert.Equal(t, 3000, conf.RequestTimeoutMs)
	assert.Equal(t, "debug", conf.LogLevel)
	assert.False(t, conf.LogStdOut)
	assert.Contains(t, conf.JsonFormat(), `"log_level": "debug"`)
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv(EnvPrefix+"REQUEST_TIMEOUT_MS", "soon")
	_, err := LoadConfig("", "")
	assert.Error(t, err)
}

func TestMissingFiles(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"), "")
	assert.Error(t, err)
	_, err = LoadConfig("", filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}
