package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadConfDefaults(t *testing.T) {
	req := require.New(t)

	conf, err := ReadConf("")
	req.NoError(err)
	req.Equal(30*time.Second, conf.Timeout())
	req.Equal(300, conf.DefaultRequestsPerMinute)
	req.Equal(5, conf.MaxPagesPerPoll)
	req.Contains(conf.UserAgent, "fedilisten")
}

func TestReadConfFile(t *testing.T) {
	req := require.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
requestTimeoutMs: 10000
defaultRequestsPerMinute: 60
maxPagesPerPoll: 2
userAgent: "custom/1.0"
instanceLimits:
  https://mastodon.social: 120
`), 0o600)
	req.NoError(err)

	conf, err := ReadConf(path)
	req.NoError(err)
	req.Equal(10*time.Second, conf.Timeout())
	req.Equal(60, conf.DefaultRequestsPerMinute)
	req.Equal(2, conf.MaxPagesPerPoll)
	req.Equal("custom/1.0", conf.UserAgent)
	req.Equal(120, conf.InstanceLimits["https://mastodon.social"])
}

func TestReadConfEnvOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("FEDILISTEN_USER_AGENT", "env/1.0")
	t.Setenv("FEDILISTEN_RATE_LIMIT", "30")

	conf, err := ReadConf("")
	req.NoError(err)
	req.Equal("env/1.0", conf.UserAgent)
	req.Equal(30, conf.DefaultRequestsPerMinute)
}

func TestReadConfBadEnv(t *testing.T) {
	t.Setenv("FEDILISTEN_MAX_PAGES", "lots")
	_, err := ReadConf("")
	require.Error(t, err)
}

func TestReadConfMissingFile(t *testing.T) {
	_, err := ReadConf(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
