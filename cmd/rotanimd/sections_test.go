package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotanim/pkg/config"
	"rotanim/pkg/host"
)

const daemonConfig = `
[host]
tick: 0.02
publish_interval: 0.1

[telemetry]
address: 127.0.0.1:7200
allowed_origins: http://a.example, http://b.example

[metrics]
enabled: false

[submodel door01]
max_hits: 10
`

func TestLoadSettings(t *testing.T) {
	cfg, err := config.LoadString(daemonConfig)
	require.NoError(t, err)

	s, err := loadSettings(newRegistry(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Millisecond, s.host.cfg.Tick)
	assert.Equal(t, host.DefaultConfig().MaxStep, s.host.cfg.MaxStep)
	assert.Equal(t, 100*time.Millisecond, s.host.cfg.PublishInterval)
	assert.Equal(t, "127.0.0.1:7200", s.telemetry.cfg.Addr)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, s.telemetry.cfg.AllowedOrigins)
	assert.True(t, s.telemetry.enabled)
	assert.False(t, s.metrics.enabled)
	assert.Equal(t, ":9464", s.metrics.addr)
}

func TestLoadSettingsDefaults(t *testing.T) {
	cfg, err := config.LoadString("[submodel door01]\nmax_hits: 10\n")
	require.NoError(t, err)

	s, err := loadSettings(newRegistry(), cfg)
	require.NoError(t, err)
	assert.Equal(t, host.DefaultConfig(), s.host.cfg)
	assert.Equal(t, ":7125", s.telemetry.cfg.Addr)
	assert.Equal(t, 2*time.Second, s.telemetry.cfg.CallTimeout)
	assert.True(t, s.metrics.enabled)
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown option", "[host]\nticks: 0.01\n"},
		{"zero tick", "[host]\ntick: 0\n"},
		{"bad duration", "[telemetry]\ncall_timeout: soon\n"},
		{"bad bool", "[metrics]\nenabled: maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadString(tt.data)
			require.NoError(t, err)
			_, err = loadSettings(newRegistry(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := config.LoadString(daemonConfig)
	require.NoError(t, err)
	s, err := loadSettings(newRegistry(), cfg)
	require.NoError(t, err)

	overrides{telemetry: ":8000", metrics: ":9000", tick: 5 * time.Millisecond}.apply(s)
	assert.Equal(t, ":8000", s.telemetry.cfg.Addr)
	assert.Equal(t, ":9000", s.metrics.addr)
	assert.True(t, s.metrics.enabled)
	assert.Equal(t, 5*time.Millisecond, s.host.cfg.Tick)

	overrides{metrics: "OFF"}.apply(s)
	assert.False(t, s.metrics.enabled)
}

func TestTelemetryReloadable(t *testing.T) {
	cfg, err := config.LoadString(daemonConfig)
	require.NoError(t, err)
	m, err := newTelemetrySection(cfg.GetSectionOptional("telemetry"))
	require.NoError(t, err)

	ts := m.(*telemetrySection)
	assert.False(t, ts.CanReload(), "no server attached yet")
	var _ config.Reloadable = ts
}

func TestIsYAML(t *testing.T) {
	assert.True(t, isYAML("model.yaml"))
	assert.True(t, isYAML("MODEL.YML"))
	assert.False(t, isYAML("carrier.cfg"))
}
