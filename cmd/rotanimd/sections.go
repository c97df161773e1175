package main

import (
	"time"

	"rotanim/pkg/config"
	"rotanim/pkg/host"
	"rotanim/pkg/telemetry"
)

// hostSection is the [host] section.
type hostSection struct {
	cfg host.Config
}

func (m *hostSection) GetName() string { return "host" }

func newHostSection(sec *config.Section) (config.Module, error) {
	def := host.DefaultConfig()
	tick, err := sec.GetDuration("tick", def.Tick)
	if err != nil {
		return nil, err
	}
	maxStep, err := sec.GetDuration("max_step", def.MaxStep)
	if err != nil {
		return nil, err
	}
	publish, err := sec.GetDuration("publish_interval", def.PublishInterval)
	if err != nil {
		return nil, err
	}
	if tick <= 0 {
		return nil, config.ErrOutOfRange(sec.GetName(), "tick", tick.Seconds(), "must be above 0")
	}
	return &hostSection{cfg: host.Config{Tick: tick, MaxStep: maxStep, PublishInterval: publish}}, nil
}

// telemetrySection is the [telemetry] section. Origins can change live.
type telemetrySection struct {
	cfg     telemetry.Config
	enabled bool
	server  *telemetry.Server
}

func (m *telemetrySection) GetName() string { return "telemetry" }

func (m *telemetrySection) CanReload() bool { return m.server != nil }

func (m *telemetrySection) Reload(sec *config.Section) error {
	origins, err := sec.GetList("allowed_origins", ",", nil)
	if err != nil {
		return err
	}
	m.cfg.AllowedOrigins = origins
	m.server.SetAllowedOrigins(origins)
	return nil
}

func newTelemetrySection(sec *config.Section) (config.Module, error) {
	addr, err := sec.Get("address", ":7125")
	if err != nil {
		return nil, err
	}
	timeout, err := sec.GetDuration("call_timeout", 2*time.Second)
	if err != nil {
		return nil, err
	}
	origins, err := sec.GetList("allowed_origins", ",", nil)
	if err != nil {
		return nil, err
	}
	enabled, err := sec.GetBool("enabled", true)
	if err != nil {
		return nil, err
	}
	return &telemetrySection{
		cfg:     telemetry.Config{Addr: addr, CallTimeout: timeout, AllowedOrigins: origins},
		enabled: enabled,
	}, nil
}

// metricsSection is the [metrics] section.
type metricsSection struct {
	addr     string
	username string
	password string
	enabled  bool
}

func (m *metricsSection) GetName() string { return "metrics" }

func newMetricsSection(sec *config.Section) (config.Module, error) {
	addr, err := sec.Get("address", ":9464")
	if err != nil {
		return nil, err
	}
	user, err := sec.Get("username", "")
	if err != nil {
		return nil, err
	}
	pass, err := sec.Get("password", "")
	if err != nil {
		return nil, err
	}
	enabled, err := sec.GetBool("enabled", true)
	if err != nil {
		return nil, err
	}
	return &metricsSection{addr: addr, username: user, password: pass, enabled: enabled}, nil
}

func newRegistry() *config.Registry {
	r := config.NewRegistry()
	r.Register("host", newHostSection)
	r.Register("telemetry", newTelemetrySection)
	r.Register("metrics", newMetricsSection)
	return r
}

// settings are the daemon sections after loading, with defaults for the
// ones the file leaves out.
type settings struct {
	host      *hostSection
	telemetry *telemetrySection
	metrics   *metricsSection
}

func loadSettings(r *config.Registry, cfg *config.Config) (*settings, error) {
	if _, err := r.LoadModules(cfg); err != nil {
		return nil, err
	}
	s := &settings{
		host:      &hostSection{cfg: host.DefaultConfig()},
		telemetry: &telemetrySection{cfg: telemetry.Config{Addr: ":7125", CallTimeout: 2 * time.Second}, enabled: true},
		metrics:   &metricsSection{addr: ":9464", enabled: true},
	}
	if m, ok := r.GetModule("host").(*hostSection); ok {
		s.host = m
	}
	if m, ok := r.GetModule("telemetry").(*telemetrySection); ok {
		s.telemetry = m
	}
	if m, ok := r.GetModule("metrics").(*metricsSection); ok {
		s.metrics = m
	}
	for _, sec := range []string{"host", "telemetry", "metrics"} {
		if section := cfg.GetSectionOptional(sec); section != nil {
			if unused := section.GetUnusedOptions(); len(unused) > 0 {
				return nil, config.NewConfigError(sec, unused[0], "unknown option")
			}
		}
	}
	return s, nil
}
