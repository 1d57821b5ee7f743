// Package app holds process-wide service state.
package app

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
)

// ServiceName is reported in logs and on /health.
const ServiceName = "speech-to-jira"

// Application tracks readiness and uptime for the API process.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	ready atomic.Bool
}

// Status is a point-in-time view of the application.
type Status struct {
	Service            string        `json:"service"`
	Ready              bool          `json:"ready"`
	Uptime             time.Duration `json:"-"`
	UptimeSeconds      int64         `json:"uptimeSeconds"`
	STTProvider        string        `json:"sttProvider"`
	GenerationProvider string        `json:"generationProvider"`
}

// New creates an Application for cfg. logging.Init should already have run.
func New(cfg *config.Config) *Application {
	a := &Application{
		Cfg: cfg,
		Logger: logging.WithComponent("application").With().
			Str("service", ServiceName).
			Logger(),
	}
	a.Logger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("generationProvider", cfg.Generation.Provider).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("application created")
	return a
}

// Start marks the application ready to accept traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	a.Logger.Info().Time("startupTime", a.StartupTime).Msg("service started")
	return nil
}

// Ready reports whether the service accepts traffic.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Uptime returns the time since Start.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Status returns the current state for health reporting.
func (a *Application) Status() Status {
	up := a.Uptime()
	return Status{
		Service:            ServiceName,
		Ready:              a.Ready(),
		Uptime:             up,
		UptimeSeconds:      int64(up / time.Second),
		STTProvider:        a.Cfg.STT.Provider,
		GenerationProvider: a.Cfg.Generation.Provider,
	}
}

// Shutdown stops reporting ready so load balancers drain the instance.
func (a *Application) Shutdown() {
	a.ready.Store(false)
	a.Logger.Info().Dur("uptime", a.Uptime()).Msg("service shutting down")
}
