package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/imathwy/tbps/internal/client"
	"github.com/imathwy/tbps/internal/config"
	"github.com/imathwy/tbps/internal/health"
	"github.com/imathwy/tbps/internal/search"
	"github.com/imathwy/tbps/internal/server"
	stream "github.com/imathwy/tbps/internal/stream/redis"
	"github.com/rs/zerolog"
)

const redisConnectAttempts = 3

type Config struct {
	Server         string
	MockURL        string
	ProductionURL  string
	HTTPTimeout    time.Duration
	HealthInterval time.Duration
	HealthDedupe   time.Duration
	LogLevel       string
	RedisAddr      string
	RedisPassword  string
	EventStream    string
}

type Dependencies struct {
	Registry     *server.Registry
	Selection    *server.Selection
	Client       *client.Client
	Poller       *health.Poller
	Orchestrator *search.Orchestrator
	// Nil when no event stream is configured or Redis is unreachable.
	Events *stream.Publisher
	Logger *zerolog.Logger

	closers []func() error
}

// LoadConfig layers environment variables over the servers file, which in
// turn sits on top of the built-in defaults.
func LoadConfig() (*Config, error) {
	file, err := config.LoadServersConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load servers config: %w", err)
	}

	return &Config{
		Server:         getEnv("TBPS_SERVER", file.DefaultServer),
		MockURL:        getEnv("TBPS_MOCK_URL", file.Servers.Mock.URL),
		ProductionURL:  getEnv("TBPS_PRODUCTION_URL", file.Servers.Production.URL),
		HTTPTimeout:    getEnvDuration("TBPS_HTTP_TIMEOUT", file.HTTPTimeout),
		HealthInterval: getEnvDuration("TBPS_HEALTH_INTERVAL", file.Health.Interval),
		HealthDedupe:   getEnvDuration("TBPS_HEALTH_DEDUPE", file.Health.DedupeWindow),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		EventStream:    getEnv("TBPS_EVENT_STREAM", stream.DefaultStream),
	}, nil
}

func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	sel, err := server.ParseSelector(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("invalid TBPS_SERVER: %w", err)
	}

	registry := server.NewRegistry(cfg.MockURL, cfg.ProductionURL)
	selection := server.NewSelection(sel)
	apiClient := client.NewClient(registry, cfg.HTTPTimeout, logger)

	poller := health.NewPoller(apiClient, selection, health.Options{
		Interval:     cfg.HealthInterval,
		DedupeWindow: cfg.HealthDedupe,
	}, logger)

	orchestrator := search.NewOrchestrator(apiClient, selection, logger)

	deps := &Dependencies{
		Registry:     registry,
		Selection:    selection,
		Client:       apiClient,
		Poller:       poller,
		Orchestrator: orchestrator,
		Logger:       logger,
	}

	// Event stream is optional; searches work without it.
	streamCfg := stream.NewStreamConfig(cfg.RedisAddr, cfg.RedisPassword, cfg.EventStream)
	if streamCfg.Enabled() {
		rdb, err := stream.ConnectRedis(ctx, streamCfg, redisConnectAttempts, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Search events disabled")
		} else {
			deps.Events = stream.NewPublisher(rdb, streamCfg, logger)
			deps.closers = append(deps.closers, rdb.Close)
			orchestrator.WithEvents(deps.Events)
		}
	}

	logger.Debug().
		Str("server", string(sel)).
		Str("mock_url", cfg.MockURL).
		Str("production_url", cfg.ProductionURL).
		Dur("http_timeout", cfg.HTTPTimeout).
		Bool("events", deps.Events != nil).
		Msg("Dependencies wired")

	return deps, nil
}

// Close stops background work and releases connections.
func (d *Dependencies) Close() {
	d.Poller.Stop()
	d.Orchestrator.Close()
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close dependency")
		}
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}

	return defaultValue
}
