package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/fitclub/internal/config"
	"github.com/2beens/fitclub/internal/db"
	"github.com/2beens/fitclub/internal/middleware"
	"github.com/2beens/fitclub/internal/misc"
	"github.com/2beens/fitclub/internal/store"
	"github.com/2beens/fitclub/internal/telemetry/metrics"
	"github.com/2beens/fitclub/internal/telemetry/tracing"
	"github.com/2beens/fitclub/internal/tracker"
)

const serviceName = "fitclub-backend"

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	store       *store.Store
	tracker     *tracker.Tracker
	versionInfo string

	// only set with the redis backend, used for rate limiting
	redisClient *redis.Client

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
	VersionInfo             string
	// Now overrides the tracker clock.
	Now func() time.Time
}

type backendSetup struct {
	backend    store.Backend
	rdb        *redis.Client
	collectors []prometheus.Collector
}

func newBackend(ctx context.Context, params NewServerParams) (*backendSetup, error) {
	cfg := params.Config
	switch strings.ToLower(cfg.StoreBackend) {
	case "memory":
		log.Debugf("store: in-memory, %d MB", cfg.MemoryStoreSizeMB)
		return &backendSetup{
			backend: store.NewMemoryBackend(cfg.MemoryStoreSizeMB),
		}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Debugf("store: redis db %d, ping: %s", cfg.RedisDB, rdbStatus.Val())
		return &backendSetup{
			backend: store.NewRedisBackend(rdb),
			rdb:     rdb,
		}, nil

	case "postgres":
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.PostgresPassword,
			DBName:         cfg.PostgresDBName,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		backend, err := store.NewPostgresBackend(ctx, dbPool)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		log.Debugf("store: postgres [%s]", cfg.PostgresDBName)
		return &backendSetup{
			backend:    backend,
			collectors: []prometheus.Collector{db.NewPoolCollector(dbPool, cfg.PostgresDBName)},
		}, nil

	case "sqlite":
		backend, err := store.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Debugf("store: sqlite [%s]", cfg.SQLitePath)
		return &backendSetup{backend: backend}, nil

	default:
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownBackend, cfg.StoreBackend)
	}
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	setup, err := newBackend(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("store backend: %w", err)
	}

	promRegistry := metrics.SetupPrometheus(setup.collectors...)
	metricsManager := metrics.NewManager("fitclub", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, serviceName, setup.rdb)
	if err != nil {
		_ = setup.backend.Close()
		return nil, err
	}

	kvStore := store.NewStore(setup.backend, metricsManager)
	t := tracker.NewTracker(tracker.Params{
		Store:      kvStore,
		Metrics:    metricsManager,
		DailyReset: params.Config.DailyReset,
		Now:        params.Now,
	})
	t.Load(ctx)

	return &Server{
		config:         params.Config,
		store:          kvStore,
		tracker:        t,
		versionInfo:    params.VersionInfo,
		redisClient:    setup.rdb,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("fitclub-router"))

	misc.NewHandler(s.versionInfo).SetupRoutes(r)
	tracker.NewHandler(s.tracker).SetupRoutes(r)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	if s.redisClient != nil {
		r.Use(middleware.RateLimit(
			redis_rate.NewLimiter(s.redisClient),
			"tracker",
			s.config.RateLimitAllowedPerMin,
			s.metricsManager,
		))
	}
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) metricsRouterSetup() *mux.Router {
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
	))
	return metricsRouter
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           s.metricsRouterSetup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	// closes the redis client or the db pool too
	if closeErr := s.store.Close(); closeErr != nil {
		err = multierr.Append(err, fmt.Errorf("close store: %w", closeErr))
	}
	log.Debugln("store closed")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	return err
}
