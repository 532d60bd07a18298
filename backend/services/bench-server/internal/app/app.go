package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"cellbench/backend/libs/clock"
	libdb "cellbench/backend/libs/db"
	libredis "cellbench/backend/libs/redis"
	"cellbench/backend/services/bench-server/internal/auth"
	"cellbench/backend/services/bench-server/internal/config"
	"cellbench/backend/services/bench-server/internal/database"
	httpserver "cellbench/backend/services/bench-server/internal/http"
	"cellbench/backend/services/bench-server/internal/http/handlers"
	"cellbench/backend/services/bench-server/internal/http/middleware"
	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/redisstore"
	"cellbench/backend/services/bench-server/internal/report"
	"cellbench/backend/services/bench-server/internal/repository"
	"cellbench/backend/services/bench-server/internal/service"
	"cellbench/backend/services/bench-server/internal/sim"
	"cellbench/backend/services/bench-server/internal/tracing"
	"cellbench/backend/services/bench-server/internal/ws"
)

const serviceVersion = "1.0.0"

// App wires bench-server dependencies.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	db            *sql.DB
	redisClient   *redis.Client
	clk           clock.Clock
	hub           *ws.Hub
	stations      *service.StationManager
	runner        *service.TaskRunner
	fleet         *sim.Fleet
	measurements  *repository.MeasurementRepository
	server        *httpserver.Server
	traceShutdown func(context.Context) error
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.Open(libdb.Config{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}
	if err := database.Migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("app: migrate: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = libredis.New(libredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("app: connect redis: %w", err)
		}
	}

	userRepo := repository.NewUserRepository(sqlDB)
	customerRepo := repository.NewCustomerRepository(sqlDB)
	workOrderRepo := repository.NewWorkOrderRepository(sqlDB)
	toolRepo := repository.NewToolRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	taskRepo := repository.NewJobTaskRepository(sqlDB)
	recipeRepo := repository.NewRecipeRepository(sqlDB)
	measurementRepo := repository.NewMeasurementRepository(sqlDB)

	var activeStore *redisstore.Store
	if redisClient != nil {
		activeStore = redisstore.NewStore(redisClient, cfg.SessionTTL())
	}

	hub := ws.NewHub()
	events := &hubEvents{hub: hub, logger: logger}

	var fleet *sim.Fleet
	var power service.PowerController = service.NopPower{}
	if cfg.Bench.Simulate {
		fleet = sim.NewFleet(cfg.Bench.StationCount, cfg.Bench.SimSeed)
		power = fleet
	}

	stations := service.NewStationManager(cfg.Bench.StationCount, power, events, logger)
	if fleet != nil {
		for _, st := range fleet.InitialStates() {
			stations.Apply(st)
		}
	}

	clk := clock.New()
	runner := service.NewTaskRunner(stations, power, sessionRepo, taskRepo, recipeRepo, activeStore, events, clk, logger)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	authService := auth.NewService(userRepo, auth.NewBcryptHasher(0), tokens, logger)

	wsServer := ws.NewServer(hub, stations.Snapshot, cfg.WS.SendBuffer, cfg.WSWriteTimeout(), logger)

	deps := httpserver.RouterDeps{
		Health:       handlers.NewHealthHandler(sqlDB, redisClient),
		StationCount: handlers.NewStationCountHandler(cfg.Bench.StationCount),
		WSLive:       wsServer.HandleLive,
		Auth:         handlers.NewAuthHandlers(authService, logger),
		Stations:     handlers.NewStationsHandlers(stations, runner, logger),
		Customers:    handlers.NewCustomersHandlers(customerRepo, logger),
		WorkOrders:   handlers.NewWorkOrdersHandlers(workOrderRepo, logger),
		Tools:        handlers.NewToolsHandlers(toolRepo, logger),
		Sessions:     handlers.NewSessionsHandlers(sessionRepo, activeStore, logger),
		JobTasks:     handlers.NewJobTasksHandlers(taskRepo, runner, logger),
		Recipes:      handlers.NewRecipesHandlers(recipeRepo, logger),
		Reports: handlers.NewReportsHandlers(
			sessionRepo, recipeRepo, taskRepo, measurementRepo,
			userRepo, workOrderRepo, customerRepo,
			stations, report.NewGenerator(), cfg.Reports.Dir, logger),
		Logger: logger,
	}
	router := httpserver.NewRouter(deps, middleware.RequireAuth(tokens))

	var traceShutdown func(context.Context) error
	var serverMW []func(http.Handler) http.Handler
	if cfg.Tracing.Enabled {
		traceShutdown, err = tracing.InitTracer("bench-server", serviceVersion)
		if err != nil {
			sqlDB.Close()
			if redisClient != nil {
				redisClient.Close()
			}
			return nil, fmt.Errorf("app: init tracing: %w", err)
		}
		serverMW = append(serverMW, func(h http.Handler) http.Handler {
			return otelhttp.NewHandler(h, "bench-server")
		})
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Addr:         cfg.Server.Address,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}, router, logger, serverMW...)

	return &App{
		cfg:           cfg,
		logger:        logger,
		db:            sqlDB,
		redisClient:   redisClient,
		clk:           clk,
		hub:           hub,
		stations:      stations,
		runner:        runner,
		fleet:         fleet,
		measurements:  measurementRepo,
		server:        server,
		traceShutdown: traceShutdown,
	}, nil
}

// Run starts the broadcaster and HTTP server, blocking until ctx ends.
func (a *App) Run(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.broadcastLoop(loopCtx)
	}()

	err := a.server.Run(ctx)

	cancel()
	<-done
	a.runner.Close()
	a.hub.CloseAll()
	return err
}

// broadcastLoop advances the simulator and pushes the recurring
// snapshot on the configured cadence.
func (a *App) broadcastLoop(ctx context.Context) {
	interval := a.cfg.BroadcastInterval()
	ticker := a.clk.NewTicker(interval)
	defer ticker.Stop()

	last := a.clk.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			if dt <= 0 {
				dt = interval
			}
			last = now
			a.tick(dt)
		}
	}
}

func (a *App) tick(dt time.Duration) {
	if a.fleet != nil {
		for _, tel := range a.fleet.Advance(dt) {
			a.stations.UpdateTelemetry(tel)
		}
	}

	snapshot := a.stations.Snapshot()
	payload, err := ws.MarshalUpdate(snapshot)
	if err != nil {
		a.logger.Error("marshal update snapshot", zap.Error(err))
	} else {
		a.hub.Broadcast(ws.MessageUpdate, payload)
	}

	a.recordMeasurements(snapshot)
}

// recordMeasurements persists one sample per station with a live
// database session. Demo fleet stations run without one.
func (a *App) recordMeasurements(snapshot []models.StationStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, st := range snapshot {
		if st.SessionID == nil || st.State != models.StateRunning {
			continue
		}
		if st.VoltageMV == nil || st.CurrentMA == nil {
			continue
		}

		m := models.Measurement{
			SessionID:  *st.SessionID,
			StationID:  st.StationID,
			VoltageMV:  *st.VoltageMV,
			CurrentMA:  *st.CurrentMA,
			RecordedAt: a.clk.Now().UTC(),
		}
		if st.TemperatureC != nil {
			m.TemperatureC = *st.TemperatureC
		}
		if st.TestPhase != nil {
			m.Phase = *st.TestPhase
		}

		if err := a.measurements.Insert(ctx, &m); err != nil {
			a.logger.Warn("record measurement failed",
				zap.Int("station", st.StationID),
				zap.Int64("session", m.SessionID),
				zap.Error(err))
		}
	}
}

// Close releases resources.
func (a *App) Close() {
	if a.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.traceShutdown(ctx); err != nil {
			a.logger.Warn("failed to shut down tracing", zap.Error(err))
		}
		cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
