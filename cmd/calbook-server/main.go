package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"calbook/internal/config"
	"calbook/internal/events"
	"calbook/internal/ratelimit"
	"calbook/internal/service/bookings"
	"calbook/internal/service/owners"
	"calbook/internal/store/bunstore"
	grpcTransport "calbook/internal/transport/grpc"
	"calbook/internal/transport/httpapi"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "calbook-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "calbook-server"),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		stop()
		os.Exit(1)
	}
}

// run owns every resource it opens, so all of them are closed before it
// returns, including on failure.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr()),
		slog.String("log_level", cfg.LogLevel),
	)

	dbArgs := databaseLogArgs(cfg.DatabaseDriver, cfg.DatabaseURL)
	log.Info("connecting to database", dbArgs...)
	db, err := bunstore.Open(cfg.DatabaseDriver, cfg.DatabaseURL, bunstore.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		log.Error("database connection failed", append([]any{slog.Any("err", err)}, dbArgs...)...)
		return err
	}
	defer func() {
		if err := bunstore.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
			return
		}
		log.Info("database closed")
	}()

	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := bunstore.Migrate(migrateCtx, db, log)
		cancel()
		if err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			return err
		}
	}

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		log.Error("event publisher setup failed", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", slog.Any("err", err))
			return
		}
		log.Info("event publisher closed")
	}()

	bookingSvc := bookings.NewService(
		bunstore.NewBookingRepo(db),
		bookings.WithPublisher(publisher),
		bookings.WithLogger(log),
		bookings.WithReadRetry(bookings.RetryPolicy{
			Attempts:      cfg.ReadAttempts,
			InitialDelay:  cfg.RetryInitialDelay,
			MaxDelay:      cfg.RetryMaxDelay,
			BackoffFactor: 2,
		}),
	)
	ownerSvc := owners.NewService(bunstore.NewOwnerRepo(db), log)

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.RateLimit(limiter),
			grpcTransport.DefaultRequestTimeout(cfg.GRPCRequestTimeout),
		),
	)
	grpcTransport.RegisterBookingsServer(grpcServer, grpcTransport.NewBookingsServer(bookingSvc, log))
	grpcTransport.RegisterOwnersServer(grpcServer, grpcTransport.NewOwnersServer(ownerSvc, log))

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: httpapi.NewHandler(httpapi.Deps{
			Owners:   ownerSvc,
			Bookings: bookingSvc,
			Ready: func(ctx context.Context) error {
				return bunstore.Ping(ctx, db)
			},
			Limiter:        limiter,
			RequestTimeout: cfg.HTTPRequestTimeout,
			CORSOrigins:    cfg.HTTPCORSOrigins,
			Log:            log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("http_addr", cfg.HTTPAddr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped with error", slog.Any("err", err))
			shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
			return err
		}
	}
	shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
	return nil
}

func newPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("event publishing disabled")
		return events.Nop{}, nil
	}
	p, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaTopic,
		BatchTimeout: cfg.KafkaBatchTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	log.Info("event publishing enabled", slog.String("topic", cfg.KafkaTopic), slog.Int("brokers", len(cfg.KafkaBrokers)))
	return p, nil
}

func shutdown(log *slog.Logger, g *grpc.Server, h *http.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = h.Close()
	}

	done := make(chan struct{})
	go func() {
		g.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		g.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// databaseLogArgs describes the target database without leaking credentials.
func databaseLogArgs(driver, databaseURL string) []any {
	if driver == bunstore.DriverSQLite {
		path := strings.TrimPrefix(databaseURL, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" || path == ":memory:" {
			path = "memory"
		}
		return []any{slog.String("db_driver", driver), slog.String("db_path", path)}
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_driver", driver), slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_driver", driver),
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
