package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
	sagapg "github.com/jcmexdev/food-orders/internal/coordinator/sagalog/postgres"
	sagasqlite "github.com/jcmexdev/food-orders/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/food-orders/internal/order-service/app"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/food-orders/internal/order-service/core/store"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/adapters/mongo"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/adapters/payment/mock"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/adapters/payment/stripe"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/adapters/sqlite"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/adapters/usersvc"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/httpx"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/httpx/middlewares"
	"github.com/jcmexdev/food-orders/internal/pkg/cache"
	"github.com/jcmexdev/food-orders/internal/pkg/config"
	"github.com/jcmexdev/food-orders/internal/pkg/events"
	"github.com/jcmexdev/food-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/food-orders/internal/pkg/telemetry"
)

const mockPayPrefix = "/mock-pay"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		telemetry.InitLogger("order-service")
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("order service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("initialise tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	orders, items, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sagaLog, closeSagaLog, err := openSagaLog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSagaLog()

	var idem cache.Cache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, "order")
		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		defer rc.Close()
		idem = rc
	}

	var publisher ports.EventPublisher = events.Noop{}
	if cfg.RabbitMQURL != "" {
		p, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	}

	root := chi.NewRouter()
	var payments ports.PaymentProvider
	switch cfg.Payment.Provider {
	case config.ProviderStripe:
		payments = stripe.New(cfg.Payment.StripeKey)
	default:
		mp := mock.New(cfg.Payment.MockBaseURL)
		root.Mount(mockPayPrefix, mp.Handler())
		payments = mp
		slog.Warn("using the mock payment provider", "checkout_base", cfg.Payment.MockBaseURL)
	}

	svc := app.NewService(app.Deps{
		Orders:   orders,
		Items:    items,
		Payments: payments,
		Cart:     usersvc.New(cfg.UserService.URL, cfg.UserService.Timeout),
		Events:   publisher,
		SagaLog:  sagaLog,
		Cache:    idem,
		Checkout: app.CheckoutConfig{
			FrontendURL:    cfg.FrontendURL,
			Currency:       cfg.Payment.Currency,
			DeliveryCharge: cfg.Payment.DeliveryCharge,
		},
		Verify:         app.VerifyMode(cfg.Payment.VerifyMode),
		IdempotencyTTL: cfg.IdempotencyTTL,
		PaymentTimeout: cfg.Payment.Timeout,
	})

	api := httpx.NewRouter(httpx.NewHandler(svc), httpx.RouterOptions{
		Auth:        middlewares.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.AdminRole),
		Limiter:     middlewares.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		CORSOrigins: cfg.CORSOrigins,
	})
	root.Mount("/", api)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 2)
	go func() {
		slog.Info("order service HTTP running", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		slog.Info("order service gRPC health running", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err = <-errCh:
	}

	healthSrv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		slog.Error("http shutdown error", "error", serr)
	}
	grpcServer.GracefulStop()
	return err
}

func openStores(ctx context.Context, cfg *config.Config) (*store.OrderStore, *store.OrderItemStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		client, err := mongo.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
		if err != nil {
			return nil, nil, nil, err
		}
		items := store.NewOrderItemStore(client.Items())
		orders := store.NewOrderStore(client.Orders(), items)
		return orders, items, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(closeCtx); err != nil {
				slog.Error("mongo disconnect error", "error", err)
			}
		}, nil
	default:
		if err := ensureDir(cfg.Store.SQLitePath); err != nil {
			return nil, nil, nil, err
		}
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		items := store.NewOrderItemStore(db.Items())
		orders := store.NewOrderStore(db.Orders(), items)
		return orders, items, func() { _ = db.Close() }, nil
	}
}

func openSagaLog(ctx context.Context, cfg *config.Config) (sagalog.Repository, func(), error) {
	switch cfg.SagaLog.Backend {
	case config.BackendPostgres:
		repo, err := sagapg.Connect(ctx, cfg.SagaLog.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.BackendSQLite:
		if err := ensureDir(cfg.SagaLog.SQLitePath); err != nil {
			return nil, nil, err
		}
		repo, err := sagasqlite.Open(cfg.SagaLog.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir for %s: %w", path, err)
	}
	return nil
}
