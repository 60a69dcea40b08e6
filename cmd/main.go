package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Drivers
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	// Instrumentation
	"github.com/exaring/otelpgx"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Internal
	"github.com/jupiterclapton/cenackle/services/board-service/config"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/adapters/primary/events"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/adapters/primary/rest"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/ports"
	"github.com/jupiterclapton/cenackle/services/board-service/internal/core/services"
)

func main() {
	// 1. Config & Logger
	cfg := config.Load()
	initLogger(cfg)
	slog.Info("🚀 Starting Board Service", "config", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Telemetry (Tracing)
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 3. Infrastructure: Postgres (members, likes, and posts unless POST_STORE=mongo)
	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		slog.Error("Unable to parse DB config", "error", err)
		os.Exit(1)
	}
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	slog.Info("✅ Connected to Postgres")

	// 4. Infrastructure: post/comment store
	var (
		postRepo    ports.PostRepository
		commentRepo ports.CommentRepository
	)
	switch cfg.PostStore {
	case "mongo":
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoUrl))
		if err != nil {
			slog.Error("Unable to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		if err := mongoClient.Ping(ctx, nil); err != nil {
			slog.Error("Unable to reach MongoDB", "error", err)
			os.Exit(1)
		}
		mdb := mongoClient.Database(cfg.MongoDB)
		if err := repository.EnsureIndexes(ctx, mdb); err != nil {
			slog.Error("Unable to create MongoDB indexes", "error", err)
			os.Exit(1)
		}
		postRepo = repository.NewMongoPostRepo(mdb)
		commentRepo = repository.NewMongoCommentRepo(mdb)
		slog.Info("✅ Connected to MongoDB", "db", cfg.MongoDB)
	default:
		postRepo = repository.NewPostgresPostRepo(dbPool)
		commentRepo = repository.NewPostgresCommentRepo(dbPool)
	}

	// 5. Infrastructure: Redis (profile cache)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		panic(err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("✅ Connected to Redis")

	// 6. Core
	profileCache := services.NewProfileCache(
		cache.NewRedisProfileStore(rdb),
		repository.NewPostgresMemberRepo(dbPool),
		cfg.ProfileTTL,
	)
	viewCounter := services.NewViewCounter(postRepo, cfg.ViewFlush)
	feedService := services.NewFeedService(
		postRepo,
		commentRepo,
		profileCache,
		repository.NewPostgresLikeRepo(dbPool),
		viewCounter,
		cfg.PageSize,
	)

	viewsDone := make(chan struct{})
	viewsCtx, stopViews := context.WithCancel(context.Background())
	go func() {
		viewCounter.Run(viewsCtx)
		close(viewsDone)
	}()

	// 7. NATS consumer (profile cache invalidation)
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	slog.Info("✅ Connected to NATS")

	if _, err := events.NewEventHandler(profileCache).Subscribe(nc); err != nil {
		slog.Error("Failed to subscribe to NATS", "error", err)
		os.Exit(1)
	}
	slog.Info("👂 Listening for member events (NATS)")

	// 8. HTTP server (API)
	var auth *rest.Authenticator
	if cfg.JWTSecret != "" {
		auth = rest.NewAuthenticator(cfg.JWTSecret)
	} else {
		slog.Warn("⚠️ JWT_SECRET not set, every request is anonymous")
	}

	router := rest.NewServer(feedService).Router(rest.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Auth:           auth,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("🌐 Board Service HTTP listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// 9. gRPC server (health + reflection)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("Failed to listen", "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		slog.Info("📡 Board Service gRPC listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()

	// Last flush of buffered views, once no request can add more
	stopViews()
	<-viewsDone

	slog.Info("👋 Server exited")
}

// --- Helpers ---

// Text + debug locally, JSON elsewhere
func initLogger(cfg config.Config) {
	var handler slog.Handler
	switch cfg.Env {
	case "local":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler).With("service", "board-service"))
}

func initTracer(ctx context.Context, cfg config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("board-service"),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
