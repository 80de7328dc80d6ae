package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehouse-service/config"
	"warehouse-service/internal/cache"
	"warehouse-service/internal/monitor"
	"warehouse-service/internal/producer"
	"warehouse-service/internal/repository"
	"warehouse-service/internal/router"
	"warehouse-service/internal/service"
	"warehouse-service/internal/token"
	"warehouse-service/pkg/database"
	"warehouse-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// @Title Warehouse API
// @Version 1.0
// @Description Inventory and purchase order management
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)
	repos := repository.New(db)

	var lowStockCache service.LowStockCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log)
		if err != nil {
			log.Warn("redis unavailable, low-stock cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			lowStockCache = rc
		}
	}

	var events service.EventBus
	var lowStockPublisher monitor.LowStockPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		ep := producer.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := ep.Close(); err != nil {
				log.Warn("kafka producer close", zap.Error(err))
			}
		}()
		events = ep
		lowStockPublisher = ep
		log.Info("kafka producer enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	orderSvc := service.NewOrderService(repos, lowStockCache, events, log, cfg.Stock.DefaultLocation)
	inventorySvc := service.NewInventoryService(repos, lowStockCache, events, log, cfg.Stock.DefaultLocation)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Stock.LowStockInterval > 0 {
		sched := monitor.NewScheduler(inventorySvc, lowStockPublisher, cfg.Stock.LowStockInterval, log)
		sched.Start(ctx)
		defer sched.Stop()
	}

	httpSrv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.Router(router.Deps{
			Orders:    orderSvc,
			Inventory: inventorySvc,
			Verifier:  token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer),
			Log:       log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatal("failed to listen for gRPC", zap.Error(err))
		}
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		g.Go(func() error {
			log.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))
			return grpcSrv.Serve(lis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		healthSrv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return
	}
	log.Info("server stopped gracefully")
}
