package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabledesk/orderboard/internal/adapter/amqp"
	"github.com/tabledesk/orderboard/internal/adapter/backend"
	"github.com/tabledesk/orderboard/internal/adapter/badgerstore"
	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/adapter/rabbitmq"
	"github.com/tabledesk/orderboard/internal/adapter/ws"
	"github.com/tabledesk/orderboard/internal/app/annotations"
	"github.com/tabledesk/orderboard/internal/app/board"
	"github.com/tabledesk/orderboard/internal/app/mutation"
	"github.com/tabledesk/orderboard/internal/app/sync"
	"github.com/tabledesk/orderboard/internal/config"
	"github.com/tabledesk/orderboard/internal/domain"
	"github.com/tabledesk/orderboard/internal/interfaces"

	httpAdapter "github.com/tabledesk/orderboard/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: board-service, notification-subscriber")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	ctx := context.Background()
	lgr := logger.New(*mode, cfg.Log.Level)

	switch *mode {
	case "board-service":
		runBoardService(ctx, cfg, lgr)

	case "notification-subscriber":
		runNotificationSubscriber(ctx, cfg, lgr)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runBoardService(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	gateway := backend.NewClient(cfg.Backend, lgr)

	engine := sync.NewEngine(gateway, lgr, interfaces.ListOrdersParams{
		TenantID:     cfg.Backend.TenantID,
		Limit:        cfg.Sync.PageSize,
		Status:       cfg.Sync.StatusFilter,
		IncludeItems: true,
	}, cfg.Sync.Interval(), cfg.Sync.AutoRefresh)

	var publisher interfaces.NotificationPublisher
	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer mqConn.Close()
		publisher = rabbitmq.NewPublisher(mqConn)

		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host": cfg.RabbitMQ.Host,
		})
	}

	var store interfaces.AnnotationStore
	if cfg.Annotations.DataDir != "" {
		badgerStore, err := badgerstore.Open(cfg.Annotations)
		if err != nil {
			log.Fatalf("Failed to open annotation store: %v", err)
		}
		store = badgerStore
		lgr.Info("annotations_persistent", "Annotation store backed by disk", "startup", map[string]interface{}{
			"dir": cfg.Annotations.DataDir,
		})
	} else {
		store = annotations.NewStore()
	}
	defer store.Close()

	pipeline := mutation.NewPipeline(gateway, engine, publisher, lgr)
	boardService := board.NewService(engine, store, pipeline, lgr)

	hub := ws.NewHub(lgr, func(role domain.Role, sessionID string) interface{} {
		return boardService.BoardForRole(role, sessionID)
	})
	engine.Subscribe(func(*sync.Snapshot) { hub.Broadcast() })

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go engine.Run(runCtx)

	boardHandler := httpAdapter.NewBoardHandler(boardService, engine, hub, lgr)
	mux := http.NewServeMux()
	boardHandler.Register(mux)

	handler := httpAdapter.LoggingMiddleware(lgr)(mux)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Board service started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
		"port":      cfg.HTTP.Port,
		"tenant_id": cfg.Backend.TenantID,
		"interval":  cfg.Sync.IntervalSeconds,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down board service", "shutdown", nil)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn, lgr)
	handler := amqp.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notification subscriber started", "startup", nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := consumer.ConsumeStatusChanges(runCtx, handler.HandleStatusChange); err != nil && runCtx.Err() == nil {
			lgr.Error("consumer_error", "Error consuming status changes", "runtime", nil, err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down notification subscriber", "shutdown", nil)
}
