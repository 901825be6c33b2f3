package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Stagehand/internal/api"
	"github.com/shaiso/Stagehand/internal/flowmanager"
	"github.com/shaiso/Stagehand/internal/notify"
	"github.com/shaiso/Stagehand/internal/repo"
	"github.com/shaiso/Stagehand/internal/status"
	"github.com/shaiso/Stagehand/internal/store"
	"github.com/shaiso/Stagehand/internal/telemetry"
	"github.com/shaiso/Stagehand/internal/tracker"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stagehand_api_http_requests_total",
		Help: "Total HTTP requests handled by stagehand_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting stagehand-api")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Репозитории и стор definitions
	sessionRepo := repo.NewSessionRepo(pool)
	pointerRepo := repo.NewPointerRepo(pool)
	definitions := store.New(pool, logger)

	// Хаб статусов: лог + метрики + опционально RabbitMQ
	publisher := status.NewPublisher(logger)
	publisher.Subscribe(status.NewLoggingSubscriber(logger))
	publisher.Subscribe(status.NewMetricsSubscriber())

	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		conn, err := notify.NewConnection(amqpURL, logger)
		if err != nil {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := notify.SetupTopology(conn); err != nil {
			logger.Error("failed to set up AMQP topology", "error", err)
			os.Exit(1)
		}

		publisher.Subscribe(notify.NewForwarder(conn, logger))
		logger.Info("status events forwarded to RabbitMQ")
	}

	// Менеджер жизненного цикла сессий
	manager := flowmanager.New(flowmanager.Config{
		Definitions: definitions,
		Sessions:    sessionRepo,
		Instances:   tracker.New(pool, logger),
		Atomic:      repo.NewAtomic(pool),
		Publisher:   publisher,
		Logger:      logger,
	})

	// API handler
	handler := api.NewHandler(api.Config{
		Definitions: definitions,
		Manager:     manager,
		Sessions:    sessionRepo,
		Pointers:    pointerRepo,
		Logger:      logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// HTTP сервер с graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
