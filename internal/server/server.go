// Пакет server — HTTP-сервер GarantHUB с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на обратном прокси.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/svarovsky7/GarantHUB-sub002/internal/api/handlers"
	"github.com/svarovsky7/GarantHUB-sub002/internal/api/middleware"
	"github.com/svarovsky7/GarantHUB-sub002/internal/config"
)

// Server — HTTP-сервер GarantHUB.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// NewRouter собирает маршруты и цепочку middleware:
// метрики → журнал запросов → JWT → ограничение частоты → права маршрута.
// Health и metrics публичны: их опрашивает Kubernetes напрямую.
func NewRouter(logger *slog.Logger, api *handlers.APIHandler, jwtAuth *middleware.JWTAuth, limiter *middleware.RateLimiter) chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtAuth.Middleware())
		r.Use(limiter.Middleware())
		api.Routes(r)
	})

	return router
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, api *handlers.APIHandler, jwtAuth *middleware.JWTAuth, limiter *middleware.RateLimiter) *Server {
	// Контекст запросов отменяется при shutdown: Shutdown не ждёт
	// перехваченные WebSocket-соединения, их циклы завершаются по нему.
	baseCtx, cancelBase := context.WithCancel(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(logger, api, jwtAuth, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		// Без ReadTimeout/WriteTimeout: загрузка вложений и WebSocket
		// длятся дольше любого общего лимита.
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM)
// или отмены ctx. Затем выполняется graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("Контекст сервера отменён")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
