// Точка входа GarantHUB — учёт гарантийных замечаний, дефектов, претензий
// и судебных дел застройщика.
// serve — загружает конфигурацию, подключается к PostgreSQL, применяет
// миграции, создаёт хранилище вложений, кэш, ленту изменений, сервисный
// слой и HTTP-сервер с JWT middleware и graceful shutdown.
// migrate — ручное управление миграциями БД.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/svarovsky7/GarantHUB-sub002/internal/api/handlers"
	"github.com/svarovsky7/GarantHUB-sub002/internal/api/middleware"
	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/config"
	"github.com/svarovsky7/GarantHUB-sub002/internal/database"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
	"github.com/svarovsky7/GarantHUB-sub002/internal/realtime"
	"github.com/svarovsky7/GarantHUB-sub002/internal/repository"
	"github.com/svarovsky7/GarantHUB-sub002/internal/server"
	"github.com/svarovsky7/GarantHUB-sub002/internal/service"
	"github.com/svarovsky7/GarantHUB-sub002/internal/storage"
)

// subscriberBuffer — ёмкость очереди событий одного WebSocket-подписчика.
const subscriberBuffer = 64

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "garanthub",
		Short:         "GarantHUB — гарантийные обращения, дефекты, претензии и суды",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"файл с переменными окружения (по умолчанию .env, если существует)")

	rootCmd.AddCommand(serveCmd(), migrateCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Ошибка выполнения команды", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadEnvFile загружает переменные из файла. Уже заданные переменные
// окружения не перезаписываются. Отсутствующий .env по умолчанию не ошибка.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("загрузка %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("загрузка .env: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Версия сборки",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запуск HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление миграциями БД",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Применить все новые миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return database.Migrate(cfg, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Откатить миграции (по умолчанию одну)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("некорректное количество шагов %q", args[0])
				}
				steps = n
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return database.MigrateDown(cfg, steps, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Текущая версия схемы БД",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("загрузка конфигурации: %w", err)
	}
	return cfg, config.SetupLogger(cfg), nil
}

func serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Конфигурация и логирование
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("GarantHUB запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)
	if cfg.AttachmentsBucket != cfg.AttachmentsBucketRaw {
		logger.Warn("Имя bucket вложений скорректировано",
			slog.String("configured", cfg.AttachmentsBucketRaw),
			slog.String("used", cfg.AttachmentsBucket),
		)
	}

	// 2. Миграции БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		return fmt.Errorf("миграции БД: %w", err)
	}

	// 3. PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("подключение к PostgreSQL: %w", err)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 4. Хранилище вложений
	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("хранилище вложений: %w", err)
	}

	// 5. Права ролей по умолчанию
	defaults, err := rbac.LoadDefaults(cfg.PermissionsFile)
	if err != nil {
		return err
	}

	// 6. Кэш запросов и лента изменений
	qc := cache.New(cfg.CacheSize, cfg.CacheTTL)
	hub := realtime.NewHub(subscriberBuffer, logger)
	listener := realtime.NewListener(pool, hub, qc, logger)

	// 7. Repositories
	tx := repository.NewTxRunner(pool)
	projectRepo := repository.NewProjectRepository(pool)
	unitRepo := repository.NewUnitRepository(pool)
	personRepo := repository.NewPersonRepository(pool)
	contractorRepo := repository.NewContractorRepository(pool)
	brigadeRepo := repository.NewBrigadeRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	defectRepo := repository.NewDefectRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)
	courtCaseRepo := repository.NewCourtCaseRepository(pool)
	letterRepo := repository.NewLetterRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	permissionRepo := repository.NewRolePermissionRepository(pool)
	preferenceRepo := repository.NewPreferenceRepository(pool)

	// 8. Services
	attachmentsSvc := service.NewAttachmentService(attachmentRepo, store, tx, cfg.SignedURLTTL, cfg.MaxUploadSize, logger)
	profilesSvc := service.NewProfileService(profileRepo, tx, qc, logger)
	permissionsSvc := service.NewPermissionService(permissionRepo, defaults, qc, logger)
	svc := handlers.Services{
		Projects:    service.NewProjectService(projectRepo, qc, logger),
		Units:       service.NewUnitService(unitRepo, qc, logger),
		Parties:     service.NewPartyService(personRepo, contractorRepo, brigadeRepo, qc, logger),
		Statuses:    service.NewStatusService(statusRepo, qc, logger),
		Tickets:     service.NewTicketService(ticketRepo, attachmentsSvc, qc, logger),
		Defects:     service.NewDefectService(defectRepo, attachmentsSvc, qc, logger),
		Claims:      service.NewClaimService(claimRepo, attachmentsSvc, tx, qc, logger),
		CourtCases:  service.NewCourtCaseService(courtCaseRepo, attachmentsSvc, tx, qc, logger),
		Letters:     service.NewLetterService(letterRepo, folderRepo, attachmentsSvc, qc, logger),
		Attachments: attachmentsSvc,
		Profiles:    profilesSvc,
		Permissions: permissionsSvc,
		Preferences: service.NewPreferenceService(preferenceRepo, hub, logger),
	}

	// 9. Readiness checkers (PostgreSQL + хранилище + IdP)
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		storage.NewReadinessChecker(store),
		middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, 5*time.Second),
	)
	apiHandler := handlers.NewAPIHandler(healthHandler, svc, hub, cfg.MaxUploadSize, logger)

	// 10. JWT middleware и ограничение частоты
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		profilesSvc,
		permissionsSvc,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		return fmt.Errorf("JWT middleware: %w", err)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// 11. Фоновые задачи: лента изменений и topologymetrics
	go listener.Run(ctx)

	dephealthSvc, dephealthErr := service.NewDephealthService(
		"garanthub",
		cfg.DephealthGroup,
		pgDB,
		service.DephealthTargets{
			PostgresURL: cfg.DatabaseURL(),
			JWKSURL:     cfg.JWTJWKSURL,
			S3Endpoint:  cfg.S3Endpoint,
		},
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	}

	// 12. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, jwtAuth, limiter)
	runErr := srv.Run(ctx)

	// 13. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	cancel()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("GarantHUB остановлен")
	return nil
}
