// Package command provides the root and sub-commands of the reservation
// server. The root command serves the HTTP API; the sub-commands manage the
// database and run the event consumer on their own.
//
//	./server [--env-file .env] [--migrate] [--consume]   # start the API
//	./server migrate                                     # create missing tables
//	./server seed [--file data.yaml]                     # load restaurant, tables and clients
//	./server consume                                     # journal reservation events
package command

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/restaurant-table-reservation/internal/admission"
	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/handler"
	"github.com/iliyamo/restaurant-table-reservation/internal/log"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/queue"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/router"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
	"github.com/iliyamo/restaurant-table-reservation/internal/tracing"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

const serviceName = "restaurant-table-reservation"

var (
	envFile     string
	autoMigrate bool
	withConsume bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Restaurant table reservation API",
	Long: `Serves the reservation API of a single restaurant: clients,
tables, opening hours and reservations. Every new reservation passes the
admission checks (client eligibility, lead time and horizon, opening
hours, table capacity and same-day availability) inside one database
transaction, so two concurrent requests can never both win the same
table or the same client.`,
	PersistentPreRunE: loadConfig,
	RunE:              startWebServer,
	SilenceUsage:      true,
}

// loadConfig reads the optional env file and then the environment.
func loadConfig(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("godotenv.Load(%q): %w", envFile, err)
	}
	var err error
	if cfg, err = config.Load(); err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	log.Setup(os.Stdout, cfg.LogLevel)
	return nil
}

func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg.Database())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func startWebServer(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Env)
	if err != nil {
		return fmt.Errorf("tracing.Init: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if autoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	cipher, err := utils.NewPhoneCipher(cfg.PhoneSecret)
	if err != nil {
		return fmt.Errorf("phone cipher: %w", err)
	}
	clients := repository.NewClientRepo(db, cipher)
	if n, err := clients.UpgradePhones(ctx); err != nil {
		return fmt.Errorf("upgrading stored phones: %w", err)
	} else if n > 0 {
		log.Info(ctx, "stored phones upgraded", slog.Int("clients", n))
	}
	tables := repository.NewTableRepo(db)
	restaurants := repository.NewRestaurantRepo(db)
	reservations := repository.NewReservationRepo(db, cipher, cfg.Location)

	ctrl := admission.New(repository.NewReservationStore(db, cfg.Location),
		admission.WithPolicy(cfg.AdmissionPolicy()),
		admission.WithNotifier(service.NewEventPublisher(cfg.RabbitMQURL)),
	)

	if withConsume {
		go runConsumer(ctx)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.JSONSerializer = handler.JSONSerializer{}
	e.Use(
		echomw.Recover(),
		echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}),
		echo.WrapMiddleware(otelhttp.NewMiddleware(serviceName)),
		requestLogger(),
		middleware.Metrics(),
	)
	router.RegisterRoutes(e, router.Handlers{
		DB:           db,
		Auth:         handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)),
		Clients:      handler.NewClientHandler(clients),
		Tables:       handler.NewTableHandler(tables, service.NewTableService(tables), ctrl),
		Restaurant:   handler.NewRestaurantHandler(restaurants, ctrl.Policy(), cfg.SlotStep),
		Reservations: handler.NewReservationHandler(ctrl, clients, tables, reservations),
		Reports:      handler.NewReportHandler(service.NewReportService(reservations), cfg.Location),
	}, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", slog.String("port", cfg.Port), slog.String("env", cfg.Env))
		errc <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("running echo: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(context.Background(), "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down echo: %w", err)
	}
	return nil
}

// requestLogger emits one structured record per request.
func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			ctx := c.Request().Context()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				log.Error(ctx, "request", append(attrs, log.Err("error", v.Error))...)
				return nil
			}
			log.Info(ctx, "request", attrs...)
			return nil
		},
	})
}

func runConsumer(ctx context.Context) {
	if err := queue.Consume(ctx, cfg.RabbitMQURL, queue.Journal{Dir: cfg.JournalDir}); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "event consumer stopped", log.Err("error", err))
	}
}

// Execute runs the rootCmd which in turn parses CLI arguments and
// dispatches to the chosen sub-command. It exits with status 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")
	rootCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "create missing tables before serving")
	rootCmd.Flags().BoolVar(&withConsume, "consume", false, "also run the reservation event consumer")

	rootCmd.AddCommand(migrateCmd, seedCmd, consumeCmd)
}
