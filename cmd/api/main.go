package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	_ "github.com/jhoicas/inventario-ledger/docs"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/internal/scheduler"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
	"github.com/jhoicas/inventario-ledger/pkg/observability"
)

// @title                       Inventario Ledger API
// @version                     1.0
// @description                 Libro de movimientos de inventario: saldos por producto, bodega y lote.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Bearer <token>

// ledgerStore puertos de persistencia según LEDGER_STORE.
type ledgerStore struct {
	txRunner   inventory.TxRunner
	records    repository.InventoryRecordRepository
	movements  repository.StockMovementRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.Store).
		Msg("iniciando aplicación")
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: ningún token será aceptado")
	}

	ctx := context.Background()
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacén del libro")
	}
	defer store.close()

	var publisher inventory.EventPublisher = inventory.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp := kafka.NewPublisher(cfg.Kafka, log.Named("kafka"))
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador kafka")
			}
		}()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("publicación de eventos activa")
	}

	retry := inventory.RetryConfig{
		MaxAttempts:     cfg.Ledger.RetryMaxAttempts,
		InitialInterval: cfg.Ledger.RetryInitial(),
		MaxInterval:     inventory.DefaultRetryConfig().MaxInterval,
	}
	engine := inventory.NewBalanceEngine(store.txRunner, store.products, store.warehouses, retry, log.Named("balance_engine"))
	alertsUC := inventory.NewAlertUseCase(store.records, store.warehouses)
	services := httpRouter.InventoryServices{
		Gate: inventory.NewApprovalGate(engine, store.products, store.warehouses, publisher,
			cfg.Ledger.AutoApprove, log.Named("approval_gate")),
		Transfers:    inventory.NewTransferCoordinator(engine, store.products, store.warehouses, publisher, log.Named("transfers")),
		Reservations: inventory.NewReservationGateway(engine, publisher, log.Named("reservations")),
		Engine:       engine,
		Queries:      inventory.NewQueryUseCase(store.records, store.movements, store.products, store.warehouses),
		Alerts:       alertsUC,
	}

	if cfg.Alerts.BroadcastCron != "" {
		broadcaster := scheduler.NewAlertBroadcaster(cfg.Alerts.BroadcastCron, alertsUC, publisher, log.Named("alerts"))
		if err := broadcaster.Start(); err != nil {
			log.Fatal().Err(err).Msg("programar difusión de alertas")
		}
		defer broadcaster.Stop()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisClient.Close()
	}
	var rateLimiter *limiter.Limiter
	if cfg.HTTP.RateLimit != "" {
		rateLimiter, err = httpRouter.NewLimiter(cfg.HTTP.RateLimit, redisClient)
		if err != nil {
			log.Fatal().Err(err).Str("rate", cfg.HTTP.RateLimit).Msg("configurar rate limit")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Ledger.Store})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Inventory: services,
		JWTSecret: cfg.JWT.Secret,
		Limiter:   rateLimiter,
		TxTimeout: cfg.Ledger.TxTimeout(),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cerrar exportador de trazas")
	}

	log.Info().Msg("aplicación detenida")
}

// openStore abre PostgreSQL (aplicando migraciones) o el almacén en memoria con el catálogo semilla.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*ledgerStore, error) {
	if cfg.Ledger.Store == "memory" {
		mem := memory.NewStore()
		if cfg.Ledger.SeedFile != "" {
			c, err := catalog.Load(cfg.Ledger.SeedFile)
			if err != nil {
				return nil, err
			}
			mem.LoadCatalog(c)
			log.Info().Int("products", len(c.Products)).Int("warehouses", len(c.Warehouses)).Msg("catálogo cargado en memoria")
		}
		log.Warn().Msg("almacén en memoria: los saldos se pierden al reiniciar")
		return &ledgerStore{
			txRunner:   mem.TxRunner(),
			records:    mem.Records(),
			movements:  mem.Movements(),
			products:   mem.Products(),
			warehouses: mem.Warehouses(),
			close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &ledgerStore{
		txRunner:   postgres.NewTxRunner(pool),
		records:    postgres.NewInventoryRecordRepository(pool),
		movements:  postgres.NewStockMovementRepository(pool),
		products:   postgres.NewProductRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		close:      pool.Close,
	}, nil
}
