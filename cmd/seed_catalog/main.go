// seed_catalog carga productos y bodegas en PostgreSQL a partir de un catálogo JSON.
// Aplica las migraciones antes de insertar; volver a ejecutarlo actualiza los existentes.
//
// Uso: go run ./cmd/seed_catalog [ruta/catalog.json]
// Por defecto usa LEDGER_SEED_FILE y, si está vacío, catalog.json en el directorio actual.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	path := cfg.Ledger.SeedFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		path = "catalog.json"
	}
	c, err := catalog.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("leer catálogo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		products := postgres.NewProductRepository(tx)
		warehouses := postgres.NewWarehouseRepository(tx)
		for _, p := range c.Products {
			if err := products.Upsert(ctx, p); err != nil {
				return err
			}
		}
		for _, w := range c.Warehouses {
			if err := warehouses.Upsert(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("cargar catálogo")
	}

	log.Info().
		Str("path", path).
		Int("products", len(c.Products)).
		Int("warehouses", len(c.Warehouses)).
		Msg("catálogo cargado")
}
