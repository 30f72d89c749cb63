// Command seed-catalog writes the option catalog into the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/eel-studio/storefront/internal/config"
	"github.com/eel-studio/storefront/internal/domain/catalog"
	"github.com/eel-studio/storefront/internal/logging"
	"github.com/eel-studio/storefront/internal/platform/migrations"
	"github.com/eel-studio/storefront/internal/storage"
	"github.com/eel-studio/storefront/internal/storage/cache"
	"github.com/eel-studio/storefront/internal/storage/postgres"
	supastore "github.com/eel-studio/storefront/internal/storage/supabase"
	"github.com/eel-studio/storefront/supabase/client"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to storefront.yaml")
		envFile     = flag.String("env", "", "Optional .env file with SUPABASE_SERVICE_ROLE_KEY / DATABASE_URL")
		catalogPath = flag.String("catalog", "", "YAML catalog to seed (default: built-in catalog)")
		migrate     = flag.Bool("migrate", false, "Apply the schema before seeding (postgres backend)")
		dryRun      = flag.Bool("dry-run", false, "Validate and print the catalog without writing")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env (%s): %v", *envFile, err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cat := catalog.Default()
	if *catalogPath != "" {
		if cat, err = catalog.LoadFromPath(*catalogPath); err != nil {
			log.Fatalf("load catalog: %v", err)
		}
	}
	snap := cat.Snapshot()
	fmt.Printf("catalog: %d sizes, %d resins, %d woods, %d legs\n", len(snap.Sizes), len(snap.Resins), len(snap.Woods), len(snap.Legs))
	if *dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var store storage.CatalogStore
	switch cfg.Backend {
	case config.BackendSupabase:
		c, err := client.New(client.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.ServiceKey})
		if err != nil {
			log.Fatalf("supabase client: %v", err)
		}
		store = supastore.New(c)
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN, 2)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer db.Close()
		if *migrate {
			if err := migrations.Apply(ctx, db.DB); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		store = postgres.New(db)
	default:
		log.Fatalf("backend %q has nothing to seed", cfg.Backend)
	}

	// Writing through the cache drops the stale cached copy.
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		store = cache.NewCatalogCache(store, rdb, cfg.Redis.CacheTTL, logging.New("seed-catalog", cfg.Logging.Level, "text"))
	}

	if err := store.SaveCatalog(ctx, snap); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}
	fmt.Printf("Seeded option catalog into %s backend\n", cfg.Backend)
}
