// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"dishrent_backend/internal/config"
	"dishrent_backend/internal/directory"
	"dishrent_backend/internal/firebase"
	"dishrent_backend/internal/jobs"
	"dishrent_backend/internal/location"
	"dishrent_backend/internal/platform/database"
	platformElasticsearch "dishrent_backend/internal/platform/elasticsearch"
	"dishrent_backend/internal/platform/logger"
	"dishrent_backend/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrate()
			return
		case "seed-locations":
			runSeedLocations(os.Args[2:])
			return
		case "sync-profiles":
			runSyncProfiles(os.Args[2:])
			return
		case "reconcile-profiles":
			runReconcileProfiles()
			return
		case "seed-admin":
			runSeedAdmin(os.Args[2:])
			return
		}
	}

	// Default: Start server
	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	if server.ESClient != nil {
		if err := platformElasticsearch.CreateProfilesIndexIfNotExists(context.Background(), server.ESClient, server.AppLogger); err != nil {
			server.AppLogger.Error("Failed to create Elasticsearch profiles index, directory search may fail", zap.Error(err))
		}
	} else {
		server.AppLogger.Info("Elasticsearch client not initialized, skipping index creation.")
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// loadForCommand loads configuration and a logger for the one-shot subcommands.
func loadForCommand(name string) (*config.Config, *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for %s: %v", name, err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for %s: %v", name, err)
	}
	return cfg, appLogger.Named(name)
}

func runMigrate() {
	cfg, appLogger := loadForCommand("migrate")
	defer func() { _ = appLogger.Sync() }()

	db, err := database.OpenForMigrations(cfg.DBSource)
	if err != nil {
		appLogger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db, database.DialectPostgres); err != nil {
		appLogger.Fatal("Migrations failed", zap.Error(err))
	}
	appLogger.Info("Migrations applied successfully.")
}

func runSeedLocations(args []string) {
	seedCmd := flag.NewFlagSet("seed-locations", flag.ExitOnError)
	names := seedCmd.String("names", "", "Comma separated outlet names, e.g. \"Downtown,Airport Road\"")
	_ = seedCmd.Parse(args)

	parsed := location.ParseNames(*names)
	if len(parsed) == 0 {
		fmt.Fprintln(os.Stderr, "seed-locations: -names is required")
		seedCmd.Usage()
		os.Exit(2)
	}

	cfg, appLogger := loadForCommand("seed-locations")
	defer func() { _ = appLogger.Sync() }()

	db := openStore(cfg, appLogger)
	defer database.CloseGORMDB(db, appLogger)

	created, err := location.Seed(context.Background(), location.NewGORMRepository(db), parsed, appLogger)
	if err != nil {
		appLogger.Fatal("Location seeding failed", zap.Error(err), zap.Int("created", created))
	}
	appLogger.Info("Location seeding completed", zap.Int("requested", len(parsed)), zap.Int("created", created))
}

func runSyncProfiles(args []string) {
	syncCmd := flag.NewFlagSet("sync-profiles", flag.ExitOnError)
	batchSize := syncCmd.Int("batch-size", 100, "Batch size for syncing profiles")
	_ = syncCmd.Parse(args)

	cfg, appLogger := loadForCommand("sync-profiles")
	defer func() { _ = appLogger.Sync() }()

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("Elasticsearch is disabled, set ELASTICSEARCH_URL to sync profiles.")
	}
	if err := platformElasticsearch.CreateProfilesIndexIfNotExists(context.Background(), esClient, appLogger); err != nil {
		appLogger.Fatal("Failed to create/verify Elasticsearch index before sync", zap.Error(err))
	}

	db := openStore(cfg, appLogger)
	defer database.CloseGORMDB(db, appLogger)

	svc := newCommandService(cfg, db, directory.NewIndexer(esClient, appLogger), appLogger)
	indexed, err := svc.SyncDirectory(context.Background(), *batchSize)
	if err != nil {
		appLogger.Fatal("Profile synchronization failed", zap.Error(err), zap.Int("indexed", indexed))
	}
	appLogger.Info("Profile synchronization completed successfully.", zap.Int("indexed", indexed))
}

// runReconcileProfiles runs a single reconcile pass outside the cron schedule.
func runReconcileProfiles() {
	cfg, appLogger := loadForCommand("reconcile-profiles")
	defer func() { _ = appLogger.Sync() }()

	db := openStore(cfg, appLogger)
	defer database.CloseGORMDB(db, appLogger)

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Elasticsearch unavailable, reconciling without the directory index", zap.Error(err))
	}
	svc := newCommandService(cfg, db, directory.NewIndexer(esClient, appLogger), appLogger)
	jobs.NewProfileReconcileJob(svc, appLogger, cfg).RunOnce()
}

// runSeedAdmin gives an existing Firebase account an admin profile, the only way into a
// deployment that has no admin yet.
func runSeedAdmin(args []string) {
	adminCmd := flag.NewFlagSet("seed-admin", flag.ExitOnError)
	uid := adminCmd.String("uid", "", "Firebase account id of the admin")
	email := adminCmd.String("email", "", "Email of the admin account, used when -uid is empty")
	name := adminCmd.String("name", "", "Full name for the profile (defaults to the account's)")
	_ = adminCmd.Parse(args)

	if *uid == "" && *email == "" {
		fmt.Fprintln(os.Stderr, "seed-admin: -uid or -email is required")
		adminCmd.Usage()
		os.Exit(2)
	}

	cfg, appLogger := loadForCommand("seed-admin")
	defer func() { _ = appLogger.Sync() }()

	db := openStore(cfg, appLogger)
	defer database.CloseGORMDB(db, appLogger)

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("Elasticsearch unavailable, the admin will be indexed on the next sync", zap.Error(err))
	}
	svc := newCommandService(cfg, db, directory.NewIndexer(esClient, appLogger), appLogger)
	profile, err := svc.BootstrapAdmin(context.Background(), user.BootstrapAdminInput{
		UserID:   *uid,
		Email:    *email,
		FullName: *name,
	})
	if err != nil {
		appLogger.Fatal("Admin bootstrap failed", zap.Error(err))
	}
	appLogger.Info("Admin profile ready", zap.String("user_id", profile.ID), zap.String("email", profile.Email))
}

func openStore(cfg *config.Config, appLogger *zap.Logger) *gorm.DB {
	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	return db
}

func newCommandService(cfg *config.Config, db *gorm.DB, indexer user.ProfileIndexer, appLogger *zap.Logger) *user.ServiceImplementation {
	idp, err := firebase.NewFirebaseService(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Firebase", zap.Error(err))
	}
	return user.NewService(
		user.NewGORMRepository(db),
		location.NewGORMRepository(db),
		idp,
		indexer,
		appLogger,
	)
}
