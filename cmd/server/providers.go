// File: cmd/server/providers.go
package main

import (
	"log"

	"dishrent_backend/internal/config"
	"dishrent_backend/internal/platform/database"
	"dishrent_backend/internal/platform/logger"
	"dishrent_backend/internal/shared"
	"dishrent_backend/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideLogger builds the application logger; its cleanup flushes buffered entries.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

// provideDB opens the relational store and closes it on cleanup.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db, logger)
	}, nil
}

// provideRoleLookup exposes the profile repository as the caller role lookup used by the
// admin middleware.
func provideRoleLookup(repo user.Repository) shared.ProfileRoleLookup {
	return repo
}
