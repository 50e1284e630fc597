// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"dishrent_backend/internal/app"
	"dishrent_backend/internal/config"
	"dishrent_backend/internal/directory"
	"dishrent_backend/internal/firebase"
	"dishrent_backend/internal/jobs"
	"dishrent_backend/internal/location"
	platformElasticsearch "dishrent_backend/internal/platform/elasticsearch"
	"dishrent_backend/internal/shared"
	"dishrent_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDB,
		platformElasticsearch.NewClient,

		// Identity Provider
		firebase.NewFirebaseService,
		wire.Bind(new(shared.IdentityProvider), new(*firebase.FirebaseService)),
		wire.Bind(new(shared.TokenVerifier), new(*firebase.FirebaseService)),

		// Locations
		location.NewGORMRepository,
		location.NewHandler,

		// Users
		user.NewGORMRepository,
		provideRoleLookup,
		directory.NewIndexer,
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(jobs.Reconciler), new(*user.ServiceImplementation)),
		user.NewHandler,

		jobs.NewProfileReconcileJob,

		// Application Layer
		app.NewRouter,
		app.NewServer,
	)
	return nil, nil, nil
}
