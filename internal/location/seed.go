// File: internal/location/seed.go
package location

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// ParseNames splits a comma separated list of outlet names, dropping blanks.
func ParseNames(csv string) []string {
	var names []string
	for _, part := range strings.Split(csv, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Seed creates a location for every name whose slug is not taken yet and returns how
// many were inserted. Running it twice is harmless.
func Seed(ctx context.Context, repo Repository, names []string, logger *zap.Logger) (int, error) {
	created := 0
	for _, name := range names {
		s := slug.Make(name)
		if s == "" {
			logger.Warn("Skipping location with empty slug", zap.String("name", name))
			continue
		}
		loc := &Location{ID: uuid.NewString(), Name: name, Slug: s}
		ok, err := repo.CreateIfAbsent(ctx, loc)
		if err != nil {
			return created, fmt.Errorf("seeding location %q: %w", name, err)
		}
		if ok {
			created++
			logger.Info("Location seeded", zap.String("id", loc.ID), zap.String("name", name), zap.String("slug", s))
		} else {
			logger.Debug("Location already present", zap.String("slug", s))
		}
	}
	return created, nil
}
