// File: internal/location/repository.go
package location

import (
	"context"
	"errors"
	"strings"

	"dishrent_backend/internal/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the data operations on locations.
type Repository interface {
	// FindNameByID returns the location's name, or nil when no location has that id.
	FindNameByID(ctx context.Context, id string) (*string, error)
	FindAll(ctx context.Context) ([]Location, error)
	// CreateIfAbsent inserts l unless a location with the same slug exists. It reports
	// whether a row was written.
	CreateIfAbsent(ctx context.Context, l *Location) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM location repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindNameByID(ctx context.Context, id string) (*string, error) {
	var loc Location
	err := r.db.WithContext(ctx).Select("name").Where("id = ?", id).Take(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loc.Name, nil
}

func (r *gormRepository) FindAll(ctx context.Context) ([]Location, error) {
	var locations []Location
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *gormRepository) CreateIfAbsent(ctx context.Context, l *Location) (bool, error) {
	l.Slug = strings.ToLower(strings.TrimSpace(l.Slug))
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(l)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) || strings.Contains(result.Error.Error(), "unique constraint") {
			return false, common.ErrConflict.WithMessage("Location with this id already exists.")
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
