// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"dishrent_backend/internal/shared"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the data operations on user_profiles.
type Repository interface {
	shared.ProfileRoleLookup
	// Upsert writes every column of p, replacing an existing row with the same id.
	Upsert(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	// UpdateFields applies a partial update in a single statement. A nil value sets NULL.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, q ListQuery) ([]Profile, int64, error)
	// FindBatchAfter pages through all profiles in id order, for sync jobs.
	FindBatchAfter(ctx context.Context, afterID string, limit int) ([]Profile, error)
	ListIDsCreatedBefore(ctx context.Context, before time.Time) ([]string, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM profile repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

var upsertColumns = []string{
	"email", "full_name", "role", "phone", "outlet_id", "outlet_name", "is_active", "updated_at",
}

func (r *gormRepository) Upsert(ctx context.Context, p *Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(p).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) RoleOf(ctx context.Context, id string) (string, error) {
	var p Profile
	err := r.db.WithContext(ctx).Select("role").Where("id = ?", id).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrProfileNotFound
		}
		return "", err
	}
	return p.Role, nil
}

func (r *gormRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&Profile{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Profile{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Profile, int64, error) {
	query := r.db.WithContext(ctx).Model(&Profile{})
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}
	if q.OutletID != "" {
		query = query.Where("outlet_id = ?", q.OutletID)
	}
	if q.IsActive != nil {
		query = query.Where("is_active = ?", *q.IsActive)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []Profile
	err := query.Order("full_name ASC").Order("id ASC").
		Offset(q.Offset()).Limit(q.Limit()).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *gormRepository) FindBatchAfter(ctx context.Context, afterID string, limit int) ([]Profile, error) {
	var profiles []Profile
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

func (r *gormRepository) ListIDsCreatedBefore(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&Profile{}).
		Where("created_at < ?", before).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// UpdateLastLogin leaves updated_at alone; a login is not a profile edit.
func (r *gormRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Profile{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
