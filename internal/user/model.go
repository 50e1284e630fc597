// File: internal/user/model.go
package user

import (
	"time"

	"dishrent_backend/internal/common"
)

// Profile is the system of record for a staff member. Its ID is the identity provider
// account id.
type Profile struct {
	ID       string  `gorm:"type:varchar(128);primaryKey"`
	Email    string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_profiles_email"`
	FullName string  `gorm:"type:varchar(255);not null"`
	Role     string  `gorm:"type:varchar(50);not null;index:idx_user_profiles_role"`
	Phone    *string `gorm:"type:varchar(32)"`
	OutletID *string `gorm:"type:varchar(64);index:idx_user_profiles_outlet_id"`
	// OutletName is copied from locations.name whenever OutletID is written.
	OutletName *string `gorm:"type:varchar(255)"`
	// No gorm default here: a default would make gorm skip an explicit false on insert.
	IsActive    bool `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "user_profiles"
}

// FormattedProfile is the public view of a Profile. Empty optional fields are omitted.
type FormattedProfile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	Phone       string     `json:"phone,omitempty"`
	OutletID    string     `json:"outlet_id,omitempty"`
	OutletName  string     `json:"outlet_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ListQuery holds the directory filters accepted by GET /users.
type ListQuery struct {
	common.PaginationQuery
	Role     string `form:"role"`
	OutletID string `form:"outlet_id"`
	IsActive *bool  `form:"is_active"`
}
