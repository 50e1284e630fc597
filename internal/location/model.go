// File: internal/location/model.go
package location

import "time"

// Location is a rental outlet. Profiles reference it through outlet_id and keep a copy
// of its name.
type Location struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Slug      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_locations_slug"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the Location model.
func (Location) TableName() string {
	return "locations"
}

// LocationResponse defines the structure for location data sent in API responses.
type LocationResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ToLocationResponse converts a Location model to a LocationResponse DTO.
func ToLocationResponse(l *Location) LocationResponse {
	return LocationResponse{ID: l.ID, Name: l.Name, Slug: l.Slug}
}
