package user

import (
	"dishrent_backend/internal/shared"
)

// FormatProfile converts a Profile into its public representation.
func FormatProfile(p *Profile) FormattedProfile {
	return FormattedProfile{
		ID:          p.ID,
		Email:       p.Email,
		FullName:    p.FullName,
		Role:        p.Role,
		Phone:       deref(p.Phone),
		OutletID:    deref(p.OutletID),
		OutletName:  deref(p.OutletName),
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		LastLoginAt: p.LastLoginAt,
	}
}

// ProfileMetadata is the account metadata a profile should be mirrored as.
// Absent optional fields are nil so that Merge clears stale keys.
func ProfileMetadata(p *Profile) shared.Metadata {
	return shared.Metadata{
		shared.MetadataFullName: p.FullName,
		shared.MetadataRole:     p.Role,
		shared.MetadataPhone:    nilIfEmpty(p.Phone),
		shared.MetadataOutletID: nilIfEmpty(p.OutletID),
		shared.MetadataIsActive: p.IsActive,
	}
}

// metadataDiverges reports whether md disagrees with the profile. A missing is_active
// key counts as active, which is how accounts are created.
func metadataDiverges(md shared.Metadata, p *Profile) bool {
	str := func(key string) string {
		v, _ := md[key].(string)
		return v
	}
	active, ok := md[shared.MetadataIsActive].(bool)
	if !ok {
		active = true
	}
	return str(shared.MetadataFullName) != p.FullName ||
		str(shared.MetadataRole) != p.Role ||
		str(shared.MetadataPhone) != deref(p.Phone) ||
		str(shared.MetadataOutletID) != deref(p.OutletID) ||
		active != p.IsActive
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nilIfEmpty(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
