package user

import (
	"context"
)

// ProfileIndexer mirrors formatted profiles into a search index.
type ProfileIndexer interface {
	Enabled() bool
	Index(ctx context.Context, p FormattedProfile) error
	BulkIndex(ctx context.Context, profiles []FormattedProfile) (indexed int, err error)
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, from, size int) ([]FormattedProfile, int64, error)
}

// NoopIndexer is used when no search backend is configured.
type NoopIndexer struct{}

func (NoopIndexer) Enabled() bool                                  { return false }
func (NoopIndexer) Index(context.Context, FormattedProfile) error  { return nil }
func (NoopIndexer) Remove(context.Context, string) error           { return nil }
func (NoopIndexer) BulkIndex(_ context.Context, _ []FormattedProfile) (int, error) {
	return 0, nil
}
func (NoopIndexer) Search(context.Context, string, int, int) ([]FormattedProfile, int64, error) {
	return nil, 0, nil
}
