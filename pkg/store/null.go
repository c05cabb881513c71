package store

import "context"

// NullStore is a no-op store that never keeps anything.
// Useful for testing or when recording is disabled.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() Store {
	return &NullStore{}
}

// Append does nothing.
func (s *NullStore) Append(ctx context.Context, samples ...Sample) error {
	return nil
}

// Load always returns an empty recording.
func (s *NullStore) Load(ctx context.Context) ([]Sample, error) {
	return nil, nil
}

// Close does nothing.
func (s *NullStore) Close() error {
	return nil
}

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
