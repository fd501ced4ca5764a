package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithName labels the board in metrics.
func WithName(name string) Option {
	return func(s *TreapStore) {
		if name != "" {
			s.name = name
		}
	}
}

// WithSeed fixes the priority source, for reproducible tree shapes in tests.
func WithSeed(seed uint64) Option {
	return func(s *TreapStore) {
		s.seed = seed
	}
}
