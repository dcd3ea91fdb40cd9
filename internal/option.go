package internal

// Option configures Run before any component starts.
type Option func(*settings)

// settings collects what Run needs injected from the outside world.
type settings struct {
	cfg *Config
}

// WithConfig supplies the loaded configuration.
func WithConfig(cfg *Config) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}
