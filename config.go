package dwire

import (
	"time"

	"github.com/rs/zerolog"
)

// ResponseByte is the byte a debugWIRE target sends after a break when the
// trial baud rate matches its clock.
const ResponseByte = 0x55

// Config holds the search parameters and port settings for a session
type Config struct {
	StartRate   int           // First trial rate, well above the fastest target clock
	StartBreak  time.Duration // Break used before any rate estimate exists
	StepPercent int           // Bisection step when widening the exact-match window
	MaxTrials   int           // Safety limit on trials per search, 0 means unbounded
	ReadTimeout time.Duration // Per-byte read timeout passed to the transport
	Logger      zerolog.Logger
	Tracer      Tracer // nil traces through Logger
}

// Option is a functional option for configuring a session
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		StartRate:   40000,                 // above 20MHz/128
		StartBreak:  50 * time.Millisecond, // resets clocks down to 320kHz
		StepPercent: 2,
		ReadTimeout: 200 * time.Millisecond,
		Logger:      zerolog.Nop(),
	}
}

// WithStartRate sets the baud rate of the first descent trial
func WithStartRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 {
			return ErrInvalidConfig
		}
		c.StartRate = rate
		return nil
	}
}

// WithStartBreak sets the break length used for the first descent trial
func WithStartBreak(d time.Duration) Option {
	return func(c *Config) error {
		if d < time.Millisecond {
			return ErrInvalidConfig
		}
		c.StartBreak = d
		return nil
	}
}

// WithStepPercent sets the bisection step (1-50 percent)
func WithStepPercent(percent int) Option {
	return func(c *Config) error {
		if percent < 1 || percent > 50 {
			return ErrInvalidConfig
		}
		c.StepPercent = percent
		return nil
	}
}

// WithMaxTrials limits the number of trials a single search may run
func WithMaxTrials(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return ErrInvalidConfig
		}
		c.MaxTrials = n
		return nil
	}
}

// WithReadTimeout sets the per-byte read timeout.
// Must be a multiple of 100ms (VTIME granularity) between 100ms and 25.5s.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 100*time.Millisecond || timeout > 25500*time.Millisecond {
			return ErrInvalidConfig
		}
		if timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithTracer sets the receiver of per-trial diagnostics
func WithTracer(tracer Tracer) Option {
	return func(c *Config) error {
		c.Tracer = tracer
		return nil
	}
}

func newConfig(opts []Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	if config.Tracer == nil {
		config.Tracer = LogTracer{Logger: config.Logger}
	}
	return config, nil
}
