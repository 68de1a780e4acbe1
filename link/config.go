package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/fluidline/regloicc/logger"
	"github.com/fluidline/regloicc/transport"
)

// Default configuration values.
const (
	// DefaultPollTimeout is the bounded wait for unsolicited lines when the
	// protocol loop is idle. It trades off between CPU usage and latency
	// for queued commands.
	DefaultPollTimeout = 50 * time.Millisecond

	// DefaultReplyTimeout bounds the wait for a response line during an
	// exchange.
	DefaultReplyTimeout = 500 * time.Millisecond

	// DefaultSendTimeout bounds how long a caller waits to enqueue an
	// exchange when the queue is full.
	DefaultSendTimeout = 3 * time.Second

	DefaultQueueSize = 10
)

// Config holds all configuration for a pump link Engine.
type Config struct {
	address string

	settings transport.Settings

	pollTimeout  time.Duration
	replyTimeout time.Duration
	sendTimeout  time.Duration
	queueSize    int

	logger logger.Logger
}

// NewConfig creates an Engine configuration for the given address with
// options applied in order. The address selects the transport variant: a
// bare path is a serial device, "host:port" or "tcp://host:port" is a
// serial-to-Ethernet gateway.
func NewConfig(address string, opts ...Option) (*Config, error) {
	cfg := &Config{
		address:      address,
		settings:     transport.DefaultSettings(),
		pollTimeout:  DefaultPollTimeout,
		replyTimeout: DefaultReplyTimeout,
		sendTimeout:  DefaultSendTimeout,
		queueSize:    DefaultQueueSize,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	cfg.settings.Logger = cfg.logger

	return cfg, nil
}

// Address returns the configured pump address.
func (cfg *Config) Address() string { return cfg.address }

// PollTimeout returns the idle poll timeout.
func (cfg *Config) PollTimeout() time.Duration { return cfg.pollTimeout }

// ReplyTimeout returns the per-exchange response timeout.
func (cfg *Config) ReplyTimeout() time.Duration { return cfg.replyTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring an Engine.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithBaudRate sets the serial baud rate. The pump ships at 9600.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *Config) error {
		if baud <= 0 {
			return fmt.Errorf("link: invalid baud rate %d", baud)
		}
		cfg.settings.BaudRate = baud

		return nil
	})
}

// WithDataBits sets the serial data bits (default 8).
func WithDataBits(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits < 5 || bits > 8 {
			return fmt.Errorf("link: invalid data bits %d", bits)
		}
		cfg.settings.DataBits = bits

		return nil
	})
}

// WithParity sets the serial parity mode (default none).
func WithParity(p transport.Parity) Option {
	return optFunc(func(cfg *Config) error {
		switch p {
		case transport.ParityNone, transport.ParityOdd, transport.ParityEven:
			cfg.settings.Parity = p
			return nil
		default:
			return fmt.Errorf("link: invalid parity %q", string(p))
		}
	})
}

// WithStopBits sets the serial stop bits (default 1).
func WithStopBits(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits != 1 && bits != 2 {
			return fmt.Errorf("link: invalid stop bits %d", bits)
		}
		cfg.settings.StopBits = bits

		return nil
	})
}

// WithPollTimeout sets the bounded wait for unsolicited lines while idle.
func WithPollTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("link: poll timeout must be positive")
		}
		cfg.pollTimeout = d

		return nil
	})
}

// WithReplyTimeout sets the bounded wait for a response line during an
// exchange.
func WithReplyTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("link: reply timeout must be positive")
		}
		cfg.replyTimeout = d

		return nil
	})
}

// WithSendTimeout sets how long a caller waits for queue space before the
// request fails.
func WithSendTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("link: send timeout must be positive")
		}
		cfg.sendTimeout = d

		return nil
	})
}

// WithQueueSize sets the size of the inbound exchange queue.
func WithQueueSize(size int) Option {
	return optFunc(func(cfg *Config) error {
		if size < 1 {
			return errors.New("link: queue size must be >= 1")
		}
		cfg.queueSize = size

		return nil
	})
}

// WithConnectTimeout sets the TCP dial timeout for gateway addresses.
func WithConnectTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("link: connect timeout must be positive")
		}
		cfg.settings.ConnectTimeout = d

		return nil
	})
}

// WithLogger sets the logger for the engine.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("link: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
