package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sv "github.com/simonvetter/modbus"

	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/config"
)

// conn is the subset of *sv.ModbusClient the transport uses.
type conn interface {
	Open() error
	Close() error
	SetUnitId(id uint8) error
	WriteRegister(addr uint16, value uint16) error
}

// dialFunc creates an unopened library client.
type dialFunc func(conf *sv.ClientConfiguration) (conn, error)

func dialLibrary(conf *sv.ClientConfiguration) (conn, error) {
	return sv.NewClient(conf)
}

// Logger interface for optional logging.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Stats holds operational statistics.
type Stats struct {
	WritesOK        uint64    `json:"writes_ok"`
	WritesFailed    uint64    `json:"writes_failed"`
	ReconnectsTotal uint64    `json:"reconnects_total"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorAt     time.Time `json:"last_error_at,omitzero"`
	LastWriteAt     time.Time `json:"last_write_at,omitzero"`
	Connected       bool      `json:"connected"`
}

// Client writes holding registers on one Modbus device.
//
// Thread Safety: All methods are safe for concurrent use. Transactions
// are serialised on the single underlying connection.
type Client struct {
	cfg    config.ModbusConfig
	url    string
	unitID uint8
	conn   conn

	// mu guards conn, open and closed, and serialises transactions.
	mu     sync.Mutex
	open   bool
	closed bool

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	writesOK     atomic.Uint64
	writesFailed atomic.Uint64
	reconnects   atomic.Uint64
	lastWrite    atomic.Int64 // Unix nanoseconds

	lastErrMu sync.RWMutex
	lastErr   string
	lastErrAt time.Time
}

// Connect opens the Modbus connection described by cfg.
//
// Parameters:
//   - cfg: Modbus configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrInvalidMode or ErrInvalidUnitID for a bad configuration, ErrConnectionFailed
//     if the device cannot be reached
func Connect(cfg config.ModbusConfig) (*Client, error) {
	return connect(cfg, dialLibrary)
}

func connect(cfg config.ModbusConfig, dial dialFunc) (*Client, error) {
	conf, err := clientConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.UnitID < 0 || cfg.UnitID > 247 {
		return nil, fmt.Errorf("%w: %d out of range", ErrInvalidUnitID, cfg.UnitID)
	}

	cn, err := dial(conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		cfg:    cfg,
		url:    conf.URL,
		unitID: uint8(cfg.UnitID), //nolint:gosec // range checked above
		conn:   cn,
	}

	if err := c.openLocked(); err != nil {
		return nil, err
	}

	return c, nil
}

// openLocked opens the connection and selects the unit ID.
// Caller must hold mu (or have exclusive access during construction).
func (c *Client) openLocked() error {
	if err := c.conn.Open(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.url, err)
	}
	if err := c.conn.SetUnitId(c.unitID); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("%w: set unit id: %w", ErrConnectionFailed, err)
	}
	c.open = true
	return nil
}

// WriteRegister writes one holding register (function code 0x06).
//
// The write is attempted once. If the connection was dropped by an earlier
// failure it is reopened first.
//
// Parameters:
//   - ctx: Checked before the transaction starts; the transaction itself
//     is bounded by the configured timeout
//   - address: Register address
//   - value: Encoded register word
//
// Returns:
//   - error: wrapping ErrWriteFailed, ErrNotConnected or the context error
func (c *Client) WriteRegister(ctx context.Context, address uint16, value uint16) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrNotConnected
	}

	// Waiting for the lock may have outlived the caller.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if !c.open {
		if err := c.openLocked(); err != nil {
			c.recordFailure(err)
			return fmt.Errorf("%w: reconnect: %w", ErrWriteFailed, err)
		}
		c.reconnects.Add(1)
		c.logInfo("modbus connection reopened", "url", c.url)
	}

	if err := c.conn.WriteRegister(address, value); err != nil {
		c.recordFailure(err)
		if !isException(err) {
			_ = c.conn.Close()
			c.open = false
			c.logWarn("modbus connection dropped after write failure",
				"url", c.url,
				"address", fmt.Sprintf("0x%04X", address),
				"error", err)
		}
		return fmt.Errorf("%w: address 0x%04X: %w", ErrWriteFailed, address, err)
	}

	c.writesOK.Add(1)
	c.lastWrite.Store(time.Now().UnixNano())
	return nil
}

// isException reports whether err is a Modbus exception reply from the
// device. The link is healthy in that case.
func isException(err error) bool {
	for _, e := range []error{
		sv.ErrIllegalFunction,
		sv.ErrIllegalDataAddress,
		sv.ErrIllegalDataValue,
		sv.ErrServerDeviceFailure,
		sv.ErrAcknowledge,
		sv.ErrServerDeviceBusy,
		sv.ErrMemoryParityError,
		sv.ErrGWPathUnavailable,
		sv.ErrGWTargetFailedToRespond,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (c *Client) recordFailure(err error) {
	c.writesFailed.Add(1)
	c.lastErrMu.Lock()
	c.lastErr = err.Error()
	c.lastErrAt = time.Now()
	c.lastErrMu.Unlock()
}

// Close closes the connection. Later writes return ErrNotConnected.
// Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.open {
		c.open = false
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("closing modbus connection: %w", err)
		}
	}

	c.logInfo("modbus connection closed", "url", c.url)
	return nil
}

// IsConnected returns true if the connection is currently open.
//
// After a failed write this is false until the next write reopens it.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open && !c.closed
}

// HealthCheck reports whether the device link is usable.
//
// A dropped connection is reopened here so the health endpoint reflects
// whether the device is reachable now.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrNotConnected
	}
	if c.open {
		return nil
	}
	if err := c.openLocked(); err != nil {
		return err
	}
	c.reconnects.Add(1)
	return nil
}

// URL returns the transport URL (e.g. "tcp://192.168.1.50:502").
func (c *Client) URL() string {
	return c.url
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	c.lastErrMu.RLock()
	lastErr, lastErrAt := c.lastErr, c.lastErrAt
	c.lastErrMu.RUnlock()

	var lastWrite time.Time
	if ns := c.lastWrite.Load(); ns != 0 {
		lastWrite = time.Unix(0, ns)
	}

	return Stats{
		WritesOK:        c.writesOK.Load(),
		WritesFailed:    c.writesFailed.Load(),
		ReconnectsTotal: c.reconnects.Load(),
		LastError:       lastErr,
		LastErrorAt:     lastErrAt,
		LastWriteAt:     lastWrite,
		Connected:       c.IsConnected(),
	}
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// logInfo logs an info message if logger is set.
func (c *Client) logInfo(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (c *Client) logWarn(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
