package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-modbus/internal/audit"
	"github.com/nerrad567/gray-logic-modbus/internal/bridges/modbus"
	"github.com/nerrad567/gray-logic-modbus/internal/command"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-modbus/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 5 * time.Second

// HealthChecker is implemented by every component reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ProcessorDescriber lists the command processors. Satisfied by *command.Set.
type ProcessorDescriber interface {
	Describe() []command.Info
}

// ModbusStatsProvider exposes transport counters. Satisfied by *modbus.Client.
type ModbusStatsProvider interface {
	Stats() modbus.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Processors ProcessorDescriber

	// Health maps component names ("mqtt", "modbus", "database") to checks.
	Health map[string]HealthChecker

	// Commands is optional. Without it /commands answers 503.
	Commands audit.Repository

	// Modbus is optional. Without it /metrics omits transport counters.
	Modbus ModbusStatsProvider

	Version string
}

// Server is the introspection HTTP API of the bridge.
//
// It is read-only: commands reach the inverter through MQTT only.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	processors ProcessorDescriber
	health     map[string]HealthChecker
	commands   audit.Repository
	modbus     ModbusStatsProvider
	version    string
	startTime  time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, processors) plus optional ones
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Processors == nil {
		return nil, errors.New("processor set is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		processors: deps.Processors,
		health:     deps.Health,
		commands:   deps.Commands,
		modbus:     deps.Modbus,
		version:    deps.Version,
		startTime:  time.Now(),
	}, nil
}

// Start binds the listener and serves HTTP in a background goroutine.
// Binding errors (port in use) are returned; serve errors are logged.
//
// Parameters:
//   - ctx: Context for cancellation of the bind
//
// Returns:
//   - error: If the listener cannot be created
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("api server already started")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("binding API listener: %w", err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
