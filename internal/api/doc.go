// Package api implements the read-only introspection HTTP API of the
// Modbus command bridge.
//
// Endpoints (all under /api/v1):
//   - GET /health: MQTT, Modbus and database health; 503 when any fails
//   - GET /metrics: runtime, Modbus transport and per-processor counters
//   - GET /processors: every command processor and its register binding
//   - GET /processors/{id}: one processor
//   - GET /commands: the command log, filtered by processor and status
//
// Commands are never accepted over HTTP; the MQTT command topics are the
// only write path to the inverter.
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
