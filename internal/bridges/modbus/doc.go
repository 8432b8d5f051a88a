// Package modbus provides the Modbus transport used to write inverter
// holding registers.
//
// The client wraps github.com/simonvetter/modbus and supports three
// transports, selected by config.ModbusConfig.Mode:
//
//   - "tcp"        → tcp://host:502 (Modbus TCP, e.g. a Deye logger stick)
//   - "rtu"        → rtu:///dev/ttyUSB0 (RS-485 serial)
//   - "rtuovertcp" → rtuovertcp://host:8899 (RTU frames over a TCP gateway)
//
// # Thread Safety
//
// One connection is shared by every command processor. A mutex allows a
// single transaction at a time, so concurrent callers are serialised.
//
// # Failure Handling
//
// Writes are not retried. When a write fails for any reason other than a
// Modbus exception reply, the connection is closed and reopened on the next
// write. Exception replies (illegal address, device busy...) mean the link
// is healthy and leave the connection open.
//
// # Usage
//
//	client, err := modbus.Connect(cfg.Modbus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.WriteRegister(ctx, 0x10, 500)
package modbus
