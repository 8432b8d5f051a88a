// Package command turns MQTT command messages into Modbus register writes.
//
// Each controllable parameter has a Processor. At construction a processor
// looks up its register definition by topic suffix and capability group:
//
//   - exactly one match: the processor is bound
//   - no match: an error names the capability group to enable
//   - several matches: a different error reports the ambiguity
//
// An unbound processor never fails startup. It still subscribes, and every
// command it receives is logged and dropped.
//
// # Command Pipeline
//
//	payload "500.0" → ParseFloat → Definition.Translate → WriteRegister(0x10, 500)
//
// Writes are issued in order and stop at the first failure. There is no
// retry and no rollback: a two-register value can end up half written,
// which is reported in the returned error ("write 2/2 at address 0x0011").
// Parse and translation failures are logged and dropped; nothing is sent
// back to the publisher.
//
// # Usage
//
//	set, err := command.NewDefaultSet(command.Options{
//	    Registry:      registry,
//	    Subscriber:    mqttClient,
//	    Writer:        modbusClient,
//	    InstanceIndex: cfg.Bridge.InstanceIndex,
//	    Logger:        log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := set.Initialize(ctx); err != nil {
//	    return err
//	}
package command
