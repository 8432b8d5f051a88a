// Package mqtt provides MQTT client connectivity for the Modbus bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Command topic subscriptions, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the inbound command bus. Each controllable inverter parameter has
// its own command topic, namespaced by the logical instance index:
//
//	publisher → {prefix}/{instance}/{suffix}/command → bridge → Modbus device
//
// Commands are fire-and-forget: nothing is published back to the sender.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anyone allowed to publish on the command topics can change device settings
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.SubscribeCommandHandler(1, "grid_charge",
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
