package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "graylogic/inverter"

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Command topics are namespaced by the logical instance index:
//
//	topics := mqtt.Topics{Prefix: "graylogic/inverter"}
//	topic := topics.Command(1, "grid_charge")
//	// Returns: "graylogic/inverter/1/grid_charge/command"
type Topics struct {
	// Prefix is the base for every topic. Empty means DefaultTopicPrefix.
	Prefix string
}

// prefix returns the configured prefix without a trailing slash.
func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Command returns the topic a command processor listens on.
// The suffix may itself contain levels (e.g. "settings/battery/max_charge_current").
//
// Example: graylogic/inverter/1/grid_charge/command
func (t Topics) Command(instance int, suffix string) string {
	return fmt.Sprintf("%s/%d/%s/command", t.prefix(), instance, strings.Trim(suffix, "/"))
}

// Status returns the bridge online/offline status topic (retained, used for LWT).
//
// Example: graylogic/inverter/status
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// AllInstanceTopics returns a pattern matching every topic of one instance.
// Use with caution - this receives all traffic for the device.
//
// Pattern: graylogic/inverter/1/#
func (t Topics) AllInstanceTopics(instance int) string {
	return fmt.Sprintf("%s/%d/#", t.prefix(), instance)
}
