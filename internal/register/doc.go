// Package register describes the controllable holding registers of a
// Modbus device and translates human-facing values into register writes.
//
// A Definition names one parameter: the MQTT topic suffix it is commanded
// on, the capability groups it belongs to, and how a value is encoded
// (kind, scale, word order). Translate is pure and deterministic:
//
//	def := register.Definition{
//	    TopicSuffix: "grid_charge",
//	    Groups:      []string{"deye_sg01hp3_grid_charge"},
//	    Kind:        register.KindU16,
//	    Address:     0x10,
//	}
//	writes, err := def.Translate(500)
//	// writes == []register.Write{{Address: 0x10, Value: 500}}
//
// A Registry holds every definition whose groups intersect the enabled
// capability groups. Find never errors: deciding what zero or several
// matches mean is left to the caller.
//
// Definitions are normally loaded from a YAML or TOML file with LoadFile.
package register
