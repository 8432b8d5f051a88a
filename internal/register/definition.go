package register

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Kind is the wire encoding of a register value.
type Kind string

// Supported register kinds.
const (
	KindU16  Kind = "u16"  // 0..65535, one register
	KindS16  Kind = "s16"  // -32768..32767, two's complement, one register
	KindU32  Kind = "u32"  // 0..4294967295, two registers
	KindS32  Kind = "s32"  // two's complement, two registers
	KindBool Kind = "bool" // 0 or 1, one register
)

// WordOrder selects which half of a 32-bit value is written first.
type WordOrder string

// Supported word orders.
const (
	// LowWordFirst writes the low 16 bits at Address and the high 16 bits
	// at Address+1. Deye inverters use this layout.
	LowWordFirst WordOrder = "low_first"

	// HighWordFirst writes the high 16 bits at Address.
	HighWordFirst WordOrder = "high_first"
)

// Encoding limits.
const (
	wordBits = 16
	wordMask = 0xFFFF

	maxAddress32 = math.MaxUint16 - 1
)

// Write is one holding register write: an address and the 16-bit word
// already encoded for the wire.
type Write struct {
	Address uint16 `json:"address"`
	Value   uint16 `json:"value"`
}

// String formats the write for logs, e.g. "0x0010=500".
func (w Write) String() string {
	return fmt.Sprintf("0x%04X=%d", w.Address, w.Value)
}

// Definition describes one controllable parameter.
//
// Definitions are built once at startup and never modified afterwards.
type Definition struct {
	// Name is a human-readable label.
	Name string `yaml:"name" toml:"name" json:"name"`

	// TopicSuffix is the MQTT identifier the parameter is commanded on.
	TopicSuffix string `yaml:"topic_suffix" toml:"topic_suffix" json:"topic_suffix"`

	// Groups lists the capability groups this register belongs to.
	Groups []string `yaml:"groups" toml:"groups" json:"groups"`

	Kind    Kind   `yaml:"kind" toml:"kind" json:"kind"`
	Address uint16 `yaml:"address" toml:"address" json:"address"`

	// Scale is the size of one raw unit in human units. Zero means 1.
	// A register holding tenths of an ampere has Scale 0.1.
	Scale float64 `yaml:"scale" toml:"scale" json:"scale,omitempty"`

	// Min and Max bound the accepted value in human units.
	Min *float64 `yaml:"min" toml:"min" json:"min,omitempty"`
	Max *float64 `yaml:"max" toml:"max" json:"max,omitempty"`

	// WordOrder applies to 32-bit kinds. Empty means LowWordFirst.
	WordOrder WordOrder `yaml:"word_order" toml:"word_order" json:"word_order,omitempty"`

	Unit string `yaml:"unit" toml:"unit" json:"unit,omitempty"`
}

// HasGroup reports whether the definition belongs to group.
func (d *Definition) HasGroup(group string) bool {
	return slices.Contains(d.Groups, group)
}

// scale returns the effective scale.
func (d *Definition) scale() float64 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

// wordOrder returns the effective word order.
func (d *Definition) wordOrder() WordOrder {
	if d.WordOrder == "" {
		return LowWordFirst
	}
	return d.WordOrder
}

// label names the definition in errors.
func (d *Definition) label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.TopicSuffix
}

// Validate checks the definition for configuration errors.
//
// Returns:
//   - error: wrapping ErrInvalidDefinition, or nil if valid
func (d *Definition) Validate() error {
	var problems []string

	if strings.TrimSpace(d.TopicSuffix) == "" {
		problems = append(problems, "topic_suffix is required")
	}
	if strings.ContainsAny(d.TopicSuffix, "+#") {
		problems = append(problems, "topic_suffix must not contain wildcards")
	}
	if len(d.Groups) == 0 {
		problems = append(problems, "at least one group is required")
	}
	for _, g := range d.Groups {
		if strings.TrimSpace(g) == "" {
			problems = append(problems, "group names must not be empty")
			break
		}
	}

	switch d.Kind {
	case KindU16, KindS16, KindBool:
	case KindU32, KindS32:
		if d.Address > maxAddress32 {
			problems = append(problems, fmt.Sprintf("address 0x%04X leaves no room for the second word", d.Address))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown kind %q", d.Kind))
	}

	switch d.wordOrder() {
	case LowWordFirst, HighWordFirst:
	default:
		problems = append(problems, fmt.Sprintf("unknown word_order %q", d.WordOrder))
	}

	if d.Scale < 0 || math.IsNaN(d.Scale) || math.IsInf(d.Scale, 0) {
		problems = append(problems, "scale must be a positive finite number")
	}
	if d.Kind == KindBool && d.Scale != 0 && d.Scale != 1 {
		problems = append(problems, "bool registers cannot be scaled")
	}

	if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
		problems = append(problems, "min must not exceed max")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDefinition, d.label(), strings.Join(problems, "; "))
	}
	return nil
}

// Translate converts a human-facing value into the ordered register writes
// that apply it.
//
// The raw register value is round(value / Scale). 16-bit kinds produce one
// write at Address; 32-bit kinds produce two writes at Address and
// Address+1 in the configured word order. Order is significant and must be
// preserved by the caller.
//
// Parameters:
//   - value: The value in human units (e.g. amperes, watts, percent)
//
// Returns:
//   - []Write: One or two writes in the order they must be issued
//   - error: ErrInvalidValue, ErrOutOfRange or ErrNotRepresentable (wrapped)
func (d *Definition) Translate(value float64) ([]Write, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, d.label(), value)
	}
	if d.Min != nil && value < *d.Min {
		return nil, fmt.Errorf("%w: %s: %v below minimum %v", ErrOutOfRange, d.label(), value, *d.Min)
	}
	if d.Max != nil && value > *d.Max {
		return nil, fmt.Errorf("%w: %s: %v above maximum %v", ErrOutOfRange, d.label(), value, *d.Max)
	}

	raw := math.Round(value / d.scale())

	switch d.Kind {
	case KindU16:
		if raw < 0 || raw > math.MaxUint16 {
			return nil, d.notRepresentable(value)
		}
		return []Write{{Address: d.Address, Value: uint16(raw)}}, nil

	case KindS16:
		if raw < math.MinInt16 || raw > math.MaxInt16 {
			return nil, d.notRepresentable(value)
		}
		return []Write{{Address: d.Address, Value: uint16(int16(raw))}}, nil //nolint:gosec // range checked above

	case KindBool:
		if value != 0 && value != 1 {
			return nil, d.notRepresentable(value)
		}
		return []Write{{Address: d.Address, Value: uint16(value)}}, nil

	case KindU32:
		if raw < 0 || raw > math.MaxUint32 {
			return nil, d.notRepresentable(value)
		}
		return d.split(uint32(raw)), nil

	case KindS32:
		if raw < math.MinInt32 || raw > math.MaxInt32 {
			return nil, d.notRepresentable(value)
		}
		return d.split(uint32(int32(raw))), nil //nolint:gosec // range checked above

	default:
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidDefinition, d.label(), d.Kind)
	}
}

// split encodes a 32-bit word pair in the configured word order.
func (d *Definition) split(v uint32) []Write {
	low := uint16(v & wordMask)
	high := uint16(v >> wordBits)

	if d.wordOrder() == HighWordFirst {
		return []Write{
			{Address: d.Address, Value: high},
			{Address: d.Address + 1, Value: low},
		}
	}
	return []Write{
		{Address: d.Address, Value: low},
		{Address: d.Address + 1, Value: high},
	}
}

func (d *Definition) notRepresentable(value float64) error {
	return fmt.Errorf("%w: %s: %v does not fit %s with scale %v",
		ErrNotRepresentable, d.label(), value, d.Kind, d.scale())
}
