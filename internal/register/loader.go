package register

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a register definition file.
//
// YAML:
//
//	registers:
//	  - name: Grid charge current
//	    topic_suffix: grid_charge
//	    groups: [deye_sg01hp3_grid_charge]
//	    kind: u16
//	    address: 0x10
//
// TOML:
//
//	[[registers]]
//	name = "Grid charge current"
//	topic_suffix = "grid_charge"
//	groups = ["deye_sg01hp3_grid_charge"]
//	kind = "u16"
//	address = 0x10
type File struct {
	Registers []Definition `yaml:"registers" toml:"registers"`
}

// LoadFile reads and validates a register definition file.
// The format is chosen by extension: .yaml/.yml or .toml.
//
// Duplicate topic suffixes are not rejected here. Whether several
// definitions for one parameter are a problem depends on which groups
// are enabled, so that is decided when processors bind.
//
// Parameters:
//   - path: Path to the register file
//
// Returns:
//   - []Definition: All definitions in file order
//   - error: If the file cannot be read, parsed, or any definition is invalid
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading register file: %w", err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing register file: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("parsing register file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing register file: unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	var errs []error
	for i := range f.Registers {
		if err := f.Registers[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("register %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return f.Registers, nil
}
