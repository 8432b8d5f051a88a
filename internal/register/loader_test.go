package register

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFile_YAML(t *testing.T) {
	defs, err := LoadFile("testdata/registers.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if len(defs) != 3 {
		t.Fatalf("len(defs) = %d, want 3", len(defs))
	}

	grid := defs[0]
	if grid.TopicSuffix != "grid_charge" || grid.Address != 0x10 || grid.Kind != KindU16 {
		t.Errorf("grid definition = %+v", grid)
	}
	if grid.Max == nil || *grid.Max != 1000 {
		t.Errorf("grid Max = %v, want 1000", grid.Max)
	}

	if defs[1].Scale != 0.1 {
		t.Errorf("power Scale = %v, want 0.1", defs[1].Scale)
	}
	if !defs[2].HasGroup("deye_sg01hp3_battery") {
		t.Errorf("battery groups = %v", defs[2].Groups)
	}
}

func TestLoadFile_TOML(t *testing.T) {
	defs, err := LoadFile("testdata/registers.toml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Address != 0x10 || defs[0].Min == nil || *defs[0].Min != 0 {
		t.Errorf("grid definition = %+v", defs[0])
	}
	if defs[1].Kind != KindS32 || defs[1].WordOrder != HighWordFirst {
		t.Errorf("export definition = %+v", defs[1])
	}
}

func TestLoadFile_InvalidDefinitions(t *testing.T) {
	_, err := LoadFile("testdata/invalid.yaml")
	if err == nil {
		t.Fatal("LoadFile() expected error")
	}
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("error = %v, want ErrInvalidDefinition", err)
	}
	// Both bad entries are reported.
	if !strings.Contains(err.Error(), "register 0") || !strings.Contains(err.Error(), "register 1") {
		t.Errorf("error should mention both registers: %v", err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	unknownField := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknownField, []byte("registers:\n  - topic_sufix: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	unknownKey := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknownKey, []byte("[[registers]]\nadress = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	badExt := filepath.Join(dir, "registers.json")
	if err := os.WriteFile(badExt, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), os.ErrNotExist},
		{"unknown yaml field", unknownField, nil},
		{"unknown toml key", unknownKey, nil},
		{"unsupported extension", badExt, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			if err == nil {
				t.Fatal("LoadFile() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	defs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("len(defs) = %d, want 0", len(defs))
	}
}
