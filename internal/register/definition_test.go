package register

import (
	"errors"
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition
		value float64
		want  []Write
	}{
		{
			name:  "u16 rounds",
			def:   Definition{TopicSuffix: "grid_charge", Kind: KindU16, Address: 0x10},
			value: 500.4,
			want:  []Write{{Address: 0x10, Value: 500}},
		},
		{
			name:  "u16 half rounds away from zero",
			def:   Definition{TopicSuffix: "grid_charge", Kind: KindU16, Address: 0x10},
			value: 0.5,
			want:  []Write{{Address: 0x10, Value: 1}},
		},
		{
			name:  "u16 max",
			def:   Definition{TopicSuffix: "x", Kind: KindU16, Address: 1},
			value: 65535,
			want:  []Write{{Address: 1, Value: 0xFFFF}},
		},
		{
			name:  "scaled",
			def:   Definition{TopicSuffix: "x", Kind: KindU16, Address: 0x28, Scale: 0.1},
			value: 12.3,
			want:  []Write{{Address: 0x28, Value: 123}},
		},
		{
			name:  "s16 negative two's complement",
			def:   Definition{TopicSuffix: "x", Kind: KindS16, Address: 0x20},
			value: -1,
			want:  []Write{{Address: 0x20, Value: 0xFFFF}},
		},
		{
			name:  "s16 min",
			def:   Definition{TopicSuffix: "x", Kind: KindS16, Address: 0x20},
			value: -32768,
			want:  []Write{{Address: 0x20, Value: 0x8000}},
		},
		{
			name:  "bool true",
			def:   Definition{TopicSuffix: "x", Kind: KindBool, Address: 0x30},
			value: 1,
			want:  []Write{{Address: 0x30, Value: 1}},
		},
		{
			name:  "u32 low word first",
			def:   Definition{TopicSuffix: "x", Kind: KindU32, Address: 0x6C},
			value: 0x12345,
			want:  []Write{{Address: 0x6C, Value: 0x2345}, {Address: 0x6D, Value: 0x0001}},
		},
		{
			name:  "u32 high word first",
			def:   Definition{TopicSuffix: "x", Kind: KindU32, Address: 0x6C, WordOrder: HighWordFirst},
			value: 0x12345,
			want:  []Write{{Address: 0x6C, Value: 0x0001}, {Address: 0x6D, Value: 0x2345}},
		},
		{
			name:  "s32 negative",
			def:   Definition{TopicSuffix: "x", Kind: KindS32, Address: 0x8E},
			value: -2,
			want:  []Write{{Address: 0x8E, Value: 0xFFFE}, {Address: 0x8F, Value: 0xFFFF}},
		},
		{
			name:  "within range",
			def:   Definition{TopicSuffix: "x", Kind: KindU16, Address: 0x10, Min: ptr(0), Max: ptr(1000)},
			value: 1000,
			want:  []Write{{Address: 0x10, Value: 1000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.def.Translate(tt.value)
			if err != nil {
				t.Fatalf("Translate(%v) error = %v", tt.value, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Translate(%v) = %v, want %v", tt.value, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("write[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		value   float64
		wantErr error
	}{
		{"NaN", Definition{Kind: KindU16}, math.NaN(), ErrInvalidValue},
		{"+Inf", Definition{Kind: KindU16}, math.Inf(1), ErrInvalidValue},
		{"below min", Definition{Kind: KindU16, Min: ptr(10)}, 9, ErrOutOfRange},
		{"above max", Definition{Kind: KindU16, Max: ptr(100)}, 100.5, ErrOutOfRange},
		{"u16 negative", Definition{Kind: KindU16}, -1, ErrNotRepresentable},
		{"u16 overflow", Definition{Kind: KindU16}, 65536, ErrNotRepresentable},
		{"u16 overflow after scale", Definition{Kind: KindU16, Scale: 0.1}, 6553.6, ErrNotRepresentable},
		{"s16 overflow", Definition{Kind: KindS16}, 32768, ErrNotRepresentable},
		{"bool two", Definition{Kind: KindBool}, 2, ErrNotRepresentable},
		{"bool fraction", Definition{Kind: KindBool}, 0.5, ErrNotRepresentable},
		{"u32 negative", Definition{Kind: KindU32}, -1, ErrNotRepresentable},
		{"s32 overflow", Definition{Kind: KindS32}, math.MaxInt32 + 1, ErrNotRepresentable},
		{"unknown kind", Definition{Kind: "f32"}, 1, ErrInvalidDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.def.Translate(tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Translate(%v) error = %v, want %v", tt.value, err, tt.wantErr)
			}
			if got != nil {
				t.Errorf("Translate(%v) writes = %v, want nil", tt.value, got)
			}
		})
	}
}

func TestTranslate_Deterministic(t *testing.T) {
	def := Definition{TopicSuffix: "x", Kind: KindU32, Address: 0x10, Scale: 0.01}

	first, err := def.Translate(1234.56)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	for range 10 {
		again, err := def.Translate(1234.56)
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if len(again) != len(first) || again[0] != first[0] || again[1] != first[1] {
			t.Fatalf("Translate() = %v, want %v", again, first)
		}
	}
}

func TestDefinition_Validate(t *testing.T) {
	valid := func() Definition {
		return Definition{
			Name:        "Grid charge",
			TopicSuffix: "grid_charge",
			Groups:      []string{"ctrl_a"},
			Kind:        KindU16,
			Address:     0x10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr bool
	}{
		{"valid", func(*Definition) {}, false},
		{"valid u32 at last pair", func(d *Definition) { d.Kind = KindU32; d.Address = 0xFFFE }, false},
		{"missing suffix", func(d *Definition) { d.TopicSuffix = " " }, true},
		{"wildcard suffix", func(d *Definition) { d.TopicSuffix = "grid/#" }, true},
		{"no groups", func(d *Definition) { d.Groups = nil }, true},
		{"empty group", func(d *Definition) { d.Groups = []string{""} }, true},
		{"unknown kind", func(d *Definition) { d.Kind = "f32" }, true},
		{"u32 address overflow", func(d *Definition) { d.Kind = KindU32; d.Address = 0xFFFF }, true},
		{"bad word order", func(d *Definition) { d.WordOrder = "middle" }, true},
		{"negative scale", func(d *Definition) { d.Scale = -1 }, true},
		{"scaled bool", func(d *Definition) { d.Kind = KindBool; d.Scale = 10 }, true},
		{"min above max", func(d *Definition) { d.Min = ptr(10); d.Max = ptr(1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(&d)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Validate() error = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestDefinition_HasGroup(t *testing.T) {
	d := Definition{Groups: []string{"a", "b"}}
	if !d.HasGroup("b") {
		t.Error("HasGroup(b) = false, want true")
	}
	if d.HasGroup("c") {
		t.Error("HasGroup(c) = true, want false")
	}
}

func TestWrite_String(t *testing.T) {
	if got := (Write{Address: 0x10, Value: 500}).String(); got != "0x0010=500" {
		t.Errorf("String() = %q", got)
	}
}
