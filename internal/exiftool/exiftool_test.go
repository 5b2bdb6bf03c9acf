package exiftool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFields(t *testing.T) {
	out := []byte(`[{
		"SourceFile": "frame01.nef",
		"Rating": 3,
		"Orientation": 6,
		"HasCrop": true,
		"CropTop": 0.1,
		"ImageWidth": 4000
	}]`)

	fields, err := parseFields(out)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if v, ok, _ := coerceInt(fields["Rating"]); !ok || v != 3 {
		t.Errorf("Rating = (%d, %v), want (3, true)", v, ok)
	}
	if v, ok, _ := coerceFloat(fields["CropTop"]); !ok || v != 0.1 {
		t.Errorf("CropTop = (%v, %v), want (0.1, true)", v, ok)
	}
	if v, ok, _ := coerceBool(fields["HasCrop"]); !ok || !v {
		t.Errorf("HasCrop = (%v, %v), want (true, true)", v, ok)
	}
	if _, ok, _ := coerceInt(fields["Missing"]); ok {
		t.Error("missing tag reported as present")
	}
}

func TestParseFieldsEmpty(t *testing.T) {
	fields, err := parseFields([]byte(`[]`))
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("expected empty map, got %v", fields)
	}
}

func TestParseFieldsGarbage(t *testing.T) {
	if _, err := parseFields([]byte("not json")); err == nil {
		t.Error("expected an error for malformed output")
	}
}

func TestCoerceBoolStrings(t *testing.T) {
	tests := []struct {
		in     any
		want   bool
		wantOK bool
	}{
		{true, true, true},
		{false, false, true},
		{"True", true, true},
		{"false", false, true},
		{"Yes", true, true},
		{float64(1), true, true},
		{float64(0), false, true},
		{"maybe", false, false},
		{nil, false, false},
	}
	for _, tt := range tests {
		got, ok, _ := coerceBool(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("coerceBool(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCoerceIntRounds(t *testing.T) {
	if v, ok, _ := coerceInt(float64(2.6)); !ok || v != 3 {
		t.Errorf("coerceInt(2.6) = (%d, %v), want (3, true)", v, ok)
	}
	if v, ok, _ := coerceInt("8"); !ok || v != 8 {
		t.Errorf("coerceInt(\"8\") = (%d, %v), want (8, true)", v, ok)
	}
}

func TestSidecarPathReplacedExtension(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "frame01.nef")
	xmp := filepath.Join(dir, "frame01.xmp")
	for _, p := range []string{raw, xmp} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, ok := SidecarPath(raw)
	if !ok || got != xmp {
		t.Errorf("SidecarPath = (%q, %v), want (%q, true)", got, ok, xmp)
	}
}

func TestSidecarPathAppendedExtension(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "frame01.nef")
	xmp := filepath.Join(dir, "frame01.nef.xmp")
	for _, p := range []string{raw, xmp} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, ok := SidecarPath(raw)
	if !ok || got != xmp {
		t.Errorf("SidecarPath = (%q, %v), want (%q, true)", got, ok, xmp)
	}
}

func TestSidecarPathNone(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "frame01.nef")
	if err := os.WriteFile(raw, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got, ok := SidecarPath(raw); ok {
		t.Errorf("SidecarPath = (%q, true), want none", got)
	}
}
