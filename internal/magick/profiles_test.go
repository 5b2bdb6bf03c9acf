package magick

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveProfileFromEnvDir(t *testing.T) {
	dir := t.TempDir()
	icc := filepath.Join(dir, "Gray-elle-V4-g10.icc")
	if err := os.WriteFile(icc, []byte("icc"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LINEARTIFF_ICC_DIR", dir)

	got, err := NewProfiles().Resolve(GrayLinear)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != icc {
		t.Errorf("Resolve = %q, want %q", got, icc)
	}
}

func TestResolveProfileMissing(t *testing.T) {
	t.Setenv("LINEARTIFF_ICC_DIR", t.TempDir())
	if _, err := NewProfiles().Resolve(SRGBLinear); err == nil {
		t.Error("expected an error when no profile file exists")
	}
}

func TestResolveProfileUnknownKind(t *testing.T) {
	if _, err := NewProfiles().Resolve(ProfileKind("cmyk")); err == nil {
		t.Error("expected an error for an unknown profile kind")
	}
}
