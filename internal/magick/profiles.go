package magick

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProfileKind names the two linear (gamma 1.0) ICC profiles the pipeline
// assigns to its output.
type ProfileKind string

const (
	GrayLinear ProfileKind = "gray-linear"
	SRGBLinear ProfileKind = "srgb-linear"
)

var profileFiles = map[ProfileKind]string{
	GrayLinear: "Gray-elle-V4-g10.icc",
	SRGBLinear: "sRGB-elle-V4-g10.icc",
}

// Profiles resolves profile kinds to ICC files on disk. Search order:
// LINEARTIFF_ICC_DIR, a profiles/ directory next to the executable, then the
// system color directory.
type Profiles struct{}

func NewProfiles() *Profiles {
	return &Profiles{}
}

func (p *Profiles) Resolve(kind ProfileKind) (string, error) {
	name, ok := profileFiles[kind]
	if !ok {
		return "", fmt.Errorf("unknown profile kind %q", kind)
	}
	for _, dir := range searchDirs() {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("icc profile %s not found (set LINEARTIFF_ICC_DIR)", name)
}

func searchDirs() []string {
	dirs := []string{os.Getenv("LINEARTIFF_ICC_DIR")}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "profiles"))
	}
	dirs = append(dirs, "/usr/share/color/icc", "/usr/local/share/color/icc")
	return dirs
}
