package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RAW container extensions we hand to dcraw, lower-cased. Matching is
// case-insensitive and non-recursive lookups elsewhere rely on exactly
// this set.
var rawExtensions = map[string]bool{
	".3fr": true,
	".arw": true,
	".cr2": true,
	".crw": true,
	".dng": true,
	".mrw": true,
	".nef": true,
	".nrw": true,
	".orf": true,
	".pef": true,
	".raf": true,
	".raw": true,
	".rw2": true,
	".srw": true,
}

// IsRawFile reports whether path has a recognized RAW extension.
func IsRawFile(path string) bool {
	return rawExtensions[strings.ToLower(filepath.Ext(path))]
}

// WaitFileStable waits for two consecutive identical file sizes separated by
// delay, so a file still being copied into a watched directory is not
// converted half-written.
func WaitFileStable(path string, delay time.Duration) error {
	var lastSize int64 = -1
	for i := 0; i < 5; i++ {
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		sz := fi.Size()
		if lastSize == sz {
			return nil
		}
		lastSize = sz
		time.Sleep(delay)
	}
	return nil
}
