package utils

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// MD5File hashes path in chunkSize reads. Used by the conversion index to
// detect re-exported files that kept their name.
func MD5File(path string, chunkSize int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
