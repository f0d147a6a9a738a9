// Package hashing computes the content addresses used by the blob store.
// Every address is the lowercase hex SHA-256 of the content bytes, so two
// files with identical bytes always resolve to the same blob name.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// chunkSize is the read granularity when hashing files.
const chunkSize = 4096

// HexLength is the length of every content address this package produces.
const HexLength = 64

var (
	emptyOnce sync.Once
	emptyHash string
)

// HashBytes returns the lowercase hex SHA-256 digest of buf.
func HashBytes(buf []byte) string {
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// HashFile streams the file at path through SHA-256 in 4 KiB chunks and
// returns the lowercase hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// EmptyHash returns the digest of the zero-length byte sequence. It marks
// "no blob needed" throughout the repository and must never appear as a blob
// filename.
func EmptyHash() string {
	emptyOnce.Do(func() {
		emptyHash = HashBytes(nil)
	})
	return emptyHash
}
