// Package contenthash derives the content addresses used by the asset store.
package contenthash

import (
	"crypto/md5" // #nosec G501 -- MD5 is the manifest bundle key format, not a security boundary
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileHashes holds both digests computed from a single read of a file.
type FileHashes struct {
	// SHA256 is the unpadded base64url SHA-256 of the file bytes.
	SHA256 string
	// BundleKey is the hex MD5 of the file bytes.
	BundleKey string
	Size      int64
}

// HashFile streams path once through SHA-256 and MD5.
func HashFile(path string) (FileHashes, error) {
	// #nosec G304 -- paths come from the validated export directory
	f, err := os.Open(path)
	if err != nil {
		return FileHashes{}, fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return HashReader(f)
}

// HashReader is HashFile for an arbitrary stream.
func HashReader(r io.Reader) (FileHashes, error) {
	sha := sha256.New()
	sum := md5.New() // #nosec G401
	n, err := io.Copy(io.MultiWriter(sha, sum), r)
	if err != nil {
		return FileHashes{}, fmt.Errorf("failed to hash content: %w", err)
	}
	return FileHashes{
		SHA256:    Base64URL(sha.Sum(nil)),
		BundleKey: hex.EncodeToString(sum.Sum(nil)),
		Size:      n,
	}, nil
}

// StorageKey is the store address of content served with contentType:
// base64url(SHA-256(contentType || 0x00 || fileSHA256)).
// The same bytes under two content types are two different objects.
func StorageKey(contentType, fileSHA256 string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, contentType)
	_, _ = h.Write([]byte{0})
	_, _ = io.WriteString(h, fileSHA256)
	return Base64URL(h.Sum(nil))
}

// Base64URL encodes b with the URL-safe alphabet and no padding.
func Base64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
