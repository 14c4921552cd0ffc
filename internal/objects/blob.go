// Package objects implements the content-addressed blob codec used by the
// store and the remote protocol. A blob's canonical form is a
// "blob <size>\x00" header followed by the raw content; the blob's address
// is the BLAKE3-256 hex digest of those canonical bytes, and the stored
// representation is the canonical bytes compressed with zstd.
package objects

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
)

var validHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidHash reports whether s looks like a blob address.
func ValidHash(s string) bool {
	return validHashPattern.MatchString(s)
}

func blobHeader(size int) []byte {
	return []byte(fmt.Sprintf("blob %d\x00", size))
}

// canonicalBytes returns the hashed form: "blob <len>\x00" + content.
func canonicalBytes(content []byte) []byte {
	h := blobHeader(len(content))
	out := make([]byte, 0, len(h)+len(content))
	out = append(out, h...)
	out = append(out, content...)
	return out
}

// HashBlob returns the blob address for the given content.
func HashBlob(content []byte) string {
	sum := blake3.Sum256(canonicalBytes(content))
	return fmt.Sprintf("%x", sum[:])
}

// Encode zstd-compresses the canonical blob bytes for storage.
func Encode(content []byte) ([]byte, error) {
	canon := canonicalBytes(content)
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(canon); err != nil {
		return nil, fmt.Errorf("zstd write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses a stored blob and returns its content.
func Decode(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read zstd payload: %w", err)
	}

	sep := bytes.IndexByte(raw, 0x00)
	if sep < 0 {
		return nil, fmt.Errorf("invalid object: missing NUL after header")
	}
	header := string(raw[:sep]) // "blob <size>"
	content := raw[sep+1:]

	var objType string
	var size int
	n, err := fmt.Sscanf(header, "%s %d", &objType, &size)
	if err != nil || n != 2 {
		return nil, fmt.Errorf("invalid header %q: %w", header, err)
	}
	if objType != "blob" {
		return nil, fmt.Errorf("unsupported type %q (expected blob)", objType)
	}
	if size > len(content) {
		return nil, fmt.Errorf("truncated content: header size %d > %d bytes read", size, len(content))
	}
	return content[:size], nil
}

// DecodeVerify decodes a stored blob and checks that its content matches
// the expected address. Used when accepting blobs from a remote.
func DecodeVerify(data []byte, wantHash string) ([]byte, error) {
	content, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if got := HashBlob(content); got != wantHash {
		return nil, fmt.Errorf("blob hash mismatch: got %s, want %s", got, wantHash)
	}
	return content, nil
}
