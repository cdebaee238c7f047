package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedKey is returned by ParseObjectKey for keys that are not
// {prefix}/{owner}/{imageId}/{filename}.
var ErrUnexpectedKey = errors.New("unexpected object key")

// ObjectKey returns the location of an original upload.
func ObjectKey(prefix, owner, imageID, filename string) string {
	return strings.Join([]string{prefix, owner, imageID, filename}, "/")
}

// ObjectKeyParts is the positional decomposition of an object key.
type ObjectKeyParts struct {
	Owner    string
	ImageID  string
	Filename string
}

// ParseObjectKey splits key into owner, imageId and filename. The key must
// have exactly four non-empty segments and start with prefix.
func ParseObjectKey(prefix, key string) (ObjectKeyParts, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 {
		return ObjectKeyParts{}, fmt.Errorf("%w %q: want 4 segments, got %d", ErrUnexpectedKey, key, len(parts))
	}
	if parts[0] != prefix {
		return ObjectKeyParts{}, fmt.Errorf("%w %q: prefix %q", ErrUnexpectedKey, key, parts[0])
	}
	for _, p := range parts[1:] {
		if p == "" {
			return ObjectKeyParts{}, fmt.Errorf("%w %q: empty segment", ErrUnexpectedKey, key)
		}
	}
	return ObjectKeyParts{Owner: parts[1], ImageID: parts[2], Filename: parts[3]}, nil
}
