package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

var (
	ErrSnapshotNotFound = errors.New("[persist] snapshot not found")
	ErrInvalidName      = errors.New("[persist] invalid snapshot name")
	ErrStoreClosed      = errors.New("[persist] store closed")
)

// Store keeps the encoded snapshots by name. The implementations are
// safe for concurrent use.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
	// Load reports an absent snapshot by ErrSnapshotNotFound.
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	io.Closer
}

var snapshotNameRegexp = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]{0,127}$`)

func validateName(name string) error {
	if !snapshotNameRegexp.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
