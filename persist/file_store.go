package persist

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/safeopen"
	"go.uber.org/multierr"

	"github.com/benz9527/xsymtab/lib/infra"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps one file per snapshot beneath the directory. The
// files are opened by safeopen, a name never escapes the directory.
type FileStore struct {
	dir    string
	ext    string
	perm   fs.FileMode
	closed atomic.Bool
}

type FileStoreOpt func(*FileStore)

func WithFileStoreExt(ext string) FileStoreOpt {
	return func(s *FileStore) {
		s.ext = ext
	}
}

func WithFileStorePerm(perm fs.FileMode) FileStoreOpt {
	return func(s *FileStore) {
		s.perm = perm
	}
}

func NewFileStore(dir string, opts ...FileStoreOpt) (*FileStore, error) {
	s := &FileStore{
		dir:  filepath.Clean(dir),
		ext:  ".xst",
		perm: 0o644,
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to create snapshot dir: "+s.dir)
	}
	return s, nil
}

func (s *FileStore) filename(name string) string {
	return name + s.ext
}

// Save writes a temporary file then renames it, a reader never sees
// a partial snapshot.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp := s.filename(name) + ".tmp"
	f, err := safeopen.OpenFileBeneath(s.dir, tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.perm)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[persist] unable to create snapshot file: "+filepath.Join(s.dir, tmp))
	}
	_, werr := f.Write(data)
	werr = multierr.Combine(werr, f.Sync(), f.Close())
	if werr != nil {
		_ = os.Remove(filepath.Join(s.dir, tmp))
		return infra.WrapErrorStackWithMessage(werr, "[persist] unable to write snapshot file: "+filepath.Join(s.dir, tmp))
	}
	if err = os.Rename(filepath.Join(s.dir, tmp), filepath.Join(s.dir, s.filename(name))); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[persist] unable to rename snapshot file: "+filepath.Join(s.dir, tmp))
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := safeopen.OpenBeneath(s.dir, s.filename(name))
	if err != nil && s.absent(name) {
		return nil, ErrSnapshotNotFound
	} else if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to open snapshot file: "+filepath.Join(s.dir, s.filename(name)))
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[persist] unable to read snapshot file: "+filepath.Join(s.dir, s.filename(name)))
	}
	return data, nil
}

func (s *FileStore) absent(name string) bool {
	_, err := os.Lstat(filepath.Join(s.dir, s.filename(name)))
	return errors.Is(err, fs.ErrNotExist)
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := validateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, s.filename(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrSnapshotNotFound
	}
	return infra.WrapErrorStack(err)
}

func (s *FileStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStoreClosed
	}
	return nil
}
