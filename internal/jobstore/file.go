package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// FileStore keeps each job in a directory named by its id under Root
type FileStore struct {
	root string
	// encode serializes metadata; replaced in tests
	encode func(v any) ([]byte, error)
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the root directory if needed and returns a store on it
func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve job root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create job root: %w", err)
	}
	return &FileStore{root: abs, encode: encodeMetadata}, nil
}

func encodeMetadata(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Root returns the absolute job root
func (s *FileStore) Root() string {
	return s.root
}

// Dir returns the directory of a job
func (s *FileStore) Dir(id string) (string, error) {
	if err := ValidateJobID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.root, id), nil
}

// Path returns the path of a named file in the job directory
func (s *FileStore) Path(id, name string) (string, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid file name %q", types.ErrInvalidInput, name)
	}
	return filepath.Join(dir, name), nil
}

// Create makes the job directory with an exclusive mkdir and writes the metadata
func (s *FileStore) Create(_ context.Context, id string, meta *types.JobMetadata) error {
	dir, err := s.Dir(id)
	if err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0o750); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrJobExists, id)
		}
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := s.encode(meta)
	if err == nil {
		err = s.writeAtomic(filepath.Join(dir, MetadataFile), data)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Exists reports whether the job directory exists
func (s *FileStore) Exists(_ context.Context, id string) (bool, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat job directory: %w", err)
	}
	return info.IsDir(), nil
}

// ReadMetadata decodes the metadata record of a job
func (s *FileStore) ReadMetadata(ctx context.Context, id string) (*types.JobMetadata, error) {
	data, err := s.ReadFile(ctx, id, MetadataFile)
	if err != nil {
		return nil, err
	}
	var meta types.JobMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of job %s: %w", id, err)
	}
	return &meta, nil
}

// WriteFile atomically replaces a file in the job directory
func (s *FileStore) WriteFile(_ context.Context, id, name string, data []byte) error {
	path, err := s.Path(id, name)
	if err != nil {
		return err
	}
	return s.writeAtomic(path, data)
}

// ReadFile reads a file of the job directory. A missing file yields an
// error wrapping fs.ErrNotExist.
func (s *FileStore) ReadFile(_ context.Context, id, name string) ([]byte, error) {
	path, err := s.Path(id, name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// ReadTail returns at most n trailing bytes of a file
func (s *FileStore) ReadTail(_ context.Context, id, name string, n int64) ([]byte, error) {
	path, err := s.Path(id, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := info.Size() - n
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

// Stat returns file info for a file of the job directory
func (s *FileStore) Stat(_ context.Context, id, name string) (fs.FileInfo, error) {
	path, err := s.Path(id, name)
	if err != nil {
		return nil, err
	}
	return os.Stat(path)
}

// WriteExitStatus writes the completion marker
func (s *FileStore) WriteExitStatus(ctx context.Context, id string, status *types.ExitStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode exit status: %w", err)
	}
	return s.WriteFile(ctx, id, ExitStatusFile, data)
}

// ReadExitStatus decodes the completion marker. A missing marker yields
// an error wrapping fs.ErrNotExist.
func (s *FileStore) ReadExitStatus(ctx context.Context, id string) (*types.ExitStatus, error) {
	data, err := s.ReadFile(ctx, id, ExitStatusFile)
	if err != nil {
		return nil, err
	}
	var status types.ExitStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode exit status of job %s: %w", id, err)
	}
	return &status, nil
}

// Entries lists the top level entries of the root
func (s *FileStore) Entries(_ context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list job root: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		// Lstat so that a symlink is reported as itself
		info, err := os.Lstat(filepath.Join(s.root, de.Name()))
		if err != nil {
			entries = append(entries, Entry{
				Name: de.Name(),
				Err:  fmt.Errorf("failed to stat entry: %w", err),
			})
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// Remove deletes a top level entry of the root. The entry is resolved
// following symlinks and must lie strictly under the root.
func (s *FileStore) Remove(_ context.Context, name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	path := filepath.Join(s.root, name)

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return fmt.Errorf("failed to resolve job root: %w", err)
	}
	if !isStrictlyUnder(root, resolved) {
		return fmt.Errorf("%w: %s resolves to %s", ErrOutsideRoot, name, resolved)
	}
	// The resolved path is the entry itself, never a symlink target
	if resolved != filepath.Join(root, name) {
		return fmt.Errorf("%w: %s is a link to %s", ErrOutsideRoot, name, resolved)
	}

	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

func isStrictlyUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
