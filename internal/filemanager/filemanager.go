// Package filemanager implements the File Manager external collaborator:
// spill-file paths, append, delete, and final concatenation. It is backed
// by afero.Fs rather than raw os calls so it can run against an in-memory
// filesystem in tests, generalizing the direct os.OpenFile/os.MkdirAll
// calls tdm's chunk and download code makes inline.
package filemanager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/arjunv/modfetch/internal/logger"
)

const copyBufferSize = 256 * 1024

const (
	fileAppendFlags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	fileCreateFlags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
)

// Manager is the File Manager contract the moderator and its workers
// depend on.
type Manager interface {
	ChunkFilePath(taskID, chunkID int64) string
	Append(path string, r io.Reader) (int64, error)
	OpenAppend(path string) (io.WriteCloser, error)
	Delete(path string) error
	Concatenate(dest string, srcs []string) error
}

// AferoManager implements Manager over an afero.Fs rooted at tempDir for
// spill files; Concatenate writes directly to the caller-supplied dest
// path (the task's destination, which may live outside tempDir).
type AferoManager struct {
	fs      afero.Fs
	tempDir string
}

func New(fs afero.Fs, tempDir string) (*AferoManager, error) {
	if err := fs.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spill directory %s: %w", tempDir, err)
	}

	return &AferoManager{fs: fs, tempDir: tempDir}, nil
}

func (m *AferoManager) ChunkFilePath(taskID, chunkID int64) string {
	return filepath.Join(m.tempDir, fmt.Sprintf("%d-%d.part", taskID, chunkID))
}

// Append opens path in append mode (creating it if necessary) and copies
// r into it, returning the number of bytes written.
func (m *AferoManager) Append(path string, r io.Reader) (int64, error) {
	f, err := m.fs.OpenFile(path, fileAppendFlags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open spill file %s: %w", path, err)
	}
	defer f.Close()

	n, err := io.CopyBuffer(f, r, make([]byte, copyBufferSize))
	if err != nil {
		return n, fmt.Errorf("failed to append to spill file %s: %w", path, err)
	}

	return n, nil
}

// OpenAppend opens path in append mode (creating it if necessary) for a
// chunk worker to stream writes into across many small reads, instead of
// reopening the file on every buffer as Append would.
func (m *AferoManager) OpenAppend(path string) (io.WriteCloser, error) {
	f, err := m.fs.OpenFile(path, fileAppendFlags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open spill file %s: %w", path, err)
	}

	return f, nil
}

func (m *AferoManager) Delete(path string) error {
	exists, err := afero.Exists(m.fs, path)
	if err != nil {
		return fmt.Errorf("failed to stat spill file %s: %w", path, err)
	}
	if !exists {
		return nil
	}

	if err := m.fs.Remove(path); err != nil {
		logger.Warnf("failed to remove spill file %s: %v", path, err)
		return fmt.Errorf("failed to remove spill file %s: %w", path, err)
	}

	return nil
}

// Concatenate writes the contents of srcs, in order, into dest, creating
// dest's parent directory if needed. It is only called once every chunk
// is finished; it does not re-validate chunk completeness.
func (m *AferoManager) Concatenate(dest string, srcs []string) error {
	if err := m.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory for %s: %w", dest, err)
	}

	out, err := m.fs.OpenFile(dest, fileCreateFlags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dest, err)
	}
	defer out.Close()

	buf := make([]byte, copyBufferSize)
	for _, src := range srcs {
		if err := m.appendSource(out, src, buf); err != nil {
			return err
		}
	}

	return nil
}

func (m *AferoManager) appendSource(out afero.File, src string, buf []byte) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open chunk file %s for merge: %w", src, err)
	}
	defer in.Close()

	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		return fmt.Errorf("failed to copy chunk file %s into destination: %w", src, err)
	}

	return nil
}
