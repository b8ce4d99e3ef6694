// Package storage is the local filesystem payload store. Uploads append
// into a staging area named by session id; ingest promotes a finished
// staging file to its content id.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/medium-stack/mstack/common/logger"
)

// Local stores everything flat under a single root directory: in-flight
// uploads named by session id, finished payloads named by cid. Promotion is
// a rename, atomic on one filesystem.
type Local struct {
	root string
	log  *logger.Logger
}

// NewLocal creates the store, making the root directory.
func NewLocal(root string, log *logger.Logger) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	log.Info("local storage ready", "root", root)
	return &Local{root: root, log: log}, nil
}

// StagingPath returns the path of a session's staging file.
func (l *Local) StagingPath(name string) string {
	return filepath.Join(l.root, name)
}

// PayloadPath returns the path of a stored payload.
func (l *Local) PayloadPath(cidStr string) string {
	return filepath.Join(l.root, cidStr)
}

// TouchStaging creates the staging file if it does not exist yet, so that a
// declared upload has a file on disk even before its first chunk.
func (l *Local) TouchStaging(name string) error {
	f, err := os.OpenFile(l.StagingPath(name), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("touch staging file: %w", err)
	}
	return f.Close()
}

// AppendChunk appends the reader's bytes to the staging file and returns the
// number of bytes written.
func (l *Local) AppendChunk(name string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(l.StagingPath(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open staging file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return written, fmt.Errorf("append chunk: %w", err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("close staging file: %w", err)
	}
	return written, nil
}

// StagingSize returns the current size of a staging file.
func (l *Local) StagingSize(name string) (int64, error) {
	info, err := os.Stat(l.StagingPath(name))
	if err != nil {
		return 0, fmt.Errorf("stat staging file: %w", err)
	}
	return info.Size(), nil
}

// Promote renames a finished staging file to its payload cid. Promoting onto
// an existing payload keeps the existing file: identical cid means identical
// bytes.
func (l *Local) Promote(name, cidStr string) error {
	target := l.PayloadPath(cidStr)
	if _, err := os.Stat(target); err == nil {
		l.log.Info("payload already stored, dropping duplicate staging file", "cid", cidStr)
		return os.Remove(l.StagingPath(name))
	}

	if err := os.Rename(l.StagingPath(name), target); err != nil {
		return fmt.Errorf("promote staging file: %w", err)
	}
	return nil
}

// RemoveStaging deletes a session's staging file. Absence is not an error.
func (l *Local) RemoveStaging(name string) error {
	err := os.Remove(l.StagingPath(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staging file: %w", err)
	}
	return nil
}

// RemovePayload deletes a stored payload. Absence is not an error.
func (l *Local) RemovePayload(cidStr string) error {
	err := os.Remove(l.PayloadPath(cidStr))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove payload: %w", err)
	}
	return nil
}

// OpenPayload opens a stored payload for reading.
func (l *Local) OpenPayload(cidStr string) (*os.File, error) {
	f, err := os.Open(l.PayloadPath(cidStr))
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	return f, nil
}
