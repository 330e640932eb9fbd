// Package journalfile stores the journal as a plain text file. The
// file is the user's document: it is read without locking, rewritten
// only when the content actually changed, and the previous content is
// backed up first.
package journalfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cashbooklabs/cashbook/internal/core/ports"
)

const backupStampLayout = "2006-01-02_15-04-05"

// File implements ports.JournalStore on a local text file.
type File struct {
	path      string
	backupDir string
	now       func() time.Time
}

var _ ports.JournalStore = (*File)(nil)

// New creates a store for the journal at path, backing up into
// backupDir before every rewrite.
func New(path, backupDir string) *File {
	return &File{path: path, backupDir: backupDir, now: time.Now}
}

// Read returns the journal content. A missing file is an empty
// journal.
func (f *File) Read() (string, error) {
	content, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read journal %s: %w", f.path, err)
	}
	return string(content), nil
}

// Write replaces the journal content. Unchanged content is left
// untouched so the file's modification time stays meaningful.
func (f *File) Write(content string) error {
	old, err := os.ReadFile(f.path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read journal %s: %w", f.path, err)
	}
	if exists && string(old) == content {
		return nil
	}
	if exists {
		if err := f.backup(old); err != nil {
			return err
		}
	}
	if err := os.WriteFile(f.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write journal %s: %w", f.path, err)
	}
	return nil
}

func (f *File) backup(old []byte) error {
	if err := os.MkdirAll(f.backupDir, 0o755); err != nil {
		return fmt.Errorf("backup dir %s: %w", f.backupDir, err)
	}
	base := filepath.Base(f.path)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), f.now().Format(backupStampLayout), ext)
	path := filepath.Join(f.backupDir, name)
	if err := os.WriteFile(path, old, 0o644); err != nil {
		return fmt.Errorf("write backup %s: %w", path, err)
	}
	return nil
}
