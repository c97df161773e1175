// Size-based log file rotation
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// Filename is the path to the active log file.
	Filename string

	// MaxSize is the size in megabytes at which the file is rotated.
	// Default is 10 MB.
	MaxSize int

	// MaxBackups is the number of numbered backups kept (name.1 is newest).
	// Default is 5.
	MaxBackups int

	// Compress gzips backups as they are shifted out of name.1.
	Compress bool
}

// RotatingFileWriter is an io.Writer that rotates its file by size.
type RotatingFileWriter struct {
	mu       sync.Mutex
	cfg      RotationConfig
	maxBytes int64
	size     int64
	file     *os.File
}

// NewRotatingFileWriter opens (or appends to) the configured file.
func NewRotatingFileWriter(cfg RotationConfig) (*RotatingFileWriter, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	w := &RotatingFileWriter{cfg: cfg, maxBytes: int64(cfg.MaxSize) << 20}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.cfg.Filename), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(w.cfg.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) backupName(i int) string {
	name := fmt.Sprintf("%s.%d", w.cfg.Filename, i)
	if w.cfg.Compress && i > 1 {
		name += ".gz"
	}
	return name
}

// rotate shifts name.N-1 to name.N down to name -> name.1.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close current file: %w", err)
	}
	os.Remove(w.backupName(w.cfg.MaxBackups))
	for i := w.cfg.MaxBackups - 1; i >= 1; i-- {
		src := w.backupName(i)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if i == 1 && w.cfg.Compress {
			if err := gzipFile(src, w.backupName(2)); err != nil {
				return err
			}
			continue
		}
		if err := os.Rename(src, w.backupName(i+1)); err != nil {
			return fmt.Errorf("shift backup: %w", err)
		}
	}
	if err := os.Rename(w.cfg.Filename, w.backupName(1)); err != nil {
		w.open()
		return fmt.Errorf("rename log file: %w", err)
	}
	return w.open()
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}

// Close closes the underlying file.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// CurrentSize returns the size of the active file.
func (w *RotatingFileWriter) CurrentSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// AttachFile routes l's output to both stderr and a rotating file. Colors are
// disabled since they would end up in the file.
func AttachFile(l *Logger, cfg RotationConfig) (*RotatingFileWriter, error) {
	fw, err := NewRotatingFileWriter(cfg)
	if err != nil {
		return nil, err
	}
	l.SetWriter(io.MultiWriter(os.Stderr, fw))
	l.SetColorize(false)
	return fw, nil
}
