package reporting

import (
	"bufio"
	"fmt"
	"gonetcap/internal/models"
	"gonetcap/internal/session"
	"os"
	"path/filepath"
	"time"
)

// LogFileName returns "<dir>/<prefix>_<YYYYMMDD_HHMMSS>.log" using local time.
func LogFileName(dir, prefix string, now time.Time) string {
	timestamp := now.Local().Format("20060102_150405")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", prefix, timestamp))
}

// PersistenceError reports a failure to open or write a session log.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("reporting: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SessionLog appends rendered packets to a plain-text log file.
// The file is opened on the first write, in create-if-absent append mode,
// and is never truncated. A SessionLog serves a single export and is not
// safe for concurrent use.
type SessionLog struct {
	path    string
	file    *os.File
	w       *bufio.Writer
	written int
}

// NewSessionLog creates a SessionLog for path without touching the file system.
func NewSessionLog(path string) *SessionLog {
	return &SessionLog{path: path}
}

// Path returns the target file path.
func (l *SessionLog) Path() string {
	return l.path
}

// Written returns how many packets were written and flushed.
func (l *SessionLog) Written() int {
	return l.written
}

func (l *SessionLog) open() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Path: l.path, Op: "create directory", Err: err}
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &PersistenceError{Path: l.path, Op: "open", Err: err}
	}
	l.file = file
	l.w = bufio.NewWriter(file)
	return nil
}

// WritePacket appends the packet block followed by a blank line and flushes it.
func (l *SessionLog) WritePacket(pkt models.DecodedPacket) error {
	if l.file == nil {
		if err := l.open(); err != nil {
			return err
		}
	}

	if _, err := l.w.WriteString(Render(pkt)); err != nil {
		return &PersistenceError{Path: l.path, Op: "write", Err: err}
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return &PersistenceError{Path: l.path, Op: "write", Err: err}
	}
	if err := l.w.Flush(); err != nil {
		return &PersistenceError{Path: l.path, Op: "flush", Err: err}
	}
	l.written++
	return nil
}

// Close closes the file if it was opened.
func (l *SessionLog) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.w = nil
	if err != nil {
		return &PersistenceError{Path: l.path, Op: "close", Err: err}
	}
	return nil
}

// ExportSession writes the archived session at index to the log file at path.
// It returns the number of packets written. On a *session.SelectionError the
// file is not created.
func ExportSession(archive *session.Archive, index int, path string) (int, error) {
	log := NewSessionLog(path)
	err := archive.Export(index, log)
	if cerr := log.Close(); err == nil {
		err = cerr
	}
	return log.Written(), err
}
