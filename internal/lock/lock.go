// Package lock keeps a single daemon per profile.
package lock

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file inside the profile directory.
const FileName = "LOCK"

// Holder describes the process that owns a lock.
type Holder struct {
	PID   int
	Since time.Time
}

// HeldError is returned when another process holds the profile lock.
type HeldError struct {
	Holder
	Path string
}

func (e *HeldError) Error() string {
	if e.Since.IsZero() {
		return fmt.Sprintf("profile locked by pid %d (%s)", e.PID, e.Path)
	}
	return fmt.Sprintf("profile locked by pid %d since %s (%s)", e.PID, e.Since.Format(time.RFC3339), e.Path)
}

// Lock is an acquired profile lock.
type Lock struct {
	file   *os.File
	path   string
	holder Holder
}

// Acquire takes an exclusive flock on the profile directory's lock file and
// records this process in it.
func Acquire(profileDir string) (*Lock, error) {
	if err := os.MkdirAll(profileDir, 0700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	path := filepath.Join(profileDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		h, _ := ReadHolder(path)
		_ = f.Close()
		return nil, &HeldError{Holder: h, Path: path}
	}

	l := &Lock{file: f, path: path, holder: Holder{PID: os.Getpid(), Since: time.Now().UTC().Truncate(time.Second)}}
	if err := l.record(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return l, nil
}

func (l *Lock) record() error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	_, err := l.file.WriteAt([]byte(fmt.Sprintf("pid=%d\ntime=%s\n", l.holder.PID, l.holder.Since.Format(time.RFC3339))), 0)
	return err
}

// Holder returns what this lock recorded about its owner.
func (l *Lock) Holder() Holder {
	return l.holder
}

// Release drops the lock and removes the file. It is safe on a nil or
// already released lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadHolder parses the owner recorded in a lock file. Unknown keys are
// ignored.
func ReadHolder(path string) (Holder, error) {
	f, err := os.Open(path)
	if err != nil {
		return Holder{}, err
	}
	defer f.Close()

	var h Holder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "time":
			h.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h, sc.Err()
}
