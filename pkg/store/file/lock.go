package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// fileLock serialises writers to one key across processes with an exclusive lock file
type fileLock struct {
	path     string
	lockPath string
	file     *os.File
}

type lockConfig struct {
	Timeout    time.Duration
	RetryDelay time.Duration
	StaleAfter time.Duration
}

func defaultLockConfig() lockConfig {
	return lockConfig{
		Timeout:    10 * time.Second,
		RetryDelay: 50 * time.Millisecond,
		StaleAfter: 5 * time.Minute,
	}
}

func newFileLock(path string) *fileLock {
	return &fileLock{
		path:     path,
		lockPath: path + ".lock",
	}
}

func (fl *fileLock) lock(cfg lockConfig) error {
	if fl.file != nil {
		return errors.New("file is already locked")
	}
	if err := os.MkdirAll(filepath.Dir(fl.lockPath), 0700); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	start := time.Now()
	for {
		if time.Since(start) > cfg.Timeout {
			return fmt.Errorf("timeout acquiring lock on %s after %v", fl.path, cfg.Timeout)
		}
		if err := fl.tryLock(cfg); err == nil {
			return nil
		}
		time.Sleep(cfg.RetryDelay)
	}
}

func (fl *fileLock) tryLock(cfg lockConfig) error {
	file, err := os.OpenFile(fl.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) && fl.isStale(cfg) {
			os.Remove(fl.lockPath)
		}
		return fmt.Errorf("lock already held: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		os.Remove(fl.lockPath)
		return fmt.Errorf("failed to apply system lock: %w", err)
	}

	fmt.Fprintf(file, "pid:%d\ntime:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	fl.file = file
	return nil
}

// isStale treats locks older than StaleAfter whose owner is gone as abandoned
func (fl *fileLock) isStale(cfg lockConfig) bool {
	info, err := os.Stat(fl.lockPath)
	if err != nil {
		return true
	}
	if time.Since(info.ModTime()) <= cfg.StaleAfter {
		return false
	}

	data, err := os.ReadFile(fl.lockPath)
	if err != nil {
		return true
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "pid:%d", &pid); err != nil {
		return true
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return process.Signal(syscall.Signal(0)) != nil
}

func (fl *fileLock) unlock() error {
	if fl.file == nil {
		return nil
	}

	var lastErr error
	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		lastErr = fmt.Errorf("failed to release system lock: %w", err)
	}
	if err := fl.file.Close(); err != nil && lastErr == nil {
		lastErr = fmt.Errorf("failed to close lock file: %w", err)
	}
	fl.file = nil

	if err := os.Remove(fl.lockPath); err != nil && lastErr == nil {
		lastErr = fmt.Errorf("failed to remove lock file: %w", err)
	}
	return lastErr
}

func withLock(path string, cfg lockConfig, fn func() error) error {
	lock := newFileLock(path)
	if err := lock.lock(cfg); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.unlock()

	return fn()
}

// atomicWrite writes through a temp file and rename so readers never see a torn value
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
