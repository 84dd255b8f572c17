package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	watchLockDirName = "watch"
	watchLockPerms   = 0o644
	watchLockDirPerm = 0o755
)

// watchLockInfo is the lock file body. It names the holder so a second
// watcher can say who is in the way.
type watchLockInfo struct {
	PID     int       `json:"pid"`
	Dir     string    `json:"dir"`
	Started time.Time `json:"started"`
}

// watchLock is an exclusive flock on one watched directory. Watchers on
// different directories use different lock files and can run side by side.
type watchLock struct {
	path string
	f    *os.File
}

// watchLockPath maps an absolute directory to its lock file under dataDir.
// The name is a name-based UUID of the directory so that any path length or
// character set yields a flat, stable file name.
func watchLockPath(dataDir, dir string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.Clean(dir)))

	return filepath.Join(dataDir, watchLockDirName, id.String()+".lock")
}

// acquireWatchLock locks dir for this process. A lock held elsewhere fails
// immediately and the error names the holder when its lock file is readable.
func acquireWatchLock(dataDir, dir string, now time.Time) (*watchLock, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("cannot lock %s: no data directory", dir)
	}

	path := watchLockPath(dataDir, dir)
	if err := os.MkdirAll(filepath.Dir(path), watchLockDirPerm); err != nil {
		return nil, fmt.Errorf("creating watch lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, watchLockPerms)
	if err != nil {
		return nil, fmt.Errorf("opening watch lock: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		if holder, readErr := readWatchLock(path); readErr == nil {
			return nil, fmt.Errorf("%s is already being watched by PID %d (since %s)",
				dir, holder.PID, holder.Started.Local().Format(time.DateTime))
		}

		return nil, fmt.Errorf("%s is already being watched (could not lock %s)", dir, path)
	}

	body, err := json.Marshal(watchLockInfo{PID: os.Getpid(), Dir: dir, Started: now.UTC()})
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("encoding watch lock: %w", err)
	}

	if err := writeLockBody(f, body); err != nil {
		f.Close()

		return nil, err
	}

	return &watchLock{path: path, f: f}, nil
}

func writeLockBody(f *os.File, body []byte) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncating watch lock: %w", err)
	}

	if _, err := f.WriteAt(append(body, '\n'), 0); err != nil {
		return fmt.Errorf("writing watch lock: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing watch lock: %w", err)
	}

	return nil
}

// Release removes the lock file and drops the flock.
func (l *watchLock) Release() {
	os.Remove(l.path)
	l.f.Close()
}

// readWatchLock decodes the holder recorded in a lock file.
func readWatchLock(path string) (*watchLockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watch lock: %w", err)
	}

	var info watchLockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid watch lock %s: %w", path, err)
	}

	if info.PID <= 0 {
		return nil, fmt.Errorf("invalid watch lock %s: no PID", path)
	}

	return &info, nil
}
