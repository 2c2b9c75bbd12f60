package validation

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// MinFreeBytes is the free space required next to the log file and journal.
const MinFreeBytes int64 = 16 * 1024 * 1024

// DiskSpaceError indicates a disk space problem.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, humanize.IBytes(uint64(e.Required)), humanize.IBytes(uint64(e.Available)))
}

// CheckDirectory verifies that path exists and is a directory.
func CheckDirectory(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", path)
		}
		return "", fmt.Errorf("error checking directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is a file, not a directory: %s", path)
	}
	return path, nil
}

// CheckWritableFile verifies that the directory holding path exists, accepts
// new files and has at least minFree bytes available.
func CheckWritableFile(path string, minFree int64) (string, error) {
	dir := filepath.Dir(path)
	if _, err := CheckDirectory(dir); err != nil {
		return "", err
	}

	probe, err := os.CreateTemp(dir, ".gracefulexit-probe-*")
	if err != nil {
		return "", fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	_, free, err := getDiskSpace(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get disk space for %s: %w", dir, err)
	}
	if free < minFree {
		return "", &DiskSpaceError{Path: dir, Required: minFree, Available: free}
	}
	return fmt.Sprintf("%s (%s free)", path, humanize.IBytes(uint64(free))), nil
}

// CheckListenAddr verifies that addr can be bound. The listener is closed
// before returning.
func CheckListenAddr(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("cannot listen on %s: %w", addr, err)
	}
	bound := ln.Addr().String()
	ln.Close()
	return bound, nil
}
