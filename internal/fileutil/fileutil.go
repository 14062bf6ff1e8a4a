// Package fileutil holds small filesystem helpers shared by the download,
// publish, and runner code.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// PartSuffix marks files still being written.
const PartSuffix = ".part"

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteAtomic streams the output of write into path+".part" and renames it
// over path once write and close both succeed, so readers only ever see a
// complete file. The part file is removed on failure. It returns the number
// of bytes written.
func WriteAtomic(path string, mode os.FileMode, write func(io.Writer) error) (int64, error) {
	partial := path + PartSuffix
	out, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", partial, err)
	}

	counter := &countingWriter{w: out}
	writeErr := write(counter)
	closeErr := out.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(partial)
		return counter.n, err
	}
	if err := os.Chmod(partial, mode); err != nil {
		_ = os.Remove(partial)
		return counter.n, fmt.Errorf("chmod %s: %w", partial, err)
	}
	if err := os.Rename(partial, path); err != nil {
		_ = os.Remove(partial)
		return counter.n, fmt.Errorf("rename %s: %w", partial, err)
	}
	return counter.n, nil
}

// IsEmptyFile reports whether path is an existing regular file of zero
// bytes.
func IsEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() == 0
}
