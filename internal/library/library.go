// Package library enumerates the snippet recordings an episode is scanned
// against.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"podclean/internal/services"
)

// SupportedExtensions lists the snippet file types the decoders accept.
var SupportedExtensions = []string{".wav", ".mp3", ".m4a", ".aac", ".ogg", ".opus", ".flac"}

// Library is an ordered set of snippet files. An empty library is valid.
type Library struct {
	Dir   string
	Paths []string
}

// Load lists the audio files directly inside dir in name order. Hidden files,
// subdirectories, and unrecognised extensions are ignored. A missing directory
// is reported as services.ErrNotFound.
func Load(dir string) (*Library, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "library", "load", "snippets directory not configured", nil)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "library", "load", fmt.Sprintf("snippets directory %q", dir), err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "library", "load", fmt.Sprintf("read %q", dir), err)
	}
	lib := &Library{Dir: dir}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !Supported(name) {
			continue
		}
		lib.Paths = append(lib.Paths, filepath.Join(dir, name))
	}
	sort.Strings(lib.Paths)
	return lib, nil
}

// FromPaths builds a library from explicit files, keeping their order.
func FromPaths(paths ...string) *Library {
	lib := &Library{}
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			lib.Paths = append(lib.Paths, p)
		}
	}
	return lib
}

// Supported reports whether name has a recognised audio extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range SupportedExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// Len returns the number of snippets.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Paths)
}

// Names returns the base names of the snippets.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, len(l.Paths))
	for i, p := range l.Paths {
		names[i] = filepath.Base(p)
	}
	return names
}
