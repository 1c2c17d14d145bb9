// Package data opens waterfall files, choosing the format backend from the
// file extension.
package data

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sxyu/watplot/internal/blfile"
	"github.com/sxyu/watplot/internal/data/filterbank"
	"github.com/sxyu/watplot/internal/data/hdf5"
)

// Extensions lists the recognised file extensions.
var Extensions = []string{".fil", ".h5", ".hdf5"}

// Supported reports whether path has a recognised extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fil", ".h5", ".hdf5":
		return true
	}
	return false
}

// Load opens path with the backend matching its extension. budget bounds
// read buffers in bytes.
func Load(path string, budget int64) (blfile.File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fil":
		return filterbank.Load(path, budget)
	case ".h5", ".hdf5":
		return hdf5.Load(path, budget)
	}
	return nil, fmt.Errorf("%w: %s (supported: %s)", blfile.ErrUnknownFormat, path, strings.Join(Extensions, ", "))
}
