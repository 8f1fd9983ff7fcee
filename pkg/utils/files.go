package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ListingExt is the extension of assembler listings written by the tools.
const ListingExt = ".rsa"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolve %q", relPath)
	}

	parentDir = filepath.Dir(fullPath)
	return fullPath, parentDir, nil
}

// ReadSource reads a source or listing file and returns its absolute path and
// contents.
func ReadSource(relPath string) (fullPath string, src string, err error) {
	fullPath, _, err = GetPathInfo(relPath)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", "", errors.Wrapf(err, "read %s", fullPath)
	}
	return fullPath, string(data), nil
}

// ListingPath returns inPath with its extension replaced by ListingExt.
func ListingPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ListingExt
	}
	return strings.TrimSuffix(inPath, ext) + ListingExt
}

// IsListing reports whether path names an assembler listing rather than C source.
func IsListing(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ListingExt)
}
