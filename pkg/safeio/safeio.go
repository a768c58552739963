package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideBase is returned when a path resolves outside its base directory.
var ErrOutsideBase = errors.New("file path is outside base directory")

// ErrInvalidPath is returned by CleanUserPath for empty or malformed paths.
var ErrInvalidPath = errors.New("invalid path")

// CleanUserPath cleans a path given on the command line.
// Relative paths may point above the working directory.
func CleanUserPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" || strings.ContainsRune(p, 0) {
		return "", ErrInvalidPath
	}
	return filepath.Clean(p), nil
}

// JoinContained joins a slash-separated relative path onto baseDir and returns
// the absolute result, rejecting anything that escapes baseDir.
func JoinContained(baseDir, rel string) (string, error) {
	baseDirAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", errors.New("failed to resolve base directory")
	}
	joined := filepath.Join(baseDirAbs, filepath.FromSlash(rel))
	if err := checkContained(baseDirAbs, joined); err != nil {
		return "", err
	}
	return joined, nil
}

// ReadFileContained reads a file only if it is contained within baseDir.
// Returns an error if the file is outside baseDir or cannot be read.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	baseDirAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.New("failed to resolve base directory")
	}
	filePathAbs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, errors.New("failed to resolve file path")
	}
	if err := checkContained(baseDirAbs, filePathAbs); err != nil {
		return nil, err
	}

	// #nosec G304 -- filePathAbs has been verified to be contained within baseDirAbs
	return os.ReadFile(filePathAbs)
}

func checkContained(baseDirAbs, pathAbs string) error {
	rel, err := filepath.Rel(baseDirAbs, pathAbs)
	if err != nil {
		return errors.New("failed to compute relative path")
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return ErrOutsideBase
	}
	return nil
}

// WriteFilePreservePerms writes data to path preserving existing file mode when possible.
// When the file does not exist, it uses a sane default of 0644.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}
	return os.WriteFile(path, data, mode)
}
