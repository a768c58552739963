package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/otapublish/internal/schema"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/safeio"
)

const (
	// MetadataFile is written by the bundler at the root of the export directory.
	MetadataFile = "metadata.json"

	SupportedMetadataVersion = 0
	SupportedBundler         = "metro"
)

// AssetFile is one asset entry of a platform in metadata.json.
type AssetFile struct {
	Path string `json:"path"`
	Ext  string `json:"ext"`
}

// PlatformFiles lists the bundle and assets exported for a platform.
type PlatformFiles struct {
	Bundle string      `json:"bundle"`
	Assets []AssetFile `json:"assets"`
}

// PlatformEntry pairs a platform with its exported files.
type PlatformEntry struct {
	Platform Platform
	Files    PlatformFiles
}

// Metadata is the validated content of metadata.json.
// FileMetadata is ordered by Platforms.
type Metadata struct {
	Version      int
	Bundler      string
	FileMetadata []PlatformEntry
}

type rawMetadata struct {
	Version      float64                    `json:"version"`
	Bundler      string                     `json:"bundler"`
	FileMetadata map[Platform]PlatformFiles `json:"fileMetadata"`
}

// PlatformNames returns the exported platform names in canonical order.
func (m *Metadata) PlatformNames() []string {
	names := make([]string, 0, len(m.FileMetadata))
	for _, e := range m.FileMetadata {
		names = append(names, e.Platform.String())
	}
	return names
}

// Lookup returns the files exported for platform p.
func (m *Metadata) Lookup(p Platform) (PlatformFiles, bool) {
	for _, e := range m.FileMetadata {
		if e.Platform == p {
			return e.Files, true
		}
	}
	return PlatformFiles{}, false
}

// EnsureInputDir checks that the export directory exists.
func EnsureInputDir(distRoot string) error {
	st, err := os.Stat(distRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{
				Message: fmt.Sprintf("input directory %q does not exist", distRoot),
				Hint:    "Make sure you are using the correct directory",
			}
		}
		return fmt.Errorf("failed to access input directory %s: %w", distRoot, err)
	}
	if !st.IsDir() {
		return &NotFoundError{
			Message: fmt.Sprintf("input path %q is not a directory", distRoot),
			Hint:    "Make sure you are using the correct directory",
		}
	}
	return nil
}

// LoadMetadata reads and validates metadata.json from distRoot.
func LoadMetadata(distRoot string) (*Metadata, error) {
	if err := EnsureInputDir(distRoot); err != nil {
		return nil, err
	}

	data, err := safeio.ReadFileContained(distRoot, filepath.Join(distRoot, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{
				Message: fmt.Sprintf("%s not found in %s", MetadataFile, distRoot),
				Hint:    "Run the export step before publishing",
			}
		}
		return nil, fmt.Errorf("failed to read %s: %w", MetadataFile, err)
	}

	return ParseMetadata(data)
}

// ParseMetadata validates raw metadata.json bytes.
func ParseMetadata(data []byte) (*Metadata, error) {
	res, err := schema.ValidateBytes(data, schema.MetadataSchema)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("%s is not valid JSON: %v", MetadataFile, err)}
	}
	if !res.Valid {
		return nil, &ValidationError{
			Message: fmt.Sprintf("%s does not match the expected schema", MetadataFile),
			Fields:  res.Errors,
		}
	}

	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("failed to decode %s: %v", MetadataFile, err)}
	}

	if raw.Version != SupportedMetadataVersion {
		return nil, &ValidationError{Message: fmt.Sprintf("Only bundles with metadata version %d are supported", SupportedMetadataVersion)}
	}
	if raw.Bundler != SupportedBundler {
		return nil, &ValidationError{Message: "Only bundles created with Metro are currently supported"}
	}

	m := &Metadata{Version: SupportedMetadataVersion, Bundler: raw.Bundler}
	for _, p := range Platforms {
		if files, ok := raw.FileMetadata[p]; ok {
			m.FileMetadata = append(m.FileMetadata, PlatformEntry{Platform: p, Files: files})
		}
	}

	if len(m.FileMetadata) == 0 {
		logger.Warn("No updates were exported for any platform")
	}
	logger.Debug(fmt.Sprintf("Loaded %d platform(s): %s", len(m.FileMetadata), strings.Join(m.PlatformNames(), ", ")))

	return m, nil
}

// FilterPlatforms keeps only the requested platform, or every platform for "all".
func FilterPlatforms(m *Metadata, requested string) (*Metadata, error) {
	if requested == "" || strings.EqualFold(requested, PlatformAll) {
		return m, nil
	}

	available := strings.Join(m.PlatformNames(), ", ")
	if available == "" {
		available = "none"
	}
	notFound := &NotFoundError{
		Message: fmt.Sprintf("--platform=%q not found in %s", requested, MetadataFile),
		Hint:    fmt.Sprintf("Available platform(s): %s", available),
	}

	p, ok := ParsePlatform(requested)
	if !ok {
		return nil, notFound
	}
	files, ok := m.Lookup(p)
	if !ok {
		return nil, notFound
	}

	return &Metadata{
		Version:      m.Version,
		Bundler:      m.Bundler,
		FileMetadata: []PlatformEntry{{Platform: p, Files: files}},
	}, nil
}
