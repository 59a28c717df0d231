package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the on-disk layout. Pointers tell absent keys from zero
// values.
type fileConfig struct {
	History struct {
		MergeSpan  *string `toml:"merge_span" yaml:"merge_span"`
		MaxEntries *int    `toml:"max_entries" yaml:"max_entries"`
	} `toml:"history" yaml:"history"`
	Logging struct {
		Level *string `toml:"level" yaml:"level"`
	} `toml:"logging" yaml:"logging"`
}

// Load reads settings from path on top of Default().
// The format is chosen by extension: .toml, .yaml or .yml.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil // File doesn't exist, not an error
		}
		return s, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := s.merge(path, data); err != nil {
		return Default(), err
	}
	if err := s.Validate(); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// merge decodes data and overlays the keys it sets onto s.
func (s *Settings) merge(path string, data []byte) error {
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if v := fc.History.MergeSpan; v != nil {
		d, err := time.ParseDuration(*v)
		if err != nil {
			return &ParseError{Path: path, Message: "merge_span: " + err.Error(), Err: err}
		}
		s.MergeSpan = d
	}
	if v := fc.History.MaxEntries; v != nil {
		s.MaxEntries = *v
	}
	if v := fc.Logging.Level; v != nil {
		s.LogLevel = *v
	}
	return nil
}
