// Package snapshot serves live-side listings collected out of band, such as
// ntc-templates parsed CLI output, OpenConfig JSON or SuzieQ exports.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yourusername/netreconcile/internal/models"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Source reads <dir>/<device>/<entity_type>.{json,yaml,yml}
type Source struct {
	dir    string
	source models.DiffSource
}

// NewSource creates a snapshot source tagging its values with source
func NewSource(dir string, source models.DiffSource) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot dir %s is not a directory", dir)
	}
	return &Source{dir: dir, source: source}, nil
}

// Source returns the collector the snapshot was produced by
func (s *Source) Source() models.DiffSource {
	return s.source
}

// Collect decodes the snapshot file for one device and entity type
func (s *Source) Collect(ctx context.Context, device string, et models.EntityType) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, device, string(et)+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}

		var out any
		if ext == ".json" {
			err = json.Unmarshal(data, &out)
		} else {
			err = yaml.Unmarshal(data, &out)
		}
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("no %s snapshot for device %s in %s", et, device, s.dir)
}
