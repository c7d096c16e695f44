// Package production provides integrations around a running machine:
// snapshot persistence, transition publishing and visualization.
package production

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/matiu2/finny"
)

// Persister stores snapshots by instance id.
type Persister interface {
	Save(ctx context.Context, snapshot finny.Snapshot) error
	Load(ctx context.Context, id string) (finny.Snapshot, error)
}

// NewPersister returns the persister for format, json or yaml, storing in dir.
func NewPersister(format, dir string) (Persister, error) {
	switch format {
	case "json":
		return NewJSONPersister(dir)
	case "yaml":
		return NewYAMLPersister(dir)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}

func snapshotID(snapshot finny.Snapshot) (string, error) {
	if snapshot.ID != "" {
		return snapshot.ID, nil
	}
	if snapshot.Machine != "" {
		return snapshot.Machine, nil
	}
	return "", errors.New("snapshot has neither id nor machine name")
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

func readSnapshot(fn, id string) ([]byte, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %q: %w", id, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}

// JSONPersister is a file-based persister using JSON serialization.
type JSONPersister struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &JSONPersister{dir: dir}, nil
}

func (p *JSONPersister) Save(ctx context.Context, snapshot finny.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := snapshotID(snapshot)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	fn := filepath.Join(p.dir, id+".json")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func (p *JSONPersister) Load(ctx context.Context, id string) (finny.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return finny.Snapshot{}, err
	}
	data, err := readSnapshot(filepath.Join(p.dir, id+".json"), id)
	if err != nil {
		return finny.Snapshot{}, err
	}

	var snapshot finny.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return finny.Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return snapshot, nil
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, snapshot finny.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := snapshotID(snapshot)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}

	fn := filepath.Join(p.dir, id+".yaml")
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func (p *YAMLPersister) Load(ctx context.Context, id string) (finny.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return finny.Snapshot{}, err
	}
	data, err := readSnapshot(filepath.Join(p.dir, id+".yaml"), id)
	if err != nil {
		return finny.Snapshot{}, err
	}

	var snapshot finny.Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return finny.Snapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if len(snapshot.Regions) == 0 {
		return finny.Snapshot{}, fmt.Errorf("snapshot %q has no regions", id)
	}
	return snapshot, nil
}
