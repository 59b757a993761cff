// Package manifest defines the manifest.json sidecar written once per
// encode and validated once per decode (spec.md §3, §6).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Magic is the fixed manifest identifier. Decoders reject any other value.
	Magic = "SLLV"
	// Version is the current manifest schema version.
	Version uint16 = 1
)

// Manifest is the JSON sidecar recorded alongside a run's frame files.
type Manifest struct {
	Magic      string `json:"magic"`
	Version    uint16 `json:"version"`
	FileName   string `json:"file_name"`
	TotalBytes uint64 `json:"total_bytes"`
	ChunkBytes uint32 `json:"chunk_bytes"`
	GridW      uint32 `json:"grid_w"`
	GridH      uint32 `json:"grid_h"`
	CellPx     uint32 `json:"cell_px"`
	Palette    string `json:"palette"`
	SHA256Hex  string `json:"sha256_hex"`
	Frames     uint32 `json:"frames"`
}

// FileName is the manifest's canonical on-disk name within an encode's
// output directory.
const FileName = "manifest.json"

// Write serializes m as indented JSON to <dir>/manifest.json.
func Write(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal failed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("manifest: write failed: %w", err)
	}
	return nil
}

// Load reads and validates <dir>/manifest.json, rejecting unrecognized
// magic or version (spec.md §6).
func Load(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read failed: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: invalid JSON: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate rejects a manifest with the wrong magic or an unsupported
// version.
func (m Manifest) Validate() error {
	if m.Magic != Magic {
		return fmt.Errorf("manifest: unrecognized magic %q, want %q", m.Magic, Magic)
	}
	if m.Version != Version {
		return fmt.Errorf("manifest: unsupported version %d, want %d", m.Version, Version)
	}
	return nil
}
