package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ManifestSuffix is appended to the CSV path to name its manifest.
const ManifestSuffix = ".manifest.json"

// Manifest describes one fetch run and the file it produced.
type Manifest struct {
	RunID             string    `json:"run_id"`
	ConfigFingerprint string    `json:"config_fingerprint"`
	Endpoint          string    `json:"endpoint"`
	Mode              string    `json:"mode"`
	Records           int       `json:"records"`
	Columns           []string  `json:"columns"`
	Output            string    `json:"output"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// NewManifest starts a manifest with a fresh run ID.
func NewManifest(endpoint, fingerprint string, startedAt time.Time) *Manifest {
	return &Manifest{
		RunID:             uuid.NewString(),
		ConfigFingerprint: fingerprint,
		Endpoint:          endpoint,
		StartedAt:         startedAt.UTC(),
	}
}

// ManifestPath returns the manifest path for a CSV path.
func ManifestPath(csvPath string) string {
	return csvPath + ManifestSuffix
}

// WriteManifest stores m next to its output file and returns the path.
func WriteManifest(fs afero.Fs, m *Manifest) (string, error) {
	if m.Output == "" {
		return "", fmt.Errorf("manifest has no output path")
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	path := ManifestPath(m.Output)
	if err := afero.WriteFile(fs, path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
