package resultstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/okian/ringside/internal/domain/model"
)

// Fixture is the on-disk form of a result store.
type Fixture struct {
	Events []FixtureEvent `json:"events"`
}

// FixtureEvent is an event with its result document. A null or missing
// "results" models an event whose document has not been published.
type FixtureEvent struct {
	model.Event
	Results []model.FighterResult `json:"results"`
}

// LoadFixture reads a fixture file into a MemoryStore.
func LoadFixture(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return NewMemoryStore(fx.Events...)
}

// WriteFixture writes fx as indented JSON, creating parent directories.
func WriteFixture(path string, fx Fixture) error {
	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create fixture dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // fixture files are not secret
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}
