package safezones

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/types"
)

// WriteFile persists m as indented JSON, replacing path atomically.
func WriteFile(path string, m types.SafeZoneMap) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode safe zones: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".safezones-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile loads a map written by WriteFile. Samples must be strictly
// ascending by time.
func ReadFile(path string) (types.SafeZoneMap, error) {
	var m types.SafeZoneMap
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return types.SafeZoneMap{}, fmt.Errorf("decode safe zones: %w", err)
	}
	for i := 1; i < len(m.Samples); i++ {
		if m.Samples[i].Time <= m.Samples[i-1].Time {
			return types.SafeZoneMap{}, fmt.Errorf("decode safe zones: sample %d out of order", i)
		}
	}
	return m, nil
}
