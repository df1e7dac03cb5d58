// Package report persists the processing report of a run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	JSONName = "report.json"
	DocxName = "report.docx"
)

// WriteJSON writes rep as indented JSON into dir and returns the file path.
func WriteJSON(dir string, rep types.Report) (string, error) {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(dir, JSONName)
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func ReadJSON(path string) (types.Report, error) {
	var rep types.Report
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return rep, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}
