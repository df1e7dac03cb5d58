package timeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/types"
)

type exportFile struct {
	Segments []types.TimelineSegment `json:"segments"`
}

// Export writes the segments in insertion order as
// {"segments":[{start_time,end_time,type,priority,data}]}.
func (b *Builder) Export(w io.Writer) error {
	segs := b.segments
	if segs == nil {
		segs = []types.TimelineSegment{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(exportFile{Segments: segs}); err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	return nil
}

// Import rebuilds a Builder from an exported timeline. Priorities are reset
// to the fixed ordinal of each segment type.
func Import(r io.Reader) (*Builder, error) {
	var f exportFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	b := New()
	for i, s := range f.Segments {
		data := s.Data
		if len(data.EmphasisWords) == 0 {
			data.EmphasisWords = nil
		}
		if err := b.add(s.Type, s.StartTime, s.EndTime, data); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return b, nil
}

// WriteFile exports the timeline to path, replacing it atomically.
func (b *Builder) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".timeline-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := b.Export(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ReadFile(path string) (*Builder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f)
}
