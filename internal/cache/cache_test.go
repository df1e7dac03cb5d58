package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type entry struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFS(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFS error: %v", err)
	}
	return map[string]Store{"fs": fs, "memory": NewMemory()}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := Key("segment", "hello")
			var got entry
			if GetJSON(s, Analysis, key, &got) {
				t.Fatalf("unexpected hit on empty store")
			}
			if err := PutJSON(s, Analysis, key, entry{Text: "hello", Score: 7}); err != nil {
				t.Fatalf("PutJSON error: %v", err)
			}
			if !GetJSON(s, Analysis, key, &got) || got.Text != "hello" || got.Score != 7 {
				t.Fatalf("got %+v", got)
			}
			if GetJSON(s, Captions, key, &got) {
				t.Fatalf("categories must not share entries")
			}
		})
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := Key("x")
			if err := s.Put(Captions, key, []byte("{broken")); err != nil {
				t.Fatal(err)
			}
			var got entry
			if GetJSON(s, Captions, key, &got) {
				t.Fatalf("corrupt entry served as hit")
			}
		})
	}
}

func TestKeyIsStableAndSeparated(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Fatalf("key not stable")
	}
	if Key("ab", "") == Key("a", "b") {
		t.Fatalf("parts must be separated")
	}
	if len(Key()) != 64 {
		t.Fatalf("unexpected key length")
	}
}

func TestFileKey(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	if err := os.WriteFile(a, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	ka, err := FileKey(a, "whisper-1")
	if err != nil {
		t.Fatal(err)
	}
	kb, _ := FileKey(b, "whisper-1")
	kc, _ := FileKey(b, "whispercpp")
	if ka != kb || kb == kc {
		t.Fatalf("content keys: %s %s %s", ka, kb, kc)
	}
	if _, err := FileKey(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFSRejectsPathsOutsideRoot(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Put("../escape", "k", nil); err == nil {
		t.Fatalf("expected error")
	}
	if _, _, err := fs.Get(Images, "a/b"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteOnly(t *testing.T) {
	mem := NewMemory()
	s := WriteOnly{Store: mem}
	if err := s.Put(Images, "k", []byte("png")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(Images, "k"); ok {
		t.Fatalf("write-only store served a read")
	}
	if b, ok, _ := mem.Get(Images, "k"); !ok || string(b) != "png" {
		t.Fatalf("write did not reach the backing store")
	}
}

func TestMemoryConcurrent(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := Key(string(rune('a' + i)))
			_ = m.Put(Analysis, k, []byte{byte(i)})
			_, _, _ = m.Get(Analysis, k)
		}(i)
	}
	wg.Wait()
}
