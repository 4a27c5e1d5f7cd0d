package frontier

import (
	"path/filepath"
	"testing"

	"github.com/arlobridge/crawlcore/internal/domain"
)

func TestFilePathForDomain_IsStableAndSharded(t *testing.T) {
	p1 := filePathForDomain("/data", "example.com")
	p2 := filePathForDomain("/data", "example.com")

	if p1 != p2 {
		t.Fatalf("filePathForDomain is not deterministic: %q != %q", p1, p2)
	}

	if filepath.Base(p1) != "example.com.frontier" {
		t.Errorf("unexpected file name: %q", p1)
	}

	dir := filepath.Dir(p1)
	if filepath.Base(filepath.Dir(dir)) != "frontiers" {
		t.Errorf("expected file under a frontiers/<shard>/ directory, got %q", p1)
	}
}

func TestAppendEntriesAndReadNextEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example.com.frontier")

	size, err := appendEntries(path, []domain.FrontierEntry{
		{URL: "https://example.com/a", Depth: 0},
		{URL: "https://example.com/b.jpg", Depth: 1}, // non-text, must be skipped on read
		{URL: "https://example.com/c", Depth: 1},
	})
	if err != nil {
		t.Fatalf("appendEntries() unexpected error: %v", err)
	}
	if size == 0 {
		t.Fatal("appendEntries() returned zero size after writing entries")
	}

	entry, offset, found, err := readNextEntry(path, 0, size)
	if err != nil {
		t.Fatalf("readNextEntry() unexpected error: %v", err)
	}
	if !found {
		t.Fatal("readNextEntry() expected to find an entry")
	}
	if entry.URL != "https://example.com/a" || entry.Depth != 0 {
		t.Errorf("unexpected first entry: %+v", entry)
	}

	entry, offset, found, err = readNextEntry(path, offset, size)
	if err != nil {
		t.Fatalf("readNextEntry() unexpected error: %v", err)
	}
	if !found {
		t.Fatal("readNextEntry() expected to skip the image and find the next text entry")
	}
	if entry.URL != "https://example.com/c" || entry.Depth != 1 {
		t.Errorf("unexpected second entry: %+v", entry)
	}

	_, finalOffset, found, err := readNextEntry(path, offset, size)
	if err != nil {
		t.Fatalf("readNextEntry() unexpected error: %v", err)
	}
	if found {
		t.Fatal("readNextEntry() expected EOF, found an entry")
	}
	if finalOffset != size {
		t.Errorf("expected offset to advance to size %d at EOF, got %d", size, finalOffset)
	}
}

func TestReadNextEntry_OffsetAtOrPastSizeReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.frontier")

	size, err := appendEntries(path, []domain.FrontierEntry{{URL: "https://example.com/a", Depth: 0}})
	if err != nil {
		t.Fatalf("appendEntries() unexpected error: %v", err)
	}

	_, offset, found, err := readNextEntry(path, size, size)
	if err != nil {
		t.Fatalf("readNextEntry() unexpected error: %v", err)
	}
	if found {
		t.Fatal("readNextEntry() expected not-found when offset >= size")
	}
	if offset != size {
		t.Errorf("expected unchanged offset %d, got %d", size, offset)
	}
}

func TestParseFrontierLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  domain.FrontierEntry
		valid bool
	}{
		{"valid", "https://example.com/a|3", domain.FrontierEntry{URL: "https://example.com/a", Depth: 3}, true},
		{"missing depth", "https://example.com/a", domain.FrontierEntry{}, false},
		{"non-numeric depth", "https://example.com/a|x", domain.FrontierEntry{}, false},
		{"empty url", "|3", domain.FrontierEntry{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseFrontierLine(tt.line)
			if ok != tt.valid {
				t.Fatalf("parseFrontierLine(%q) ok = %v, want %v", tt.line, ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Errorf("parseFrontierLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
