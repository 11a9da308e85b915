package data

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeData(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeData(t, "users.csv", `username,region,age
alice,eu,25
bob,us
charlie,ap,35`)

	src, err := LoadFile(path, ModeSequential)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if src.Len() != 3 {
		t.Errorf("Len() = %d, want 3", src.Len())
	}

	row := src.Next()
	if row["username"] != "alice" || row["region"] != "eu" || row["age"] != "25" {
		t.Errorf("unexpected first row %v", row)
	}
	if row := src.Next(); row["username"] != "bob" || row["age"] != "" {
		t.Errorf("short record should be padded, got %v", row)
	}
	src.Next()
	if row := src.Next(); row["username"] != "alice" {
		t.Errorf("expected wrap around to alice, got %v", row["username"])
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeData(t, "products.json", `[
		{"id": 1, "name": "Widget", "price": 9.99},
		{"id": 2, "name": "Gadget", "tags": ["a"]}
	]`)

	src, err := LoadFile(path, ModeSequential)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if src.Len() != 2 {
		t.Errorf("Len() = %d, want 2", src.Len())
	}

	row := src.Next()
	if row["id"] != float64(1) {
		t.Errorf("row[id] = %v (%T), want 1", row["id"], row["id"])
	}
	if row["name"] != "Widget" || row["price"] != 9.99 {
		t.Errorf("unexpected row %v", row)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"header only csv", "empty.csv", "header", "at least one data row"},
		{"unsupported format", "data.xml", "<data/>", "unsupported data file format"},
		{"invalid json", "bad.json", "{", "invalid JSON"},
		{"json object", "obj.json", `{"a":1}`, "array of objects"},
		{"json scalar element", "mixed.json", `[{"a":1}, 2]`, "element 1 is not an object"},
		{"empty json array", "none.json", `[]`, "is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeData(t, tt.file, tt.content), ModeSequential)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.csv"), ModeSequential); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeSequential, false},
		{"sequential", ModeSequential, false},
		{"RANDOM", ModeRandom, false},
		{"shuffle", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestModeRandom(t *testing.T) {
	path := writeData(t, "random.csv", "value\na\nb\nc\nd\ne")

	src, err := LoadFile(path, ModeRandom)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[src.Next()["value"].(string)] = true
	}
	if len(seen) < 2 {
		t.Errorf("random mode returned only %d unique values in 100 iterations", len(seen))
	}
}

func TestEmptySource(t *testing.T) {
	if NewSource(nil, "").Next() != nil {
		t.Error("Next() on empty source should return nil")
	}
}

func TestConcurrentAccess(t *testing.T) {
	src := NewSource([]map[string]any{{"v": 1}, {"v": 2}, {"v": 3}}, ModeSequential)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if src.Next() == nil {
					t.Error("Next() returned nil")
				}
			}
		}()
	}
	wg.Wait()
}

func TestNextReturnsCopy(t *testing.T) {
	src := NewSource([]map[string]any{{"key": "original"}}, ModeSequential)

	row := src.Next()
	row["key"] = "mutated"
	row["new_key"] = "added"

	again := src.Next()
	if again["key"] != "original" {
		t.Errorf("mutation affected source data: got %v", again["key"])
	}
	if _, exists := again["new_key"]; exists {
		t.Error("added key leaked into source data")
	}
}
