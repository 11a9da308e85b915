// Package data loads row files that feed payload templates, one row per
// tick.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"maps"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
)

// Mode defines how rows are picked.
type Mode string

const (
	// ModeSequential walks the rows in order, wrapping around.
	ModeSequential Mode = "sequential"
	ModeRandom     Mode = "random"
)

// ParseMode accepts "" (sequential), "sequential" or "random".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSequential:
		return ModeSequential, nil
	case ModeRandom:
		return ModeRandom, nil
	default:
		return "", fmt.Errorf("unknown data mode %q (want sequential or random)", s)
	}
}

// Source hands out rows from a loaded file. Safe for concurrent use.
type Source struct {
	rows    []map[string]any
	mode    Mode
	counter atomic.Uint64
	mu      sync.Mutex
	rng     *rand.Rand
}

func NewSource(rows []map[string]any, mode Mode) *Source {
	if mode == "" {
		mode = ModeSequential
	}
	return &Source{
		rows: rows,
		mode: mode,
		rng:  rand.New(rand.NewSource(rand.Int63())),
	}
}

func (s *Source) Len() int { return len(s.rows) }

// Next returns a copy of the next row, or nil for an empty source.
func (s *Source) Next() map[string]any {
	if len(s.rows) == 0 {
		return nil
	}

	var idx int
	if s.mode == ModeRandom {
		s.mu.Lock()
		idx = s.rng.Intn(len(s.rows))
		s.mu.Unlock()
	} else {
		n := s.counter.Add(1) - 1
		idx = int(n % uint64(len(s.rows)))
	}
	return maps.Clone(s.rows[idx])
}

// LoadFile reads a .csv or .json row file.
func LoadFile(path string, mode Mode) (*Source, error) {
	var (
		rows []map[string]any
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rows, err = loadCSV(path)
	case ".json":
		rows, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported data file format %q (use .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("data file %s is empty", path)
	}
	return NewSource(rows, mode), nil
}

// loadCSV reads a header row followed by data rows. Short records are
// padded with empty strings.
func loadCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("CSV must have a header row and at least one data row")
	}

	headers := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadJSON reads an array of objects.
func loadJSON(path string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, errors.New("JSON must be an array of objects")
	}

	elems := doc.Array()
	rows := make([]map[string]any, 0, len(elems))
	for i, elem := range elems {
		if !elem.IsObject() {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		rows = append(rows, elem.Value().(map[string]any))
	}
	return rows, nil
}
