package template

import (
	"encoding/json"
	"fmt"
	"time"
)

// RowSource supplies one data row per render.
type RowSource interface {
	Next() map[string]any
}

// Payload is a parsed body template. The rendered text must be valid JSON.
type Payload struct {
	text string
	rows RowSource
}

// Parse checks that every placeholder in text names a known variable or
// function.
func Parse(text string) (*Payload, error) {
	if err := check(text); err != nil {
		return nil, fmt.Errorf("payload template: %w", err)
	}
	return &Payload{text: text}, nil
}

// WithRows makes ${row.<field>} placeholders read from rows. Each render
// consumes one row.
func (p *Payload) WithRows(rows RowSource) *Payload {
	return &Payload{text: p.text, rows: rows}
}

// Render produces the body for one tick. Its signature matches the
// scheduler's payload hook.
func (p *Payload) Render(task string, tick int, at time.Time) (json.RawMessage, error) {
	vars := Vars{Task: task, Tick: tick, At: at}
	if p.rows != nil {
		vars.Row = p.rows.Next()
	}
	out, err := Substitute(p.text, vars)
	if err != nil {
		return nil, fmt.Errorf("rendering payload: %w", err)
	}
	if !json.Valid([]byte(out)) {
		return nil, fmt.Errorf("rendered payload is not valid JSON: %.64q", out)
	}
	return json.RawMessage(out), nil
}
