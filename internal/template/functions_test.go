package template

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFnUUID(t *testing.T) {
	first, err := fnUUID("", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := uuid.Parse(first)
	if err != nil {
		t.Fatalf("invalid UUID %q: %v", first, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("expected v4 UUID, got v%d", parsed.Version())
	}

	second, _ := fnUUID("", time.Time{})
	if first == second {
		t.Error("UUIDs should be unique")
	}

	if _, err := fnUUID("extra", time.Time{}); err == nil {
		t.Error("expected error for uuid() with arguments")
	}
}

func TestFnRandom(t *testing.T) {
	for i := 0; i < 100; i++ {
		result, err := fnRandom("1, 10", time.Time{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n, err := strconv.Atoi(result)
		if err != nil {
			t.Fatalf("result is not a number: %s", result)
		}
		if n < 1 || n > 10 {
			t.Errorf("result %d out of range [1, 10]", n)
		}
	}

	if result, _ := fnRandom("5,5", time.Time{}); result != "5" {
		t.Errorf("expected 5 for equal bounds, got %s", result)
	}
}

func TestFnRandom_FullRange(t *testing.T) {
	tests := []string{
		"0, 9223372036854775807",
		"-9223372036854775808, 9223372036854775807",
		"-9223372036854775808, -9223372036854775808",
	}
	for _, args := range tests {
		result, err := fnRandom(args, time.Time{})
		if err != nil {
			t.Fatalf("fnRandom(%q): unexpected error: %v", args, err)
		}
		if _, err := strconv.ParseInt(result, 10, 64); err != nil {
			t.Errorf("fnRandom(%q) = %q, not an int64", args, result)
		}
	}
}

func TestPayload_RenderWideRandomRange(t *testing.T) {
	p, err := Parse(`{"n": ${random(0, 9223372036854775807)}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := p.Render("t", 0, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(body), `{"n": `) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestFnRandom_InvalidArgs(t *testing.T) {
	for _, args := range []string{"", "1", "a,10", "1,b", "10,1"} {
		if _, err := fnRandom(args, time.Time{}); err == nil {
			t.Errorf("fnRandom(%q): expected error", args)
		}
	}
}

func TestFnRandomString(t *testing.T) {
	result, err := fnRandomString("16", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 16 {
		t.Errorf("expected length 16, got %d", len(result))
	}
	if strings.Trim(result, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789") != "" {
		t.Errorf("unexpected characters in %q", result)
	}

	for _, args := range []string{"0", "1001", "x"} {
		if _, err := fnRandomString(args, time.Time{}); err == nil {
			t.Errorf("fnRandomString(%q): expected error", args)
		}
	}
}

func TestFnDate(t *testing.T) {
	at := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		args string
		want string
	}{
		{"2006-01-02", "2024-01-15"},
		{"15:04:05", "14:30:00"},
		{"", "2024-01-15T14:30:00Z"},
	}
	for _, tt := range tests {
		got, err := fnDate(tt.args, at)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("date(%s) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestEvalFunction_NotAFunction(t *testing.T) {
	if _, isFunc, _ := evalFunction("task", time.Time{}); isFunc {
		t.Error("plain name should not be treated as a function")
	}
}
