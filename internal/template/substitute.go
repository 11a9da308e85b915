// Package template renders per-tick payload bodies from a configured text
// with ${...} placeholders.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// varPattern matches ${var}, ${env:VAR} and ${func(args)} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars holds the values available to a render.
type Vars struct {
	Task string
	Tick int
	At   time.Time
	Row  map[string]any // current data row, if the task has one
}

func (v Vars) lookup(name string) (string, bool) {
	if field, ok := strings.CutPrefix(name, "row."); ok {
		val, found := v.Row[field]
		if !found {
			return "", false
		}
		return fmt.Sprint(val), true
	}
	switch name {
	case "task":
		return v.Task, true
	case "tick":
		return strconv.Itoa(v.Tick), true
	case "timestamp":
		return v.At.UTC().Format(time.RFC3339Nano), true
	case "unix":
		return strconv.FormatInt(v.At.Unix(), 10), true
	case "unix_ms":
		return strconv.FormatInt(v.At.UnixMilli(), 10), true
	}
	return "", false
}

// Substitute replaces every placeholder in text. All failures are joined.
// Text without placeholders is returned unchanged.
func Substitute(text string, vars Vars) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		val, err := resolve(match[2:len(match)-1], vars)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return val
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

func resolve(name string, vars Vars) (string, error) {
	if envName, ok := strings.CutPrefix(name, "env:"); ok {
		if val, ok := os.LookupEnv(envName); ok {
			return val, nil
		}
		return "", fmt.Errorf("env var %q not set", envName)
	}
	if val, isFunc, err := evalFunction(name, vars.At); isFunc {
		return val, err
	}
	if val, ok := vars.lookup(name); ok {
		return val, nil
	}
	return "", fmt.Errorf("variable %q not found", name)
}

// check reports placeholders that can never resolve: unknown variables and
// unknown functions. Env vars and row fields are looked up at render time.
func check(text string) error {
	var errs []error
	for _, m := range varPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if strings.HasPrefix(name, "env:") {
			continue
		}
		if fn, _, ok := splitCall(name); ok {
			if _, known := funcRegistry[fn]; !known {
				errs = append(errs, fmt.Errorf("unknown function %q", fn))
			}
			continue
		}
		if strings.HasPrefix(name, "row.") {
			continue
		}
		if _, ok := (Vars{}).lookup(name); !ok {
			errs = append(errs, fmt.Errorf("variable %q not found", name))
		}
	}
	return errors.Join(errs...)
}
