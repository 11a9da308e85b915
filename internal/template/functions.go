package template

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var funcRegistry = map[string]func(args string, at time.Time) (string, error){
	"uuid":          fnUUID,
	"random":        fnRandom,
	"random_string": fnRandomString,
	"date":          fnDate,
}

func splitCall(expr string) (name, args string, ok bool) {
	paren := strings.Index(expr, "(")
	if paren == -1 || !strings.HasSuffix(expr, ")") {
		return "", "", false
	}
	return expr[:paren], expr[paren+1 : len(expr)-1], true
}

// evalFunction evaluates a built-in call such as random(1,10). isFunc is
// false when expr is not a call to a registered function.
func evalFunction(expr string, at time.Time) (result string, isFunc bool, err error) {
	name, args, ok := splitCall(expr)
	if !ok {
		return "", false, nil
	}
	fn, ok := funcRegistry[name]
	if !ok {
		return "", true, fmt.Errorf("unknown function %q", name)
	}

	result, err = fn(args, at)
	if err != nil {
		return "", true, fmt.Errorf("function %s: %w", name, err)
	}
	return result, true, nil
}

func fnUUID(args string, _ time.Time) (string, error) {
	if args != "" {
		return "", fmt.Errorf("uuid() takes no arguments")
	}
	return uuid.NewString(), nil
}

// fnRandom returns an integer in [min, max].
func fnRandom(args string, _ time.Time) (string, error) {
	lo, hi, found := strings.Cut(args, ",")
	if !found {
		return "", fmt.Errorf("random(min,max) requires exactly 2 arguments")
	}

	min, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid min value: %w", err)
	}
	max, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid max value: %w", err)
	}
	if min > max {
		return "", fmt.Errorf("min (%d) must be <= max (%d)", min, max)
	}

	// max-min+1 overflows int64 for the widest ranges.
	span := new(big.Int).Sub(big.NewInt(max), big.NewInt(min))
	span.Add(span, big.NewInt(1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, big.NewInt(min)).String(), nil
}

func fnRandomString(args string, _ time.Time) (string, error) {
	length, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "", fmt.Errorf("invalid length: %w", err)
	}
	if length <= 0 || length > 1000 {
		return "", fmt.Errorf("length must be between 1 and 1000, got %d", length)
	}

	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

// fnDate formats the tick time with a Go reference layout, e.g.
// date(2006-01-02). An empty layout means RFC3339.
func fnDate(args string, at time.Time) (string, error) {
	layout := strings.TrimSpace(args)
	if layout == "" {
		layout = time.RFC3339
	}
	return at.UTC().Format(layout), nil
}
