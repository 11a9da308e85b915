package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"barrage/internal/core"
	"barrage/internal/data"
	"barrage/internal/template"

	"gopkg.in/yaml.v3"
)

// Transport selects the sink variant for a task.
type Transport string

const (
	TransportHTTP  Transport = "http"
	TransportKafka Transport = "kafka"
)

// ParseTransport normalizes a transport name. "broker" is accepted as an
// alias for kafka.
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http", "https":
		return TransportHTTP, nil
	case "kafka", "broker":
		return TransportKafka, nil
	default:
		return "", fmt.Errorf("unknown transport %q (want http or kafka)", s)
	}
}

func (t *Transport) UnmarshalText(text []byte) error {
	parsed, err := ParseTransport(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t *Transport) UnmarshalYAML(value *yaml.Node) error {
	return t.UnmarshalText([]byte(value.Value))
}

// Task describes one unit of periodic traffic. It is built once from
// configuration and never mutated.
type Task struct {
	Name      string    `yaml:"name,omitempty" toml:"name,omitempty"`
	Type      Transport `yaml:"type" toml:"type"`
	Host      string    `yaml:"host" toml:"host"`
	Path      string    `yaml:"path,omitempty" toml:"path,omitempty"`
	Topic     string    `yaml:"topic,omitempty" toml:"topic,omitempty"`
	Frequency uint64    `yaml:"frequency" toml:"frequency"` // sends per minute
	Duration  string    `yaml:"duration" toml:"duration"`
	// Payload optionally replaces the default tick body with a template.
	Payload string `yaml:"payload,omitempty" toml:"payload,omitempty"`
	// Data is a .csv or .json row file read by ${row.<field>} placeholders.
	Data     string `yaml:"data,omitempty" toml:"data,omitempty"`
	DataMode string `yaml:"dataMode,omitempty" toml:"dataMode,omitempty"`
}

// DisplayName returns the configured name, or one derived from the task's
// position in the list.
func (t Task) DisplayName(index int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("barrage-task-%d", index)
}

// ParsedDuration returns the session budget.
func (t Task) ParsedDuration() (time.Duration, error) {
	d, err := ParseDuration(t.Duration)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}
	return d, nil
}

// ValidateTarget checks the fields a sink needs. Used by the ad-hoc paths,
// which ignore frequency and duration.
func (t Task) ValidateTarget() error {
	return wrapTaskErrors(t, t.targetErrors())
}

// Validate checks everything a scheduled session needs.
func (t Task) Validate() error {
	errs := t.targetErrors()
	if t.Frequency == 0 {
		errs = append(errs, errors.New("frequency must be greater than 0"))
	}
	if _, err := ParseDuration(t.Duration); err != nil {
		errs = append(errs, err)
	}
	if t.Payload != "" {
		if _, err := template.Parse(t.Payload); err != nil {
			errs = append(errs, err)
		}
	}
	if t.Data != "" && t.Payload == "" {
		errs = append(errs, errors.New("data requires a payload template"))
	}
	if _, err := data.ParseMode(t.DataMode); err != nil {
		errs = append(errs, err)
	}
	return wrapTaskErrors(t, errs)
}

// WithBaseDir resolves a relative data path against dir, normally the
// directory holding the task list.
func (t Task) WithBaseDir(dir string) Task {
	if t.Data != "" && dir != "" && !filepath.IsAbs(t.Data) {
		t.Data = filepath.Join(dir, t.Data)
	}
	return t
}

// Task names become Kubernetes object and manifest file names, so they
// follow the DNS-1123 label rules.
var (
	nameRE     = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	maxNameLen = 63
)

func (t Task) targetErrors() []error {
	var errs []error
	if t.Name != "" && (len(t.Name) > maxNameLen || !nameRE.MatchString(t.Name)) {
		errs = append(errs, fmt.Errorf("name %q must be a DNS-1123 label: at most %d lowercase alphanumerics or '-', starting and ending alphanumeric", t.Name, maxNameLen))
	}
	switch t.Type {
	case TransportHTTP:
	case TransportKafka:
		if strings.TrimSpace(t.Topic) == "" {
			errs = append(errs, errors.New("kafka task requires a topic"))
		}
	case "":
		errs = append(errs, errors.New("type is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", t.Type))
	}
	if strings.TrimSpace(t.Host) == "" {
		errs = append(errs, errors.New("host is required"))
	}
	return errs
}

func wrapTaskErrors(t Task, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	label := t.Name
	if label == "" {
		label = t.Host
	}
	return fmt.Errorf("%w: task %q: %w", core.ErrConfiguration, label, errors.Join(errs...))
}
