// Package config handles traffic and deployment configuration parsing.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"barrage/internal/core"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the decoder for a configuration file.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatFromPath picks the decoder from the file extension. Anything that
// is not .toml is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Traffic is the ordered task list consumed by every command.
type Traffic struct {
	Tasks []Task `yaml:"tasks" toml:"tasks"`
	// Dir is the directory the list was loaded from; relative data paths
	// resolve against it.
	Dir string `yaml:"-" toml:"-"`
}

// Task returns the task at index, or a configuration error if there is none.
func (t *Traffic) Task(index int) (Task, error) {
	if index < 0 || index >= len(t.Tasks) {
		return Task{}, fmt.Errorf("%w: no task at index %d (%d tasks configured)",
			core.ErrConfiguration, index, len(t.Tasks))
	}
	return t.Tasks[index].WithBaseDir(t.Dir), nil
}

// Resolved returns every task with its data path resolved.
func (t *Traffic) Resolved() []Task {
	out := make([]Task, len(t.Tasks))
	for i, task := range t.Tasks {
		out[i] = task.WithBaseDir(t.Dir)
	}
	return out
}

// Deployment sizes the generated worker manifests.
type Deployment struct {
	Instance  int32  `yaml:"instance" toml:"instance"`
	CPU       string `yaml:"cpu" toml:"cpu"`
	Mem       string `yaml:"mem" toml:"mem"`
	Image     string `yaml:"image,omitempty" toml:"image,omitempty"`
	Namespace string `yaml:"namespace,omitempty" toml:"namespace,omitempty"`
}

const DefaultImage = "barrage:latest"

// LoadTraffic reads and parses a task list file.
func LoadTraffic(path string) (*Traffic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %w", core.ErrConfiguration, err)
	}
	traffic, err := ParseTraffic(data, FormatFromPath(path))
	if err != nil {
		return nil, err
	}
	traffic.Dir = filepath.Dir(path)
	return traffic, nil
}

// ParseTraffic decodes a task list. YAML input may be a bare sequence of
// tasks or a mapping with a "tasks" key; TOML input uses [[tasks]].
func ParseTraffic(data []byte, format Format) (*Traffic, error) {
	var traffic Traffic

	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &traffic); err != nil {
			return nil, fmt.Errorf("%w: parsing config file: %w", core.ErrConfiguration, err)
		}
	default:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: parsing config file: %w", core.ErrConfiguration, err)
		}
		if len(doc.Content) > 0 {
			root := doc.Content[0]
			var err error
			if root.Kind == yaml.SequenceNode {
				err = root.Decode(&traffic.Tasks)
			} else {
				err = root.Decode(&traffic)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: parsing config file: %w", core.ErrConfiguration, err)
			}
		}
	}

	if len(traffic.Tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks defined", core.ErrConfiguration)
	}
	return &traffic, nil
}

// MarshalTasks renders the task list as a YAML sequence, the format the
// worker reads from its mounted ConfigMap.
func (t *Traffic) MarshalTasks() ([]byte, error) {
	return yaml.Marshal(t.Tasks)
}

// LoadDeployment reads and parses a deployment sizing file.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading deployment file: %w", core.ErrConfiguration, err)
	}
	return ParseDeployment(data, FormatFromPath(path))
}

func ParseDeployment(data []byte, format Format) (*Deployment, error) {
	var dep Deployment
	var err error
	if format == FormatTOML {
		err = toml.Unmarshal(data, &dep)
	} else {
		err = yaml.Unmarshal(data, &dep)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parsing deployment file: %w", core.ErrConfiguration, err)
	}

	var errs []error
	if dep.Instance < 0 {
		errs = append(errs, fmt.Errorf("instance must be >= 0, got %d", dep.Instance))
	}
	if dep.CPU == "" {
		errs = append(errs, errors.New("cpu is required"))
	}
	if dep.Mem == "" {
		errs = append(errs, errors.New("mem is required"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: deployment: %w", core.ErrConfiguration, errors.Join(errs...))
	}
	if dep.Image == "" {
		dep.Image = DefaultImage
	}
	return &dep, nil
}

const (
	day     = 24 * time.Hour
	maxDays = int64(math.MaxInt64 / day)
)

// ParseDuration accepts Go duration syntax ("10s", "1m30s") plus a whole
// number of days ("2d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("duration is empty")
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		days, ok := strings.CutSuffix(s, "d")
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		n, convErr := strconv.ParseInt(days, 10, 64)
		if convErr != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		if n > maxDays {
			return 0, fmt.Errorf("invalid duration %q: more than %d days", s, maxDays)
		}
		d = time.Duration(n) * day
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}
