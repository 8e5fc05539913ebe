package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/probelab/probe/internal/orchestrator"
)

// Duration unmarshals YAML durations written as strings ("5m", "90s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Profile is one named research depth, loaded from YAML. A profile maps
// directly onto the engine's run bounds.
type Profile struct {
	// Name is the profile name (quick, standard, deep).
	Name string `yaml:"name"`
	// Model is the collaborator model for this depth.
	Model string `yaml:"model"`
	// Temperature is passed through to the collaborators.
	Temperature float64 `yaml:"temperature"`
	// MaxSubTasks is the iteration ceiling.
	MaxSubTasks int `yaml:"max_sub_tasks"`
	// MinSubTasks is the completion floor.
	MinSubTasks int `yaml:"min_sub_tasks"`
	// CompletionThreshold is the convergence threshold in [0,1].
	CompletionThreshold float64 `yaml:"completion_threshold"`
	// ConcurrencyLimit caps concurrent researcher calls.
	ConcurrencyLimit int `yaml:"concurrency_limit"`
	// PerTaskTimeout bounds one researcher call.
	PerTaskTimeout Duration `yaml:"per_task_timeout"`
}

// RunConfig converts the profile to engine run configuration.
func (p *Profile) RunConfig() orchestrator.RunConfig {
	return orchestrator.RunConfig{
		Model:               p.Model,
		Temperature:         p.Temperature,
		MaxSubTasks:         p.MaxSubTasks,
		MinSubTasks:         p.MinSubTasks,
		CompletionThreshold: p.CompletionThreshold,
		ConcurrencyLimit:    p.ConcurrencyLimit,
		PerTaskTimeout:      time.Duration(p.PerTaskTimeout),
	}
}

// Profiles holds all named depth profiles.
type Profiles struct {
	Quick    *Profile
	Standard *Profile
	Deep     *Profile
}

// Get returns the profile with the given name.
func (p *Profiles) Get(name string) (*Profile, error) {
	switch name {
	case "quick":
		return p.Quick, nil
	case "standard", "":
		return p.Standard, nil
	case "deep":
		return p.Deep, nil
	default:
		return nil, fmt.Errorf("unknown profile %q (want quick, standard, or deep)", name)
	}
}

// LoadProfiles loads depth profiles from the given directory, looking for
// quick.yaml, standard.yaml, and deep.yaml. Missing files fall back to the
// built-in defaults for that depth.
func LoadProfiles(dir string) (*Profiles, error) {
	defaults := DefaultProfiles()
	profiles := &Profiles{}

	var err error
	if profiles.Quick, err = loadProfile(filepath.Join(dir, "quick.yaml"), defaults.Quick); err != nil {
		return nil, err
	}
	if profiles.Standard, err = loadProfile(filepath.Join(dir, "standard.yaml"), defaults.Standard); err != nil {
		return nil, err
	}
	if profiles.Deep, err = loadProfile(filepath.Join(dir, "deep.yaml"), defaults.Deep); err != nil {
		return nil, err
	}
	return profiles, nil
}

func loadProfile(path string, fallback *Profile) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallback, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// Start from the fallback so partial files override only what they name.
	profile := *fallback
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", path, err)
	}
	return &profile, nil
}

// DefaultProfiles returns the built-in depth profiles.
func DefaultProfiles() *Profiles {
	return &Profiles{
		Quick: &Profile{
			Name:                "quick",
			Temperature:         0.3,
			MaxSubTasks:         6,
			MinSubTasks:         2,
			CompletionThreshold: 0.7,
			ConcurrencyLimit:    2,
			PerTaskTimeout:      Duration(2 * time.Minute),
		},
		Standard: &Profile{
			Name:                "standard",
			Temperature:         0.3,
			MaxSubTasks:         12,
			MinSubTasks:         3,
			CompletionThreshold: 0.8,
			ConcurrencyLimit:    3,
			PerTaskTimeout:      Duration(5 * time.Minute),
		},
		Deep: &Profile{
			Name:                "deep",
			Temperature:         0.5,
			MaxSubTasks:         24,
			MinSubTasks:         6,
			CompletionThreshold: 0.9,
			ConcurrencyLimit:    4,
			PerTaskTimeout:      Duration(10 * time.Minute),
		},
	}
}
